// Package setup provides the interactive first-run configuration wizard.
package setup

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// wizardYaml mirrors the yaml layout config.Get expects.
type wizardYaml struct {
	ListenAddr   string        `yaml:"listen_addr"`
	WALDir       string        `yaml:"wal_dir"`
	DataDir      string        `yaml:"data_dir"`
	Provider     string        `yaml:"provider"`
	QuoteTimeout time.Duration `yaml:"quote_timeout"`
	StartingCash string        `yaml:"starting_cash"`
	TLSDomains   []string      `yaml:"tls_domains,omitempty"`
}

// RunTUI launches the terminal configuration wizard and writes
// config.gen.yaml on confirmation.
func RunTUI() error {
	var (
		provider     string
		listenAddr   string
		startingCash string
		confirm      bool
	)

	// defaults
	listenAddr = ":8080"
	startingCash = "10000"

	fmt.Print("\033[H\033[2J") // clear screen
	fmt.Println(headerStyle.Render("WEBTRACK CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Set up your paper-trading ledger.\n"))

	fmt.Println(stepStyle.Render("STEP 1: QUOTE PROVIDER"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose your quote provider").
				Options(
					huh.NewOption("Yahoo Finance (stocks)", "yahoo"),
					huh.NewOption("Alpha Vantage (stocks, needs API key)", "alphavantage"),
					huh.NewOption("Binance (crypto)", "binance"),
					huh.NewOption("Bybit (crypto)", "bybit"),
					huh.NewOption("Static (offline)", "static"),
				).
				Value(&provider),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Println(stepStyle.Render("STEP 2: SERVER"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Value(&listenAddr),
			huh.NewInput().
				Title("Starting cash per new account").
				Validate(validateCash).
				Value(&startingCash),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Println(stepStyle.Render("STEP 3: CONFIRM"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Write config.gen.yaml (provider=%s, listen=%s, cash=%s)?",
					provider, listenAddr, startingCash)).
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled")
	}

	cfg := wizardYaml{
		ListenAddr:   listenAddr,
		WALDir:       "./wal/ledger",
		DataDir:      "./data",
		Provider:     provider,
		QuoteTimeout: 10 * time.Second,
		StartingCash: startingCash,
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", filename)))
	return nil
}

func validateCash(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
