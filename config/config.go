// Package config loads service configuration from a yaml file or CLI
// flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Supported quote providers.
const (
	ProviderYahoo        = "yahoo"
	ProviderAlphaVantage = "alphavantage"
	ProviderBinance      = "binance"
	ProviderBybit        = "bybit"
	ProviderStatic       = "static"
)

const (
	defaultListenAddr   = ":8080"
	defaultWALDir       = "./wal/ledger"
	defaultDataDir      = "./data"
	defaultProvider     = ProviderYahoo
	defaultQuoteTimeout = 10 * time.Second
	defaultStartingCash = "10000"
)

// Config is the resolved service configuration.
type Config struct {
	ListenAddr   string
	TLSDomains   []string
	CertCacheDir string
	WALDir       string
	DataDir      string
	Provider     string
	QuoteTimeout time.Duration
	StartingCash decimal.Decimal
}

type configYaml struct {
	ListenAddr   string        `yaml:"listen_addr,omitempty"`
	TLSDomains   []string      `yaml:"tls_domains,omitempty"`
	CertCacheDir string        `yaml:"cert_cache_dir,omitempty"`
	WALDir       string        `yaml:"wal_dir,omitempty"`
	DataDir      string        `yaml:"data_dir,omitempty"`
	Provider     string        `yaml:"provider,omitempty"`
	QuoteTimeout time.Duration `yaml:"quote_timeout,omitempty"`
	StartingCash string        `yaml:"starting_cash,omitempty"`
}

// Get resolves configuration: --config points to a yaml file, otherwise
// individual flags apply.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	listen := flag.String("listen", defaultListenAddr, "listen address")
	walDir := flag.String("waldir", defaultWALDir, "ledger WAL directory")
	dataDir := flag.String("datadir", defaultDataDir, "data directory (watchlist, cert cache)")
	provider := flag.String("provider", defaultProvider, "quote provider: yahoo|alphavantage|binance|bybit|static")
	quoteTimeout := flag.Duration("quotetimeout", defaultQuoteTimeout, "quote lookup timeout")
	startingCash := flag.String("startingcash", defaultStartingCash, "cash balance granted at registration")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	cash, err := decimal.NewFromString(*startingCash)
	if err != nil {
		return Config{}, fmt.Errorf("invalid --startingcash provided, --startingcash=%s", *startingCash)
	}

	cfg := Config{
		ListenAddr:   *listen,
		WALDir:       *walDir,
		DataDir:      *dataDir,
		Provider:     strings.ToLower(*provider),
		QuoteTimeout: *quoteTimeout,
		StartingCash: cash,
	}
	return cfg, cfg.validate()
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var raw configYaml
	if err := yaml.Unmarshal(f, &raw); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:   raw.ListenAddr,
		TLSDomains:   raw.TLSDomains,
		CertCacheDir: raw.CertCacheDir,
		WALDir:       raw.WALDir,
		DataDir:      raw.DataDir,
		Provider:     strings.ToLower(raw.Provider),
		QuoteTimeout: raw.QuoteTimeout,
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.WALDir == "" {
		cfg.WALDir = defaultWALDir
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir
	}
	if cfg.Provider == "" {
		cfg.Provider = defaultProvider
	}
	if cfg.QuoteTimeout == 0 {
		cfg.QuoteTimeout = defaultQuoteTimeout
	}

	cashStr := raw.StartingCash
	if cashStr == "" {
		cashStr = defaultStartingCash
	}
	cash, err := decimal.NewFromString(cashStr)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'starting_cash' param in yaml config: %s, error: %w", raw.StartingCash, err)
	}
	cfg.StartingCash = cash

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Provider {
	case ProviderYahoo, ProviderAlphaVantage, ProviderBinance, ProviderBybit, ProviderStatic:
	default:
		return fmt.Errorf("unsupported provider %q", c.Provider)
	}
	if c.StartingCash.IsNegative() {
		return fmt.Errorf("starting cash must not be negative, got %s", c.StartingCash.String())
	}
	return nil
}
