// Command webtrack runs the paper-trading ledger service: a JSON API
// over an append-only trade ledger with live portfolio valuation.
//
// Usage:
//
//	webtrack --config config.yaml
//	webtrack --setup (interactive configuration wizard)
//	webtrack (uses CLI arguments)
//
// The alphavantage provider additionally requires the
// ALPHAVANTAGE_API_KEY environment variable.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tintran1995/webtrack/config"
	"github.com/tintran1995/webtrack/internal/clients"
	"github.com/tintran1995/webtrack/internal/services/broker"
	"github.com/tintran1995/webtrack/internal/services/portfolio"
	"github.com/tintran1995/webtrack/internal/services/pricer"
	"github.com/tintran1995/webtrack/internal/services/watchlist"
	"github.com/tintran1995/webtrack/internal/setup"
	"github.com/tintran1995/webtrack/internal/storage/ledger"
	watchstore "github.com/tintran1995/webtrack/internal/storage/watchlist"
	"github.com/tintran1995/webtrack/internal/web"
)

func main() {
	setupMode := flag.Bool("setup", false, "run the interactive setup wizard")

	cfg, err := config.Get()
	if *setupMode {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	store, err := ledger.NewStore(cfg.WALDir)
	if err != nil {
		logger.Fatal("failed to open ledger store", zap.Error(err))
	}
	defer store.Close()

	watchStore, err := watchstore.NewStore(cfg.DataDir)
	if err != nil {
		logger.Fatal("failed to open watchlist store", zap.Error(err))
	}

	quotes, err := buildPricer(cfg)
	if err != nil {
		logger.Fatal("failed to build quote provider", zap.Error(err))
	}

	portfolioSvc := portfolio.NewService(store, quotes, logger)
	brokerSvc := broker.NewService(store, portfolioSvc, quotes, cfg.QuoteTimeout, logger)
	watchSvc := watchlist.NewService(watchStore, quotes, logger)

	server := web.NewServer(cfg.ListenAddr, brokerSvc, portfolioSvc, watchSvc, store, cfg.StartingCash, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if len(cfg.TLSDomains) > 0 {
			return server.StartWithAutoTLS(gctx, cfg.TLSDomains, cfg.CertCacheDir)
		}
		return server.Start(gctx)
	})

	logger.Info("started",
		zap.String("listen", cfg.ListenAddr),
		zap.String("provider", cfg.Provider),
		zap.String("starting_cash", cfg.StartingCash.String()))

	if err := g.Wait(); err != nil {
		logger.Error(err.Error())
	}
}

func buildPricer(cfg config.Config) (pricer.Pricer, error) {
	switch cfg.Provider {
	case config.ProviderYahoo:
		return pricer.NewYahooPricer(), nil
	case config.ProviderAlphaVantage:
		return pricer.NewAlphaVantagePricerFromEnv()
	case config.ProviderBinance:
		return pricer.NewBinancePricer(clients.NewBinanceClient("", "")), nil
	case config.ProviderBybit:
		return pricer.NewBybitPricer(clients.NewBybitClient("", "")), nil
	case config.ProviderStatic:
		return pricer.NewStaticPricer(map[string]decimal.Decimal{
			"AAPL": decimal.NewFromFloat(180.00),
			"MSFT": decimal.NewFromFloat(410.00),
			"NFLX": decimal.NewFromFloat(600.00),
		}), nil
	default:
		return nil, errors.Errorf("unsupported provider %q", cfg.Provider)
	}
}
