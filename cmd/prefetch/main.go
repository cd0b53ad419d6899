package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"stratbt/internal/config"
	"stratbt/internal/prefetch"
	"stratbt/internal/provider"
	"stratbt/internal/store"
	"stratbt/internal/util"
)

func main() {
	cfgFlag := flag.String("config", "", "path to YAML config (defaults apply when empty)")
	flag.Parse()

	cfgPath := *cfgFlag
	if cfgPath == "" {
		if p := os.Getenv("STRATBT_CONFIG"); p != "" {
			cfgPath = p
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	start, end, err := cfg.DateRange()
	if err != nil {
		log.Fatalf("invalid date range: %v", err)
	}

	alpaca := provider.NewAlpacaProvider(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		cfg.Alpaca.Feed,
	)
	cache := store.NewParquetStore(cfg.Storage.DataDir)

	symbols := append([]string(nil), cfg.Backtest.Tickers...)
	symbols = append(symbols, cfg.Backtest.Benchmark)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p := prefetch.New(alpaca, cache, symbols, start, end)
	logger.Info("starting prefetch", "symbols", len(symbols))
	if err := p.Run(ctx); err != nil {
		log.Fatalf("prefetch failed: %v", err)
	}
}
