package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"stratbt/internal/config"
	"stratbt/internal/pipeline"
	"stratbt/internal/provider"
	"stratbt/internal/report"
	"stratbt/internal/store"
	"stratbt/internal/util"
)

func main() {
	cfgFlag := flag.String("config", "", "path to YAML config (defaults apply when empty)")
	outFlag := flag.String("out", "", "report output path (overrides config)")
	noCache := flag.Bool("no-cache", false, "bypass the local bar cache and always hit the API")
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
	var prov provider.PriceProvider = alpaca
	if !*noCache {
		prov = provider.NewCachedProvider(alpaca, store.NewParquetStore(cfg.Storage.DataDir))
	}

	runs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open run store: %v", err)
	}
	defer runs.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pipe := pipeline.New(prov, runs, report.NewHTMLRenderer())
	res, err := pipe.Run(ctx, pipeline.Params{
		Tickers:   cfg.Backtest.Tickers,
		Benchmark: cfg.Backtest.Benchmark,
		Start:     start,
		End:       end,
		RiskFree:  cfg.Backtest.RiskFreeRate,
		TopN:      cfg.Backtest.TopN,
	})
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	output := cfg.Backtest.Output
	if *outFlag != "" {
		output = *outFlag
	}
	if err := os.WriteFile(output, res.Report, 0o644); err != nil {
		log.Fatalf("failed to write report: %v", err)
	}

	logger.Info("backtest complete",
		"report", output,
		"run_id", res.RunID,
		"strategies", len(res.Data.Strategies))
}
