// Package store defines storage interfaces for the local daily-bar cache
// and the backtest run history, with Parquet and SQLite implementations.
package store

import (
	"context"
	"time"

	"stratbt/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars, merging with existing data.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end].
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with stored bars.
	ListSymbols(ctx context.Context) ([]string, error)
}

// RunRecord describes one completed backtest run.
type RunRecord struct {
	ID        int64
	StartedAt time.Time
	Start     time.Time
	End       time.Time
	Benchmark string
	Universe  int // number of tickers in the run
}

// MetricsRecord is the persisted summary of one strategy within a run.
type MetricsRecord struct {
	RunID       int64
	Strategy    string
	CAGR        float64
	Volatility  float64
	Sharpe      float64
	MaxDrawdown float64
	Periods     int
	Degraded    bool
}

// RunStore persists backtest runs and their per-strategy metrics so that
// successive runs can be compared.
type RunStore interface {
	// SaveRun inserts a run record and returns its assigned ID.
	SaveRun(ctx context.Context, run *RunRecord) (int64, error)

	// SaveMetrics inserts the per-strategy metrics of a run.
	SaveMetrics(ctx context.Context, metrics []MetricsRecord) error

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// ListMetrics returns the metrics stored for a run.
	ListMetrics(ctx context.Context, runID int64) ([]MetricsRecord, error)
}
