// Package pipeline coordinates one backtest run end to end: fetch prices,
// derive monthly returns, evaluate every strategy, compute performance
// metrics, persist the run, and render the report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"stratbt/internal/domain"
	"stratbt/internal/perf"
	"stratbt/internal/provider"
	"stratbt/internal/report"
	"stratbt/internal/returns"
	"stratbt/internal/store"
	"stratbt/internal/strategy"
)

// Params are the inputs of one backtest run.
type Params struct {
	Tickers   []string
	Benchmark string
	Start     time.Time
	End       time.Time
	RiskFree  float64 // annual, e.g. 0.0425
	TopN      int     // momentum selection size
}

func (p *Params) validate() error {
	if len(p.Tickers) == 0 {
		return errors.New("no tickers configured")
	}
	if p.Benchmark == "" {
		return errors.New("no benchmark configured")
	}
	if !p.End.After(p.Start) {
		return fmt.Errorf("end %s not after start %s",
			p.End.Format("2006-01-02"), p.Start.Format("2006-01-02"))
	}
	if p.TopN < 1 {
		return fmt.Errorf("top_n must be positive, got %d", p.TopN)
	}
	return nil
}

// Result is the outcome of a completed run.
type Result struct {
	Report []byte
	Data   *report.Data
	RunID  int64 // 0 when no run store is configured
}

// Pipeline wires the provider, strategies, run store, and renderer together.
// The run store may be nil, in which case the run is not persisted.
type Pipeline struct {
	provider provider.PriceProvider
	runs     store.RunStore
	renderer report.Renderer
	log      *slog.Logger
}

// New creates a Pipeline with the given dependencies.
func New(p provider.PriceProvider, runs store.RunStore, r report.Renderer) *Pipeline {
	return &Pipeline{
		provider: p,
		runs:     runs,
		renderer: r,
		log:      slog.Default().With("component", "pipeline"),
	}
}

// Run executes the full backtest. A single strategy failing is recorded in
// the report and does not abort the other strategies; only data acquisition
// and return derivation are fatal.
func (p *Pipeline) Run(ctx context.Context, params Params) (*Result, error) {
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest params: %w", err)
	}

	symbols := append([]string(nil), params.Tickers...)
	if !contains(symbols, params.Benchmark) {
		symbols = append(symbols, params.Benchmark)
	}

	p.log.Info("fetching daily bars",
		"symbols", len(symbols),
		"start", params.Start.Format("2006-01-02"),
		"end", params.End.Format("2006-01-02"))
	daily, err := p.provider.Fetch(ctx, symbols, params.Start, params.End)
	if err != nil {
		return nil, fmt.Errorf("fetching prices: %w", err)
	}

	monthly := returns.ResampleMonthEnd(daily)
	full, err := returns.Compute(monthly)
	if err != nil {
		return nil, fmt.Errorf("computing monthly returns: %w", err)
	}
	p.log.Info("return table built", "periods", len(full.Dates), "symbols", len(full.Symbols))

	universe := subset(full, params.Tickers)
	bench := subset(full, []string{params.Benchmark})

	registry := strategy.NewRegistry()
	registry.Register(strategy.NewMomentum(params.TopN))
	registry.Register(strategy.NewEqualWeight())
	registry.Register(strategy.NewBuyHold(params.Benchmark))

	tables := map[string]*domain.ReturnTable{
		"buy-and-hold": bench,
	}

	var (
		reports       []report.StrategyReport
		metricRecords []store.MetricsRecord
	)
	for _, name := range registry.List() {
		strat, _ := registry.Get(name)
		rt, ok := tables[name]
		if !ok {
			rt = universe
		}

		sr := report.StrategyReport{Name: name, Label: labelFor(name, params)}
		m, err := p.evaluate(ctx, strat, rt, params.RiskFree)
		if err != nil {
			p.log.Error("strategy failed", "strategy", name, "err", err)
			sr.Err = err.Error()
		} else {
			sr.Metrics = m
			metricRecords = append(metricRecords, store.MetricsRecord{
				Strategy:    name,
				CAGR:        m.CAGR,
				Volatility:  m.Volatility,
				Sharpe:      m.Sharpe,
				MaxDrawdown: m.MaxDrawdown,
				Periods:     m.Periods,
				Degraded:    m.Degraded(),
			})
		}
		reports = append(reports, sr)
	}

	runID := p.persist(ctx, params, metricRecords)

	benchSeries := returns.Series(bench, params.Benchmark)
	data := &report.Data{
		GeneratedAt:      time.Now(),
		Start:            params.Start,
		End:              lastDate(full.Dates, params.End),
		Benchmark:        params.Benchmark,
		Tickers:          params.Tickers,
		RiskFree:         params.RiskFree,
		Strategies:       reports,
		BenchmarkReturns: benchSeries.Values,
	}

	html, err := p.renderer.Render(data)
	if err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}
	return &Result{Report: html, Data: data, RunID: runID}, nil
}

// evaluate runs one strategy and computes its metrics.
func (p *Pipeline) evaluate(
	ctx context.Context,
	strat strategy.Strategy,
	rt *domain.ReturnTable,
	riskFree float64,
) (*domain.PerformanceMetrics, error) {
	res, err := strat.Compute(ctx, rt)
	if err != nil {
		return nil, err
	}
	m, err := perf.Analyze(res, returns.PeriodsPerYear, riskFree)
	if err != nil {
		return nil, err
	}
	p.log.Info("strategy evaluated",
		"strategy", strat.Name(),
		"periods", m.Periods,
		"cagr", m.CAGR,
		"max_drawdown", m.MaxDrawdown)
	return m, nil
}

// persist saves the run and its metrics. Persistence problems are logged
// and do not fail the backtest; the report is the primary output.
func (p *Pipeline) persist(ctx context.Context, params Params, metrics []store.MetricsRecord) int64 {
	if p.runs == nil {
		return 0
	}
	runID, err := p.runs.SaveRun(ctx, &store.RunRecord{
		StartedAt: time.Now(),
		Start:     params.Start,
		End:       params.End,
		Benchmark: params.Benchmark,
		Universe:  len(params.Tickers),
	})
	if err != nil {
		p.log.Error("saving run record", "err", err)
		return 0
	}
	for i := range metrics {
		metrics[i].RunID = runID
	}
	if err := p.runs.SaveMetrics(ctx, metrics); err != nil {
		p.log.Error("saving run metrics", "run_id", runID, "err", err)
	}
	return runID
}

// subset restricts a return table to the given symbols, keeping the shared
// date axis. Symbols absent from the table are dropped.
func subset(rt *domain.ReturnTable, symbols []string) *domain.ReturnTable {
	out := &domain.ReturnTable{
		Dates:   rt.Dates,
		Returns: make(map[string][]float64, len(symbols)),
	}
	for _, s := range symbols {
		col, ok := rt.Returns[s]
		if !ok {
			continue
		}
		out.Symbols = append(out.Symbols, s)
		out.Returns[s] = col
	}
	sort.Strings(out.Symbols)
	return out
}

func labelFor(name string, params Params) string {
	switch name {
	case "buy-and-hold":
		return fmt.Sprintf("Benchmark (%s Buy & Hold)", params.Benchmark)
	case "equal-weight":
		return "Equal-Weighted"
	case "momentum-12-1":
		return fmt.Sprintf("Momentum 12-1 (Top %d)", params.TopN)
	default:
		return name
	}
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}

// lastDate returns the final period date when the table is non-empty,
// otherwise the requested end. The report shows the realized range.
func lastDate(dates []time.Time, fallback time.Time) time.Time {
	if len(dates) == 0 {
		return fallback
	}
	return dates[len(dates)-1]
}
