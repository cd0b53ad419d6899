// Package domain defines the immutable value types that flow through the
// backtest pipeline: daily bars, aligned price tables, return series,
// portfolio weights, strategy results, and performance metrics.
package domain

import (
	"math"
	"sort"
	"time"
)

// Bar is a single daily OHLCV bar for one symbol, as delivered by the
// market-data provider and cached on disk.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// PriceTable is a date-aligned table of adjusted closing prices. Dates are
// ascending and unique; every symbol has exactly len(Dates) entries, with
// NaN marking an explicit gap. There is no silent misalignment: a missing
// observation is always visible as a NaN at its date slot.
type PriceTable struct {
	Dates   []time.Time
	Symbols []string // sorted ascending
	Prices  map[string][]float64
}

// NewPriceTable builds an aligned PriceTable from a set of daily bars. The
// date axis is the sorted union of all bar timestamps (truncated to UTC
// dates); symbols absent on a given date get a NaN slot.
func NewPriceTable(bars []Bar) *PriceTable {
	dateSet := make(map[time.Time]struct{})
	symSet := make(map[string]struct{})
	for i := range bars {
		dateSet[dateOnly(bars[i].Timestamp)] = struct{}{}
		symSet[bars[i].Symbol] = struct{}{}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	symbols := make([]string, 0, len(symSet))
	for s := range symSet {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	idx := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		idx[d] = i
	}

	prices := make(map[string][]float64, len(symbols))
	for _, s := range symbols {
		col := make([]float64, len(dates))
		for i := range col {
			col[i] = math.NaN()
		}
		prices[s] = col
	}
	for i := range bars {
		prices[bars[i].Symbol][idx[dateOnly(bars[i].Timestamp)]] = bars[i].Close
	}

	return &PriceTable{Dates: dates, Symbols: symbols, Prices: prices}
}

// Price returns the price for symbol at date index i, and whether an
// observation exists there.
func (t *PriceTable) Price(symbol string, i int) (float64, bool) {
	col, ok := t.Prices[symbol]
	if !ok || i < 0 || i >= len(col) {
		return 0, false
	}
	if math.IsNaN(col[i]) {
		return 0, false
	}
	return col[i], true
}

// HasSymbol reports whether the table contains at least one observation for
// the given symbol.
func (t *PriceTable) HasSymbol(symbol string) bool {
	col, ok := t.Prices[symbol]
	if !ok {
		return false
	}
	for _, v := range col {
		if !math.IsNaN(v) {
			return true
		}
	}
	return false
}

// dateOnly truncates a timestamp to its UTC calendar date.
func dateOnly(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ReturnTable holds periodic returns for multiple symbols on a shared date
// axis. Dates are the period-end dates; each symbol column has exactly
// len(Dates) entries with NaN marking periods where the return could not be
// computed (a price gap at either endpoint).
type ReturnTable struct {
	Dates   []time.Time
	Symbols []string
	Returns map[string][]float64
}

// Return returns the value for symbol at period i, and whether it is defined.
func (t *ReturnTable) Return(symbol string, i int) (float64, bool) {
	col, ok := t.Returns[symbol]
	if !ok || i < 0 || i >= len(col) {
		return 0, false
	}
	if math.IsNaN(col[i]) {
		return 0, false
	}
	return col[i], true
}

// Eligible returns the sorted set of symbols with a defined return at period
// i. Every strategy consumes this one set so that gap handling never
// diverges between strategies.
func (t *ReturnTable) Eligible(i int) []string {
	var out []string
	for _, s := range t.Symbols {
		if _, ok := t.Return(s, i); ok {
			out = append(out, s)
		}
	}
	return out
}

// ReturnSeries is an ordered single-asset return series.
type ReturnSeries struct {
	Dates  []time.Time
	Values []float64
}

// WeightVector maps symbols to non-negative portfolio weights. Weights sum
// to 1.0 within floating tolerance, or the vector is empty (fully in cash).
type WeightVector map[string]float64

// Sum returns the total weight.
func (w WeightVector) Sum() float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}

// StrategyResult is the realized return series of one strategy plus the
// weight vector applied at each rebalance date. Immutable after creation.
type StrategyResult struct {
	Strategy string
	Dates    []time.Time
	Returns  []float64
	Weights  []WeightVector
}

// Curve is an ordered (date, value) series, used for wealth multipliers and
// drawdown fractions.
type Curve struct {
	Dates  []time.Time
	Values []float64
}

// PerformanceMetrics summarizes a StrategyResult. Volatility and Sharpe may
// be undefined (NaN with the corresponding flag false) when the series is
// too short or has zero variance; that is a reported state, not an error.
type PerformanceMetrics struct {
	Strategy    string
	CAGR        float64
	Volatility  float64
	Sharpe      float64
	MaxDrawdown float64
	Periods     int

	VolatilityDefined bool
	SharpeDefined     bool

	Wealth   Curve
	Drawdown Curve
}

// Degraded reports whether any metric is undefined and the report should
// annotate this strategy rather than silently omitting values.
func (m *PerformanceMetrics) Degraded() bool {
	return !m.VolatilityDefined || !m.SharpeDefined
}
