// Package perf computes summary performance metrics for strategy results:
// cumulative wealth, CAGR, annualized volatility, Sharpe ratio, and drawdown.
package perf

import (
	"fmt"
	"math"

	"stratbt/internal/domain"
)

// Analyze derives PerformanceMetrics from a strategy result. periodsPerYear
// annualizes the periodic statistics (12 for monthly series); riskFree is
// the annualized risk-free rate. The computation is a pure function of its
// input: identical input yields bit-identical output, and calling it twice
// never differs.
//
// Undefined metrics are reported, not raised: volatility needs at least two
// periods, and Sharpe needs a nonzero volatility; when either condition
// fails the value is NaN with its defined-flag cleared. Only a zero-length
// series is an error.
func Analyze(res *domain.StrategyResult, periodsPerYear int, riskFree float64) (*domain.PerformanceMetrics, error) {
	n := len(res.Returns)
	if n == 0 {
		return nil, fmt.Errorf("analyzing %s: %w", res.Strategy, domain.ErrDegenerateSeries)
	}

	m := &domain.PerformanceMetrics{
		Strategy: res.Strategy,
		Periods:  n,
	}

	// Cumulative wealth: running product of (1 + r), seeded at 1.0.
	wealth := make([]float64, n)
	cum := 1.0
	for i, r := range res.Returns {
		cum *= 1 + r
		wealth[i] = cum
	}
	m.Wealth = domain.Curve{Dates: res.Dates, Values: wealth}

	m.CAGR = math.Pow(cum, float64(periodsPerYear)/float64(n)) - 1

	m.Volatility, m.VolatilityDefined = annualizedVol(res.Returns, periodsPerYear)

	if m.VolatilityDefined && m.Volatility != 0 {
		m.Sharpe = (m.CAGR - riskFree) / m.Volatility
		m.SharpeDefined = true
	} else {
		m.Sharpe = math.NaN()
	}

	// Drawdown: decline from the running wealth peak. The peak starts at the
	// initial 1.0 stake, so a losing first period already counts as a loss.
	dd := make([]float64, n)
	peak := 1.0
	minDD := 0.0
	for i, w := range wealth {
		if w > peak {
			peak = w
		}
		dd[i] = w/peak - 1
		if dd[i] < minDD {
			minDD = dd[i]
		}
	}
	m.Drawdown = domain.Curve{Dates: res.Dates, Values: dd}
	m.MaxDrawdown = minDD

	return m, nil
}

// annualizedVol returns the sample standard deviation of the periodic
// returns scaled by the square root of periodsPerYear. It is undefined for
// fewer than two observations.
func annualizedVol(returns []float64, periodsPerYear int) (float64, bool) {
	n := len(returns)
	if n < 2 {
		return math.NaN(), false
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(n)

	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	variance := ss / float64(n-1)

	return math.Sqrt(variance) * math.Sqrt(float64(periodsPerYear)), true
}
