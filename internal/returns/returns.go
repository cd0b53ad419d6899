// Package returns converts daily price tables into month-end resampled
// prices and periodic return series.
package returns

import (
	"fmt"
	"math"
	"time"

	"stratbt/internal/domain"
)

// PeriodsPerYear is the number of monthly periods in a year, used to
// annualize monthly statistics.
const PeriodsPerYear = 12

// ResampleMonthEnd collapses a daily PriceTable to one row per calendar
// month, keeping each symbol's last observation in that month. The row is
// labelled with the calendar month-end date. A month with no observation for
// any symbol is skipped entirely; a symbol without an observation in an
// otherwise populated month keeps an explicit NaN gap.
func ResampleMonthEnd(daily *domain.PriceTable) *domain.PriceTable {
	type month struct {
		year int
		mon  time.Month
	}

	// Daily dates are ascending, so the last index seen per month wins.
	var order []month
	lastIdx := make(map[month]int)
	for i, d := range daily.Dates {
		m := month{d.Year(), d.Month()}
		if _, seen := lastIdx[m]; !seen {
			order = append(order, m)
		}
		lastIdx[m] = i
	}

	dates := make([]time.Time, len(order))
	for i, m := range order {
		// Day 0 of the next month is the last calendar day of this month.
		dates[i] = time.Date(m.year, m.mon+1, 0, 0, 0, 0, 0, time.UTC)
	}

	prices := make(map[string][]float64, len(daily.Symbols))
	for _, sym := range daily.Symbols {
		col := make([]float64, len(order))
		for i, m := range order {
			// Walk backwards within the month to the symbol's last
			// observation on or before the month boundary.
			v := math.NaN()
			for j := lastIdx[m]; j >= 0; j-- {
				d := daily.Dates[j]
				if d.Year() != m.year || d.Month() != m.mon {
					break
				}
				if p, ok := daily.Price(sym, j); ok {
					v = p
					break
				}
			}
			col[i] = v
		}
		prices[sym] = col
	}

	return &domain.PriceTable{Dates: dates, Symbols: daily.Symbols, Prices: prices}
}

// Compute derives percentage-change returns between consecutive periods of a
// resampled PriceTable. The output has one period fewer than the input; a
// return is NaN when either endpoint price is missing. Returns
// ErrInsufficientData when the table has fewer than two periods.
func Compute(monthly *domain.PriceTable) (*domain.ReturnTable, error) {
	if len(monthly.Dates) < 2 {
		return nil, fmt.Errorf("computing returns over %d periods: %w",
			len(monthly.Dates), domain.ErrInsufficientData)
	}

	n := len(monthly.Dates) - 1
	dates := make([]time.Time, n)
	copy(dates, monthly.Dates[1:])

	rets := make(map[string][]float64, len(monthly.Symbols))
	for _, sym := range monthly.Symbols {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			prev, okPrev := monthly.Price(sym, i)
			cur, okCur := monthly.Price(sym, i+1)
			if !okPrev || !okCur || prev == 0 {
				col[i] = math.NaN()
				continue
			}
			col[i] = cur/prev - 1
		}
		rets[sym] = col
	}

	return &domain.ReturnTable{Dates: dates, Symbols: monthly.Symbols, Returns: rets}, nil
}

// Series extracts a single symbol's return series from a ReturnTable,
// dropping undefined periods.
func Series(rt *domain.ReturnTable, symbol string) domain.ReturnSeries {
	var s domain.ReturnSeries
	col, ok := rt.Returns[symbol]
	if !ok {
		return s
	}
	for i, v := range col {
		if math.IsNaN(v) {
			continue
		}
		s.Dates = append(s.Dates, rt.Dates[i])
		s.Values = append(s.Values, v)
	}
	return s
}
