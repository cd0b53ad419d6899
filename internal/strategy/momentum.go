package strategy

import (
	"context"
	"sort"

	"stratbt/internal/domain"
)

// Compile-time interface check.
var _ Strategy = (*Momentum)(nil)

// Momentum implements the 12-1 cross-sectional momentum strategy: each month
// it ranks tickers by their cumulative return over the 12 months ending one
// month before the rebalance date (the most recent month is skipped to avoid
// short-term reversal), selects the top N, and equal-weights them.
type Momentum struct {
	lookback int // signal window in months
	skip     int // most recent months excluded from the window
	topN     int
}

// NewMomentum creates the canonical 12-1 momentum strategy selecting the
// top n tickers.
func NewMomentum(n int) *Momentum {
	return &Momentum{lookback: 12, skip: 1, topN: n}
}

// Name returns "momentum-12-1".
func (s *Momentum) Name() string { return "momentum-12-1" }

// warmup is the number of leading return periods without a computable
// signal: the lookback window plus the skipped month.
func (s *Momentum) warmup() int { return s.lookback + s.skip }

// signal compounds the ticker's returns over the window [i-lookback-skip,
// i-skip-1]. It is undefined when the window extends before the series start
// or any month in it has a gap.
func (s *Momentum) signal(rt *domain.ReturnTable, sym string, i int) (float64, bool) {
	start := i - s.warmup()
	if start < 0 {
		return 0, false
	}
	cum := 1.0
	for j := start; j < i-s.skip; j++ {
		v, ok := rt.Return(sym, j)
		if !ok {
			return 0, false
		}
		cum *= 1 + v
	}
	return cum - 1, true
}

// Compute walks the table period by period. Until enough history exists the
// portfolio holds no position and earns 0. A ticker is selectable only when
// its signal is defined and its realized return for the period is available;
// fewer than topN eligible tickers means the portfolio holds however many
// there are, and zero eligible means an empty weight vector with return 0.
func (s *Momentum) Compute(_ context.Context, rt *domain.ReturnTable) (*domain.StrategyResult, error) {
	n := len(rt.Dates)
	res := &domain.StrategyResult{
		Strategy: s.Name(),
		Dates:    rt.Dates,
		Returns:  make([]float64, n),
		Weights:  make([]domain.WeightVector, n),
	}

	for i := 0; i < n; i++ {
		selected := s.selectTop(rt, i)
		res.Weights[i] = equalWeights(selected)
		res.Returns[i] = meanReturn(rt, selected, i)
	}
	return res, nil
}

// selectTop returns the topN tickers by signal at period i, ties broken by
// ascending ticker symbol for deterministic, reproducible selection.
func (s *Momentum) selectTop(rt *domain.ReturnTable, i int) []string {
	type scored struct {
		sym string
		sig float64
	}

	var candidates []scored
	// Eligible is sorted ascending by symbol; a stable sort on the signal
	// therefore keeps the tie-break order.
	for _, sym := range rt.Eligible(i) {
		sig, ok := s.signal(rt, sym, i)
		if !ok {
			continue
		}
		candidates = append(candidates, scored{sym: sym, sig: sig})
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].sig > candidates[b].sig
	})

	limit := s.topN
	if len(candidates) < limit {
		limit = len(candidates)
	}
	out := make([]string, limit)
	for j := 0; j < limit; j++ {
		out[j] = candidates[j].sym
	}
	return out
}
