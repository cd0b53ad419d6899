package strategy

import (
	"context"

	"stratbt/internal/domain"
)

// Compile-time interface check.
var _ Strategy = (*EqualWeight)(nil)

// EqualWeight rebalances to 1/N across all tickers with an available return
// each month. Tickers missing data in a month are excluded from N for that
// month only. Rebalancing is instantaneous and frictionless, so the
// portfolio return per period is the arithmetic mean of the included
// tickers' returns.
type EqualWeight struct{}

// NewEqualWeight creates an EqualWeight strategy.
func NewEqualWeight() *EqualWeight { return &EqualWeight{} }

// Name returns "equal-weight".
func (s *EqualWeight) Name() string { return "equal-weight" }

// Compute produces the 1/N result over the shared eligibility set per period.
func (s *EqualWeight) Compute(_ context.Context, rt *domain.ReturnTable) (*domain.StrategyResult, error) {
	n := len(rt.Dates)
	res := &domain.StrategyResult{
		Strategy: s.Name(),
		Dates:    rt.Dates,
		Returns:  make([]float64, n),
		Weights:  make([]domain.WeightVector, n),
	}

	for i := 0; i < n; i++ {
		eligible := rt.Eligible(i)
		res.Weights[i] = equalWeights(eligible)
		res.Returns[i] = meanReturn(rt, eligible, i)
	}
	return res, nil
}
