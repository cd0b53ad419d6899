package strategy

import (
	"context"
	"fmt"

	"stratbt/internal/domain"
)

// Compile-time interface check.
var _ Strategy = (*BuyHold)(nil)

// BuyHold holds a single instrument at weight 1.0 for the whole run. It is
// the passive baseline the other strategies are compared against.
type BuyHold struct {
	symbol string
}

// NewBuyHold creates a BuyHold strategy on the given instrument, typically
// the benchmark index proxy.
func NewBuyHold(symbol string) *BuyHold {
	return &BuyHold{symbol: symbol}
}

// Name returns "buy-and-hold".
func (s *BuyHold) Name() string { return "buy-and-hold" }

// Compute maps the instrument's return series straight through: the weight
// is always 1.0 on the one instrument and the portfolio return per period
// equals the instrument's return. A period with a price gap is spent in cash
// with return 0.
func (s *BuyHold) Compute(_ context.Context, rt *domain.ReturnTable) (*domain.StrategyResult, error) {
	if _, ok := rt.Returns[s.symbol]; !ok {
		return nil, fmt.Errorf("buy-and-hold: symbol %s not in return table: %w",
			s.symbol, domain.ErrInsufficientData)
	}

	n := len(rt.Dates)
	res := &domain.StrategyResult{
		Strategy: s.Name(),
		Dates:    rt.Dates,
		Returns:  make([]float64, n),
		Weights:  make([]domain.WeightVector, n),
	}

	for i := 0; i < n; i++ {
		if v, ok := rt.Return(s.symbol, i); ok {
			res.Returns[i] = v
			res.Weights[i] = domain.WeightVector{s.symbol: 1.0}
		} else {
			res.Weights[i] = domain.WeightVector{}
		}
	}
	return res, nil
}
