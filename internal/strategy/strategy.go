// Package strategy defines the Strategy interface for portfolio-construction
// policies and provides a Registry for managing multiple implementations.
package strategy

import (
	"context"
	"sort"

	"stratbt/internal/domain"
)

// Strategy is the interface that all portfolio strategies implement. A
// strategy is a pure function of the return table: given identical input it
// produces an identical StrategyResult, with no randomness and no shared
// mutable state.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Compute walks the monthly return table, producing the weight vector
	// applied at each rebalance date and the realized portfolio return per
	// period. The result shares the table's date axis.
	Compute(ctx context.Context, rt *domain.ReturnTable) (*domain.StrategyResult, error)
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
	order      []string
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name(). The
// registration order is preserved for reporting.
func (r *Registry) Register(s Strategy) {
	if _, exists := r.strategies[s.Name()]; !exists {
		r.order = append(r.order, s.Name())
	}
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns all registered strategy names in registration order.
func (r *Registry) List() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ListSorted returns all registered strategy names sorted ascending.
func (r *Registry) ListSorted() []string {
	names := r.List()
	sort.Strings(names)
	return names
}

// meanReturn averages the defined returns of the given symbols at period i.
// Symbols without a defined return must not be passed in.
func meanReturn(rt *domain.ReturnTable, symbols []string, i int) float64 {
	if len(symbols) == 0 {
		return 0
	}
	var sum float64
	for _, s := range symbols {
		v, _ := rt.Return(s, i)
		sum += v
	}
	return sum / float64(len(symbols))
}

// equalWeights builds a 1/N weight vector over the given symbols. An empty
// symbol list yields an empty vector (fully in cash).
func equalWeights(symbols []string) domain.WeightVector {
	w := make(domain.WeightVector, len(symbols))
	if len(symbols) == 0 {
		return w
	}
	share := 1.0 / float64(len(symbols))
	for _, s := range symbols {
		w[s] = share
	}
	return w
}
