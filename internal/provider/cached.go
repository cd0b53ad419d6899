package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"stratbt/internal/domain"
	"stratbt/internal/store"
)

// Compile-time interface checks.
var _ PriceProvider = (*CachedProvider)(nil)
var _ BarFetcher = (*AlpacaProvider)(nil)

// BarFetcher is the raw-bar layer under a PriceProvider, used by the cache
// so fetched bars can be persisted with full fidelity.
type BarFetcher interface {
	FetchBars(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error)
}

// CachedProvider reads daily bars through a local BarStore, falling back to
// the wrapped fetcher for symbols without cached history and writing the
// fetched bars through for the next run.
type CachedProvider struct {
	inner BarFetcher
	bars  store.BarStore
	log   *slog.Logger
}

// NewCachedProvider wraps inner with a read-through cache on bars.
func NewCachedProvider(inner BarFetcher, bars store.BarStore) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		bars:  bars,
		log:   slog.Default().With("provider", "cached"),
	}
}

// Fetch serves each symbol from the cache and tops up the window after the
// symbol's last cached bar from the wrapped fetcher, so a stale cache never
// shortens the backtest range. Symbols with no cached bars at all are
// fetched over the full range in one call.
func (p *CachedProvider) Fetch(ctx context.Context, symbols []string, start, end time.Time) (*domain.PriceTable, error) {
	var (
		all     []domain.Bar
		missing []string
	)

	for _, sym := range symbols {
		got, err := p.bars.ReadBars(ctx, strings.ToUpper(sym), start, end)
		if err != nil {
			return nil, fmt.Errorf("reading cache for %s: %w", sym, err)
		}
		if len(got) == 0 {
			missing = append(missing, sym)
			continue
		}
		all = append(all, got...)

		fresh, err := p.topUp(ctx, sym, got[len(got)-1].Timestamp, end)
		if err != nil {
			return nil, err
		}
		all = append(all, fresh...)
	}

	p.log.Info("cache lookup", "symbols", len(symbols), "missing", len(missing))

	if len(missing) > 0 {
		fetched, err := p.inner.FetchBars(ctx, missing, start, end)
		if err != nil {
			// Partially cached universes cannot substitute for the provider:
			// the run either gets its whole universe or aborts.
			return nil, fmt.Errorf("fetching uncached symbols: %w", err)
		}
		if err := p.bars.WriteBars(ctx, fetched); err != nil {
			// A cache write failure degrades the next run, not this one.
			p.log.Warn("writing bars to cache failed", "error", err)
		}
		all = append(all, fetched...)
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("cache and provider both empty: %w", domain.ErrDataUnavailable)
	}
	return domain.NewPriceTable(all), nil
}

// topUp fetches the bars between a symbol's last cached bar and the
// requested end. An up-to-date symbol fetches nothing; an empty window
// (weekend, holiday tail) is not an error.
func (p *CachedProvider) topUp(ctx context.Context, sym string, lastCached, end time.Time) ([]domain.Bar, error) {
	fetchStart := lastCached.AddDate(0, 0, 1)
	if fetchStart.After(end) {
		return nil, nil
	}

	fresh, err := p.inner.FetchBars(ctx, []string{sym}, fetchStart, end)
	if err != nil {
		return nil, fmt.Errorf("topping up cache for %s: %w", sym, err)
	}
	if len(fresh) == 0 {
		return nil, nil
	}
	if err := p.bars.WriteBars(ctx, fresh); err != nil {
		p.log.Warn("writing bars to cache failed", "symbol", sym, "error", err)
	}
	p.log.Info("topped up stale cache", "symbol", sym,
		"from", fetchStart.Format("2006-01-02"), "bars", len(fresh))
	return fresh, nil
}
