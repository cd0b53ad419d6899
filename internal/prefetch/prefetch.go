// Package prefetch downloads daily bars for the configured universe into the
// local bar cache, so that subsequent backtests run without hitting the
// market-data API.
package prefetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stratbt/internal/provider"
	"stratbt/internal/store"
)

// Prefetcher fills the bar cache for a symbol list over a date range.
// Symbols already covered by the cache are only topped up from their last
// stored bar onward.
type Prefetcher struct {
	fetcher    provider.BarFetcher
	bars       store.BarStore
	symbols    []string
	start, end time.Time
	log        *slog.Logger
}

// New creates a Prefetcher.
func New(fetcher provider.BarFetcher, bars store.BarStore, symbols []string, start, end time.Time) *Prefetcher {
	return &Prefetcher{
		fetcher: fetcher,
		bars:    bars,
		symbols: symbols,
		start:   start,
		end:     end,
		log:     slog.Default().With("component", "prefetch"),
	}
}

// Name returns the prefetcher identifier.
func (p *Prefetcher) Name() string { return "prefetch-daily" }

// Run fetches and stores bars symbol by symbol. A symbol that fails is
// logged and skipped; Run fails only when every symbol fails.
func (p *Prefetcher) Run(ctx context.Context) error {
	var failed int
	for _, sym := range p.symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.prefetchSymbol(ctx, sym); err != nil {
			p.log.Error("prefetch failed", "symbol", sym, "err", err)
			failed++
		}
	}
	if failed == len(p.symbols) && len(p.symbols) > 0 {
		return fmt.Errorf("all %d symbols failed to prefetch", failed)
	}
	p.log.Info("prefetch complete", "symbols", len(p.symbols), "failed", failed)
	return nil
}

// prefetchSymbol tops up the cache for one symbol, fetching only the window
// after the last stored bar.
func (p *Prefetcher) prefetchSymbol(ctx context.Context, sym string) error {
	fetchStart := p.start

	cached, err := p.bars.ReadBars(ctx, sym, p.start, p.end)
	if err == nil && len(cached) > 0 {
		last := cached[len(cached)-1].Timestamp
		fetchStart = last.AddDate(0, 0, 1)
		if !fetchStart.Before(p.end) {
			p.log.Debug("cache already current", "symbol", sym)
			return nil
		}
	}

	fresh, err := p.fetcher.FetchBars(ctx, []string{sym}, fetchStart, p.end)
	if err != nil {
		return err
	}
	if len(fresh) == 0 {
		p.log.Warn("no bars returned", "symbol", sym,
			"start", fetchStart.Format("2006-01-02"), "end", p.end.Format("2006-01-02"))
		return nil
	}
	if err := p.bars.WriteBars(ctx, fresh); err != nil {
		return fmt.Errorf("writing bars for %s: %w", sym, err)
	}
	p.log.Info("cached bars", "symbol", sym, "bars", len(fresh))
	return nil
}
