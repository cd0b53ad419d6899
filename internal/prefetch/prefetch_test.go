package prefetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"stratbt/internal/domain"
	"stratbt/internal/store"
)

// fakeFetcher records requested windows and serves canned bars per symbol.
type fakeFetcher struct {
	bars  map[string][]domain.Bar
	fails map[string]bool
	calls []fetchCall
}

type fetchCall struct {
	symbol string
	start  time.Time
}

func (f *fakeFetcher) FetchBars(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	sym := symbols[0]
	f.calls = append(f.calls, fetchCall{symbol: sym, start: start})
	if f.fails[sym] {
		return nil, errors.New("api down for symbol")
	}
	var out []domain.Bar
	for _, b := range f.bars[sym] {
		if !b.Timestamp.Before(start) && !b.Timestamp.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func dailyBars(sym string, days ...int) []domain.Bar {
	var bars []domain.Bar
	for _, d := range days {
		bars = append(bars, domain.Bar{Symbol: sym, Timestamp: day(d), Close: 100, Volume: 1})
	}
	return bars
}

func TestRunFillsEmptyCache(t *testing.T) {
	fetcher := &fakeFetcher{bars: map[string][]domain.Bar{
		"AAA": dailyBars("AAA", 2, 3, 4),
		"BBB": dailyBars("BBB", 2, 3),
	}}
	cache := store.NewParquetStore(t.TempDir())

	p := New(fetcher, cache, []string{"AAA", "BBB"}, day(1), day(5))
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := cache.ReadBars(context.Background(), "AAA", day(1), day(5))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("cached %d bars for AAA, want 3", len(got))
	}
}

func TestRunTopsUpFromLastCachedBar(t *testing.T) {
	fetcher := &fakeFetcher{bars: map[string][]domain.Bar{
		"AAA": dailyBars("AAA", 2, 3, 4, 5),
	}}
	cache := store.NewParquetStore(t.TempDir())
	if err := cache.WriteBars(context.Background(), dailyBars("AAA", 2, 3)); err != nil {
		t.Fatalf("seeding cache: %v", err)
	}

	p := New(fetcher, cache, []string{"AAA"}, day(1), day(6))
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(fetcher.calls) != 1 {
		t.Fatalf("got %d fetch calls, want 1", len(fetcher.calls))
	}
	if want := day(4); !fetcher.calls[0].start.Equal(want) {
		t.Errorf("fetch start = %v, want %v", fetcher.calls[0].start, want)
	}

	got, err := cache.ReadBars(context.Background(), "AAA", day(1), day(6))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("cached %d bars, want 4", len(got))
	}
}

func TestRunSymbolFailureIsolated(t *testing.T) {
	fetcher := &fakeFetcher{
		bars:  map[string][]domain.Bar{"BBB": dailyBars("BBB", 2)},
		fails: map[string]bool{"AAA": true},
	}
	cache := store.NewParquetStore(t.TempDir())

	p := New(fetcher, cache, []string{"AAA", "BBB"}, day(1), day(5))
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("one failing symbol should not fail the run: %v", err)
	}

	got, _ := cache.ReadBars(context.Background(), "BBB", day(1), day(5))
	if len(got) != 1 {
		t.Errorf("cached %d bars for BBB, want 1", len(got))
	}
}

func TestRunAllSymbolsFailing(t *testing.T) {
	fetcher := &fakeFetcher{fails: map[string]bool{"AAA": true, "BBB": true}}
	cache := store.NewParquetStore(t.TempDir())

	p := New(fetcher, cache, []string{"AAA", "BBB"}, day(1), day(5))
	if err := p.Run(context.Background()); err == nil {
		t.Fatal("Run should fail when every symbol fails")
	}
}
