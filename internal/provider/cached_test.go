package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"stratbt/internal/domain"
	"stratbt/internal/store"
)

type fakeFetcher struct {
	bars  []domain.Bar
	err   error
	calls []fakeCall
}

type fakeCall struct {
	symbols []string
	start   time.Time
}

func (f *fakeFetcher) FetchBars(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	f.calls = append(f.calls, fakeCall{symbols: symbols, start: start})
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Bar
	for _, b := range f.bars {
		if b.Timestamp.Before(start) || b.Timestamp.After(end) {
			continue
		}
		for _, s := range symbols {
			if b.Symbol == s {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

func bar(sym string, day int, close float64) domain.Bar {
	return domain.Bar{
		Symbol:    sym,
		Timestamp: time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Close:     close,
		Volume:    1,
	}
}

func window() (time.Time, time.Time) {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
}

func TestCachedProviderFetchesOnlyMissing(t *testing.T) {
	start, end := window()
	cache := store.NewParquetStore(t.TempDir())
	// Coverage reaches the requested end, so AAA needs no top-up.
	if err := cache.WriteBars(context.Background(), []domain.Bar{bar("AAA", 31, 10)}); err != nil {
		t.Fatalf("seeding cache: %v", err)
	}

	fetcher := &fakeFetcher{bars: []domain.Bar{bar("BBB", 2, 20)}}
	table, err := NewCachedProvider(fetcher, cache).Fetch(context.Background(), []string{"AAA", "BBB"}, start, end)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(fetcher.calls) != 1 {
		t.Fatalf("got %d fetch calls, want 1", len(fetcher.calls))
	}
	if len(fetcher.calls[0].symbols) != 1 || fetcher.calls[0].symbols[0] != "BBB" {
		t.Errorf("fetched symbols = %v, want [BBB]", fetcher.calls[0].symbols)
	}
	if !table.HasSymbol("AAA") || !table.HasSymbol("BBB") {
		t.Errorf("table symbols = %v, want both AAA and BBB", table.Symbols)
	}
}

func TestCachedProviderWritesThrough(t *testing.T) {
	start, end := window()
	cache := store.NewParquetStore(t.TempDir())
	fetcher := &fakeFetcher{bars: []domain.Bar{bar("AAA", 2, 10)}}

	if _, err := NewCachedProvider(fetcher, cache).Fetch(context.Background(), []string{"AAA"}, start, end); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	got, err := cache.ReadBars(context.Background(), "AAA", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("cache holds %d bars after fetch, want 1", len(got))
	}
}

func TestCachedProviderFullyCachedSkipsFetcher(t *testing.T) {
	start, end := window()
	cache := store.NewParquetStore(t.TempDir())
	if err := cache.WriteBars(context.Background(), []domain.Bar{bar("AAA", 31, 10)}); err != nil {
		t.Fatalf("seeding cache: %v", err)
	}

	fetcher := &fakeFetcher{err: errors.New("must not be called")}
	if _, err := NewCachedProvider(fetcher, cache).Fetch(context.Background(), []string{"AAA"}, start, end); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("fetcher called %d times for a fully cached universe", len(fetcher.calls))
	}
}

func TestCachedProviderTopsUpStaleCache(t *testing.T) {
	// A January-only cache must not shorten a January-through-June request:
	// the remainder of the window comes from the fetcher and is written back.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	cache := store.NewParquetStore(t.TempDir())
	if err := cache.WriteBars(context.Background(), []domain.Bar{
		bar("AAA", 15, 10), bar("AAA", 31, 11),
	}); err != nil {
		t.Fatalf("seeding cache: %v", err)
	}

	var fresh []domain.Bar
	for m := time.Month(2); m <= 6; m++ {
		fresh = append(fresh, domain.Bar{
			Symbol:    "AAA",
			Timestamp: time.Date(2024, m, 15, 0, 0, 0, 0, time.UTC),
			Close:     float64(10 + m),
			Volume:    1,
		})
	}
	fetcher := &fakeFetcher{bars: fresh}

	table, err := NewCachedProvider(fetcher, cache).Fetch(context.Background(), []string{"AAA"}, start, end)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(fetcher.calls) != 1 {
		t.Fatalf("got %d fetch calls, want 1 top-up", len(fetcher.calls))
	}
	if want := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC); !fetcher.calls[0].start.Equal(want) {
		t.Errorf("top-up start = %v, want %v (day after last cached bar)", fetcher.calls[0].start, want)
	}
	if len(table.Dates) != 7 {
		t.Errorf("table has %d dates, want 7 covering the full request", len(table.Dates))
	}

	// The topped-up bars are written through for the next run.
	cached, err := cache.ReadBars(context.Background(), "AAA", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(cached) != 7 {
		t.Errorf("cache holds %d bars after top-up, want 7", len(cached))
	}
}

func TestCachedProviderUpToDateCacheSkipsTopUp(t *testing.T) {
	// Last cached bar lands on the requested end exactly.
	start, end := window()
	cache := store.NewParquetStore(t.TempDir())
	if err := cache.WriteBars(context.Background(), []domain.Bar{
		bar("AAA", 2, 10), bar("AAA", 31, 11),
	}); err != nil {
		t.Fatalf("seeding cache: %v", err)
	}

	fetcher := &fakeFetcher{err: errors.New("must not be called")}
	table, err := NewCachedProvider(fetcher, cache).Fetch(context.Background(), []string{"AAA"}, start, end)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("fetcher called %d times for an up-to-date cache", len(fetcher.calls))
	}
	if len(table.Dates) != 2 {
		t.Errorf("table has %d dates, want 2", len(table.Dates))
	}
}

func TestCachedProviderTopUpErrorFatal(t *testing.T) {
	start, end := window()
	cache := store.NewParquetStore(t.TempDir())
	if err := cache.WriteBars(context.Background(), []domain.Bar{bar("AAA", 2, 10)}); err != nil {
		t.Fatalf("seeding cache: %v", err)
	}

	fetcher := &fakeFetcher{err: errors.New("api down")}
	if _, err := NewCachedProvider(fetcher, cache).Fetch(context.Background(), []string{"AAA"}, start, end); err == nil {
		t.Fatal("a failed top-up must abort the run, not truncate it to the cached window")
	}
}

func TestCachedProviderEmptyEverywhere(t *testing.T) {
	start, end := window()
	cache := store.NewParquetStore(t.TempDir())
	fetcher := &fakeFetcher{}

	_, err := NewCachedProvider(fetcher, cache).Fetch(context.Background(), []string{"AAA"}, start, end)
	if !errors.Is(err, domain.ErrDataUnavailable) {
		t.Errorf("got %v, want ErrDataUnavailable", err)
	}
}

func TestCachedProviderFetchErrorFatal(t *testing.T) {
	start, end := window()
	cache := store.NewParquetStore(t.TempDir())
	fetcher := &fakeFetcher{err: errors.New("api down")}

	if _, err := NewCachedProvider(fetcher, cache).Fetch(context.Background(), []string{"AAA"}, start, end); err == nil {
		t.Fatal("expected error when uncached symbols cannot be fetched")
	}
}
