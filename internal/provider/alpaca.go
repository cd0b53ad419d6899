package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"stratbt/internal/domain"
	"stratbt/internal/util"
)

// Compile-time interface check.
var _ PriceProvider = (*AlpacaProvider)(nil)

// AlpacaProvider fetches split- and dividend-adjusted daily bars from the
// Alpaca market-data API.
type AlpacaProvider struct {
	client    *marketdata.Client
	batchSize int
	feed      marketdata.Feed
	limiter   *util.RateLimiter
	log       *slog.Logger
}

// NewAlpacaProvider creates an AlpacaProvider with the given credentials.
// dataURL and feed may be empty to use the SDK defaults.
func NewAlpacaProvider(apiKey, apiSecret, dataURL, feed string) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	f := marketdata.SIP
	if feed != "" {
		f = marketdata.Feed(feed)
	}

	return &AlpacaProvider{
		client:    marketdata.NewClient(opts),
		batchSize: 200,
		feed:      f,
		// Bursting a handful of batch calls covers the whole default
		// universe in one go; the sustained rate guards bigger runs.
		limiter:   util.NewRateLimiter(200, 5),
		log:       slog.Default().With("provider", "alpaca"),
	}
}

// FetchBars downloads adjusted daily bars for all symbols in batches.
func (p *AlpacaProvider) FetchBars(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	var bars []domain.Bar
	for i := 0; i < len(symbols); i += p.batchSize {
		j := i + p.batchSize
		if j > len(symbols) {
			j = len(symbols)
		}
		batch, err := p.fetchBatch(ctx, symbols[i:j], start, end)
		if err != nil {
			return nil, fmt.Errorf("fetching daily bars: %w", err)
		}
		bars = append(bars, batch...)
	}
	return bars, nil
}

// Fetch downloads adjusted daily bars for all symbols and assembles them
// into a date-aligned PriceTable. Symbols with no history at all are dropped
// from the table with a diagnostic log entry; if nothing is retrievable for
// any symbol the whole fetch fails with ErrDataUnavailable.
func (p *AlpacaProvider) Fetch(ctx context.Context, symbols []string, start, end time.Time) (*domain.PriceTable, error) {
	return fetchTable(ctx, p, p.log, symbols, start, end)
}

// fetchTable builds the PriceTable from any BarFetcher: fetch, fail with
// ErrDataUnavailable when nothing at all came back, and log each requested
// symbol that ended up without history.
func fetchTable(ctx context.Context, fetcher BarFetcher, log *slog.Logger, symbols []string, start, end time.Time) (*domain.PriceTable, error) {
	bars, err := fetcher.FetchBars(ctx, symbols, start, end)
	if err != nil {
		return nil, err
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars for any of %d symbols: %w",
			len(symbols), domain.ErrDataUnavailable)
	}

	table := domain.NewPriceTable(bars)
	for _, sym := range symbols {
		if !table.HasSymbol(strings.ToUpper(sym)) {
			log.Warn("symbol has no price history in range, excluded from run",
				"symbol", sym, "start", start.Format("2006-01-02"), "end", end.Format("2006-01-02"))
		}
	}
	return table, nil
}

// fetchBatch fetches daily bars for one batch of symbols in a single API
// call, with all corporate-action adjustments applied. Calls are rate
// limited and retried with backoff on transient failures.
func (p *AlpacaProvider) fetchBatch(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var multiBars map[string][]marketdata.Bar
	err := util.Retry(ctx, 3, 500*time.Millisecond, func() error {
		var err error
		multiBars, err = p.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
			TimeFrame:  marketdata.OneDay,
			Start:      start,
			End:        end,
			Adjustment: marketdata.All,
			Feed:       p.feed,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol:     strings.ToUpper(symbol),
				Timestamp:  ab.Timestamp,
				Open:       ab.Open,
				High:       ab.High,
				Low:        ab.Low,
				Close:      ab.Close,
				Volume:     int64(ab.Volume),
				TradeCount: int64(ab.TradeCount),
				VWAP:       ab.VWAP,
			})
		}
	}
	return bars, nil
}
