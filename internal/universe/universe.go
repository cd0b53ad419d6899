// Package universe defines the default backtest universe: a fixed set of
// US large-cap tickers and the benchmark they are measured against.
package universe

// Benchmark is the default benchmark symbol. The S&P 500 index itself has no
// tradable symbol on the data feed, so its ETF proxy stands in for it.
const Benchmark = "SPY"

// DefaultStartDate is the first day of price history requested by default.
const DefaultStartDate = "2015-01-01"

// DefaultTickers is the built-in 19-name large-cap universe.
func DefaultTickers() []string {
	return []string{
		"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA",
		"JPM", "V", "JNJ", "WMT", "PG", "UNH", "HD", "MA",
		"DIS", "BAC", "XOM", "KO",
	}
}
