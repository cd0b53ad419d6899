// Package provider supplies adjusted daily price history for a universe of
// symbols, with an Alpaca market-data implementation and a read-through
// local cache.
package provider

import (
	"context"
	"time"

	"stratbt/internal/domain"
)

// PriceProvider fetches adjusted daily closing prices for the given symbols
// over [start, end]. A provider returns ErrDataUnavailable when it cannot
// deliver any usable data; individual symbols without history are reported
// as explicit gaps in the PriceTable, never as silent misalignment.
type PriceProvider interface {
	Fetch(ctx context.Context, symbols []string, start, end time.Time) (*domain.PriceTable, error)
}
