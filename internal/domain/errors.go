package domain

import "errors"

// Pipeline error taxonomy. ErrDataUnavailable aborts the whole run;
// ErrInsufficientData and ErrDegenerateSeries degrade only the strategy or
// metric they occur in.
var (
	// ErrDataUnavailable means the provider could not deliver any usable
	// price data for the requested universe.
	ErrDataUnavailable = errors.New("price data unavailable")

	// ErrInsufficientData means a computation needs more periods than the
	// input contains.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDegenerateSeries means a zero-length return series reached the
	// performance analyzer.
	ErrDegenerateSeries = errors.New("degenerate series")
)
