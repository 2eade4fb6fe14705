package model

import "errors"

// Core failure taxonomy. Both are surfaced to callers unchanged — the core
// never retries. Callers map them to transport-level failures (the HTTP
// layer uses 404 and 422 respectively).
var (
	// ErrDataUnavailable means the currency pair is entirely unknown to the
	// price source.
	ErrDataUnavailable = errors.New("price data unavailable for pair")

	// ErrInsufficientData means the price series is shorter than the
	// required look-back window.
	ErrInsufficientData = errors.New("insufficient price history")
)
