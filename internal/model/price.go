// Package model defines the value objects shared across the analytics
// pipeline: price points, Bollinger bands, signals, backtest results, and
// live rates. Everything here is immutable once produced — entities are
// created and consumed within a single analysis or backtest request.
package model

import (
	"encoding/json"
	"time"
)

// PricePoint is a single closing price for a currency pair.
// Series are ordered ascending by timestamp with no duplicate timestamps.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Close     float64   `json:"close"`
}

// Closes extracts the close values from a price series.
func Closes(series []PricePoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Close
	}
	return out
}

// Rate is a live quote for a currency pair.
type Rate struct {
	Pair      string    `json:"pair"` // "EUR/USD"
	Rate      float64   `json:"rate"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// JSON returns the JSON-encoded rate (ignoring errors for hot-path usage).
func (r *Rate) JSON() []byte {
	b, _ := json.Marshal(r)
	return b
}
