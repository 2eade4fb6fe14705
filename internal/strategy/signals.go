// Package strategy derives trading signals and market analysis from
// Bollinger bands, and evaluates automated-trade policies against them.
//
// All functions are pure transforms over their inputs; no state is carried
// between calls.
package strategy

import (
	"fmt"
	"math"

	"fxdesk/internal/model"
)

// Classification thresholds on the normalized band position
// (0 = lower band, 1 = upper band).
const (
	strongBuyMax  = 0.0  // position <= 0 → STRONG_BUY
	buyMax        = 0.25 // position < 0.25 → BUY
	sellMin       = 0.75 // position > 0.75 → SELL
	strongSellMin = 1.0  // position >= 1 → STRONG_SELL
)

// Confidence scoring bounds (band-width stability heuristic).
const (
	confidenceFloor   = 30
	confidenceCeiling = 95
	confidenceDefault = 50

	// Number of trailing band widths inspected for stability.
	confidenceWindow = 10

	// Scale applied to the width coefficient of variation. Narrow, stable
	// bands (cv → 0) approach the ceiling; erratic widths fall toward the
	// floor.
	confidenceCVScale = 130
)

// Generate emits one Signal per band point, index-aligned to the price
// series via Signal.Index. The band sequence must be the output of the
// Bollinger calculator over the same series.
func Generate(series []model.PricePoint, bands []model.BandPoint) []model.Signal {
	signals := make([]model.Signal, 0, len(bands))
	for j, bp := range bands {
		price := series[bp.Index].Close
		pos := bandPosition(price, bp)

		sig := model.Signal{
			Index:      bp.Index,
			Type:       classify(pos),
			Price:      price,
			Strength:   strength(pos),
			Confidence: confidence(bands, j),
		}
		sig.Reason = reason(sig.Type, pos, price, bp)
		signals = append(signals, sig)
	}
	return signals
}

// Current returns the signal at the last available index.
// ok is false when no signals exist.
func Current(signals []model.Signal) (model.Signal, bool) {
	if len(signals) == 0 {
		return model.Signal{}, false
	}
	return signals[len(signals)-1], true
}

// bandPosition normalizes price within [lower, upper]. A zero-width band
// (flat price run) maps to the neutral midpoint so downstream math never
// divides by zero.
func bandPosition(price float64, bp model.BandPoint) float64 {
	width := bp.Upper - bp.Lower
	if width <= 0 {
		return 0.5
	}
	return (price - bp.Lower) / width
}

// classify buckets a normalized position. Boundaries belong to the more
// extreme bucket: 0 is STRONG_BUY, 0.25 and 0.75 are NEUTRAL, 1 is
// STRONG_SELL.
func classify(pos float64) model.SignalType {
	switch {
	case pos <= strongBuyMax:
		return model.SignalStrongBuy
	case pos < buyMax:
		return model.SignalBuy
	case pos <= sellMin:
		return model.SignalNeutral
	case pos < strongSellMin:
		return model.SignalSell
	default:
		return model.SignalStrongSell
	}
}

// strength scales distance from the neutral midpoint to [0,100].
func strength(pos float64) int {
	s := int(math.Round(math.Abs(pos-0.5) * 200))
	return clamp(s, 0, 100)
}

// confidence scores band-width stability over a trailing window ending at
// band index j. Consistent widths (low coefficient of variation) score
// high; with no usable history the score defaults to 50.
func confidence(bands []model.BandPoint, j int) int {
	start := j - confidenceWindow + 1
	if start < 0 {
		start = 0
	}
	widths := make([]float64, 0, confidenceWindow)
	for _, bp := range bands[start : j+1] {
		widths = append(widths, bp.RelWidth())
	}
	if len(widths) < 2 {
		return confidenceDefault
	}

	var sum float64
	for _, w := range widths {
		sum += w
	}
	mean := sum / float64(len(widths))
	if mean <= 0 {
		return confidenceDefault
	}

	var ss float64
	for _, w := range widths {
		ss += (w - mean) * (w - mean)
	}
	cv := math.Sqrt(ss/float64(len(widths))) / mean

	return clamp(int(math.Round(confidenceCeiling-confidenceCVScale*cv)), confidenceFloor, confidenceCeiling)
}

func reason(t model.SignalType, pos, price float64, bp model.BandPoint) string {
	switch t {
	case model.SignalStrongBuy:
		return fmt.Sprintf("price %.5f at or below lower band %.5f", price, bp.Lower)
	case model.SignalBuy:
		return fmt.Sprintf("price %.5f in lower band range (position %.2f, lower %.5f)", price, pos, bp.Lower)
	case model.SignalSell:
		return fmt.Sprintf("price %.5f in upper band range (position %.2f, upper %.5f)", price, pos, bp.Upper)
	case model.SignalStrongSell:
		return fmt.Sprintf("price %.5f at or above upper band %.5f", price, bp.Upper)
	default:
		return fmt.Sprintf("price %.5f near middle band %.5f (position %.2f)", price, bp.Middle, pos)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
