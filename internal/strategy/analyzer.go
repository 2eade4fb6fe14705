package strategy

import "fxdesk/internal/model"

// Analyzer thresholds.
const (
	// Middle-band slope window and per-step noise threshold (relative).
	trendWindow    = 5
	trendNoisePerStep = 0.001

	// Current band width vs trailing average: ratio bounds for the
	// volatility label.
	volatilityWindow = 10
	volatilityHigh   = 1.25
	volatilityLow    = 0.75
)

// Analyze derives a qualitative market summary from the most recent band
// point and the trailing signal window. Inputs must be the aligned outputs
// of the Bollinger calculator and Generate over the same series.
func Analyze(bands []model.BandPoint, signals []model.Signal) model.MarketAnalysis {
	analysis := model.MarketAnalysis{
		Trend:          "Sideways",
		Volatility:     "Low",
		Position:       "Middle",
		Recommendation: "Hold",
	}
	if len(bands) == 0 {
		return analysis
	}

	analysis.Trend = trend(bands)
	analysis.Volatility = volatility(bands)

	if cur, ok := Current(signals); ok {
		analysis.Position = positionLabel(cur.Type)
		analysis.Recommendation = recommendation(cur.Type)
	}
	return analysis
}

// trend compares the middle-band slope over the trailing window to a noise
// threshold proportional to the window length.
func trend(bands []model.BandPoint) string {
	last := bands[len(bands)-1]
	steps := trendWindow
	if steps > len(bands)-1 {
		steps = len(bands) - 1
	}
	if steps < 1 {
		return "Sideways"
	}
	first := bands[len(bands)-1-steps]
	if first.Middle == 0 {
		return "Sideways"
	}

	rel := (last.Middle - first.Middle) / first.Middle
	threshold := trendNoisePerStep * float64(steps)
	switch {
	case rel > threshold:
		return "Uptrend"
	case rel < -threshold:
		return "Downtrend"
	default:
		return "Sideways"
	}
}

// volatility compares the current band width to its trailing average.
func volatility(bands []model.BandPoint) string {
	last := bands[len(bands)-1]
	start := len(bands) - volatilityWindow
	if start < 0 {
		start = 0
	}
	window := bands[start:]

	var sum float64
	for _, bp := range window {
		sum += bp.Width()
	}
	avg := sum / float64(len(window))
	if avg <= 0 {
		return "Low"
	}

	ratio := last.Width() / avg
	switch {
	case ratio >= volatilityHigh:
		return "High"
	case ratio <= volatilityLow:
		return "Low"
	default:
		return "Medium"
	}
}

// positionLabel mirrors the signal classification buckets.
func positionLabel(t model.SignalType) string {
	switch t {
	case model.SignalStrongBuy:
		return "Below Lower Band"
	case model.SignalBuy:
		return "Lower Range"
	case model.SignalSell:
		return "Upper Range"
	case model.SignalStrongSell:
		return "Above Upper Band"
	default:
		return "Middle"
	}
}

// recommendation collapses STRONG_* into its base direction.
func recommendation(t model.SignalType) string {
	switch t.Direction() {
	case model.SignalBuy:
		return "Buy"
	case model.SignalSell:
		return "Sell"
	default:
		return "Hold"
	}
}
