package model

// SignalType classifies a price's position relative to its Bollinger bands.
type SignalType string

const (
	SignalStrongBuy  SignalType = "STRONG_BUY"
	SignalBuy        SignalType = "BUY"
	SignalNeutral    SignalType = "NEUTRAL"
	SignalSell       SignalType = "SELL"
	SignalStrongSell SignalType = "STRONG_SELL"
)

// Direction collapses STRONG_* types into their base direction.
func (s SignalType) Direction() SignalType {
	switch s {
	case SignalStrongBuy:
		return SignalBuy
	case SignalStrongSell:
		return SignalSell
	}
	return s
}

// Signal is a directional trading signal derived from one band point.
// Strength and Confidence are always clamped to [0,100].
type Signal struct {
	Index      int        `json:"index"`
	Type       SignalType `json:"signal"`
	Price      float64    `json:"price"`
	Strength   int        `json:"strength"`
	Confidence int        `json:"confidence"`
	Reason     string     `json:"reason"`
}

// RiskPolicy is a caller-supplied gate for automated trading.
type RiskPolicy struct {
	MaxRisk       float64 `json:"max_risk"`
	MinConfidence int     `json:"min_confidence"` // 0..100
}

// AutoTradeRecommendation is the outcome of evaluating the current signal
// against a RiskPolicy.
type AutoTradeRecommendation struct {
	ShouldTrade bool   `json:"should_trade"`
	Reason      string `json:"reason"`
	Signal      Signal `json:"evaluated_signal"`
}

// MarketAnalysis is a qualitative summary of the latest market state.
type MarketAnalysis struct {
	Trend          string `json:"trend"`      // Uptrend, Downtrend, Sideways
	Volatility     string `json:"volatility"` // Low, Medium, High
	Position       string `json:"position"`   // band-relative label
	Recommendation string `json:"recommendation"` // Buy, Sell, Hold
}
