package strategy

import (
	"fmt"

	"fxdesk/internal/model"
)

// EvaluateAutoTrade applies a risk policy to the current signal and
// recommends whether an automated trade should fire. Pure function:
// a NEUTRAL signal or a confidence below the policy minimum blocks the
// trade, and the reason names the condition that failed.
func EvaluateAutoTrade(sig model.Signal, policy model.RiskPolicy) model.AutoTradeRecommendation {
	rec := model.AutoTradeRecommendation{Signal: sig}

	if sig.Type == model.SignalNeutral {
		rec.Reason = "signal is NEUTRAL: no directional edge"
		return rec
	}
	if sig.Confidence < policy.MinConfidence {
		rec.Reason = fmt.Sprintf("confidence %d below policy minimum %d", sig.Confidence, policy.MinConfidence)
		return rec
	}

	rec.ShouldTrade = true
	rec.Reason = fmt.Sprintf("%s signal with confidence %d meets policy (min confidence %d, max risk %.2f)",
		sig.Type, sig.Confidence, policy.MinConfidence, policy.MaxRisk)
	return rec
}
