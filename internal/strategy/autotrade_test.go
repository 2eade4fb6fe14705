package strategy

import (
	"strings"
	"testing"

	"fxdesk/internal/model"
)

func TestEvaluateAutoTrade_NeutralNeverTrades(t *testing.T) {
	policy := model.RiskPolicy{MaxRisk: 0.5, MinConfidence: 0}
	for _, conf := range []int{0, 50, 100} {
		sig := model.Signal{Type: model.SignalNeutral, Confidence: conf}
		rec := EvaluateAutoTrade(sig, policy)
		if rec.ShouldTrade {
			t.Errorf("confidence %d: NEUTRAL signal recommended a trade", conf)
		}
		if !strings.Contains(rec.Reason, "NEUTRAL") {
			t.Errorf("confidence %d: reason %q should name the NEUTRAL condition", conf, rec.Reason)
		}
	}
}

func TestEvaluateAutoTrade_LowConfidenceBlocked(t *testing.T) {
	sig := model.Signal{Type: model.SignalBuy, Confidence: 40}
	rec := EvaluateAutoTrade(sig, model.RiskPolicy{MinConfidence: 70})
	if rec.ShouldTrade {
		t.Fatal("trade recommended despite confidence below minimum")
	}
	if !strings.Contains(rec.Reason, "confidence") {
		t.Errorf("reason %q should name the confidence condition", rec.Reason)
	}
}

func TestEvaluateAutoTrade_Approves(t *testing.T) {
	sig := model.Signal{Type: model.SignalStrongSell, Confidence: 80}
	rec := EvaluateAutoTrade(sig, model.RiskPolicy{MaxRisk: 0.1, MinConfidence: 70})
	if !rec.ShouldTrade {
		t.Fatalf("expected trade recommendation, got reason %q", rec.Reason)
	}
	if rec.Signal.Type != model.SignalStrongSell {
		t.Errorf("evaluated signal not echoed: %+v", rec.Signal)
	}
}

func TestEvaluateAutoTrade_ConfidenceAtMinimumPasses(t *testing.T) {
	sig := model.Signal{Type: model.SignalBuy, Confidence: 70}
	rec := EvaluateAutoTrade(sig, model.RiskPolicy{MinConfidence: 70})
	if !rec.ShouldTrade {
		t.Fatalf("confidence equal to minimum should pass, got reason %q", rec.Reason)
	}
}
