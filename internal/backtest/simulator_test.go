package backtest

import (
	"math"
	"testing"
	"time"

	"fxdesk/internal/model"
)

func priceSeries(closes []float64) []model.PricePoint {
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	series := make([]model.PricePoint, len(closes))
	for i, c := range closes {
		series[i] = model.PricePoint{Timestamp: base.AddDate(0, 0, i), Close: c}
	}
	return series
}

func sig(index int, t model.SignalType, price float64, strength int) model.Signal {
	return model.Signal{Index: index, Type: t, Price: price, Strength: strength, Confidence: 50}
}

func TestRun_NoSignalsYieldsZeroTradeReport(t *testing.T) {
	sim := New(70, 0.1)
	report := sim.Run("EUR/USD", priceSeries([]float64{1.0, 1.0, 1.0}), nil, 10000, 30)
	if report.TotalTrades != 0 {
		t.Fatalf("expected 0 trades, got %d", report.TotalTrades)
	}
	if math.Abs(report.FinalBalance-10000) > 1e-9 {
		t.Errorf("final balance = %g, want 10000", report.FinalBalance)
	}
	if report.TotalReturnPct != 0 {
		t.Errorf("return = %g, want 0", report.TotalReturnPct)
	}
	if report.WinRatePct != 0 {
		t.Errorf("win rate = %g, want 0 with no SELL trades", report.WinRatePct)
	}
}

func TestRun_WeakSignalsIgnored(t *testing.T) {
	series := priceSeries([]float64{1.0, 1.1, 1.2})
	signals := []model.Signal{
		sig(0, model.SignalStrongBuy, 1.0, 70), // not > MinStrength
		sig(1, model.SignalStrongSell, 1.1, 60),
	}
	report := New(70, 0.1).Run("EUR/USD", series, signals, 10000, 3)
	if report.TotalTrades != 0 {
		t.Fatalf("weak signals produced %d trades", report.TotalTrades)
	}
}

func TestRun_BuyThenSellWin(t *testing.T) {
	series := priceSeries([]float64{1.00, 1.05, 1.20})
	signals := []model.Signal{
		sig(0, model.SignalStrongBuy, 1.00, 90),
		sig(1, model.SignalNeutral, 1.05, 10),
		sig(2, model.SignalStrongSell, 1.20, 90),
	}
	report := New(70, 0.1).Run("EUR/USD", series, signals, 10000, 3)

	if report.TotalTrades != 2 {
		t.Fatalf("expected 2 trades, got %d", report.TotalTrades)
	}
	if report.Trades[0].Type != model.TradeBuy || report.Trades[1].Type != model.TradeSell {
		t.Fatalf("trade order wrong: %+v", report.Trades)
	}
	if report.WinningTrades != 1 {
		t.Errorf("winning trades = %d, want 1", report.WinningTrades)
	}
	if math.Abs(report.WinRatePct-100) > 1e-9 {
		t.Errorf("win rate = %g, want 100", report.WinRatePct)
	}

	// BUY commits 1000 at 1.00 → 1000 units; SELL at 1.20 returns 1200.
	wantFinal := 10000.0 - 1000 + 1200
	if math.Abs(report.FinalBalance-wantFinal) > 1e-6 {
		t.Errorf("final balance = %g, want %g", report.FinalBalance, wantFinal)
	}
	wantReturn := (wantFinal - 10000) / 10000 * 100
	if math.Abs(report.TotalReturnPct-wantReturn) > 1e-6 {
		t.Errorf("return = %g, want %g", report.TotalReturnPct, wantReturn)
	}
}

func TestRun_LosingTradeNotCountedAsWin(t *testing.T) {
	series := priceSeries([]float64{1.20, 1.00})
	signals := []model.Signal{
		sig(0, model.SignalStrongBuy, 1.20, 90),
		sig(1, model.SignalStrongSell, 1.00, 90),
	}
	report := New(70, 0.1).Run("EUR/USD", series, signals, 10000, 2)
	if report.TotalTrades != 2 {
		t.Fatalf("expected 2 trades, got %d", report.TotalTrades)
	}
	if report.WinningTrades != 0 {
		t.Errorf("winning trades = %d, want 0", report.WinningTrades)
	}
	if report.WinRatePct != 0 {
		t.Errorf("win rate = %g, want 0", report.WinRatePct)
	}
}

func TestRun_TradesStrictlyAlternate(t *testing.T) {
	// Repeated strong buys while long, and strong sells while flat, must all
	// be ignored.
	series := priceSeries([]float64{1.0, 1.0, 1.0, 1.2, 1.2, 0.9, 0.9})
	signals := []model.Signal{
		sig(0, model.SignalStrongSell, 1.0, 90), // sell while flat: ignored
		sig(1, model.SignalStrongBuy, 1.0, 90),  // opens
		sig(2, model.SignalStrongBuy, 1.0, 90),  // already long: ignored
		sig(3, model.SignalStrongSell, 1.2, 90), // closes
		sig(4, model.SignalStrongSell, 1.2, 90), // flat again: ignored
		sig(5, model.SignalBuy, 0.9, 95),        // opens
		sig(6, model.SignalSell, 0.9, 95),       // closes
	}
	report := New(70, 0.1).Run("EUR/USD", series, signals, 10000, 7)

	if report.TotalTrades != 4 {
		t.Fatalf("expected 4 trades, got %d", report.TotalTrades)
	}
	for i, tr := range report.Trades {
		want := model.TradeBuy
		if i%2 == 1 {
			want = model.TradeSell
		}
		if tr.Type != want {
			t.Errorf("trade %d = %s, want %s", i, tr.Type, want)
		}
	}
}

func TestRun_OpenPositionMarkedToLastPrice(t *testing.T) {
	series := priceSeries([]float64{1.00, 1.50})
	signals := []model.Signal{
		sig(0, model.SignalStrongBuy, 1.00, 90),
		sig(1, model.SignalNeutral, 1.50, 0),
	}
	report := New(70, 0.1).Run("EUR/USD", series, signals, 10000, 2)

	if report.TotalTrades != 1 {
		t.Fatalf("expected 1 trade, got %d", report.TotalTrades)
	}
	// 1000 committed at 1.00 → 1000 units worth 1500 at the last close.
	wantFinal := 9000.0 + 1500.0
	if math.Abs(report.FinalBalance-wantFinal) > 1e-6 {
		t.Errorf("final balance = %g, want %g", report.FinalBalance, wantFinal)
	}
	// No SELL trades → win rate defined as 0.
	if report.WinRatePct != 0 {
		t.Errorf("win rate = %g, want 0", report.WinRatePct)
	}
}

func TestRun_DrawdownTracksCashDip(t *testing.T) {
	series := priceSeries([]float64{1.00, 1.20})
	signals := []model.Signal{
		sig(0, model.SignalStrongBuy, 1.00, 90),
		sig(1, model.SignalStrongSell, 1.20, 90),
	}
	report := New(70, 0.5).Run("EUR/USD", series, signals, 10000, 2)

	// After the BUY, cash dips to 5000 against a 10000 peak → 50% drawdown.
	if math.Abs(report.MaxDrawdownPct-50) > 1e-6 {
		t.Errorf("max drawdown = %g, want 50", report.MaxDrawdownPct)
	}
}

func TestRun_DrawdownNonDecreasing(t *testing.T) {
	series := priceSeries([]float64{1.0, 1.1, 1.0, 1.1, 1.0, 1.1})
	signals := []model.Signal{
		sig(0, model.SignalStrongBuy, 1.0, 90),
		sig(1, model.SignalStrongSell, 1.1, 90),
		sig(2, model.SignalStrongBuy, 1.0, 90),
		sig(3, model.SignalStrongSell, 1.1, 90),
		sig(4, model.SignalStrongBuy, 1.0, 90),
		sig(5, model.SignalStrongSell, 1.1, 90),
	}
	sim := New(70, 0.1)

	// Replaying progressively longer prefixes must never reduce drawdown.
	prev := 0.0
	for i := 1; i <= len(signals); i++ {
		report := sim.Run("EUR/USD", series, signals[:i], 10000, 6)
		if report.MaxDrawdownPct < prev-1e-9 {
			t.Fatalf("drawdown decreased: %g after %d signals, was %g", report.MaxDrawdownPct, i, prev)
		}
		prev = report.MaxDrawdownPct
	}
}

func TestNew_Defaults(t *testing.T) {
	sim := New(0, 0)
	if sim.MinStrength != DefaultMinStrength {
		t.Errorf("min strength = %d, want %d", sim.MinStrength, DefaultMinStrength)
	}
	if sim.PositionSizeFraction != DefaultPositionSizeFraction {
		t.Errorf("fraction = %g, want %g", sim.PositionSizeFraction, DefaultPositionSizeFraction)
	}
}
