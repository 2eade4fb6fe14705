package analysis

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"fxdesk/internal/model"
	"fxdesk/internal/rates"
)

func fixtureProvider(pair string, closes []float64) rates.Provider {
	base := time.Now().UTC().AddDate(0, 0, -len(closes))
	series := make([]model.PricePoint, len(closes))
	for i, c := range closes {
		series[i] = model.PricePoint{Timestamp: base.AddDate(0, 0, i), Close: c}
	}
	return rates.NewStatic(map[string][]model.PricePoint{pair: series})
}

func flatCloses(n int, v float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = v
	}
	return closes
}

func TestAnalyze_UnknownPair(t *testing.T) {
	svc := New(rates.NewStatic(map[string][]model.PricePoint{}), nil)
	_, err := svc.Analyze(context.Background(), "XXX/YYY", Options{})
	if !errors.Is(err, model.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestAnalyze_InsufficientHistory(t *testing.T) {
	svc := New(fixtureProvider("EUR/USD", flatCloses(10, 1.08)), nil)
	_, err := svc.Analyze(context.Background(), "EUR/USD", Options{Period: 20})
	if !errors.Is(err, model.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestAnalyze_FlatSeries(t *testing.T) {
	svc := New(fixtureProvider("EUR/USD", flatCloses(30, 1.08)), nil)
	res, err := svc.Analyze(context.Background(), "EUR/USD", Options{})
	if err != nil {
		t.Fatal(err)
	}

	// Flat prices: zero-width bands, every signal NEUTRAL, sideways market.
	for _, sig := range res.Signals {
		if sig.Type != model.SignalNeutral {
			t.Fatalf("signal %d = %s, want NEUTRAL", sig.Index, sig.Type)
		}
	}
	if res.CurrentSignal == nil || res.CurrentSignal.Type != model.SignalNeutral {
		t.Error("expected NEUTRAL current signal")
	}
	if res.Analysis.Trend != "Sideways" {
		t.Errorf("trend = %s, want Sideways", res.Analysis.Trend)
	}
	if res.Analysis.Recommendation != "Hold" {
		t.Errorf("recommendation = %s, want Hold", res.Analysis.Recommendation)
	}
}

func TestAnalyze_AlignmentAndBounds(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 1.0 + 0.01*float64(i%7)
	}
	svc := New(fixtureProvider("EUR/USD", closes), nil)
	res, err := svc.Analyze(context.Background(), "EUR/USD", Options{Period: 20})
	if err != nil {
		t.Fatal(err)
	}

	if want := len(res.Series) - 20 + 1; len(res.Bands) != want {
		t.Fatalf("bands = %d, want %d", len(res.Bands), want)
	}
	if len(res.Signals) != len(res.Bands) {
		t.Fatalf("signals = %d, bands = %d", len(res.Signals), len(res.Bands))
	}
	for _, sig := range res.Signals {
		if sig.Strength < 0 || sig.Strength > 100 {
			t.Errorf("signal %d strength %d out of range", sig.Index, sig.Strength)
		}
		if sig.Confidence < 30 || sig.Confidence > 95 {
			t.Errorf("signal %d confidence %d out of range", sig.Index, sig.Confidence)
		}
	}
	if res.CurrentSignal == nil || res.CurrentSignal.Index != res.Signals[len(res.Signals)-1].Index {
		t.Error("current signal should be the newest")
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	closes := make([]float64, 35)
	for i := range closes {
		closes[i] = 1.0 + 0.005*float64(i) + 0.01*float64(i%3)
	}
	svc := New(fixtureProvider("EUR/USD", closes), nil)

	a, err := svc.Analyze(context.Background(), "EUR/USD", Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.Analyze(context.Background(), "EUR/USD", Options{})
	if err != nil {
		t.Fatal(err)
	}

	if len(a.Signals) != len(b.Signals) {
		t.Fatal("signal counts differ between runs")
	}
	for i := range a.Signals {
		x, y := a.Signals[i], b.Signals[i]
		if x.Type != y.Type || x.Strength != y.Strength || x.Confidence != y.Confidence {
			t.Fatalf("signal %d differs between runs: %+v vs %+v", i, x, y)
		}
	}
}

func TestBacktest_ReportConsistency(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		// A few swings wide enough to produce strong band touches.
		closes[i] = 1.10 + 0.05*math.Sin(float64(i)/4)
	}
	svc := New(fixtureProvider("EUR/USD", closes), nil)

	report, err := svc.Backtest(context.Background(), "EUR/USD", BacktestOptions{
		Days: 60, InitialBalance: 10000,
	})
	if err != nil {
		t.Fatal(err)
	}

	if report.Pair != "EUR/USD" || report.InitialBalance != 10000 {
		t.Errorf("report header wrong: %+v", report)
	}
	if report.TotalTrades != len(report.Trades) {
		t.Errorf("TotalTrades %d != len(Trades) %d", report.TotalTrades, len(report.Trades))
	}
	wantReturn := (report.FinalBalance - report.InitialBalance) / report.InitialBalance * 100
	if math.Abs(report.TotalReturnPct-wantReturn) > 1e-9 {
		t.Errorf("return %g inconsistent with balances (want %g)", report.TotalReturnPct, wantReturn)
	}
	if report.MaxDrawdownPct < 0 {
		t.Errorf("drawdown %g negative", report.MaxDrawdownPct)
	}
}

func TestBacktest_BreakoutRoundTrip(t *testing.T) {
	// Flat series with one dip below the lower band and, after the dip has
	// left the 20-point window, one spike above the upper band. Every other
	// point sits inside the bands, so the full pipeline should produce
	// exactly one BUY at the dip and one winning SELL at the spike.
	closes := flatCloses(60, 1.10)
	closes[25] = 1.09
	closes[50] = 1.12

	svc := New(fixtureProvider("EUR/USD", closes), nil)
	report, err := svc.Backtest(context.Background(), "EUR/USD", BacktestOptions{
		Days: 90, InitialBalance: 10000,
	})
	if err != nil {
		t.Fatal(err)
	}

	if report.TotalTrades != 2 {
		t.Fatalf("trades = %d, want 2 (one BUY, one SELL): %+v", report.TotalTrades, report.Trades)
	}
	buy, sell := report.Trades[0], report.Trades[1]
	if buy.Type != model.TradeBuy || buy.Price != 1.09 {
		t.Errorf("first trade = %s @ %g, want BUY @ 1.09", buy.Type, buy.Price)
	}
	if sell.Type != model.TradeSell || sell.Price != 1.12 {
		t.Errorf("second trade = %s @ %g, want SELL @ 1.12", sell.Type, sell.Price)
	}
	if report.WinningTrades != 1 || report.WinRatePct != 100 {
		t.Errorf("wins = %d (%.0f%%), want 1 (100%%)", report.WinningTrades, report.WinRatePct)
	}
	if report.FinalBalance <= report.InitialBalance {
		t.Errorf("final balance %g should exceed initial %g after the profitable round trip",
			report.FinalBalance, report.InitialBalance)
	}
}

func TestBacktest_DefaultBalance(t *testing.T) {
	svc := New(fixtureProvider("EUR/USD", flatCloses(30, 1.08)), nil)
	report, err := svc.Backtest(context.Background(), "EUR/USD", BacktestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if report.InitialBalance != DefaultInitialBalance {
		t.Errorf("initial balance = %g, want %g", report.InitialBalance, DefaultInitialBalance)
	}
}

func TestEvaluateAutoTrade_NeutralBlocked(t *testing.T) {
	svc := New(fixtureProvider("EUR/USD", flatCloses(30, 1.08)), nil)
	rec, err := svc.EvaluateAutoTrade(context.Background(), "EUR/USD",
		model.RiskPolicy{MaxRisk: 0.02, MinConfidence: 0}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if rec.ShouldTrade {
		t.Error("NEUTRAL signal must not trade")
	}
	if rec.Reason == "" {
		t.Error("expected a reason")
	}
}

func TestEvaluateAutoTrade_UnknownPair(t *testing.T) {
	svc := New(rates.NewStatic(map[string][]model.PricePoint{}), nil)
	_, err := svc.EvaluateAutoTrade(context.Background(), "XXX/YYY",
		model.RiskPolicy{MinConfidence: 60}, Options{})
	if !errors.Is(err, model.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}
