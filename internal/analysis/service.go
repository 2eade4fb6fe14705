// Package analysis orchestrates the full signal pipeline: price series in,
// Bollinger Bands, signals, market analysis, backtests, and auto-trade
// recommendations out.
package analysis

import (
	"context"
	"fmt"
	"time"

	"fxdesk/internal/backtest"
	"fxdesk/internal/indicator"
	"fxdesk/internal/metrics"
	"fxdesk/internal/model"
	"fxdesk/internal/rates"
	"fxdesk/internal/strategy"
)

// DefaultDays is the history window when the caller doesn't request one.
const DefaultDays = 30

// Options tunes an analysis run. Zero values take the defaults.
type Options struct {
	Days      int
	Period    int
	NumStdDev float64
}

// BacktestOptions tunes a backtest run. Zero values take the defaults.
type BacktestOptions struct {
	Days                 int
	InitialBalance       float64
	Period               int
	NumStdDev            float64
	MinStrength          int
	PositionSizeFraction float64
}

// DefaultInitialBalance matches the demo account size.
const DefaultInitialBalance = 10000.0

// Result is a full analysis payload for one pair.
type Result struct {
	Pair          string               `json:"pair"`
	PeriodDays    int                  `json:"period_days"`
	Series        []model.PricePoint   `json:"historical_data"`
	Bands         []model.BandPoint    `json:"bollinger_bands"`
	Signals       []model.Signal       `json:"signals"`
	CurrentSignal *model.Signal        `json:"current_signal"`
	Analysis      model.MarketAnalysis `json:"analysis"`
	GeneratedAt   time.Time            `json:"generated_at"`
}

// Service runs the pipeline against a price provider. Stateless; safe for
// concurrent use.
type Service struct {
	provider rates.Provider
	metrics  *metrics.Metrics
}

// New builds a service. metrics may be nil.
func New(provider rates.Provider, m *metrics.Metrics) *Service {
	return &Service{provider: provider, metrics: m}
}

// Analyze fetches the pair's history and runs bands, signals, and the
// market read over it.
func (s *Service) Analyze(ctx context.Context, pair string, opts Options) (*Result, error) {
	start := time.Now()

	days := opts.Days
	if days <= 0 {
		days = DefaultDays
	}

	series, err := s.provider.GetPriceSeries(ctx, pair, rates.Span{Days: days})
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", pair, err)
	}

	bands, err := indicator.NewBollinger(opts.Period, opts.NumStdDev).Compute(series)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", pair, err)
	}

	signals := strategy.Generate(series, bands)

	res := &Result{
		Pair:        pair,
		PeriodDays:  days,
		Series:      series,
		Bands:       bands,
		Signals:     signals,
		Analysis:    strategy.Analyze(bands, signals),
		GeneratedAt: time.Now().UTC(),
	}
	if cur, ok := strategy.Current(signals); ok {
		res.CurrentSignal = &cur
	}

	if s.metrics != nil {
		s.metrics.AnalyzeDur.Observe(time.Since(start).Seconds())
	}
	return res, nil
}

// Backtest replays the signal stream through the trade simulator.
func (s *Service) Backtest(ctx context.Context, pair string, opts BacktestOptions) (*model.BacktestReport, error) {
	start := time.Now()

	days := opts.Days
	if days <= 0 {
		days = DefaultDays
	}
	balance := opts.InitialBalance
	if balance <= 0 {
		balance = DefaultInitialBalance
	}

	series, err := s.provider.GetPriceSeries(ctx, pair, rates.Span{Days: days})
	if err != nil {
		return nil, fmt.Errorf("backtest %s: %w", pair, err)
	}

	bands, err := indicator.NewBollinger(opts.Period, opts.NumStdDev).Compute(series)
	if err != nil {
		return nil, fmt.Errorf("backtest %s: %w", pair, err)
	}

	signals := strategy.Generate(series, bands)
	report := backtest.New(opts.MinStrength, opts.PositionSizeFraction).
		Run(pair, series, signals, balance, days)

	if s.metrics != nil {
		s.metrics.BacktestDur.Observe(time.Since(start).Seconds())
	}
	return report, nil
}

// EvaluateAutoTrade analyzes the pair and applies the risk policy to the
// current signal.
func (s *Service) EvaluateAutoTrade(ctx context.Context, pair string, policy model.RiskPolicy, opts Options) (*model.AutoTradeRecommendation, error) {
	res, err := s.Analyze(ctx, pair, opts)
	if err != nil {
		return nil, err
	}
	if res.CurrentSignal == nil {
		return nil, fmt.Errorf("evaluate %s: %w", pair, model.ErrInsufficientData)
	}
	rec := strategy.EvaluateAutoTrade(*res.CurrentSignal, policy)
	return &rec, nil
}
