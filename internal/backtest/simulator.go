// Package backtest replays generated signals over a historical price series
// to measure how the Bollinger strategy would have performed.
//
// The simulated book is long-only with at most one open position: a BUY
// opens, the next qualifying SELL closes, and everything else is ignored.
// All simulation state is local to a single Run call.
package backtest

import (
	"math"

	"fxdesk/internal/model"
)

// Default policy thresholds.
const (
	DefaultMinStrength          = 70
	DefaultPositionSizeFraction = 0.1
)

// Simulator holds the replay policy. Zero values fall back to defaults
// in New.
type Simulator struct {
	// MinStrength is the exclusive strength threshold a signal must exceed
	// to act.
	MinStrength int

	// PositionSizeFraction is the fraction of the current balance committed
	// per BUY.
	PositionSizeFraction float64
}

// New creates a Simulator, substituting defaults for out-of-range policy
// values.
func New(minStrength int, positionSizeFraction float64) *Simulator {
	if minStrength <= 0 {
		minStrength = DefaultMinStrength
	}
	if positionSizeFraction <= 0 || positionSizeFraction > 1 {
		positionSizeFraction = DefaultPositionSizeFraction
	}
	return &Simulator{
		MinStrength:          minStrength,
		PositionSizeFraction: positionSizeFraction,
	}
}

// Run replays the signal sequence chronologically against the price series
// and produces a report. Signals must be index-aligned to the series
// (Signal.Index addresses series). A series too short to produce signals
// yields a zero-trade report, not an error.
func (s *Simulator) Run(pair string, series []model.PricePoint, signals []model.Signal, initialBalance float64, periodDays int) *model.BacktestReport {
	report := &model.BacktestReport{
		Pair:           pair,
		PeriodDays:     periodDays,
		InitialBalance: initialBalance,
		FinalBalance:   initialBalance,
		Trades:         []model.BacktestTrade{},
	}

	balance := initialBalance
	position := 0.0 // units held; never negative
	peak := initialBalance
	maxDrawdown := 0.0

	for _, sig := range signals {
		price := sig.Price
		date := series[sig.Index].Timestamp

		switch sig.Type.Direction() {
		case model.SignalBuy:
			if sig.Strength > s.MinStrength && position == 0 && price > 0 {
				amount := balance * s.PositionSizeFraction
				qty := amount / price
				position += qty
				balance -= amount
				report.Trades = append(report.Trades, model.BacktestTrade{
					Type:         model.TradeBuy,
					Price:        price,
					Quantity:     qty,
					Amount:       amount,
					BalanceAfter: balance,
					Date:         date,
					Signal:       sig,
				})
			}
		case model.SignalSell:
			if sig.Strength > s.MinStrength && position > 0 {
				amount := position * price
				balance += amount
				report.Trades = append(report.Trades, model.BacktestTrade{
					Type:         model.TradeSell,
					Price:        price,
					Quantity:     position,
					Amount:       amount,
					BalanceAfter: balance,
					Date:         date,
					Signal:       sig,
				})
				position = 0
			}
		}

		if balance > peak {
			peak = balance
		}
		if peak > 0 {
			dd := (peak - balance) / peak * 100
			maxDrawdown = math.Max(maxDrawdown, dd)
		}
	}

	// Mark any open position to the last observed price; it is not
	// force-closed.
	finalValue := balance
	if position > 0 && len(series) > 0 {
		finalValue += position * series[len(series)-1].Close
	}

	report.FinalBalance = finalValue
	if initialBalance != 0 {
		report.TotalReturnPct = (finalValue - initialBalance) / initialBalance * 100
	}
	report.TotalTrades = len(report.Trades)
	report.WinningTrades, report.WinRatePct = winRate(report.Trades)
	report.MaxDrawdownPct = maxDrawdown
	return report
}

// winRate counts SELL trades whose price exceeds the price of the
// chronologically preceding BUY. Pairing by adjacency is unambiguous under
// the long-only single-lot invariant.
func winRate(trades []model.BacktestTrade) (wins int, pct float64) {
	sells := 0
	lastBuyPrice := 0.0
	for _, tr := range trades {
		switch tr.Type {
		case model.TradeBuy:
			lastBuyPrice = tr.Price
		case model.TradeSell:
			sells++
			if tr.Price > lastBuyPrice {
				wins++
			}
		}
	}
	if sells == 0 {
		return 0, 0
	}
	return wins, float64(wins) / float64(sells) * 100
}
