package model

import "time"

// TradeType is the side of a backtest trade.
type TradeType string

const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
)

// BacktestTrade is one entry in the append-only trade log produced during a
// simulation run. Trades strictly alternate BUY, SELL, BUY… because the
// simulated position is long-only with a single open lot.
type BacktestTrade struct {
	Type         TradeType `json:"type"`
	Price        float64   `json:"price"`
	Quantity     float64   `json:"quantity"`
	Amount       float64   `json:"amount"`
	BalanceAfter float64   `json:"balance_after"`
	Date         time.Time `json:"date"`
	Signal       Signal    `json:"triggering_signal"`
}

// BacktestReport summarizes one simulation run. Immutable once produced.
type BacktestReport struct {
	Pair           string          `json:"currency_pair"`
	PeriodDays     int             `json:"period_days"`
	InitialBalance float64         `json:"initial_balance"`
	FinalBalance   float64         `json:"final_balance"`
	TotalReturnPct float64         `json:"total_return_pct"`
	Trades         []BacktestTrade `json:"trades"`
	TotalTrades    int             `json:"total_trades"`
	WinningTrades  int             `json:"winning_trades"`
	WinRatePct     float64         `json:"win_rate_pct"`
	MaxDrawdownPct float64         `json:"max_drawdown_pct"`
}
