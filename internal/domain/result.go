package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StrategyRunResult is the flattened ledger row of one closed leg.
type StrategyRunResult struct {
	StrategyName    string          `json:"strategy_name"`
	TradeDate       time.Time       `json:"trade_date"`
	ExpiryDate      time.Time       `json:"expiry_date"`
	BreakoutTime    time.Time       `json:"breakout_time"`
	EntryTime       time.Time       `json:"entry_time"`
	ExitTime        time.Time       `json:"exit_time"`
	OptionType      OptionType      `json:"option_type"`
	Strike          float64         `json:"strike"`
	EntryPrice      float64         `json:"entry_price"`
	ExitPrice       float64         `json:"exit_price"`
	TransactionType TransactionType `json:"transaction_type"`
	LegType         LegType         `json:"leg_type"`
	EntryRound      int             `json:"entry_round"`
	ExitReason      ExitReason      `json:"exit_reason"`
	PnLAmount       decimal.Decimal `json:"pnl_amount"`
}

// NoTradeReason explains why a date produced no legs.
type NoTradeReason string

// No-trade reasons.
const (
	NoTradeNoData                NoTradeReason = "no_data"
	NoTradeNoBreakout            NoTradeReason = "no_breakout"
	NoTradeInsufficientLiquidity NoTradeReason = "insufficient_liquidity"
	NoTradeFailed                NoTradeReason = "failed"
	NoTradeHalted                NoTradeReason = "halted"
	NoTradeNonTradingDay         NoTradeReason = "non_trading_day"
)

// NoTradeDate is a date in a strategy's range with zero legs.
type NoTradeDate struct {
	StrategyName string        `json:"strategy_name"`
	TradeDate    time.Time     `json:"trade_date"`
	Reason       NoTradeReason `json:"reason"`
	Detail       string        `json:"detail,omitempty"`
}

// UnitFailure is a (strategy, trade_date) unit that was skipped or aborted.
type UnitFailure struct {
	StrategyName string    `json:"strategy_name"`
	TradeDate    time.Time `json:"trade_date"`
	Stage        string    `json:"stage"`
	Err          string    `json:"error"`
}

// Key returns the leg key the row was produced from.
func (r *StrategyRunResult) Key() LegKey {
	return LegKey{
		Strategy:   r.StrategyName,
		TradeDate:  r.TradeDate,
		ExpiryDate: r.ExpiryDate,
		Strike:     r.Strike,
		OptionType: r.OptionType,
		EntryRound: r.EntryRound,
		LegType:    r.LegType,
	}
}
