package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioPnLRecord is an intraday or settled PnL snapshot for one strategy/date.
type PortfolioPnLRecord struct {
	Strategy    string
	TradeDate   time.Time
	Timestamp   time.Time
	MTMPnL      decimal.Decimal // realized + unrealized
	RealizedPnL decimal.Decimal
	Settled     bool // true for the single end-of-day record
}

// ThresholdKind names the portfolio limit that was crossed.
type ThresholdKind string

// Threshold kinds.
const (
	ThresholdProfitTarget ThresholdKind = "profit_target"
	ThresholdStopLoss     ThresholdKind = "stop_loss"
)

// PortfolioThresholdEvent records the first crossing of a portfolio limit.
type PortfolioThresholdEvent struct {
	Strategy  string
	TradeDate time.Time
	Time      time.Time
	Kind      ThresholdKind
	PnL       decimal.Decimal
	Threshold decimal.Decimal
}
