package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/metrics"
)

// Ranking types.
const (
	RankTop    = "Top"
	RankBottom = "Bottom"
)

// Report represents the backtest analysis report.
type Report struct {
	// Metadata
	GeneratedAt   time.Time
	StrategyCount int
	TotalLegs     int
	TotalPnL      decimal.Decimal
	DataVersion   string // short hash of the result rows, set by the writer

	// Daily Analysis (sorted by strategy_name, trade_date)
	DailyAnalysis []*metrics.DailyStat

	// Strategy Summary (sorted by total_pnl DESC)
	Summaries []*metrics.StrategySummary

	// Top 3 strategies with a reason line
	Highlights []HighlightRow

	// Top 5 and bottom 5 by total_pnl
	Rankings []RankingRow

	// Dates without legs, and portfolio limit crossings
	NoTradeDates    []*domain.NoTradeDate
	ThresholdEvents []*domain.PortfolioThresholdEvent

	// Rounds whose leg counts differ from the configuration
	LegCountMismatches []*metrics.LegCountMismatch
}

// HighlightRow is one of the top strategies.
type HighlightRow struct {
	Rank         int
	StrategyName string
	TotalPnL     decimal.Decimal
	TradingDays  int
	Reason       string
}

// RankingRow places a strategy in the top or bottom list.
type RankingRow struct {
	Rank         int
	StrategyName string
	TotalPnL     decimal.Decimal
	Type         string // Top, Bottom
}
