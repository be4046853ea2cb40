package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/metrics"
)

// CSV file names returned by CSVFiles.
const (
	CSVResults  = "full_results.csv"
	CSVDaily    = "daily_analysis.csv"
	CSVSummary  = "strategy_summary.csv"
	CSVRankings = "rankings.csv"
	CSVNoTrade  = "no_trade_dates.csv"
)

func renderCSV(header []string, rows [][]string) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write(header)
	_ = w.WriteAll(rows)
	return sb.String()
}

// RenderResultsCSV renders ledger rows in the strategy_run_results column order.
func RenderResultsCSV(results []*domain.StrategyRunResult) string {
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{
			r.StrategyName,
			r.TradeDate.Format(domain.DateLayout),
			r.ExpiryDate.Format(domain.DateLayout),
			r.BreakoutTime.Format(domain.ClockLayout),
			r.EntryTime.Format(domain.ClockLayout),
			r.ExitTime.Format(domain.ClockLayout),
			string(r.OptionType),
			strconv.FormatFloat(r.Strike, 'f', -1, 64),
			strconv.FormatFloat(r.EntryPrice, 'f', 2, 64),
			strconv.FormatFloat(r.ExitPrice, 'f', 2, 64),
			string(r.TransactionType),
			string(r.LegType),
			strconv.Itoa(r.EntryRound),
			string(r.ExitReason),
			r.PnLAmount.StringFixed(2),
		}
	}
	return renderCSV([]string{
		"strategy_name", "trade_date", "expiry_date", "breakout_time", "entry_time", "exit_time",
		"option_type", "strike", "entry_price", "exit_price", "transaction_type", "leg_type",
		"entry_round", "exit_reason", "pnl_amount",
	}, rows)
}

// RenderDailyCSV renders the daily analysis.
func RenderDailyCSV(daily []*metrics.DailyStat) string {
	rows := make([][]string, len(daily))
	for i, d := range daily {
		rows[i] = []string{
			d.StrategyName,
			d.TradeDate.Format(domain.DateLayout),
			strconv.Itoa(d.TotalTrades),
			d.TotalPnL.StringFixed(2),
			d.WorstTrade.StringFixed(2),
			d.BestTrade.StringFixed(2),
		}
	}
	return renderCSV([]string{"strategy_name", "trade_date", "total_trades", "total_pnl", "worst_trade", "best_trade"}, rows)
}

// RenderSummaryCSV renders strategy summaries.
func RenderSummaryCSV(summaries []*metrics.StrategySummary) string {
	rows := make([][]string, len(summaries))
	for i, s := range summaries {
		rows[i] = []string{
			s.StrategyName,
			strconv.Itoa(s.TotalTrades),
			s.TotalPnL.StringFixed(2),
			s.AvgDailyPnL.StringFixed(2),
			strconv.Itoa(s.TradingDays),
			strconv.Itoa(s.WinningDays),
			strconv.FormatFloat(s.DayWinRate, 'f', 4, 64),
			s.MaxDrawdown.StringFixed(2),
			strconv.Itoa(s.MaxConsecutiveLosses),
		}
	}
	return renderCSV([]string{
		"strategy_name", "total_trades", "total_pnl", "avg_daily_pnl", "trading_days",
		"winning_days", "day_win_rate", "max_drawdown", "max_consecutive_losses",
	}, rows)
}

// RenderRankingsCSV renders the top and bottom lists.
func RenderRankingsCSV(rankings []RankingRow) string {
	rows := make([][]string, len(rankings))
	for i, r := range rankings {
		rows[i] = []string{strconv.Itoa(r.Rank), r.StrategyName, r.TotalPnL.StringFixed(2), r.Type}
	}
	return renderCSV([]string{"rank", "strategy_name", "total_pnl", "type"}, rows)
}

// RenderNoTradeCSV renders no-trade dates.
func RenderNoTradeCSV(dates []*domain.NoTradeDate) string {
	rows := make([][]string, len(dates))
	for i, n := range dates {
		rows[i] = []string{n.StrategyName, n.TradeDate.Format(domain.DateLayout), string(n.Reason), n.Detail}
	}
	return renderCSV([]string{"strategy_name", "trade_date", "reason", "detail"}, rows)
}

// CSVFiles renders every CSV section keyed by file name.
func CSVFiles(r *Report, results []*domain.StrategyRunResult) map[string]string {
	return map[string]string{
		CSVResults:  RenderResultsCSV(results),
		CSVDaily:    RenderDailyCSV(r.DailyAnalysis),
		CSVSummary:  RenderSummaryCSV(r.Summaries),
		CSVRankings: RenderRankingsCSV(r.Rankings),
		CSVNoTrade:  RenderNoTradeCSV(r.NoTradeDates),
	}
}
