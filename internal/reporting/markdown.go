package reporting

import (
	"fmt"
	"strings"
	"time"

	"options-breakout-lab/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Strategies: %d | Legs: %d | Total PnL: %s\n\n", r.StrategyCount, r.TotalLegs, r.TotalPnL.StringFixed(2)))
	if r.DataVersion != "" {
		sb.WriteString(fmt.Sprintf("Data version: `%s`\n\n", r.DataVersion))
	}

	// Top Strategies
	sb.WriteString("## Top Strategies\n\n")
	if len(r.Highlights) > 0 {
		for _, h := range r.Highlights {
			sb.WriteString(fmt.Sprintf("%d. **%s**: %s\n", h.Rank, h.StrategyName, h.Reason))
		}
	} else {
		sb.WriteString("No strategies traded.\n")
	}
	sb.WriteString("\n")

	// Strategy Summary
	sb.WriteString("## Strategy Summary\n\n")
	if len(r.Summaries) > 0 {
		sb.WriteString("| Strategy | Trades | Total PnL | Avg Daily PnL | Days | Winning Days | Max DD | Max Losing Streak |\n")
		sb.WriteString("|----------|--------|-----------|---------------|------|--------------|--------|-------------------|\n")
		for _, s := range r.Summaries {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s | %d | %d | %s | %d |\n",
				s.StrategyName, s.TotalTrades, s.TotalPnL.StringFixed(2), s.AvgDailyPnL.StringFixed(2),
				s.TradingDays, s.WinningDays, s.MaxDrawdown.StringFixed(2), s.MaxConsecutiveLosses))
		}
	} else {
		sb.WriteString("No strategy results available.\n")
	}
	sb.WriteString("\n")

	// Rankings
	sb.WriteString("## Rankings\n\n")
	if len(r.Rankings) > 0 {
		sb.WriteString("| Rank | Strategy | Total PnL | Type |\n")
		sb.WriteString("|------|----------|-----------|------|\n")
		for _, row := range r.Rankings {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n", row.Rank, row.StrategyName, row.TotalPnL.StringFixed(2), row.Type))
		}
	} else {
		sb.WriteString("No rankings available.\n")
	}
	sb.WriteString("\n")

	// Daily Analysis
	sb.WriteString("## Daily Analysis\n\n")
	if len(r.DailyAnalysis) > 0 {
		sb.WriteString("| Strategy | Trade Date | Trades | Total PnL | Worst Trade | Best Trade |\n")
		sb.WriteString("|----------|------------|--------|-----------|-------------|------------|\n")
		for _, d := range r.DailyAnalysis {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s | %s |\n",
				d.StrategyName, d.TradeDate.Format(domain.DateLayout), d.TotalTrades,
				d.TotalPnL.StringFixed(2), d.WorstTrade.StringFixed(2), d.BestTrade.StringFixed(2)))
		}
	} else {
		sb.WriteString("No daily analysis available.\n")
	}
	sb.WriteString("\n")

	// Portfolio Thresholds
	sb.WriteString("## Portfolio Thresholds\n\n")
	if len(r.ThresholdEvents) > 0 {
		sb.WriteString("| Strategy | Trade Date | Time | Kind | PnL | Threshold |\n")
		sb.WriteString("|----------|------------|------|------|-----|-----------|\n")
		for _, e := range r.ThresholdEvents {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
				e.Strategy, e.TradeDate.Format(domain.DateLayout), e.Time.Format(domain.ClockLayout),
				e.Kind, e.PnL.StringFixed(2), e.Threshold.StringFixed(2)))
		}
	} else {
		sb.WriteString("No portfolio thresholds crossed.\n")
	}
	sb.WriteString("\n")

	// No-Trade Dates
	sb.WriteString("## No-Trade Dates\n\n")
	if len(r.NoTradeDates) > 0 {
		sb.WriteString("| Strategy | Trade Date | Reason | Detail |\n")
		sb.WriteString("|----------|------------|--------|--------|\n")
		for _, n := range r.NoTradeDates {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				n.StrategyName, n.TradeDate.Format(domain.DateLayout), n.Reason, n.Detail))
		}
	} else {
		sb.WriteString("Every date in range traded.\n")
	}
	sb.WriteString("\n")

	// Leg Count Check
	sb.WriteString("## Leg Count Check\n\n")
	if len(r.LegCountMismatches) > 0 {
		sb.WriteString("| Strategy | Trade Date | Expiry | Round | Leg Type | Expected | Actual |\n")
		sb.WriteString("|----------|------------|--------|-------|----------|----------|--------|\n")
		for _, m := range r.LegCountMismatches {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %s | %d | %d |\n",
				m.StrategyName, m.TradeDate.Format(domain.DateLayout), m.ExpiryDate.Format(domain.DateLayout),
				m.EntryRound, m.LegType, m.Expected, m.Actual))
		}
	} else {
		sb.WriteString("All rounds match the configured leg counts.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
