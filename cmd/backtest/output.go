package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/metrics"
	"options-breakout-lab/internal/orchestrator"
	"options-breakout-lab/internal/storage/backend"
)

// printRunSummary prints per-strategy totals for the strategies just run,
// then failed units and a no-trade tally.
func printRunSummary(ctx context.Context, stores *backend.Stores, configs []domain.StrategyConfig, result *orchestrator.RunResult) error {
	fmt.Printf("Run %s: %d units, %d traded, %d legs\n\n",
		result.RunID, result.UnitsProcessed, result.UnitsTraded, result.LegsClosed)

	ran := make(map[string]bool, len(configs))
	for _, c := range configs {
		ran[c.StrategyName] = true
	}

	summaries, err := metrics.NewAggregator(stores.Results, stores.StrategyConfigs).StrategySummaries(ctx)
	if err != nil && !errors.Is(err, metrics.ErrNoResults) {
		return err
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Strategy", "Legs", "Total PnL", "Avg Daily", "Days", "Win Days", "Max DD"}),
	)
	rows := 0
	for _, s := range summaries {
		if !ran[s.StrategyName] {
			continue
		}
		table.Append([]string{
			s.StrategyName,
			strconv.Itoa(s.TotalTrades),
			s.TotalPnL.StringFixed(2),
			s.AvgDailyPnL.StringFixed(2),
			strconv.Itoa(s.TradingDays),
			strconv.Itoa(s.WinningDays),
			s.MaxDrawdown.StringFixed(2),
		})
		rows++
	}
	if rows > 0 {
		table.Render()
	} else {
		fmt.Println("No legs were traded.")
	}

	if len(result.Failures) > 0 {
		fmt.Printf("\n--- Failures (%d) ---\n", len(result.Failures))
		for _, f := range result.Failures {
			date := "-"
			if !f.TradeDate.IsZero() {
				date = f.TradeDate.Format(domain.DateLayout)
			}
			fmt.Printf("  %s %s [%s] %s\n", f.StrategyName, date, f.Stage, f.Err)
		}
	}

	if len(result.NoTradeDates) > 0 {
		reasons := make(map[domain.NoTradeReason]int)
		for _, n := range result.NoTradeDates {
			reasons[n.Reason]++
		}
		fmt.Printf("\nNo-trade dates: %d", len(result.NoTradeDates))
		for _, r := range []domain.NoTradeReason{
			domain.NoTradeNoData,
			domain.NoTradeNoBreakout,
			domain.NoTradeInsufficientLiquidity,
			domain.NoTradeHalted,
			domain.NoTradeNonTradingDay,
			domain.NoTradeFailed,
		} {
			if reasons[r] > 0 {
				fmt.Printf(" | %s=%d", r, reasons[r])
			}
		}
		fmt.Println()
	}
	return nil
}
