package metrics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"options-breakout-lab/internal/domain"
)

// DailyStat is one strategy's ledger totals for a trade date.
type DailyStat struct {
	StrategyName string
	TradeDate    time.Time
	TotalTrades  int
	TotalPnL     decimal.Decimal
	WorstTrade   decimal.Decimal
	BestTrade    decimal.Decimal
}

// StrategySummary aggregates a strategy's daily stats.
type StrategySummary struct {
	StrategyName         string
	TotalTrades          int
	TotalPnL             decimal.Decimal
	AvgDailyPnL          decimal.Decimal
	TradingDays          int
	WinningDays          int
	DayWinRate           float64
	MaxDrawdown          decimal.Decimal // worst peak-to-trough of cumulative daily PnL
	MaxConsecutiveLosses int             // longest run of days with PnL <= 0
}

// LegCountMismatch is a round whose leg count differs from the configuration.
type LegCountMismatch struct {
	StrategyName string
	TradeDate    time.Time
	ExpiryDate   time.Time
	EntryRound   int
	LegType      domain.LegType
	Expected     int
	Actual       int
}

// computeDaily groups rows by (strategy, trade_date).
// Output is ordered by strategy_name, trade_date.
func computeDaily(rows []*domain.StrategyRunResult) []*DailyStat {
	type key struct {
		strategy string
		date     time.Time
	}
	index := make(map[key]*DailyStat)
	var out []*DailyStat
	for _, r := range rows {
		k := key{strategy: r.StrategyName, date: domain.TruncateDate(r.TradeDate)}
		d, ok := index[k]
		if !ok {
			d = &DailyStat{
				StrategyName: k.strategy,
				TradeDate:    k.date,
				WorstTrade:   r.PnLAmount,
				BestTrade:    r.PnLAmount,
			}
			index[k] = d
			out = append(out, d)
		}
		d.TotalTrades++
		d.TotalPnL = d.TotalPnL.Add(r.PnLAmount)
		if r.PnLAmount.LessThan(d.WorstTrade) {
			d.WorstTrade = r.PnLAmount
		}
		if r.PnLAmount.GreaterThan(d.BestTrade) {
			d.BestTrade = r.PnLAmount
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StrategyName != out[j].StrategyName {
			return out[i].StrategyName < out[j].StrategyName
		}
		return out[i].TradeDate.Before(out[j].TradeDate)
	})
	return out
}

// computeSummaries folds daily stats into per-strategy summaries ordered by
// total_pnl DESC, strategy_name ASC. daily must be in computeDaily order.
func computeSummaries(daily []*DailyStat) []*StrategySummary {
	var out []*StrategySummary
	for start := 0; start < len(daily); {
		end := start
		for end < len(daily) && daily[end].StrategyName == daily[start].StrategyName {
			end++
		}
		out = append(out, summarize(daily[start:end]))
		start = end
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TotalPnL.Equal(out[j].TotalPnL) {
			return out[i].TotalPnL.GreaterThan(out[j].TotalPnL)
		}
		return out[i].StrategyName < out[j].StrategyName
	})
	return out
}

// summarize expects one strategy's days in chronological order.
func summarize(days []*DailyStat) *StrategySummary {
	s := &StrategySummary{
		StrategyName: days[0].StrategyName,
		TradingDays:  len(days),
	}
	pnls := make([]decimal.Decimal, len(days))
	for i, d := range days {
		s.TotalTrades += d.TotalTrades
		s.TotalPnL = s.TotalPnL.Add(d.TotalPnL)
		if d.TotalPnL.IsPositive() {
			s.WinningDays++
		}
		pnls[i] = d.TotalPnL
	}
	s.AvgDailyPnL = s.TotalPnL.Div(decimal.NewFromInt(int64(s.TradingDays))).Round(2)
	s.DayWinRate = computeWinRate(s.WinningDays, s.TradingDays)
	s.MaxDrawdown = computeMaxDrawdown(pnls)
	s.MaxConsecutiveLosses = computeMaxConsecutiveLosses(pnls)
	return s
}

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// computeMaxDrawdown calculates worst peak-to-trough on cumulative PnL.
// max_drawdown = MAX(peak_cumulative - trough_cumulative)
// PnLs must be in chronological order.
func computeMaxDrawdown(pnls []decimal.Decimal) decimal.Decimal {
	cumulative := decimal.Zero
	peak := decimal.Zero
	maxDrawdown := decimal.Zero

	for _, p := range pnls {
		cumulative = cumulative.Add(p)
		if cumulative.GreaterThan(peak) {
			peak = cumulative
		}
		if dd := peak.Sub(cumulative); dd.GreaterThan(maxDrawdown) {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// computeMaxConsecutiveLosses finds longest streak of pnl <= 0.
func computeMaxConsecutiveLosses(pnls []decimal.Decimal) int {
	maxStreak := 0
	currentStreak := 0

	for _, p := range pnls {
		if !p.IsPositive() {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}

// computeLegCounts compares entry and hedge legs per round against the
// configured num_entry_legs and num_hedge_legs. Rows of strategies without
// a configuration are skipped.
func computeLegCounts(rows []*domain.StrategyRunResult, configs map[string]domain.StrategyConfig) []*LegCountMismatch {
	type key struct {
		strategy string
		date     time.Time
		expiry   time.Time
		round    int
	}
	type counts struct{ entry, hedge int }
	index := make(map[key]*counts)
	var order []key
	for _, r := range rows {
		if _, ok := configs[r.StrategyName]; !ok {
			continue
		}
		k := key{r.StrategyName, domain.TruncateDate(r.TradeDate), domain.TruncateDate(r.ExpiryDate), r.EntryRound}
		c, ok := index[k]
		if !ok {
			c = &counts{}
			index[k] = c
			order = append(order, k)
		}
		if r.LegType == domain.LegTypeHedge {
			c.hedge++
		} else {
			c.entry++
		}
	}

	var out []*LegCountMismatch
	for _, k := range order {
		cfg, c := configs[k.strategy], index[k]
		check := func(lt domain.LegType, expected, actual int) {
			if expected != actual {
				out = append(out, &LegCountMismatch{
					StrategyName: k.strategy,
					TradeDate:    k.date,
					ExpiryDate:   k.expiry,
					EntryRound:   k.round,
					LegType:      lt,
					Expected:     expected,
					Actual:       actual,
				})
			}
		}
		check(domain.LegTypeEntry, cfg.NumEntryLegs, c.entry)
		check(domain.LegTypeHedge, cfg.NumHedgeLegs, c.hedge)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.StrategyName != b.StrategyName {
			return a.StrategyName < b.StrategyName
		}
		if !a.TradeDate.Equal(b.TradeDate) {
			return a.TradeDate.Before(b.TradeDate)
		}
		return a.EntryRound < b.EntryRound
	})
	return out
}
