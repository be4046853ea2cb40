// Package ledger flattens closed legs into result rows and lists the dates
// that produced none.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"options-breakout-lab/internal/domain"
)

// ErrOpenLeg is returned when materializing a leg that was never closed.
var ErrOpenLeg = errors.New("leg still open")

// Materialize converts closed legs into ledger rows ordered by entry_round,
// leg_type (entry first), entry_time, strike, option_type.
func Materialize(legs []*domain.Leg) ([]*domain.StrategyRunResult, error) {
	sorted := make([]*domain.Leg, len(legs))
	copy(sorted, legs)
	SortLegs(sorted)

	rows := make([]*domain.StrategyRunResult, 0, len(sorted))
	for _, l := range sorted {
		if l.IsOpen() {
			return nil, fmt.Errorf("%s: %w", l.LegKey, ErrOpenLeg)
		}
		rows = append(rows, &domain.StrategyRunResult{
			StrategyName:    l.Strategy,
			TradeDate:       domain.TruncateDate(l.TradeDate),
			ExpiryDate:      domain.TruncateDate(l.ExpiryDate),
			BreakoutTime:    l.BreakoutTime,
			EntryTime:       l.EntryTime,
			ExitTime:        l.ExitTime,
			OptionType:      l.OptionType,
			Strike:          l.Strike,
			EntryPrice:      l.EntryPrice,
			ExitPrice:       l.ExitPrice,
			TransactionType: l.TransactionType,
			LegType:         l.LegType,
			EntryRound:      l.EntryRound,
			ExitReason:      l.ExitReason,
			PnLAmount:       l.RealizedPnL(),
		})
	}
	return rows, nil
}

// SortLegs orders legs the way the ledger presents them.
func SortLegs(legs []*domain.Leg) {
	sort.SliceStable(legs, func(i, j int) bool {
		a, b := legs[i], legs[j]
		if a.EntryRound != b.EntryRound {
			return a.EntryRound < b.EntryRound
		}
		if a.LegType != b.LegType {
			return a.LegType == domain.LegTypeEntry
		}
		if !a.EntryTime.Equal(b.EntryTime) {
			return a.EntryTime.Before(b.EntryTime)
		}
		if a.Strike != b.Strike {
			return a.Strike < b.Strike
		}
		return a.OptionType < b.OptionType
	})
}

// Attempt is what happened when a date was simulated without producing legs.
type Attempt struct {
	Reason domain.NoTradeReason
	Detail string
}

// NoTradeDates lists every date of the strategy's range with no ledger row.
// Dates never simulated are non_trading_day; simulated dates without an
// explicit reason are no_breakout.
func NoTradeDates(cfg domain.StrategyConfig, results []*domain.StrategyRunResult, attempts map[time.Time]Attempt) []*domain.NoTradeDate {
	traded := make(map[time.Time]bool)
	for _, r := range results {
		if r.StrategyName == cfg.StrategyName {
			traded[domain.TruncateDate(r.TradeDate)] = true
		}
	}
	byDate := make(map[time.Time]Attempt, len(attempts))
	for d, a := range attempts {
		byDate[domain.TruncateDate(d)] = a
	}

	var out []*domain.NoTradeDate
	for _, d := range cfg.TradeDates() {
		if traded[d] {
			continue
		}
		row := &domain.NoTradeDate{StrategyName: cfg.StrategyName, TradeDate: d, Reason: domain.NoTradeNonTradingDay}
		if a, ok := byDate[d]; ok {
			row.Reason = a.Reason
			row.Detail = a.Detail
			if row.Reason == "" {
				row.Reason = domain.NoTradeNoBreakout
			}
		}
		out = append(out, row)
	}
	return out
}
