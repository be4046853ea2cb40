// Package metrics derives per-day and per-strategy statistics from the
// strategy run ledger.
package metrics

import (
	"context"
	"errors"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/storage"
)

// ErrNoResults is returned when the ledger holds no rows for the request.
var ErrNoResults = errors.New("no strategy results available for aggregation")

// Aggregator computes ledger statistics from stored results.
type Aggregator struct {
	results storage.ResultReader
	configs storage.StrategyConfigStore // optional, needed by CheckLegCounts
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(results storage.ResultReader, configs storage.StrategyConfigStore) *Aggregator {
	return &Aggregator{results: results, configs: configs}
}

// load returns one strategy's rows, or every row when strategy is empty.
func (a *Aggregator) load(ctx context.Context, strategy string) ([]*domain.StrategyRunResult, error) {
	if strategy == "" {
		return a.results.GetAllResults(ctx)
	}
	return a.results.GetResults(ctx, strategy)
}

// DailyAnalysis returns total_trades, total_pnl, worst_trade and best_trade
// per (strategy, trade_date), ordered by strategy_name, trade_date.
func (a *Aggregator) DailyAnalysis(ctx context.Context, strategy string) ([]*DailyStat, error) {
	rows, err := a.load(ctx, strategy)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoResults
	}
	return computeDaily(rows), nil
}

// StrategySummaries returns one summary per strategy ordered by total_pnl DESC.
func (a *Aggregator) StrategySummaries(ctx context.Context) ([]*StrategySummary, error) {
	daily, err := a.DailyAnalysis(ctx, "")
	if err != nil {
		return nil, err
	}
	return computeSummaries(daily), nil
}

// CheckLegCounts reports rounds whose entry or hedge leg count differs from
// the strategy's num_entry_legs / num_hedge_legs. Rounds cut short by
// liquidity, re-hedges and double-buys all show up here.
func (a *Aggregator) CheckLegCounts(ctx context.Context) ([]*LegCountMismatch, error) {
	if a.configs == nil {
		return nil, nil
	}
	list, err := a.configs.List(ctx)
	if err != nil {
		return nil, err
	}
	configs := make(map[string]domain.StrategyConfig, len(list))
	for _, cfg := range list {
		configs[cfg.StrategyName] = cfg
	}
	rows, err := a.results.GetAllResults(ctx)
	if err != nil {
		return nil, err
	}
	return computeLegCounts(rows, configs), nil
}
