package verification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/simulation"
	"options-breakout-lab/internal/storage"
	"options-breakout-lab/internal/storage/memory"
)

// ErrStrategyNotFound is returned when a unit's strategy is no longer configured.
var ErrStrategyNotFound = errors.New("strategy not found")

// ReplayVerifier implements Verifier interface.
// Replays run against an in-memory leg book and write nothing back.
type ReplayVerifier struct {
	tickStore   storage.IndexTickStore
	quoteStore  storage.OptionQuoteStore
	resultStore storage.ResultReader
	configStore storage.StrategyConfigStore
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	IndexTickStore      storage.IndexTickStore
	OptionQuoteStore    storage.OptionQuoteStore
	ResultStore         storage.ResultReader
	StrategyConfigStore storage.StrategyConfigStore
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		tickStore:   opts.IndexTickStore,
		quoteStore:  opts.OptionQuoteStore,
		resultStore: opts.ResultStore,
		configStore: opts.StrategyConfigStore,
	}
}

var _ Verifier = (*ReplayVerifier)(nil)

// VerifyUnit verifies one unit by replaying its simulation.
func (v *ReplayVerifier) VerifyUnit(ctx context.Context, strategy string, tradeDate time.Time) (*VerificationResult, error) {
	tradeDate = domain.TruncateDate(tradeDate)

	// 1. Load stored rows
	all, err := v.resultStore.GetResults(ctx, strategy)
	if err != nil {
		return nil, err
	}
	var stored []*domain.StrategyRunResult
	for _, r := range all {
		if r.TradeDate.Equal(tradeDate) {
			stored = append(stored, r)
		}
	}

	// 2. Replay
	replayed, err := v.replayUnit(ctx, strategy, tradeDate)
	if err != nil {
		return nil, err
	}

	// 3. Compare
	divergences := CompareUnit(stored, replayed)
	return &VerificationResult{
		StrategyName: strategy,
		TradeDate:    tradeDate,
		Match:        len(divergences) == 0,
		Divergences:  divergences,
		StoredRows:   len(stored),
		ReplayedRows: len(replayed),
		StoredPnL:    totalPnL(stored),
		ReplayedPnL:  totalPnL(replayed),
	}, nil
}

// VerifyAll verifies every unit with stored rows, in (strategy, date) order.
func (v *ReplayVerifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	rows, err := v.resultStore.GetAllResults(ctx)
	if err != nil {
		return nil, err
	}

	type unitKey struct {
		strategy string
		date     time.Time
	}
	seen := make(map[unitKey]bool)
	var units []unitKey
	for _, r := range rows {
		k := unitKey{r.StrategyName, domain.TruncateDate(r.TradeDate)}
		if !seen[k] {
			seen[k] = true
			units = append(units, k)
		}
	}
	sort.Slice(units, func(i, j int) bool {
		if units[i].strategy != units[j].strategy {
			return units[i].strategy < units[j].strategy
		}
		return units[i].date.Before(units[j].date)
	})

	report := &VerificationReport{
		TotalUnits: len(units),
		Results:    make([]VerificationResult, 0, len(units)),
	}
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := v.VerifyUnit(ctx, u.strategy, u.date)
		if err != nil {
			// Record error as divergence
			report.Results = append(report.Results, VerificationResult{
				StrategyName: u.strategy,
				TradeDate:    u.date,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentUnits++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedUnits++
		} else {
			report.DivergentUnits++
		}
	}
	return report, nil
}

// replayUnit re-executes the unit with the strategy's current configuration.
func (v *ReplayVerifier) replayUnit(ctx context.Context, strategy string, tradeDate time.Time) ([]*domain.StrategyRunResult, error) {
	cfg, err := v.configStore.Get(ctx, strategy)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrStrategyNotFound, strategy)
		}
		return nil, err
	}

	runner := simulation.NewRunner(simulation.RunnerOptions{
		IndexTickStore:   v.tickStore,
		OptionQuoteStore: v.quoteStore,
		LegBookStore:     memory.NewLegBookStore(),
	})
	res, err := runner.Run(ctx, *cfg, tradeDate)
	if err != nil {
		return nil, fmt.Errorf("replay %s/%s: %w", strategy, tradeDate.Format(domain.DateLayout), err)
	}
	return res.Rows, nil
}
