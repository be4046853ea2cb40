// Package orchestrator runs every (strategy, trade_date) unit of a backtest.
// It coordinates: validation → unit simulation → no-trade ledger
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/ledger"
	"options-breakout-lab/internal/marketdata"
	"options-breakout-lab/internal/observability"
	"options-breakout-lab/internal/simulation"
	"options-breakout-lab/internal/storage"
)

// Orchestrator coordinates backtest execution.
// Flow: validate configs → simulate units in parallel → write no-trade dates
type Orchestrator struct {
	// Stores
	adapter *marketdata.Adapter
	runner  *simulation.Runner
	results storage.ResultSink

	// Configs
	strategyConfigs []domain.StrategyConfig

	// Options
	workers  int
	verbose  bool
	metrics  bool
	progress func(UnitReport)
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	IndexTickStore   storage.IndexTickStore
	OptionQuoteStore storage.OptionQuoteStore
	LegBookStore     storage.LegBookStore
	ResultSink       storage.ResultSink

	// Optional stores
	PnLSnapshotStore storage.PnLSnapshotStore

	// Strategy configs
	StrategyConfigs []domain.StrategyConfig

	// Options
	Workers  int  // concurrent units; <1 means 1
	Verbose  bool // log phase lines
	Metrics  bool // record Prometheus metrics
	Progress func(UnitReport)
}

// UnitReport is sent to the progress callback after every unit.
type UnitReport struct {
	Strategy  string
	TradeDate time.Time
	Status    string
	Legs      int
	Duration  time.Duration
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		adapter: marketdata.NewAdapter(opts.IndexTickStore, opts.OptionQuoteStore),
		runner: simulation.NewRunner(simulation.RunnerOptions{
			IndexTickStore:   opts.IndexTickStore,
			OptionQuoteStore: opts.OptionQuoteStore,
			LegBookStore:     opts.LegBookStore,
			ResultSink:       opts.ResultSink,
			PnLSnapshotStore: opts.PnLSnapshotStore,
			Metrics:          opts.Metrics,
		}),
		results:         opts.ResultSink,
		strategyConfigs: opts.StrategyConfigs,
		workers:         workers,
		verbose:         opts.Verbose,
		metrics:         opts.Metrics,
		progress:        opts.Progress,
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	RunID          string
	UnitsProcessed int
	UnitsTraded    int
	LegsClosed     int
	NoTradeDates   []*domain.NoTradeDate
	Failures       []*domain.UnitFailure
	Errors         []string
}

type unit struct {
	cfg       domain.StrategyConfig
	tradeDate time.Time
}

// strategyState collects a strategy's unit outcomes across workers.
type strategyState struct {
	mu       sync.Mutex
	rows     []*domain.StrategyRunResult
	attempts map[time.Time]ledger.Attempt
}

// Units returns the number of units Run will simulate, for progress sizing.
func (o *Orchestrator) Units(ctx context.Context) (int, error) {
	var n int
	for _, cfg := range o.strategyConfigs {
		if cfg.Validate() != nil {
			continue
		}
		dates, err := o.adapter.TradeDates(ctx, cfg.UnderlyingSymbol(), cfg.FromDate, cfg.ToDate)
		if err != nil {
			return 0, err
		}
		n += len(dates)
	}
	return n, nil
}

// Run executes the backtest.
// Phases:
//  1. Validate strategy configs
//  2. Plan units from the dates with index data
//  3. Simulate units on a bounded worker pool
//  4. Write no-trade dates per strategy
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	started := time.Now()
	result := &RunResult{RunID: uuid.NewString()}
	logger := log.With().Str("run_id", result.RunID).Logger()

	// Phase 1: Validate strategy configs
	o.log(logger, "Phase 1: Validating %d strategies...", len(o.strategyConfigs))
	var configs []domain.StrategyConfig
	for _, cfg := range o.strategyConfigs {
		if err := cfg.Validate(); err != nil {
			result.Errors = append(result.Errors, err.Error())
			result.Failures = append(result.Failures, &domain.UnitFailure{
				StrategyName: cfg.StrategyName, Stage: "config", Err: err.Error(),
			})
			continue
		}
		configs = append(configs, cfg)
	}

	// Phase 2: Plan units
	o.log(logger, "Phase 2: Planning units...")
	var units []unit
	states := make(map[string]*strategyState, len(configs))
	for _, cfg := range configs {
		dates, err := o.adapter.TradeDates(ctx, cfg.UnderlyingSymbol(), cfg.FromDate, cfg.ToDate)
		if err != nil {
			o.recordRun(started, err)
			return nil, fmt.Errorf("phase 2 (plan units) failed: %w", err)
		}
		states[cfg.StrategyName] = &strategyState{attempts: make(map[time.Time]ledger.Attempt)}
		for _, d := range dates {
			units = append(units, unit{cfg: cfg, tradeDate: d})
		}
	}
	o.log(logger, "  Planned %d units", len(units))

	// Phase 3: Simulate units
	o.log(logger, "Phase 3: Simulating units with %d workers...", o.workers)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for _, u := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rep, failure := o.runUnit(gctx, logger, u, states[u.cfg.StrategyName])

			mu.Lock()
			result.UnitsProcessed++
			result.LegsClosed += rep.Legs
			if rep.Status == observability.UnitTraded {
				result.UnitsTraded++
			}
			if failure != nil {
				result.Failures = append(result.Failures, failure)
				result.Errors = append(result.Errors, fmt.Sprintf("simulate %s/%s: %s",
					failure.StrategyName, failure.TradeDate.Format(domain.DateLayout), failure.Err))
			}
			mu.Unlock()

			if o.progress != nil {
				o.progress(rep)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		o.recordRun(started, err)
		return result, fmt.Errorf("phase 3 (simulate) interrupted: %w", err)
	}
	o.log(logger, "  Processed %d units, %d legs (%d errors)", result.UnitsProcessed, result.LegsClosed, len(result.Failures))

	// Phase 4: No-trade dates
	o.log(logger, "Phase 4: Writing no-trade dates...")
	for _, cfg := range configs {
		st := states[cfg.StrategyName]
		rows := ledger.NoTradeDates(cfg, st.rows, st.attempts)
		if err := o.writeNoTradeDates(ctx, cfg, rows, st.attempts); err != nil {
			o.recordRun(started, err)
			return result, fmt.Errorf("phase 4 (no-trade dates) failed: %w", err)
		}
		result.NoTradeDates = append(result.NoTradeDates, rows...)
	}
	sortFailures(result.Failures)

	logger.Info().
		Int("units", result.UnitsProcessed).
		Int("traded", result.UnitsTraded).
		Int("legs", result.LegsClosed).
		Int("no_trade_dates", len(result.NoTradeDates)).
		Int("failures", len(result.Failures)).
		Dur("elapsed", time.Since(started)).
		Msg("backtest completed")
	o.recordRun(started, nil)
	return result, nil
}

// runUnit simulates one unit. Failures are contained: the unit's partial
// output is purged and it is listed as a failed no-trade date.
func (o *Orchestrator) runUnit(ctx context.Context, logger zerolog.Logger, u unit, st *strategyState) (UnitReport, *domain.UnitFailure) {
	started := time.Now()
	rep := UnitReport{Strategy: u.cfg.StrategyName, TradeDate: u.tradeDate}
	ulog := logger.With().
		Str("strategy", u.cfg.StrategyName).
		Str("trade_date", u.tradeDate.Format(domain.DateLayout)).
		Logger()

	if o.metrics {
		observability.UnitStarted()
		defer observability.UnitFinished()
	}

	res, err := o.runner.Run(ctx, u.cfg, u.tradeDate)
	rep.Duration = time.Since(started)

	st.mu.Lock()
	defer st.mu.Unlock()

	if err != nil {
		rep.Status = observability.UnitFailed
		ulog.Error().Err(err).Msg("unit failed")
		if o.results != nil && !errors.Is(err, context.Canceled) {
			if perr := o.results.Purge(context.WithoutCancel(ctx), u.cfg.StrategyName, u.tradeDate); perr != nil {
				ulog.Warn().Err(perr).Msg("purge after failure")
			}
		}
		st.attempts[u.tradeDate] = ledger.Attempt{Reason: domain.NoTradeFailed, Detail: err.Error()}
		o.recordUnit(rep)
		return rep, &domain.UnitFailure{
			StrategyName: u.cfg.StrategyName,
			TradeDate:    u.tradeDate,
			Stage:        "simulate",
			Err:          err.Error(),
		}
	}

	if res.Traded() {
		rep.Status = observability.UnitTraded
		rep.Legs = len(res.Rows)
		st.rows = append(st.rows, res.Rows...)
		ulog.Debug().Int("legs", rep.Legs).Int("rounds", len(res.Outcome.Rounds)).Msg("unit traded")
	} else {
		rep.Status = observability.UnitNoTrade
		if res.NoTrade != nil {
			st.attempts[u.tradeDate] = *res.NoTrade
		}
		ulog.Debug().Str("reason", string(st.attempts[u.tradeDate].Reason)).Msg("no trade")
	}
	o.recordUnit(rep)
	return rep, nil
}

// writeNoTradeDates clears stale rows of dates that were not simulated and
// writes the strategy's no-trade list.
func (o *Orchestrator) writeNoTradeDates(ctx context.Context, cfg domain.StrategyConfig, rows []*domain.NoTradeDate, attempts map[time.Time]ledger.Attempt) error {
	if o.results == nil || len(rows) == 0 {
		return nil
	}
	for _, r := range rows {
		if _, simulated := attempts[r.TradeDate]; simulated {
			continue
		}
		if err := o.results.Purge(ctx, cfg.StrategyName, r.TradeDate); err != nil {
			return err
		}
	}
	return o.results.WriteNoTradeDates(ctx, rows)
}

func (o *Orchestrator) recordUnit(rep UnitReport) {
	if o.metrics {
		observability.RecordUnit(rep.Status, rep.Duration)
	}
}

func (o *Orchestrator) recordRun(started time.Time, err error) {
	if !o.metrics {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.RecordRun(status, time.Since(started))
}

func sortFailures(fs []*domain.UnitFailure) {
	sort.SliceStable(fs, func(i, j int) bool {
		if fs[i].StrategyName != fs[j].StrategyName {
			return fs[i].StrategyName < fs[j].StrategyName
		}
		return fs[i].TradeDate.Before(fs[j].TradeDate)
	})
}

func (o *Orchestrator) log(logger zerolog.Logger, format string, args ...interface{}) {
	if o.verbose {
		logger.Info().Msgf("[orchestrator] "+format, args...)
	}
}
