// Package simulation runs one (strategy, trade_date) unit through the stages
// of the backtest.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"options-breakout-lab/internal/breakout"
	"options-breakout-lab/internal/candles"
	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/hedge"
	"options-breakout-lab/internal/ledger"
	"options-breakout-lab/internal/lifecycle"
	"options-breakout-lab/internal/marketdata"
	"options-breakout-lab/internal/observability"
	"options-breakout-lab/internal/portfolio"
	"options-breakout-lab/internal/reentry"
	"options-breakout-lab/internal/selection"
	"options-breakout-lab/internal/storage"
)

// Runner executes simulations for (strategy, trade_date) units.
type Runner struct {
	adapter  *marketdata.Adapter
	legBook  storage.LegBookStore
	results  storage.ResultSink
	pnlStore storage.PnLSnapshotStore
	metrics  bool
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	IndexTickStore   storage.IndexTickStore
	OptionQuoteStore storage.OptionQuoteStore
	LegBookStore     storage.LegBookStore
	ResultSink       storage.ResultSink       // optional
	PnLSnapshotStore storage.PnLSnapshotStore // optional
	Metrics          bool                     // record Prometheus engine metrics
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		adapter:  marketdata.NewAdapter(opts.IndexTickStore, opts.OptionQuoteStore),
		legBook:  opts.LegBookStore,
		results:  opts.ResultSink,
		pnlStore: opts.PnLSnapshotStore,
		metrics:  opts.Metrics,
	}
}

// UnitResult is the outcome of one unit.
type UnitResult struct {
	Strategy  string
	TradeDate time.Time
	Breakouts []*domain.BreakoutEvent
	Rows      []*domain.StrategyRunResult
	Portfolio *portfolio.Result
	Outcome   *reentry.Outcome

	// NoTrade is set when the unit produced no legs.
	NoTrade *ledger.Attempt
}

// Traded reports whether the unit produced ledger rows.
func (u *UnitResult) Traded() bool {
	return len(u.Rows) > 0
}

// Run simulates a trade date for a strategy.
// Steps:
//  1. Purge the unit's previous output
//  2. Load index ticks and build candle streams
//  3. Detect preferred and reentry breakouts
//  4. Resolve the nearest expiry and load its option chain
//  5. Play rounds through the reentry controller
//  6. Materialize the ledger and evaluate the portfolio
//  7. Persist rows, threshold events and PnL snapshots
func (r *Runner) Run(ctx context.Context, cfg domain.StrategyConfig, tradeDate time.Time) (*UnitResult, error) {
	tradeDate = domain.TruncateDate(tradeDate)
	res := &UnitResult{Strategy: cfg.StrategyName, TradeDate: tradeDate}
	symbol := cfg.UnderlyingSymbol()

	// 1. Purge the unit's previous output
	if err := r.purge(ctx, cfg.StrategyName, tradeDate); err != nil {
		return nil, err
	}

	// 2. Load index ticks and build candle streams
	ticks, err := r.adapter.GetTicks(ctx, symbol, tradeDate)
	if err != nil {
		return nil, err
	}
	frames, err := candles.Build(ticks, tradeDate, cfg)
	if err != nil {
		if candles.IsDataGap(err) {
			res.NoTrade = &ledger.Attempt{Reason: domain.NoTradeNoData, Detail: err.Error()}
			return res, nil
		}
		return nil, fmt.Errorf("build candles: %w", err)
	}

	// 3. Detect preferred and reentry breakouts
	preferred := breakout.NewDetector(cfg, cfg.PreferredBreakoutType).Detect(tradeDate, frames.HABig)
	reentries := preferred
	if cfg.ReentryBreakoutType != cfg.PreferredBreakoutType {
		reentries = breakout.NewDetector(cfg, cfg.ReentryBreakoutType).Detect(tradeDate, frames.HABig)
		res.Breakouts = append(res.Breakouts, reentries...)
	}
	res.Breakouts = append(res.Breakouts, preferred...)
	if r.metrics {
		observability.RecordBreakouts(cfg.PreferredBreakoutType, len(preferred))
		if cfg.ReentryBreakoutType != cfg.PreferredBreakoutType {
			observability.RecordBreakouts(cfg.ReentryBreakoutType, len(reentries))
		}
	}
	if len(preferred) == 0 {
		res.NoTrade = &ledger.Attempt{Reason: domain.NoTradeNoBreakout}
		return res, nil
	}

	// 4. Resolve the nearest expiry and load its option chain
	expiry, err := r.adapter.NearestExpiry(ctx, symbol, tradeDate)
	if err != nil {
		if errors.Is(err, marketdata.ErrNoExpiry) {
			res.NoTrade = &ledger.Attempt{Reason: domain.NoTradeNoData, Detail: err.Error()}
			return res, nil
		}
		return nil, err
	}
	chain, err := r.adapter.GetOptionChain(ctx, symbol, tradeDate, expiry)
	if err != nil {
		if errors.Is(err, marketdata.ErrEmptyChain) {
			res.NoTrade = &ledger.Attempt{Reason: domain.NoTradeNoData, Detail: err.Error()}
			return res, nil
		}
		return nil, err
	}

	// 5. Play rounds through the reentry controller
	mkt := market{Chain: chain, oneM: frames.OneM}
	timeline := candles.Times(frames.OneM)
	engine, err := lifecycle.NewEngine(cfg, tradeDate, mkt)
	if err != nil {
		return nil, err
	}
	evaluator := portfolio.NewEvaluator(cfg, tradeDate, mkt, timeline)

	controller := reentry.NewController(cfg, tradeDate, r.legBook, evaluator.Crossed)
	play := r.playRound(cfg, engine, mkt, timeline, expiry)
	outcome, err := controller.Run(ctx, expiry, preferred, reentries, play)
	if err != nil {
		return nil, err
	}
	res.Outcome = outcome

	legs := outcome.Legs()
	if len(legs) == 0 {
		res.NoTrade = noTradeAttempt(outcome)
		return res, nil
	}

	// 6. Materialize the ledger and evaluate the portfolio
	rows, err := ledger.Materialize(legs)
	if err != nil {
		return nil, err
	}
	res.Rows = rows
	res.Portfolio = evaluator.Evaluate(legs)
	if r.metrics {
		r.record(cfg, outcome, res.Portfolio)
	}

	// 7. Persist rows, threshold events and PnL snapshots
	if err := r.persist(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// playRound builds the callback the controller uses to play one round.
func (r *Runner) playRound(cfg domain.StrategyConfig, engine *lifecycle.Engine, mkt market, timeline []time.Time, expiry time.Time) reentry.RoundFunc {
	return func(ctx context.Context, req reentry.Request) (*lifecycle.Round, error) {
		ot := req.Event.Direction.OptionType()
		round := &lifecycle.Round{
			Number:     req.Number,
			Event:      req.Event,
			Symbol:     cfg.UnderlyingSymbol(),
			Expiry:     domain.TruncateDate(expiry),
			OptionType: ot,
			EntryTime:  req.EntryTime,
			Quantity:   cfg.Quantity(),
		}

		snapshot := mkt.Snapshot(req.EntryTime, ot)
		sel, selErr := selection.SelectRound(req.Event, cfg, snapshot, mkt.Spot(req.EntryTime), req.Exclude)
		if errors.Is(selErr, selection.ErrNoQuotes) {
			return round, &selection.InsufficientLiquidityError{LegType: domain.LegTypeEntry, Wanted: cfg.NumEntryLegs}
		}
		if len(sel.Entries) == 0 {
			return round, selErr
		}

		for _, p := range sel.Entries {
			r.open(engine, round, p, domain.LegTypeEntry, domain.TransactionBuy)
		}
		for _, p := range sel.Hedges {
			r.open(engine, round, p, domain.LegTypeHedge, domain.TransactionSell)
		}

		coordinator := hedge.NewCoordinator(cfg, engine, mkt)
		last := req.EntryTime
		for _, t := range timeline {
			if !t.After(req.EntryTime) {
				continue
			}
			if !round.Open() {
				break
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			last = t
			if _, err := engine.Step(round, t); err != nil {
				return nil, fmt.Errorf("lifecycle at %s: %w", t.Format(domain.ClockLayout), err)
			}
			if _, err := coordinator.Step(round, t); err != nil {
				return nil, fmt.Errorf("hedge at %s: %w", t.Format(domain.ClockLayout), err)
			}
		}
		if round.Open() {
			if _, err := engine.Finish(round, last); err != nil {
				return nil, err
			}
		}
		return round, selErr
	}
}

func (r *Runner) open(engine *lifecycle.Engine, round *lifecycle.Round, p selection.Pick, legType domain.LegType, tx domain.TransactionType) {
	leg := domain.NewLeg(
		round.Key(p.Strike(), legType), round.Symbol, tx, domain.LegOriginPrimary,
		round.Quantity, round.Event.CandleTime, round.EntryTime, p.Price,
	)
	round.Positions = append(round.Positions, engine.Open(leg))
}

func noTradeAttempt(outcome *reentry.Outcome) *ledger.Attempt {
	if len(outcome.Shortfalls) > 0 {
		return &ledger.Attempt{
			Reason: domain.NoTradeInsufficientLiquidity,
			Detail: errors.Join(outcome.Shortfalls...).Error(),
		}
	}
	if outcome.Stop == reentry.StopEOD {
		return &ledger.Attempt{Reason: domain.NoTradeNoBreakout, Detail: "first entry at or after eod_time"}
	}
	return &ledger.Attempt{Reason: domain.NoTradeNoBreakout}
}

func (r *Runner) record(cfg domain.StrategyConfig, outcome *reentry.Outcome, pf *portfolio.Result) {
	for _, round := range outcome.Rounds {
		var entries, hedges int
		for _, l := range round.Legs() {
			observability.RecordLegClosed(string(l.ExitReason), string(l.LegType))
			if l.Origin != domain.LegOriginPrimary {
				continue
			}
			if l.LegType == domain.LegTypeEntry {
				entries++
			} else {
				hedges++
			}
		}
		observability.RecordRound(entries < cfg.NumEntryLegs || hedges < cfg.NumHedgeLegs)
	}
	for _, ev := range pf.Events {
		observability.RecordThreshold(string(ev.Kind))
	}
}

func (r *Runner) purge(ctx context.Context, strategy string, tradeDate time.Time) error {
	if r.legBook != nil {
		if err := r.legBook.Purge(ctx, strategy, tradeDate); err != nil {
			return fmt.Errorf("purge leg book: %w", err)
		}
	}
	if r.results != nil {
		if err := r.results.Purge(ctx, strategy, tradeDate); err != nil {
			return fmt.Errorf("purge results: %w", err)
		}
	}
	if r.pnlStore != nil {
		if err := r.pnlStore.Purge(ctx, strategy, tradeDate); err != nil {
			return fmt.Errorf("purge pnl snapshots: %w", err)
		}
	}
	return nil
}

func (r *Runner) persist(ctx context.Context, res *UnitResult) error {
	if r.results != nil {
		if err := r.results.WriteResults(ctx, res.Rows); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
		if len(res.Portfolio.Events) > 0 {
			if err := r.results.WriteThresholdEvents(ctx, res.Portfolio.Events); err != nil {
				return fmt.Errorf("write threshold events: %w", err)
			}
		}
	}
	if r.pnlStore != nil && len(res.Portfolio.Records) > 0 {
		if err := r.pnlStore.InsertBulk(ctx, res.Portfolio.Records); err != nil {
			return fmt.Errorf("write pnl snapshots: %w", err)
		}
	}
	return nil
}
