// Package reentry runs the bounded loop of entry rounds for one trade date.
package reentry

import (
	"context"
	"fmt"
	"time"

	"options-breakout-lab/internal/breakout"
	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/lifecycle"
	"options-breakout-lab/internal/selection"
	"options-breakout-lab/internal/storage"
)

// StopReason explains why the loop ended.
type StopReason string

// Stop reasons.
const (
	StopNoBreakout StopReason = "no_breakout"
	StopMaxRounds  StopReason = "max_rounds"
	StopEOD        StopReason = "eod"
	StopHalted     StopReason = "halted"
)

// Request is one round the controller asks the caller to play.
type Request struct {
	Number    int
	Event     *domain.BreakoutEvent
	EntryTime time.Time
	Exclude   map[float64]bool // entry strikes barred by the LegBook
}

// RoundFunc selects strikes, opens the legs and monitors them to the end of
// the day. A round with no entry legs is treated as not taken.
// An *selection.InsufficientLiquidityError is recorded, not fatal.
type RoundFunc func(ctx context.Context, req Request) (*lifecycle.Round, error)

// HaltFunc reports whether the portfolio of legs crossed a threshold at or
// before t.
type HaltFunc func(legs []*domain.Leg, t time.Time) bool

// Outcome is the result of a trade date's rounds.
type Outcome struct {
	Rounds     []*lifecycle.Round
	Skipped    []*domain.BreakoutEvent // events whose round filled no entry leg
	Shortfalls []error
	Stop       StopReason
}

// Legs returns every leg across rounds in round order.
func (o *Outcome) Legs() []*domain.Leg {
	var legs []*domain.Leg
	for _, r := range o.Rounds {
		legs = append(legs, r.Legs()...)
	}
	return legs
}

// Controller drives rounds 1..max_reentry_rounds+1.
type Controller struct {
	cfg    domain.StrategyConfig
	book   storage.LegBookStore
	halted HaltFunc
	eod    time.Time
}

// NewController creates a controller for one (strategy, trade_date) unit.
// halted may be nil.
func NewController(cfg domain.StrategyConfig, tradeDate time.Time, book storage.LegBookStore, halted HaltFunc) *Controller {
	return &Controller{
		cfg:    cfg,
		book:   book,
		halted: halted,
		eod:    cfg.EODAt(tradeDate),
	}
}

// EntryTime returns the entry instant of a breakout: the close of the big
// candle plus entry_candle-1 small candles.
func EntryTime(ev *domain.BreakoutEvent, cfg domain.StrategyConfig) time.Time {
	return ev.CloseTime.Add(time.Duration(cfg.EntryCandle-1) * time.Duration(cfg.SmallCandleTF) * time.Minute)
}

// Run plays round 1 on the first preferred event and further rounds on
// reentry events closing after the previous round settled.
func (c *Controller) Run(ctx context.Context, expiry time.Time, preferred, reentry []*domain.BreakoutEvent, play RoundFunc) (*Outcome, error) {
	out := &Outcome{}
	candidates := preferred
	ev := breakout.First(preferred)

	for n := 1; ; {
		if ev == nil {
			out.Stop = StopNoBreakout
			return out, nil
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		entry := EntryTime(ev, c.cfg)
		if !entry.Before(c.eod) {
			out.Stop = StopEOD
			return out, nil
		}
		if n > 1 && c.cfg.HaltOnPortfolioThreshold && c.halted != nil && c.halted(out.Legs(), entry) {
			out.Stop = StopHalted
			return out, nil
		}

		exclude, err := c.exclusions(ctx, n, ev, expiry)
		if err != nil {
			return out, err
		}

		round, err := play(ctx, Request{Number: n, Event: ev, EntryTime: entry, Exclude: exclude})
		if err != nil {
			if !selection.IsInsufficientLiquidity(err) {
				return out, fmt.Errorf("round %d: %w", n, err)
			}
			out.Shortfalls = append(out.Shortfalls, err)
		}

		if round == nil || len(round.Entries()) == 0 {
			out.Skipped = append(out.Skipped, ev)
			ev = breakout.Next(candidates, entry)
			continue
		}

		if err := c.record(ctx, round); err != nil {
			return out, err
		}
		out.Rounds = append(out.Rounds, round)

		if n+1 > c.cfg.MaxRounds() {
			out.Stop = StopMaxRounds
			return out, nil
		}
		settle := round.SettleTime()
		if settle.IsZero() {
			return out, fmt.Errorf("round %d: entries left open", n)
		}
		n++
		candidates = reentry
		ev = breakout.Next(candidates, settle)
	}
}

// exclusions returns the entry strikes stopped out in earlier rounds of the
// same expiry and option type.
func (c *Controller) exclusions(ctx context.Context, n int, ev *domain.BreakoutEvent, expiry time.Time) (map[float64]bool, error) {
	exclude := make(map[float64]bool)
	if n == 1 || c.cfg.AllowSameStrikeReentry || c.book == nil {
		return exclude, nil
	}

	entries, err := c.book.GetByStrategyDate(ctx, ev.Strategy, ev.TradeDate)
	if err != nil {
		return nil, fmt.Errorf("load leg book: %w", err)
	}
	ot := ev.Direction.OptionType()
	for _, e := range entries {
		if e.EntryRound >= n || e.OptionType != ot || e.LegType != domain.LegTypeEntry {
			continue
		}
		if !domain.TruncateDate(e.ExpiryDate).Equal(domain.TruncateDate(expiry)) {
			continue
		}
		exclude[e.Strike] = true
	}
	return exclude, nil
}

// record appends the round's stopped-out entry legs to the LegBook.
func (c *Controller) record(ctx context.Context, r *lifecycle.Round) error {
	if c.book == nil {
		return nil
	}
	for _, p := range r.Entries() {
		if p.Leg.ExitReason != domain.ExitReasonSL {
			continue
		}
		if _, err := c.book.Append(ctx, domain.NewLegBookEntry(p.Leg)); err != nil {
			return fmt.Errorf("append leg book %s: %w", p.Leg.LegKey, err)
		}
	}
	return nil
}
