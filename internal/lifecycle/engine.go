package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/lookup"
	"options-breakout-lab/internal/stoploss"
)

// ErrLegClosed is returned when stepping or closing a leg that is already closed.
var ErrLegClosed = domain.ErrLegClosed

// Quotes resolves option bars for a contract of the round's chain.
type Quotes interface {
	// QuoteAt returns the bar starting exactly at t.
	QuoteAt(strike float64, ot domain.OptionType, t time.Time) (*domain.OptionQuote, error)

	// LastAt returns the latest bar starting at or before t.
	LastAt(strike float64, ot domain.OptionType, t time.Time) (*domain.OptionQuote, error)
}

// Engine evaluates stop-loss, profit booking and the end-of-day cut-off.
type Engine struct {
	rule      stoploss.Rule
	profitPct float64
	eod       time.Time
	quotes    Quotes
}

// NewEngine creates an engine for one trade date.
func NewEngine(cfg domain.StrategyConfig, tradeDate time.Time, quotes Quotes) (*Engine, error) {
	rule, err := stoploss.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("stop-loss rule: %w", err)
	}
	return &Engine{
		rule:      rule,
		profitPct: cfg.LegProfitPct,
		eod:       cfg.EODAt(tradeDate),
		quotes:    quotes,
	}, nil
}

// EOD returns the end-of-day cut-off.
func (e *Engine) EOD() time.Time {
	return e.eod
}

// Open starts tracking a new leg.
func (e *Engine) Open(leg *domain.Leg) *Position {
	return &Position{Leg: leg, tracker: e.rule.Track()}
}

// Mark returns the leg's latest known price at or before t.
// ok is false when the contract has no bar yet.
func (e *Engine) Mark(leg *domain.Leg, t time.Time) (float64, bool) {
	q, err := e.quotes.LastAt(leg.Strike, leg.OptionType, t)
	if err != nil {
		return 0, false
	}
	return q.Close, true
}

// Step evaluates every open position of the round at bar t.
// Returns the legs closed by this step.
func (e *Engine) Step(r *Round, t time.Time) ([]*domain.Leg, error) {
	var closed []*domain.Leg
	for _, p := range r.Positions {
		ok, err := e.step(p, t)
		if err != nil {
			return closed, err
		}
		if ok {
			closed = append(closed, p.Leg)
		}
	}
	return closed, nil
}

func (e *Engine) step(p *Position, t time.Time) (bool, error) {
	leg := p.Leg
	if !leg.IsOpen() || !t.After(leg.EntryTime) {
		return false, nil
	}

	if !t.Before(e.eod) {
		price, ok := e.eodPrice(leg, t)
		if !ok {
			price = leg.EntryPrice
		}
		return true, leg.Close(t, price, domain.ExitReasonEOD)
	}

	// Stop-loss and profit booking apply to entry legs only.
	if leg.LegType != domain.LegTypeEntry {
		return false, nil
	}

	q, err := e.quotes.QuoteAt(leg.Strike, leg.OptionType, t)
	if err != nil {
		if errors.Is(err, lookup.ErrNoQuoteAtBar) || errors.Is(err, lookup.ErrNoQuoteData) {
			return false, nil
		}
		return false, err
	}

	adverse := leg.AdverseMovePct(q.Close)
	if p.tracker.Observe(adverse) {
		return true, leg.Close(t, q.Close, domain.ExitReasonSL)
	}
	if -adverse >= e.profitPct {
		return true, leg.Close(t, q.Close, domain.ExitReasonProfit)
	}
	return false, nil
}

// eodPrice is the open of the bar at the cut-off, or the latest close before it.
func (e *Engine) eodPrice(leg *domain.Leg, t time.Time) (float64, bool) {
	if q, err := e.quotes.QuoteAt(leg.Strike, leg.OptionType, t); err == nil {
		return q.Open, true
	}
	return e.Mark(leg, t)
}

// Finish closes legs still open when the data ends before the cut-off,
// at the last known quote with exit_reason none.
func (e *Engine) Finish(r *Round, last time.Time) ([]*domain.Leg, error) {
	var closed []*domain.Leg
	for _, p := range r.Positions {
		leg := p.Leg
		if !leg.IsOpen() {
			continue
		}
		at := last
		if at.Before(leg.EntryTime) {
			at = leg.EntryTime
		}
		price, ok := e.Mark(leg, at)
		if !ok {
			price = leg.EntryPrice
		}
		if err := leg.Close(at, price, domain.ExitReasonNone); err != nil {
			return closed, err
		}
		closed = append(closed, leg)
	}
	return closed, nil
}

// Close force-closes a position at the latest quote at t, used by the hedge
// coordinator.
func (e *Engine) Close(p *Position, t time.Time, reason domain.ExitReason) error {
	if !p.Leg.IsOpen() {
		return fmt.Errorf("%s: %w", p.Leg.LegKey, ErrLegClosed)
	}
	price, ok := e.Mark(p.Leg, t)
	if !ok {
		price = p.Leg.EntryPrice
	}
	return p.Leg.Close(t, price, reason)
}
