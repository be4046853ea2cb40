// Package hedge coordinates hedge-leg exits, rehedges and the double-buy variant.
package hedge

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/lifecycle"
	"options-breakout-lab/internal/selection"
)

// Market is the view of the trade date the coordinator needs.
type Market interface {
	lifecycle.Quotes

	// Snapshot returns every contract of the option type with a bar at t.
	Snapshot(t time.Time, ot domain.OptionType) []*domain.OptionQuote

	// Spot returns the index level at t.
	Spot(t time.Time) float64
}

// Actions lists the legs a coordinator step opened and closed.
type Actions struct {
	Opened []*domain.Leg
	Closed []*domain.Leg
}

// Empty reports whether the step changed nothing.
func (a Actions) Empty() bool {
	return len(a.Opened) == 0 && len(a.Closed) == 0
}

// Coordinator holds one round's hedge state.
type Coordinator struct {
	cfg    domain.StrategyConfig
	engine *lifecycle.Engine
	market Market

	doubleBought bool
	rehedges     int
}

// NewCoordinator creates a coordinator for one round.
func NewCoordinator(cfg domain.StrategyConfig, engine *lifecycle.Engine, market Market) *Coordinator {
	return &Coordinator{cfg: cfg, engine: engine, market: market}
}

// Rehedges returns the number of replacement hedges opened so far.
func (c *Coordinator) Rehedges() int {
	return c.rehedges
}

// Step applies the hedge rules at tick t, after the lifecycle engine has
// evaluated the same tick. Ticks at or after the cut-off are left to the
// engine's EOD close.
func (c *Coordinator) Step(r *lifecycle.Round, t time.Time) (Actions, error) {
	var acts Actions
	if !t.Before(c.engine.EOD()) {
		return acts, nil
	}

	primaries := r.PrimaryEntries()
	slHit := stopped(primaries)

	if len(primaries) > 0 && len(slHit) == len(primaries) {
		closed, err := c.closeHedges(r, t, domain.ExitReasonHedgeTriggered)
		acts.Closed = closed
		return acts, err
	}

	if c.partialExit(r, t, primaries, slHit) {
		reason := domain.ExitReasonHedgeTriggered
		if c.cfg.DoubleBuyEnabled {
			reason = domain.ExitReasonDoubleBuy
		}
		closed, err := c.closeHedges(r, t, reason)
		acts.Closed = closed
		if err != nil {
			return acts, err
		}
		if c.cfg.DoubleBuyEnabled && !c.doubleBought {
			c.doubleBought = true
			acts.Opened = append(acts.Opened, c.doubleBuy(r, t, slHit)...)
		}
	}

	if leg := c.rehedge(r, t); leg != nil {
		acts.Opened = append(acts.Opened, leg)
	}
	return acts, nil
}

func stopped(positions []*lifecycle.Position) []*lifecycle.Position {
	var out []*lifecycle.Position
	for _, p := range positions {
		if p.Leg.ExitReason == domain.ExitReasonSL {
			out = append(out, p)
		}
	}
	return out
}

// partialExit reports whether enough entries stopped out and the open hedges
// gained enough to cover the realized loss.
func (c *Coordinator) partialExit(r *lifecycle.Round, t time.Time, primaries, slHit []*lifecycle.Position) bool {
	if len(primaries) == 0 || len(slHit) == 0 {
		return false
	}
	ratio := float64(len(slHit)) / float64(len(primaries)) * 100
	if ratio < c.cfg.HedgeExitEntryRatio {
		return false
	}

	open := r.OpenHedges()
	if len(open) == 0 {
		return false
	}

	loss := decimal.Zero
	for _, p := range slHit {
		loss = loss.Sub(p.Leg.RealizedPnL())
	}
	if !loss.IsPositive() {
		return false
	}

	gain := decimal.Zero
	for _, p := range open {
		price, ok := c.engine.Mark(p.Leg, t)
		if !ok {
			continue
		}
		gain = gain.Add(p.Leg.PnLAt(price))
	}
	return gain.GreaterThanOrEqual(loss.Mul(decimal.NewFromFloat(c.cfg.HedgeExitMultiplier)))
}

func (c *Coordinator) closeHedges(r *lifecycle.Round, t time.Time, reason domain.ExitReason) ([]*domain.Leg, error) {
	var closed []*domain.Leg
	for _, p := range r.OpenHedges() {
		if err := c.engine.Close(p, t, reason); err != nil {
			return closed, fmt.Errorf("close hedge %s: %w", p.Leg.LegKey, err)
		}
		closed = append(closed, p.Leg)
	}
	return closed, nil
}

// doubleBuy re-opens a BUY entry at every stopped strike at the current quote.
// Strikes without a bar at t are skipped.
func (c *Coordinator) doubleBuy(r *lifecycle.Round, t time.Time, slHit []*lifecycle.Position) []*domain.Leg {
	var opened []*domain.Leg
	for _, p := range slHit {
		q, err := c.market.QuoteAt(p.Leg.Strike, p.Leg.OptionType, t)
		if err != nil || q.Close <= 0 {
			continue
		}
		leg := domain.NewLeg(
			p.Leg.LegKey, r.Symbol, domain.TransactionBuy, domain.LegOriginDoubleBuy,
			p.Leg.Quantity, r.Event.CandleTime, t, q.Close,
		)
		r.Positions = append(r.Positions, c.engine.Open(leg))
		opened = append(opened, leg)
	}
	return opened
}

// rehedge opens a replacement hedge when the previous one closed in profit
// and the open entries are losing at least rehedge_trigger_pct.
func (c *Coordinator) rehedge(r *lifecycle.Round, t time.Time) *domain.Leg {
	if !c.cfg.RehedgeEnabled || c.rehedges >= c.cfg.MaxRehedges {
		return nil
	}
	if len(r.OpenHedges()) > 0 {
		return nil
	}
	last := r.LastClosedHedge()
	if last == nil || !last.RealizedPnL().IsPositive() {
		return nil
	}
	if c.entryLossPct(r, t) < c.cfg.RehedgeTriggerPct {
		return nil
	}

	exclude := r.UsedStrikes(domain.LegTypeHedge)
	for s := range r.UsedStrikes(domain.LegTypeEntry) {
		exclude[s] = true
	}
	pick, err := selection.SelectHedge(c.cfg, c.market.Snapshot(t, r.OptionType), c.market.Spot(t), exclude)
	if err != nil {
		// Nothing under the cap at this tick; a later tick may qualify.
		return nil
	}

	leg := domain.NewLeg(
		r.Key(pick.Strike(), domain.LegTypeHedge), r.Symbol, domain.TransactionSell, domain.LegOriginRehedge,
		r.Quantity, r.Event.CandleTime, t, pick.Price,
	)
	r.Positions = append(r.Positions, c.engine.Open(leg))
	c.rehedges++
	return leg
}

// entryLossPct is the open entries' unrealized loss as a percentage of their
// entry premium. Zero when no entry is open.
func (c *Coordinator) entryLossPct(r *lifecycle.Round, t time.Time) float64 {
	open := r.OpenEntries()
	if len(open) == 0 {
		return 0
	}
	var premium, pnl float64
	for _, p := range open {
		price, ok := c.engine.Mark(p.Leg, t)
		if !ok {
			continue
		}
		premium += p.Leg.EntryPrice * float64(p.Leg.Quantity)
		pnl += p.Leg.PointsAt(price) * float64(p.Leg.Quantity)
	}
	if premium == 0 {
		return 0
	}
	return -pnl / premium * 100
}
