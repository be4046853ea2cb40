// Package portfolio marks a trade date's legs to market and detects the
// portfolio profit-target and stop-loss crossings.
package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"options-breakout-lab/internal/domain"
)

// Marks resolves the latest option bar at or before t.
type Marks interface {
	LastAt(strike float64, ot domain.OptionType, t time.Time) (*domain.OptionQuote, error)
}

// Result holds a unit's PnL path and threshold crossings.
type Result struct {
	Records []*domain.PortfolioPnLRecord // intraday ticks, then one settled record
	Events  []*domain.PortfolioThresholdEvent
}

// Settled returns the end-of-day record, nil when no leg was opened.
func (r *Result) Settled() *domain.PortfolioPnLRecord {
	if len(r.Records) == 0 {
		return nil
	}
	last := r.Records[len(r.Records)-1]
	if !last.Settled {
		return nil
	}
	return last
}

// Evaluator computes portfolio PnL over a one-minute timeline.
type Evaluator struct {
	strategy  string
	tradeDate time.Time
	target    decimal.Decimal
	stop      decimal.Decimal
	marks     Marks
	timeline  []time.Time
}

// NewEvaluator creates an evaluator for one unit. timeline is the ascending
// list of one-minute index bar times.
func NewEvaluator(cfg domain.StrategyConfig, tradeDate time.Time, marks Marks, timeline []time.Time) *Evaluator {
	target, stop := Thresholds(cfg)
	return &Evaluator{
		strategy:  cfg.StrategyName,
		tradeDate: domain.TruncateDate(tradeDate),
		target:    target,
		stop:      stop,
		marks:     marks,
		timeline:  timeline,
	}
}

// Thresholds returns the profit target and the stop-loss amount (positive)
// implied by portfolio_capital.
func Thresholds(cfg domain.StrategyConfig) (target, stop decimal.Decimal) {
	capital := decimal.NewFromFloat(cfg.PortfolioCapital)
	hundred := decimal.NewFromInt(100)
	target = capital.Mul(decimal.NewFromFloat(cfg.PortfolioProfitTargetPct)).Div(hundred).Round(2)
	stop = capital.Mul(decimal.NewFromFloat(cfg.PortfolioStopLossPct)).Div(hundred).Round(2)
	return target, stop
}

// MTM returns the mark-to-market and realized PnL of legs at t. Legs entered
// after t are ignored. An open leg without a bar yet is valued at entry.
func (e *Evaluator) MTM(legs []*domain.Leg, t time.Time) (mtm, realized decimal.Decimal) {
	unrealized := decimal.Zero
	realized = decimal.Zero
	for _, l := range legs {
		if l.EntryTime.After(t) {
			continue
		}
		if !l.IsOpen() && !l.ExitTime.After(t) {
			realized = realized.Add(l.RealizedPnL())
			continue
		}
		q, err := e.marks.LastAt(l.Strike, l.OptionType, t)
		if err != nil {
			continue
		}
		unrealized = unrealized.Add(l.PnLAt(q.Close))
	}
	return realized.Add(unrealized), realized
}

// Evaluate emits one record per timeline tick from the first entry to the
// last exit, a settled record at the last exit, and the first crossing of
// each threshold.
func (e *Evaluator) Evaluate(legs []*domain.Leg) *Result {
	res := &Result{}
	if len(legs) == 0 {
		return res
	}
	first, last := span(legs)

	var hitTarget, hitStop bool
	check := func(t time.Time, mtm decimal.Decimal) {
		if !hitTarget && mtm.GreaterThanOrEqual(e.target) {
			hitTarget = true
			res.Events = append(res.Events, e.event(t, domain.ThresholdProfitTarget, mtm, e.target))
		}
		if !hitStop && mtm.LessThanOrEqual(e.stop.Neg()) {
			hitStop = true
			res.Events = append(res.Events, e.event(t, domain.ThresholdStopLoss, mtm, e.stop))
		}
	}

	for _, t := range e.timeline {
		if t.Before(first) || t.After(last) {
			continue
		}
		mtm, realized := e.MTM(legs, t)
		res.Records = append(res.Records, e.record(t, mtm, realized, false))
		check(t, mtm)
	}

	mtm, realized := e.MTM(legs, last)
	res.Records = append(res.Records, e.record(last, mtm, realized, true))
	check(last, mtm)
	return res
}

// Crossed reports whether either threshold was crossed at any tick up to and
// including until.
func (e *Evaluator) Crossed(legs []*domain.Leg, until time.Time) bool {
	if len(legs) == 0 {
		return false
	}
	first, _ := span(legs)
	for _, t := range e.timeline {
		if t.After(until) {
			break
		}
		if t.Before(first) {
			continue
		}
		mtm, _ := e.MTM(legs, t)
		if mtm.GreaterThanOrEqual(e.target) || mtm.LessThanOrEqual(e.stop.Neg()) {
			return true
		}
	}
	return false
}

func span(legs []*domain.Leg) (first, last time.Time) {
	for i, l := range legs {
		if i == 0 || l.EntryTime.Before(first) {
			first = l.EntryTime
		}
		end := l.ExitTime
		if l.IsOpen() {
			end = l.EntryTime
		}
		if end.After(last) {
			last = end
		}
	}
	return first, last
}

func (e *Evaluator) record(t time.Time, mtm, realized decimal.Decimal, settled bool) *domain.PortfolioPnLRecord {
	return &domain.PortfolioPnLRecord{
		Strategy:    e.strategy,
		TradeDate:   e.tradeDate,
		Timestamp:   t,
		MTMPnL:      mtm,
		RealizedPnL: realized,
		Settled:     settled,
	}
}

func (e *Evaluator) event(t time.Time, kind domain.ThresholdKind, pnl, threshold decimal.Decimal) *domain.PortfolioThresholdEvent {
	return &domain.PortfolioThresholdEvent{
		Strategy:  e.strategy,
		TradeDate: e.tradeDate,
		Time:      t,
		Kind:      kind,
		PnL:       pnl,
		Threshold: threshold,
	}
}
