// Package breakout flags Heikin-Ashi big candles whose directional move
// consumes at least a threshold share of the candle's range.
package breakout

import (
	"sort"
	"time"

	"options-breakout-lab/internal/candles"
	"options-breakout-lab/internal/domain"
)

// Detector finds breakout events on a Heikin-Ashi big-candle stream.
type Detector struct {
	Strategy     string
	Type         string  // full_candle_breakout | wick_breakout
	ThresholdPct float64 // e.g. 60 = 60% of the range
	BigTF        candles.Timeframe
}

// NewDetector creates a detector for one breakout type of a strategy.
func NewDetector(cfg domain.StrategyConfig, breakoutType string) *Detector {
	return &Detector{
		Strategy:     cfg.StrategyName,
		Type:         breakoutType,
		ThresholdPct: cfg.BreakoutThresholdPct,
		BigTF:        candles.Timeframe(cfg.BigCandleTF),
	}
}

// Detect returns the qualifying events of a trade date, ranked.
func (d *Detector) Detect(tradeDate time.Time, ha []*domain.HeikinAshiCandle) []*domain.BreakoutEvent {
	var events []*domain.BreakoutEvent

	for _, c := range ha {
		dir, magnitude, ok := Measure(c, d.Type)
		if !ok || magnitude < d.ThresholdPct {
			continue
		}
		events = append(events, &domain.BreakoutEvent{
			Strategy:     d.Strategy,
			TradeDate:    tradeDate,
			CandleTime:   c.Time,
			CloseTime:    c.Time.Add(d.BigTF.Duration()),
			Direction:    dir,
			Type:         d.Type,
			MagnitudePct: magnitude,
		})
	}

	Rank(events)
	return events
}

// Measure returns the candle direction and the share of its range (in percent)
// consumed by the directional move. ok is false for doji or zero-range candles.
func Measure(c *domain.HeikinAshiCandle, breakoutType string) (domain.Direction, float64, bool) {
	rng := c.Range()
	if rng <= 0 || c.HAClose == c.HAOpen {
		return "", 0, false
	}

	dir := domain.DirectionUp
	if c.HAClose < c.HAOpen {
		dir = domain.DirectionDown
	}

	var move float64
	switch breakoutType {
	case domain.BreakoutTypeWick:
		if dir == domain.DirectionUp {
			move = c.HAClose - c.HALow
		} else {
			move = c.HAHigh - c.HAClose
		}
	default:
		move = c.HAClose - c.HAOpen
		if move < 0 {
			move = -move
		}
	}

	return dir, move / rng * 100, true
}

// Rank orders events by close time, then larger magnitude, then up before down,
// and assigns 1-based round_rank.
func Rank(events []*domain.BreakoutEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.CloseTime.Equal(b.CloseTime) {
			return a.CloseTime.Before(b.CloseTime)
		}
		if a.MagnitudePct != b.MagnitudePct {
			return a.MagnitudePct > b.MagnitudePct
		}
		return a.Direction == domain.DirectionUp && b.Direction != domain.DirectionUp
	})
	for i, e := range events {
		e.RoundRank = i + 1
	}
}

// Next returns the first ranked event closing strictly after the given instant,
// or nil when none exists.
func Next(events []*domain.BreakoutEvent, after time.Time) *domain.BreakoutEvent {
	for _, e := range events {
		if e.CloseTime.After(after) {
			return e
		}
	}
	return nil
}

// First returns the round-1 event, or nil.
func First(events []*domain.BreakoutEvent) *domain.BreakoutEvent {
	if len(events) == 0 {
		return nil
	}
	return events[0]
}
