// Package lifecycle drives open option legs through their exit state machine.
package lifecycle

import (
	"time"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/stoploss"
)

// Position is an open or closed leg with its stop-loss state.
type Position struct {
	Leg     *domain.Leg
	tracker stoploss.Tracker
}

// Round is one entry round: the breakout that started it and every leg it opened.
type Round struct {
	Number     int
	Event      *domain.BreakoutEvent
	Symbol     string
	Expiry     time.Time
	OptionType domain.OptionType
	EntryTime  time.Time
	Quantity   int

	Positions []*Position
}

// Key builds the leg key of a strike in this round.
func (r *Round) Key(strike float64, legType domain.LegType) domain.LegKey {
	return domain.LegKey{
		Strategy:   r.Event.Strategy,
		TradeDate:  r.Event.TradeDate,
		ExpiryDate: r.Expiry,
		Strike:     strike,
		OptionType: r.OptionType,
		EntryRound: r.Number,
		LegType:    legType,
	}
}

// Legs returns the round's legs in opening order.
func (r *Round) Legs() []*domain.Leg {
	out := make([]*domain.Leg, len(r.Positions))
	for i, p := range r.Positions {
		out[i] = p.Leg
	}
	return out
}

func (r *Round) filter(keep func(*domain.Leg) bool) []*Position {
	var out []*Position
	for _, p := range r.Positions {
		if keep(p.Leg) {
			out = append(out, p)
		}
	}
	return out
}

// Entries returns every entry position, double-buy legs included.
func (r *Round) Entries() []*Position {
	return r.filter(func(l *domain.Leg) bool { return l.LegType == domain.LegTypeEntry })
}

// PrimaryEntries returns the entry positions opened at the round's start.
func (r *Round) PrimaryEntries() []*Position {
	return r.filter(func(l *domain.Leg) bool {
		return l.LegType == domain.LegTypeEntry && l.Origin == domain.LegOriginPrimary
	})
}

// Hedges returns every hedge position, rehedges included.
func (r *Round) Hedges() []*Position {
	return r.filter(func(l *domain.Leg) bool { return l.LegType == domain.LegTypeHedge })
}

// OpenEntries returns entry positions still open.
func (r *Round) OpenEntries() []*Position {
	return r.filter(func(l *domain.Leg) bool { return l.LegType == domain.LegTypeEntry && l.IsOpen() })
}

// OpenHedges returns hedge positions still open.
func (r *Round) OpenHedges() []*Position {
	return r.filter(func(l *domain.Leg) bool { return l.LegType == domain.LegTypeHedge && l.IsOpen() })
}

// Open reports whether any leg of the round is still open.
func (r *Round) Open() bool {
	for _, p := range r.Positions {
		if p.Leg.IsOpen() {
			return true
		}
	}
	return false
}

// EntriesSettled reports whether every entry leg is closed.
func (r *Round) EntriesSettled() bool {
	return len(r.OpenEntries()) == 0
}

// SettleTime returns the last entry-leg exit, the instant the round's
// entries were all closed. Zero while any entry is open.
func (r *Round) SettleTime() time.Time {
	var last time.Time
	for _, p := range r.Entries() {
		if p.Leg.IsOpen() {
			return time.Time{}
		}
		if p.Leg.ExitTime.After(last) {
			last = p.Leg.ExitTime
		}
	}
	return last
}

// LastClosedHedge returns the most recently closed hedge leg, nil if none.
func (r *Round) LastClosedHedge() *domain.Leg {
	var last *domain.Leg
	for _, p := range r.Hedges() {
		if p.Leg.IsOpen() {
			continue
		}
		if last == nil || !p.Leg.ExitTime.Before(last.ExitTime) {
			last = p.Leg
		}
	}
	return last
}

// UsedStrikes returns the strikes a leg type has used in this round.
func (r *Round) UsedStrikes(legType domain.LegType) map[float64]bool {
	out := make(map[float64]bool)
	for _, p := range r.Positions {
		if p.Leg.LegType == legType {
			out[p.Leg.Strike] = true
		}
	}
	return out
}
