// Package selection picks option strikes for entry and hedge legs from a
// chain snapshot at the entry instant.
package selection

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"options-breakout-lab/internal/domain"
)

// ErrNoQuotes is returned when the snapshot holds no usable quote.
var ErrNoQuotes = errors.New("no quotes in chain snapshot")

// InsufficientLiquidityError reports fewer candidates under the price cap
// than legs requested. The selection still carries what was found.
type InsufficientLiquidityError struct {
	LegType domain.LegType
	Wanted  int
	Got     int
}

func (e *InsufficientLiquidityError) Error() string {
	return fmt.Sprintf("insufficient liquidity: wanted %d %s legs under cap, found %d", e.Wanted, e.LegType, e.Got)
}

// IsInsufficientLiquidity reports whether err is (or wraps) an InsufficientLiquidityError.
func IsInsufficientLiquidity(err error) bool {
	var il *InsufficientLiquidityError
	return errors.As(err, &il)
}

// Pick is a chosen strike and its entry quote.
type Pick struct {
	Quote *domain.OptionQuote
	Price float64
}

// Strike returns the picked strike.
func (p Pick) Strike() float64 { return p.Quote.Strike }

// Request describes one ranking pass.
type Request struct {
	Snapshot []*domain.OptionQuote // quotes of one option type at the entry instant
	Cap      float64               // inclusive premium cap
	Count    int
	Spot     float64          // index level at the entry instant
	Exclude  map[float64]bool // strikes that may not be chosen
	LegType  domain.LegType
}

// Rank returns every eligible quote ordered best first: price closest to the
// cap from below, then strike nearest the spot, then lower strike.
func Rank(snapshot []*domain.OptionQuote, cap, spot float64, exclude map[float64]bool) []Pick {
	var picks []Pick
	for _, q := range snapshot {
		if q == nil || q.Close <= 0 || q.Close > cap || exclude[q.Strike] {
			continue
		}
		picks = append(picks, Pick{Quote: q, Price: q.Close})
	}

	sort.SliceStable(picks, func(i, j int) bool {
		di, dj := cap-picks[i].Price, cap-picks[j].Price
		if di != dj {
			return di < dj
		}
		si, sj := math.Abs(picks[i].Strike()-spot), math.Abs(picks[j].Strike()-spot)
		if si != sj {
			return si < sj
		}
		return picks[i].Strike() < picks[j].Strike()
	})
	return picks
}

// Select returns the top Count picks. When fewer exist it returns them with
// an *InsufficientLiquidityError; never more than Count.
func Select(req Request) ([]Pick, error) {
	if req.Count <= 0 {
		return nil, nil
	}
	if len(req.Snapshot) == 0 {
		return nil, ErrNoQuotes
	}

	picks := Rank(req.Snapshot, req.Cap, req.Spot, req.Exclude)
	if len(picks) < req.Count {
		return picks, &InsufficientLiquidityError{LegType: req.LegType, Wanted: req.Count, Got: len(picks)}
	}
	return picks[:req.Count], nil
}

// Selection is the outcome of a round's strike selection.
type Selection struct {
	OptionType domain.OptionType
	Entries    []Pick
	Hedges     []Pick
}

// SelectRound picks num_entry_legs entry strikes under the entry cap and then
// num_hedge_legs hedge strikes of the same option type under the hedge cap,
// excluding the chosen entry strikes. Shortfalls are reported as
// *InsufficientLiquidityError (joined when both sides are short) alongside
// the partial selection.
func SelectRound(ev *domain.BreakoutEvent, cfg domain.StrategyConfig, snapshot []*domain.OptionQuote, spot float64, exclude map[float64]bool) (*Selection, error) {
	sel := &Selection{OptionType: ev.Direction.OptionType()}

	entries, entryErr := Select(Request{
		Snapshot: snapshot,
		Cap:      cfg.OptionEntryPriceCap,
		Count:    cfg.NumEntryLegs,
		Spot:     spot,
		Exclude:  exclude,
		LegType:  domain.LegTypeEntry,
	})
	if errors.Is(entryErr, ErrNoQuotes) {
		return sel, entryErr
	}
	sel.Entries = entries

	hedgeExclude := make(map[float64]bool, len(entries))
	for _, p := range entries {
		hedgeExclude[p.Strike()] = true
	}

	hedges, hedgeErr := Select(Request{
		Snapshot: snapshot,
		Cap:      cfg.HedgeEntryPriceCap,
		Count:    cfg.NumHedgeLegs,
		Spot:     spot,
		Exclude:  hedgeExclude,
		LegType:  domain.LegTypeHedge,
	})
	sel.Hedges = hedges

	return sel, errors.Join(entryErr, hedgeErr)
}

// SelectHedge picks one replacement hedge under the hedge cap, excluding the
// given strikes. Returns *InsufficientLiquidityError when nothing qualifies.
func SelectHedge(cfg domain.StrategyConfig, snapshot []*domain.OptionQuote, spot float64, exclude map[float64]bool) (Pick, error) {
	picks, err := Select(Request{
		Snapshot: snapshot,
		Cap:      cfg.HedgeEntryPriceCap,
		Count:    1,
		Spot:     spot,
		Exclude:  exclude,
		LegType:  domain.LegTypeHedge,
	})
	if err != nil {
		return Pick{}, err
	}
	return picks[0], nil
}
