package selection

import (
	"errors"
	"testing"
	"time"

	"options-breakout-lab/internal/domain"
)

var entryTime = time.Date(2025, 1, 6, 9, 35, 0, 0, time.UTC)

func snapshot(prices map[float64]float64) []*domain.OptionQuote {
	var out []*domain.OptionQuote
	for strike, price := range prices {
		out = append(out, &domain.OptionQuote{
			OptionContract: domain.OptionContract{Symbol: "NIFTY", Strike: strike, OptionType: domain.OptionTypeCall},
			Time:           entryTime,
			Close:          price,
		})
	}
	return out
}

func strikes(picks []Pick) []float64 {
	out := make([]float64, len(picks))
	for i, p := range picks {
		out[i] = p.Strike()
	}
	return out
}

func TestRank_ClosestToCapFirst(t *testing.T) {
	snap := snapshot(map[float64]float64{
		23400: 95, // above cap
		23450: 80, // at cap, inclusive
		23500: 72,
		23550: 78,
		23600: 40,
		23650: 0, // no price
	})

	got := strikes(Rank(snap, 80, 23500, nil))
	want := []float64{23450, 23550, 23500, 23600}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRank_TiesBySpotThenLowerStrike(t *testing.T) {
	snap := snapshot(map[float64]float64{
		23300: 70,
		23700: 70,
		23450: 70,
	})

	got := strikes(Rank(snap, 80, 23500, nil))
	if got[0] != 23450 {
		t.Errorf("expected strike nearest spot first, got %v", got)
	}
	if got[1] != 23300 || got[2] != 23700 {
		t.Errorf("expected equidistant strikes ordered low to high, got %v", got)
	}
}

func TestSelect_ShortRound(t *testing.T) {
	snap := snapshot(map[float64]float64{23500: 70, 23550: 60, 23600: 120})

	picks, err := Select(Request{Snapshot: snap, Cap: 80, Count: 4, Spot: 23500, LegType: domain.LegTypeEntry})
	var il *InsufficientLiquidityError
	if !errors.As(err, &il) {
		t.Fatalf("expected InsufficientLiquidityError, got %v", err)
	}
	if il.Wanted != 4 || il.Got != 2 {
		t.Errorf("unexpected error detail %+v", il)
	}
	if len(picks) != 2 {
		t.Errorf("short round must keep what was found, got %d picks", len(picks))
	}
}

func TestSelect_NeverMoreThanRequested(t *testing.T) {
	snap := snapshot(map[float64]float64{23500: 70, 23550: 60, 23600: 50, 23650: 40})

	picks, err := Select(Request{Snapshot: snap, Cap: 80, Count: 2, Spot: 23500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(picks) != 2 {
		t.Errorf("expected 2 picks, got %d", len(picks))
	}
}

func TestSelect_EmptySnapshot(t *testing.T) {
	_, err := Select(Request{Count: 1, Cap: 80})
	if !errors.Is(err, ErrNoQuotes) {
		t.Errorf("expected ErrNoQuotes, got %v", err)
	}
}

func TestSelectRound_HedgesExcludeEntries(t *testing.T) {
	cfg := domain.DefaultStrategyConfig()
	cfg.NumEntryLegs = 2
	cfg.NumHedgeLegs = 1
	cfg.OptionEntryPriceCap = 80
	cfg.HedgeEntryPriceCap = 50

	snap := snapshot(map[float64]float64{
		23500: 79,
		23550: 50, // best hedge, but also an entry candidate
		23600: 45,
		23650: 20,
	})
	ev := &domain.BreakoutEvent{Direction: domain.DirectionUp}

	sel, err := SelectRound(ev, cfg, snap, 23500, nil)
	if err != nil {
		t.Fatalf("SelectRound: %v", err)
	}
	if sel.OptionType != domain.OptionTypeCall {
		t.Errorf("up breakout must trade CE, got %s", sel.OptionType)
	}
	if got := strikes(sel.Entries); got[0] != 23500 || got[1] != 23550 {
		t.Errorf("unexpected entries %v", got)
	}
	if len(sel.Hedges) != 1 || sel.Hedges[0].Strike() != 23600 {
		t.Errorf("hedge must skip entry strikes, got %v", strikes(sel.Hedges))
	}
}

func TestSelectRound_ExcludedStrikes(t *testing.T) {
	cfg := domain.DefaultStrategyConfig()
	cfg.NumEntryLegs = 1
	cfg.NumHedgeLegs = 0

	snap := snapshot(map[float64]float64{23500: 79, 23550: 70})
	ev := &domain.BreakoutEvent{Direction: domain.DirectionUp}

	sel, err := SelectRound(ev, cfg, snap, 23500, map[float64]bool{23500: true})
	if err != nil {
		t.Fatalf("SelectRound: %v", err)
	}
	if sel.Entries[0].Strike() != 23550 {
		t.Errorf("excluded strike chosen: %v", strikes(sel.Entries))
	}
}

func TestSelectHedge(t *testing.T) {
	cfg := domain.DefaultStrategyConfig()
	snap := snapshot(map[float64]float64{23600: 45, 23650: 30})

	p, err := SelectHedge(cfg, snap, 23500, map[float64]bool{23600: true})
	if err != nil {
		t.Fatalf("SelectHedge: %v", err)
	}
	if p.Strike() != 23650 {
		t.Errorf("got %v, want 23650", p.Strike())
	}

	_, err = SelectHedge(cfg, snap, 23500, map[float64]bool{23600: true, 23650: true})
	if !IsInsufficientLiquidity(err) {
		t.Errorf("expected insufficient liquidity, got %v", err)
	}
}
