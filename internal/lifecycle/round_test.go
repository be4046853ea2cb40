package lifecycle

import (
	"testing"

	"options-breakout-lab/internal/domain"
)

func TestRound_SettleTimeAndViews(t *testing.T) {
	a := buyLeg(keyFn, 22000, 80, at(9, 35))
	b := buyLeg(keyFn, 22100, 70, at(9, 35))
	h := domain.NewLeg(keyFn(22500, domain.LegTypeHedge), "NIFTY", domain.TransactionSell, domain.LegOriginPrimary, 75, at(9, 35), at(9, 35), 40)
	r := &Round{Number: 1, Event: &domain.BreakoutEvent{Strategy: "s1", TradeDate: testDay}}
	for _, l := range []*domain.Leg{a, b, h} {
		r.Positions = append(r.Positions, &Position{Leg: l})
	}

	if len(r.PrimaryEntries()) != 2 || len(r.Hedges()) != 1 {
		t.Fatalf("unexpected views: entries=%d hedges=%d", len(r.PrimaryEntries()), len(r.Hedges()))
	}
	if !r.SettleTime().IsZero() {
		t.Error("expected zero settle time while entries are open")
	}

	_ = a.Close(at(10, 0), 60, domain.ExitReasonSL)
	_ = b.Close(at(10, 5), 55, domain.ExitReasonSL)

	if !r.EntriesSettled() {
		t.Error("expected entries settled")
	}
	if got := r.SettleTime(); !got.Equal(at(10, 5)) {
		t.Errorf("expected settle 10:05, got %s", got.Format("15:04"))
	}
	if len(r.OpenHedges()) != 1 || !r.Open() {
		t.Error("hedge should still be open")
	}
	if used := r.UsedStrikes(domain.LegTypeEntry); !used[22000] || !used[22100] || used[22500] {
		t.Errorf("unexpected used strikes: %v", used)
	}
}
