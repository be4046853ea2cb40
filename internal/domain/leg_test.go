package domain

import (
	"errors"
	"testing"
	"time"
)

var (
	legDay    = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	legExpiry = time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)
)

func testLeg(tx TransactionType) *Leg {
	key := LegKey{
		Strategy:   "s1",
		TradeDate:  legDay,
		ExpiryDate: legExpiry,
		Strike:     22100,
		OptionType: OptionTypeCall,
		EntryRound: 1,
		LegType:    LegTypeEntry,
	}
	entry := legDay.Add(9*time.Hour + 45*time.Minute)
	return NewLeg(key, "NIFTY", tx, LegOriginPrimary, 75, entry.Add(-15*time.Minute), entry, 80)
}

func TestLeg_CloseOnce(t *testing.T) {
	l := testLeg(TransactionBuy)
	exit := l.EntryTime.Add(time.Hour)

	if err := l.Close(exit, 64, ExitReasonSL); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if l.IsOpen() || l.State != LegStateSLHit {
		t.Errorf("Expected SL_HIT state, got %s", l.State)
	}

	err := l.Close(exit.Add(time.Minute), 70, ExitReasonEOD)
	if !errors.Is(err, ErrLegClosed) {
		t.Errorf("Expected ErrLegClosed, got %v", err)
	}
	if l.ExitPrice != 64 || l.ExitReason != ExitReasonSL {
		t.Errorf("Closed leg must not change, got %.2f %s", l.ExitPrice, l.ExitReason)
	}
}

func TestLeg_CloseRejectsInvalidExit(t *testing.T) {
	l := testLeg(TransactionBuy)
	if err := l.Close(l.EntryTime.Add(-time.Minute), 70, ExitReasonEOD); !errors.Is(err, ErrExitBeforeEntry) {
		t.Errorf("Expected ErrExitBeforeEntry, got %v", err)
	}
	if err := l.Close(l.EntryTime, -1, ExitReasonEOD); !errors.Is(err, ErrInvalidExitPrice) {
		t.Errorf("Expected ErrInvalidExitPrice, got %v", err)
	}
	if !l.IsOpen() {
		t.Error("Rejected close must leave the leg open")
	}
}

func TestLeg_PnL(t *testing.T) {
	tests := []struct {
		name    string
		tx      TransactionType
		exit    float64
		wantPnL string
		adverse float64
	}{
		{"buy loses", TransactionBuy, 64, "-1200.00", 20},
		{"buy wins", TransactionBuy, 96.5, "1237.50", -20.625},
		{"sell wins", TransactionSell, 64, "1200.00", -20},
		{"sell loses", TransactionSell, 100, "-1500.00", 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := testLeg(tt.tx)
			if got := l.AdverseMovePct(tt.exit); got != tt.adverse {
				t.Errorf("AdverseMovePct = %v, want %v", got, tt.adverse)
			}
			if !l.RealizedPnL().IsZero() {
				t.Error("Open leg should have zero realized PnL")
			}
			if err := l.Close(l.EntryTime.Add(time.Hour), tt.exit, ExitReasonEOD); err != nil {
				t.Fatalf("Close failed: %v", err)
			}
			if got := l.RealizedPnL().StringFixed(2); got != tt.wantPnL {
				t.Errorf("RealizedPnL = %s, want %s", got, tt.wantPnL)
			}
		})
	}
}

func TestLegKey_String(t *testing.T) {
	l := testLeg(TransactionBuy)
	want := "s1|2025-01-06|2025-01-09|22100.00|CE|1|entry"
	if got := l.LegKey.String(); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if got := l.Contract().String(); got != "NIFTY-2025-01-09-22100-CE" {
		t.Errorf("Unexpected contract %s", got)
	}
}
