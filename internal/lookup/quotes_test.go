package lookup

import (
	"testing"
	"time"

	"options-breakout-lab/internal/domain"
)

var base = time.Date(2025, 1, 6, 9, 15, 0, 0, time.UTC)

func makeQuotes(closes ...float64) []*domain.OptionQuote {
	out := make([]*domain.OptionQuote, len(closes))
	for i, c := range closes {
		out[i] = &domain.OptionQuote{Time: base.Add(time.Duration(i) * time.Minute), Open: c, Close: c}
	}
	return out
}

func TestQuoteAt_EmptySlice(t *testing.T) {
	_, err := QuoteAt(base, nil)
	if err != ErrNoQuoteData {
		t.Errorf("expected ErrNoQuoteData, got %v", err)
	}
}

func TestQuoteAt_ExactMatch(t *testing.T) {
	quotes := makeQuotes(1, 2, 3)

	q, err := QuoteAt(base.Add(time.Minute), quotes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Close != 2 {
		t.Errorf("expected 2, got %f", q.Close)
	}

	_, err = QuoteAt(base.Add(30*time.Second), quotes)
	if err != ErrNoQuoteAtBar {
		t.Errorf("expected ErrNoQuoteAtBar, got %v", err)
	}
}

func TestQuoteAtOrBefore(t *testing.T) {
	quotes := makeQuotes(1, 2, 3)

	price, err := CloseAtOrBefore(base.Add(90*time.Second), quotes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 2 {
		t.Errorf("expected 2, got %f", price)
	}

	price, err = CloseAtOrBefore(base.Add(time.Hour), quotes)
	if err != nil || price != 3 {
		t.Errorf("expected last close 3, got %f (%v)", price, err)
	}

	_, err = QuoteAtOrBefore(base.Add(-time.Minute), quotes)
	if err != ErrNoQuoteAtBar {
		t.Errorf("expected ErrNoQuoteAtBar before first bar, got %v", err)
	}
}

func TestSpotAt(t *testing.T) {
	candles := []*domain.Candle{
		{Time: base, Open: 100, Close: 101},
		{Time: base.Add(time.Minute), Open: 101, Close: 102},
	}

	spot, err := SpotAt(base.Add(5*time.Minute), candles)
	if err != nil || spot != 102 {
		t.Errorf("expected 102, got %f (%v)", spot, err)
	}

	spot, err = SpotAt(base.Add(-time.Minute), candles)
	if err != nil || spot != 100 {
		t.Errorf("expected first open 100, got %f (%v)", spot, err)
	}

	if _, err := SpotAt(base, nil); err != ErrNoIndexData {
		t.Errorf("expected ErrNoIndexData, got %v", err)
	}
}
