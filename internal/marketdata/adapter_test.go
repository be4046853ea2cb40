package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/storage/memory"
)

var testDay = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func at(hh, mm int) time.Time {
	return testDay.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

func quote(expiry time.Time, strike float64, ot domain.OptionType, t time.Time, close float64) *domain.OptionQuote {
	return &domain.OptionQuote{
		OptionContract: domain.OptionContract{Symbol: "NIFTY", Expiry: expiry, Strike: strike, OptionType: ot},
		Time:           t,
		Open:           close,
		High:           close,
		Low:            close,
		Close:          close,
	}
}

func newTestAdapter(t *testing.T) (*Adapter, time.Time) {
	t.Helper()
	ctx := context.Background()

	ticks := memory.NewIndexTickStore()
	quotes := memory.NewOptionQuoteStore()

	var tickRows []*domain.Candle
	for m := 0; m < 30; m++ {
		tickRows = append(tickRows, &domain.Candle{
			Symbol: "NIFTY", Time: at(9, 15+m), Open: 100, High: 101, Low: 99, Close: 100 + float64(m),
		})
	}
	if err := ticks.InsertBulk(ctx, tickRows); err != nil {
		t.Fatalf("insert ticks: %v", err)
	}

	expired := testDay.AddDate(0, 0, -1)
	near := testDay.AddDate(0, 0, 3)
	far := testDay.AddDate(0, 0, 10)
	err := quotes.InsertBulk(ctx, []*domain.OptionQuote{
		quote(expired, 23500, domain.OptionTypeCall, at(9, 15), 1),
		quote(far, 23500, domain.OptionTypeCall, at(9, 15), 150),
		quote(near, 23500, domain.OptionTypeCall, at(9, 15), 80),
		quote(near, 23500, domain.OptionTypeCall, at(9, 16), 82),
		quote(near, 23600, domain.OptionTypeCall, at(9, 16), 55),
		quote(near, 23400, domain.OptionTypePut, at(9, 16), 60),
	})
	if err != nil {
		t.Fatalf("insert quotes: %v", err)
	}

	return NewAdapter(ticks, quotes), near
}

func TestAdapter_GetCandles(t *testing.T) {
	a, _ := newTestAdapter(t)

	got, err := a.GetCandles(context.Background(), "NIFTY", testDay, 15)
	if err != nil {
		t.Fatalf("GetCandles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 fifteen-minute candles, got %d", len(got))
	}
	if got[0].Close != 114 || got[1].Close != 129 {
		t.Errorf("unexpected closes %v, %v", got[0].Close, got[1].Close)
	}
}

func TestAdapter_NearestExpirySkipsExpired(t *testing.T) {
	a, near := newTestAdapter(t)

	got, err := a.NearestExpiry(context.Background(), "NIFTY", testDay)
	if err != nil {
		t.Fatalf("NearestExpiry: %v", err)
	}
	if !got.Equal(near) {
		t.Errorf("got %v, want %v", got, near)
	}

	_, err = a.NearestExpiry(context.Background(), "NIFTY", testDay.AddDate(0, 0, 1))
	if !errors.Is(err, ErrNoExpiry) {
		t.Errorf("expected ErrNoExpiry for a date without quotes, got %v", err)
	}
}

func TestAdapter_GetOptionChain(t *testing.T) {
	a, near := newTestAdapter(t)
	ctx := context.Background()

	chain, err := a.GetOptionChain(ctx, "NIFTY", testDay, near)
	if err != nil {
		t.Fatalf("GetOptionChain: %v", err)
	}
	if chain.Len() != 3 {
		t.Fatalf("expected 3 contracts, got %d", chain.Len())
	}

	snap := chain.Snapshot(at(9, 16), domain.OptionTypeCall)
	if len(snap) != 2 || snap[0].Strike != 23500 || snap[1].Strike != 23600 {
		t.Errorf("unexpected snapshot %v", snap)
	}

	q, err := chain.LastAt(23600, domain.OptionTypeCall, at(9, 40))
	if err != nil || q.Close != 55 {
		t.Errorf("LastAt: got %v, %v", q, err)
	}
	if _, err := chain.QuoteAt(23600, domain.OptionTypeCall, at(9, 15)); err == nil {
		t.Error("expected no bar at 09:15 for 23600 CE")
	}

	_, err = a.GetOptionChain(ctx, "NIFTY", testDay.AddDate(0, 0, 1), near)
	if !errors.Is(err, ErrEmptyChain) {
		t.Errorf("expected ErrEmptyChain, got %v", err)
	}
}
