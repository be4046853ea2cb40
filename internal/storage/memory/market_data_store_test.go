package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/storage"
)

var testDay = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hh, mm int) time.Time {
	return day.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

func TestIndexTickStore_InsertAndGetByDate(t *testing.T) {
	store := NewIndexTickStore()
	ctx := context.Background()

	ticks := []*domain.Candle{
		{Symbol: "NIFTY", Time: at(testDay, 9, 17), Open: 1, High: 2, Low: 1, Close: 2},
		{Symbol: "NIFTY", Time: at(testDay, 9, 15), Open: 1, High: 2, Low: 1, Close: 1},
		{Symbol: "NIFTY", Time: at(testDay.AddDate(0, 0, 1), 9, 15), Open: 1, High: 2, Low: 1, Close: 1},
		{Symbol: "BANKNIFTY", Time: at(testDay, 9, 15), Open: 1, High: 2, Low: 1, Close: 1},
	}
	if err := store.InsertBulk(ctx, ticks); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByDate(ctx, "NIFTY", testDay)
	if err != nil {
		t.Fatalf("GetByDate failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 ticks, got %d", len(got))
	}
	if !got[0].Time.Equal(at(testDay, 9, 15)) {
		t.Errorf("Expected ticks ordered by time, first is %v", got[0].Time)
	}
	if !got[0].TradeDate.Equal(testDay) {
		t.Errorf("TradeDate not derived: %v", got[0].TradeDate)
	}
}

func TestIndexTickStore_DuplicateInBatch(t *testing.T) {
	store := NewIndexTickStore()
	ctx := context.Background()

	ticks := []*domain.Candle{
		{Symbol: "NIFTY", Time: at(testDay, 9, 15)},
		{Symbol: "NIFTY", Time: at(testDay, 9, 15)},
	}
	err := store.InsertBulk(ctx, ticks)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	got, _ := store.GetByDate(ctx, "NIFTY", testDay)
	if len(got) != 0 {
		t.Errorf("Batch must be atomic, found %d ticks", len(got))
	}
}

func TestIndexTickStore_GetTradeDates(t *testing.T) {
	store := NewIndexTickStore()
	ctx := context.Background()

	var ticks []*domain.Candle
	for i := 0; i < 5; i++ {
		ticks = append(ticks, &domain.Candle{Symbol: "NIFTY", Time: at(testDay.AddDate(0, 0, i), 9, 15)})
	}
	if err := store.InsertBulk(ctx, ticks); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	dates, err := store.GetTradeDates(ctx, "NIFTY", testDay.AddDate(0, 0, 1), testDay.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("GetTradeDates failed: %v", err)
	}
	if len(dates) != 3 {
		t.Fatalf("Expected 3 dates, got %d", len(dates))
	}
	if !dates[0].Equal(testDay.AddDate(0, 0, 1)) {
		t.Errorf("Unexpected first date %v", dates[0])
	}
}

func TestOptionQuoteStore_ExpiriesAndChain(t *testing.T) {
	store := NewOptionQuoteStore()
	ctx := context.Background()

	near := testDay.AddDate(0, 0, 3)
	far := testDay.AddDate(0, 0, 10)
	quote := func(expiry time.Time, strike float64, ot domain.OptionType, mm int) *domain.OptionQuote {
		return &domain.OptionQuote{
			OptionContract: domain.OptionContract{Symbol: "NIFTY", Expiry: expiry, Strike: strike, OptionType: ot},
			Time:           at(testDay, 9, mm),
			Close:          50,
		}
	}
	quotes := []*domain.OptionQuote{
		quote(near, 23500, domain.OptionTypeCall, 16),
		quote(near, 23400, domain.OptionTypeCall, 16),
		quote(near, 23400, domain.OptionTypePut, 15),
		quote(far, 23400, domain.OptionTypeCall, 15),
	}
	if err := store.InsertBulk(ctx, quotes); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	expiries, err := store.GetExpiries(ctx, "NIFTY", testDay)
	if err != nil {
		t.Fatalf("GetExpiries failed: %v", err)
	}
	if len(expiries) != 2 || !expiries[0].Equal(near) {
		t.Fatalf("Unexpected expiries %v", expiries)
	}

	chain, err := store.GetChain(ctx, "NIFTY", testDay, near)
	if err != nil {
		t.Fatalf("GetChain failed: %v", err)
	}
	if len(chain) != 3 {
		t.Fatalf("Expected 3 quotes, got %d", len(chain))
	}
	if chain[0].OptionType != domain.OptionTypePut {
		t.Errorf("Expected earliest bar first, got %s", chain[0].OptionContract)
	}
	if chain[1].Strike != 23400 || chain[2].Strike != 23500 {
		t.Errorf("Expected strikes ordered within a bar, got %v, %v", chain[1].Strike, chain[2].Strike)
	}

	if err := store.InsertBulk(ctx, quotes[:1]); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestStrategyConfigStore_Replace(t *testing.T) {
	store := NewStrategyConfigStore()
	ctx := context.Background()

	a := domain.DefaultStrategyConfig()
	a.StrategyName = "b_strategy"
	b := domain.DefaultStrategyConfig()
	b.StrategyName = "a_strategy"

	if err := store.Replace(ctx, []domain.StrategyConfig{a, b}); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].StrategyName != "a_strategy" {
		t.Fatalf("Unexpected list %v", list)
	}

	if err := store.Replace(ctx, []domain.StrategyConfig{a}); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if _, err := store.Get(ctx, "a_strategy"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after replace, got %v", err)
	}

	if err := store.Replace(ctx, []domain.StrategyConfig{a, a}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
	if _, err := store.Get(ctx, "b_strategy"); err != nil {
		t.Errorf("Failed replace must keep previous set: %v", err)
	}
}
