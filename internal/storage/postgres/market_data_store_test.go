package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/storage"
)

func TestIndexTickStore_CopyAndRead(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewIndexTickStore(pool)

	ticks := []*domain.Candle{
		{Symbol: "NIFTY", Time: at(testDay, 9, 16), Open: 23510, High: 23520, Low: 23505, Close: 23515},
		{Symbol: "NIFTY", Time: at(testDay, 9, 15), Open: 23500, High: 23512, Low: 23498, Close: 23510},
		{Symbol: "NIFTY", Time: at(testDay.AddDate(0, 0, 2), 9, 15), Open: 23600, High: 23610, Low: 23590, Close: 23605},
	}
	require.NoError(t, store.InsertBulk(ctx, ticks))

	got, err := store.GetByDate(ctx, "NIFTY", testDay)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Time.Equal(at(testDay, 9, 15)))
	assert.InDelta(t, 23510.0, got[0].Close, 0.0001)

	dates, err := store.GetTradeDates(ctx, "NIFTY", testDay, testDay.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, testDay, dates[0])

	err = store.InsertBulk(ctx, ticks[:1])
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestOptionQuoteStore_ChainAndExpiries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewOptionQuoteStore(pool)

	expiry := testDay.AddDate(0, 0, 3)
	contract := func(strike float64, ot domain.OptionType) domain.OptionContract {
		return domain.OptionContract{Symbol: "NIFTY", Expiry: expiry, Strike: strike, OptionType: ot}
	}
	quotes := []*domain.OptionQuote{
		{OptionContract: contract(23600, domain.OptionTypeCall), Time: at(testDay, 9, 35), Close: 61},
		{OptionContract: contract(23500, domain.OptionTypeCall), Time: at(testDay, 9, 35), Close: 79},
		{OptionContract: contract(23500, domain.OptionTypePut), Time: at(testDay, 9, 34), Close: 70},
	}
	require.NoError(t, store.InsertBulk(ctx, quotes))

	expiries, err := store.GetExpiries(ctx, "NIFTY", testDay)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{expiry}, expiries)

	chain, err := store.GetChain(ctx, "NIFTY", testDay, expiry)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, domain.OptionTypePut, chain[0].OptionType)
	assert.Equal(t, 23500.0, chain[1].Strike)
	assert.Equal(t, testDay, chain[1].TradeDate)
}
