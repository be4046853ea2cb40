package postgres

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/storage"
)

func createTestSnapshot(hh, mm int, mtm string, settled bool) *domain.PortfolioPnLRecord {
	return &domain.PortfolioPnLRecord{
		Strategy:    "strat1",
		TradeDate:   testDay,
		Timestamp:   at(testDay, hh, mm),
		MTMPnL:      decimal.RequireFromString(mtm),
		RealizedPnL: decimal.Zero,
		Settled:     settled,
	}
}

func TestPnLSnapshotStore_InsertAndRead(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPnLSnapshotStore(pool)

	records := []*domain.PortfolioPnLRecord{
		createTestSnapshot(15, 20, "225.00", true),
		createTestSnapshot(9, 46, "-37.50", false),
		createTestSnapshot(15, 20, "225.00", false),
	}
	require.NoError(t, store.InsertBulk(ctx, records))

	got, err := store.GetByStrategyDate(ctx, "strat1", testDay)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Timestamp.Equal(at(testDay, 9, 46)))
	assert.True(t, got[0].MTMPnL.Equal(decimal.RequireFromString("-37.50")))
	assert.False(t, got[1].Settled)
	assert.True(t, got[2].Settled)

	err = store.InsertBulk(ctx, records[:1])
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	require.NoError(t, store.Purge(ctx, "strat1", testDay))
	got, err = store.GetByStrategyDate(ctx, "strat1", testDay)
	require.NoError(t, err)
	assert.Empty(t, got)
}
