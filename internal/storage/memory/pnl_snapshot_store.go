package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/storage"
)

// PnLSnapshotStore is an in-memory implementation of storage.PnLSnapshotStore.
type PnLSnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PortfolioPnLRecord // keyed by (strategy, trade_date, timestamp, settled)
}

// NewPnLSnapshotStore creates a new in-memory PnL snapshot store.
func NewPnLSnapshotStore() *PnLSnapshotStore {
	return &PnLSnapshotStore{
		data: make(map[string]*domain.PortfolioPnLRecord),
	}
}

func snapshotKey(r *domain.PortfolioPnLRecord) string {
	return fmt.Sprintf("%s|%d|%t", unitKey(r.Strategy, r.TradeDate), r.Timestamp.Unix(), r.Settled)
}

// InsertBulk adds records atomically. Fails entire batch on duplicate.
func (s *PnLSnapshotStore) InsertBulk(_ context.Context, records []*domain.PortfolioPnLRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.Strategy == "" {
			return storage.ErrInvalidInput
		}
		key := snapshotKey(r)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range records {
		recordCopy := *r
		s.data[snapshotKey(r)] = &recordCopy
	}

	return nil
}

// GetByStrategyDate retrieves records ordered by timestamp ASC, settled last.
func (s *PnLSnapshotStore) GetByStrategyDate(_ context.Context, strategy string, tradeDate time.Time) ([]*domain.PortfolioPnLRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := domain.TruncateDate(tradeDate)
	var result []*domain.PortfolioPnLRecord
	for _, r := range s.data {
		if r.Strategy == strategy && domain.TruncateDate(r.TradeDate).Equal(day) {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Settled != result[j].Settled {
			return !result[i].Settled
		}
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}

// Purge removes a unit's records.
func (s *PnLSnapshotStore) Purge(_ context.Context, strategy string, tradeDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := domain.TruncateDate(tradeDate)
	for key, r := range s.data {
		if r.Strategy == strategy && domain.TruncateDate(r.TradeDate).Equal(day) {
			delete(s.data, key)
		}
	}
	return nil
}

var _ storage.PnLSnapshotStore = (*PnLSnapshotStore)(nil)
