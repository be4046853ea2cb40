package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/idhash"
	"options-breakout-lab/internal/storage"
)

// LegBookStore is an in-memory implementation of storage.LegBookStore.
// Writes are serialized by the store mutex.
type LegBookStore struct {
	mu   sync.RWMutex
	data map[string]*domain.LegBookEntry // keyed by leg_id
}

// NewLegBookStore creates a new in-memory leg book.
func NewLegBookStore() *LegBookStore {
	return &LegBookStore{
		data: make(map[string]*domain.LegBookEntry),
	}
}

// Append inserts an entry. A duplicate leg key is a no-op.
func (s *LegBookStore) Append(_ context.Context, e *domain.LegBookEntry) (bool, error) {
	if e == nil || e.Strategy == "" {
		return false, storage.ErrInvalidInput
	}

	id := idhash.ComputeLegBookID(e)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; exists {
		return false, nil
	}
	entryCopy := *e
	s.data[id] = &entryCopy
	return true, nil
}

// GetByStrategyDate retrieves entries ordered by entry_round, strike.
func (s *LegBookStore) GetByStrategyDate(_ context.Context, strategy string, tradeDate time.Time) ([]*domain.LegBookEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := domain.TruncateDate(tradeDate)
	var result []*domain.LegBookEntry
	for _, e := range s.data {
		if e.Strategy == strategy && domain.TruncateDate(e.TradeDate).Equal(day) {
			entryCopy := *e
			result = append(result, &entryCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EntryRound != result[j].EntryRound {
			return result[i].EntryRound < result[j].EntryRound
		}
		if result[i].Strike != result[j].Strike {
			return result[i].Strike < result[j].Strike
		}
		if result[i].LegType != result[j].LegType {
			return result[i].LegType < result[j].LegType
		}
		return result[i].Origin > result[j].Origin
	})

	return result, nil
}

// Purge removes a unit's entries.
func (s *LegBookStore) Purge(_ context.Context, strategy string, tradeDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := domain.TruncateDate(tradeDate)
	for id, e := range s.data {
		if e.Strategy == strategy && domain.TruncateDate(e.TradeDate).Equal(day) {
			delete(s.data, id)
		}
	}
	return nil
}

var _ storage.LegBookStore = (*LegBookStore)(nil)
