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

// IndexTickStore is an in-memory implementation of storage.IndexTickStore.
type IndexTickStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Candle // keyed by (symbol, time)
}

// NewIndexTickStore creates a new in-memory index tick store.
func NewIndexTickStore() *IndexTickStore {
	return &IndexTickStore{
		data: make(map[string]*domain.Candle),
	}
}

func tickKey(symbol string, t time.Time) string {
	return fmt.Sprintf("%s|%d", symbol, t.Unix())
}

// InsertBulk adds ticks atomically. Fails entire batch on duplicate.
func (s *IndexTickStore) InsertBulk(_ context.Context, ticks []*domain.Candle) error {
	if len(ticks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(ticks))

	// First pass: check for duplicates (existing + intra-batch)
	for _, t := range ticks {
		if t == nil || t.Symbol == "" || t.Time.IsZero() {
			return storage.ErrInvalidInput
		}
		key := tickKey(t.Symbol, t.Time)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, t := range ticks {
		tickCopy := *t
		tickCopy.TradeDate = domain.TruncateDate(t.Time)
		s.data[tickKey(t.Symbol, t.Time)] = &tickCopy
	}

	return nil
}

// GetByDate retrieves all ticks of a trade date, ordered by time ASC.
func (s *IndexTickStore) GetByDate(_ context.Context, symbol string, tradeDate time.Time) ([]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := domain.TruncateDate(tradeDate)
	var result []*domain.Candle
	for _, t := range s.data {
		if t.Symbol == symbol && t.TradeDate.Equal(day) {
			tickCopy := *t
			result = append(result, &tickCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Time.Before(result[j].Time)
	})

	return result, nil
}

// GetTradeDates returns the distinct dates with ticks within [from, to].
func (s *IndexTickStore) GetTradeDates(_ context.Context, symbol string, from, to time.Time) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, to = domain.TruncateDate(from), domain.TruncateDate(to)
	seen := make(map[time.Time]struct{})
	for _, t := range s.data {
		if t.Symbol != symbol || t.TradeDate.Before(from) || t.TradeDate.After(to) {
			continue
		}
		seen[t.TradeDate] = struct{}{}
	}

	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	return dates, nil
}

var _ storage.IndexTickStore = (*IndexTickStore)(nil)
