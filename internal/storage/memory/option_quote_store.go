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

// OptionQuoteStore is an in-memory implementation of storage.OptionQuoteStore.
type OptionQuoteStore struct {
	mu   sync.RWMutex
	data map[string]*domain.OptionQuote // keyed by (contract, time)
}

// NewOptionQuoteStore creates a new in-memory option quote store.
func NewOptionQuoteStore() *OptionQuoteStore {
	return &OptionQuoteStore{
		data: make(map[string]*domain.OptionQuote),
	}
}

func quoteKey(q *domain.OptionQuote) string {
	return fmt.Sprintf("%s|%d", q.OptionContract, q.Time.Unix())
}

// InsertBulk adds quotes atomically. Fails entire batch on duplicate.
func (s *OptionQuoteStore) InsertBulk(_ context.Context, quotes []*domain.OptionQuote) error {
	if len(quotes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(quotes))

	for _, q := range quotes {
		if q == nil || q.Symbol == "" || q.Time.IsZero() || q.Expiry.IsZero() {
			return storage.ErrInvalidInput
		}
		key := quoteKey(q)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, q := range quotes {
		quoteCopy := *q
		quoteCopy.TradeDate = domain.TruncateDate(q.Time)
		quoteCopy.Expiry = domain.TruncateDate(q.Expiry)
		s.data[quoteKey(&quoteCopy)] = &quoteCopy
	}

	return nil
}

// GetExpiries returns the expiries quoted on a trade date, ascending.
func (s *OptionQuoteStore) GetExpiries(_ context.Context, symbol string, tradeDate time.Time) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := domain.TruncateDate(tradeDate)
	seen := make(map[time.Time]struct{})
	for _, q := range s.data {
		if q.Symbol == symbol && q.TradeDate.Equal(day) {
			seen[q.Expiry] = struct{}{}
		}
	}

	expiries := make([]time.Time, 0, len(seen))
	for e := range seen {
		expiries = append(expiries, e)
	}
	sort.Slice(expiries, func(i, j int) bool { return expiries[i].Before(expiries[j]) })

	return expiries, nil
}

// GetChain retrieves all bars for (symbol, trade date, expiry).
func (s *OptionQuoteStore) GetChain(_ context.Context, symbol string, tradeDate, expiry time.Time) ([]*domain.OptionQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := domain.TruncateDate(tradeDate)
	exp := domain.TruncateDate(expiry)
	var result []*domain.OptionQuote
	for _, q := range s.data {
		if q.Symbol == symbol && q.TradeDate.Equal(day) && q.Expiry.Equal(exp) {
			quoteCopy := *q
			result = append(result, &quoteCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Time.Equal(result[j].Time) {
			return result[i].Time.Before(result[j].Time)
		}
		if result[i].Strike != result[j].Strike {
			return result[i].Strike < result[j].Strike
		}
		return result[i].OptionType < result[j].OptionType
	})

	return result, nil
}

var _ storage.OptionQuoteStore = (*OptionQuoteStore)(nil)
