package memory

import (
	"context"
	"sort"
	"sync"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/storage"
)

// StrategyConfigStore is an in-memory implementation of storage.StrategyConfigStore.
type StrategyConfigStore struct {
	mu   sync.RWMutex
	data map[string]domain.StrategyConfig // keyed by strategy_name
}

// NewStrategyConfigStore creates a new in-memory strategy configuration store.
func NewStrategyConfigStore() *StrategyConfigStore {
	return &StrategyConfigStore{
		data: make(map[string]domain.StrategyConfig),
	}
}

// Replace swaps the whole configuration set. Fails on duplicate names.
func (s *StrategyConfigStore) Replace(_ context.Context, configs []domain.StrategyConfig) error {
	next := make(map[string]domain.StrategyConfig, len(configs))
	for _, c := range configs {
		if c.StrategyName == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := next[c.StrategyName]; exists {
			return storage.ErrDuplicateKey
		}
		next[c.StrategyName] = c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = next
	return nil
}

// Get retrieves a strategy by name. Returns ErrNotFound if not exists.
func (s *StrategyConfigStore) Get(_ context.Context, name string) (*domain.StrategyConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[name]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return &c, nil
}

// List returns all strategies ordered by name.
func (s *StrategyConfigStore) List(_ context.Context) ([]domain.StrategyConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StrategyConfig, 0, len(s.data))
	for _, c := range s.data {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StrategyName < result[j].StrategyName
	})
	return result, nil
}

var _ storage.StrategyConfigStore = (*StrategyConfigStore)(nil)
