package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/idhash"
	"options-breakout-lab/internal/storage"
)

// ResultStore is an in-memory implementation of storage.ResultStore.
type ResultStore struct {
	mu         sync.RWMutex
	results    map[string]*domain.StrategyRunResult       // keyed by result_id
	noTrade    map[string]*domain.NoTradeDate             // keyed by (strategy, trade_date)
	thresholds map[string]*domain.PortfolioThresholdEvent // keyed by (strategy, trade_date, kind)
}

// NewResultStore creates a new in-memory result store.
func NewResultStore() *ResultStore {
	return &ResultStore{
		results:    make(map[string]*domain.StrategyRunResult),
		noTrade:    make(map[string]*domain.NoTradeDate),
		thresholds: make(map[string]*domain.PortfolioThresholdEvent),
	}
}

func unitKey(strategy string, tradeDate time.Time) string {
	return fmt.Sprintf("%s|%s", strategy, tradeDate.Format(domain.DateLayout))
}

func resultKey(r *domain.StrategyRunResult) string {
	return idhash.ComputeResultID(r.Key(), r.TransactionType, r.EntryTime)
}

func thresholdKey(e *domain.PortfolioThresholdEvent) string {
	return unitKey(e.Strategy, e.TradeDate) + "|" + string(e.Kind)
}

// WriteResults appends ledger rows atomically. Fails entire batch on duplicate.
func (s *ResultStore) WriteResults(_ context.Context, rows []*domain.StrategyRunResult) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))

	// First pass: check for duplicates (existing + intra-batch)
	for _, r := range rows {
		if r == nil || r.StrategyName == "" {
			return storage.ErrInvalidInput
		}
		key := resultKey(r)
		if _, exists := s.results[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, r := range rows {
		rowCopy := *r
		s.results[resultKey(r)] = &rowCopy
	}

	return nil
}

// WriteNoTradeDates appends no-trade entries atomically.
func (s *ResultStore) WriteNoTradeDates(_ context.Context, rows []*domain.NoTradeDate) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.StrategyName == "" {
			return storage.ErrInvalidInput
		}
		key := unitKey(r.StrategyName, r.TradeDate)
		if _, exists := s.noTrade[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rows {
		rowCopy := *r
		s.noTrade[unitKey(r.StrategyName, r.TradeDate)] = &rowCopy
	}

	return nil
}

// WriteThresholdEvents appends portfolio threshold crossings atomically.
func (s *ResultStore) WriteThresholdEvents(_ context.Context, events []*domain.PortfolioThresholdEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.Strategy == "" {
			return storage.ErrInvalidInput
		}
		key := thresholdKey(e)
		if _, exists := s.thresholds[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, e := range events {
		eventCopy := *e
		s.thresholds[thresholdKey(e)] = &eventCopy
	}

	return nil
}

// Purge removes everything written for a unit.
func (s *ResultStore) Purge(_ context.Context, strategy string, tradeDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := domain.TruncateDate(tradeDate)
	for key, r := range s.results {
		if r.StrategyName == strategy && domain.TruncateDate(r.TradeDate).Equal(day) {
			delete(s.results, key)
		}
	}
	delete(s.noTrade, unitKey(strategy, day))
	for key, e := range s.thresholds {
		if e.Strategy == strategy && domain.TruncateDate(e.TradeDate).Equal(day) {
			delete(s.thresholds, key)
		}
	}
	return nil
}

// GetResults retrieves a strategy's rows ordered by trade_date, entry_round, entry_time.
func (s *ResultStore) GetResults(_ context.Context, strategy string) ([]*domain.StrategyRunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StrategyRunResult
	for _, r := range s.results {
		if r.StrategyName == strategy {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}
	sortResults(result)
	return result, nil
}

// GetAllResults retrieves every row ordered by strategy_name, trade_date.
func (s *ResultStore) GetAllResults(_ context.Context) ([]*domain.StrategyRunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.StrategyRunResult, 0, len(s.results))
	for _, r := range s.results {
		rowCopy := *r
		result = append(result, &rowCopy)
	}
	sortResults(result)
	return result, nil
}

func sortResults(rows []*domain.StrategyRunResult) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.StrategyName != b.StrategyName {
			return a.StrategyName < b.StrategyName
		}
		if !a.TradeDate.Equal(b.TradeDate) {
			return a.TradeDate.Before(b.TradeDate)
		}
		if a.EntryRound != b.EntryRound {
			return a.EntryRound < b.EntryRound
		}
		if !a.EntryTime.Equal(b.EntryTime) {
			return a.EntryTime.Before(b.EntryTime)
		}
		if a.LegType != b.LegType {
			return a.LegType < b.LegType
		}
		if a.Strike != b.Strike {
			return a.Strike < b.Strike
		}
		return a.OptionType < b.OptionType
	})
}

// GetNoTradeDates retrieves no-trade entries, all strategies when strategy is empty.
func (s *ResultStore) GetNoTradeDates(_ context.Context, strategy string) ([]*domain.NoTradeDate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.NoTradeDate
	for _, r := range s.noTrade {
		if strategy == "" || r.StrategyName == strategy {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StrategyName != result[j].StrategyName {
			return result[i].StrategyName < result[j].StrategyName
		}
		return result[i].TradeDate.Before(result[j].TradeDate)
	})
	return result, nil
}

// GetThresholdEvents retrieves threshold crossings, all strategies when strategy is empty.
func (s *ResultStore) GetThresholdEvents(_ context.Context, strategy string) ([]*domain.PortfolioThresholdEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PortfolioThresholdEvent
	for _, e := range s.thresholds {
		if strategy == "" || e.Strategy == strategy {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Strategy != result[j].Strategy {
			return result[i].Strategy < result[j].Strategy
		}
		if !result[i].TradeDate.Equal(result[j].TradeDate) {
			return result[i].TradeDate.Before(result[j].TradeDate)
		}
		return result[i].Time.Before(result[j].Time)
	})
	return result, nil
}

var _ storage.ResultStore = (*ResultStore)(nil)
