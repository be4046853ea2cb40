// Package ingestion bulk-loads historical index ticks and option bars into
// the market data stores.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"options-breakout-lab/internal/storage"
)

// Stats summarizes one ingestion.
type Stats struct {
	Rows    int
	Batches int
	Dropped int
}

// Manager moves batches from sources to storage.
// It enforces deterministic ordering and uses storage layer for duplicate rejection.
type Manager struct {
	tickStore  storage.IndexTickStore
	quoteStore storage.OptionQuoteStore
	logger     zerolog.Logger
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	TickStore  storage.IndexTickStore
	QuoteStore storage.OptionQuoteStore
}

// NewManager creates a new ingestion manager with the provided stores.
func NewManager(opts ManagerOptions) *Manager {
	return &Manager{
		tickStore:  opts.TickStore,
		quoteStore: opts.QuoteStore,
		logger:     log.With().Str("component", "ingestion").Logger(),
	}
}

// IngestTicks drains src into the tick store.
// Each batch is sorted by (symbol, time) and inserted atomically; a duplicate
// bar fails that batch with storage.ErrDuplicateKey.
func (m *Manager) IngestTicks(ctx context.Context, src TickSource) (Stats, error) {
	var stats Stats
	if m.tickStore == nil {
		return stats, fmt.Errorf("ingest ticks: %w", storage.ErrInvalidInput)
	}
	for {
		ticks, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}

		SortTicks(ticks)
		if err := ValidateTickOrdering(ticks); err != nil {
			return stats, fmt.Errorf("batch %d: %w", stats.Batches+1, err)
		}
		if err := m.tickStore.InsertBulk(ctx, ticks); err != nil {
			return stats, fmt.Errorf("insert batch %d: %w", stats.Batches+1, err)
		}

		stats.Rows += len(ticks)
		stats.Batches++
		m.logger.Debug().Int("batch", stats.Batches).Int("rows", len(ticks)).Msg("ticks loaded")
	}
}

// IngestQuotes drains src into the option quote store.
func (m *Manager) IngestQuotes(ctx context.Context, src QuoteSource) (Stats, error) {
	var stats Stats
	if m.quoteStore == nil {
		return stats, fmt.Errorf("ingest quotes: %w", storage.ErrInvalidInput)
	}
	for {
		quotes, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			stats.Dropped = src.Dropped()
			return stats, nil
		}
		if err != nil {
			return stats, err
		}

		SortQuotes(quotes)
		if err := ValidateQuoteOrdering(quotes); err != nil {
			return stats, fmt.Errorf("batch %d: %w", stats.Batches+1, err)
		}
		if err := m.quoteStore.InsertBulk(ctx, quotes); err != nil {
			return stats, fmt.Errorf("insert batch %d: %w", stats.Batches+1, err)
		}

		stats.Rows += len(quotes)
		stats.Batches++
		m.logger.Debug().Int("batch", stats.Batches).Int("rows", len(quotes)).Msg("quotes loaded")
	}
}
