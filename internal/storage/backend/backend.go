// Package backend opens the store set selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"options-breakout-lab/internal/config"
	"options-breakout-lab/internal/storage"
	chstore "options-breakout-lab/internal/storage/clickhouse"
	"options-breakout-lab/internal/storage/memory"
	pgstore "options-breakout-lab/internal/storage/postgres"
)

// Stores is the full set of stores a backtest run touches.
type Stores struct {
	IndexTicks      storage.IndexTickStore
	OptionQuotes    storage.OptionQuoteStore
	LegBook         storage.LegBookStore
	Results         storage.ResultStore
	PnLSnapshots    storage.PnLSnapshotStore
	StrategyConfigs storage.StrategyConfigStore

	closers []func()
}

// Close releases every connection in reverse open order.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// Open connects the stores for cfg.Backend:
//   - memory: everything in process
//   - postgres: everything in PostgreSQL
//   - clickhouse: market data and PnL snapshots in ClickHouse, the rest in PostgreSQL
func Open(ctx context.Context, cfg config.StorageConfig) (*Stores, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return Memory(), nil
	case config.BackendPostgres, config.BackendClickHouse:
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	s := &Stores{}
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s.closers = append(s.closers, pool.Close)
	s.LegBook = pgstore.NewLegBookStore(pool)
	s.Results = pgstore.NewResultStore(pool)
	s.StrategyConfigs = pgstore.NewStrategyConfigStore(pool)

	if cfg.Backend == config.BackendPostgres {
		s.IndexTicks = pgstore.NewIndexTickStore(pool)
		s.OptionQuotes = pgstore.NewOptionQuoteStore(pool)
		s.PnLSnapshots = pgstore.NewPnLSnapshotStore(pool)
		log.Info().Str("backend", cfg.Backend).Msg("Stores opened")
		return s, nil
	}

	conn, err := chstore.NewConn(ctx, cfg.ClickHouseDSN)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("connect clickhouse: %w", err)
	}
	s.closers = append(s.closers, func() {
		if err := conn.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close clickhouse connection")
		}
	})
	s.IndexTicks = chstore.NewIndexTickStore(conn)
	s.OptionQuotes = chstore.NewOptionQuoteStore(conn)
	s.PnLSnapshots = chstore.NewPnLSnapshotStore(conn)
	log.Info().Str("backend", cfg.Backend).Msg("Stores opened")
	return s, nil
}

// Memory returns a fresh in-process store set.
func Memory() *Stores {
	return &Stores{
		IndexTicks:      memory.NewIndexTickStore(),
		OptionQuotes:    memory.NewOptionQuoteStore(),
		LegBook:         memory.NewLegBookStore(),
		Results:         memory.NewResultStore(),
		PnLSnapshots:    memory.NewPnLSnapshotStore(),
		StrategyConfigs: memory.NewStrategyConfigStore(),
	}
}
