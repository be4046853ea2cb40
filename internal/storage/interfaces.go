package storage

import (
	"context"
	"time"

	"options-breakout-lab/internal/domain"
)

// IndexTickStore provides access to raw index ticks (one-minute bars).
type IndexTickStore interface {
	// InsertBulk adds ticks atomically. Fails entire batch on duplicate (symbol, time).
	InsertBulk(ctx context.Context, ticks []*domain.Candle) error

	// GetByDate retrieves all ticks of a trade date, ordered by time ASC.
	GetByDate(ctx context.Context, symbol string, tradeDate time.Time) ([]*domain.Candle, error)

	// GetTradeDates returns the distinct dates with ticks within [from, to] (inclusive).
	GetTradeDates(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error)
}

// OptionQuoteStore provides access to option-chain bars.
type OptionQuoteStore interface {
	// InsertBulk adds quotes atomically. Fails entire batch on duplicate (contract, time).
	InsertBulk(ctx context.Context, quotes []*domain.OptionQuote) error

	// GetExpiries returns the expiries quoted on a trade date, ascending.
	GetExpiries(ctx context.Context, symbol string, tradeDate time.Time) ([]time.Time, error)

	// GetChain retrieves all bars for (symbol, trade date, expiry),
	// ordered by time, strike, option type.
	GetChain(ctx context.Context, symbol string, tradeDate, expiry time.Time) ([]*domain.OptionQuote, error)
}

// StrategyConfigStore resolves named strategies to their configuration.
type StrategyConfigStore interface {
	// Replace swaps the whole configuration set (the upload semantics).
	Replace(ctx context.Context, configs []domain.StrategyConfig) error

	// Get retrieves a strategy by name. Returns ErrNotFound if not exists.
	Get(ctx context.Context, name string) (*domain.StrategyConfig, error)

	// List returns all strategies ordered by name.
	List(ctx context.Context) ([]domain.StrategyConfig, error)
}

// LegBookStore is the append-only cross-round stop-loss ledger.
type LegBookStore interface {
	// Append inserts an entry. A duplicate leg key is a no-op and reports inserted=false.
	Append(ctx context.Context, e *domain.LegBookEntry) (inserted bool, err error)

	// GetByStrategyDate retrieves entries ordered by entry_round, strike.
	GetByStrategyDate(ctx context.Context, strategy string, tradeDate time.Time) ([]*domain.LegBookEntry, error)

	// Purge removes a unit's entries before it is rebuilt.
	Purge(ctx context.Context, strategy string, tradeDate time.Time) error
}

// ResultSink accepts the engine's output ledger.
type ResultSink interface {
	// WriteResults appends ledger rows. Returns ErrDuplicateKey if a row already exists.
	WriteResults(ctx context.Context, rows []*domain.StrategyRunResult) error

	// WriteNoTradeDates appends no-trade entries. Returns ErrDuplicateKey on (strategy, trade_date).
	WriteNoTradeDates(ctx context.Context, rows []*domain.NoTradeDate) error

	// WriteThresholdEvents appends portfolio threshold crossings.
	WriteThresholdEvents(ctx context.Context, events []*domain.PortfolioThresholdEvent) error

	// Purge removes everything written for a unit so it can be rebuilt.
	Purge(ctx context.Context, strategy string, tradeDate time.Time) error
}

// ResultReader exposes the ledger to reporting.
type ResultReader interface {
	// GetResults retrieves a strategy's rows ordered by trade_date, entry_round, entry_time.
	GetResults(ctx context.Context, strategy string) ([]*domain.StrategyRunResult, error)

	// GetAllResults retrieves every row ordered by strategy_name, trade_date.
	GetAllResults(ctx context.Context) ([]*domain.StrategyRunResult, error)

	// GetNoTradeDates retrieves no-trade entries, all strategies when strategy is empty.
	GetNoTradeDates(ctx context.Context, strategy string) ([]*domain.NoTradeDate, error)

	// GetThresholdEvents retrieves threshold crossings, all strategies when strategy is empty.
	GetThresholdEvents(ctx context.Context, strategy string) ([]*domain.PortfolioThresholdEvent, error)
}

// ResultStore is a sink that can also be read back.
type ResultStore interface {
	ResultSink
	ResultReader
}

// PnLSnapshotStore provides access to intraday portfolio PnL records.
type PnLSnapshotStore interface {
	// InsertBulk adds records. Fails entire batch on duplicate (strategy, trade_date, timestamp, settled).
	InsertBulk(ctx context.Context, records []*domain.PortfolioPnLRecord) error

	// GetByStrategyDate retrieves records ordered by timestamp ASC, settled last.
	GetByStrategyDate(ctx context.Context, strategy string, tradeDate time.Time) ([]*domain.PortfolioPnLRecord, error)

	// Purge removes a unit's records before it is rebuilt.
	Purge(ctx context.Context, strategy string, tradeDate time.Time) error
}
