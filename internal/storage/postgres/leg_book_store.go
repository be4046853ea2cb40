package postgres

import (
	"context"
	"fmt"
	"time"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/idhash"
	"options-breakout-lab/internal/observability"
	"options-breakout-lab/internal/storage"
)

// LegBookStore implements storage.LegBookStore using PostgreSQL.
// Concurrent writers are serialized by the primary key: ON CONFLICT DO NOTHING.
type LegBookStore struct {
	pool *Pool
}

// NewLegBookStore creates a new LegBookStore.
func NewLegBookStore(pool *Pool) *LegBookStore {
	return &LegBookStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LegBookStore = (*LegBookStore)(nil)

// Append inserts an entry. A duplicate leg key is a no-op and reports inserted=false.
func (s *LegBookStore) Append(ctx context.Context, e *domain.LegBookEntry) (bool, error) {
	if e == nil || e.Strategy == "" {
		return false, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO strategy_leg_book (
			leg_id, strategy_name, trade_date, expiry_date, strike, option_type,
			entry_round, leg_type, origin, entry_time, entry_price, exit_time, exit_price, exit_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (leg_id) DO NOTHING
	`

	start := time.Now()
	tag, err := s.pool.Exec(ctx, query,
		idhash.ComputeLegBookID(e), e.Strategy, e.TradeDate, e.ExpiryDate, e.Strike, string(e.OptionType),
		e.EntryRound, string(e.LegType), string(originOrPrimary(e.Origin)), e.EntryTime, e.EntryPrice, e.ExitTime, e.ExitPrice, string(e.ExitReason),
	)
	observability.RecordDBQuery("append_leg", time.Since(start), err)
	if err != nil {
		return false, fmt.Errorf("append leg book entry: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByStrategyDate retrieves entries ordered by entry_round, strike.
func (s *LegBookStore) GetByStrategyDate(ctx context.Context, strategy string, tradeDate time.Time) ([]*domain.LegBookEntry, error) {
	query := `
		SELECT
			strategy_name, trade_date, expiry_date, strike, option_type,
			entry_round, leg_type, origin, entry_time, entry_price, exit_time, exit_price, exit_reason
		FROM strategy_leg_book
		WHERE strategy_name = $1 AND trade_date = $2
		ORDER BY entry_round ASC, strike ASC, leg_type ASC, origin DESC
	`

	rows, err := s.pool.Query(ctx, query, strategy, domain.TruncateDate(tradeDate))
	if err != nil {
		return nil, fmt.Errorf("get leg book: %w", err)
	}
	defer rows.Close()

	var entries []*domain.LegBookEntry
	for rows.Next() {
		var (
			e                                       domain.LegBookEntry
			optionType, legType, origin, exitReason string
		)
		err := rows.Scan(
			&e.Strategy, &e.TradeDate, &e.ExpiryDate, &e.Strike, &optionType,
			&e.EntryRound, &legType, &origin, &e.EntryTime, &e.EntryPrice, &e.ExitTime, &e.ExitPrice, &exitReason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan leg book row: %w", err)
		}
		e.OptionType = domain.OptionType(optionType)
		e.LegType = domain.LegType(legType)
		e.Origin = domain.LegOrigin(origin)
		e.ExitReason = domain.ExitReason(exitReason)
		e.TradeDate = domain.TruncateDate(e.TradeDate)
		e.ExpiryDate = domain.TruncateDate(e.ExpiryDate)
		e.EntryTime = e.EntryTime.UTC()
		e.ExitTime = e.ExitTime.UTC()
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leg book rows: %w", err)
	}
	return entries, nil
}

// Purge removes a unit's entries before it is rebuilt.
func (s *LegBookStore) Purge(ctx context.Context, strategy string, tradeDate time.Time) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM strategy_leg_book WHERE strategy_name = $1 AND trade_date = $2`,
		strategy, domain.TruncateDate(tradeDate),
	)
	if err != nil {
		return fmt.Errorf("purge leg book: %w", err)
	}
	return nil
}

func originOrPrimary(o domain.LegOrigin) domain.LegOrigin {
	if o == "" {
		return domain.LegOriginPrimary
	}
	return o
}
