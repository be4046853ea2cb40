package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/storage"
)

// PnLSnapshotStore implements storage.PnLSnapshotStore using PostgreSQL.
type PnLSnapshotStore struct {
	pool *Pool
}

// NewPnLSnapshotStore creates a new PnLSnapshotStore.
func NewPnLSnapshotStore(pool *Pool) *PnLSnapshotStore {
	return &PnLSnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PnLSnapshotStore = (*PnLSnapshotStore)(nil)

// InsertBulk adds records atomically. Fails entire batch on duplicate (strategy, trade_date, ts, settled).
func (s *PnLSnapshotStore) InsertBulk(ctx context.Context, records []*domain.PortfolioPnLRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if r == nil || r.Strategy == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO portfolio_pnl (strategy_name, trade_date, ts, mtm_pnl, realized_pnl, settled)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6)
	`
	for _, r := range records {
		_, err := tx.Exec(ctx, query,
			r.Strategy, domain.TruncateDate(r.TradeDate), r.Timestamp.UTC(),
			r.MTMPnL.StringFixed(2), r.RealizedPnL.StringFixed(2), r.Settled,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert portfolio pnl: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByStrategyDate retrieves records ordered by timestamp ASC, settled last.
func (s *PnLSnapshotStore) GetByStrategyDate(ctx context.Context, strategy string, tradeDate time.Time) ([]*domain.PortfolioPnLRecord, error) {
	query := `
		SELECT strategy_name, trade_date, ts, mtm_pnl::text, realized_pnl::text, settled
		FROM portfolio_pnl
		WHERE strategy_name = $1 AND trade_date = $2
		ORDER BY settled ASC, ts ASC
	`

	rows, err := s.pool.Query(ctx, query, strategy, domain.TruncateDate(tradeDate))
	if err != nil {
		return nil, fmt.Errorf("query portfolio pnl: %w", err)
	}
	defer rows.Close()

	var records []*domain.PortfolioPnLRecord
	for rows.Next() {
		var (
			r                domain.PortfolioPnLRecord
			mtmStr, realized string
		)
		if err := rows.Scan(&r.Strategy, &r.TradeDate, &r.Timestamp, &mtmStr, &realized, &r.Settled); err != nil {
			return nil, fmt.Errorf("scan portfolio pnl row: %w", err)
		}
		if r.MTMPnL, err = decimal.NewFromString(mtmStr); err != nil {
			return nil, fmt.Errorf("parse mtm_pnl %q: %w", mtmStr, err)
		}
		if r.RealizedPnL, err = decimal.NewFromString(realized); err != nil {
			return nil, fmt.Errorf("parse realized_pnl %q: %w", realized, err)
		}
		r.TradeDate = domain.TruncateDate(r.TradeDate)
		r.Timestamp = r.Timestamp.UTC()
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate portfolio pnl rows: %w", err)
	}
	return records, nil
}

// Purge removes a unit's records before it is rebuilt.
func (s *PnLSnapshotStore) Purge(ctx context.Context, strategy string, tradeDate time.Time) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM portfolio_pnl WHERE strategy_name = $1 AND trade_date = $2`,
		strategy, domain.TruncateDate(tradeDate),
	)
	if err != nil {
		return fmt.Errorf("purge portfolio pnl: %w", err)
	}
	return nil
}
