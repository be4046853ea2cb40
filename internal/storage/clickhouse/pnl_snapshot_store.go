package clickhouse

import (
	"context"
	"fmt"
	"time"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/storage"
)

// PnLSnapshotStore implements storage.PnLSnapshotStore using ClickHouse.
// MTM and realized PnL are Decimal(18, 2) columns mapped to shopspring/decimal.
type PnLSnapshotStore struct {
	conn *Conn
}

// NewPnLSnapshotStore creates a new PnLSnapshotStore.
func NewPnLSnapshotStore(conn *Conn) *PnLSnapshotStore {
	return &PnLSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PnLSnapshotStore = (*PnLSnapshotStore)(nil)

type snapshotKey struct {
	strategy string
	day      int64
	ts       int64
	settled  bool
}

func keyOf(r *domain.PortfolioPnLRecord) snapshotKey {
	return snapshotKey{r.Strategy, domain.TruncateDate(r.TradeDate).Unix(), r.Timestamp.UnixMilli(), r.Settled}
}

// InsertBulk adds records. Fails entire batch on duplicate (strategy, trade_date, ts, settled).
func (s *PnLSnapshotStore) InsertBulk(ctx context.Context, records []*domain.PortfolioPnLRecord) error {
	if len(records) == 0 {
		return nil
	}

	seen := make(map[snapshotKey]struct{}, len(records))
	units := make(map[[2]string]time.Time)
	for _, r := range records {
		if r == nil || r.Strategy == "" {
			return storage.ErrInvalidInput
		}
		k := keyOf(r)
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		day := domain.TruncateDate(r.TradeDate)
		units[[2]string{r.Strategy, day.Format(domain.DateLayout)}] = day
	}

	for unit, day := range units {
		existing, err := s.GetByStrategyDate(ctx, unit[0], day)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, e := range existing {
			if _, dup := seen[keyOf(e)]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO portfolio_pnl (
			strategy_name, trade_date, ts, mtm_pnl, realized_pnl, settled
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		var settled uint8
		if r.Settled {
			settled = 1
		}
		err = batch.Append(
			r.Strategy, domain.TruncateDate(r.TradeDate), r.Timestamp.UTC(),
			r.MTMPnL.Round(2), r.RealizedPnL.Round(2), settled,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByStrategyDate retrieves records ordered by timestamp ASC, settled last.
func (s *PnLSnapshotStore) GetByStrategyDate(ctx context.Context, strategy string, tradeDate time.Time) ([]*domain.PortfolioPnLRecord, error) {
	query := `
		SELECT strategy_name, trade_date, ts, mtm_pnl, realized_pnl, settled
		FROM portfolio_pnl
		WHERE strategy_name = ? AND trade_date = ?
		ORDER BY settled ASC, ts ASC
	`

	rows, err := s.conn.Query(ctx, query, strategy, domain.TruncateDate(tradeDate))
	if err != nil {
		return nil, fmt.Errorf("query portfolio pnl: %w", err)
	}
	defer rows.Close()

	var records []*domain.PortfolioPnLRecord
	for rows.Next() {
		var (
			r       domain.PortfolioPnLRecord
			settled uint8
		)
		if err := rows.Scan(&r.Strategy, &r.TradeDate, &r.Timestamp, &r.MTMPnL, &r.RealizedPnL, &settled); err != nil {
			return nil, fmt.Errorf("scan portfolio pnl row: %w", err)
		}
		r.Settled = settled == 1
		r.TradeDate = domain.TruncateDate(r.TradeDate)
		r.Timestamp = r.Timestamp.UTC()
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate portfolio pnl rows: %w", err)
	}
	return records, nil
}

// Purge removes a unit's records with a lightweight delete.
func (s *PnLSnapshotStore) Purge(ctx context.Context, strategy string, tradeDate time.Time) error {
	err := s.conn.Exec(ctx,
		`DELETE FROM portfolio_pnl WHERE strategy_name = ? AND trade_date = ?`,
		strategy, domain.TruncateDate(tradeDate),
	)
	if err != nil {
		return fmt.Errorf("purge portfolio pnl: %w", err)
	}
	return nil
}
