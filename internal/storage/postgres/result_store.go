package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/idhash"
	"options-breakout-lab/internal/observability"
	"options-breakout-lab/internal/storage"
)

// ResultStore implements storage.ResultStore using PostgreSQL.
type ResultStore struct {
	pool *Pool
}

// NewResultStore creates a new ResultStore.
func NewResultStore(pool *Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ResultStore = (*ResultStore)(nil)

// WriteResults appends ledger rows atomically. Fails entire batch on any duplicate.
func (s *ResultStore) WriteResults(ctx context.Context, rows []*domain.StrategyRunResult) (err error) {
	if len(rows) == 0 {
		return nil
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("write_results", time.Since(start), err)
	}(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO strategy_run_results (
			result_id, strategy_name, trade_date, expiry_date,
			breakout_time, entry_time, exit_time,
			option_type, strike, entry_price, exit_price,
			transaction_type, leg_type, entry_round, exit_reason, pnl_amount
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14, $15, $16::numeric
		)
	`

	for _, r := range rows {
		_, err := tx.Exec(ctx, query,
			idhash.ComputeResultID(r.Key(), r.TransactionType, r.EntryTime), r.StrategyName, r.TradeDate, r.ExpiryDate,
			r.BreakoutTime, r.EntryTime, r.ExitTime,
			string(r.OptionType), r.Strike, r.EntryPrice, r.ExitPrice,
			string(r.TransactionType), string(r.LegType), r.EntryRound, string(r.ExitReason), r.PnLAmount.StringFixed(2),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert run result: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// WriteNoTradeDates appends no-trade entries atomically.
func (s *ResultStore) WriteNoTradeDates(ctx context.Context, rows []*domain.NoTradeDate) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO strategy_no_trade_dates (strategy_name, trade_date, reason, detail)
		VALUES ($1, $2, $3, $4)
	`
	for _, r := range rows {
		_, err := tx.Exec(ctx, query, r.StrategyName, r.TradeDate, string(r.Reason), r.Detail)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert no-trade date: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// WriteThresholdEvents appends portfolio threshold crossings atomically.
func (s *ResultStore) WriteThresholdEvents(ctx context.Context, events []*domain.PortfolioThresholdEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO portfolio_threshold_events (strategy_name, trade_date, kind, event_time, pnl, threshold)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric)
	`
	for _, e := range events {
		_, err := tx.Exec(ctx, query,
			e.Strategy, e.TradeDate, string(e.Kind), e.Time, e.PnL.StringFixed(2), e.Threshold.StringFixed(2),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert threshold event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Purge removes everything written for a unit in one transaction.
func (s *ResultStore) Purge(ctx context.Context, strategy string, tradeDate time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	day := domain.TruncateDate(tradeDate)
	for _, table := range []string{"strategy_run_results", "strategy_no_trade_dates", "portfolio_threshold_events"} {
		query := fmt.Sprintf(`DELETE FROM %s WHERE strategy_name = $1 AND trade_date = $2`, table)
		if _, err := tx.Exec(ctx, query, strategy, day); err != nil {
			return fmt.Errorf("purge %s: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const resultColumns = `
	strategy_name, trade_date, expiry_date,
	breakout_time, entry_time, exit_time,
	option_type, strike, entry_price, exit_price,
	transaction_type, leg_type, entry_round, exit_reason, pnl_amount::text`

const resultOrder = `ORDER BY strategy_name, trade_date, entry_round, entry_time, leg_type, strike, option_type`

// GetResults retrieves a strategy's rows ordered by trade_date, entry_round, entry_time.
func (s *ResultStore) GetResults(ctx context.Context, strategy string) ([]*domain.StrategyRunResult, error) {
	query := `SELECT ` + resultColumns + ` FROM strategy_run_results WHERE strategy_name = $1 ` + resultOrder

	rows, err := s.pool.Query(ctx, query, strategy)
	if err != nil {
		return nil, fmt.Errorf("get run results: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// GetAllResults retrieves every row ordered by strategy_name, trade_date.
func (s *ResultStore) GetAllResults(ctx context.Context) ([]*domain.StrategyRunResult, error) {
	query := `SELECT ` + resultColumns + ` FROM strategy_run_results ` + resultOrder

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all run results: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// scanResults scans multiple rows into a slice of StrategyRunResult.
func scanResults(rows pgx.Rows) ([]*domain.StrategyRunResult, error) {
	var results []*domain.StrategyRunResult

	for rows.Next() {
		var (
			r                                               domain.StrategyRunResult
			optionType, txType, legType, exitReason, pnlStr string
		)
		err := rows.Scan(
			&r.StrategyName, &r.TradeDate, &r.ExpiryDate,
			&r.BreakoutTime, &r.EntryTime, &r.ExitTime,
			&optionType, &r.Strike, &r.EntryPrice, &r.ExitPrice,
			&txType, &legType, &r.EntryRound, &exitReason, &pnlStr,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run result row: %w", err)
		}
		pnl, err := decimal.NewFromString(pnlStr)
		if err != nil {
			return nil, fmt.Errorf("parse pnl_amount %q: %w", pnlStr, err)
		}

		r.OptionType = domain.OptionType(optionType)
		r.TransactionType = domain.TransactionType(txType)
		r.LegType = domain.LegType(legType)
		r.ExitReason = domain.ExitReason(exitReason)
		r.PnLAmount = pnl
		r.TradeDate = domain.TruncateDate(r.TradeDate)
		r.ExpiryDate = domain.TruncateDate(r.ExpiryDate)
		r.BreakoutTime = r.BreakoutTime.UTC()
		r.EntryTime = r.EntryTime.UTC()
		r.ExitTime = r.ExitTime.UTC()

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run result rows: %w", err)
	}
	return results, nil
}

// GetNoTradeDates retrieves no-trade entries, all strategies when strategy is empty.
func (s *ResultStore) GetNoTradeDates(ctx context.Context, strategy string) ([]*domain.NoTradeDate, error) {
	query := `
		SELECT strategy_name, trade_date, reason, detail
		FROM strategy_no_trade_dates
		WHERE $1 = '' OR strategy_name = $1
		ORDER BY strategy_name ASC, trade_date ASC
	`

	rows, err := s.pool.Query(ctx, query, strategy)
	if err != nil {
		return nil, fmt.Errorf("get no-trade dates: %w", err)
	}
	defer rows.Close()

	var out []*domain.NoTradeDate
	for rows.Next() {
		var (
			r      domain.NoTradeDate
			reason string
		)
		if err := rows.Scan(&r.StrategyName, &r.TradeDate, &reason, &r.Detail); err != nil {
			return nil, fmt.Errorf("scan no-trade row: %w", err)
		}
		r.Reason = domain.NoTradeReason(reason)
		r.TradeDate = domain.TruncateDate(r.TradeDate)
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate no-trade rows: %w", err)
	}
	return out, nil
}

// GetThresholdEvents retrieves threshold crossings, all strategies when strategy is empty.
func (s *ResultStore) GetThresholdEvents(ctx context.Context, strategy string) ([]*domain.PortfolioThresholdEvent, error) {
	query := `
		SELECT strategy_name, trade_date, kind, event_time, pnl::text, threshold::text
		FROM portfolio_threshold_events
		WHERE $1 = '' OR strategy_name = $1
		ORDER BY strategy_name ASC, trade_date ASC, event_time ASC
	`

	rows, err := s.pool.Query(ctx, query, strategy)
	if err != nil {
		return nil, fmt.Errorf("get threshold events: %w", err)
	}
	defer rows.Close()

	var out []*domain.PortfolioThresholdEvent
	for rows.Next() {
		var (
			e                    domain.PortfolioThresholdEvent
			kind, pnl, threshold string
		)
		if err := rows.Scan(&e.Strategy, &e.TradeDate, &kind, &e.Time, &pnl, &threshold); err != nil {
			return nil, fmt.Errorf("scan threshold row: %w", err)
		}
		if e.PnL, err = decimal.NewFromString(pnl); err != nil {
			return nil, fmt.Errorf("parse pnl %q: %w", pnl, err)
		}
		if e.Threshold, err = decimal.NewFromString(threshold); err != nil {
			return nil, fmt.Errorf("parse threshold %q: %w", threshold, err)
		}
		e.Kind = domain.ThresholdKind(kind)
		e.TradeDate = domain.TruncateDate(e.TradeDate)
		e.Time = e.Time.UTC()
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threshold rows: %w", err)
	}
	return out, nil
}
