package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/storage"
)

// IndexTickStore implements storage.IndexTickStore using PostgreSQL.
type IndexTickStore struct {
	pool *Pool
}

// NewIndexTickStore creates a new IndexTickStore.
func NewIndexTickStore(pool *Pool) *IndexTickStore {
	return &IndexTickStore{pool: pool}
}

// Compile-time interface check.
var _ storage.IndexTickStore = (*IndexTickStore)(nil)

// InsertBulk loads ticks with COPY. Fails entire batch on any duplicate.
func (s *IndexTickStore) InsertBulk(ctx context.Context, ticks []*domain.Candle) error {
	if len(ticks) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(ticks))
	for _, t := range ticks {
		if t == nil || t.Symbol == "" || t.Time.IsZero() {
			return storage.ErrInvalidInput
		}
		rows = append(rows, []any{
			t.Symbol, t.Time, domain.TruncateDate(t.Time),
			t.Open, t.High, t.Low, t.Close, t.Volume, t.OpenInterest,
		})
	}

	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"index_ticks"},
		[]string{"symbol", "ts", "trade_date", "open", "high", "low", "close", "volume", "open_interest"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("copy index ticks: %w", err)
	}
	return nil
}

// GetByDate retrieves all ticks of a trade date, ordered by time ASC.
func (s *IndexTickStore) GetByDate(ctx context.Context, symbol string, tradeDate time.Time) ([]*domain.Candle, error) {
	query := `
		SELECT symbol, trade_date, ts, open, high, low, close, volume, open_interest
		FROM index_ticks
		WHERE symbol = $1 AND trade_date = $2
		ORDER BY ts ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol, domain.TruncateDate(tradeDate))
	if err != nil {
		return nil, fmt.Errorf("get index ticks: %w", err)
	}
	defer rows.Close()

	var ticks []*domain.Candle
	for rows.Next() {
		var c domain.Candle
		if err := rows.Scan(&c.Symbol, &c.TradeDate, &c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.OpenInterest); err != nil {
			return nil, fmt.Errorf("scan index tick row: %w", err)
		}
		c.TradeDate = domain.TruncateDate(c.TradeDate)
		c.Time = c.Time.UTC()
		ticks = append(ticks, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index tick rows: %w", err)
	}
	return ticks, nil
}

// GetTradeDates returns the distinct dates with ticks within [from, to].
func (s *IndexTickStore) GetTradeDates(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT DISTINCT trade_date
		FROM index_ticks
		WHERE symbol = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol, domain.TruncateDate(from), domain.TruncateDate(to))
	if err != nil {
		return nil, fmt.Errorf("get trade dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan trade date: %w", err)
		}
		dates = append(dates, domain.TruncateDate(d))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade dates: %w", err)
	}
	return dates, nil
}

// OptionQuoteStore implements storage.OptionQuoteStore using PostgreSQL.
type OptionQuoteStore struct {
	pool *Pool
}

// NewOptionQuoteStore creates a new OptionQuoteStore.
func NewOptionQuoteStore(pool *Pool) *OptionQuoteStore {
	return &OptionQuoteStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OptionQuoteStore = (*OptionQuoteStore)(nil)

// InsertBulk loads quotes with COPY. Fails entire batch on any duplicate.
func (s *OptionQuoteStore) InsertBulk(ctx context.Context, quotes []*domain.OptionQuote) error {
	if len(quotes) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(quotes))
	for _, q := range quotes {
		if q == nil || q.Symbol == "" || q.Time.IsZero() || q.Expiry.IsZero() {
			return storage.ErrInvalidInput
		}
		rows = append(rows, []any{
			q.Symbol, domain.TruncateDate(q.Expiry), q.Strike, string(q.OptionType),
			domain.TruncateDate(q.Time), q.Time,
			q.Open, q.High, q.Low, q.Close, q.Volume, q.OpenInterest,
		})
	}

	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"option_quotes"},
		[]string{"symbol", "expiry_date", "strike", "option_type", "trade_date", "ts",
			"open", "high", "low", "close", "volume", "open_interest"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("copy option quotes: %w", err)
	}
	return nil
}

// GetExpiries returns the expiries quoted on a trade date, ascending.
func (s *OptionQuoteStore) GetExpiries(ctx context.Context, symbol string, tradeDate time.Time) ([]time.Time, error) {
	query := `
		SELECT DISTINCT expiry_date
		FROM option_quotes
		WHERE symbol = $1 AND trade_date = $2
		ORDER BY expiry_date ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol, domain.TruncateDate(tradeDate))
	if err != nil {
		return nil, fmt.Errorf("get expiries: %w", err)
	}
	defer rows.Close()

	var expiries []time.Time
	for rows.Next() {
		var e time.Time
		if err := rows.Scan(&e); err != nil {
			return nil, fmt.Errorf("scan expiry: %w", err)
		}
		expiries = append(expiries, domain.TruncateDate(e))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expiries: %w", err)
	}
	return expiries, nil
}

// GetChain retrieves all bars for (symbol, trade date, expiry).
func (s *OptionQuoteStore) GetChain(ctx context.Context, symbol string, tradeDate, expiry time.Time) ([]*domain.OptionQuote, error) {
	query := `
		SELECT symbol, expiry_date, strike, option_type, trade_date, ts,
			open, high, low, close, volume, open_interest
		FROM option_quotes
		WHERE symbol = $1 AND trade_date = $2 AND expiry_date = $3
		ORDER BY ts ASC, strike ASC, option_type ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol, domain.TruncateDate(tradeDate), domain.TruncateDate(expiry))
	if err != nil {
		return nil, fmt.Errorf("get option chain: %w", err)
	}
	defer rows.Close()

	var quotes []*domain.OptionQuote
	for rows.Next() {
		var (
			q          domain.OptionQuote
			optionType string
		)
		err := rows.Scan(
			&q.Symbol, &q.Expiry, &q.Strike, &optionType, &q.TradeDate, &q.Time,
			&q.Open, &q.High, &q.Low, &q.Close, &q.Volume, &q.OpenInterest,
		)
		if err != nil {
			return nil, fmt.Errorf("scan option quote row: %w", err)
		}
		q.OptionType = domain.OptionType(optionType)
		q.Expiry = domain.TruncateDate(q.Expiry)
		q.TradeDate = domain.TruncateDate(q.TradeDate)
		q.Time = q.Time.UTC()
		quotes = append(quotes, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate option quote rows: %w", err)
	}
	return quotes, nil
}
