package clickhouse

import (
	"context"
	"fmt"
	"time"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/storage"
)

// IndexTickStore implements storage.IndexTickStore using ClickHouse.
type IndexTickStore struct {
	conn *Conn
}

// NewIndexTickStore creates a new IndexTickStore.
func NewIndexTickStore(conn *Conn) *IndexTickStore {
	return &IndexTickStore{conn: conn}
}

// Compile-time interface check.
var _ storage.IndexTickStore = (*IndexTickStore)(nil)

// InsertBulk adds ticks. Fails entire batch on duplicate (symbol, ts).
func (s *IndexTickStore) InsertBulk(ctx context.Context, ticks []*domain.Candle) error {
	if len(ticks) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]struct{}, len(ticks))
	for _, t := range ticks {
		if t == nil || t.Symbol == "" || t.Time.IsZero() {
			return storage.ErrInvalidInput
		}
		k := key{t.Symbol, t.Time.UnixMilli()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing rows, one range scan per symbol
	for symbol, span := range tickSpans(ticks) {
		existing, err := s.timesBetween(ctx, symbol, span[0], span[1])
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, ts := range existing {
			if _, dup := seen[key{symbol, ts}]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO index_ticks (
			symbol, ts, trade_date, open, high, low, close, volume, open_interest
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range ticks {
		err = batch.Append(
			t.Symbol, t.Time.UTC(), domain.TruncateDate(t.Time),
			t.Open, t.High, t.Low, t.Close, t.Volume, t.OpenInterest,
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

func tickSpans(ticks []*domain.Candle) map[string][2]time.Time {
	spans := make(map[string][2]time.Time)
	for _, t := range ticks {
		span, ok := spans[t.Symbol]
		if !ok {
			spans[t.Symbol] = [2]time.Time{t.Time, t.Time}
			continue
		}
		if t.Time.Before(span[0]) {
			span[0] = t.Time
		}
		if t.Time.After(span[1]) {
			span[1] = t.Time
		}
		spans[t.Symbol] = span
	}
	return spans
}

func (s *IndexTickStore) timesBetween(ctx context.Context, symbol string, from, to time.Time) ([]int64, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT ts FROM index_ticks
		WHERE symbol = ? AND ts >= ? AND ts <= ?
	`, symbol, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		out = append(out, ts.UnixMilli())
	}
	return out, rows.Err()
}

// GetByDate retrieves all ticks of a trade date, ordered by time ASC.
func (s *IndexTickStore) GetByDate(ctx context.Context, symbol string, tradeDate time.Time) ([]*domain.Candle, error) {
	query := `
		SELECT symbol, trade_date, ts, open, high, low, close, volume, open_interest
		FROM index_ticks
		WHERE symbol = ? AND trade_date = ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, domain.TruncateDate(tradeDate))
	if err != nil {
		return nil, fmt.Errorf("query index ticks: %w", err)
	}
	defer rows.Close()

	return scanIndexTicks(rows)
}

// GetTradeDates returns the distinct dates with ticks within [from, to].
func (s *IndexTickStore) GetTradeDates(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT DISTINCT trade_date
		FROM index_ticks
		WHERE symbol = ? AND trade_date >= ? AND trade_date <= ?
		ORDER BY trade_date ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, domain.TruncateDate(from), domain.TruncateDate(to))
	if err != nil {
		return nil, fmt.Errorf("query trade dates: %w", err)
	}
	defer rows.Close()

	return scanDates(rows)
}

// scanIndexTicks scans multiple rows.
func scanIndexTicks(rows chRows) ([]*domain.Candle, error) {
	var ticks []*domain.Candle

	for rows.Next() {
		var c domain.Candle
		err := rows.Scan(
			&c.Symbol, &c.TradeDate, &c.Time,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.OpenInterest,
		)
		if err != nil {
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

func scanDates(rows chRows) ([]time.Time, error) {
	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, domain.TruncateDate(d))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dates: %w", err)
	}
	return dates, nil
}

// OptionQuoteStore implements storage.OptionQuoteStore using ClickHouse.
type OptionQuoteStore struct {
	conn *Conn
}

// NewOptionQuoteStore creates a new OptionQuoteStore.
func NewOptionQuoteStore(conn *Conn) *OptionQuoteStore {
	return &OptionQuoteStore{conn: conn}
}

// Compile-time interface check.
var _ storage.OptionQuoteStore = (*OptionQuoteStore)(nil)

// InsertBulk adds quotes. Fails entire batch on duplicate (contract, ts).
func (s *OptionQuoteStore) InsertBulk(ctx context.Context, quotes []*domain.OptionQuote) error {
	if len(quotes) == 0 {
		return nil
	}

	seen := make(map[quoteKey]struct{}, len(quotes))
	days := make(map[string]map[time.Time]struct{}) // symbol -> trade dates
	for _, q := range quotes {
		if q == nil || q.Symbol == "" || q.Time.IsZero() || q.Expiry.IsZero() {
			return storage.ErrInvalidInput
		}
		k := quoteKey{normalizeContract(q.OptionContract).String(), q.Time.UnixMilli()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		if days[q.Symbol] == nil {
			days[q.Symbol] = make(map[time.Time]struct{})
		}
		days[q.Symbol][domain.TruncateDate(q.Time)] = struct{}{}
	}

	for symbol, dates := range days {
		for day := range dates {
			existing, err := s.keysOn(ctx, symbol, day)
			if err != nil {
				return fmt.Errorf("check exists: %w", err)
			}
			for _, e := range existing {
				if _, dup := seen[e]; dup {
					return storage.ErrDuplicateKey
				}
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO option_quotes (
			symbol, expiry_date, strike, option_type, trade_date, ts,
			open, high, low, close, volume, open_interest
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, q := range quotes {
		err = batch.Append(
			q.Symbol, domain.TruncateDate(q.Expiry), q.Strike, string(q.OptionType),
			domain.TruncateDate(q.Time), q.Time.UTC(),
			q.Open, q.High, q.Low, q.Close, q.Volume, q.OpenInterest,
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

type quoteKey struct {
	contract string
	ts       int64
}

func (s *OptionQuoteStore) keysOn(ctx context.Context, symbol string, day time.Time) ([]quoteKey, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT symbol, expiry_date, strike, option_type, ts
		FROM option_quotes
		WHERE symbol = ? AND trade_date = ?
	`, symbol, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []quoteKey
	for rows.Next() {
		var (
			c          domain.OptionContract
			optionType string
			ts         time.Time
		)
		if err := rows.Scan(&c.Symbol, &c.Expiry, &c.Strike, &optionType, &ts); err != nil {
			return nil, err
		}
		c.OptionType = domain.OptionType(optionType)
		out = append(out, quoteKey{normalizeContract(c).String(), ts.UnixMilli()})
	}
	return out, rows.Err()
}

func normalizeContract(c domain.OptionContract) domain.OptionContract {
	c.Expiry = domain.TruncateDate(c.Expiry)
	return c
}

// GetExpiries returns the expiries quoted on a trade date, ascending.
func (s *OptionQuoteStore) GetExpiries(ctx context.Context, symbol string, tradeDate time.Time) ([]time.Time, error) {
	query := `
		SELECT DISTINCT expiry_date
		FROM option_quotes
		WHERE symbol = ? AND trade_date = ?
		ORDER BY expiry_date ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, domain.TruncateDate(tradeDate))
	if err != nil {
		return nil, fmt.Errorf("query expiries: %w", err)
	}
	defer rows.Close()

	return scanDates(rows)
}

// GetChain retrieves all bars for (symbol, trade date, expiry).
func (s *OptionQuoteStore) GetChain(ctx context.Context, symbol string, tradeDate, expiry time.Time) ([]*domain.OptionQuote, error) {
	query := `
		SELECT symbol, expiry_date, strike, option_type, trade_date, ts,
			open, high, low, close, volume, open_interest
		FROM option_quotes
		WHERE symbol = ? AND trade_date = ? AND expiry_date = ?
		ORDER BY ts ASC, strike ASC, option_type ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, domain.TruncateDate(tradeDate), domain.TruncateDate(expiry))
	if err != nil {
		return nil, fmt.Errorf("query option chain: %w", err)
	}
	defer rows.Close()

	return scanOptionQuotes(rows)
}

// scanOptionQuotes scans multiple rows.
func scanOptionQuotes(rows chRows) ([]*domain.OptionQuote, error) {
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
