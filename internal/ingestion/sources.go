package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"options-breakout-lab/internal/domain"
)

// DefaultBatchSize is the number of rows per InsertBulk call.
const DefaultBatchSize = 100_000

// ErrMissingColumn is returned when a required CSV column is absent.
var ErrMissingColumn = errors.New("missing required column")

// TickSource yields index ticks in batches. Next returns io.EOF when done.
type TickSource interface {
	Next(ctx context.Context) ([]*domain.Candle, error)
}

// QuoteSource yields option bars in batches. Next returns io.EOF when done.
type QuoteSource interface {
	Next(ctx context.Context) ([]*domain.OptionQuote, error)
	Dropped() int
}

var (
	tickColumns  = []string{"date", "time", "open", "high", "low", "close"}
	quoteColumns = []string{"date", "time", "expiry", "strike", "option_type", "open", "high", "low", "close"}
)

// csvTable reads a headed CSV and exposes cells by column name.
type csvTable struct {
	reader *csv.Reader
	index  map[string]int
	line   int
	record []string
}

func newCSVTable(r io.Reader, required []string) (*csvTable, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return &csvTable{reader: reader, index: index, line: 1}, nil
}

func (t *csvTable) next() error {
	record, err := t.reader.Read()
	if err != nil {
		return err
	}
	t.line++
	t.record = record
	return nil
}

func (t *csvTable) has(name string) bool {
	_, ok := t.index[name]
	return ok
}

func (t *csvTable) str(name string) string {
	i, ok := t.index[name]
	if !ok || i >= len(t.record) {
		return ""
	}
	return strings.TrimSpace(t.record[i])
}

func (t *csvTable) float(name string) (float64, error) {
	s := t.str(name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d, %s: %w", t.line, name, err)
	}
	return v, nil
}

func (t *csvTable) int(name string) (int64, error) {
	v, err := t.float(name)
	return int64(v), err
}

func (t *csvTable) date(name string) (time.Time, error) {
	s := t.str(name)
	for _, layout := range []string{domain.DateLayout, "2006/01/02", "02-01-2006"} {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	// pandas writes datetimes for date columns
	if d, err := time.Parse(domain.DateLayout+" "+domain.ClockLayout, s); err == nil {
		return domain.TruncateDate(d), nil
	}
	return time.Time{}, fmt.Errorf("line %d, %s: invalid date %q", t.line, name, s)
}

// stamp combines the date and time columns into a UTC instant.
func (t *csvTable) stamp() (day, at time.Time, err error) {
	day, err = t.date("date")
	if err != nil {
		return
	}
	offset, perr := domain.ParseClock(t.str("time"))
	if perr != nil {
		return day, at, fmt.Errorf("line %d, time: %w", t.line, perr)
	}
	return day, day.Add(offset), nil
}

type bar struct {
	open, high, low, close float64
	volume, oi             int64
}

func (t *csvTable) bar() (b bar, err error) {
	if b.open, err = t.float("open"); err != nil {
		return
	}
	if b.high, err = t.float("high"); err != nil {
		return
	}
	if b.low, err = t.float("low"); err != nil {
		return
	}
	if b.close, err = t.float("close"); err != nil {
		return
	}
	if b.volume, err = t.int("volume"); err != nil {
		return
	}
	b.oi, err = t.int("oi")
	return
}

// CSVTickSource reads one-minute index bars with columns
// date, time, open, high, low, close and optional volume, oi, symbol.
type CSVTickSource struct {
	table     *csvTable
	symbol    string
	batchSize int
}

// NewCSVTickSource validates the header. symbol applies to rows without a
// symbol column value.
func NewCSVTickSource(r io.Reader, symbol string, batchSize int) (*CSVTickSource, error) {
	table, err := newCSVTable(r, tickColumns)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &CSVTickSource{table: table, symbol: symbol, batchSize: batchSize}, nil
}

// Next returns up to batchSize ticks.
func (s *CSVTickSource) Next(ctx context.Context) ([]*domain.Candle, error) {
	var out []*domain.Candle
	for len(out) < s.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.table.next(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		day, at, err := s.table.stamp()
		if err != nil {
			return nil, err
		}
		b, err := s.table.bar()
		if err != nil {
			return nil, err
		}
		symbol := s.symbol
		if v := s.table.str("symbol"); v != "" {
			symbol = strings.ToUpper(v)
		}
		out = append(out, &domain.Candle{
			Symbol:       symbol,
			TradeDate:    day,
			Time:         at,
			Open:         b.open,
			High:         b.high,
			Low:          b.low,
			Close:        b.close,
			Volume:       b.volume,
			OpenInterest: b.oi,
		})
	}
	if len(out) == 0 {
		return nil, io.EOF
	}
	return out, nil
}

// CSVQuoteSource reads option bars with columns date, time, expiry, strike,
// option_type, open, high, low, close and optional symbol, volume, oi.
// Rows whose option_type is not a call or a put are dropped.
type CSVQuoteSource struct {
	table     *csvTable
	symbol    string
	batchSize int
	dropped   int
}

// NewCSVQuoteSource validates the header.
func NewCSVQuoteSource(r io.Reader, symbol string, batchSize int) (*CSVQuoteSource, error) {
	table, err := newCSVTable(r, quoteColumns)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &CSVQuoteSource{table: table, symbol: symbol, batchSize: batchSize}, nil
}

// Dropped returns the number of rows skipped for an unknown option type.
func (s *CSVQuoteSource) Dropped() int {
	return s.dropped
}

// Next returns up to batchSize quotes.
func (s *CSVQuoteSource) Next(ctx context.Context) ([]*domain.OptionQuote, error) {
	var out []*domain.OptionQuote
	for len(out) < s.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.table.next(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		optionType, ok := ParseOptionType(s.table.str("option_type"))
		if !ok {
			s.dropped++
			continue
		}
		day, at, err := s.table.stamp()
		if err != nil {
			return nil, err
		}
		expiry, err := s.table.date("expiry")
		if err != nil {
			return nil, err
		}
		strike, err := s.table.float("strike")
		if err != nil {
			return nil, err
		}
		b, err := s.table.bar()
		if err != nil {
			return nil, err
		}
		symbol := s.symbol
		if v := s.table.str("symbol"); v != "" {
			symbol = strings.ToUpper(v)
		}
		out = append(out, &domain.OptionQuote{
			OptionContract: domain.OptionContract{
				Symbol:     symbol,
				Expiry:     expiry,
				Strike:     strike,
				OptionType: optionType,
			},
			TradeDate:    day,
			Time:         at,
			Open:         b.open,
			High:         b.high,
			Low:          b.low,
			Close:        b.close,
			Volume:       b.volume,
			OpenInterest: b.oi,
		})
	}
	if len(out) == 0 {
		return nil, io.EOF
	}
	return out, nil
}

// ParseOptionType accepts c/ce/call and p/pe/put in any case.
func ParseOptionType(s string) (domain.OptionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "ce", "call":
		return domain.OptionTypeCall, true
	case "p", "pe", "put":
		return domain.OptionTypePut, true
	}
	return "", false
}
