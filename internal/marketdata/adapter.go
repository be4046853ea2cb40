// Package marketdata reads historical index ticks and option chains for one
// trade date and indexes them for the simulation stages.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"options-breakout-lab/internal/candles"
	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/storage"
)

// Adapter errors.
var (
	ErrNoExpiry   = errors.New("no expiry on or after trade date")
	ErrEmptyChain = errors.New("option chain is empty")
)

// Adapter serves market data from the tick and quote stores.
type Adapter struct {
	ticks  storage.IndexTickStore
	quotes storage.OptionQuoteStore
}

// NewAdapter creates an adapter over the given stores.
func NewAdapter(ticks storage.IndexTickStore, quotes storage.OptionQuoteStore) *Adapter {
	return &Adapter{ticks: ticks, quotes: quotes}
}

// GetTicks returns the raw one-minute index ticks of a trade date, ordered by time.
func (a *Adapter) GetTicks(ctx context.Context, symbol string, tradeDate time.Time) ([]*domain.Candle, error) {
	ticks, err := a.ticks.GetByDate(ctx, symbol, tradeDate)
	if err != nil {
		return nil, fmt.Errorf("get ticks %s %s: %w", symbol, tradeDate.Format(domain.DateLayout), err)
	}
	return ticks, nil
}

// GetCandles returns the index candles of a trade date at the given timeframe,
// bucketed from the 09:15 session anchor.
func (a *Adapter) GetCandles(ctx context.Context, symbol string, tradeDate time.Time, timeframeMinutes int) ([]*domain.Candle, error) {
	ticks, err := a.GetTicks(ctx, symbol, tradeDate)
	if err != nil {
		return nil, err
	}
	return candles.Aggregate(ticks, candles.Timeframe(timeframeMinutes), domain.SessionAnchor(tradeDate))
}

// TradeDates returns the dates with index data in [from, to].
func (a *Adapter) TradeDates(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error) {
	dates, err := a.ticks.GetTradeDates(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("get trade dates: %w", err)
	}
	return dates, nil
}

// NearestExpiry returns the first expiry on or after the trade date.
func (a *Adapter) NearestExpiry(ctx context.Context, symbol string, tradeDate time.Time) (time.Time, error) {
	expiries, err := a.quotes.GetExpiries(ctx, symbol, tradeDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("get expiries: %w", err)
	}
	day := domain.TruncateDate(tradeDate)
	for _, e := range expiries {
		if !e.Before(day) {
			return e, nil
		}
	}
	return time.Time{}, ErrNoExpiry
}

// GetOptionChain loads every bar of the chain for (symbol, date, expiry).
func (a *Adapter) GetOptionChain(ctx context.Context, symbol string, tradeDate, expiry time.Time) (*Chain, error) {
	quotes, err := a.quotes.GetChain(ctx, symbol, tradeDate, expiry)
	if err != nil {
		return nil, fmt.Errorf("get option chain: %w", err)
	}
	if len(quotes) == 0 {
		return nil, ErrEmptyChain
	}
	return NewChain(expiry, quotes), nil
}
