package lookup

import (
	"errors"
	"sort"
	"time"

	"options-breakout-lab/internal/domain"
)

// Errors returned by lookup functions.
var (
	ErrNoQuoteData  = errors.New("no quote data available")
	ErrNoIndexData  = errors.New("no index data available")
	ErrNoQuoteAtBar = errors.New("no quote at requested bar")
)

// QuoteAt returns the bar starting exactly at target.
// Quotes must be ordered by time ascending.
func QuoteAt(target time.Time, quotes []*domain.OptionQuote) (*domain.OptionQuote, error) {
	if len(quotes) == 0 {
		return nil, ErrNoQuoteData
	}
	i := sort.Search(len(quotes), func(i int) bool { return !quotes[i].Time.Before(target) })
	if i < len(quotes) && quotes[i].Time.Equal(target) {
		return quotes[i], nil
	}
	return nil, ErrNoQuoteAtBar
}

// QuoteAtOrBefore returns the latest bar starting at or before target.
// Returns ErrNoQuoteAtBar if every bar starts after target.
func QuoteAtOrBefore(target time.Time, quotes []*domain.OptionQuote) (*domain.OptionQuote, error) {
	if len(quotes) == 0 {
		return nil, ErrNoQuoteData
	}
	i := sort.Search(len(quotes), func(i int) bool { return quotes[i].Time.After(target) })
	if i == 0 {
		return nil, ErrNoQuoteAtBar
	}
	return quotes[i-1], nil
}

// CloseAtOrBefore returns the close of the latest bar at or before target.
func CloseAtOrBefore(target time.Time, quotes []*domain.OptionQuote) (float64, error) {
	q, err := QuoteAtOrBefore(target, quotes)
	if err != nil {
		return 0, err
	}
	return q.Close, nil
}

// SpotAt returns the index close at or before target.
// If no candle precedes target, the first candle's open is used.
func SpotAt(target time.Time, candles []*domain.Candle) (float64, error) {
	if len(candles) == 0 {
		return 0, ErrNoIndexData
	}
	for i := len(candles) - 1; i >= 0; i-- {
		if !candles[i].Time.After(target) {
			return candles[i].Close, nil
		}
	}
	return candles[0].Open, nil
}
