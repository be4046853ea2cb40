package ingestion

import (
	"errors"
	"sort"

	"options-breakout-lab/internal/domain"
)

// ErrInvalidOrdering is returned when bars are not properly ordered.
var ErrInvalidOrdering = errors.New("bars are not in deterministic order")

// SortTicks orders ticks by (symbol ASC, time ASC).
func SortTicks(ticks []*domain.Candle) {
	sort.Slice(ticks, func(i, j int) bool {
		return compareTicks(ticks[i], ticks[j]) < 0
	})
}

// SortQuotes orders quotes by (time ASC, expiry ASC, strike ASC, option_type ASC),
// the order GetChain returns.
func SortQuotes(quotes []*domain.OptionQuote) {
	sort.Slice(quotes, func(i, j int) bool {
		return compareQuotes(quotes[i], quotes[j]) < 0
	})
}

// ValidateTickOrdering checks that ticks are strictly increasing.
// Returns ErrInvalidOrdering if not; an equal pair is a duplicate bar.
func ValidateTickOrdering(ticks []*domain.Candle) error {
	for i := 1; i < len(ticks); i++ {
		if compareTicks(ticks[i-1], ticks[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// ValidateQuoteOrdering checks that quotes are strictly increasing.
func ValidateQuoteOrdering(quotes []*domain.OptionQuote) error {
	for i := 1; i < len(quotes); i++ {
		if compareQuotes(quotes[i-1], quotes[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareTicks returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (symbol ASC, time ASC)
func compareTicks(a, b *domain.Candle) int {
	if a.Symbol != b.Symbol {
		if a.Symbol < b.Symbol {
			return -1
		}
		return 1
	}
	return a.Time.Compare(b.Time)
}

// compareQuotes orders by (time, symbol, expiry, strike, option_type).
func compareQuotes(a, b *domain.OptionQuote) int {
	if c := a.Time.Compare(b.Time); c != 0 {
		return c
	}
	if a.Symbol != b.Symbol {
		if a.Symbol < b.Symbol {
			return -1
		}
		return 1
	}
	if c := a.Expiry.Compare(b.Expiry); c != 0 {
		return c
	}
	if a.Strike != b.Strike {
		if a.Strike < b.Strike {
			return -1
		}
		return 1
	}
	if a.OptionType != b.OptionType {
		if a.OptionType < b.OptionType {
			return -1
		}
		return 1
	}
	return 0
}
