package marketdata

import (
	"sort"
	"time"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/lookup"
)

type seriesKey struct {
	strike     float64
	optionType domain.OptionType
}

// Chain indexes one expiry's option bars by contract.
// Each series is ordered by time ascending.
type Chain struct {
	Symbol string
	Expiry time.Time

	series map[seriesKey][]*domain.OptionQuote
}

// NewChain builds the index. Quotes of other expiries are ignored.
func NewChain(expiry time.Time, quotes []*domain.OptionQuote) *Chain {
	c := &Chain{
		Expiry: domain.TruncateDate(expiry),
		series: make(map[seriesKey][]*domain.OptionQuote),
	}
	for _, q := range quotes {
		if !domain.TruncateDate(q.Expiry).Equal(c.Expiry) {
			continue
		}
		if c.Symbol == "" {
			c.Symbol = q.Symbol
		}
		k := seriesKey{q.Strike, q.OptionType}
		c.series[k] = append(c.series[k], q)
	}
	for _, s := range c.series {
		sort.SliceStable(s, func(i, j int) bool { return s[i].Time.Before(s[j].Time) })
	}
	return c
}

// Len returns the number of contracts in the chain.
func (c *Chain) Len() int {
	return len(c.series)
}

// Series returns the bars of one contract.
func (c *Chain) Series(strike float64, ot domain.OptionType) []*domain.OptionQuote {
	return c.series[seriesKey{strike, ot}]
}

// Snapshot returns, for every contract of the option type, the bar starting
// exactly at t. Contracts without a bar at t are absent. Ordered by strike.
func (c *Chain) Snapshot(t time.Time, ot domain.OptionType) []*domain.OptionQuote {
	var out []*domain.OptionQuote
	for k, s := range c.series {
		if k.optionType != ot {
			continue
		}
		if q, err := lookup.QuoteAt(t, s); err == nil {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strike < out[j].Strike })
	return out
}

// QuoteAt returns the contract's bar starting exactly at t.
func (c *Chain) QuoteAt(strike float64, ot domain.OptionType, t time.Time) (*domain.OptionQuote, error) {
	return lookup.QuoteAt(t, c.Series(strike, ot))
}

// LastAt returns the contract's latest bar starting at or before t.
func (c *Chain) LastAt(strike float64, ot domain.OptionType, t time.Time) (*domain.OptionQuote, error) {
	return lookup.QuoteAtOrBefore(t, c.Series(strike, ot))
}

// Contract returns the contract descriptor for a strike in this chain.
func (c *Chain) Contract(strike float64, ot domain.OptionType) domain.OptionContract {
	return domain.OptionContract{Symbol: c.Symbol, Expiry: c.Expiry, Strike: strike, OptionType: ot}
}
