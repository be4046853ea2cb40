// Package candles buckets raw ticks into session-anchored OHLC candles and
// derives Heikin-Ashi candles from them.
package candles

import (
	"fmt"
	"sort"
	"time"

	"options-breakout-lab/internal/domain"
)

// Aggregate buckets ticks into non-overlapping windows anchored at anchor.
// Ticks before the anchor are dropped. Empty buckets produce no candle.
// Ticks must be in ascending time order.
func Aggregate(ticks []*domain.Candle, tf Timeframe, anchor time.Time) ([]*domain.Candle, error) {
	if tf <= 0 {
		return nil, ErrInvalidTimeframe
	}

	var out []*domain.Candle
	var cur *domain.Candle
	var prev time.Time

	for i, t := range ticks {
		if i > 0 && t.Time.Before(prev) {
			return nil, fmt.Errorf("tick %d at %s: %w", i, t.Time.Format(time.RFC3339), ErrOutOfOrder)
		}
		prev = t.Time

		start, ok := tf.Align(t.Time, anchor)
		if !ok {
			continue
		}

		if cur == nil || !cur.Time.Equal(start) {
			cur = &domain.Candle{
				Symbol:       t.Symbol,
				TradeDate:    t.TradeDate,
				Time:         start,
				Open:         t.Open,
				High:         t.High,
				Low:          t.Low,
				Close:        t.Close,
				Volume:       t.Volume,
				OpenInterest: t.OpenInterest,
			}
			out = append(out, cur)
			continue
		}

		if t.High > cur.High {
			cur.High = t.High
		}
		if t.Low < cur.Low {
			cur.Low = t.Low
		}
		cur.Close = t.Close
		cur.Volume += t.Volume
		cur.OpenInterest = t.OpenInterest
	}

	return out, nil
}

// AggregateQuotes buckets option quotes per contract with the same rules as Aggregate.
// The result is ordered by time, then strike, then option type.
func AggregateQuotes(quotes []*domain.OptionQuote, tf Timeframe, anchor time.Time) ([]*domain.OptionQuote, error) {
	if tf <= 0 {
		return nil, ErrInvalidTimeframe
	}

	byContract := make(map[domain.OptionContract][]*domain.Candle)
	var order []domain.OptionContract
	for _, q := range quotes {
		if _, seen := byContract[q.OptionContract]; !seen {
			order = append(order, q.OptionContract)
		}
		byContract[q.OptionContract] = append(byContract[q.OptionContract], &domain.Candle{
			Symbol:       q.Symbol,
			TradeDate:    q.TradeDate,
			Time:         q.Time,
			Open:         q.Open,
			High:         q.High,
			Low:          q.Low,
			Close:        q.Close,
			Volume:       q.Volume,
			OpenInterest: q.OpenInterest,
		})
	}

	var out []*domain.OptionQuote
	for _, contract := range order {
		bars, err := Aggregate(byContract[contract], tf, anchor)
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", contract, err)
		}
		for _, b := range bars {
			out = append(out, &domain.OptionQuote{
				OptionContract: contract,
				TradeDate:      b.TradeDate,
				Time:           b.Time,
				Open:           b.Open,
				High:           b.High,
				Low:            b.Low,
				Close:          b.Close,
				Volume:         b.Volume,
				OpenInterest:   b.OpenInterest,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.Before(out[j].Time)
		}
		if out[i].Strike != out[j].Strike {
			return out[i].Strike < out[j].Strike
		}
		return out[i].OptionType < out[j].OptionType
	})

	return out, nil
}
