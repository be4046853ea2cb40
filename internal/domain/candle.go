package domain

import "time"

// SessionOpen is the offset from midnight of the first bucket anchor (09:15).
const SessionOpen = 9*time.Hour + 15*time.Minute

// Candle is an OHLC bar of the underlying index.
// Raw ticks from the market data store share this shape.
type Candle struct {
	Symbol       string
	TradeDate    time.Time // date, UTC midnight
	Time         time.Time // bucket start
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       int64
	OpenInterest int64
}

// HeikinAshiCandle is the smoothed twin of a Candle.
type HeikinAshiCandle struct {
	Time    time.Time
	HAOpen  float64
	HAHigh  float64
	HALow   float64
	HAClose float64
	Source  *Candle
}

// Range returns ha_high - ha_low.
func (c *HeikinAshiCandle) Range() float64 {
	return c.HAHigh - c.HALow
}

// SessionAnchor returns 09:15 on the given trade date.
func SessionAnchor(tradeDate time.Time) time.Time {
	return TruncateDate(tradeDate).Add(SessionOpen)
}
