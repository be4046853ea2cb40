package candles

import (
	"math"

	"options-breakout-lab/internal/domain"
)

// HeikinAshi derives smoothed candles from an ordered candle sequence:
//
//	ha_close = (O + H + L + C) / 4
//	ha_open[0] = open[0]
//	ha_open[i] = (ha_open[i-1] + ha_close[i-1]) / 2
//	ha_high = max(H, ha_open, ha_close)
//	ha_low = min(L, ha_open, ha_close)
func HeikinAshi(candles []*domain.Candle) []*domain.HeikinAshiCandle {
	out := make([]*domain.HeikinAshiCandle, 0, len(candles))

	var prevOpen, prevClose float64
	for i, c := range candles {
		haClose := (c.Open + c.High + c.Low + c.Close) / 4
		haOpen := c.Open
		if i > 0 {
			haOpen = (prevOpen + prevClose) / 2
		}

		out = append(out, &domain.HeikinAshiCandle{
			Time:    c.Time,
			HAOpen:  haOpen,
			HAHigh:  math.Max(c.High, math.Max(haOpen, haClose)),
			HALow:   math.Min(c.Low, math.Min(haOpen, haClose)),
			HAClose: haClose,
			Source:  c,
		})

		prevOpen, prevClose = haOpen, haClose
	}

	return out
}
