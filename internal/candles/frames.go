package candles

import (
	"time"

	"options-breakout-lab/internal/domain"
)

// Frames holds one trade date's candle streams.
type Frames struct {
	Big     []*domain.Candle
	Small   []*domain.Candle
	OneM    []*domain.Candle
	HABig   []*domain.HeikinAshiCandle
	HASmall []*domain.HeikinAshiCandle
	HAOneM  []*domain.HeikinAshiCandle
}

// Build aggregates ticks into the big, small and one-minute streams of cfg,
// each with its Heikin-Ashi twin.
// Returns *DataGapError when no tick exists at or after the session anchor.
func Build(ticks []*domain.Candle, tradeDate time.Time, cfg domain.StrategyConfig) (*Frames, error) {
	anchor := domain.SessionAnchor(tradeDate)

	oneM, err := Aggregate(ticks, Timeframe(cfg.OneMCandleTF), anchor)
	if err != nil {
		return nil, err
	}
	if len(oneM) == 0 {
		return nil, &DataGapError{Symbol: cfg.UnderlyingSymbol(), TradeDate: tradeDate}
	}

	small, err := Aggregate(ticks, Timeframe(cfg.SmallCandleTF), anchor)
	if err != nil {
		return nil, err
	}
	big, err := Aggregate(ticks, Timeframe(cfg.BigCandleTF), anchor)
	if err != nil {
		return nil, err
	}

	return &Frames{
		Big:     big,
		Small:   small,
		OneM:    oneM,
		HABig:   HeikinAshi(big),
		HASmall: HeikinAshi(small),
		HAOneM:  HeikinAshi(oneM),
	}, nil
}

// Times returns the bucket start times of a candle stream.
func Times(cs []*domain.Candle) []time.Time {
	out := make([]time.Time, len(cs))
	for i, c := range cs {
		out[i] = c.Time
	}
	return out
}
