package simulation

import (
	"time"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/lookup"
	"options-breakout-lab/internal/marketdata"
)

// market is a unit's read-only view of the option chain and index.
type market struct {
	*marketdata.Chain
	oneM []*domain.Candle
}

// Spot returns the index close at or before t, 0 without index data.
func (m market) Spot(t time.Time) float64 {
	spot, err := lookup.SpotAt(t, m.oneM)
	if err != nil {
		return 0
	}
	return spot
}
