package candles

import (
	"errors"
	"fmt"
	"time"

	"options-breakout-lab/internal/domain"
)

// Aggregation errors.
var (
	ErrInvalidTimeframe = errors.New("timeframe must be positive")
	ErrOutOfOrder       = errors.New("ticks are not in ascending time order")
)

// DataGapError reports a trade date with no ticks at or after the session anchor.
// Callers skip the date rather than fail the run.
type DataGapError struct {
	Symbol    string
	TradeDate time.Time
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("data gap: no %s ticks on %s at or after session open",
		e.Symbol, e.TradeDate.Format(domain.DateLayout))
}

// IsDataGap reports whether err is (or wraps) a DataGapError.
func IsDataGap(err error) bool {
	var gap *DataGapError
	return errors.As(err, &gap)
}
