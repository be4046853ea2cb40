package candles

import (
	"fmt"
	"time"
)

// Timeframe is a candle interval in minutes.
type Timeframe int

func (tf Timeframe) String() string { return fmt.Sprintf("%dm", int(tf)) }

// Duration returns the interval length.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf) * time.Minute
}

// Align returns the start of the bucket containing t, counting buckets from anchor.
// ok is false when t is before the anchor.
func (tf Timeframe) Align(t, anchor time.Time) (time.Time, bool) {
	if t.Before(anchor) || tf <= 0 {
		return time.Time{}, false
	}
	d := tf.Duration()
	bucket := t.Sub(anchor) / d
	return anchor.Add(bucket * d), true
}
