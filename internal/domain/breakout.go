package domain

import "time"

// Direction of a breakout candle.
type Direction string

// Direction constants.
const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// OptionType returns the entry option type consistent with the direction.
func (d Direction) OptionType() OptionType {
	if d == DirectionDown {
		return OptionTypePut
	}
	return OptionTypeCall
}

// BreakoutEvent is a qualifying big-candle close.
type BreakoutEvent struct {
	Strategy     string
	TradeDate    time.Time
	CandleTime   time.Time // big candle start, reported as breakout_time
	CloseTime    time.Time // candle_time + big_candle_tf
	Direction    Direction
	Type         string // full_candle_breakout | wick_breakout
	MagnitudePct float64
	RoundRank    int // 1-based order among the day's events of this type
}
