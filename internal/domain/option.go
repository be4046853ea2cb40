package domain

import (
	"fmt"
	"time"
)

// OptionType is CE (call) or PE (put).
type OptionType string

// Option type constants.
const (
	OptionTypeCall OptionType = "CE"
	OptionTypePut  OptionType = "PE"
)

// OptionContract identifies one listed option.
type OptionContract struct {
	Symbol     string
	Expiry     time.Time
	Strike     float64
	OptionType OptionType
}

// String renders the contract as SYMBOL-YYYY-MM-DD-STRIKE-TYPE.
func (c OptionContract) String() string {
	return fmt.Sprintf("%s-%s-%.0f-%s", c.Symbol, c.Expiry.Format(DateLayout), c.Strike, c.OptionType)
}

// OptionQuote is one OHLC bar of an option contract. Read-only input.
type OptionQuote struct {
	OptionContract
	TradeDate    time.Time
	Time         time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       int64
	OpenInterest int64
}
