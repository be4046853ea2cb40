package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LegType distinguishes entry legs from hedge legs.
type LegType string

// Leg type constants.
const (
	LegTypeEntry LegType = "entry"
	LegTypeHedge LegType = "hedge"
)

// TransactionType is the side a leg was opened with.
type TransactionType string

// Transaction type constants.
const (
	TransactionBuy  TransactionType = "BUY"
	TransactionSell TransactionType = "SELL"
)

// ExitReason records why a leg was closed.
type ExitReason string

// Exit reason codes.
const (
	ExitReasonSL             ExitReason = "sl"
	ExitReasonProfit         ExitReason = "profit"
	ExitReasonEOD            ExitReason = "eod"
	ExitReasonHedgeTriggered ExitReason = "hedge_triggered"
	ExitReasonDoubleBuy      ExitReason = "double_buy"
	ExitReasonNone           ExitReason = "none"
)

// Valid reports whether r is one of the defined exit reasons.
func (r ExitReason) Valid() bool {
	switch r {
	case ExitReasonSL, ExitReasonProfit, ExitReasonEOD,
		ExitReasonHedgeTriggered, ExitReasonDoubleBuy, ExitReasonNone:
		return true
	}
	return false
}

// LegState is the lifecycle state of a leg.
type LegState string

// Leg states.
const (
	LegStateOpen         LegState = "OPEN"
	LegStateSLHit        LegState = "SL_HIT"
	LegStateProfitBooked LegState = "PROFIT_BOOKED"
	LegStateEODClosed    LegState = "EOD_CLOSED"
	LegStateHedgeClosed  LegState = "HEDGE_CLOSED"
	LegStateClosed       LegState = "CLOSED"
)

// LegOrigin records which rule opened a leg.
type LegOrigin string

// Leg origins.
const (
	LegOriginPrimary   LegOrigin = "primary"
	LegOriginRehedge   LegOrigin = "rehedge"
	LegOriginDoubleBuy LegOrigin = "double_buy"
)

// Leg errors.
var (
	ErrLegClosed        = errors.New("leg already closed")
	ErrExitBeforeEntry  = errors.New("exit time before entry time")
	ErrInvalidExitPrice = errors.New("exit price must be non-negative")
)

// LegKey uniquely identifies a leg.
type LegKey struct {
	Strategy   string
	TradeDate  time.Time
	ExpiryDate time.Time
	Strike     float64
	OptionType OptionType
	EntryRound int
	LegType    LegType
}

func (k LegKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%.2f|%s|%d|%s",
		k.Strategy,
		k.TradeDate.Format(DateLayout),
		k.ExpiryDate.Format(DateLayout),
		k.Strike,
		k.OptionType,
		k.EntryRound,
		k.LegType,
	)
}

// Leg is one option position opened in a round.
// Exit fields are written exactly once by Close.
type Leg struct {
	LegKey
	Symbol          string
	TransactionType TransactionType
	Origin          LegOrigin
	Quantity        int
	BreakoutTime    time.Time

	EntryTime  time.Time
	EntryPrice float64

	ExitTime   time.Time
	ExitPrice  float64
	ExitReason ExitReason
	State      LegState
}

// NewLeg opens a leg.
func NewLeg(key LegKey, symbol string, tx TransactionType, origin LegOrigin, qty int, breakoutTime, entryTime time.Time, entryPrice float64) *Leg {
	return &Leg{
		LegKey:          key,
		Symbol:          symbol,
		TransactionType: tx,
		Origin:          origin,
		Quantity:        qty,
		BreakoutTime:    breakoutTime,
		EntryTime:       entryTime,
		EntryPrice:      entryPrice,
		State:           LegStateOpen,
	}
}

// Contract returns the option contract the leg trades.
func (l *Leg) Contract() OptionContract {
	return OptionContract{
		Symbol:     l.Symbol,
		Expiry:     l.ExpiryDate,
		Strike:     l.Strike,
		OptionType: l.OptionType,
	}
}

// IsOpen reports whether the leg has not been closed yet.
func (l *Leg) IsOpen() bool {
	return l.State == LegStateOpen
}

// Close records the exit. A closed leg is immutable.
func (l *Leg) Close(t time.Time, price float64, reason ExitReason) error {
	if !l.IsOpen() {
		return fmt.Errorf("%s: %w", l.LegKey, ErrLegClosed)
	}
	if t.Before(l.EntryTime) {
		return fmt.Errorf("%s: %w", l.LegKey, ErrExitBeforeEntry)
	}
	if price < 0 {
		return fmt.Errorf("%s: %w", l.LegKey, ErrInvalidExitPrice)
	}
	l.ExitTime = t
	l.ExitPrice = price
	l.ExitReason = reason
	l.State = stateFor(reason)
	return nil
}

func stateFor(reason ExitReason) LegState {
	switch reason {
	case ExitReasonSL:
		return LegStateSLHit
	case ExitReasonProfit:
		return LegStateProfitBooked
	case ExitReasonEOD:
		return LegStateEODClosed
	case ExitReasonHedgeTriggered, ExitReasonDoubleBuy:
		return LegStateHedgeClosed
	default:
		return LegStateClosed
	}
}

// PointsAt returns the signed per-unit PnL if the leg were valued at price.
func (l *Leg) PointsAt(price float64) float64 {
	if l.TransactionType == TransactionSell {
		return l.EntryPrice - price
	}
	return price - l.EntryPrice
}

// AdverseMovePct returns how far price moved against the leg, as a percentage
// of the entry price. Negative values are favourable.
func (l *Leg) AdverseMovePct(price float64) float64 {
	if l.EntryPrice == 0 {
		return 0
	}
	return -l.PointsAt(price) / l.EntryPrice * 100
}

// PnLAt values the leg at price for its full quantity.
func (l *Leg) PnLAt(price float64) decimal.Decimal {
	return decimal.NewFromFloat(l.PointsAt(price)).
		Mul(decimal.NewFromInt(int64(l.Quantity))).
		Round(2)
}

// RealizedPnL returns the closed leg's PnL, zero while open.
func (l *Leg) RealizedPnL() decimal.Decimal {
	if l.IsOpen() {
		return decimal.Zero
	}
	return l.PnLAt(l.ExitPrice)
}

// LegBookEntry is one row of the cross-round stop-loss ledger.
type LegBookEntry struct {
	LegKey
	Origin     LegOrigin
	EntryTime  time.Time
	EntryPrice float64
	ExitTime   time.Time
	ExitPrice  float64
	ExitReason ExitReason
}

// NewLegBookEntry builds an entry from a closed leg.
func NewLegBookEntry(l *Leg) *LegBookEntry {
	return &LegBookEntry{
		LegKey:     l.LegKey,
		Origin:     l.Origin,
		EntryTime:  l.EntryTime,
		EntryPrice: l.EntryPrice,
		ExitTime:   l.ExitTime,
		ExitPrice:  l.ExitPrice,
		ExitReason: l.ExitReason,
	}
}
