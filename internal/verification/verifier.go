// Package verification re-simulates stored units and checks that the
// replayed result rows match the stored ones.
package verification

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"options-breakout-lab/internal/domain"
)

// FloatTolerance is the tolerance for price and strike comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name, prefixed with the row key
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the result of verifying one (strategy, date) unit.
type VerificationResult struct {
	StrategyName string
	TradeDate    time.Time
	Match        bool
	Divergences  []FieldDivergence
	StoredRows   int
	ReplayedRows int
	StoredPnL    decimal.Decimal
	ReplayedPnL  decimal.Decimal
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalUnits     int
	MatchedUnits   int
	DivergentUnits int
	Results        []VerificationResult
}

// Verifier checks stored results against a fresh simulation.
type Verifier interface {
	// VerifyUnit replays one unit and compares its rows with the stored rows.
	VerifyUnit(ctx context.Context, strategy string, tradeDate time.Time) (*VerificationResult, error)

	// VerifyAll verifies every unit that has stored rows.
	VerifyAll(ctx context.Context) (*VerificationReport, error)
}

// CompareUnit compares the rows of one unit. Row order does not matter.
func CompareUnit(stored, replayed []*domain.StrategyRunResult) []FieldDivergence {
	if len(stored) != len(replayed) {
		return []FieldDivergence{{Field: "RowCount", Expected: len(stored), Actual: len(replayed)}}
	}
	a, b := sortedRows(stored), sortedRows(replayed)

	var divergences []FieldDivergence
	for i := range a {
		divergences = append(divergences, CompareResults(a[i], b[i])...)
	}
	return divergences
}

// CompareResults compares two result rows field by field.
// Uses FloatTolerance for prices and strikes.
func CompareResults(stored, replayed *domain.StrategyRunResult) []FieldDivergence {
	var divergences []FieldDivergence
	key := stored.Key().String()
	add := func(field string, expected, actual interface{}) {
		divergences = append(divergences, FieldDivergence{Field: key + "." + field, Expected: expected, Actual: actual})
	}

	if other := replayed.Key().String(); other != key {
		add("Key", key, other)
		return divergences
	}
	if stored.TransactionType != replayed.TransactionType {
		add("TransactionType", stored.TransactionType, replayed.TransactionType)
	}

	// Times
	if !stored.BreakoutTime.Equal(replayed.BreakoutTime) {
		add("BreakoutTime", stored.BreakoutTime, replayed.BreakoutTime)
	}
	if !stored.EntryTime.Equal(replayed.EntryTime) {
		add("EntryTime", stored.EntryTime, replayed.EntryTime)
	}
	if !stored.ExitTime.Equal(replayed.ExitTime) {
		add("ExitTime", stored.ExitTime, replayed.ExitTime)
	}

	// Prices
	if !floatEquals(stored.EntryPrice, replayed.EntryPrice) {
		add("EntryPrice", stored.EntryPrice, replayed.EntryPrice)
	}
	if !floatEquals(stored.ExitPrice, replayed.ExitPrice) {
		add("ExitPrice", stored.ExitPrice, replayed.ExitPrice)
	}

	// Outcome
	if stored.ExitReason != replayed.ExitReason {
		add("ExitReason", stored.ExitReason, replayed.ExitReason)
	}
	if !stored.PnLAmount.Equal(replayed.PnLAmount) {
		add("PnLAmount", stored.PnLAmount.StringFixed(2), replayed.PnLAmount.StringFixed(2))
	}
	return divergences
}

func sortedRows(rows []*domain.StrategyRunResult) []*domain.StrategyRunResult {
	out := make([]*domain.StrategyRunResult, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := out[i].Key().String(), out[j].Key().String()
		if ki != kj {
			return ki < kj
		}
		if !out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].EntryTime.Before(out[j].EntryTime)
		}
		return out[i].TransactionType < out[j].TransactionType
	})
	return out
}

func totalPnL(rows []*domain.StrategyRunResult) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.PnLAmount)
	}
	return total
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}

// String renders a divergence for CLI output.
func (d FieldDivergence) String() string {
	return fmt.Sprintf("%s: stored=%v replayed=%v", d.Field, d.Expected, d.Actual)
}
