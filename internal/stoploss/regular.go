package stoploss

import "fmt"

// RegularRule stops out when the adverse move reaches a fixed percentage.
type RegularRule struct {
	SLPct float64 // percent units, 20 = 20%
}

// NewRegularRule creates a RegularRule.
func NewRegularRule(slPct float64) *RegularRule {
	return &RegularRule{SLPct: slPct}
}

// ID returns the rule identifier including parameters.
func (r *RegularRule) ID() string {
	return fmt.Sprintf("REGULAR_SL_%.2f", r.SLPct)
}

// Track returns a stateless tracker.
func (r *RegularRule) Track() Tracker {
	return regularTracker{slPct: r.SLPct}
}

type regularTracker struct {
	slPct float64
}

func (t regularTracker) Observe(adversePct float64) bool {
	return adversePct >= t.slPct
}

var _ Rule = (*RegularRule)(nil)
