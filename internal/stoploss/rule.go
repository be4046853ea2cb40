// Package stoploss implements the per-leg stop-loss rules.
//
// Rules observe the adverse move of a leg, expressed as a percentage of its
// entry premium (positive when the position is losing).
package stoploss

// Rule creates per-leg trackers.
type Rule interface {
	// Track returns a fresh tracker for one leg.
	Track() Tracker

	// ID returns the rule identifier including parameters.
	ID() string
}

// Tracker holds one leg's stop-loss state.
type Tracker interface {
	// Observe feeds the adverse move at a bar close and reports whether the
	// stop is hit at that bar.
	Observe(adversePct float64) bool
}
