package stoploss

import "fmt"

// Mode is the box stop-loss mode of a leg.
type Mode int

// Box modes.
const (
	ModeNormal Mode = iota
	ModeTracking
)

func (m Mode) String() string {
	if m == ModeTracking {
		return "tracking"
	}
	return "normal"
}

// BoxRule is the two-tier stop-loss.
//
//   - The hard stop at HardPct applies in every mode.
//   - Reaching TriggerPct switches the leg to tracking mode, where the stop
//     tightens to TriggerPct + WidthPct% of (HardPct - TriggerPct).
//   - A tracking leg whose adverse move retraces to SwitchPct or less returns
//     to normal mode. SwitchPct must sit below TriggerPct.
type BoxRule struct {
	TriggerPct float64
	HardPct    float64
	WidthPct   float64
	SwitchPct  float64
}

// NewBoxRule creates a BoxRule.
func NewBoxRule(triggerPct, hardPct, widthPct, switchPct float64) *BoxRule {
	return &BoxRule{
		TriggerPct: triggerPct,
		HardPct:    hardPct,
		WidthPct:   widthPct,
		SwitchPct:  switchPct,
	}
}

// ID returns the rule identifier including parameters.
func (r *BoxRule) ID() string {
	return fmt.Sprintf("BOX_SL_trigger%.2f_hard%.2f_width%.2f_switch%.2f",
		r.TriggerPct, r.HardPct, r.WidthPct, r.SwitchPct)
}

// TrackingStop returns the tightened stop level used in tracking mode.
func (r *BoxRule) TrackingStop() float64 {
	return r.TriggerPct + r.WidthPct/100*(r.HardPct-r.TriggerPct)
}

// Track returns a tracker starting in normal mode.
func (r *BoxRule) Track() Tracker {
	return &BoxTracker{rule: r}
}

// BoxTracker is one leg's box stop-loss state.
type BoxTracker struct {
	rule *BoxRule
	mode Mode
}

// Mode returns the current mode.
func (t *BoxTracker) Mode() Mode {
	return t.mode
}

// Observe applies the box transitions for one bar close.
func (t *BoxTracker) Observe(adversePct float64) bool {
	r := t.rule
	if adversePct >= r.HardPct {
		return true
	}

	switch t.mode {
	case ModeNormal:
		if adversePct >= r.TriggerPct {
			t.mode = ModeTracking
			return adversePct >= r.TrackingStop()
		}
	case ModeTracking:
		if adversePct >= r.TrackingStop() {
			return true
		}
		if adversePct <= r.SwitchPct {
			t.mode = ModeNormal
		}
	}
	return false
}

var _ Rule = (*BoxRule)(nil)
