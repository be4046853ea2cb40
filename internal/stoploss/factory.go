package stoploss

import (
	"errors"

	"options-breakout-lab/internal/domain"
)

// Factory errors
var (
	ErrUnknownSLType    = errors.New("unknown stop-loss type")
	ErrMissingSLPct     = errors.New("regular_system_sl requires sl_percentage")
	ErrMissingBoxParams = errors.New("box_sl requires trigger, hard, width and switch percentages")
	ErrInvertedBox      = errors.New("box_sl trigger must be below the hard stop")
	ErrSwitchAboveBox   = errors.New("box_sl switch_pct must be below the trigger")
)

// FromConfig creates a Rule from domain.StrategyConfig.
// Validates required parameters per stop-loss type.
func FromConfig(cfg domain.StrategyConfig) (Rule, error) {
	switch cfg.SLType {
	case domain.SLTypeRegular:
		return fromRegularConfig(cfg)
	case domain.SLTypeBox:
		return fromBoxConfig(cfg)
	default:
		return nil, ErrUnknownSLType
	}
}

// fromRegularConfig creates RegularRule from config.
func fromRegularConfig(cfg domain.StrategyConfig) (*RegularRule, error) {
	if cfg.SLPercentage <= 0 {
		return nil, ErrMissingSLPct
	}
	return NewRegularRule(cfg.SLPercentage), nil
}

// fromBoxConfig creates BoxRule from config.
func fromBoxConfig(cfg domain.StrategyConfig) (*BoxRule, error) {
	if cfg.BoxSLTriggerPct <= 0 || cfg.BoxSLHardPct <= 0 || cfg.WidthSLPct <= 0 || cfg.SwitchPct <= 0 {
		return nil, ErrMissingBoxParams
	}
	if cfg.BoxSLTriggerPct >= cfg.BoxSLHardPct {
		return nil, ErrInvertedBox
	}
	if cfg.SwitchPct >= cfg.BoxSLTriggerPct {
		return nil, ErrSwitchAboveBox
	}
	return NewBoxRule(cfg.BoxSLTriggerPct, cfg.BoxSLHardPct, cfg.WidthSLPct, cfg.SwitchPct), nil
}
