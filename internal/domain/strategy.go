package domain

import (
	"errors"
	"fmt"
	"time"
)

// Breakout type constants.
const (
	BreakoutTypeFullCandle = "full_candle_breakout"
	BreakoutTypeWick       = "wick_breakout"
)

// Stop-loss type constants.
const (
	SLTypeRegular = "regular_system_sl"
	SLTypeBox     = "box_sl"
)

// DefaultSymbol is the underlying index used when a strategy does not name one.
const DefaultSymbol = "NIFTY"

// DateLayout is the layout of trade_date, expiry_date, from_date and to_date values.
const DateLayout = "2006-01-02"

// ClockLayout is the layout of eod_time and the time-of-day result fields.
const ClockLayout = "15:04:05"

// Configuration validation errors.
var (
	ErrMissingStrategyName  = errors.New("strategy_name is required")
	ErrInvalidTimeframe     = errors.New("candle timeframes must be positive minutes")
	ErrInvalidBreakoutType  = errors.New("breakout type must be full_candle_breakout or wick_breakout")
	ErrInvalidThreshold     = errors.New("breakout_threshold_pct must be in (0, 100]")
	ErrInvalidPriceCap      = errors.New("price caps must be positive")
	ErrInvalidLegCount      = errors.New("num_entry_legs must be positive and num_hedge_legs non-negative")
	ErrInvalidSLType        = errors.New("sl_type must be regular_system_sl or box_sl")
	ErrInvalidPercentage    = errors.New("percentage parameters must be positive")
	ErrInvalidBoxSL         = errors.New("box_sl_trigger_pct must be below box_sl_hard_pct")
	ErrInvalidBoxSwitch     = errors.New("switch_pct must be below box_sl_trigger_pct")
	ErrInvalidEODTime       = errors.New("eod_time must be HH:MM:SS")
	ErrInvalidLotSizing     = errors.New("no_of_lots, lot_size and portfolio_capital must be positive")
	ErrInvalidReentryRounds = errors.New("max_reentry_rounds must be non-negative")
	ErrInvalidEntryCandle   = errors.New("entry_candle must be at least 1")
	ErrInvalidDateRange     = errors.New("from_date must not be after to_date")
)

// ConfigError reports an invalid strategy configuration.
// It is fatal for the named strategy only.
type ConfigError struct {
	Strategy string
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("strategy %q: invalid configuration: %v", e.Strategy, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// StrategyConfig is the immutable per-run configuration of one named strategy.
// Percentage fields hold the value as entered (20 means 20%).
type StrategyConfig struct {
	StrategyName string `csv:"strategy_name" yaml:"strategy_name" json:"strategy_name"`

	// Timeframes in minutes
	BigCandleTF   int `csv:"big_candle_tf" yaml:"big_candle_tf" json:"big_candle_tf"`
	SmallCandleTF int `csv:"small_candle_tf" yaml:"small_candle_tf" json:"small_candle_tf"`
	OneMCandleTF  int `csv:"one_m_candle_tf" yaml:"one_m_candle_tf" json:"one_m_candle_tf"`

	// Breakout
	PreferredBreakoutType string  `csv:"preferred_breakout_type" yaml:"preferred_breakout_type" json:"preferred_breakout_type"`
	ReentryBreakoutType   string  `csv:"reentry_breakout_type" yaml:"reentry_breakout_type" json:"reentry_breakout_type"`
	BreakoutThresholdPct  float64 `csv:"breakout_threshold_pct" yaml:"breakout_threshold_pct" json:"breakout_threshold_pct"`
	EntryCandle           int     `csv:"entry_candle" yaml:"entry_candle" json:"entry_candle"` // small candles after breakout close

	// Leg selection
	OptionEntryPriceCap float64 `csv:"option_entry_price_cap" yaml:"option_entry_price_cap" json:"option_entry_price_cap"`
	HedgeEntryPriceCap  float64 `csv:"hedge_entry_price_cap" yaml:"hedge_entry_price_cap" json:"hedge_entry_price_cap"`
	NumEntryLegs        int     `csv:"num_entry_legs" yaml:"num_entry_legs" json:"num_entry_legs"`
	NumHedgeLegs        int     `csv:"num_hedge_legs" yaml:"num_hedge_legs" json:"num_hedge_legs"`

	// Stop-loss
	SLPercentage    float64 `csv:"sl_percentage" yaml:"sl_percentage" json:"sl_percentage"`
	SLType          string  `csv:"sl_type" yaml:"sl_type" json:"sl_type"`
	BoxSLTriggerPct float64 `csv:"box_sl_trigger_pct" yaml:"box_sl_trigger_pct" json:"box_sl_trigger_pct"`
	BoxSLHardPct    float64 `csv:"box_sl_hard_pct" yaml:"box_sl_hard_pct" json:"box_sl_hard_pct"`
	WidthSLPct      float64 `csv:"width_sl_pct" yaml:"width_sl_pct" json:"width_sl_pct"`
	SwitchPct       float64 `csv:"switch_pct" yaml:"switch_pct" json:"switch_pct"`
	EODTime         string  `csv:"eod_time" yaml:"eod_time" json:"eod_time"`

	// Sizing
	NoOfLots         int     `csv:"no_of_lots" yaml:"no_of_lots" json:"no_of_lots"`
	LotSize          int     `csv:"lot_size" yaml:"lot_size" json:"lot_size"`
	PortfolioCapital float64 `csv:"portfolio_capital" yaml:"portfolio_capital" json:"portfolio_capital"`

	// Hedge and profit
	HedgeExitEntryRatio      float64 `csv:"hedge_exit_entry_ratio" yaml:"hedge_exit_entry_ratio" json:"hedge_exit_entry_ratio"`
	HedgeExitMultiplier      float64 `csv:"hedge_exit_multiplier" yaml:"hedge_exit_multiplier" json:"hedge_exit_multiplier"`
	LegProfitPct             float64 `csv:"leg_profit_pct" yaml:"leg_profit_pct" json:"leg_profit_pct"`
	PortfolioProfitTargetPct float64 `csv:"portfolio_profit_target_pct" yaml:"portfolio_profit_target_pct" json:"portfolio_profit_target_pct"`
	PortfolioStopLossPct     float64 `csv:"portfolio_stop_loss_pct" yaml:"portfolio_stop_loss_pct" json:"portfolio_stop_loss_pct"`

	// Re-entry and scope
	MaxReentryRounds int       `csv:"max_reentry_rounds" yaml:"max_reentry_rounds" json:"max_reentry_rounds"`
	FromDate         time.Time `csv:"from_date" yaml:"from_date" json:"from_date"`
	ToDate           time.Time `csv:"to_date" yaml:"to_date" json:"to_date"`

	// Optional behaviour switches (not part of the upload template)
	Symbol                   string  `csv:"symbol" yaml:"symbol" json:"symbol"`
	DoubleBuyEnabled         bool    `csv:"double_buy_enabled" yaml:"double_buy_enabled" json:"double_buy_enabled"`
	RehedgeEnabled           bool    `csv:"rehedge_enabled" yaml:"rehedge_enabled" json:"rehedge_enabled"`
	RehedgeTriggerPct        float64 `csv:"rehedge_trigger_pct" yaml:"rehedge_trigger_pct" json:"rehedge_trigger_pct"`
	MaxRehedges              int     `csv:"max_rehedges" yaml:"max_rehedges" json:"max_rehedges"`
	AllowSameStrikeReentry   bool    `csv:"allow_same_strike_reentry" yaml:"allow_same_strike_reentry" json:"allow_same_strike_reentry"`
	HaltOnPortfolioThreshold bool    `csv:"halt_on_portfolio_threshold" yaml:"halt_on_portfolio_threshold" json:"halt_on_portfolio_threshold"`
}

// DefaultStrategyConfig returns the upload template values.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		BigCandleTF:              15,
		SmallCandleTF:            5,
		OneMCandleTF:             1,
		PreferredBreakoutType:    BreakoutTypeFullCandle,
		ReentryBreakoutType:      BreakoutTypeFullCandle,
		BreakoutThresholdPct:     60,
		EntryCandle:              1,
		OptionEntryPriceCap:      80,
		HedgeEntryPriceCap:       50,
		NumEntryLegs:             4,
		NumHedgeLegs:             1,
		SLPercentage:             20,
		SLType:                   SLTypeRegular,
		BoxSLTriggerPct:          25,
		BoxSLHardPct:             35,
		WidthSLPct:               40,
		SwitchPct:                20,
		EODTime:                  "15:20:00",
		NoOfLots:                 1,
		LotSize:                  75,
		PortfolioCapital:         900000,
		HedgeExitEntryRatio:      50,
		HedgeExitMultiplier:      3,
		LegProfitPct:             84,
		PortfolioProfitTargetPct: 2,
		PortfolioStopLossPct:     2,
		MaxReentryRounds:         3,
		FromDate:                 time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ToDate:                   time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC),
		Symbol:                   DefaultSymbol,
		RehedgeTriggerPct:        10,
		MaxRehedges:              1,
	}
}

// Validate checks the configuration. Returns *ConfigError on failure.
func (c StrategyConfig) Validate() error {
	if err := c.validate(); err != nil {
		return &ConfigError{Strategy: c.StrategyName, Err: err}
	}
	return nil
}

func (c StrategyConfig) validate() error {
	if c.StrategyName == "" {
		return ErrMissingStrategyName
	}
	if c.BigCandleTF <= 0 || c.SmallCandleTF <= 0 || c.OneMCandleTF <= 0 {
		return ErrInvalidTimeframe
	}
	if !validBreakoutType(c.PreferredBreakoutType) || !validBreakoutType(c.ReentryBreakoutType) {
		return ErrInvalidBreakoutType
	}
	if c.BreakoutThresholdPct <= 0 || c.BreakoutThresholdPct > 100 {
		return ErrInvalidThreshold
	}
	if c.EntryCandle < 1 {
		return ErrInvalidEntryCandle
	}
	if c.OptionEntryPriceCap <= 0 || (c.NumHedgeLegs > 0 && c.HedgeEntryPriceCap <= 0) {
		return ErrInvalidPriceCap
	}
	if c.NumEntryLegs <= 0 || c.NumHedgeLegs < 0 {
		return ErrInvalidLegCount
	}
	switch c.SLType {
	case SLTypeRegular:
		if c.SLPercentage <= 0 {
			return fmt.Errorf("sl_percentage: %w", ErrInvalidPercentage)
		}
	case SLTypeBox:
		if c.BoxSLTriggerPct <= 0 || c.BoxSLHardPct <= 0 || c.WidthSLPct <= 0 || c.SwitchPct <= 0 {
			return fmt.Errorf("box stop-loss: %w", ErrInvalidPercentage)
		}
		if c.BoxSLTriggerPct >= c.BoxSLHardPct {
			return ErrInvalidBoxSL
		}
		if c.SwitchPct >= c.BoxSLTriggerPct {
			return ErrInvalidBoxSwitch
		}
	default:
		return ErrInvalidSLType
	}
	if c.LegProfitPct <= 0 || c.HedgeExitEntryRatio <= 0 || c.HedgeExitMultiplier <= 0 {
		return fmt.Errorf("profit/hedge ratios: %w", ErrInvalidPercentage)
	}
	if c.PortfolioProfitTargetPct <= 0 || c.PortfolioStopLossPct <= 0 {
		return fmt.Errorf("portfolio thresholds: %w", ErrInvalidPercentage)
	}
	if c.RehedgeEnabled && c.RehedgeTriggerPct <= 0 {
		return fmt.Errorf("rehedge_trigger_pct: %w", ErrInvalidPercentage)
	}
	if _, err := ParseClock(c.EODTime); err != nil {
		return ErrInvalidEODTime
	}
	if c.NoOfLots <= 0 || c.LotSize <= 0 || c.PortfolioCapital <= 0 {
		return ErrInvalidLotSizing
	}
	if c.MaxReentryRounds < 0 {
		return ErrInvalidReentryRounds
	}
	if c.FromDate.IsZero() || c.ToDate.IsZero() || c.FromDate.After(c.ToDate) {
		return ErrInvalidDateRange
	}
	return nil
}

func validBreakoutType(t string) bool {
	return t == BreakoutTypeFullCandle || t == BreakoutTypeWick
}

// MaxRounds returns the highest permitted entry_round.
func (c StrategyConfig) MaxRounds() int {
	return c.MaxReentryRounds + 1
}

// Quantity returns the number of option units per leg.
func (c StrategyConfig) Quantity() int {
	return c.NoOfLots * c.LotSize
}

// EODAt returns the end-of-day cut-off on the given trade date.
func (c StrategyConfig) EODAt(tradeDate time.Time) time.Time {
	offset, err := ParseClock(c.EODTime)
	if err != nil {
		offset, _ = ParseClock("15:20:00")
	}
	return TruncateDate(tradeDate).Add(offset)
}

// UnderlyingSymbol returns the configured symbol or DefaultSymbol.
func (c StrategyConfig) UnderlyingSymbol() string {
	if c.Symbol == "" {
		return DefaultSymbol
	}
	return c.Symbol
}

// TradeDates returns every calendar date in [from_date, to_date].
func (c StrategyConfig) TradeDates() []time.Time {
	var dates []time.Time
	for d := TruncateDate(c.FromDate); !d.After(TruncateDate(c.ToDate)); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Pct converts a percentage as entered into a fraction.
func Pct(v float64) float64 {
	return v / 100
}

// ParseClock parses HH:MM:SS (or HH:MM) into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	layouts := []string{ClockLayout, "15:04"}
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("parse clock %q: %w", s, ErrInvalidEODTime)
}

// TruncateDate drops the time-of-day, keeping the date in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
