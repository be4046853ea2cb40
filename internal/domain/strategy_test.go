package domain

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultStrategyConfig_Valid(t *testing.T) {
	cfg := DefaultStrategyConfig()
	cfg.StrategyName = "default"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should validate, got %v", err)
	}
	if cfg.MaxRounds() != 4 {
		t.Errorf("Expected 4 rounds for 3 reentries, got %d", cfg.MaxRounds())
	}
	if cfg.Quantity() != 75 {
		t.Errorf("Expected quantity 75, got %d", cfg.Quantity())
	}
}

func TestStrategyConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*StrategyConfig)
		want   error
	}{
		{"missing name", func(c *StrategyConfig) { c.StrategyName = "" }, ErrMissingStrategyName},
		{"zero timeframe", func(c *StrategyConfig) { c.SmallCandleTF = 0 }, ErrInvalidTimeframe},
		{"breakout type", func(c *StrategyConfig) { c.ReentryBreakoutType = "body" }, ErrInvalidBreakoutType},
		{"threshold over 100", func(c *StrategyConfig) { c.BreakoutThresholdPct = 120 }, ErrInvalidThreshold},
		{"entry candle", func(c *StrategyConfig) { c.EntryCandle = 0 }, ErrInvalidEntryCandle},
		{"hedge cap", func(c *StrategyConfig) { c.HedgeEntryPriceCap = 0 }, ErrInvalidPriceCap},
		{"entry legs", func(c *StrategyConfig) { c.NumEntryLegs = 0 }, ErrInvalidLegCount},
		{"sl type", func(c *StrategyConfig) { c.SLType = "trailing" }, ErrInvalidSLType},
		{"regular sl pct", func(c *StrategyConfig) { c.SLPercentage = 0 }, ErrInvalidPercentage},
		{"box order", func(c *StrategyConfig) {
			c.SLType = SLTypeBox
			c.BoxSLTriggerPct, c.BoxSLHardPct = 40, 35
		}, ErrInvalidBoxSL},
		{"box switch at trigger", func(c *StrategyConfig) {
			c.SLType = SLTypeBox
			c.SwitchPct = c.BoxSLTriggerPct
		}, ErrInvalidBoxSwitch},
		{"rehedge trigger", func(c *StrategyConfig) { c.RehedgeEnabled = true; c.RehedgeTriggerPct = 0 }, ErrInvalidPercentage},
		{"eod time", func(c *StrategyConfig) { c.EODTime = "3:20pm" }, ErrInvalidEODTime},
		{"lot size", func(c *StrategyConfig) { c.LotSize = 0 }, ErrInvalidLotSizing},
		{"reentry rounds", func(c *StrategyConfig) { c.MaxReentryRounds = -1 }, ErrInvalidReentryRounds},
		{"date range", func(c *StrategyConfig) { c.FromDate = c.ToDate.AddDate(0, 0, 1) }, ErrInvalidDateRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultStrategyConfig()
			cfg.StrategyName = "s1"
			tt.mutate(&cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("Expected *ConfigError, got %T", err)
			}
			if cerr.Strategy != cfg.StrategyName {
				t.Errorf("Expected strategy %q, got %q", cfg.StrategyName, cerr.Strategy)
			}
		})
	}
}

func TestStrategyConfig_NoHedgesSkipsHedgeCap(t *testing.T) {
	cfg := DefaultStrategyConfig()
	cfg.StrategyName = "naked"
	cfg.NumHedgeLegs = 0
	cfg.HedgeEntryPriceCap = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config without hedges, got %v", err)
	}
}

func TestStrategyConfig_EODAtAndTradeDates(t *testing.T) {
	cfg := DefaultStrategyConfig()
	cfg.EODTime = "15:10"
	cfg.FromDate = time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC)
	cfg.ToDate = time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)

	day := time.Date(2025, 1, 30, 11, 0, 0, 0, time.UTC)
	if got, want := cfg.EODAt(day), time.Date(2025, 1, 30, 15, 10, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("EODAt: got %v, want %v", got, want)
	}

	dates := cfg.TradeDates()
	if len(dates) != 4 {
		t.Fatalf("Expected 4 calendar dates, got %d", len(dates))
	}
	if dates[3].Format(DateLayout) != "2025-02-02" {
		t.Errorf("Expected last date 2025-02-02, got %s", dates[3].Format(DateLayout))
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"15:20:00", 15*time.Hour + 20*time.Minute, false},
		{"09:15", 9*time.Hour + 15*time.Minute, false},
		{"9.15", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClock(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClock(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUnderlyingSymbol(t *testing.T) {
	var cfg StrategyConfig
	if cfg.UnderlyingSymbol() != DefaultSymbol {
		t.Errorf("Expected %s, got %s", DefaultSymbol, cfg.UnderlyingSymbol())
	}
	cfg.Symbol = "BANKNIFTY"
	if cfg.UnderlyingSymbol() != "BANKNIFTY" {
		t.Errorf("Expected BANKNIFTY, got %s", cfg.UnderlyingSymbol())
	}
}
