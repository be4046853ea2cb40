package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-breakout-lab/internal/config"
	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/orchestrator"
	"options-breakout-lab/internal/storage/backend"
)

func resetRunFlags(t *testing.T) {
	t.Helper()
	cfg = config.DefaultConfig()
	strategiesFile, strategyList, fromDate, toDate = "", "", "", ""
	t.Cleanup(func() {
		strategiesFile, strategyList, fromDate, toDate = "", "", "", ""
	})
}

func TestAllFailed(t *testing.T) {
	day := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		result     orchestrator.RunResult
		strategies int
		wantErr    bool
	}{
		{"clean", orchestrator.RunResult{UnitsProcessed: 3}, 1, false},
		{"some units failed", orchestrator.RunResult{UnitsProcessed: 2, Failures: []*domain.UnitFailure{
			{StrategyName: "a", TradeDate: day, Stage: "simulate"},
		}}, 1, false},
		{"every unit failed", orchestrator.RunResult{UnitsProcessed: 1, Failures: []*domain.UnitFailure{
			{StrategyName: "a", TradeDate: day, Stage: "simulate"},
		}}, 1, true},
		{"one of two configs invalid", orchestrator.RunResult{UnitsProcessed: 1, Failures: []*domain.UnitFailure{
			{StrategyName: "b", Stage: "config"},
		}}, 2, false},
		{"every config invalid", orchestrator.RunResult{Failures: []*domain.UnitFailure{
			{StrategyName: "b", Stage: "config"},
		}}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := allFailed(&tt.result, tt.strategies)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadStrategies_FileFilterAndRange(t *testing.T) {
	resetRunFlags(t)
	ctx := context.Background()
	stores := backend.Memory()

	path := filepath.Join(t.TempDir(), "strategies.csv")
	csv := "strategy_name,big_candle_tf,small_candle_tf,from_date,to_date\n" +
		"s1,15,5,2025-01-01,2025-01-31\n" +
		"s2,30,5,2025-01-01,2025-01-31\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))

	strategiesFile = path
	strategyList = "s2, missing"
	fromDate = "2025-01-06"

	configs, err := loadStrategies(ctx, stores)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "s2", configs[0].StrategyName)
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), configs[0].FromDate)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), configs[0].ToDate)

	// The file replaces the stored set.
	stored, err := stores.StrategyConfigs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestLoadStrategies_FromStore(t *testing.T) {
	resetRunFlags(t)
	ctx := context.Background()
	stores := backend.Memory()

	c := domain.DefaultStrategyConfig()
	c.StrategyName = "stored"
	c.FromDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.ToDate = time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, stores.StrategyConfigs.Replace(ctx, []domain.StrategyConfig{c}))

	configs, err := loadStrategies(ctx, stores)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "stored", configs[0].StrategyName)

	toDate = "31-01-2025"
	_, err = loadStrategies(ctx, stores)
	assert.Error(t, err)
}
