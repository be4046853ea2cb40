package reporting

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/storage/memory"
)

var (
	day1   = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	day2   = time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)
	expiry = time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)
)

func row(strategy string, day time.Time, strike float64, pnl string) *domain.StrategyRunResult {
	return &domain.StrategyRunResult{
		StrategyName:    strategy,
		TradeDate:       day,
		ExpiryDate:      expiry,
		BreakoutTime:    day.Add(9*time.Hour + 30*time.Minute),
		EntryTime:       day.Add(9*time.Hour + 45*time.Minute),
		ExitTime:        day.Add(15*time.Hour + 20*time.Minute),
		OptionType:      domain.OptionTypeCall,
		Strike:          strike,
		EntryPrice:      80,
		ExitPrice:       64,
		TransactionType: domain.TransactionBuy,
		LegType:         domain.LegTypeEntry,
		EntryRound:      1,
		ExitReason:      domain.ExitReasonSL,
		PnLAmount:       decimal.RequireFromString(pnl),
	}
}

// setupTestData seeds seven strategies; s1 is best, s7 worst.
func setupTestData(t *testing.T) (*memory.ResultStore, *memory.StrategyConfigStore) {
	t.Helper()
	ctx := context.Background()
	results := memory.NewResultStore()
	configs := memory.NewStrategyConfigStore()

	var rows []*domain.StrategyRunResult
	var cfgs []domain.StrategyConfig
	for i := 1; i <= 7; i++ {
		name := fmt.Sprintf("s%d", i)
		pnl := fmt.Sprintf("%d.00", 800-200*i)
		rows = append(rows, row(name, day1, 22100, pnl))
		cfg := domain.DefaultStrategyConfig()
		cfg.StrategyName = name
		cfg.NumEntryLegs = 1
		cfg.NumHedgeLegs = 0
		cfgs = append(cfgs, cfg)
	}
	rows = append(rows, row("s1", day2, 22100, "-100.00"), row("s1", day2, 22200, "50.50"))
	cfgs[0].NumEntryLegs = 2

	if err := results.WriteResults(ctx, rows); err != nil {
		t.Fatalf("WriteResults failed: %v", err)
	}
	if err := results.WriteNoTradeDates(ctx, []*domain.NoTradeDate{
		{StrategyName: "s2", TradeDate: day2, Reason: domain.NoTradeNoBreakout},
	}); err != nil {
		t.Fatalf("WriteNoTradeDates failed: %v", err)
	}
	if err := configs.Replace(ctx, cfgs); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	return results, configs
}

func TestGenerate_Deterministic(t *testing.T) {
	ctx := context.Background()

	// Fixed time for deterministic output
	fixedTime := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	fixedClock := func() time.Time { return fixedTime }

	var first string
	for run := 0; run < 5; run++ {
		results, configs := setupTestData(t)
		report, err := NewGenerator(results, configs).WithClock(fixedClock).Generate(ctx)
		if err != nil {
			t.Fatalf("Run %d: Generate failed: %v", run, err)
		}
		md := RenderMarkdown(report)
		if run == 0 {
			first = md
			continue
		}
		if md != first {
			t.Errorf("Run %d: markdown differs from first run", run)
		}
	}
}

func TestGenerate_SummariesAndRankings(t *testing.T) {
	results, configs := setupTestData(t)

	report, err := NewGenerator(results, configs).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.StrategyCount != 7 || report.TotalLegs != 9 {
		t.Errorf("expected 7 strategies and 9 legs, got %d/%d", report.StrategyCount, report.TotalLegs)
	}
	// 600+400+200+0-200-400-600 - 49.50
	if !report.TotalPnL.Equal(decimal.RequireFromString("-49.50")) {
		t.Errorf("unexpected total PnL %s", report.TotalPnL)
	}

	s1 := report.Summaries[0]
	if s1.StrategyName != "s1" || s1.TradingDays != 2 || !s1.TotalPnL.Equal(decimal.RequireFromString("550.50")) {
		t.Errorf("unexpected leader: %+v", s1)
	}

	if len(report.Highlights) != 3 {
		t.Fatalf("expected 3 highlights, got %d", len(report.Highlights))
	}
	if want := "High total PnL (₹550.50) over 2 trading days"; report.Highlights[0].Reason != want {
		t.Errorf("unexpected reason %q", report.Highlights[0].Reason)
	}

	if len(report.Rankings) != 10 {
		t.Fatalf("expected 10 ranking rows, got %d", len(report.Rankings))
	}
	top, bottom := report.Rankings[0], report.Rankings[5]
	if top.Rank != 1 || top.Type != RankTop || top.StrategyName != "s1" {
		t.Errorf("unexpected top row: %+v", top)
	}
	if bottom.Rank != 3 || bottom.Type != RankBottom || bottom.StrategyName != "s3" {
		t.Errorf("unexpected first bottom row: %+v", bottom)
	}
	if last := report.Rankings[9]; last.Rank != 7 || last.StrategyName != "s7" {
		t.Errorf("unexpected last row: %+v", last)
	}
}

func TestGenerate_NoTradeAndLegCheck(t *testing.T) {
	results, configs := setupTestData(t)

	report, err := NewGenerator(results, configs).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(report.NoTradeDates) != 1 || report.NoTradeDates[0].Reason != domain.NoTradeNoBreakout {
		t.Errorf("unexpected no-trade dates: %+v", report.NoTradeDates)
	}
	// s1 expects 2 entries per round: day1 has 1
	if len(report.LegCountMismatches) != 1 {
		t.Fatalf("expected 1 mismatch, got %d", len(report.LegCountMismatches))
	}
	m := report.LegCountMismatches[0]
	if m.StrategyName != "s1" || !m.TradeDate.Equal(day1) || m.Actual != 1 {
		t.Errorf("unexpected mismatch: %+v", m)
	}
}

func TestGenerate_EmptyLedger(t *testing.T) {
	fixedTime := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	report, err := NewGenerator(memory.NewResultStore(), nil).
		WithClock(func() time.Time { return fixedTime }).
		Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !report.GeneratedAt.Equal(fixedTime) {
		t.Errorf("Expected GeneratedAt %v, got %v", fixedTime, report.GeneratedAt)
	}
	if report.StrategyCount != 0 || len(report.Rankings) != 0 || len(report.Highlights) != 0 {
		t.Errorf("expected empty sections, got %+v", report)
	}
	if md := RenderMarkdown(report); !strings.Contains(md, "No strategies traded.") {
		t.Error("empty report should say no strategies traded")
	}
}

func TestRenderMarkdown_Format(t *testing.T) {
	results, configs := setupTestData(t)
	report, err := NewGenerator(results, configs).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)

	requiredSections := []string{
		"# Backtest Report",
		"## Top Strategies",
		"## Strategy Summary",
		"## Rankings",
		"## Daily Analysis",
		"## Portfolio Thresholds",
		"## No-Trade Dates",
		"## Leg Count Check",
	}
	for _, section := range requiredSections {
		if !strings.Contains(md, section) {
			t.Errorf("Markdown missing section: %s", section)
		}
	}
	if !strings.Contains(md, "| s1 | 2025-01-07 | 2 | -49.50 | -100.00 | 50.50 |") {
		t.Error("Markdown missing s1 daily row")
	}
}

func TestRenderCSV_Sections(t *testing.T) {
	results, configs := setupTestData(t)
	report, err := NewGenerator(results, configs).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	rows, err := results.GetAllResults(context.Background())
	if err != nil {
		t.Fatalf("GetAllResults failed: %v", err)
	}

	files := CSVFiles(report, rows)
	if len(files) != 5 {
		t.Fatalf("expected 5 files, got %d", len(files))
	}

	lines := strings.Split(strings.TrimSpace(files[CSVSummary]), "\n")
	if len(lines) != 8 {
		t.Fatalf("expected header + 7 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "strategy_name,total_trades,total_pnl,avg_daily_pnl") {
		t.Errorf("CSV header is incorrect: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "s1,3,550.50,275.25,2,") {
		t.Errorf("Expected s1 first, got: %s", lines[1])
	}

	full := strings.Split(strings.TrimSpace(files[CSVResults]), "\n")
	if len(full) != 10 {
		t.Fatalf("expected header + 9 result rows, got %d", len(full))
	}
	if want := "s1,2025-01-06,2025-01-09,09:30:00,09:45:00,15:20:00,CE,22100,80.00,64.00,BUY,entry,1,sl,600.00"; full[1] != want {
		t.Errorf("unexpected first result row:\n got %s\nwant %s", full[1], want)
	}
}
