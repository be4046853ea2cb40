// Package reporting renders the strategy run ledger as analysis reports.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"options-breakout-lab/internal/metrics"
	"options-breakout-lab/internal/storage"
)

const (
	highlightCount = 3
	rankingCount   = 5
)

// Generator produces reports from stored data.
type Generator struct {
	results    storage.ResultReader
	aggregator *metrics.Aggregator
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. configs is optional; without
// it the leg count check is skipped.
func NewGenerator(results storage.ResultReader, configs storage.StrategyConfigStore) *Generator {
	return &Generator{
		results:    results,
		aggregator: metrics.NewAggregator(results, configs),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report. An empty ledger yields a report with
// empty sections.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	r := &Report{GeneratedAt: g.now()}

	// Daily analysis
	daily, err := g.aggregator.DailyAnalysis(ctx, "")
	if err != nil && !errors.Is(err, metrics.ErrNoResults) {
		return nil, err
	}
	r.DailyAnalysis = daily

	// Strategy summary, highlights and rankings
	if len(daily) > 0 {
		r.Summaries, err = g.aggregator.StrategySummaries(ctx)
		if err != nil {
			return nil, err
		}
	}
	r.StrategyCount = len(r.Summaries)
	for _, s := range r.Summaries {
		r.TotalLegs += s.TotalTrades
		r.TotalPnL = r.TotalPnL.Add(s.TotalPnL)
	}
	r.Highlights = highlights(r.Summaries)
	r.Rankings = rankings(r.Summaries)

	// No-trade dates and threshold events
	if r.NoTradeDates, err = g.results.GetNoTradeDates(ctx, ""); err != nil {
		return nil, err
	}
	if r.ThresholdEvents, err = g.results.GetThresholdEvents(ctx, ""); err != nil {
		return nil, err
	}

	// Leg count check
	if r.LegCountMismatches, err = g.aggregator.CheckLegCounts(ctx); err != nil {
		return nil, err
	}

	return r, nil
}

// highlights picks the top strategies; summaries are ordered by total_pnl DESC.
func highlights(summaries []*metrics.StrategySummary) []HighlightRow {
	n := min(highlightCount, len(summaries))
	rows := make([]HighlightRow, n)
	for i, s := range summaries[:n] {
		rows[i] = HighlightRow{
			Rank:         i + 1,
			StrategyName: s.StrategyName,
			TotalPnL:     s.TotalPnL,
			TradingDays:  s.TradingDays,
			Reason:       fmt.Sprintf("High total PnL (₹%s) over %d trading days", s.TotalPnL.StringFixed(2), s.TradingDays),
		}
	}
	return rows
}

// rankings lists the top and bottom strategies with their overall rank.
// With fewer strategies than the list size the two lists overlap.
func rankings(summaries []*metrics.StrategySummary) []RankingRow {
	total := len(summaries)
	n := min(rankingCount, total)
	rows := make([]RankingRow, 0, 2*n)
	for i, s := range summaries[:n] {
		rows = append(rows, RankingRow{Rank: i + 1, StrategyName: s.StrategyName, TotalPnL: s.TotalPnL, Type: RankTop})
	}
	for i, s := range summaries[total-n:] {
		rows = append(rows, RankingRow{Rank: total - n + i + 1, StrategyName: s.StrategyName, TotalPnL: s.TotalPnL, Type: RankBottom})
	}
	return rows
}
