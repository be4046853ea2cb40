// Package pipeline turns stored backtest results into report files.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"options-breakout-lab/internal/config"
	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/reporting"
	"options-breakout-lab/internal/storage"
)

// ReportFile is the Markdown report written in markdown format.
const ReportFile = "REPORT.md"

// ReportPipeline generates the report and writes it to an output directory.
type ReportPipeline struct {
	reportGen *reporting.Generator
	results   storage.ResultReader
	outputDir string
	format    string
}

// NewReportPipeline creates a new pipeline. format is config.FormatMarkdown
// or config.FormatCSV.
func NewReportPipeline(
	results storage.ResultReader,
	configs storage.StrategyConfigStore,
	outputDir string,
	format string,
) *ReportPipeline {
	return &ReportPipeline{
		reportGen: reporting.NewGenerator(results, configs),
		results:   results,
		outputDir: outputDir,
		format:    format,
	}
}

// WithClock sets a custom clock function for deterministic output.
func (p *ReportPipeline) WithClock(clock func() time.Time) *ReportPipeline {
	p.reportGen = p.reportGen.WithClock(clock)
	return p
}

// Run writes the output files and returns their paths in write order:
//   - full_results.csv, always
//   - REPORT.md in markdown format
//   - daily, summary, rankings and no-trade CSVs in csv format
func (p *ReportPipeline) Run(ctx context.Context) (*reporting.Report, []string, error) {
	if p.format != config.FormatMarkdown && p.format != config.FormatCSV {
		return nil, nil, fmt.Errorf("unknown report format %q", p.format)
	}
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return nil, nil, err
	}

	report, err := p.reportGen.Generate(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("generate report: %w", err)
	}
	results, err := p.results.GetAllResults(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load results: %w", err)
	}
	report.DataVersion = computeDataVersion(results, report.NoTradeDates)

	files := reporting.CSVFiles(report, results)
	names := []string{reporting.CSVResults}
	if p.format == config.FormatMarkdown {
		files = map[string]string{
			reporting.CSVResults: files[reporting.CSVResults],
			ReportFile:           reporting.RenderMarkdown(report),
		}
		names = append(names, ReportFile)
	} else {
		names = append(names, reporting.CSVDaily, reporting.CSVSummary, reporting.CSVRankings, reporting.CSVNoTrade)
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(p.outputDir, name)
		if err := os.WriteFile(path, []byte(files[name]), 0644); err != nil {
			return nil, nil, fmt.Errorf("write %s: %w", name, err)
		}
		paths = append(paths, path)
	}

	log.Info().
		Str("dir", p.outputDir).
		Str("format", p.format).
		Str("data_version", report.DataVersion).
		Int("files", len(paths)).
		Msg("Report written")
	return report, paths, nil
}

// computeDataVersion hashes result and no-trade rows so two reports over
// the same data carry the same version.
func computeDataVersion(results []*domain.StrategyRunResult, noTrade []*domain.NoTradeDate) string {
	h := sha256.New()

	var resultParts []string
	for _, r := range results {
		resultParts = append(resultParts, fmt.Sprintf("%s|%s|%s|%d|%s|%.2f|%s|%s|%s",
			r.StrategyName, r.TradeDate.Format(domain.DateLayout), r.ExpiryDate.Format(domain.DateLayout),
			r.EntryRound, r.OptionType, r.Strike, r.LegType, r.ExitReason, r.PnLAmount.StringFixed(2)))
	}
	sort.Strings(resultParts)
	h.Write([]byte("RESULTS\n"))
	h.Write([]byte(strings.Join(resultParts, "\n")))

	var noTradeParts []string
	for _, n := range noTrade {
		noTradeParts = append(noTradeParts, fmt.Sprintf("%s|%s|%s",
			n.StrategyName, n.TradeDate.Format(domain.DateLayout), n.Reason))
	}
	sort.Strings(noTradeParts)
	h.Write([]byte("\nNO_TRADE\n"))
	h.Write([]byte(strings.Join(noTradeParts, "\n")))

	return hex.EncodeToString(h.Sum(nil))[:12]
}
