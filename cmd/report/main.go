package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"options-breakout-lab/internal/config"
	"options-breakout-lab/internal/logger"
	"options-breakout-lab/internal/pipeline"
	"options-breakout-lab/internal/storage/backend"
)

var (
	cfgFile     string
	outputDir   string
	format      string
	generatedAt string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the backtest report from stored results",
		Long: `report reads strategy results, no-trade dates and portfolio threshold
events from storage and writes the analysis to an output directory.

Formats:
  markdown  REPORT.md plus full_results.csv
  csv       full_results, daily_analysis, strategy_summary, rankings
            and no_trade_dates CSVs

Examples:
  report --format markdown --output-dir reports
  report --format csv --generated-at 2025-01-04T12:00:00Z`,
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory (default: report.output_dir)")
	rootCmd.Flags().StringVar(&format, "format", "", "output format: markdown, csv (default: report.format)")
	rootCmd.Flags().StringVar(&generatedAt, "generated-at", "", "fixed RFC3339 report timestamp for reproducible output")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if outputDir != "" {
		cfg.Report.OutputDir = outputDir
	}
	if format != "" {
		cfg.Report.Format = format
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Storage.Backend == config.BackendMemory {
		return fmt.Errorf("report reads stored results; set storage.backend to postgres or clickhouse, or use backtest run --report-dir")
	}
	if err := logger.Init(logger.Config{
		Level:         cfg.Logging.Level,
		Format:        cfg.Logging.Format,
		FileEnabled:   cfg.Logging.FileEnabled,
		FilePath:      cfg.Logging.FilePath,
		RotationSize:  cfg.Logging.RotationSize,
		RetentionDays: cfg.Logging.RetentionDays,
		ServiceName:   "report",
	}); err != nil {
		return err
	}

	ctx := cmd.Context()
	stores, err := backend.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer stores.Close()

	p := pipeline.NewReportPipeline(stores.Results, stores.StrategyConfigs, cfg.Report.OutputDir, cfg.Report.Format)
	if generatedAt != "" {
		fixed, err := time.Parse(time.RFC3339, generatedAt)
		if err != nil {
			return fmt.Errorf("--generated-at: %w", err)
		}
		p = p.WithClock(func() time.Time { return fixed })
	}

	report, paths, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Report generated (%d strategies, total PnL %s, data version %s):\n",
		report.StrategyCount, report.TotalPnL.StringFixed(2), report.DataVersion)
	for _, path := range paths {
		fmt.Printf("  - %s\n", path)
	}
	return nil
}
