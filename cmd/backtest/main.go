package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"options-breakout-lab/internal/config"
	"options-breakout-lab/internal/logger"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Intraday options breakout backtester",
	Long: `backtest replays index breakouts over minute data and simulates
the option legs each strategy would have traded.

Commands:
  run       simulate strategies over a date range
  seed      upload strategy settings (CSV or YAML)
  ingest    bulk-load index ticks or option bars from CSV
  migrate   apply database migrations
  verify    replay stored units and diff their rows

Examples:
  backtest migrate
  backtest seed strategies.csv
  backtest ingest ticks nifty_1m.csv
  backtest run --strategy s1,s2 --from 2025-01-01 --to 2025-03-31`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log phase lines and debug output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(verifyCmd)
}

// initConfig loads configuration and sets up the global logger.
func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Run.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return logger.Init(logger.Config{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		FileEnabled:    cfg.Logging.FileEnabled,
		FilePath:       cfg.Logging.FilePath,
		RotationSize:   cfg.Logging.RotationSize,
		RetentionDays:  cfg.Logging.RetentionDays,
		ServiceName:    "backtest",
		ServiceVersion: Version,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
