package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"options-breakout-lab/internal/config"
	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/observability"
	"options-breakout-lab/internal/orchestrator"
	"options-breakout-lab/internal/pipeline"
	"options-breakout-lab/internal/settings"
	"options-breakout-lab/internal/storage/backend"
)

var (
	strategiesFile string
	strategyList   string
	fromDate       string
	toDate         string
	workers        int
	metricsAddr    string
	ticksFile      string
	quotesFile     string
	reportDir      string
	outputJSON     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate strategies over their date ranges",
	Long: `Simulate every (strategy, trade date) unit and persist legs, results,
no-trade dates and portfolio snapshots.

Strategies come from --strategies (which also replaces the stored set)
or from the strategy config store. With the memory backend, market data
is loaded from --ticks and --quotes first.`,
	RunE: runBacktest,
}

func init() {
	runCmd.Flags().StringVar(&strategiesFile, "strategies", "", "strategy settings file (.csv, .yaml)")
	runCmd.Flags().StringVar(&strategyList, "strategy", "", "comma-separated strategy names to run (default: all)")
	runCmd.Flags().StringVar(&fromDate, "from", "", "override from_date (YYYY-MM-DD)")
	runCmd.Flags().StringVar(&toDate, "to", "", "override to_date (YYYY-MM-DD)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "number of parallel units (default: run.workers)")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (default: metrics.listen)")
	runCmd.Flags().StringVar(&ticksFile, "ticks", "", "index tick CSV to load before running")
	runCmd.Flags().StringVar(&quotesFile, "quotes", "", "option bar CSV to load before running")
	runCmd.Flags().StringVar(&reportDir, "report-dir", "", "write the report here after the run")
	runCmd.Flags().BoolVar(&outputJSON, "json", false, "print the run result as JSON")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := backend.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer stores.Close()

	if err := loadMarketData(ctx, stores, ticksFile, quotesFile); err != nil {
		return err
	}

	configs, err := loadStrategies(ctx, stores)
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		return fmt.Errorf("no strategies to run")
	}

	addr := metricsAddr
	if addr == "" {
		addr = cfg.Metrics.Listen
	}
	if addr != "" {
		shutdown := serveMetrics(addr)
		defer shutdown()
	}

	n := workers
	if n <= 0 {
		n = cfg.Run.Workers
	}

	var bar *progressbar.ProgressBar
	orch := orchestrator.New(orchestrator.Options{
		IndexTickStore:   stores.IndexTicks,
		OptionQuoteStore: stores.OptionQuotes,
		LegBookStore:     stores.LegBook,
		ResultSink:       stores.Results,
		PnLSnapshotStore: stores.PnLSnapshots,
		StrategyConfigs:  configs,
		Workers:          n,
		Verbose:          cfg.Run.Verbose,
		Metrics:          addr != "",
		Progress: func(orchestrator.UnitReport) {
			if bar != nil {
				bar.Add(1)
			}
		},
	})

	if !outputJSON {
		total, err := orch.Units(ctx)
		if err != nil {
			return fmt.Errorf("planning units: %w", err)
		}
		fmt.Printf("Backtesting %d strategies over %d units with %d workers...\n\n", len(configs), total, n)
		bar = newProgressBar(total)
	}

	result, runErr := orch.Run(ctx)
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}
	if result == nil {
		return runErr
	}

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else if err := printRunSummary(ctx, stores, configs, result); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if err := allFailed(result, len(configs)); err != nil {
		return err
	}

	if reportDir != "" {
		_, paths, err := pipeline.NewReportPipeline(stores.Results, stores.StrategyConfigs, reportDir, cfg.Report.Format).Run(ctx)
		if err != nil {
			return err
		}
		if !outputJSON {
			fmt.Println("\nReport written:")
			for _, p := range paths {
				fmt.Printf("  - %s\n", p)
			}
		}
	}
	return nil
}

// allFailed reports a run in which every strategy or every unit failed.
func allFailed(result *orchestrator.RunResult, strategies int) error {
	var configFailures, unitFailures int
	for _, f := range result.Failures {
		if f.Stage == "config" {
			configFailures++
		} else {
			unitFailures++
		}
	}
	if configFailures > 0 && configFailures == strategies {
		return fmt.Errorf("no valid strategies (%d config errors)", configFailures)
	}
	if unitFailures > 0 && unitFailures == result.UnitsProcessed {
		return fmt.Errorf("all %d units failed", result.UnitsProcessed)
	}
	return nil
}

// loadStrategies reads --strategies (replacing the stored set) or the store,
// then applies the --strategy filter and date overrides.
func loadStrategies(ctx context.Context, stores *backend.Stores) ([]domain.StrategyConfig, error) {
	var (
		configs []domain.StrategyConfig
		err     error
	)
	if strategiesFile != "" {
		configs, err = settings.Load(strategiesFile, strategyDefaults())
		if err != nil {
			return nil, fmt.Errorf("loading strategies: %w", err)
		}
		if err := stores.StrategyConfigs.Replace(ctx, configs); err != nil {
			return nil, fmt.Errorf("storing strategies: %w", err)
		}
	} else {
		configs, err = stores.StrategyConfigs.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing strategies: %w", err)
		}
	}

	if strategyList != "" {
		want := make(map[string]bool)
		for _, name := range strings.Split(strategyList, ",") {
			want[strings.TrimSpace(name)] = true
		}
		var filtered []domain.StrategyConfig
		for _, c := range configs {
			if want[c.StrategyName] {
				filtered = append(filtered, c)
				delete(want, c.StrategyName)
			}
		}
		for name := range want {
			log.Warn().Str("strategy", name).Msg("Strategy not found, skipping")
		}
		configs = filtered
	}

	if fromDate != "" || toDate != "" {
		from, to, err := parseRange(fromDate, toDate)
		if err != nil {
			return nil, err
		}
		for i := range configs {
			if !from.IsZero() {
				configs[i].FromDate = from
			}
			if !to.IsZero() {
				configs[i].ToDate = to
			}
		}
	}
	return configs, nil
}

func strategyDefaults() domain.StrategyConfig {
	d := domain.DefaultStrategyConfig()
	if cfg.Run.Symbol != "" {
		d.Symbol = cfg.Run.Symbol
	}
	return d
}

func parseRange(from, to string) (f, t time.Time, err error) {
	if from != "" {
		if f, err = domain.ParseDate(from); err != nil {
			return
		}
	}
	if to != "" {
		t, err = domain.ParseDate(to)
	}
	return
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Simulating"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// serveMetrics exposes /metrics until the returned shutdown is called.
func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Metrics server shutdown")
		}
	}
}

// requireDatabase rejects commands whose effect would vanish with the process.
func requireDatabase(what string) error {
	if cfg.Storage.Backend == config.BackendMemory {
		return fmt.Errorf("%s needs a database backend (storage.backend is %q)", what, cfg.Storage.Backend)
	}
	return nil
}
