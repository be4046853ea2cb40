package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"options-breakout-lab/internal/ingestion"
	"options-breakout-lab/internal/storage/backend"
)

var (
	ingestSymbol string
	batchSize    int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Bulk-load market data from CSV",
	Long: `Bulk-load one-minute index bars or option bars into the market data store.

Tick CSV columns:  date,time,open,high,low,close[,volume,oi,symbol]
Quote CSV columns: date,time,expiry,strike,option_type,open,high,low,close[,volume,oi,symbol]

option_type accepts c/ce/call and p/pe/put; other rows are skipped.
A batch that repeats an existing bar is rejected.`,
}

var ingestTicksCmd = &cobra.Command{
	Use:   "ticks <file.csv>",
	Short: "Load index ticks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context(), args[0], true)
	},
}

var ingestQuotesCmd = &cobra.Command{
	Use:   "quotes <file.csv>",
	Short: "Load option bars",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context(), args[0], false)
	},
}

func init() {
	ingestCmd.PersistentFlags().StringVar(&ingestSymbol, "symbol", "", "underlying for rows without a symbol (default: run.symbol)")
	ingestCmd.PersistentFlags().IntVar(&batchSize, "batch-size", ingestion.DefaultBatchSize, "rows per insert")

	ingestCmd.AddCommand(ingestTicksCmd)
	ingestCmd.AddCommand(ingestQuotesCmd)
}

func runIngest(ctx context.Context, path string, ticks bool) error {
	if err := requireDatabase("ingest"); err != nil {
		return err
	}
	stores, err := backend.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer stores.Close()

	if ticks {
		return loadMarketData(ctx, stores, path, "")
	}
	return loadMarketData(ctx, stores, "", path)
}

// loadMarketData ingests the given tick and quote files; empty paths are skipped.
func loadMarketData(ctx context.Context, stores *backend.Stores, ticksPath, quotesPath string) error {
	m := ingestion.NewManager(ingestion.ManagerOptions{
		TickStore:  stores.IndexTicks,
		QuoteStore: stores.OptionQuotes,
	})
	symbol := ingestSymbol
	if symbol == "" {
		symbol = cfg.Run.Symbol
	}

	if ticksPath != "" {
		f, err := os.Open(ticksPath)
		if err != nil {
			return err
		}
		defer f.Close()

		src, err := ingestion.NewCSVTickSource(f, symbol, batchSize)
		if err != nil {
			return fmt.Errorf("%s: %w", ticksPath, err)
		}
		stats, err := m.IngestTicks(ctx, src)
		if err != nil {
			return fmt.Errorf("%s: %w", ticksPath, err)
		}
		log.Info().Str("file", ticksPath).Int("rows", stats.Rows).Int("batches", stats.Batches).Msg("Ticks ingested")
	}

	if quotesPath != "" {
		f, err := os.Open(quotesPath)
		if err != nil {
			return err
		}
		defer f.Close()

		src, err := ingestion.NewCSVQuoteSource(f, symbol, batchSize)
		if err != nil {
			return fmt.Errorf("%s: %w", quotesPath, err)
		}
		stats, err := m.IngestQuotes(ctx, src)
		if err != nil {
			return fmt.Errorf("%s: %w", quotesPath, err)
		}
		log.Info().Str("file", quotesPath).Int("rows", stats.Rows).Int("dropped", stats.Dropped).
			Int("batches", stats.Batches).Msg("Quotes ingested")
	}
	return nil
}
