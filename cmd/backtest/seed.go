package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"options-breakout-lab/internal/settings"
	"options-breakout-lab/internal/storage/backend"
)

var templatePath string

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Upload strategy settings",
	Long: `Replace the stored strategy set with the strategies in a CSV or YAML file.
Empty cells keep their defaults; unknown columns are rejected.

With --template, write a CSV template holding one default strategy instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&templatePath, "template", "", "write a settings template to this path and exit")
}

func runSeed(cmd *cobra.Command, args []string) error {
	if templatePath != "" {
		f, err := os.Create(templatePath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := settings.WriteCSV(f, nil); err != nil {
			return err
		}
		fmt.Printf("Template written to %s\n", templatePath)
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("settings file required (or --template)")
	}
	if err := requireDatabase("seed"); err != nil {
		return err
	}

	configs, err := settings.Load(args[0], strategyDefaults())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	stores, err := backend.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer stores.Close()

	if err := stores.StrategyConfigs.Replace(ctx, configs); err != nil {
		return fmt.Errorf("storing strategies: %w", err)
	}
	log.Info().Int("strategies", len(configs)).Str("file", args[0]).Msg("Strategies seeded")
	fmt.Printf("Seeded %d strategies from %s\n", len(configs), args[0])
	return nil
}
