package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"options-breakout-lab/internal/config"
	"options-breakout-lab/internal/storage/migrations"
	pgstore "options-breakout-lab/internal/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply the embedded PostgreSQL migrations, and the ClickHouse ones when
storage.backend is clickhouse. Migrations are idempotent.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := requireDatabase("migrate"); err != nil {
		return err
	}
	ctx := cmd.Context()

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("postgres migrations: %w", err)
	}
	log.Info().Msg("PostgreSQL migrations applied")

	if cfg.Storage.Backend == config.BackendClickHouse {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		if err := conn.Close(); err != nil {
			return err
		}
		log.Info().Msg("ClickHouse migrations applied")
	}
	return nil
}
