package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"token-lifecycle-monitor/internal/storage/migrations"
	pgstore "token-lifecycle-monitor/internal/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply PostgreSQL (and, if configured, ClickHouse) migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateStorage(); err != nil {
		return err
	}
	if cfg.UseMemory {
		return fmt.Errorf("migrate needs PostgreSQL, not in-memory storage")
	}
	ctx := cmd.Context()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		return err
	}
	logger.Info("postgres migrations applied", zap.Strings("files", applied))

	if cfg.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			return err
		}
		defer conn.Close()
		logger.Info("clickhouse migrations applied")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "applied %d postgres migration(s)\n", len(applied))
	return nil
}
