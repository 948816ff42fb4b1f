package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"airdrop-scout/internal/storage/migrations"
	pgstore "airdrop-scout/internal/storage/postgres"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply PostgreSQL and ClickHouse schemas, optionally seeding projects",
		RunE:  runMigrate,
	}
	cmd.Flags().String("postgres-dsn", "", "PostgreSQL connection string")
	cmd.Flags().String("clickhouse-dsn", "", "ClickHouse connection string (database is created if missing)")
	cmd.Flags().String("projects", "", "JSON file of projects to insert after migrating")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.UseMemory {
		return errors.New("migrate needs postgres.dsn and clickhouse.dsn; in-memory storage has no schema")
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
		return err
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	if path, _ := cmd.Flags().GetString("projects"); path != "" {
		if _, err := seedProjects(ctx, pgstore.NewProjectStore(pool), path, logger); err != nil {
			return err
		}
	}
	return nil
}
