package migrations

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"airdrop-scout/internal/storage/postgres"
)

// RunPostgresMigrations applies the project catalog schema.
// Every migration uses IF NOT EXISTS, so reruns are no-ops.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, logger zerolog.Logger) error {
	files, err := loadMigrations(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, m := range files {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
		logger.Debug().Str("backend", "postgres").Str("file", m.Name).Msg("migration applied")
	}

	logger.Info().Str("backend", "postgres").Int("files", len(files)).Msg("migrations complete")
	return nil
}
