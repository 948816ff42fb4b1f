package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"airdrop-scout/internal/domain"
	"airdrop-scout/internal/storage"
)

// readProjects decodes a JSON array of projects.
func readProjects(path string) ([]*domain.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read projects file: %w", err)
	}
	var projects []*domain.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("decode projects file %s: %w", path, err)
	}
	return projects, nil
}

// seedProjects inserts every project of path. Projects already present are
// skipped, so seeding is repeatable.
func seedProjects(ctx context.Context, store storage.ProjectStore, path string, logger zerolog.Logger) (int, error) {
	projects, err := readProjects(path)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, p := range projects {
		err := store.Insert(ctx, p)
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, storage.ErrDuplicateKey):
			logger.Debug().Str("project_id", p.ProjectID).Msg("project exists, skipped")
		default:
			return inserted, fmt.Errorf("insert project %s: %w", p.ProjectID, err)
		}
	}

	logger.Info().Int("inserted", inserted).Int("total", len(projects)).Str("file", path).Msg("projects seeded")
	return inserted, nil
}
