package storage

import (
	"context"

	"airdrop-scout/internal/domain"
)

// ProjectStore provides access to the airdrop project catalog.
type ProjectStore interface {
	// Insert adds a new project. Returns ErrDuplicateKey if project_id exists.
	Insert(ctx context.Context, p *domain.Project) error

	// GetByID retrieves a project by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, projectID string) (*domain.Project, error)

	// List returns projects passing filter, ordered by project_id ASC.
	// Criteria that fail to decode are kept as domain.UnrecognizedCriterion.
	List(ctx context.Context, filter domain.ProjectFilter) ([]*domain.Project, error)
}

// ScoreHistoryStore provides access to score_history storage.
// History is append-only.
type ScoreHistoryStore interface {
	// InsertBulk appends snapshots. Fails entire batch on invalid rows.
	InsertBulk(ctx context.Context, snapshots []*domain.ScoreSnapshot) error

	// GetByAddress retrieves snapshots for an address, ordered by computed_at ASC, project_id ASC.
	GetByAddress(ctx context.Context, address string) ([]*domain.ScoreSnapshot, error)

	// GetByProject retrieves snapshots for a project, ordered by computed_at ASC, address ASC.
	GetByProject(ctx context.Context, projectID string) ([]*domain.ScoreSnapshot, error)
}

// ValidateProject checks the fields every store requires.
func ValidateProject(p *domain.Project) error {
	if p == nil || p.ProjectID == "" || p.Name == "" || !p.Status.IsValid() {
		return ErrInvalidInput
	}
	return nil
}

// ValidateSnapshot checks the fields every store requires.
func ValidateSnapshot(s *domain.ScoreSnapshot) error {
	if s == nil || s.RunID == "" || s.Address == "" || s.ProjectID == "" || s.ComputedAt <= 0 {
		return ErrInvalidInput
	}
	return nil
}
