package memory

import (
	"context"
	"sort"
	"sync"

	"airdrop-scout/internal/domain"
	"airdrop-scout/internal/storage"
)

// ProjectStore is an in-memory implementation of storage.ProjectStore.
type ProjectStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Project // keyed by project_id
}

// NewProjectStore creates a new in-memory project store.
func NewProjectStore() *ProjectStore {
	return &ProjectStore{
		data: make(map[string]*domain.Project),
	}
}

// Compile-time interface check.
var _ storage.ProjectStore = (*ProjectStore)(nil)

// Insert adds a new project. Returns ErrDuplicateKey if project_id exists.
func (s *ProjectStore) Insert(_ context.Context, p *domain.Project) error {
	if err := storage.ValidateProject(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.ProjectID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[p.ProjectID] = copyProject(p)
	return nil
}

// GetByID retrieves a project by its ID. Returns ErrNotFound if not exists.
func (s *ProjectStore) GetByID(_ context.Context, projectID string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[projectID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyProject(p), nil
}

// List returns projects passing filter, ordered by project_id ASC.
func (s *ProjectStore) List(_ context.Context, filter domain.ProjectFilter) ([]*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Project
	for _, p := range s.data {
		if filter.Matches(p) {
			result = append(result, copyProject(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ProjectID < result[j].ProjectID
	})
	return result, nil
}

// copyProject copies the slices so callers cannot mutate stored state.
// Criteria values are immutable and shared.
func copyProject(p *domain.Project) *domain.Project {
	cp := *p
	cp.Chains = append([]domain.ChainID(nil), p.Chains...)
	cp.Criteria = append([]domain.Criterion(nil), p.Criteria...)
	return &cp
}
