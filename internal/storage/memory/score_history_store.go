package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"airdrop-scout/internal/domain"
	"airdrop-scout/internal/storage"
)

// ScoreHistoryStore is an in-memory implementation of storage.ScoreHistoryStore.
type ScoreHistoryStore struct {
	mu   sync.RWMutex
	data []*domain.ScoreSnapshot
}

// NewScoreHistoryStore creates a new in-memory score history store.
func NewScoreHistoryStore() *ScoreHistoryStore {
	return &ScoreHistoryStore{}
}

// Compile-time interface check.
var _ storage.ScoreHistoryStore = (*ScoreHistoryStore)(nil)

// InsertBulk appends snapshots. Fails entire batch on invalid rows.
func (s *ScoreHistoryStore) InsertBulk(_ context.Context, snapshots []*domain.ScoreSnapshot) error {
	for _, snap := range snapshots {
		if err := storage.ValidateSnapshot(snap); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snapshots {
		cp := *snap
		cp.Address = strings.ToLower(cp.Address)
		s.data = append(s.data, &cp)
	}
	return nil
}

// GetByAddress retrieves snapshots for an address, ordered by computed_at ASC, project_id ASC.
func (s *ScoreHistoryStore) GetByAddress(_ context.Context, address string) ([]*domain.ScoreSnapshot, error) {
	addr := strings.ToLower(address)
	result := s.filter(func(snap *domain.ScoreSnapshot) bool { return snap.Address == addr })

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].ComputedAt != result[j].ComputedAt {
			return result[i].ComputedAt < result[j].ComputedAt
		}
		return result[i].ProjectID < result[j].ProjectID
	})
	return result, nil
}

// GetByProject retrieves snapshots for a project, ordered by computed_at ASC, address ASC.
func (s *ScoreHistoryStore) GetByProject(_ context.Context, projectID string) ([]*domain.ScoreSnapshot, error) {
	result := s.filter(func(snap *domain.ScoreSnapshot) bool { return snap.ProjectID == projectID })

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].ComputedAt != result[j].ComputedAt {
			return result[i].ComputedAt < result[j].ComputedAt
		}
		return result[i].Address < result[j].Address
	})
	return result, nil
}

func (s *ScoreHistoryStore) filter(keep func(*domain.ScoreSnapshot) bool) []*domain.ScoreSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScoreSnapshot
	for _, snap := range s.data {
		if keep(snap) {
			cp := *snap
			result = append(result, &cp)
		}
	}
	return result
}
