package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airdrop-scout/internal/domain"
	"airdrop-scout/internal/storage"
)

func ptr[T any](v T) *T {
	return &v
}

func testProject(id string, status domain.ProjectStatus, chains ...domain.ChainID) *domain.Project {
	return &domain.Project{
		ProjectID: id,
		Name:      id + " airdrop",
		Status:    status,
		Chains:    chains,
		Criteria: []domain.Criterion{
			domain.MinTransactionCount{N: 5},
			domain.ChainCountAtLeast{N: 2, Description: "Bridge somewhere"},
		},
		SnapshotDate:      ptr(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)),
		EstimatedValueUSD: ptr(500.0),
	}
}

func TestProjectStore_InsertAndGetByID(t *testing.T) {
	store := NewProjectStore()
	ctx := context.Background()

	p := testProject("scroll", domain.StatusConfirmed, domain.ChainScroll)
	require.NoError(t, store.Insert(ctx, p))

	got, err := store.GetByID(ctx, "scroll")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	// Mutating the returned copy does not leak into the store
	got.Chains[0] = domain.ChainBase
	again, err := store.GetByID(ctx, "scroll")
	require.NoError(t, err)
	assert.Equal(t, domain.ChainScroll, again.Chains[0])
}

func TestProjectStore_InsertDuplicate(t *testing.T) {
	store := NewProjectStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testProject("linea", domain.StatusRumored)))
	err := store.Insert(ctx, testProject("linea", domain.StatusRumored))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestProjectStore_InsertInvalid(t *testing.T) {
	store := NewProjectStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, &domain.Project{ProjectID: "x", Name: "x", Status: "MAYBE"}), storage.ErrInvalidInput)
}

func TestProjectStore_GetByIDNotFound(t *testing.T) {
	_, err := NewProjectStore().GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProjectStore_ListFilters(t *testing.T) {
	store := NewProjectStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testProject("zksync", domain.StatusConfirmed, domain.ChainZkSync)))
	require.NoError(t, store.Insert(ctx, testProject("base", domain.StatusRumored, domain.ChainBase)))
	require.NoError(t, store.Insert(ctx, testProject("layerzero", domain.StatusAnnounced, domain.ChainEthereum, domain.ChainArbitrum)))

	all, err := store.List(ctx, domain.ProjectFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "layerzero", "zksync"}, projectIDs(all))

	byStatus, err := store.List(ctx, domain.ProjectFilter{Statuses: []domain.ProjectStatus{domain.StatusConfirmed, domain.StatusRumored}})
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "zksync"}, projectIDs(byStatus))

	byChain, err := store.List(ctx, domain.ProjectFilter{Chains: []domain.ChainID{domain.ChainArbitrum}})
	require.NoError(t, err)
	assert.Equal(t, []string{"layerzero"}, projectIDs(byChain))

	byID, err := store.List(ctx, domain.ProjectFilter{ProjectIDs: []string{"zksync", "nope"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"zksync"}, projectIDs(byID))
}

func projectIDs(projects []*domain.Project) []string {
	out := make([]string, 0, len(projects))
	for _, p := range projects {
		out = append(out, p.ProjectID)
	}
	return out
}
