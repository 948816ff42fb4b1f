package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airdrop-scout/internal/domain"
	"airdrop-scout/internal/storage"
)

func testProject(id string, status domain.ProjectStatus, chains ...domain.ChainID) *domain.Project {
	return &domain.Project{
		ProjectID: id,
		Name:      id + " airdrop",
		Status:    status,
		Chains:    chains,
		Criteria: []domain.Criterion{
			domain.MinTransactionCount{N: 10, Description: "Make 10 transactions"},
			domain.ContractInteraction{Address: "0x2da10a1e27bf85cedd8ffb1abbe97e53391c0295"},
			domain.DateRange{Start: 1_680_000_000, End: 1_760_000_000},
			domain.ActiveOnChain{Chain: domain.ChainZkSync},
		},
		SnapshotDate:      ptr(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)),
		EstimatedValueUSD: ptr(1250.5),
		ClaimURL:          ptr("https://claim.example.org/" + id),
	}
}

func TestProjectStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProjectStore(pool)
	ctx := context.Background()

	p := testProject("zksync", domain.StatusConfirmed, domain.ChainZkSync, domain.ChainEthereum)
	require.NoError(t, store.Insert(ctx, p))

	got, err := store.GetByID(ctx, "zksync")
	require.NoError(t, err)

	assert.Equal(t, p.ProjectID, got.ProjectID)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Status, got.Status)
	assert.Equal(t, p.Chains, got.Chains)
	assert.Equal(t, p.Criteria, got.Criteria)
	assert.True(t, p.SnapshotDate.Equal(*got.SnapshotDate))
	assert.Equal(t, *p.EstimatedValueUSD, *got.EstimatedValueUSD)
	assert.Equal(t, *p.ClaimURL, *got.ClaimURL)
}

func TestProjectStore_NullableColumns(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProjectStore(pool)
	ctx := context.Background()

	p := &domain.Project{ProjectID: "rumor", Name: "Rumor", Status: domain.StatusRumored}
	require.NoError(t, store.Insert(ctx, p))

	got, err := store.GetByID(ctx, "rumor")
	require.NoError(t, err)
	assert.Nil(t, got.SnapshotDate)
	assert.Nil(t, got.EstimatedValueUSD)
	assert.Nil(t, got.ClaimURL)
	assert.Empty(t, got.Chains)
	assert.Empty(t, got.Criteria)
}

func TestProjectStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProjectStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testProject("scroll", domain.StatusAnnounced)))
	err := store.Insert(ctx, testProject("scroll", domain.StatusAnnounced))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestProjectStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewProjectStore(pool).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProjectStore_ListFilters(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProjectStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testProject("zksync", domain.StatusConfirmed, domain.ChainZkSync)))
	require.NoError(t, store.Insert(ctx, testProject("base", domain.StatusRumored, domain.ChainBase)))
	require.NoError(t, store.Insert(ctx, testProject("layerzero", domain.StatusAnnounced, domain.ChainEthereum, domain.ChainArbitrum)))

	tests := []struct {
		name   string
		filter domain.ProjectFilter
		want   []string
	}{
		{"empty filter", domain.ProjectFilter{}, []string{"base", "layerzero", "zksync"}},
		{"empty non-nil lists", domain.ProjectFilter{ProjectIDs: []string{}, Chains: []domain.ChainID{}}, []string{"base", "layerzero", "zksync"}},
		{"status", domain.ProjectFilter{Statuses: []domain.ProjectStatus{domain.StatusConfirmed}}, []string{"zksync"}},
		{"chain overlap", domain.ProjectFilter{Chains: []domain.ChainID{domain.ChainArbitrum, domain.ChainBase}}, []string{"base", "layerzero"}},
		{"ids", domain.ProjectFilter{ProjectIDs: []string{"zksync", "unknown"}}, []string{"zksync"}},
		{"combined", domain.ProjectFilter{Statuses: []domain.ProjectStatus{domain.StatusRumored}, Chains: []domain.ChainID{domain.ChainZkSync}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.filter)
			require.NoError(t, err)

			var ids []string
			for _, p := range got {
				ids = append(ids, p.ProjectID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestProjectStore_ListKeepsUnrecognizedCriteria(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProjectStore(pool)
	ctx := context.Background()

	criteria, err := json.Marshal([]domain.RawCriterion{
		{Kind: domain.KindMinTransactionCount, Params: json.RawMessage(`{"n":1}`)},
		{Kind: "gitcoin_passport", Params: json.RawMessage(`{"score":20}`)},
	})
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		INSERT INTO airdrop_projects (project_id, name, status, criteria)
		VALUES ('legacy', 'Legacy', 'RUMORED', $1)
	`, criteria)
	require.NoError(t, err)

	projects, err := store.List(ctx, domain.ProjectFilter{})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.Len(t, projects[0].Criteria, 2)

	_, ok := projects[0].Criteria[1].(domain.UnrecognizedCriterion)
	assert.True(t, ok)
}
