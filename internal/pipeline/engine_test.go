package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airdrop-scout/internal/cache"
	"airdrop-scout/internal/cache/memory"
	"airdrop-scout/internal/collector"
	"airdrop-scout/internal/domain"
	"airdrop-scout/internal/evm/stub"
	"airdrop-scout/internal/storage"
	storemem "airdrop-scout/internal/storage/memory"
)

const testAddr = "0xAbC0000000000000000000000000000000000001"

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	engine   *Engine
	source   *stub.Source
	history  *storemem.ScoreHistoryStore
	projects *storemem.ProjectStore
}

func newFixture(t *testing.T, backend cache.Cache) *fixture {
	t.Helper()
	ctx := context.Background()

	projects := storemem.NewProjectStore()
	require.NoError(t, projects.Insert(ctx, &domain.Project{
		ProjectID: "alpha",
		Name:      "Alpha",
		Status:    domain.StatusConfirmed,
		Chains:    []domain.ChainID{domain.ChainBase},
		Criteria: []domain.Criterion{
			domain.MinTransactionCount{N: 2},
			domain.ActiveOnChain{Chain: domain.ChainArbitrum},
		},
	}))
	require.NoError(t, projects.Insert(ctx, &domain.Project{
		ProjectID: "beta",
		Name:      "Beta",
		Status:    domain.StatusRumored,
		Chains:    []domain.ChainID{domain.ChainEthereum},
		Criteria: []domain.Criterion{
			domain.UnrecognizedCriterion{
				Raw: domain.RawCriterion{Kind: "gitcoin_passport"},
				Err: &domain.UnknownCriterionError{Kind: "gitcoin_passport"},
			},
		},
	}))

	source := stub.NewSource()
	source.AddTransactions(testAddr,
		domain.ChainTransaction{ChainID: domain.ChainBase, Hash: "0x01", TimestampUnix: 1_700_000_000, ValueUSD: 10},
		domain.ChainTransaction{ChainID: domain.ChainBase, Hash: "0x02", TimestampUnix: 1_700_000_100, ValueUSD: 5},
	)

	coll := collector.New(source, collector.Config{
		Chains:       []domain.ChainID{domain.ChainEthereum, domain.ChainBase},
		RPS:          1000,
		ChainTimeout: time.Second,
	})

	history := storemem.NewScoreHistoryStore()
	if backend == nil {
		backend = memory.NewStore()
	}
	engine, err := New(Options{
		Projects:  projects,
		History:   history,
		Collector: coll,
		Cache:     backend,
		CacheTTL:  time.Minute,
		Logger:    zerolog.Nop(),
		Clock:     func() time.Time { return testNow },
	})
	require.NoError(t, err)

	return &fixture{engine: engine, source: source, history: history, projects: projects}
}

func TestNew_RequiresStoresAndCollector(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{Projects: storemem.NewProjectStore()})
	assert.Error(t, err)
}

func TestValidateAddress(t *testing.T) {
	got, err := ValidateAddress("  " + testAddr + " ")
	require.NoError(t, err)
	assert.Equal(t, "0xabc0000000000000000000000000000000000001", got)

	for _, bad := range []string{"", "0x123", "abc0000000000000000000000000000000000001", "0xZZ00000000000000000000000000000000000001"} {
		_, err := ValidateAddress(bad)
		assert.ErrorIs(t, err, ErrInvalidAddress, bad)
	}
}

func TestEvaluate_ScoresRanksAndIsolatesFailures(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.engine.Evaluate(context.Background(), Request{Address: testAddr})
	require.NoError(t, err)

	assert.Equal(t, "0xabc0000000000000000000000000000000000001", res.Address)
	assert.Equal(t, testNow, res.GeneratedAt)
	assert.False(t, res.Cached)
	assert.Equal(t, 2, res.Activity.TotalTransactionCount)

	require.Len(t, res.Scored, 1)
	alpha := res.Scored[0]
	assert.Equal(t, "alpha", alpha.ProjectID)
	assert.Equal(t, 50, alpha.CurrentScore)
	// 50 + 20 confirmed - 5 for the one unmet criterion
	assert.Equal(t, 65, alpha.OpportunityScore)
	assert.Equal(t, 1, alpha.EffortNeeded)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, "beta", res.Failures[0].ProjectID)
	var unknown *domain.UnknownCriterionError
	assert.ErrorAs(t, res.Failures[0].Err, &unknown)

	require.Len(t, res.Opportunities.All, 1)
	assert.Equal(t, "alpha", res.Opportunities.All[0].ProjectID)
	assert.Len(t, res.Opportunities.EasyWins, 1)
	assert.Empty(t, res.Warnings)
}

func TestEvaluate_CachesResult(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.engine.Evaluate(ctx, Request{Address: testAddr})
	require.NoError(t, err)
	calls := f.source.Calls(domain.ChainBase)

	// Different casing maps to the same key.
	second, err := f.engine.Evaluate(ctx, Request{Address: "0xabc0000000000000000000000000000000000001"})
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, calls, f.source.Calls(domain.ChainBase))
	assert.Equal(t, first.Scored[0].OpportunityScore, second.Scored[0].OpportunityScore)
	require.Len(t, second.Failures, 1)
	assert.Equal(t, "beta", second.Failures[0].ProjectID)
	assert.Error(t, second.Failures[0].Err)

	third, err := f.engine.Evaluate(ctx, Request{Address: testAddr, Refresh: true})
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Greater(t, f.source.Calls(domain.ChainBase), calls)
}

func TestEvaluate_FilterNarrowsProjects(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.engine.Evaluate(context.Background(), Request{
		Address: testAddr,
		Filter:  domain.ProjectFilter{Statuses: []domain.ProjectStatus{domain.StatusRumored}},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Scored)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "beta", res.Failures[0].ProjectID)
}

func TestEvaluate_RecordsHistory(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.engine.Evaluate(ctx, Request{Address: testAddr})
	require.NoError(t, err)
	_, err = f.engine.Evaluate(ctx, Request{Address: testAddr})
	require.NoError(t, err)

	snaps, err := f.engine.History(ctx, testAddr)
	require.NoError(t, err)
	// The cached second call records nothing.
	require.Len(t, snaps, 1)
	assert.Equal(t, "alpha", snaps[0].ProjectID)
	assert.Equal(t, 65, snaps[0].OpportunityScore)
	assert.Equal(t, testNow.UnixMilli(), snaps[0].ComputedAt)
	assert.NotEmpty(t, snaps[0].RunID)
}

func TestEvaluate_FailedChainBecomesWarning(t *testing.T) {
	f := newFixture(t, nil)
	f.source.FailChain(domain.ChainEthereum, errors.New("explorer unavailable"))

	res, err := f.engine.Evaluate(context.Background(), Request{Address: testAddr})
	require.NoError(t, err)

	require.NotEmpty(t, res.Warnings)
	for _, w := range res.Warnings {
		assert.Equal(t, domain.ChainEthereum, w.Chain)
	}
	require.Len(t, res.Scored, 1)
	assert.Equal(t, 50, res.Scored[0].CurrentScore)
}

func TestEvaluate_InvalidAddress(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.engine.Evaluate(context.Background(), Request{Address: "not-an-address"})
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.Zero(t, f.source.Calls(domain.ChainBase))
}

func TestEvaluate_CacheBackendDownStillServes(t *testing.T) {
	f := newFixture(t, brokenCache{})

	res, err := f.engine.Evaluate(context.Background(), Request{Address: testAddr})
	require.NoError(t, err)
	require.Len(t, res.Scored, 1)

	again, err := f.engine.Evaluate(context.Background(), Request{Address: testAddr})
	require.NoError(t, err)
	assert.False(t, again.Cached)
}

func TestEvaluate_CancelledContext(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine.Evaluate(ctx, Request{Address: testAddr})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScore_SingleProject(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sp, err := f.engine.Score(ctx, testAddr, "alpha")
	require.NoError(t, err)
	assert.Equal(t, 65, sp.OpportunityScore)
	assert.Equal(t, []string{"Be active on arbitrum"}, sp.MissingCriteria)
	calls := f.source.Calls(domain.ChainBase)

	again, err := f.engine.Score(ctx, testAddr, "alpha")
	require.NoError(t, err)
	assert.Equal(t, sp.OpportunityScore, again.OpportunityScore)
	assert.Equal(t, calls, f.source.Calls(domain.ChainBase))

	require.NoError(t, f.engine.Invalidate(ctx, testAddr, domain.ProjectFilter{}, "alpha"))
	_, err = f.engine.Score(ctx, testAddr, "alpha")
	require.NoError(t, err)
	assert.Greater(t, f.source.Calls(domain.ChainBase), calls)
}

func TestScore_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.engine.Score(ctx, testAddr, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = f.engine.Score(ctx, testAddr, "beta")
	var failure *domain.ProjectFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "beta", failure.ProjectID)

	_, err = f.engine.Score(ctx, "0x1", "alpha")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestScoreAndEvaluateAgree(t *testing.T) {
	ctx := context.Background()

	projects := storemem.NewProjectStore()
	require.NoError(t, projects.Insert(ctx, &domain.Project{
		ProjectID: "multi",
		Name:      "Multi",
		Status:    domain.StatusConfirmed,
		Chains:    []domain.ChainID{domain.ChainBase},
		Criteria:  []domain.Criterion{domain.ChainCountAtLeast{N: 2}},
	}))
	require.NoError(t, projects.Insert(ctx, &domain.Project{
		ProjectID: "poly",
		Name:      "Poly",
		Status:    domain.StatusRumored,
		Chains:    []domain.ChainID{domain.ChainPolygon},
		Criteria:  []domain.Criterion{domain.MinTransactionCount{N: 1}},
	}))

	source := stub.NewSource()
	source.AddTransactions(testAddr,
		domain.ChainTransaction{ChainID: domain.ChainBase, Hash: "0x01", TimestampUnix: 1_700_000_000},
		domain.ChainTransaction{ChainID: domain.ChainPolygon, Hash: "0x02", TimestampUnix: 1_700_000_100},
	)
	coll := collector.New(source, collector.Config{
		Chains:       []domain.ChainID{domain.ChainEthereum},
		RPS:          1000,
		ChainTimeout: time.Second,
	})

	engine, err := New(Options{
		Projects:  projects,
		Collector: coll,
		Logger:    zerolog.Nop(),
		Clock:     func() time.Time { return testNow },
	})
	require.NoError(t, err)

	scoreOf := func(res *Result, id string) int {
		for _, sp := range res.Scored {
			if sp.ProjectID == id {
				return sp.CurrentScore
			}
		}
		t.Fatalf("project %s not scored", id)
		return -1
	}

	all, err := engine.Evaluate(ctx, Request{Address: testAddr})
	require.NoError(t, err)
	assert.Equal(t, 100, scoreOf(all, "multi"))
	assert.Equal(t, 2, all.Activity.ChainCount())

	filtered, err := engine.Evaluate(ctx, Request{
		Address: testAddr,
		Filter:  domain.ProjectFilter{ProjectIDs: []string{"multi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 100, scoreOf(filtered, "multi"))
	assert.Equal(t, all.Activity.ChainCount(), filtered.Activity.ChainCount())

	single, err := engine.Score(ctx, testAddr, "multi")
	require.NoError(t, err)
	assert.Equal(t, 100, single.CurrentScore)
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, &cache.CacheUnavailableError{Backend: "test", Op: "get", Err: errors.New("down")}
}

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return &cache.CacheUnavailableError{Backend: "test", Op: "set", Err: errors.New("down")}
}

func (brokenCache) Delete(context.Context, string) error {
	return &cache.CacheUnavailableError{Backend: "test", Op: "delete", Err: errors.New("down")}
}
