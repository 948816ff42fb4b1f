// Package pipeline wires chain collection, aggregation, scoring and ranking
// behind the result cache.
// Flow: projects → collect → aggregate → score → rank
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"airdrop-scout/internal/activity"
	"airdrop-scout/internal/cache"
	"airdrop-scout/internal/cache/memory"
	"airdrop-scout/internal/collector"
	"airdrop-scout/internal/domain"
	"airdrop-scout/internal/idhash"
	"airdrop-scout/internal/observability"
	"airdrop-scout/internal/ranking"
	"airdrop-scout/internal/scoring"
	"airdrop-scout/internal/storage"
)

// DefaultCacheTTL is how long evaluation results stay cached.
const DefaultCacheTTL = 5 * time.Minute

// ErrInvalidAddress is returned for malformed wallet addresses.
var ErrInvalidAddress = domain.ErrInvalidAddress

// ChainCollector fetches per-chain data for an address.
type ChainCollector interface {
	Collect(ctx context.Context, address string, chains []domain.ChainID) (*collector.ChainData, error)
	// Chains returns the chains always collected.
	Chains() []domain.ChainID
}

// Request selects the address and the projects to evaluate.
type Request struct {
	Address string
	Filter  domain.ProjectFilter
	// Refresh drops any cached result before evaluating.
	Refresh bool
}

// Result is the full evaluation of one address.
type Result struct {
	Address       string                      `json:"address"`
	Activity      *domain.UserActivity        `json:"activity"`
	Scored        []*domain.ScoredProject     `json:"scored"`
	Opportunities *domain.Opportunities       `json:"opportunities"`
	Failures      []domain.ProjectFailure     `json:"failures,omitempty"`
	Warnings      []domain.PartialDataWarning `json:"warnings,omitempty"`
	GeneratedAt   time.Time                   `json:"generated_at"`
	// Cached is set on results served from the cache. Not stored.
	Cached bool `json:"-"`
}

// Options for creating Engine.
type Options struct {
	// Required
	Projects  storage.ProjectStore
	Collector ChainCollector

	// Optional; defaults are built when nil.
	History    storage.ScoreHistoryStore
	Aggregator *activity.Aggregator
	Scorer     *scoring.Scorer
	Ranker     *ranking.Ranker
	Cache      cache.Cache

	CacheTTL time.Duration
	Logger   zerolog.Logger
	Clock    func() time.Time
}

// Engine evaluates addresses against the project catalog.
type Engine struct {
	projects   storage.ProjectStore
	history    storage.ScoreHistoryStore
	collector  ChainCollector
	aggregator *activity.Aggregator
	scorer     *scoring.Scorer
	ranker     *ranking.Ranker

	results *cache.Memo[*Result]
	scores  *cache.Memo[*domain.ScoredProject]
	ttl     time.Duration

	logger zerolog.Logger
	clock  func() time.Time
}

// New creates a new Engine.
func New(opts Options) (*Engine, error) {
	if opts.Projects == nil {
		return nil, errors.New("pipeline: project store is required")
	}
	if opts.Collector == nil {
		return nil, errors.New("pipeline: collector is required")
	}

	clock := opts.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	logger := opts.Logger.With().Str("component", "pipeline").Logger()

	e := &Engine{
		projects:   opts.Projects,
		history:    opts.History,
		collector:  opts.Collector,
		aggregator: opts.Aggregator,
		scorer:     opts.Scorer,
		ranker:     opts.Ranker,
		ttl:        opts.CacheTTL,
		logger:     logger,
		clock:      clock,
	}
	if e.aggregator == nil {
		e.aggregator = activity.NewAggregator(nil)
	}
	if e.scorer == nil {
		e.scorer = scoring.NewScorer(nil, scoring.WithClock(scoring.Clock(clock)), scoring.WithLogger(logger))
	}
	if e.ranker == nil {
		e.ranker = ranking.NewRanker(ranking.DefaultLimits())
	}
	if e.ttl <= 0 {
		e.ttl = DefaultCacheTTL
	}

	backend := opts.Cache
	if backend == nil {
		backend = memory.NewStore()
	}
	e.results = cache.NewMemo[*Result](backend, opts.Logger)
	e.scores = cache.NewMemo[*domain.ScoredProject](backend, opts.Logger)

	return e, nil
}

// ValidateAddress checks the address format and returns it lower-cased.
func ValidateAddress(address string) (string, error) {
	return domain.NormalizeAddress(address)
}

// Evaluate scores and ranks every project passing req.Filter for req.Address.
// Results are cached under the address and filter hash. Per-project failures
// and unavailable chains are reported in the result, not as errors.
func (e *Engine) Evaluate(ctx context.Context, req Request) (*Result, error) {
	address, err := ValidateAddress(req.Address)
	if err != nil {
		return nil, err
	}

	key := idhash.OpportunitiesKey(address, req.Filter)
	if req.Refresh {
		e.results.Delete(ctx, key)
	}

	res, hit, err := e.results.GetOrCompute(ctx, key, e.ttl, func(ctx context.Context) (*Result, error) {
		return e.evaluate(ctx, address, req.Filter)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		e.logger.Debug().Str("address", address).Str("key", key).Msg("evaluation served from cache")
		cp := *res
		cp.Cached = true
		return &cp, nil
	}
	return res, nil
}

func (e *Engine) evaluate(ctx context.Context, address string, filter domain.ProjectFilter) (*Result, error) {
	start := time.Now()
	log := e.logger.With().Str("address", address).Logger()

	var projects []*domain.Project
	if err := e.phase("load_projects", func() error {
		var err error
		projects, err = e.projects.List(ctx, filter)
		return err
	}); err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	act, warnings, err := e.collectActivity(ctx, address)
	if err != nil {
		return nil, err
	}

	var (
		scored   []*domain.ScoredProject
		failures []domain.ProjectFailure
	)
	scoreStart := time.Now()
	_ = e.phase("score", func() error {
		scored, failures = e.scorer.ScoreAll(projects, act)
		return nil
	})
	observability.RecordScoring(len(scored), len(failures), time.Since(scoreStart).Seconds())

	var opps *domain.Opportunities
	_ = e.phase("rank", func() error {
		opps = e.ranker.Rank(scored)
		return nil
	})

	res := &Result{
		Address:       address,
		Activity:      act,
		Scored:        scored,
		Opportunities: opps,
		Failures:      failures,
		Warnings:      warnings,
		GeneratedAt:   e.clock(),
	}

	e.recordHistory(ctx, address, res.GeneratedAt, scored...)
	observability.RecordPipelineRun("evaluate", "success", time.Since(start).Seconds())
	observability.MarkPipelineSuccess(res.GeneratedAt.Unix())

	log.Info().
		Int("projects", len(projects)).
		Int("scored", len(scored)).
		Int("failed", len(failures)).
		Int("warnings", len(warnings)).
		Dur("elapsed", time.Since(start)).
		Msg("evaluation complete")

	return res, nil
}

// Score evaluates a single project for address. Scoring errors of that
// project are returned as a *domain.ProjectFailure.
func (e *Engine) Score(ctx context.Context, address, projectID string) (*domain.ScoredProject, error) {
	address, err := ValidateAddress(address)
	if err != nil {
		return nil, err
	}

	key := idhash.ScoreKey(address, projectID)
	sp, _, err := e.scores.GetOrCompute(ctx, key, e.ttl, func(ctx context.Context) (*domain.ScoredProject, error) {
		p, err := e.projects.GetByID(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("get project %s: %w", projectID, err)
		}

		act, _, err := e.collectActivity(ctx, address)
		if err != nil {
			return nil, err
		}

		sp, err := e.scorer.Score(p, act)
		if err != nil {
			observability.RecordScoring(0, 1, 0)
			return nil, &domain.ProjectFailure{ProjectID: projectID, Err: err}
		}
		observability.RecordScoring(1, 0, 0)

		e.recordHistory(ctx, address, e.clock(), sp)
		return sp, nil
	})
	return sp, err
}

// History returns the recorded score snapshots of address.
func (e *Engine) History(ctx context.Context, address string) ([]*domain.ScoreSnapshot, error) {
	address, err := ValidateAddress(address)
	if err != nil {
		return nil, err
	}
	if e.history == nil {
		return nil, nil
	}
	return e.history.GetByAddress(ctx, address)
}

// Invalidate drops the cached evaluation of address under filter and the
// cached single scores of the given projects.
func (e *Engine) Invalidate(ctx context.Context, address string, filter domain.ProjectFilter, projectIDs ...string) error {
	address, err := ValidateAddress(address)
	if err != nil {
		return err
	}
	e.results.Delete(ctx, idhash.OpportunitiesKey(address, filter))
	for _, id := range projectIDs {
		e.scores.Delete(ctx, idhash.ScoreKey(address, id))
	}
	return nil
}

// collectActivity fetches chain data and folds it into an activity profile.
// The chain set depends only on the configuration and the catalog, never on
// the request, so a project scores the same from Evaluate and Score.
func (e *Engine) collectActivity(ctx context.Context, address string) (*domain.UserActivity, []domain.PartialDataWarning, error) {
	chains, err := e.activityChains(ctx)
	if err != nil {
		return nil, nil, err
	}

	var data *collector.ChainData
	if err := e.phase("collect", func() error {
		var err error
		data, err = e.collector.Collect(ctx, address, chains)
		return err
	}); err != nil {
		return nil, nil, fmt.Errorf("collect chain data: %w", err)
	}

	var act *domain.UserActivity
	_ = e.phase("aggregate", func() error {
		act = e.aggregator.Aggregate(address, data.Transactions, data.NFTs)
		return nil
	})

	for _, w := range data.Warnings {
		e.logger.Warn().
			Str("address", address).
			Uint64("chain_id", uint64(w.Chain)).
			Str("kind", w.Kind).
			Str("error", w.Message).
			Msg("partial chain data")
	}
	return act, data.Warnings, nil
}

// recordHistory appends one snapshot per scored project. Failures are logged
// and never fail the evaluation.
func (e *Engine) recordHistory(ctx context.Context, address string, at time.Time, scored ...*domain.ScoredProject) {
	if e.history == nil || len(scored) == 0 {
		return
	}

	runID := uuid.NewString()
	snapshots := make([]*domain.ScoreSnapshot, 0, len(scored))
	for _, sp := range scored {
		snapshots = append(snapshots, &domain.ScoreSnapshot{
			RunID:            runID,
			Address:          address,
			ProjectID:        sp.ProjectID,
			CurrentScore:     sp.CurrentScore,
			OpportunityScore: sp.OpportunityScore,
			EffortNeeded:     sp.EffortNeeded,
			ComputedAt:       at.UnixMilli(),
		})
	}

	if err := e.history.InsertBulk(ctx, snapshots); err != nil {
		e.logger.Warn().Err(err).Str("address", address).Str("run_id", runID).Msg("record score history failed")
	}
}

func (e *Engine) phase(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.RecordPipelineRun(name, status, time.Since(start).Seconds())
	return err
}

// activityChains returns the collector defaults plus every chain of the
// whole catalog.
func (e *Engine) activityChains(ctx context.Context) ([]domain.ChainID, error) {
	var all []*domain.Project
	if err := e.phase("load_catalog", func() error {
		var err error
		all, err = e.projects.List(ctx, domain.ProjectFilter{})
		return err
	}); err != nil {
		return nil, fmt.Errorf("load catalog chains: %w", err)
	}
	return append(e.collector.Chains(), chainsOf(all)...), nil
}

// chainsOf returns every chain any project is deployed on.
func chainsOf(projects []*domain.Project) []domain.ChainID {
	var chains []domain.ChainID
	for _, p := range projects {
		chains = append(chains, p.Chains...)
	}
	return chains
}
