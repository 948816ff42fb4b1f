// Package scoring turns per-criterion outcomes into completion and
// opportunity scores.
package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"airdrop-scout/internal/criteria"
	"airdrop-scout/internal/domain"
)

// Score adjustments applied on top of the completion score.
const (
	ConfirmedBonus    = 20
	NearSnapshotBonus = 30
	NearSnapshotDays  = 30
	MidSnapshotBonus  = 20
	MidSnapshotDays   = 90
	KnownValueBonus   = 15
	EffortPenalty     = 5

	MaxScore = 100
	MinScore = 0
)

// Clock returns the evaluation time. Only the snapshot bonus depends on it.
type Clock func() time.Time

// Scorer scores projects against an activity profile.
type Scorer struct {
	evaluator *criteria.Evaluator
	now       Clock
	logger    zerolog.Logger
}

// Option configures Scorer.
type Option func(*Scorer)

// WithClock sets the clock used for snapshot proximity.
func WithClock(now Clock) Option {
	return func(s *Scorer) {
		s.now = now
	}
}

// WithLogger sets the logger used to report isolated project failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scorer) {
		s.logger = logger
	}
}

// NewScorer creates a scorer using evaluator. A nil evaluator gets a default one.
func NewScorer(evaluator *criteria.Evaluator, opts ...Option) *Scorer {
	if evaluator == nil {
		evaluator = criteria.NewEvaluator()
	}
	s := &Scorer{
		evaluator: evaluator,
		now:       time.Now,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score evaluates every criterion of p and derives its scores.
// Any criterion error aborts scoring of p only.
func (s *Scorer) Score(p *domain.Project, a *domain.UserActivity) (*domain.ScoredProject, error) {
	if p == nil {
		return nil, fmt.Errorf("score: nil project")
	}

	results := make([]domain.CriterionResult, 0, len(p.Criteria))
	missing := make([]string, 0)
	met := 0
	for i, c := range p.Criteria {
		r, err := s.evaluator.Explain(c, a)
		if err != nil {
			return nil, fmt.Errorf("criterion %d: %w", i, err)
		}
		results = append(results, r)
		if r.Met {
			met++
		} else {
			missing = append(missing, r.Description)
		}
	}

	total := len(p.Criteria)
	current := CompletionScore(met, total)
	effort := total - met

	scored := &domain.ScoredProject{
		ProjectID:         p.ProjectID,
		Name:              p.Name,
		Status:            p.Status,
		CurrentScore:      current,
		EffortNeeded:      effort,
		MissingCriteria:   missing,
		Results:           results,
		EstimatedValueUSD: p.EstimatedValueUSD,
		SnapshotDate:      p.SnapshotDate,
		ClaimURL:          p.ClaimURL,
	}

	opp := current
	if p.Status == domain.StatusConfirmed {
		opp += ConfirmedBonus
	}
	if days, ok := DaysUntil(p.SnapshotDate, s.now()); ok {
		scored.DaysUntilSnapshot = &days
		opp += SnapshotBonus(days)
	}
	if p.EstimatedValueUSD != nil {
		opp += KnownValueBonus
	}
	opp -= EffortPenalty * effort

	scored.RawOpportunityScore = opp
	scored.OpportunityScore = clamp(opp, MinScore, MaxScore)

	return scored, nil
}

// ScoreAll scores every project. Projects that fail are reported as
// ProjectFailures in input order and do not affect the others.
func (s *Scorer) ScoreAll(projects []*domain.Project, a *domain.UserActivity) ([]*domain.ScoredProject, []domain.ProjectFailure) {
	scored := make([]*domain.ScoredProject, 0, len(projects))
	var failures []domain.ProjectFailure

	for _, p := range projects {
		sp, err := s.Score(p, a)
		if err != nil {
			id := ""
			if p != nil {
				id = p.ProjectID
			}
			s.logger.Warn().Err(err).Str("project_id", id).Msg("project scoring failed")
			failures = append(failures, domain.ProjectFailure{ProjectID: id, Err: err})
			continue
		}
		scored = append(scored, sp)
	}

	return scored, failures
}

// CompletionScore returns round(100*met/total), or 0 when there are no criteria.
// A project without criteria can never be reported as complete.
func CompletionScore(met, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(met) / float64(total)))
}

// DaysUntil returns whole days (rounded up) until snapshot.
// ok is false when snapshot is nil or not strictly in the future.
func DaysUntil(snapshot *time.Time, now time.Time) (int, bool) {
	if snapshot == nil || !snapshot.After(now) {
		return 0, false
	}
	days := int(math.Ceil(snapshot.Sub(now).Hours() / 24))
	return days, true
}

// SnapshotBonus returns the proximity bonus for a snapshot days away.
func SnapshotBonus(days int) int {
	switch {
	case days <= NearSnapshotDays:
		return NearSnapshotBonus
	case days <= MidSnapshotDays:
		return MidSnapshotBonus
	default:
		return 0
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
