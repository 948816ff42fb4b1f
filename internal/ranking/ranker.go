// Package ranking orders scored projects and buckets them into
// actionable categories.
package ranking

import (
	"sort"

	"airdrop-scout/internal/domain"
)

// Bucket thresholds.
const (
	EasyWinMaxEffort    = 2
	EasyWinMinScore     = 50
	HighValueMinScore   = 30
	QuickActionMaxDays  = 30
	QuickActionMinScore = 40
	CompletedScore      = 100
)

// Limits caps the size of each output list.
type Limits struct {
	All          int
	EasyWins     int
	HighValue    int
	QuickActions int
}

// DefaultLimits returns the standard list sizes.
func DefaultLimits() Limits {
	return Limits{All: 20, EasyWins: 5, HighValue: 5, QuickActions: 5}
}

// Ranker sorts and categorizes scored projects.
type Ranker struct {
	limits Limits
}

// NewRanker creates a ranker. Zero limits fall back to DefaultLimits.
func NewRanker(limits Limits) *Ranker {
	def := DefaultLimits()
	if limits.All <= 0 {
		limits.All = def.All
	}
	if limits.EasyWins <= 0 {
		limits.EasyWins = def.EasyWins
	}
	if limits.HighValue <= 0 {
		limits.HighValue = def.HighValue
	}
	if limits.QuickActions <= 0 {
		limits.QuickActions = def.QuickActions
	}
	return &Ranker{limits: limits}
}

// Rank drops already-complete projects, sorts the rest by opportunity score
// DESC, effort ASC, project ID ASC, and fills the buckets from that order.
// The input slice is not modified.
func (r *Ranker) Rank(scored []*domain.ScoredProject) *domain.Opportunities {
	actionable := make([]*domain.ScoredProject, 0, len(scored))
	for _, sp := range scored {
		if sp == nil || sp.CurrentScore >= CompletedScore {
			continue
		}
		actionable = append(actionable, sp)
	}

	sort.SliceStable(actionable, func(i, j int) bool {
		return less(actionable[i], actionable[j])
	})

	out := &domain.Opportunities{
		All:          make([]*domain.ScoredProject, 0),
		EasyWins:     make([]*domain.ScoredProject, 0),
		HighValue:    make([]*domain.ScoredProject, 0),
		QuickActions: make([]*domain.ScoredProject, 0),
	}

	for _, sp := range actionable {
		if len(out.All) < r.limits.All {
			out.All = append(out.All, sp)
		}
		if len(out.EasyWins) < r.limits.EasyWins && IsEasyWin(sp) {
			out.EasyWins = append(out.EasyWins, sp)
		}
		if len(out.HighValue) < r.limits.HighValue && IsHighValue(sp) {
			out.HighValue = append(out.HighValue, sp)
		}
		if len(out.QuickActions) < r.limits.QuickActions && IsQuickAction(sp) {
			out.QuickActions = append(out.QuickActions, sp)
		}
	}

	return out
}

func less(a, b *domain.ScoredProject) bool {
	if a.OpportunityScore != b.OpportunityScore {
		return a.OpportunityScore > b.OpportunityScore
	}
	if a.EffortNeeded != b.EffortNeeded {
		return a.EffortNeeded < b.EffortNeeded
	}
	return a.ProjectID < b.ProjectID
}

// IsEasyWin reports few remaining steps on a mostly complete project.
func IsEasyWin(sp *domain.ScoredProject) bool {
	return sp.EffortNeeded <= EasyWinMaxEffort && sp.CurrentScore >= EasyWinMinScore
}

// IsHighValue reports a project with a known value estimate and some progress.
func IsHighValue(sp *domain.ScoredProject) bool {
	return sp.EstimatedValueUSD != nil && sp.CurrentScore >= HighValueMinScore
}

// IsQuickAction reports a project whose snapshot is at most 30 days away.
func IsQuickAction(sp *domain.ScoredProject) bool {
	return sp.DaysUntilSnapshot != nil &&
		*sp.DaysUntilSnapshot <= QuickActionMaxDays &&
		sp.CurrentScore >= QuickActionMinScore
}
