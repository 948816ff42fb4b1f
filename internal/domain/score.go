package domain

import "time"

// ScoredProject is the scoring outcome of one project for one address.
// Discarded after the response; only the cache holds it transiently.
type ScoredProject struct {
	ProjectID           string            `json:"project_id"`
	Name                string            `json:"name"`
	Status              ProjectStatus     `json:"status"`
	CurrentScore        int               `json:"current_score"`         // 0..100
	OpportunityScore    int               `json:"opportunity_score"`     // clamped 0..100
	RawOpportunityScore int               `json:"raw_opportunity_score"` // before clamping
	EffortNeeded        int               `json:"effort_needed"`         // unmet criteria count
	MissingCriteria     []string          `json:"missing_criteria"`
	Results             []CriterionResult `json:"results"`
	EstimatedValueUSD   *float64          `json:"estimated_value_usd,omitempty"`
	SnapshotDate        *time.Time        `json:"snapshot_date,omitempty"`
	DaysUntilSnapshot   *int              `json:"days_until_snapshot,omitempty"` // set only for future snapshots
	ClaimURL            *string           `json:"claim_url,omitempty"`
}

// Opportunities is the ranked and bucketed view of scored projects.
// Buckets are non-exclusive.
type Opportunities struct {
	All          []*ScoredProject `json:"all"`
	EasyWins     []*ScoredProject `json:"easy_wins"`
	HighValue    []*ScoredProject `json:"high_value"`
	QuickActions []*ScoredProject `json:"quick_actions"`
}

// ScoreSnapshot is one persisted row of score history.
type ScoreSnapshot struct {
	RunID            string
	Address          string
	ProjectID        string
	CurrentScore     int
	OpportunityScore int
	EffortNeeded     int
	ComputedAt       int64 // unix ms
}
