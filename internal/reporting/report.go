package reporting

import (
	"time"

	"airdrop-scout/internal/domain"
	"airdrop-scout/internal/pipeline"
)

// Report is the printable view of one evaluation.
type Report struct {
	Address     string
	GeneratedAt time.Time
	Cached      bool

	Activity ActivitySummary
	Buckets  []Bucket
	Projects []*domain.ScoredProject // ranked order, completed projects last

	Failures []domain.ProjectFailure
	Warnings []domain.PartialDataWarning
}

// ActivitySummary condenses UserActivity for display.
type ActivitySummary struct {
	TotalTransactions int
	Chains            []string
	PerChain          []ChainCount
	Protocols         []string
	Contracts         int
	NFTContracts      int
	TotalValueUSD     float64
	TotalGasUSD       float64
	FirstActivity     *time.Time
	LastActivity      *time.Time
}

// ChainCount is the transaction count on one chain.
type ChainCount struct {
	Chain string
	Count int
}

// Bucket is one named opportunity list.
type Bucket struct {
	Title    string
	Projects []*domain.ScoredProject
}

// BuildReport converts an evaluation result into a Report.
func BuildReport(res *pipeline.Result) *Report {
	r := &Report{
		Address:     res.Address,
		GeneratedAt: res.GeneratedAt,
		Cached:      res.Cached,
		Failures:    res.Failures,
		Warnings:    res.Warnings,
	}

	if a := res.Activity; a != nil {
		r.Activity = summarize(a)
	}

	if o := res.Opportunities; o != nil {
		r.Buckets = []Bucket{
			{Title: "Easy Wins", Projects: o.EasyWins},
			{Title: "High Value", Projects: o.HighValue},
			{Title: "Quick Actions", Projects: o.QuickActions},
		}
		r.Projects = append(r.Projects, o.All...)
	}

	// Completed projects are dropped from the ranking but still belong in
	// the checklist.
	listed := make(map[string]bool, len(r.Projects))
	for _, sp := range r.Projects {
		listed[sp.ProjectID] = true
	}
	for _, sp := range res.Scored {
		if !listed[sp.ProjectID] {
			r.Projects = append(r.Projects, sp)
		}
	}

	return r
}

func summarize(a *domain.UserActivity) ActivitySummary {
	s := ActivitySummary{
		TotalTransactions: a.TotalTransactionCount,
		Protocols:         a.ProtocolList(),
		Contracts:         len(a.ContractsInteracted),
		NFTContracts:      len(a.NFTContractsHeld),
		TotalValueUSD:     a.TotalValueUSD,
		TotalGasUSD:       a.TotalGasUSD,
	}
	for _, c := range a.ChainList() {
		s.Chains = append(s.Chains, c.String())
		s.PerChain = append(s.PerChain, ChainCount{Chain: c.String(), Count: a.PerChainTransactionCount[c]})
	}
	if a.FirstActivityUnix > 0 {
		t := time.Unix(a.FirstActivityUnix, 0).UTC()
		s.FirstActivity = &t
	}
	if a.LastActivityUnix > 0 {
		t := time.Unix(a.LastActivityUnix, 0).UTC()
		s.LastActivity = &t
	}
	return s
}
