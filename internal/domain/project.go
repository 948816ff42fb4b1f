package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProjectStatus is the airdrop's announcement status.
type ProjectStatus string

const (
	StatusConfirmed ProjectStatus = "CONFIRMED"
	StatusRumored   ProjectStatus = "RUMORED"
	StatusAnnounced ProjectStatus = "ANNOUNCED"
)

// String returns the string representation of ProjectStatus.
func (s ProjectStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a valid value.
func (s ProjectStatus) IsValid() bool {
	return s == StatusConfirmed || s == StatusRumored || s == StatusAnnounced
}

// Project is an airdrop campaign with its eligibility criteria.
// Owned by the project store; read-only to the scoring pipeline.
type Project struct {
	ProjectID         string
	Name              string
	Status            ProjectStatus
	Chains            []ChainID
	Criteria          []Criterion
	SnapshotDate      *time.Time // nullable
	EstimatedValueUSD *float64   // nullable
	ClaimURL          *string    // nullable
}

type projectJSON struct {
	ProjectID         string         `json:"project_id"`
	Name              string         `json:"name"`
	Status            ProjectStatus  `json:"status"`
	Chains            []ChainID      `json:"chains,omitempty"`
	Criteria          []RawCriterion `json:"criteria"`
	SnapshotDate      *time.Time     `json:"snapshot_date,omitempty"`
	EstimatedValueUSD *float64       `json:"estimated_value_usd,omitempty"`
	ClaimURL          *string        `json:"claim_url,omitempty"`
}

// MarshalJSON encodes criteria in their tagged storage shape.
func (p Project) MarshalJSON() ([]byte, error) {
	raw, err := EncodeCriteria(p.Criteria)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", p.ProjectID, err)
	}
	return json.Marshal(projectJSON{
		ProjectID:         p.ProjectID,
		Name:              p.Name,
		Status:            p.Status,
		Chains:            p.Chains,
		Criteria:          raw,
		SnapshotDate:      p.SnapshotDate,
		EstimatedValueUSD: p.EstimatedValueUSD,
		ClaimURL:          p.ClaimURL,
	})
}

// UnmarshalJSON decodes tagged criteria. Unknown tags fail with *UnknownCriterionError.
func (p *Project) UnmarshalJSON(data []byte) error {
	var pj projectJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return err
	}
	criteria, err := DecodeCriteria(pj.Criteria)
	if err != nil {
		return fmt.Errorf("project %s: %w", pj.ProjectID, err)
	}
	*p = Project{
		ProjectID:         pj.ProjectID,
		Name:              pj.Name,
		Status:            pj.Status,
		Chains:            pj.Chains,
		Criteria:          criteria,
		SnapshotDate:      pj.SnapshotDate,
		EstimatedValueUSD: pj.EstimatedValueUSD,
		ClaimURL:          pj.ClaimURL,
	}
	return nil
}

// EncodeCriteria encodes criteria preserving declaration order.
func EncodeCriteria(criteria []Criterion) ([]RawCriterion, error) {
	out := make([]RawCriterion, 0, len(criteria))
	for _, c := range criteria {
		raw, err := EncodeCriterion(c)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

// DecodeCriteria decodes criteria preserving declaration order.
func DecodeCriteria(raw []RawCriterion) ([]Criterion, error) {
	out := make([]Criterion, 0, len(raw))
	for _, r := range raw {
		c, err := DecodeCriterion(r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ProjectFilter narrows the set of projects scored in one request.
// Zero value matches every project.
type ProjectFilter struct {
	Statuses   []ProjectStatus
	Chains     []ChainID
	ProjectIDs []string
}

// Matches reports whether p passes the filter.
func (f ProjectFilter) Matches(p *Project) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, p.Status) {
		return false
	}
	if len(f.ProjectIDs) > 0 && !containsString(f.ProjectIDs, p.ProjectID) {
		return false
	}
	if len(f.Chains) > 0 {
		found := false
		for _, c := range p.Chains {
			if containsChain(f.Chains, c) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsStatus(list []ProjectStatus, s ProjectStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsChain(list []ChainID, c ChainID) bool {
	for _, v := range list {
		if v == c {
			return true
		}
	}
	return false
}
