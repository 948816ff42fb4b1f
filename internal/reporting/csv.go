package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"

	"airdrop-scout/internal/domain"
)

var csvHeader = []string{
	"project_id", "name", "status",
	"current_score", "opportunity_score", "effort_needed",
	"estimated_value_usd", "snapshot_date", "days_until_snapshot",
	"missing_criteria",
}

// RenderCSV renders scored projects as CSV, one row per project in input order.
// Missing criteria are joined with "; ". Absent optional values are empty.
func RenderCSV(scored []*domain.ScoredProject) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	// Writes to a strings.Builder cannot fail.
	_ = w.Write(csvHeader)
	for _, sp := range scored {
		value, snapshot, days := "", "", ""
		if sp.EstimatedValueUSD != nil {
			value = strconv.FormatFloat(*sp.EstimatedValueUSD, 'f', 2, 64)
		}
		if sp.SnapshotDate != nil {
			snapshot = sp.SnapshotDate.UTC().Format("2006-01-02")
		}
		if sp.DaysUntilSnapshot != nil {
			days = strconv.Itoa(*sp.DaysUntilSnapshot)
		}
		_ = w.Write([]string{
			sp.ProjectID,
			sp.Name,
			string(sp.Status),
			strconv.Itoa(sp.CurrentScore),
			strconv.Itoa(sp.OpportunityScore),
			strconv.Itoa(sp.EffortNeeded),
			value,
			snapshot,
			days,
			strings.Join(sp.MissingCriteria, "; "),
		})
	}
	w.Flush()

	return sb.String()
}
