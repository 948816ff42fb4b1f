package reporting

import (
	"fmt"
	"strings"
	"time"

	"airdrop-scout/internal/domain"
	"airdrop-scout/internal/pipeline"
)

// RenderMarkdown renders an evaluation result as a Markdown eligibility report.
func RenderMarkdown(res *pipeline.Result) string {
	return renderReport(BuildReport(res))
}

func renderReport(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Airdrop Eligibility Report\n\n")
	sb.WriteString(fmt.Sprintf("Address: `%s`\n\n", r.Address))
	sb.WriteString(fmt.Sprintf("Generated: %s", r.GeneratedAt.Format(time.RFC3339)))
	if r.Cached {
		sb.WriteString(" (cached)")
	}
	sb.WriteString("\n\n")

	// Activity
	a := r.Activity
	sb.WriteString("## Activity Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Transactions | %d |\n", a.TotalTransactions))
	sb.WriteString(fmt.Sprintf("| Chains | %s |\n", orDash(strings.Join(a.Chains, ", "))))
	sb.WriteString(fmt.Sprintf("| Protocols | %s |\n", orDash(strings.Join(a.Protocols, ", "))))
	sb.WriteString(fmt.Sprintf("| Contracts | %d |\n", a.Contracts))
	sb.WriteString(fmt.Sprintf("| NFT Collections | %d |\n", a.NFTContracts))
	sb.WriteString(fmt.Sprintf("| Value (USD) | %.2f |\n", a.TotalValueUSD))
	sb.WriteString(fmt.Sprintf("| Gas (USD) | %.2f |\n", a.TotalGasUSD))
	sb.WriteString(fmt.Sprintf("| First Activity | %s |\n", formatTime(a.FirstActivity)))
	sb.WriteString(fmt.Sprintf("| Last Activity | %s |\n", formatTime(a.LastActivity)))
	sb.WriteString("\n")

	if len(a.PerChain) > 0 {
		sb.WriteString("| Chain | Transactions |\n")
		sb.WriteString("|-------|--------------|\n")
		for _, c := range a.PerChain {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", c.Chain, c.Count))
		}
		sb.WriteString("\n")
	}

	// Buckets
	for _, b := range r.Buckets {
		sb.WriteString(fmt.Sprintf("## %s\n\n", b.Title))
		if len(b.Projects) == 0 {
			sb.WriteString("None.\n\n")
			continue
		}
		writeProjectTable(&sb, b.Projects)
	}

	// Checklist
	sb.WriteString("## Project Checklist\n\n")
	if len(r.Projects) == 0 {
		sb.WriteString("No projects scored.\n\n")
	}
	for _, sp := range r.Projects {
		sb.WriteString(fmt.Sprintf("### %s (%s)\n\n", sp.Name, sp.Status))
		sb.WriteString(fmt.Sprintf("Completion: %d%% | Opportunity: %d | Remaining: %d\n\n",
			sp.CurrentScore, sp.OpportunityScore, sp.EffortNeeded))
		if len(sp.Results) > 0 {
			sb.WriteString("| # | Criterion | Status |\n")
			sb.WriteString("|---|-----------|--------|\n")
			for i, c := range sp.Results {
				status := "FAIL"
				if c.Met {
					status = "PASS"
				}
				sb.WriteString(fmt.Sprintf("| %d | %s | %s |\n", i+1, escapeCell(c.Description), status))
			}
			sb.WriteString("\n")
		}
		if sp.ClaimURL != nil {
			sb.WriteString(fmt.Sprintf("Claim: %s\n\n", *sp.ClaimURL))
		}
	}

	// Problems (always shown if present)
	if len(r.Failures) > 0 {
		sb.WriteString("## Failed Projects\n\n")
		for _, f := range r.Failures {
			sb.WriteString(fmt.Sprintf("- %s: %v\n", f.ProjectID, f.Err))
		}
		sb.WriteString("\n")
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("## Partial Data\n\n")
		for _, w := range r.Warnings {
			sb.WriteString(fmt.Sprintf("- %s %s: %s\n", w.Chain, w.Kind, w.Message))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeProjectTable(sb *strings.Builder, projects []*domain.ScoredProject) {
	sb.WriteString("| Project | Status | Completion | Opportunity | Effort | Value (USD) | Snapshot |\n")
	sb.WriteString("|---------|--------|------------|-------------|--------|-------------|----------|\n")
	for _, sp := range projects {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d%% | %d | %d | %s | %s |\n",
			escapeCell(sp.Name), sp.Status, sp.CurrentScore, sp.OpportunityScore, sp.EffortNeeded,
			formatValue(sp.EstimatedValueUSD), formatSnapshot(sp)))
	}
	sb.WriteString("\n")
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f", *v)
}

func formatSnapshot(sp *domain.ScoredProject) string {
	if sp.SnapshotDate == nil {
		return "-"
	}
	date := sp.SnapshotDate.UTC().Format("2006-01-02")
	if sp.DaysUntilSnapshot != nil {
		return fmt.Sprintf("%s (in %dd)", date, *sp.DaysUntilSnapshot)
	}
	return date
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
