package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"airdrop-scout/internal/domain"
	"airdrop-scout/internal/pipeline"
	"airdrop-scout/internal/reporting"
)

// Output formats of the score command.
const (
	formatMarkdown = "markdown"
	formatJSON     = "json"
	formatCSV      = "csv"
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <address>",
		Short: "Evaluate a wallet against the project catalog",
		Args:  cobra.ExactArgs(1),
		RunE:  runScore,
	}
	cmd.Flags().String("project", "", "score only this project id")
	cmd.Flags().StringSlice("status", nil, "filter by project status (CONFIRMED, RUMORED, ANNOUNCED)")
	cmd.Flags().UintSlice("chain", nil, "filter by chain id")
	cmd.Flags().StringSlice("id", nil, "filter by project id")
	cmd.Flags().StringP("format", "f", formatMarkdown, "output format: markdown, json or csv")
	cmd.Flags().String("out", "", "write ELIGIBILITY_REPORT.md and scores.csv under this directory instead of stdout")
	cmd.Flags().Bool("refresh", false, "ignore cached results")
	cmd.Flags().String("projects", "", "JSON file of projects to seed before scoring")
	return cmd
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	flags := cmd.Flags()
	if path, _ := flags.GetString("projects"); path != "" {
		if _, err := seedProjects(ctx, a.projects, path, logger); err != nil {
			return err
		}
	}

	format, _ := flags.GetString("format")
	out := cmd.OutOrStdout()

	if projectID, _ := flags.GetString("project"); projectID != "" {
		sp, err := a.engine.Score(ctx, args[0], projectID)
		if err != nil {
			return err
		}
		return writeScored(out, format, []*domain.ScoredProject{sp})
	}

	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}
	refresh, _ := flags.GetBool("refresh")
	req := pipeline.Request{Address: args[0], Filter: filter, Refresh: refresh}

	if dir, _ := flags.GetString("out"); dir != "" {
		paths, err := reporting.NewGenerator(a.engine, dir).WriteFiles(ctx, req)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(out, p)
		}
		return nil
	}

	res, err := a.engine.Evaluate(ctx, req)
	if err != nil {
		return err
	}

	switch format {
	case formatMarkdown:
		_, err = io.WriteString(out, reporting.RenderMarkdown(res))
	case formatJSON:
		err = writeJSON(out, res)
	case formatCSV:
		_, err = io.WriteString(out, reporting.RenderCSV(res.Scored))
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	return err
}

func writeScored(w io.Writer, format string, scored []*domain.ScoredProject) error {
	switch format {
	case formatCSV:
		_, err := io.WriteString(w, reporting.RenderCSV(scored))
		return err
	case formatJSON, formatMarkdown:
		return writeJSON(w, scored[0])
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func filterFromFlags(cmd *cobra.Command) (domain.ProjectFilter, error) {
	var filter domain.ProjectFilter

	statuses, _ := cmd.Flags().GetStringSlice("status")
	for _, s := range statuses {
		status := domain.ProjectStatus(strings.ToUpper(strings.TrimSpace(s)))
		if !status.IsValid() {
			return filter, fmt.Errorf("unknown project status %q", s)
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	chains, _ := cmd.Flags().GetUintSlice("chain")
	for _, c := range chains {
		filter.Chains = append(filter.Chains, domain.ChainID(c))
	}

	filter.ProjectIDs, _ = cmd.Flags().GetStringSlice("id")
	return filter, nil
}
