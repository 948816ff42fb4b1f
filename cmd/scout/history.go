package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <address>",
		Short: "Print recorded score snapshots of a wallet",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
	cmd.Flags().StringP("format", "f", "table", "output format: table or json")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
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

	snapshots, err := a.engine.History(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format, _ := cmd.Flags().GetString("format"); format == formatJSON {
		return writeJSON(out, snapshots)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPUTED AT\tPROJECT\tCURRENT\tOPPORTUNITY\tEFFORT\tRUN")
	for _, s := range snapshots {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			time.UnixMilli(s.ComputedAt).UTC().Format(time.RFC3339),
			s.ProjectID, s.CurrentScore, s.OpportunityScore, s.EffortNeeded, s.RunID)
	}
	return tw.Flush()
}
