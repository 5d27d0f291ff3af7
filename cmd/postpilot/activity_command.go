package main

import (
	"github.com/spf13/cobra"
)

func newActivityCommand(ctx *commandContext) *cobra.Command {
	var (
		projectID string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the orchestrator activity log, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := rt.Activity.List(cmd.Context(), projectID, limit)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					e.ProjectID,
					humanize(e.Action),
					clipCell(string(e.Details)),
				})
			}
			printTable(cmd, "No activity recorded", []string{"When", "Project", "Action", "Details"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft})
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Filter by project id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 30, "Maximum number of entries")
	return cmd
}
