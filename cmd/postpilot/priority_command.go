package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viadorer/orchestrator-sub001/internal/orchestrator"
)

func newPriorityCommand(ctx *commandContext) *cobra.Command {
	priorityCmd := &cobra.Command{
		Use:   "priority",
		Short: "Human priority requests",
	}
	priorityCmd.AddCommand(newPriorityAddCommand(ctx))
	return priorityCmd
}

func newPriorityAddCommand(ctx *commandContext) *cobra.Command {
	var req orchestrator.PriorityRequest
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Request a post that bypasses quota and weekend pause",
		Long: "Creates a priority-10 generate_content task due immediately. The next cycle\n" +
			"executes it ahead of scheduled work.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			task, err := rt.Service.CreatePriorityTask(cmd.Context(), req)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, task)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued priority task %s for project %s\n", task.ID, task.ProjectID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.ProjectID, "project", "p", "", "Project id")
	cmd.Flags().StringVar(&req.Topic, "topic", "", "What the post should be about")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Extra guidance for the generator")
	cmd.Flags().StringVar(&req.Platform, "platform", "", "Target platform (defaults to the project's first platform)")
	cmd.Flags().StringVar(&req.ContentType, "content-type", "", "Content type (default \"post\")")
	return cmd
}
