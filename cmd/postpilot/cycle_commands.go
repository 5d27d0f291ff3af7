package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/viadorer/orchestrator-sub001/internal/api"
	"github.com/viadorer/orchestrator-sub001/internal/orchestrator"
)

func newCycleCommand(ctx *commandContext) *cobra.Command {
	cycleCmd := &cobra.Command{
		Use:   "cycle",
		Short: "Orchestration cycles",
	}
	cycleCmd.AddCommand(newCycleRunCommand(ctx))
	return cycleCmd
}

func newCycleRunCommand(ctx *commandContext) *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one orchestration cycle now",
		Long: "Runs all eight cycle stages once. With --project, scheduling and task execution are\n" +
			"limited to that project. Fails if another cycle holds the cycle lock.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			result, err := rt.Service.RunCycle(cmd.Context(), projectID)
			if errors.Is(err, api.ErrCycleInProgress) {
				return fmt.Errorf("%w; try again when the running cycle finishes", err)
			}
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, result)
			}
			printRunResult(cmd, result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Limit scheduling and execution to one project")
	return cmd
}

func printRunResult(cmd *cobra.Command, result orchestrator.RunResult) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Cycle "+result.CycleID, colorize) {
		fmt.Fprintln(out, line)
	}
	rows := make([][]string, 0, len(result.Stages))
	for _, s := range result.Stages {
		detail := s.Reason
		if s.Error != "" {
			detail = s.Error
		}
		rows = append(rows, []string{
			humanize(s.Name),
			paint(statusStyles[stageColorKind(s.Status)].color, s.Status, colorize),
			s.Duration.Round(time.Millisecond).String(),
			detail,
		})
	}
	fmt.Fprintln(out, renderTable([]string{"Stage", "Status", "Duration", "Detail"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))

	counts := [][]string{
		{"Tasks executed", strconv.Itoa(result.Executed)},
		{"Tasks succeeded", strconv.Itoa(result.Succeeded)},
		{"Tasks failed", strconv.Itoa(result.Failed)},
		{"Tasks created", strconv.Itoa(result.Created)},
		{"Published", strconv.Itoa(result.Published)},
		{"Publish failures", strconv.Itoa(result.PublishFailed)},
		{"Feed items added", strconv.Itoa(result.FeedItemsAdded)},
		{"Media processed", strconv.Itoa(result.MediaProcessed)},
		{"Topics scheduled", strconv.Itoa(result.TopicsScheduled)},
		{"Engagement updated", strconv.Itoa(result.EngagementUpdated)},
		{"Embedded", strconv.Itoa(result.Embedded)},
		{"Projects optimized", strconv.Itoa(result.ProjectsOptimized)},
	}
	fmt.Fprintln(out, renderTable([]string{"Metric", "Count"}, counts, []columnAlignment{alignLeft, alignRight}))

	summary := renderStatusLine("Result", statusOK, "completed in "+result.Duration.Round(time.Millisecond).String(), colorize)
	if result.Degraded() {
		summary = renderStatusLine("Result", statusWarn, fmt.Sprintf("degraded (%d failed stages)", len(result.FailedStages())), colorize)
	}
	fmt.Fprintln(out, summary)
}

func stageColorKind(status string) statusKind {
	switch status {
	case orchestrator.StageOK:
		return statusOK
	case orchestrator.StageFailed:
		return statusError
	default:
		return statusInfo
	}
}
