package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/viadorer/orchestrator-sub001/internal/api"
)

func newTaskCommand(ctx *commandContext) *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Inspect and manage tasks",
	}
	taskCmd.AddCommand(newTaskCreateCommand(ctx))
	taskCmd.AddCommand(newTaskListCommand(ctx))
	taskCmd.AddCommand(newTaskShowCommand(ctx))
	taskCmd.AddCommand(newTaskExecuteCommand(ctx))
	taskCmd.AddCommand(newTaskCancelCommand(ctx))
	return taskCmd
}

func newTaskCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		projectID string
		taskType  string
		params    string
		priority  int
		at        string
		recurring string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Enqueue a task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			req := api.CreateTaskRequest{
				ProjectID: projectID,
				Type:      taskType,
				Priority:  priority,
				Recurring: recurring,
			}
			if strings.TrimSpace(params) != "" {
				if !json.Valid([]byte(params)) {
					return fmt.Errorf("--params must be valid JSON")
				}
				req.Params = json.RawMessage(params)
			}
			if strings.TrimSpace(at) != "" {
				when, err := parseWhen(at, rt.Config.Location())
				if err != nil {
					return err
				}
				req.ScheduledFor = &when
			}
			task, err := rt.Service.CreateTask(cmd.Context(), req)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, task)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %s (%s, priority %d, due %s)\n",
				task.ID, task.Type, task.Priority, task.ScheduledFor)
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project id")
	cmd.Flags().StringVarP(&taskType, "type", "t", "", "Task type (generate_content, publish_check, rss_refresh, ...)")
	cmd.Flags().StringVar(&params, "params", "", "Task parameters as a JSON object")
	cmd.Flags().IntVar(&priority, "priority", 0, "Priority 1-9 (default 5)")
	cmd.Flags().StringVar(&at, "at", "", "Scheduled time (RFC3339, or \"YYYY-MM-DD HH:MM\" in the operating timezone)")
	cmd.Flags().StringVar(&recurring, "recurring", "", "Recurrence (hourly, daily, weekly, every:<duration> or a cron expression)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newTaskListCommand(ctx *commandContext) *cobra.Command {
	var (
		projectID string
		statuses  []string
		types     []string
		limit     int
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks, most urgent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			tasks, err := rt.Service.ListTasks(cmd.Context(), api.TaskQuery{
				ProjectID: projectID,
				Statuses:  statuses,
				Types:     types,
				Limit:     limit,
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, api.TaskListResponse{Tasks: tasks})
			}
			rows := make([][]string, 0, len(tasks))
			for _, t := range tasks {
				rows = append(rows, []string{
					t.ID,
					t.ProjectID,
					t.Type,
					t.Status,
					strconv.Itoa(t.Priority),
					t.ScheduledFor,
					t.Recurring,
				})
			}
			printTable(cmd, "No tasks found", []string{"ID", "Project", "Type", "Status", "Priority", "Scheduled", "Recurring"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft})
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Filter by project id")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "Filter by task type (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of tasks")
	return cmd
}

func newTaskShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			task, err := rt.Service.GetTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, task)
			}
			printTaskDetail(cmd, task)
			return nil
		},
	}
}

func newTaskExecuteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "execute <id>",
		Short: "Run one pending task now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			task, err := rt.Service.ExecuteTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, task)
			}
			printTaskDetail(cmd, task)
			return nil
		},
	}
}

func newTaskCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a pending task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			task, err := rt.Service.CancelTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, task)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled task %s\n", task.ID)
			return nil
		},
	}
}

func printTaskDetail(cmd *cobra.Command, task api.Task) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	kind := statusInfo
	switch task.Status {
	case "completed":
		kind = statusOK
	case "failed":
		kind = statusError
	case "cancelled":
		kind = statusWarn
	}
	for _, line := range renderSectionHeader("Task "+task.ID, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Status", kind, task.Error, colorize))
	fields := [][2]string{
		{"Project", task.ProjectID},
		{"Type", task.Type},
		{"Priority", strconv.Itoa(task.Priority)},
		{"Scheduled", task.ScheduledFor},
		{"Recurring", task.Recurring},
		{"Created", task.CreatedAt},
		{"Started", task.StartedAt},
		{"Finished", task.FinishedAt},
		{"Params", string(task.Params)},
		{"Result", string(task.Result)},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, f[0]+":", f[1])
	}
}

// parseWhen accepts RFC3339 or a wall-clock time in loc.
func parseWhen(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q (use RFC3339 or \"YYYY-MM-DD HH:MM\")", value)
}
