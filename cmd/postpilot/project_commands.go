package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viadorer/orchestrator-sub001/internal/projects"
	"github.com/viadorer/orchestrator-sub001/internal/services"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Manage marketing projects",
	}
	projectCmd.AddCommand(newProjectAddCommand(ctx))
	projectCmd.AddCommand(newProjectListCommand(ctx))
	projectCmd.AddCommand(newProjectShowCommand(ctx))
	projectCmd.AddCommand(newProjectSetConfigCommand(ctx))
	projectCmd.AddCommand(newProjectActivationCommand(ctx, "enable", true))
	projectCmd.AddCommand(newProjectActivationCommand(ctx, "disable", false))
	return projectCmd
}

func newProjectAddCommand(ctx *commandContext) *cobra.Command {
	var input projects.NewProject
	var configArg string
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Register a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			input.ID = args[0]
			if configArg != "" {
				raw, err := readJSONArg(configArg)
				if err != nil {
					return err
				}
				input.Config = raw
			}
			project, err := rt.Projects.Create(cmd.Context(), input)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, project)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added project %s (%s)\n", project.ID, project.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&input.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&input.Timezone, "timezone", "", "IANA timezone for posting times (defaults to the orchestrator timezone)")
	cmd.Flags().StringVar(&configArg, "config-json", "", "Orchestrator settings as JSON, or @file")
	return cmd
}

func newProjectListCommand(ctx *commandContext) *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List projects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			list, err := rt.Projects.List(cmd.Context(), activeOnly)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, list)
			}
			rows := make([][]string, 0, len(list))
			for _, p := range list {
				rows = append(rows, []string{
					p.ID,
					p.Name,
					yesNo(p.Active),
					yesNo(p.Config.Enabled),
					p.Config.PostingFrequency,
					strings.Join(p.Config.PostingTimes, ","),
					fmt.Sprintf("%d", p.Config.MaxPostsPerDay),
					strings.Join(p.Config.Platforms, ","),
				})
			}
			printTable(cmd, "No projects registered", []string{"ID", "Name", "Active", "Orchestrated", "Frequency", "Times", "Max/day", "Platforms"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
			return nil
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only show active projects")
	return cmd
}

func newProjectShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project and its orchestrator settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			project, err := loadProject(cmd, rt.Projects, args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, project)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Project "+project.ID, colorize) {
				fmt.Fprintln(out, line)
			}
			cfgKind := statusOK
			if project.ConfigError != "" {
				cfgKind = statusError
			} else if !project.Config.Enabled {
				cfgKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Orchestrator", cfgKind, project.ConfigError, colorize))
			c := project.Config
			for _, f := range [][2]string{
				{"Name", project.Name},
				{"Active", yesNo(project.Active)},
				{"Timezone", project.Timezone},
				{"Frequency", c.PostingFrequency},
				{"Posting times", strings.Join(c.PostingTimes, ", ")},
				{"Max posts per day", fmt.Sprintf("%d", c.MaxPostsPerDay)},
				{"Pause weekends", yesNo(c.PauseWeekends)},
				{"Auto publish", fmt.Sprintf("%s (threshold %.1f)", yesNo(c.AutoPublish), c.AutoPublishThreshold)},
				{"Content strategy", c.ContentStrategy},
				{"Media strategy", c.MediaStrategy},
				{"Platforms", strings.Join(c.Platforms, ", ")},
			} {
				if f[1] == "" {
					continue
				}
				fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, f[0]+":", f[1])
			}
			return nil
		},
	}
}

func newProjectSetConfigCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-config <id> <json|@file>",
		Short: "Replace a project's orchestrator settings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			raw, err := readJSONArg(args[1])
			if err != nil {
				return err
			}
			project, err := rt.Projects.UpdateConfig(cmd.Context(), args[0], raw)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, project)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated orchestrator settings for %s\n", project.ID)
			return nil
		},
	}
}

func newProjectActivationCommand(ctx *commandContext, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: humanize(use) + " a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := loadProject(cmd, rt.Projects, args[0]); err != nil {
				return err
			}
			if err := rt.Projects.SetActive(cmd.Context(), args[0], active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Project %s active: %s\n", args[0], yesNo(active))
			return nil
		},
	}
}

func loadProject(cmd *cobra.Command, store *projects.Store, id string) (*projects.Project, error) {
	project, err := store.Get(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("%w: project %s", services.ErrNotFound, id)
	}
	return project, nil
}

// readJSONArg returns inline JSON or the contents of an @file reference.
func readJSONArg(value string) (json.RawMessage, error) {
	data := []byte(strings.TrimSpace(value))
	if path, ok := strings.CutPrefix(string(data), "@"); ok {
		contents, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		data = contents
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: invalid JSON", services.ErrValidation)
	}
	return json.RawMessage(data), nil
}
