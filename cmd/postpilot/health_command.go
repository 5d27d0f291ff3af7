package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/viadorer/orchestrator-sub001/internal/api"
	"github.com/viadorer/orchestrator-sub001/internal/config"
	"github.com/viadorer/orchestrator-sub001/internal/preflight"
)

type healthReport struct {
	DaemonRunning bool               `json:"daemon_running"`
	Preflight     []preflight.Result `json:"preflight"`
	api.HealthResponse
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var deep bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check database, task store and handler readiness",
		Long: "Reports daemon, database, task and handler state plus local preflight checks.\n" +
			"With --deep, each configured remote service receives one probe request.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			health, err := rt.Service.Health(cmd.Context())
			if err != nil {
				return err
			}
			report := healthReport{
				DaemonRunning:  daemonRunning(rt.Config),
				Preflight:      preflight.RunAll(cmd.Context(), rt.Config, preflight.Options{Probe: deep}),
				HealthResponse: health,
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, report)
			}
			printHealth(cmd, report)
			if !health.OK {
				return fmt.Errorf("database is unhealthy")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&deep, "deep", false, "Probe the LLM, publisher and embeddings APIs")
	return cmd
}

// daemonRunning probes the daemon's instance lock without holding it.
func daemonRunning(cfg *config.Config) bool {
	lock := flock.New(cfg.DaemonLockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return false
	}
	if ok {
		_ = lock.Unlock()
		return false
	}
	return true
}

func printHealth(cmd *cobra.Command, report healthReport) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	daemonKind := statusWarn
	daemonMsg := "not running; cycles only run via `postpilot cycle run`"
	if report.DaemonRunning {
		daemonKind, daemonMsg = statusOK, "running"
	}
	fmt.Fprintln(out, renderStatusLine("Scheduler", daemonKind, daemonMsg, colorize))

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Database", colorize) {
		fmt.Fprintln(out, line)
	}
	db := report.Database
	fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Path:", db.DBPath)
	fmt.Fprintf(out, "%s%-*s %d\n", statusIndent, statusLabelWidth, "Schema version:", db.SchemaVersion)
	integrity := statusOK
	if !db.IntegrityCheck {
		integrity = statusError
	}
	fmt.Fprintln(out, renderStatusLine("Integrity", integrity, db.Error, colorize))
	tables := statusOK
	missing := ""
	if len(db.MissingTables) > 0 {
		tables = statusError
		missing = "missing " + strings.Join(db.MissingTables, ", ")
	}
	fmt.Fprintln(out, renderStatusLine("Tables", tables, missing, colorize))

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Tasks", colorize) {
		fmt.Fprintln(out, line)
	}
	t := report.Tasks
	rows := [][]string{{
		fmt.Sprintf("%d", t.Total),
		fmt.Sprintf("%d", t.Pending),
		fmt.Sprintf("%d", t.Running),
		fmt.Sprintf("%d", t.Completed),
		fmt.Sprintf("%d", t.Failed),
		fmt.Sprintf("%d", t.Cancelled),
		fmt.Sprintf("%d", t.Due),
	}}
	printTable(cmd, "", []string{"Total", "Pending", "Running", "Completed", "Failed", "Cancelled", "Due"}, rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight})
	if !t.OldestDue.IsZero() {
		fmt.Fprintf(out, "%s%-*s %s (%s ago)\n", statusIndent, statusLabelWidth, "Oldest due:",
			t.OldestDue.Local().Format("2006-01-02 15:04"), time.Since(t.OldestDue).Round(time.Minute))
	}
	if t.Running > 0 && !report.DaemonRunning {
		fmt.Fprintln(out, renderStatusLine("Running tasks", statusWarn, "no daemon holds them; check for an interrupted cycle", colorize))
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Handlers", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, h := range report.Handlers {
		kind := statusOK
		if !h.Ready {
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine(humanize(h.Name), kind, h.Detail, colorize))
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Preflight", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, r := range report.Preflight {
		kind := statusOK
		if !r.Passed {
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
}
