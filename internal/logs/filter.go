package logs

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/viadorer/orchestrator-sub001/internal/logging"
)

// Filter selects log lines. Zero fields match everything.
type Filter struct {
	MinLevel  slog.Leveler
	ProjectID string
	TaskID    string
	Component string
}

// Empty reports whether the filter accepts every line.
func (f Filter) Empty() bool {
	return f.MinLevel == nil && f.ProjectID == "" && f.TaskID == "" && f.Component == ""
}

// Match reports whether line passes the filter. JSON lines are matched on
// their fields; console lines fall back to token matching.
func (f Filter) Match(line string) bool {
	if f.Empty() {
		return true
	}
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "{") {
		var record map[string]any
		if err := json.Unmarshal([]byte(trimmed), &record); err == nil {
			return f.matchRecord(record)
		}
	}
	return f.matchText(trimmed)
}

func (f Filter) matchRecord(record map[string]any) bool {
	if f.MinLevel != nil {
		raw, _ := record[slog.LevelKey].(string)
		if level, ok := parseLevel(raw); ok && level < f.MinLevel.Level() {
			return false
		}
	}
	checks := map[string]string{
		logging.FieldProjectID: f.ProjectID,
		logging.FieldTaskID:    f.TaskID,
		logging.FieldComponent: f.Component,
	}
	for key, want := range checks {
		if want == "" {
			continue
		}
		got, _ := record[key].(string)
		if !strings.EqualFold(got, want) {
			return false
		}
	}
	return true
}

func (f Filter) matchText(line string) bool {
	if f.MinLevel != nil {
		if level, ok := textLevel(line); ok && level < f.MinLevel.Level() {
			return false
		}
	}
	for _, want := range []string{f.ProjectID, f.TaskID, f.Component} {
		if want != "" && !strings.Contains(line, want) {
			return false
		}
	}
	return true
}

// ParseLevel converts a level name such as "warn" into a slog level.
func ParseLevel(value string) (slog.Level, bool) {
	return parseLevel(value)
}

func parseLevel(value string) (slog.Level, bool) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return 0, false
	}
	return level, true
}

// textLevel finds the first level token in a console line.
func textLevel(line string) (slog.Level, bool) {
	for _, token := range strings.Fields(line) {
		switch strings.Trim(strings.ToUpper(token), "[]:") {
		case "DEBUG":
			return slog.LevelDebug, true
		case "INFO":
			return slog.LevelInfo, true
		case "WARN", "WARNING":
			return slog.LevelWarn, true
		case "ERROR":
			return slog.LevelError, true
		}
	}
	return 0, false
}
