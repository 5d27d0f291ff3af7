package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/viadorer/orchestrator-sub001/internal/config"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/services"
)

func tempLogPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name+".log")
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if !strings.Contains(content, "hello from config") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := tempLogPath(t, "console-info")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	if content := readLog(t, logPath); strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := tempLogPath(t, "console-debug")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	if content := readLog(t, logPath); !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerPrintsComponentAndLeadingFields(t *testing.T) {
	logPath := tempLogPath(t, "console-fields")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "executor")
	logger.Info("task finished",
		logging.String("result", "ok"),
		logging.Task("task-1"),
		logging.String(logging.FieldEventType, "task_completed"),
	)

	content := readLog(t, logPath)
	if !strings.Contains(content, "INFO executor: task finished") {
		t.Fatalf("expected component prefix, got %q", content)
	}
	eventIdx := strings.Index(content, "event_type=task_completed")
	taskIdx := strings.Index(content, "task_id=task-1")
	resultIdx := strings.Index(content, "result=ok")
	if eventIdx < 0 || taskIdx < 0 || resultIdx < 0 {
		t.Fatalf("missing fields in %q", content)
	}
	if eventIdx > taskIdx || taskIdx > resultIdx {
		t.Fatalf("expected leading fields before the rest, got %q", content)
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	logPath := tempLogPath(t, "json-info")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithTaskID(context.Background(), "task-9")
	ctx = services.WithProjectID(ctx, "proj-2")
	ctx = services.WithStage(ctx, "schedule_execute")
	ctx = services.WithRequestID(ctx, "cycle-1")
	logging.WithContext(ctx, logger).Info("context message")

	var payload map[string]any
	line := strings.TrimSpace(readLog(t, logPath))
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, line)
	}
	want := map[string]string{
		logging.FieldTaskID:        "task-9",
		logging.FieldProjectID:     "proj-2",
		logging.FieldStage:         "schedule_execute",
		logging.FieldCorrelationID: "cycle-1",
		"level":                    "info",
	}
	for key, value := range want {
		if payload[key] != value {
			t.Fatalf("expected %s=%q, got %v", key, value, payload[key])
		}
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key in %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := tempLogPath(t, "json-warn")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "feed refresh degraded", "feed_refresh_failed")

	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	for _, key := range []string{logging.FieldEventType, logging.FieldErrorHint, logging.FieldImpact} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("expected %s in %v", key, payload)
		}
	}
	if payload[logging.FieldEventType] != "feed_refresh_failed" {
		t.Fatalf("unexpected event type %v", payload[logging.FieldEventType])
	}
}
