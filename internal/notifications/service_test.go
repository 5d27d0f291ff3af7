package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/viadorer/orchestrator-sub001/internal/config"
	"github.com/viadorer/orchestrator-sub001/internal/notifications"
)

type captured struct {
	title    string
	body     string
	tags     string
	priority string
}

func newRecorder(t *testing.T) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), seen...)
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyCycleCompleted(context.Background(), notifications.CycleSummary{FailedStages: []string{"feed_refresh"}}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestCycleSummaryOnlyWhenDegradedByDefault(t *testing.T) {
	srv, seen := newRecorder(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.CycleSummary = false
	svc := notifications.NewService(&cfg)

	ctx := context.Background()
	if err := svc.NotifyCycleCompleted(ctx, notifications.CycleSummary{Executed: 2}); err != nil {
		t.Fatalf("healthy cycle: %v", err)
	}
	if got := len(seen()); got != 0 {
		t.Fatalf("expected healthy cycle to be silent, got %d requests", got)
	}

	err := svc.NotifyCycleCompleted(ctx, notifications.CycleSummary{
		Executed:     3,
		Failed:       1,
		FailedStages: []string{"feed_refresh", "embedding_backfill"},
		Duration:     2500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("degraded cycle: %v", err)
	}
	got := seen()
	if len(got) != 1 {
		t.Fatalf("expected one notification, got %d", len(got))
	}
	if got[0].title != "PostPilot - Cycle Degraded" {
		t.Fatalf("unexpected title %q", got[0].title)
	}
	if got[0].priority != "high" {
		t.Fatalf("expected high priority, got %q", got[0].priority)
	}
	if !strings.Contains(got[0].body, "feed_refresh, embedding_backfill") {
		t.Fatalf("expected failed stages in body, got %q", got[0].body)
	}
	if !strings.Contains(got[0].body, "in 3s") {
		t.Fatalf("expected rounded duration in body, got %q", got[0].body)
	}
}

func TestTaskFailureRespectsToggle(t *testing.T) {
	srv, seen := newRecorder(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.TaskFailures = false

	failure := notifications.TaskFailure{ProjectID: "p1", TaskID: "t1", TaskType: "generate_content", Priority: 10, Message: "llm http 500"}
	if err := notifications.NewService(&cfg).NotifyTaskFailed(context.Background(), failure); err != nil {
		t.Fatalf("disabled: %v", err)
	}
	if len(seen()) != 0 {
		t.Fatal("expected no request when task failure notifications are off")
	}

	cfg.Notifications.TaskFailures = true
	if err := notifications.NewService(&cfg).NotifyTaskFailed(context.Background(), failure); err != nil {
		t.Fatalf("enabled: %v", err)
	}
	got := seen()
	if len(got) != 1 {
		t.Fatalf("expected one request, got %d", len(got))
	}
	if got[0].tags != "postpilot,task,failed" {
		t.Fatalf("unexpected tags %q", got[0].tags)
	}
	if got[0].priority != "high" {
		t.Fatalf("priority tasks should notify with high priority, got %q", got[0].priority)
	}
}

func TestSendSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic locked", http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
