package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/viadorer/orchestrator-sub001/internal/config"
)

const userAgent = "PostPilot-Go/0.1.0"

// Service defines the notification surface used by the orchestrator.
type Service interface {
	NotifyCycleCompleted(ctx context.Context, summary CycleSummary) error
	NotifyTaskFailed(ctx context.Context, failure TaskFailure) error
	TestNotification(ctx context.Context) error
}

// CycleSummary is the subset of a run result worth pushing.
type CycleSummary struct {
	CycleID       string
	ProjectID     string
	Executed      int
	Failed        int
	Created       int
	Published     int
	PublishFailed int
	FailedStages  []string
	Duration      time.Duration
}

// Degraded reports whether any stage failed.
func (s CycleSummary) Degraded() bool {
	return len(s.FailedStages) > 0
}

// TaskFailure describes a task that reached the failed state.
type TaskFailure struct {
	ProjectID string
	TaskID    string
	TaskType  string
	Priority  int
	Message   string
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		cycleSummary: cfg.Notifications.CycleSummary,
		taskFailures: cfg.Notifications.TaskFailures,
	}
}

// NewNoop returns a service that drops every notification.
func NewNoop() Service {
	return noopService{}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	cycleSummary bool
	taskFailures bool
}

func (n *ntfyService) NotifyCycleCompleted(ctx context.Context, summary CycleSummary) error {
	if !summary.Degraded() && !n.cycleSummary {
		return nil
	}
	duration := summary.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	scope := "all projects"
	if summary.ProjectID != "" {
		scope = "project " + summary.ProjectID
	}
	message := fmt.Sprintf("Cycle for %s: %d tasks executed (%d failed), %d created, %d published (%d failed) in %s",
		scope, summary.Executed, summary.Failed, summary.Created, summary.Published, summary.PublishFailed, duration)
	data := payload{
		title:   "PostPilot - Cycle Complete",
		message: message,
		tags:    []string{"postpilot", "cycle", "completed"},
	}
	if summary.Degraded() {
		data.title = "PostPilot - Cycle Degraded"
		data.message = fmt.Sprintf("%s\nFailed stages: %s", message, strings.Join(summary.FailedStages, ", "))
		data.tags = []string{"postpilot", "cycle", "warning"}
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTaskFailed(ctx context.Context, failure TaskFailure) error {
	if !n.taskFailures {
		return nil
	}
	message := fmt.Sprintf("%s task %s for %s failed: %s",
		failure.TaskType, failure.TaskID, failure.ProjectID, strings.TrimSpace(failure.Message))
	data := payload{
		title:   "PostPilot - Task Failed",
		message: message,
		tags:    []string{"postpilot", "task", "failed"},
	}
	if failure.Priority >= 10 {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "PostPilot - Test",
		message:  "Notification system test",
		tags:     []string{"postpilot", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyCycleCompleted(context.Context, CycleSummary) error { return nil }
func (noopService) NotifyTaskFailed(context.Context, TaskFailure) error      { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
