package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// TaskType identifies the operation a task performs.
type TaskType string

const (
	TypeGenerateContent     TaskType = "generate_content"
	TypePublishCheck        TaskType = "publish_check"
	TypeRSSRefresh          TaskType = "rss_refresh"
	TypeMediaProcess        TaskType = "media_process"
	TypeTopicSuggestion     TaskType = "topic_suggestion"
	TypeEngagementPull      TaskType = "engagement_pull"
	TypePerformanceOptimize TaskType = "performance_optimize"
)

var knownTypes = []TaskType{
	TypeGenerateContent,
	TypePublishCheck,
	TypeRSSRefresh,
	TypeMediaProcess,
	TypeTopicSuggestion,
	TypeEngagementPull,
	TypePerformanceOptimize,
}

// KnownTaskTypes lists the task types the executor dispatches.
func KnownTaskTypes() []TaskType {
	out := make([]TaskType, len(knownTypes))
	copy(out, knownTypes)
	return out
}

// ParseTaskType normalizes a task type string. Hyphenated spellings are
// accepted. Unknown values are returned as-is with ok=false; the store keeps
// them so the executor can fail them explicitly.
func ParseTaskType(value string) (TaskType, bool) {
	normalized := TaskType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_"))
	for _, t := range knownTypes {
		if t == normalized {
			return t, true
		}
	}
	return normalized, false
}

// Known reports whether the type is part of the closed dispatch set.
func (t TaskType) Known() bool {
	_, ok := ParseTaskType(string(t))
	return ok
}

const (
	// DefaultPriority applies when a caller does not set one.
	DefaultPriority = 5
	// MaxPriority is reserved for human-submitted priority tasks.
	MaxPriority = 10
)

// Task is one persisted unit of orchestrated work.
type Task struct {
	ID           string          `json:"id"`
	ProjectID    string          `json:"project_id"`
	Type         TaskType        `json:"task_type"`
	Params       json.RawMessage `json:"params,omitempty"`
	Priority     int             `json:"priority"`
	Status       Status          `json:"status"`
	ScheduledFor time.Time       `json:"scheduled_for"`
	Recurring    string          `json:"recurring,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    time.Time       `json:"started_at,omitzero"`
	FinishedAt   time.Time       `json:"finished_at,omitzero"`

	// seq is the creation order used as the final ordering tie-breaker.
	seq int64
}

// IsDue reports whether the task is pending and scheduled at or before now.
func (t *Task) IsDue(now time.Time) bool {
	return t != nil && t.Status == StatusPending && !t.ScheduledFor.After(now)
}

func (t *Task) clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Params = append(json.RawMessage(nil), t.Params...)
	cp.Result = append(json.RawMessage(nil), t.Result...)
	return &cp
}

// CreateOptions carries optional creation fields. Zero values select the
// defaults: DefaultPriority, scheduled now, not recurring.
type CreateOptions struct {
	Priority     int
	ScheduledFor time.Time
	Recurring    string
}

// Filter narrows ListTasks results. Empty fields match everything.
type Filter struct {
	ProjectID     string
	Statuses      []Status
	Types         []TaskType
	ScheduledFrom time.Time
	ScheduledTo   time.Time
	Limit         int
}

// HealthSummary aggregates task counts for diagnostics.
type HealthSummary struct {
	Total     int       `json:"total"`
	Pending   int       `json:"pending"`
	Running   int       `json:"running"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	Cancelled int       `json:"cancelled"`
	Due       int       `json:"due"`
	OldestDue time.Time `json:"oldest_due,omitzero"`
}

// TaskStore is the persistence contract shared by the SQLite and in-memory
// stores. Scheduler, executor and coordinator depend on it rather than on a
// concrete store.
type TaskStore interface {
	CreateTask(ctx context.Context, projectID string, taskType TaskType, params json.RawMessage, opts CreateOptions) (*Task, error)
	GetByID(ctx context.Context, id string) (*Task, error)
	ListDue(ctx context.Context, projectID string, now time.Time) ([]*Task, error)
	ListTasks(ctx context.Context, filter Filter) ([]*Task, error)
	MarkRunning(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, result json.RawMessage) error
	MarkFailed(ctx context.Context, id string, message string) error
	Cancel(ctx context.Context, id string) error
	CountForDay(ctx context.Context, projectID string, types []TaskType, start, end time.Time) (int, error)
	Health(ctx context.Context) (HealthSummary, error)
}

// prepared holds validated creation input common to both stores.
type prepared struct {
	projectID    string
	taskType     TaskType
	params       json.RawMessage
	priority     int
	scheduledFor time.Time
	recurring    string
}

func prepareCreate(projectID string, taskType TaskType, params json.RawMessage, opts CreateOptions, now time.Time) (prepared, error) {
	p := prepared{
		projectID: strings.TrimSpace(projectID),
		taskType:  TaskType(strings.TrimSpace(string(taskType))),
		priority:  opts.Priority,
		recurring: strings.TrimSpace(opts.Recurring),
	}
	if p.projectID == "" {
		return prepared{}, fmt.Errorf("create task: %w", errProjectRequired)
	}
	if p.taskType == "" {
		return prepared{}, fmt.Errorf("create task: %w", errTypeRequired)
	}
	if normalized, ok := ParseTaskType(string(p.taskType)); ok {
		p.taskType = normalized
	}
	if p.priority == 0 {
		p.priority = DefaultPriority
	}
	if p.priority < 1 || p.priority > MaxPriority {
		return prepared{}, fmt.Errorf("create task: priority %d outside 1..%d: %w", p.priority, MaxPriority, errInvalidPriority)
	}
	if p.recurring != "" {
		if _, err := ParseRecurrence(p.recurring); err != nil {
			return prepared{}, fmt.Errorf("create task: %w", err)
		}
	}
	if len(params) == 0 {
		p.params = json.RawMessage("{}")
	} else {
		if !json.Valid(params) {
			return prepared{}, fmt.Errorf("create task: %w", errInvalidParams)
		}
		p.params = append(json.RawMessage(nil), params...)
	}
	p.scheduledFor = opts.ScheduledFor
	if p.scheduledFor.IsZero() {
		p.scheduledFor = now
	}
	p.scheduledFor = p.scheduledFor.UTC()
	return p, nil
}
