package api

import (
	"encoding/json"
	"time"

	"github.com/viadorer/orchestrator-sub001/internal/database"
	"github.com/viadorer/orchestrator-sub001/internal/queue"
	"github.com/viadorer/orchestrator-sub001/internal/stage"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Task describes a task in a transport-friendly format.
type Task struct {
	ID           string          `json:"id"`
	ProjectID    string          `json:"project_id"`
	Type         string          `json:"task_type"`
	Status       string          `json:"status"`
	Priority     int             `json:"priority"`
	ScheduledFor string          `json:"scheduled_for"`
	Recurring    string          `json:"recurring,omitempty"`
	Params       json.RawMessage `json:"params,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    string          `json:"created_at,omitempty"`
	StartedAt    string          `json:"started_at,omitempty"`
	FinishedAt   string          `json:"finished_at,omitempty"`
}

// TaskListResponse wraps a collection of tasks.
type TaskListResponse struct {
	Tasks []Task `json:"tasks"`
}

// TaskResponse wraps a single task.
type TaskResponse struct {
	Task Task `json:"task"`
}

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	ProjectID    string          `json:"project_id"`
	Type         string          `json:"task_type"`
	Params       json.RawMessage `json:"params,omitempty"`
	Priority     int             `json:"priority,omitempty"`
	ScheduledFor *time.Time      `json:"scheduled_for,omitempty"`
	Recurring    string          `json:"recurring,omitempty"`
}

// TaskQuery filters task listings.
type TaskQuery struct {
	ProjectID string
	Statuses  []string
	Types     []string
	Limit     int
}

// CycleRequest is the body of POST /api/cycles.
type CycleRequest struct {
	ProjectID string `json:"project_id,omitempty"`
}

// StageHealth mirrors readiness reporting for task handlers.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// CycleSummary is the last cycle as reported on the status endpoint.
type CycleSummary struct {
	CycleID      string   `json:"cycle_id"`
	ProjectID    string   `json:"project_id,omitempty"`
	FinishedAt   string   `json:"finished_at"`
	Duration     string   `json:"duration"`
	Executed     int      `json:"executed"`
	Failed       int      `json:"failed"`
	Created      int      `json:"created"`
	Published    int      `json:"published"`
	FailedStages []string `json:"failed_stages,omitempty"`
}

// Status aggregates runtime information for API consumers.
type Status struct {
	Running       bool                `json:"running"`
	PID           int                 `json:"pid"`
	DatabasePath  string              `json:"database_path"`
	LockFilePath  string              `json:"lock_file_path"`
	Timezone      string              `json:"timezone"`
	CycleSchedule string              `json:"cycle_schedule"`
	NextCycle     string              `json:"next_cycle,omitempty"`
	Tasks         queue.HealthSummary `json:"tasks"`
	Handlers      []StageHealth       `json:"handlers"`
	LastCycle     *CycleSummary       `json:"last_cycle,omitempty"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	OK       bool                `json:"ok"`
	Database database.Health     `json:"database"`
	Tasks    queue.HealthSummary `json:"tasks"`
	Handlers []StageHealth       `json:"handlers"`
}

// FromTask converts a task to its API representation.
func FromTask(task *queue.Task) Task {
	if task == nil {
		return Task{}
	}
	dto := Task{
		ID:           task.ID,
		ProjectID:    task.ProjectID,
		Type:         string(task.Type),
		Status:       string(task.Status),
		Priority:     task.Priority,
		ScheduledFor: formatTime(task.ScheduledFor),
		Recurring:    task.Recurring,
		Error:        task.ErrorMessage,
		CreatedAt:    formatTime(task.CreatedAt),
		StartedAt:    formatTime(task.StartedAt),
		FinishedAt:   formatTime(task.FinishedAt),
	}
	if len(task.Params) > 0 {
		dto.Params = task.Params
	}
	if len(task.Result) > 0 {
		dto.Result = task.Result
	}
	return dto
}

// FromTasks converts a slice of tasks into API DTOs.
func FromTasks(tasks []*queue.Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, FromTask(task))
	}
	return out
}

// StageHealthSlice returns handler health ordered by task type.
func StageHealthSlice(health map[queue.TaskType]stage.Health) []StageHealth {
	out := make([]StageHealth, 0, len(health))
	for _, taskType := range queue.KnownTaskTypes() {
		h, ok := health[taskType]
		if !ok {
			continue
		}
		out = append(out, StageHealth{Name: string(taskType), Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
