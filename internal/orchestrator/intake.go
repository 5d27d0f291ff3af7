package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/viadorer/orchestrator-sub001/internal/activity"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/metrics"
	"github.com/viadorer/orchestrator-sub001/internal/queue"
	"github.com/viadorer/orchestrator-sub001/internal/services"
)

// PriorityRequest is a human request for a specific post.
type PriorityRequest struct {
	ProjectID   string `json:"project_id"`
	Topic       string `json:"topic"`
	Notes       string `json:"notes,omitempty"`
	Platform    string `json:"platform,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// Intake creates human priority tasks. It never consults the scheduler, so
// priority tasks are exempt from the daily quota, weekend pause and posting
// frequency.
type Intake struct {
	tasks    queue.TaskStore
	projects ProjectSource
	activity *activity.BestEffort
	metrics  *metrics.Metrics
	now      func() time.Time
	logger   *slog.Logger
}

// NewIntake constructs the priority intake. log and m may be nil.
func NewIntake(tasks queue.TaskStore, projectSource ProjectSource, log *activity.BestEffort, m *metrics.Metrics, now func() time.Time, logger *slog.Logger) *Intake {
	if now == nil {
		now = time.Now
	}
	return &Intake{
		tasks:    tasks,
		projects: projectSource,
		activity: log,
		metrics:  m,
		now:      now,
		logger:   logging.NewComponentLogger(logger, "intake"),
	}
}

// CreateHumanPriorityTask creates a generate_content task at priority 10,
// due immediately. Missing platform and content type fall back to the
// project's primary platform and "post".
func (i *Intake) CreateHumanPriorityTask(ctx context.Context, req PriorityRequest) (*queue.Task, error) {
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	req.Topic = strings.TrimSpace(req.Topic)
	if req.ProjectID == "" {
		return nil, services.Wrap(services.ErrValidation, "intake", "validate", "project_id is required", nil)
	}
	if req.Topic == "" {
		return nil, services.Wrap(services.ErrValidation, "intake", "validate", "topic is required", nil)
	}
	project, err := i.projects.Get(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, services.Wrap(services.ErrNotFound, "intake", "load project", "project "+req.ProjectID+" does not exist", nil)
	}

	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if platform == "" {
		platform = project.Config.PrimaryPlatform()
	}
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if contentType == "" {
		contentType = "post"
	}
	params, err := queue.EncodeParams(queue.GenerateContentParams{
		Platform:        platform,
		ContentType:     contentType,
		Topic:           req.Topic,
		Notes:           strings.TrimSpace(req.Notes),
		ContentStrategy: project.Config.ContentStrategy,
		MediaStrategy:   project.Config.MediaStrategy,
		Source:          queue.SourcePriority,
	})
	if err != nil {
		return nil, err
	}
	task, err := i.tasks.CreateTask(ctx, project.ID, queue.TypeGenerateContent, params, queue.CreateOptions{
		Priority:     queue.MaxPriority,
		ScheduledFor: i.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create priority task: %w", err)
	}

	i.metrics.TasksCreated(queue.SourcePriority, 1)
	i.activity.Record(ctx, project.ID, activity.ActionPriorityTask, map[string]any{
		"task_id":  task.ID,
		"topic":    req.Topic,
		"platform": platform,
	})
	i.logger.Info("priority task created",
		logging.Project(project.ID),
		logging.Task(task.ID),
		logging.String("platform", platform),
	)
	return task, nil
}
