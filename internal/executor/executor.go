// Package executor runs a single task to a terminal state.
//
// ExecuteTask loads the task and marks it running. It then dispatches by task
// type through a closed handler table and records the outcome. Every path
// after MarkRunning ends in MarkCompleted or MarkFailed, including handler
// panics, so no task is left running. Completed recurring tasks are renewed
// through the configured Renewer; a renewal failure is logged and does not
// alter the completed task.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/viadorer/orchestrator-sub001/internal/activity"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/metrics"
	"github.com/viadorer/orchestrator-sub001/internal/notifications"
	"github.com/viadorer/orchestrator-sub001/internal/queue"
	"github.com/viadorer/orchestrator-sub001/internal/services"
)

// Renewer enqueues the next occurrence of a completed recurring task.
type Renewer interface {
	Renew(ctx context.Context, task *queue.Task, completedAt time.Time) (*queue.Task, error)
}

// Outcome is the result of one ExecuteTask call.
type Outcome struct {
	TaskID    string          `json:"task_id"`
	ProjectID string          `json:"project_id"`
	Type      queue.TaskType  `json:"task_type"`
	Success   bool            `json:"success"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	RenewedID string          `json:"renewed_task_id,omitempty"`
	Duration  time.Duration   `json:"duration"`
}

// Executor dispatches tasks to their handlers.
type Executor struct {
	tasks    queue.TaskStore
	handlers Handlers
	renewer  Renewer
	notifier notifications.Service
	activity *activity.BestEffort
	metrics  *metrics.Metrics
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithRenewer sets the recurring-task renewer.
func WithRenewer(r Renewer) Option {
	return func(e *Executor) { e.renewer = r }
}

// WithNotifier sets the failure notifier.
func WithNotifier(n notifications.Service) Option {
	return func(e *Executor) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithActivity records task outcomes in the activity log.
func WithActivity(a *activity.BestEffort) Option {
	return func(e *Executor) { e.activity = a }
}

// WithMetrics observes task outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// New constructs an executor over tasks and the dispatch table.
func New(tasks queue.TaskStore, handlers Handlers, logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{
		tasks:    tasks,
		handlers: handlers,
		notifier: notifications.NewNoop(),
		now:      time.Now,
		logger:   logging.NewComponentLogger(logger, "executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handlers returns the dispatch table.
func (e *Executor) Handlers() Handlers {
	return e.handlers
}

// ExecuteTask runs the task with id to a terminal state. A missing or
// already terminal task yields ErrNotFound without any transition. A
// handler failure marks the task failed and is returned alongside the
// outcome.
func (e *Executor) ExecuteTask(ctx context.Context, id string) (Outcome, error) {
	task, err := e.tasks.GetByID(ctx, id)
	if err != nil {
		return Outcome{TaskID: id}, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return Outcome{TaskID: id}, services.Wrap(services.ErrNotFound, "executor", "load task", "task "+id+" does not exist", nil)
	}
	if task.Status.IsTerminal() {
		return Outcome{TaskID: id}, services.Wrap(services.ErrNotFound, "executor", "load task",
			fmt.Sprintf("task %s is already %s", id, task.Status), nil)
	}
	return e.Execute(ctx, task)
}

// Execute runs an already loaded, non-terminal task.
func (e *Executor) Execute(ctx context.Context, task *queue.Task) (Outcome, error) {
	outcome := Outcome{TaskID: task.ID, ProjectID: task.ProjectID, Type: task.Type}

	taskCtx := services.WithTaskID(services.WithProjectID(ctx, task.ProjectID), task.ID)
	logger := logging.WithContext(taskCtx, e.logger).With(
		logging.TaskType(string(task.Type)),
		logging.Int("priority", task.Priority),
	)

	if err := e.tasks.MarkRunning(taskCtx, task.ID); err != nil {
		return outcome, fmt.Errorf("mark running: %w", err)
	}
	started := e.now()
	logger.Info("task started", logging.String(logging.FieldEventType, "task_start"))

	value, runErr := e.dispatch(taskCtx, task)
	outcome.Duration = e.now().Sub(started)

	var result json.RawMessage
	if runErr == nil {
		encoded, err := encodeResult(value)
		if err != nil {
			runErr = services.Wrap(services.ErrInconsistent, string(task.Type), "encode result", "", err)
		} else {
			result = encoded
		}
	}
	if runErr != nil {
		return e.fail(taskCtx, logger, task, outcome, runErr)
	}

	if err := e.tasks.MarkCompleted(taskCtx, task.ID, result); err != nil {
		// A task must not stay running when its completion cannot be stored.
		return e.fail(taskCtx, logger, task, outcome,
			services.Wrap(services.ErrTransient, string(task.Type), "mark completed", "result could not be stored", err))
	}
	outcome.Success = true
	outcome.Result = result
	e.metrics.ObserveTask(string(task.Type), string(queue.StatusCompleted), outcome.Duration)
	e.activity.Record(taskCtx, task.ProjectID, activity.ActionTaskCompleted, map[string]any{
		"task_id":   task.ID,
		"task_type": task.Type,
	})
	logger.Info("task completed",
		logging.String(logging.FieldEventType, "task_complete"),
		logging.Duration("duration", outcome.Duration),
	)

	if e.renewer != nil && task.Recurring != "" {
		renewed, err := e.renewer.Renew(taskCtx, task, e.now())
		if err != nil {
			logging.WarnWithContext(logger, "recurring renewal failed", "task_renewal_failed",
				logging.String("recurring", task.Recurring),
				logging.String(logging.FieldImpact, "next occurrence was not enqueued"),
				logging.String(logging.FieldErrorHint, "recreate the recurring task manually"),
				logging.Error(err),
			)
		} else if renewed != nil {
			outcome.RenewedID = renewed.ID
		}
	}
	return outcome, nil
}

func (e *Executor) dispatch(ctx context.Context, task *queue.Task) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("task handler panicked",
				logging.Task(task.ID),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			err = services.Wrap(services.ErrInconsistent, string(task.Type), "execute", fmt.Sprintf("handler panic: %v", r), nil)
		}
	}()
	handler, err := e.handlers.Lookup(task.Type)
	if err != nil {
		return nil, err
	}
	return handler.Execute(ctx, task)
}

func (e *Executor) fail(ctx context.Context, logger *slog.Logger, task *queue.Task, outcome Outcome, runErr error) (Outcome, error) {
	message := services.FailureMessage(runErr)
	outcome.Error = message
	if err := e.tasks.MarkFailed(ctx, task.ID, message); err != nil {
		return outcome, errors.Join(runErr, fmt.Errorf("mark failed: %w", err))
	}
	e.metrics.ObserveTask(string(task.Type), string(queue.StatusFailed), outcome.Duration)
	e.activity.Record(ctx, task.ProjectID, activity.ActionTaskFailed, map[string]any{
		"task_id":   task.ID,
		"task_type": task.Type,
		"error":     message,
	})
	logging.ErrorWithContext(logger, "task failed", "task_failure",
		logging.String("error_kind", services.Kind(runErr)),
		logging.String(logging.FieldErrorHint, hintFor(runErr)),
		logging.Error(runErr),
	)
	if err := e.notifier.NotifyTaskFailed(ctx, notifications.TaskFailure{
		ProjectID: task.ProjectID,
		TaskID:    task.ID,
		TaskType:  string(task.Type),
		Priority:  task.Priority,
		Message:   message,
	}); err != nil {
		logger.Debug("task failure notification failed", logging.Error(err))
	}
	return outcome, runErr
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrUnsupportedTaskType):
		return "cancel the task; its type has no handler"
	case errors.Is(err, services.ErrConfiguration):
		return "check credentials and the project configuration"
	case errors.Is(err, services.ErrValidation):
		return "inspect the task params"
	case errors.Is(err, services.ErrTransient), errors.Is(err, services.ErrTimeout):
		return "create the task again once the upstream service recovers"
	default:
		return "inspect the task error and the collaborator logs"
	}
}

func encodeResult(value any) (json.RawMessage, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(v)
	}
}
