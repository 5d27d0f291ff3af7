package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/viadorer/orchestrator-sub001/internal/database"
	"github.com/viadorer/orchestrator-sub001/internal/executor"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/orchestrator"
	"github.com/viadorer/orchestrator-sub001/internal/queue"
	"github.com/viadorer/orchestrator-sub001/internal/services"
)

// ErrCycleInProgress reports that another cycle or manual execution holds
// the cycle lock.
var ErrCycleInProgress = errors.New("a cycle is already in progress")

const defaultListLimit = 100

// Dependencies are the collaborators a Service drives.
type Dependencies struct {
	DB            *database.DB
	Tasks         queue.TaskStore
	Executor      *executor.Executor
	Coordinator   *orchestrator.Coordinator
	Intake        *orchestrator.Intake
	CycleLockPath string
}

// Service exposes task and cycle operations returning API DTOs. It is safe
// for concurrent use.
type Service struct {
	deps   Dependencies
	logger *slog.Logger

	mu        sync.Mutex
	lastCycle *orchestrator.RunResult
}

// NewService constructs a Service.
func NewService(deps Dependencies, logger *slog.Logger) *Service {
	return &Service{deps: deps, logger: logging.NewComponentLogger(logger, "api")}
}

// ListTasks returns tasks matching query, most urgent first.
func (s *Service) ListTasks(ctx context.Context, query TaskQuery) ([]Task, error) {
	filter := queue.Filter{ProjectID: strings.TrimSpace(query.ProjectID), Limit: query.Limit}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	for _, raw := range query.Statuses {
		status, ok := queue.ParseStatus(raw)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "api", "list tasks", "unknown status "+raw, nil)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range query.Types {
		taskType, ok := queue.ParseTaskType(raw)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "api", "list tasks", "unknown task type "+raw, nil)
		}
		filter.Types = append(filter.Types, taskType)
	}
	tasks, err := s.deps.Tasks.ListTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	return FromTasks(tasks), nil
}

// GetTask returns a single task.
func (s *Service) GetTask(ctx context.Context, id string) (Task, error) {
	task, err := s.deps.Tasks.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return Task{}, err
	}
	if task == nil {
		return Task{}, services.Wrap(services.ErrNotFound, "api", "get task", "task "+id+" does not exist", nil)
	}
	return FromTask(task), nil
}

// CreateTask enqueues a manual task. Only known task types are accepted and
// the top priority stays reserved for the priority intake.
func (s *Service) CreateTask(ctx context.Context, req CreateTaskRequest) (Task, error) {
	taskType, ok := queue.ParseTaskType(req.Type)
	if !ok {
		return Task{}, services.Wrap(services.ErrValidation, "api", "create task", fmt.Sprintf("unknown task type %q", req.Type), nil)
	}
	if req.Priority >= queue.MaxPriority {
		return Task{}, services.Wrap(services.ErrValidation, "api", "create task",
			fmt.Sprintf("priority %d is reserved for priority requests", queue.MaxPriority), nil)
	}
	opts := queue.CreateOptions{Priority: req.Priority, Recurring: req.Recurring}
	if req.ScheduledFor != nil {
		opts.ScheduledFor = *req.ScheduledFor
	}
	task, err := s.deps.Tasks.CreateTask(ctx, req.ProjectID, taskType, req.Params, opts)
	if err != nil {
		return Task{}, err
	}
	s.logger.Info("manual task created",
		logging.Task(task.ID),
		logging.Project(task.ProjectID),
		logging.TaskType(string(task.Type)),
	)
	return FromTask(task), nil
}

// ExecuteTask runs one task immediately while holding the cycle lock.
func (s *Service) ExecuteTask(ctx context.Context, id string) (Task, error) {
	unlock, err := s.acquireCycleLock()
	if err != nil {
		return Task{}, err
	}
	defer unlock()

	_, runErr := s.deps.Executor.ExecuteTask(ctx, strings.TrimSpace(id))
	if runErr != nil && services.IsStaleRequest(runErr) {
		return Task{}, runErr
	}
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	// A failed task is a completed request; the failure is on the record.
	return task, nil
}

// CancelTask cancels a pending task.
func (s *Service) CancelTask(ctx context.Context, id string) (Task, error) {
	if err := s.deps.Tasks.Cancel(ctx, strings.TrimSpace(id)); err != nil {
		return Task{}, err
	}
	return s.GetTask(ctx, id)
}

// CreatePriorityTask submits a human priority request.
func (s *Service) CreatePriorityTask(ctx context.Context, req orchestrator.PriorityRequest) (Task, error) {
	task, err := s.deps.Intake.CreateHumanPriorityTask(ctx, req)
	if err != nil {
		return Task{}, err
	}
	return FromTask(task), nil
}

// RunCycle runs one orchestration cycle, optionally scoped to a project.
// ErrCycleInProgress is returned when another cycle holds the lock.
func (s *Service) RunCycle(ctx context.Context, projectID string) (orchestrator.RunResult, error) {
	unlock, err := s.acquireCycleLock()
	if err != nil {
		return orchestrator.RunResult{}, err
	}
	defer unlock()

	result, err := s.deps.Coordinator.RunCycle(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return result, err
	}
	s.mu.Lock()
	s.lastCycle = &result
	s.mu.Unlock()
	return result, nil
}

// LastCycle returns a summary of the most recent cycle run by this service.
func (s *Service) LastCycle() *CycleSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastCycle == nil {
		return nil
	}
	r := s.lastCycle
	return &CycleSummary{
		CycleID:      r.CycleID,
		ProjectID:    r.ProjectID,
		FinishedAt:   formatTime(r.FinishedAt),
		Duration:     r.Duration.Round(time.Millisecond).String(),
		Executed:     r.Executed,
		Failed:       r.Failed,
		Created:      r.Created,
		Published:    r.Published,
		FailedStages: r.FailedStages(),
	}
}

// Health reports database, task and handler diagnostics.
func (s *Service) Health(ctx context.Context) (HealthResponse, error) {
	resp := HealthResponse{OK: true}
	if s.deps.DB != nil {
		dbHealth, err := s.deps.DB.CheckHealth(ctx)
		resp.Database = dbHealth
		if err != nil || !dbHealth.IntegrityCheck || len(dbHealth.MissingTables) > 0 {
			resp.OK = false
		}
	}
	summary, err := s.deps.Tasks.Health(ctx)
	if err != nil {
		return resp, fmt.Errorf("task health: %w", err)
	}
	resp.Tasks = summary
	if s.deps.Executor != nil {
		resp.Handlers = StageHealthSlice(s.deps.Executor.Handlers().Health(ctx))
	}
	return resp, nil
}

func (s *Service) acquireCycleLock() (func(), error) {
	path := s.deps.CycleLockPath
	if path == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire cycle lock: %w", err)
	}
	if !ok {
		return nil, ErrCycleInProgress
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("failed to release cycle lock", logging.Error(err))
		}
	}, nil
}

// HTTPStatus maps a service error onto an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrCycleInProgress):
		return http.StatusConflict
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInconsistent):
		return http.StatusConflict
	case errors.Is(err, services.ErrUnsupportedTaskType):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, services.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
