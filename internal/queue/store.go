package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/viadorer/orchestrator-sub001/internal/database"
)

// Store persists tasks in the shared SQLite database.
type Store struct {
	db  *database.DB
	now func() time.Time
}

// Option configures a Store or MemoryStore.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for defaults and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

var _ TaskStore = (*Store)(nil)

// NewStore returns a task store over db.
func NewStore(db *database.DB, opts ...Option) *Store {
	o := buildOptions(opts)
	return &Store{db: db, now: o.now}
}

// CreateTask inserts a pending task.
func (s *Store) CreateTask(ctx context.Context, projectID string, taskType TaskType, params json.RawMessage, opts CreateOptions) (*Task, error) {
	now := s.now().UTC()
	p, err := prepareCreate(projectID, taskType, params, opts, now)
	if err != nil {
		return nil, err
	}
	task := &Task{
		ID:           uuid.NewString(),
		ProjectID:    p.projectID,
		Type:         p.taskType,
		Params:       p.params,
		Priority:     p.priority,
		Status:       StatusPending,
		ScheduledFor: p.scheduledFor,
		Recurring:    p.recurring,
		CreatedAt:    now,
	}
	res, err := s.db.ExecWithRetry(ctx,
		`INSERT INTO tasks (id, project_id, task_type, params, priority, status, scheduled_for, recurring, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.ProjectID,
		string(task.Type),
		string(task.Params),
		task.Priority,
		string(task.Status),
		database.FormatTime(task.ScheduledFor),
		database.NullableString(task.Recurring),
		database.FormatTime(task.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	if seq, err := res.LastInsertId(); err == nil {
		task.seq = seq
	}
	return task, nil
}

// GetByID fetches a task. It returns nil, nil when the task does not exist.
func (s *Store) GetByID(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return task, nil
}

// ListDue returns pending tasks scheduled at or before now, optionally scoped
// to one project, in execution order.
func (s *Store) ListDue(ctx context.Context, projectID string, now time.Time) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status = ? AND scheduled_for <= ?`
	args := []any{string(StatusPending), database.FormatTime(now)}
	if projectID != "" {
		query += ` AND project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY priority DESC, scheduled_for ASC, rowid ASC`
	return s.queryTasks(ctx, query, args...)
}

// ListTasks returns tasks matching filter, newest first.
func (s *Store) ListTasks(ctx context.Context, filter Filter) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1 = 1`
	var args []any
	if filter.ProjectID != "" {
		query += ` AND project_id = ?`
		args = append(args, filter.ProjectID)
	}
	if len(filter.Statuses) > 0 {
		query += ` AND status IN (` + database.Placeholders(len(filter.Statuses)) + `)`
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	if len(filter.Types) > 0 {
		query += ` AND task_type IN (` + database.Placeholders(len(filter.Types)) + `)`
		for _, t := range filter.Types {
			args = append(args, string(t))
		}
	}
	if !filter.ScheduledFrom.IsZero() {
		query += ` AND scheduled_for >= ?`
		args = append(args, database.FormatTime(filter.ScheduledFrom))
	}
	if !filter.ScheduledTo.IsZero() {
		query += ` AND scheduled_for < ?`
		args = append(args, database.FormatTime(filter.ScheduledTo))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	return s.queryTasks(ctx, query, args...)
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()
	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// CountForDay counts pending, running and completed tasks of the given types
// scheduled within [start, end). An empty types slice counts every type.
func (s *Store) CountForDay(ctx context.Context, projectID string, types []TaskType, start, end time.Time) (int, error) {
	query := `SELECT COUNT(1) FROM tasks WHERE project_id = ? AND status IN (?, ?, ?) AND scheduled_for >= ? AND scheduled_for < ?`
	args := []any{
		projectID,
		string(StatusPending), string(StatusRunning), string(StatusCompleted),
		database.FormatTime(start), database.FormatTime(end),
	}
	if len(types) > 0 {
		query += ` AND task_type IN (` + database.Placeholders(len(types)) + `)`
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tasks for day: %w", err)
	}
	return count, nil
}

// Health aggregates task counts per status along with due-task backlog.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM tasks GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()
	var health HealthSummary
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, err
		}
		health.add(Status(status), count)
	}
	if err := rows.Err(); err != nil {
		return HealthSummary{}, err
	}

	var oldest *string
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), MIN(scheduled_for) FROM tasks WHERE status = ? AND scheduled_for <= ?`,
		string(StatusPending), database.FormatTime(s.now()),
	).Scan(&health.Due, &oldest); err != nil {
		return HealthSummary{}, fmt.Errorf("due stats: %w", err)
	}
	if oldest != nil {
		if t, err := database.ParseTime(*oldest); err == nil {
			health.OldestDue = t
		}
	}
	return health, nil
}

func (h *HealthSummary) add(status Status, count int) {
	h.Total += count
	switch status {
	case StatusPending:
		h.Pending += count
	case StatusRunning:
		h.Running += count
	case StatusCompleted:
		h.Completed += count
	case StatusFailed:
		h.Failed += count
	case StatusCancelled:
		h.Cancelled += count
	}
}
