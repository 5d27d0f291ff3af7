package queue

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process TaskStore with the same ordering and
// transition rules as Store.
type MemoryStore struct {
	mu    sync.Mutex
	tasks map[string]*Task
	seq   int64
	now   func() time.Time
}

var _ TaskStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{tasks: make(map[string]*Task), now: o.now}
}

func (m *MemoryStore) CreateTask(_ context.Context, projectID string, taskType TaskType, params json.RawMessage, opts CreateOptions) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	p, err := prepareCreate(projectID, taskType, params, opts, now)
	if err != nil {
		return nil, err
	}
	m.seq++
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
		seq:          m.seq,
	}
	m.tasks[task.ID] = task
	return task.clone(), nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[id].clone(), nil
}

func (m *MemoryStore) ListDue(_ context.Context, projectID string, now time.Time) ([]*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*Task
	for _, task := range m.tasks {
		if projectID != "" && task.ProjectID != projectID {
			continue
		}
		if task.IsDue(now) {
			due = append(due, task.clone())
		}
	}
	sort.Slice(due, func(i, j int) bool { return dueLess(due[i], due[j]) })
	return due, nil
}

// dueLess orders by priority desc, scheduled_for asc, then creation order.
func dueLess(a, b *Task) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.ScheduledFor.Equal(b.ScheduledFor) {
		return a.ScheduledFor.Before(b.ScheduledFor)
	}
	return a.seq < b.seq
}

func (m *MemoryStore) ListTasks(_ context.Context, filter Filter) ([]*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Task
	for _, task := range m.tasks {
		if filter.ProjectID != "" && task.ProjectID != filter.ProjectID {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, task.Status) {
			continue
		}
		if len(filter.Types) > 0 && !slices.Contains(filter.Types, task.Type) {
			continue
		}
		if !filter.ScheduledFrom.IsZero() && task.ScheduledFor.Before(filter.ScheduledFrom) {
			continue
		}
		if !filter.ScheduledTo.IsZero() && !task.ScheduledFor.Before(filter.ScheduledTo) {
			continue
		}
		out = append(out, task.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].seq > out[j].seq
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryStore) MarkRunning(_ context.Context, id string) error {
	return m.transition(id, StatusPending, StatusRunning, func(t *Task, now time.Time) {
		t.StartedAt = now
	})
}

func (m *MemoryStore) MarkCompleted(_ context.Context, id string, result json.RawMessage) error {
	return m.transition(id, StatusRunning, StatusCompleted, func(t *Task, now time.Time) {
		t.Result = append(json.RawMessage(nil), result...)
		t.ErrorMessage = ""
		t.FinishedAt = now
	})
}

func (m *MemoryStore) MarkFailed(_ context.Context, id string, message string) error {
	return m.transition(id, StatusRunning, StatusFailed, func(t *Task, now time.Time) {
		t.ErrorMessage = message
		t.FinishedAt = now
	})
}

func (m *MemoryStore) Cancel(_ context.Context, id string) error {
	return m.transition(id, StatusPending, StatusCancelled, func(t *Task, now time.Time) {
		t.FinishedAt = now
	})
}

func (m *MemoryStore) transition(id string, from, to Status, apply func(*Task, time.Time)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return &TransitionError{TaskID: id, Expected: from, Target: to}
	}
	if task.Status != from {
		return &TransitionError{TaskID: id, Expected: from, Target: to, Actual: task.Status}
	}
	task.Status = to
	apply(task, m.now().UTC())
	return nil
}

func (m *MemoryStore) CountForDay(_ context.Context, projectID string, types []TaskType, start, end time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, task := range m.tasks {
		if task.ProjectID != projectID {
			continue
		}
		switch task.Status {
		case StatusPending, StatusRunning, StatusCompleted:
		default:
			continue
		}
		if len(types) > 0 && !slices.Contains(types, task.Type) {
			continue
		}
		if task.ScheduledFor.Before(start) || !task.ScheduledFor.Before(end) {
			continue
		}
		count++
	}
	return count, nil
}

func (m *MemoryStore) Health(_ context.Context) (HealthSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var health HealthSummary
	now := m.now()
	for _, task := range m.tasks {
		health.add(task.Status, 1)
		if task.IsDue(now) {
			health.Due++
			if health.OldestDue.IsZero() || task.ScheduledFor.Before(health.OldestDue) {
				health.OldestDue = task.ScheduledFor
			}
		}
	}
	return health, nil
}
