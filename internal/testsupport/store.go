package testsupport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/viadorer/orchestrator-sub001/internal/config"
	"github.com/viadorer/orchestrator-sub001/internal/database"
	"github.com/viadorer/orchestrator-sub001/internal/queue"
)

// MustOpenDatabase opens the configured database for tests and registers cleanup.
func MustOpenDatabase(t testing.TB, cfg *config.Config) *database.DB {
	t.Helper()

	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// MustOpenTaskStore opens a SQLite-backed task store using clock.
func MustOpenTaskStore(t testing.TB, cfg *config.Config, clock *Clock) *queue.Store {
	t.Helper()

	var opts []queue.Option
	if clock != nil {
		opts = append(opts, queue.WithClock(clock.Now))
	}
	return queue.NewStore(MustOpenDatabase(t, cfg), opts...)
}

// MustCreateTask inserts a task and fails the test on error.
func MustCreateTask(t testing.TB, store queue.TaskStore, projectID string, taskType queue.TaskType, params any, opts queue.CreateOptions) *queue.Task {
	t.Helper()

	raw, err := queue.EncodeParams(params)
	if err != nil {
		t.Fatalf("encode params: %v", err)
	}
	task, err := store.CreateTask(context.Background(), projectID, taskType, json.RawMessage(raw), opts)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return task
}

// MustGetTask loads a task that must exist.
func MustGetTask(t testing.TB, store queue.TaskStore, id string) *queue.Task {
	t.Helper()

	task, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if task == nil {
		t.Fatalf("task %s not found", id)
	}
	return task
}

// At builds a time in loc, failing on an unknown zone name.
func At(t testing.TB, zone string, year int, month time.Month, day, hour, minute int) time.Time {
	t.Helper()

	loc, err := time.LoadLocation(zone)
	if err != nil {
		t.Fatalf("load location %s: %v", zone, err)
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}
