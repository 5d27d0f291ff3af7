package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/viadorer/orchestrator-sub001/internal/queue"
	"github.com/viadorer/orchestrator-sub001/internal/services"
	"github.com/viadorer/orchestrator-sub001/internal/testsupport"
)

type storeFactory struct {
	name string
	open func(t *testing.T, clock *testsupport.Clock) queue.TaskStore
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{
			name: "sqlite",
			open: func(t *testing.T, clock *testsupport.Clock) queue.TaskStore {
				return testsupport.MustOpenTaskStore(t, testsupport.NewConfig(t), clock)
			},
		},
		{
			name: "memory",
			open: func(_ *testing.T, clock *testsupport.Clock) queue.TaskStore {
				return queue.NewMemoryStore(queue.WithClock(clock.Now))
			},
		},
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, store queue.TaskStore, clock *testsupport.Clock)) {
	for _, factory := range storeFactories() {
		t.Run(factory.name, func(t *testing.T) {
			clock := testsupport.FixedClock(time.Date(2024, 5, 6, 9, 5, 0, 0, time.UTC))
			fn(t, factory.open(t, clock), clock)
		})
	}
}

func TestCreateTaskDefaults(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.TaskStore, clock *testsupport.Clock) {
		task := testsupport.MustCreateTask(t, store, "proj-1", queue.TypeGenerateContent, nil, queue.CreateOptions{})
		if task.ID == "" {
			t.Fatal("expected id to be assigned")
		}
		if task.Priority != queue.DefaultPriority {
			t.Fatalf("priority = %d, want %d", task.Priority, queue.DefaultPriority)
		}
		if !task.ScheduledFor.Equal(clock.Now()) {
			t.Fatalf("scheduled_for = %v, want now %v", task.ScheduledFor, clock.Now())
		}
		if task.Status != queue.StatusPending {
			t.Fatalf("status = %s, want pending", task.Status)
		}

		fetched := testsupport.MustGetTask(t, store, task.ID)
		if fetched.ProjectID != "proj-1" || fetched.Type != queue.TypeGenerateContent {
			t.Fatalf("unexpected fetched task: %#v", fetched)
		}
		if string(fetched.Params) != "{}" {
			t.Fatalf("params = %s, want {}", fetched.Params)
		}
	})
}

func TestCreateTaskValidation(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.TaskStore, _ *testsupport.Clock) {
		ctx := context.Background()
		cases := []struct {
			name      string
			projectID string
			taskType  queue.TaskType
			params    string
			opts      queue.CreateOptions
		}{
			{name: "missing project", taskType: queue.TypeRSSRefresh},
			{name: "missing type", projectID: "p"},
			{name: "priority too high", projectID: "p", taskType: queue.TypeRSSRefresh, opts: queue.CreateOptions{Priority: 11}},
			{name: "negative priority", projectID: "p", taskType: queue.TypeRSSRefresh, opts: queue.CreateOptions{Priority: -1}},
			{name: "bad recurrence", projectID: "p", taskType: queue.TypeRSSRefresh, opts: queue.CreateOptions{Recurring: "fortnightly-ish"}},
			{name: "invalid params", projectID: "p", taskType: queue.TypeRSSRefresh, params: "{not json"},
		}
		for _, tc := range cases {
			_, err := store.CreateTask(ctx, tc.projectID, tc.taskType, []byte(tc.params), tc.opts)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("%s: expected validation error, got %v", tc.name, err)
			}
		}
	})
}

func TestCreateTaskKeepsUnknownTypes(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.TaskStore, _ *testsupport.Clock) {
		task := testsupport.MustCreateTask(t, store, "p", queue.TaskType("send_fax"), nil, queue.CreateOptions{})
		if task.Type.Known() {
			t.Fatal("send_fax should not be a known type")
		}
	})
}

func TestListDueFiltersAndOrders(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.TaskStore, clock *testsupport.Clock) {
		ctx := context.Background()
		now := clock.Now()

		routine := testsupport.MustCreateTask(t, store, "p1", queue.TypeGenerateContent, nil, queue.CreateOptions{ScheduledFor: now.Add(-2 * time.Hour)})
		human := testsupport.MustCreateTask(t, store, "p1", queue.TypeGenerateContent, nil, queue.CreateOptions{Priority: queue.MaxPriority, ScheduledFor: now.Add(-time.Minute)})
		earlierSame := testsupport.MustCreateTask(t, store, "p1", queue.TypeRSSRefresh, nil, queue.CreateOptions{ScheduledFor: now.Add(-3 * time.Hour)})
		tieA := testsupport.MustCreateTask(t, store, "p2", queue.TypeMediaProcess, nil, queue.CreateOptions{ScheduledFor: now.Add(-time.Hour)})
		tieB := testsupport.MustCreateTask(t, store, "p2", queue.TypeMediaProcess, nil, queue.CreateOptions{ScheduledFor: now.Add(-time.Hour)})
		testsupport.MustCreateTask(t, store, "p1", queue.TypeGenerateContent, nil, queue.CreateOptions{ScheduledFor: now.Add(time.Minute)})
		running := testsupport.MustCreateTask(t, store, "p1", queue.TypeGenerateContent, nil, queue.CreateOptions{ScheduledFor: now.Add(-time.Hour)})
		if err := store.MarkRunning(ctx, running.ID); err != nil {
			t.Fatalf("MarkRunning: %v", err)
		}
		atNow := testsupport.MustCreateTask(t, store, "p2", queue.TypeEngagementPull, nil, queue.CreateOptions{ScheduledFor: now, Priority: 1})

		due, err := store.ListDue(ctx, "", now)
		if err != nil {
			t.Fatalf("ListDue: %v", err)
		}
		want := []string{human.ID, earlierSame.ID, routine.ID, tieA.ID, tieB.ID, atNow.ID}
		assertIDs(t, due, want)

		scoped, err := store.ListDue(ctx, "p2", now)
		if err != nil {
			t.Fatalf("ListDue scoped: %v", err)
		}
		assertIDs(t, scoped, []string{tieA.ID, tieB.ID, atNow.ID})
	})
}

func TestPriorityBeatsEarlierRoutineTask(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.TaskStore, clock *testsupport.Clock) {
		now := clock.Now()
		b := testsupport.MustCreateTask(t, store, "p", queue.TypeGenerateContent, nil, queue.CreateOptions{ScheduledFor: now.Add(-time.Hour)})
		a := testsupport.MustCreateTask(t, store, "p", queue.TypeGenerateContent, nil, queue.CreateOptions{Priority: 10, ScheduledFor: now})
		due, err := store.ListDue(context.Background(), "", now.Add(time.Hour))
		if err != nil {
			t.Fatalf("ListDue: %v", err)
		}
		assertIDs(t, due, []string{a.ID, b.ID})
	})
}

func TestTransitionsAreGuarded(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.TaskStore, _ *testsupport.Clock) {
		ctx := context.Background()
		task := testsupport.MustCreateTask(t, store, "p", queue.TypeGenerateContent, nil, queue.CreateOptions{})

		err := store.MarkCompleted(ctx, task.ID, []byte(`{"ok":true}`))
		if !errors.Is(err, services.ErrInconsistent) {
			t.Fatalf("completing a pending task should be inconsistent, got %v", err)
		}
		if got := testsupport.MustGetTask(t, store, task.ID); got.Status != queue.StatusPending {
			t.Fatalf("status changed to %s", got.Status)
		}

		if err := store.MarkRunning(ctx, task.ID); err != nil {
			t.Fatalf("MarkRunning: %v", err)
		}
		if err := store.MarkRunning(ctx, task.ID); !queue.IsTransitionError(err) {
			t.Fatalf("second MarkRunning should fail, got %v", err)
		}
		if err := store.MarkCompleted(ctx, task.ID, []byte(`{"content_id":"c1"}`)); err != nil {
			t.Fatalf("MarkCompleted: %v", err)
		}

		err = store.MarkCompleted(ctx, task.ID, []byte(`{"content_id":"c2"}`))
		var te *queue.TransitionError
		if !errors.As(err, &te) || te.Actual != queue.StatusCompleted {
			t.Fatalf("expected transition error with actual completed, got %v", err)
		}
		if err := store.MarkFailed(ctx, task.ID, "late failure"); !errors.Is(err, services.ErrInconsistent) {
			t.Fatalf("failing a completed task should be inconsistent, got %v", err)
		}

		got := testsupport.MustGetTask(t, store, task.ID)
		if got.Status != queue.StatusCompleted {
			t.Fatalf("status = %s, want completed", got.Status)
		}
		if string(got.Result) != `{"content_id":"c1"}` {
			t.Fatalf("result overwritten: %s", got.Result)
		}
		if got.ErrorMessage != "" {
			t.Fatalf("error message set on completed task: %q", got.ErrorMessage)
		}
		if got.StartedAt.IsZero() || got.FinishedAt.IsZero() {
			t.Fatalf("expected started/finished timestamps, got %#v", got)
		}
	})
}

func TestMarkFailedStoresMessage(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.TaskStore, _ *testsupport.Clock) {
		ctx := context.Background()
		task := testsupport.MustCreateTask(t, store, "p", queue.TypeRSSRefresh, nil, queue.CreateOptions{})
		if err := store.MarkRunning(ctx, task.ID); err != nil {
			t.Fatalf("MarkRunning: %v", err)
		}
		if err := store.MarkFailed(ctx, task.ID, "upstream timeout"); err != nil {
			t.Fatalf("MarkFailed: %v", err)
		}
		got := testsupport.MustGetTask(t, store, task.ID)
		if got.Status != queue.StatusFailed || got.ErrorMessage != "upstream timeout" {
			t.Fatalf("unexpected failed task: %#v", got)
		}
	})
}

func TestTransitionOnMissingTask(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.TaskStore, _ *testsupport.Clock) {
		err := store.MarkRunning(context.Background(), "does-not-exist")
		if !errors.Is(err, services.ErrNotFound) || !errors.Is(err, services.ErrInconsistent) {
			t.Fatalf("expected not found inconsistency, got %v", err)
		}
		task, err := store.GetByID(context.Background(), "does-not-exist")
		if err != nil || task != nil {
			t.Fatalf("GetByID missing = %v, %v; want nil, nil", task, err)
		}
	})
}

func TestCancelOnlyPending(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.TaskStore, clock *testsupport.Clock) {
		ctx := context.Background()
		pending := testsupport.MustCreateTask(t, store, "p", queue.TypeGenerateContent, nil, queue.CreateOptions{})
		if err := store.Cancel(ctx, pending.ID); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if got := testsupport.MustGetTask(t, store, pending.ID); got.Status != queue.StatusCancelled {
			t.Fatalf("status = %s, want cancelled", got.Status)
		}
		due, _ := store.ListDue(ctx, "", clock.Now())
		if len(due) != 0 {
			t.Fatalf("cancelled task still due: %v", due)
		}

		running := testsupport.MustCreateTask(t, store, "p", queue.TypeGenerateContent, nil, queue.CreateOptions{})
		if err := store.MarkRunning(ctx, running.ID); err != nil {
			t.Fatalf("MarkRunning: %v", err)
		}
		if err := store.Cancel(ctx, running.ID); !queue.IsTransitionError(err) {
			t.Fatalf("cancelling running task should fail, got %v", err)
		}
	})
}

func TestCountForDay(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.TaskStore, clock *testsupport.Clock) {
		ctx := context.Background()
		now := clock.Now()
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		dayEnd := dayStart.Add(24 * time.Hour)

		testsupport.MustCreateTask(t, store, "p", queue.TypeGenerateContent, nil, queue.CreateOptions{ScheduledFor: dayStart.Add(9 * time.Hour)})
		done := testsupport.MustCreateTask(t, store, "p", queue.TypeGenerateContent, nil, queue.CreateOptions{ScheduledFor: dayStart.Add(8 * time.Hour)})
		_ = store.MarkRunning(ctx, done.ID)
		_ = store.MarkCompleted(ctx, done.ID, nil)
		failed := testsupport.MustCreateTask(t, store, "p", queue.TypeGenerateContent, nil, queue.CreateOptions{ScheduledFor: dayStart.Add(7 * time.Hour)})
		_ = store.MarkRunning(ctx, failed.ID)
		_ = store.MarkFailed(ctx, failed.ID, "boom")
		testsupport.MustCreateTask(t, store, "p", queue.TypeGenerateContent, nil, queue.CreateOptions{ScheduledFor: dayEnd})
		testsupport.MustCreateTask(t, store, "p", queue.TypeRSSRefresh, nil, queue.CreateOptions{ScheduledFor: dayStart.Add(time.Hour)})
		testsupport.MustCreateTask(t, store, "other", queue.TypeGenerateContent, nil, queue.CreateOptions{ScheduledFor: dayStart.Add(time.Hour)})

		count, err := store.CountForDay(ctx, "p", []queue.TaskType{queue.TypeGenerateContent}, dayStart, dayEnd)
		if err != nil {
			t.Fatalf("CountForDay: %v", err)
		}
		if count != 2 {
			t.Fatalf("count = %d, want 2", count)
		}
		all, err := store.CountForDay(ctx, "p", nil, dayStart, dayEnd)
		if err != nil {
			t.Fatalf("CountForDay all types: %v", err)
		}
		if all != 3 {
			t.Fatalf("count all types = %d, want 3", all)
		}
	})
}

func TestListTasksFilter(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.TaskStore, clock *testsupport.Clock) {
		ctx := context.Background()
		first := testsupport.MustCreateTask(t, store, "p", queue.TypeGenerateContent, nil, queue.CreateOptions{})
		clock.Advance(time.Second)
		second := testsupport.MustCreateTask(t, store, "p", queue.TypeRSSRefresh, nil, queue.CreateOptions{})
		clock.Advance(time.Second)
		testsupport.MustCreateTask(t, store, "q", queue.TypeGenerateContent, nil, queue.CreateOptions{})

		tasks, err := store.ListTasks(ctx, queue.Filter{ProjectID: "p"})
		if err != nil {
			t.Fatalf("ListTasks: %v", err)
		}
		assertIDs(t, tasks, []string{second.ID, first.ID})

		typed, err := store.ListTasks(ctx, queue.Filter{Types: []queue.TaskType{queue.TypeGenerateContent}, Limit: 1})
		if err != nil {
			t.Fatalf("ListTasks typed: %v", err)
		}
		if len(typed) != 1 || typed[0].ProjectID != "q" {
			t.Fatalf("unexpected typed listing: %v", typed)
		}

		pending, err := store.ListTasks(ctx, queue.Filter{Statuses: []queue.Status{queue.StatusRunning}})
		if err != nil {
			t.Fatalf("ListTasks status: %v", err)
		}
		if len(pending) != 0 {
			t.Fatalf("expected no running tasks, got %d", len(pending))
		}
	})
}

func TestHealth(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.TaskStore, clock *testsupport.Clock) {
		ctx := context.Background()
		oldest := clock.Now().Add(-2 * time.Hour)
		testsupport.MustCreateTask(t, store, "p", queue.TypeGenerateContent, nil, queue.CreateOptions{ScheduledFor: oldest})
		testsupport.MustCreateTask(t, store, "p", queue.TypeGenerateContent, nil, queue.CreateOptions{ScheduledFor: clock.Now().Add(time.Hour)})
		run := testsupport.MustCreateTask(t, store, "p", queue.TypeGenerateContent, nil, queue.CreateOptions{})
		_ = store.MarkRunning(ctx, run.ID)

		health, err := store.Health(ctx)
		if err != nil {
			t.Fatalf("Health: %v", err)
		}
		if health.Total != 3 || health.Pending != 2 || health.Running != 1 || health.Due != 1 {
			t.Fatalf("unexpected health: %#v", health)
		}
		if !health.OldestDue.Equal(oldest) {
			t.Fatalf("oldest due = %v, want %v", health.OldestDue, oldest)
		}
	})
}

func assertIDs(t *testing.T, tasks []*queue.Task, want []string) {
	t.Helper()
	if len(tasks) != len(want) {
		t.Fatalf("got %d tasks, want %d", len(tasks), len(want))
	}
	for i, task := range tasks {
		if task.ID != want[i] {
			t.Fatalf("position %d: got %s (%s p%d), want %s", i, task.ID, task.Type, task.Priority, want[i])
		}
	}
}
