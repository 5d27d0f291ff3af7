// Package scheduler decides which tasks a cycle materializes: due posting
// slots within each project's daily quota, the weekly topic routine, and the
// renewal of recurring tasks.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/viadorer/orchestrator-sub001/internal/config"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/projects"
	"github.com/viadorer/orchestrator-sub001/internal/queue"
)

// Reasons reported when a project is not scheduled.
const (
	SkipInactive      = "inactive"
	SkipInvalidConfig = "invalid_config"
	SkipDisabled      = "disabled"
	SkipWeekend       = "weekend_pause"
	SkipOffDay        = "off_day"
	SkipQuota         = "quota_exhausted"
	SkipNoDueSlots    = "no_due_slots"
)

// occupying lists the statuses that claim a posting slot. Cancelled tasks
// free their slot.
var occupying = []queue.Status{
	queue.StatusPending,
	queue.StatusRunning,
	queue.StatusCompleted,
	queue.StatusFailed,
}

// Windows bounds the weekly routines in local hours, [start, end).
type Windows struct {
	TopicStartHour        int
	TopicEndHour          int
	OptimizationStartHour int
	OptimizationEndHour   int
}

// Options configures a Scheduler.
type Options struct {
	// Location is the canonical operating timezone used for the weekly
	// windows and for projects without a timezone of their own.
	Location           *time.Location
	Windows            Windows
	DefaultPostingTime string
	Now                func() time.Time
}

// OptionsFromConfig derives scheduler options from the daemon configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Location: cfg.Location(),
		Windows: Windows{
			TopicStartHour:        cfg.Orchestrator.TopicWindowStartHour,
			TopicEndHour:          cfg.Orchestrator.TopicWindowEndHour,
			OptimizationStartHour: cfg.Orchestrator.OptimizationWindowStartHour,
			OptimizationEndHour:   cfg.Orchestrator.OptimizationWindowEndHour,
		},
		DefaultPostingTime: cfg.Orchestrator.DefaultPostingTime,
	}
}

// Decision records what the scheduler did for one project.
type Decision struct {
	ProjectID string        `json:"project_id"`
	Skipped   string        `json:"skipped,omitempty"`
	Remaining int           `json:"remaining"`
	Created   []*queue.Task `json:"created,omitempty"`
}

// Scheduler materializes tasks into the task store.
type Scheduler struct {
	tasks       queue.TaskStore
	loc         *time.Location
	windows     Windows
	defaultSlot projects.Clock
	now         func() time.Time
	logger      *slog.Logger
}

// New constructs a scheduler. An unparsable DefaultPostingTime falls back
// to 09:00.
func New(tasks queue.TaskStore, opts Options, logger *slog.Logger) *Scheduler {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	slot, err := projects.ParseClock(opts.DefaultPostingTime)
	if err != nil {
		slot = projects.Clock{Hour: 9}
	}
	return &Scheduler{
		tasks:       tasks,
		loc:         loc,
		windows:     opts.Windows,
		defaultSlot: slot,
		now:         now,
		logger:      logging.NewComponentLogger(logger, "scheduler"),
	}
}

// Location returns the canonical operating timezone.
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// ScheduleAll runs ScheduleProject for every project. A failing project does
// not stop the others; failures are joined into the returned error.
func (s *Scheduler) ScheduleAll(ctx context.Context, list []*projects.Project) ([]Decision, error) {
	decisions := make([]Decision, 0, len(list))
	var errs []error
	for _, project := range list {
		if err := ctx.Err(); err != nil {
			return decisions, err
		}
		decision, err := s.ScheduleProject(ctx, project)
		if err != nil {
			logging.WarnWithContext(s.logger, "project scheduling failed", "schedule_failed",
				logging.Project(project.ID),
				logging.String(logging.FieldErrorHint, "check the task store and the project configuration"),
				logging.Error(err),
			)
			errs = append(errs, fmt.Errorf("project %s: %w", project.ID, err))
		}
		decisions = append(decisions, decision)
	}
	return decisions, errors.Join(errs...)
}

// ScheduleProject creates generate_content tasks for the project's posting
// slots that have passed today without a task, within the remaining quota.
// Quota counts every generate_content task of the local day, including
// manually created ones.
func (s *Scheduler) ScheduleProject(ctx context.Context, project *projects.Project) (Decision, error) {
	decision := Decision{ProjectID: project.ID}
	now := s.now()
	local := now.In(project.Location(s.loc))
	cfg := project.Config

	switch {
	case !project.Active:
		return s.skip(decision, SkipInactive), nil
	case project.ConfigError != "":
		return s.skip(decision, SkipInvalidConfig), nil
	case !cfg.Enabled:
		return s.skip(decision, SkipDisabled), nil
	case cfg.PauseWeekends && isWeekend(local.Weekday()):
		return s.skip(decision, SkipWeekend), nil
	case !cfg.PostsOn(local.Weekday()):
		return s.skip(decision, SkipOffDay), nil
	}

	start, end := dayBounds(local)
	used, err := s.tasks.CountForDay(ctx, project.ID, []queue.TaskType{queue.TypeGenerateContent}, start, end)
	if err != nil {
		return decision, fmt.Errorf("count today's tasks: %w", err)
	}
	decision.Remaining = max(cfg.MaxPostsPerDay-used, 0)
	if decision.Remaining == 0 {
		return s.skip(decision, SkipQuota), nil
	}

	for _, slot := range s.slots(cfg) {
		if decision.Remaining == 0 {
			break
		}
		at := slot.On(local)
		if at.After(now) {
			break
		}
		covered, err := s.slotCovered(ctx, project.ID, at)
		if err != nil {
			return decision, err
		}
		if covered {
			continue
		}
		task, err := s.createSlotTask(ctx, project, slot, at)
		if err != nil {
			return decision, err
		}
		decision.Created = append(decision.Created, task)
		decision.Remaining--
	}
	if len(decision.Created) == 0 {
		return s.skip(decision, SkipNoDueSlots), nil
	}
	s.logger.Info("posting slots scheduled",
		logging.Args(append(logging.DecisionAttrs("schedule_slots", "created", "due slots without tasks"),
			logging.Project(project.ID),
			logging.Int("created", len(decision.Created)),
			logging.Int("remaining_quota", decision.Remaining),
		)...)...)
	return decision, nil
}

func (s *Scheduler) skip(decision Decision, reason string) Decision {
	decision.Skipped = reason
	s.logger.Debug("project not scheduled",
		logging.Args(append(logging.DecisionAttrs("schedule_slots", "skip", reason),
			logging.Project(decision.ProjectID),
			logging.Int("remaining_quota", decision.Remaining),
		)...)...)
	return decision
}

func (s *Scheduler) slots(cfg projects.OrchestratorConfig) []projects.Clock {
	clocks := make([]projects.Clock, 0, len(cfg.PostingTimes))
	for _, value := range cfg.PostingTimes {
		clock, err := projects.ParseClock(value)
		if err != nil {
			continue
		}
		clocks = append(clocks, clock)
	}
	if len(clocks) == 0 {
		clocks = append(clocks, s.defaultSlot)
	}
	return clocks
}

func (s *Scheduler) slotCovered(ctx context.Context, projectID string, at time.Time) (bool, error) {
	existing, err := s.tasks.ListTasks(ctx, queue.Filter{
		ProjectID:     projectID,
		Types:         []queue.TaskType{queue.TypeGenerateContent},
		Statuses:      occupying,
		ScheduledFrom: at,
		ScheduledTo:   at.Add(time.Minute),
		Limit:         1,
	})
	if err != nil {
		return false, fmt.Errorf("check slot %s: %w", at.Format(time.Kitchen), err)
	}
	return len(existing) > 0, nil
}

func (s *Scheduler) createSlotTask(ctx context.Context, project *projects.Project, slot projects.Clock, at time.Time) (*queue.Task, error) {
	params, err := queue.EncodeParams(queue.GenerateContentParams{
		Platform:        project.Config.PrimaryPlatform(),
		ContentStrategy: project.Config.ContentStrategy,
		MediaStrategy:   project.Config.MediaStrategy,
		Slot:            slot.String(),
		Source:          queue.SourceScheduler,
	})
	if err != nil {
		return nil, err
	}
	task, err := s.tasks.CreateTask(ctx, project.ID, queue.TypeGenerateContent, params, queue.CreateOptions{
		Priority:     queue.DefaultPriority,
		ScheduledFor: at,
	})
	if err != nil {
		return nil, fmt.Errorf("create slot %s task: %w", slot, err)
	}
	return task, nil
}

// TopicWindowOpen reports whether now falls in the Friday topic window of
// the canonical timezone.
func (s *Scheduler) TopicWindowOpen(now time.Time) bool {
	return s.inWindow(now, time.Friday, s.windows.TopicStartHour, s.windows.TopicEndHour)
}

// OptimizationWindowOpen reports whether now falls in the Sunday
// optimization window of the canonical timezone.
func (s *Scheduler) OptimizationWindowOpen(now time.Time) bool {
	return s.inWindow(now, time.Sunday, s.windows.OptimizationStartHour, s.windows.OptimizationEndHour)
}

func (s *Scheduler) inWindow(now time.Time, day time.Weekday, startHour, endHour int) bool {
	local := now.In(s.loc)
	return local.Weekday() == day && local.Hour() >= startHour && local.Hour() < endHour
}

// ScheduleTopicSuggestions creates one topic_suggestion task per eligible
// project, at most once per canonical calendar day. It does nothing outside
// the Friday window.
func (s *Scheduler) ScheduleTopicSuggestions(ctx context.Context, list []*projects.Project) ([]*queue.Task, error) {
	now := s.now()
	if !s.TopicWindowOpen(now) {
		return nil, nil
	}
	start, end := dayBounds(now.In(s.loc))
	var created []*queue.Task
	var errs []error
	for _, project := range list {
		if !project.Active || project.ConfigError != "" || !project.Config.Enabled {
			continue
		}
		existing, err := s.tasks.ListTasks(ctx, queue.Filter{
			ProjectID:     project.ID,
			Types:         []queue.TaskType{queue.TypeTopicSuggestion},
			Statuses:      occupying,
			ScheduledFrom: start,
			ScheduledTo:   end,
			Limit:         1,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("project %s: %w", project.ID, err))
			continue
		}
		if len(existing) > 0 {
			continue
		}
		task, err := s.tasks.CreateTask(ctx, project.ID, queue.TypeTopicSuggestion, nil, queue.CreateOptions{ScheduledFor: now})
		if err != nil {
			errs = append(errs, fmt.Errorf("project %s: %w", project.ID, err))
			continue
		}
		created = append(created, task)
	}
	if len(created) > 0 {
		s.logger.Info("topic suggestions scheduled",
			logging.Args(append(logging.DecisionAttrs("topic_suggestions", "created", "friday window open"),
				logging.Int("created", len(created)),
			)...)...)
	}
	return created, errors.Join(errs...)
}

// Renew enqueues the next occurrence of a completed recurring task. It
// returns nil when the task does not recur.
func (s *Scheduler) Renew(ctx context.Context, task *queue.Task, completedAt time.Time) (*queue.Task, error) {
	if task == nil || task.Recurring == "" {
		return nil, nil
	}
	rec, err := queue.ParseRecurrence(task.Recurring)
	if err != nil {
		return nil, err
	}
	next := rec.Next(task.ScheduledFor, completedAt, s.loc)
	if next.IsZero() {
		return nil, fmt.Errorf("recurrence %q yields no next occurrence", task.Recurring)
	}
	renewed, err := s.tasks.CreateTask(ctx, task.ProjectID, task.Type, task.Params, queue.CreateOptions{
		Priority:     task.Priority,
		ScheduledFor: next,
		Recurring:    task.Recurring,
	})
	if err != nil {
		return nil, fmt.Errorf("renew recurring task %s: %w", task.ID, err)
	}
	s.logger.Info("recurring task renewed",
		logging.Task(task.ID),
		logging.String("next_task_id", renewed.ID),
		logging.Time("scheduled_for", next),
	)
	return renewed, nil
}

func isWeekend(day time.Weekday) bool {
	return day == time.Saturday || day == time.Sunday
}

// dayBounds returns the local calendar day containing t as [start, end).
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
