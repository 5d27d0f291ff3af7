// Package orchestrator runs the orchestration cycle and the priority intake.
//
// A cycle runs eight stages in a fixed order. Each stage runs inside its own
// boundary: a returned error marks that stage failed but keeps whatever
// counts it reported, a panic marks it failed with no counts, and the next
// stage still runs. Due tasks are executed one at a
// time in store order. The weekly stages only fire inside their windows in
// the canonical operating timezone.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viadorer/orchestrator-sub001/internal/activity"
	"github.com/viadorer/orchestrator-sub001/internal/embedding"
	"github.com/viadorer/orchestrator-sub001/internal/executor"
	"github.com/viadorer/orchestrator-sub001/internal/feeds"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/metrics"
	"github.com/viadorer/orchestrator-sub001/internal/notifications"
	"github.com/viadorer/orchestrator-sub001/internal/optimizer"
	"github.com/viadorer/orchestrator-sub001/internal/projects"
	"github.com/viadorer/orchestrator-sub001/internal/publishing"
	"github.com/viadorer/orchestrator-sub001/internal/queue"
	"github.com/viadorer/orchestrator-sub001/internal/scheduler"
	"github.com/viadorer/orchestrator-sub001/internal/services"
	"github.com/viadorer/orchestrator-sub001/internal/vision"
)

// Stage names in run order.
const (
	StageScheduleExecute   = "schedule_execute"
	StageAutoPublish       = "auto_publish"
	StageFeedRefresh       = "feed_refresh"
	StageMediaProcessing   = "media_processing"
	StageTopicSuggestions  = "topic_suggestions"
	StageEngagementRefresh = "engagement_refresh"
	StageEmbeddingBackfill = "embedding_backfill"
	StageOptimization      = "performance_optimization"
)

// ProjectSource lists and loads projects.
type ProjectSource interface {
	Get(ctx context.Context, id string) (*projects.Project, error)
	ListActive(ctx context.Context) ([]*projects.Project, error)
}

// Publisher runs the auto-publish sweep and the engagement refresh.
type Publisher interface {
	Sweep(ctx context.Context, list []*projects.Project) (publishing.SweepResult, error)
	RefreshEngagement(ctx context.Context, limit int) (publishing.EngagementResult, error)
}

// FeedRefresher refreshes every active RSS source.
type FeedRefresher interface {
	FetchAll(ctx context.Context) (feeds.FetchResult, error)
}

// MediaProcessor tags a batch of unprocessed media.
type MediaProcessor interface {
	ProcessBatch(ctx context.Context, limit int) (vision.BatchResult, error)
}

// Embedder backfills embeddings for published content.
type Embedder interface {
	EmbedBatch(ctx context.Context, limit int) (embedding.BatchResult, error)
}

// StrategyOptimizer recomputes a project's strategy weights.
type StrategyOptimizer interface {
	Optimize(ctx context.Context, project *projects.Project) (optimizer.Result, error)
}

// Dependencies are the collaborators a Coordinator drives. Tasks, Projects,
// Scheduler and Executor are required; a nil optional collaborator skips
// its stage.
type Dependencies struct {
	Tasks      queue.TaskStore
	Projects   ProjectSource
	Scheduler  *scheduler.Scheduler
	Executor   *executor.Executor
	Publishing Publisher
	Feeds      FeedRefresher
	Media      MediaProcessor
	Embeddings Embedder
	Optimizer  StrategyOptimizer
	Activity   *activity.BestEffort
	Notifier   notifications.Service
	Metrics    *metrics.Metrics
}

// Options bounds the batch stages.
type Options struct {
	MediaBatchSize      int
	EmbeddingBatchSize  int
	EngagementBatchSize int
	Now                 func() time.Time
}

// Coordinator runs orchestration cycles.
type Coordinator struct {
	deps   Dependencies
	opts   Options
	now    func() time.Time
	logger *slog.Logger

	mu          sync.Mutex
	optimizedOn map[string]string
}

// cycleState is shared by the stages of one cycle.
type cycleState struct {
	id        string
	projectID string
	now       time.Time
	projects  []*projects.Project
	// scopeErr is set when the project list could not be loaded. The
	// project-scoped stages fail with it; the global stages are unaffected.
	scopeErr error
}

type stageFunc func(ctx context.Context, state *cycleState) (StageResult, error)

type namedStage struct {
	name string
	run  stageFunc
}

// NewCoordinator wires a coordinator.
func NewCoordinator(deps Dependencies, opts Options, logger *slog.Logger) *Coordinator {
	if opts.MediaBatchSize <= 0 {
		opts.MediaBatchSize = 10
	}
	if opts.EmbeddingBatchSize <= 0 {
		opts.EmbeddingBatchSize = 20
	}
	if opts.EngagementBatchSize <= 0 {
		opts.EngagementBatchSize = 50
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewNoop()
	}
	return &Coordinator{
		deps:        deps,
		opts:        opts,
		now:         now,
		logger:      logging.NewComponentLogger(logger, "coordinator"),
		optimizedOn: make(map[string]string),
	}
}

func (c *Coordinator) stages() []namedStage {
	return []namedStage{
		{StageScheduleExecute, c.scheduleAndExecute},
		{StageAutoPublish, c.autoPublish},
		{StageFeedRefresh, c.refreshFeeds},
		{StageMediaProcessing, c.processMedia},
		{StageTopicSuggestions, c.scheduleTopics},
		{StageEngagementRefresh, c.refreshEngagement},
		{StageEmbeddingBackfill, c.backfillEmbeddings},
		{StageOptimization, c.optimize},
	}
}

// RunCycle runs one full cycle. A non-empty projectID restricts scheduling,
// execution, auto-publish, topic and optimization stages to that project;
// the feed, media, engagement and embedding stages always run globally.
// Stage failures are reported in the result, not returned. A projectID that
// names no project is an ErrNotFound error; any other failure to load the
// project scope fails the project-scoped stages and the cycle continues.
func (c *Coordinator) RunCycle(ctx context.Context, projectID string) (RunResult, error) {
	started := c.now()
	state := &cycleState{id: uuid.NewString(), projectID: projectID, now: started}
	result := RunResult{CycleID: state.id, ProjectID: projectID, StartedAt: started}

	ctx = services.WithRequestID(ctx, state.id)
	if projectID != "" {
		ctx = services.WithProjectID(ctx, projectID)
	}
	logger := logging.WithContext(ctx, c.logger)

	list, err := c.resolveProjects(ctx, projectID)
	switch {
	case errors.Is(err, services.ErrNotFound) && projectID != "":
		return result, err
	case err != nil:
		state.scopeErr = err
		logging.ErrorWithContext(logger, "project scope unavailable", "cycle_scope_failed",
			logging.String(logging.FieldImpact, "project stages fail this cycle; global stages still run"),
			logging.Error(err),
		)
	}
	state.projects = list

	logger.Info("cycle started",
		logging.String(logging.FieldEventType, "cycle_start"),
		logging.Int("projects", len(list)),
	)

	for _, s := range c.stages() {
		stageResult := c.runStage(ctx, state, s)
		result.Counts.add(stageResult.Counts)
		result.Stages = append(result.Stages, stageResult)
	}

	result.FinishedAt = c.now()
	result.Duration = result.FinishedAt.Sub(started)
	c.finish(ctx, logger, result)
	return result, nil
}

func (c *Coordinator) resolveProjects(ctx context.Context, projectID string) ([]*projects.Project, error) {
	if projectID == "" {
		list, err := c.deps.Projects.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("list active projects: %w", err)
		}
		return list, nil
	}
	project, err := c.deps.Projects.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, services.Wrap(services.ErrNotFound, "coordinator", "load project", "project "+projectID+" does not exist", nil)
	}
	return []*projects.Project{project}, nil
}

// runStage isolates one stage: errors and panics become a failed result.
// Counts a stage reports alongside its error are kept.
func (c *Coordinator) runStage(ctx context.Context, state *cycleState, s namedStage) (out StageResult) {
	stageCtx := services.WithStage(ctx, s.name)
	logger := logging.WithContext(stageCtx, c.logger)
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("stage panicked",
				logging.String(logging.FieldEventType, "stage_panic"),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			out = StageResult{Name: s.name, Status: StageFailed, Error: fmt.Sprintf("panic: %v", r)}
		}
		out.Duration = time.Since(started)
	}()

	result, err := s.run(stageCtx, state)
	result.Name = s.name
	if err != nil {
		logging.ErrorWithContext(logger, "stage failed", "stage_failure",
			logging.String(logging.FieldImpact, "later stages still run; this stage's work waits for the next cycle"),
			logging.String("error_kind", services.Kind(err)),
			logging.Error(err),
		)
		return StageResult{Name: s.name, Status: StageFailed, Error: services.FailureMessage(err), Counts: result.Counts}
	}
	if result.Status == "" {
		result.Status = StageOK
	}
	logger.Debug("stage finished",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("status", result.Status),
		logging.String("reason", result.Reason),
	)
	return result
}

func skipped(reason string) (StageResult, error) {
	return StageResult{Status: StageSkipped, Reason: reason}, nil
}

func (c *Coordinator) scheduleAndExecute(ctx context.Context, state *cycleState) (StageResult, error) {
	var counts Counts
	if state.scopeErr == nil {
		decisions, schedErr := c.deps.Scheduler.ScheduleAll(ctx, state.projects)
		for _, d := range decisions {
			counts.Created += len(d.Created)
		}
		if schedErr != nil {
			// Per-project scheduling failures are isolated; execution proceeds.
			counts.ScheduleFailed = countFailures(schedErr)
		}
		c.deps.Metrics.TasksCreated(queue.SourceScheduler, counts.Created)
	}

	// Already-due tasks still run when scheduling was impossible.
	attempted := make(map[string]struct{})
	for {
		due, err := c.deps.Tasks.ListDue(ctx, state.projectID, c.now())
		if err != nil {
			return StageResult{Counts: counts}, fmt.Errorf("list due tasks: %w", err)
		}
		fresh := 0
		for _, task := range due {
			if _, seen := attempted[task.ID]; seen {
				continue
			}
			if err := ctx.Err(); err != nil {
				return StageResult{Counts: counts}, err
			}
			attempted[task.ID] = struct{}{}
			fresh++
			c.executeOne(ctx, task, &counts)
		}
		if fresh == 0 {
			break
		}
	}
	return StageResult{Counts: counts}, state.scopeErr
}

// executeOne runs a single due task. The executor already converts handler
// panics into failures; this guard covers the executor itself.
func (c *Coordinator) executeOne(ctx context.Context, task *queue.Task, counts *Counts) {
	defer func() {
		if r := recover(); r != nil {
			counts.Failed++
			c.logger.Error("task execution panicked",
				logging.Task(task.ID),
				logging.Any("panic", r),
			)
			current, err := c.deps.Tasks.GetByID(ctx, task.ID)
			if err == nil && current != nil && current.Status == queue.StatusRunning {
				err = c.deps.Tasks.MarkFailed(ctx, task.ID, fmt.Sprintf("execution panic: %v", r))
			}
			if err != nil {
				logging.ErrorWithContext(c.logger, "task left running after panic", "task_mark_failed",
					logging.Task(task.ID),
					logging.String(logging.FieldImpact, "task stays running until recovered"),
					logging.Error(err),
				)
			}
		}
	}()
	outcome, err := c.deps.Executor.Execute(ctx, task)
	if err != nil && services.IsStaleRequest(err) {
		return
	}
	counts.Executed++
	if outcome.Success {
		counts.Succeeded++
		return
	}
	counts.Failed++
}

func (c *Coordinator) autoPublish(ctx context.Context, state *cycleState) (StageResult, error) {
	if c.deps.Publishing == nil {
		return skipped(ReasonNotConfigured)
	}
	if state.scopeErr != nil {
		return StageResult{}, state.scopeErr
	}
	res, err := c.deps.Publishing.Sweep(ctx, state.projects)
	c.deps.Metrics.Publishes(res.Published, res.Failed, res.Skipped)
	return StageResult{Counts: Counts{
		Published:      res.Published,
		PublishFailed:  res.Failed,
		PublishSkipped: res.Skipped,
	}}, err
}

func (c *Coordinator) refreshFeeds(ctx context.Context, _ *cycleState) (StageResult, error) {
	if c.deps.Feeds == nil {
		return skipped(ReasonNotConfigured)
	}
	res, err := c.deps.Feeds.FetchAll(ctx)
	if err != nil {
		return StageResult{}, err
	}
	return StageResult{Counts: Counts{
		FeedsChecked:   res.SourcesChecked,
		FeedItemsAdded: res.Added,
		FeedErrors:     res.Errors,
	}}, nil
}

func (c *Coordinator) processMedia(ctx context.Context, _ *cycleState) (StageResult, error) {
	if c.deps.Media == nil {
		return skipped(ReasonNotConfigured)
	}
	res, err := c.deps.Media.ProcessBatch(ctx, c.opts.MediaBatchSize)
	if err != nil {
		return StageResult{}, err
	}
	return StageResult{Counts: Counts{MediaProcessed: res.Processed, MediaFailed: res.Failed}}, nil
}

func (c *Coordinator) scheduleTopics(ctx context.Context, state *cycleState) (StageResult, error) {
	if !c.deps.Scheduler.TopicWindowOpen(state.now) {
		return skipped(ReasonOutsideWindow)
	}
	if state.scopeErr != nil {
		return StageResult{}, state.scopeErr
	}
	created, err := c.deps.Scheduler.ScheduleTopicSuggestions(ctx, state.projects)
	c.deps.Metrics.TasksCreated("topic_routine", len(created))
	return StageResult{Counts: Counts{TopicsScheduled: len(created)}}, err
}

func (c *Coordinator) refreshEngagement(ctx context.Context, _ *cycleState) (StageResult, error) {
	if c.deps.Publishing == nil {
		return skipped(ReasonNotConfigured)
	}
	res, err := c.deps.Publishing.RefreshEngagement(ctx, c.opts.EngagementBatchSize)
	if err != nil {
		return StageResult{}, err
	}
	return StageResult{Counts: Counts{EngagementUpdated: res.Updated, EngagementFailed: res.Failed}}, nil
}

func (c *Coordinator) backfillEmbeddings(ctx context.Context, _ *cycleState) (StageResult, error) {
	if c.deps.Embeddings == nil {
		return skipped(ReasonNotConfigured)
	}
	res, err := c.deps.Embeddings.EmbedBatch(ctx, c.opts.EmbeddingBatchSize)
	if err != nil {
		return StageResult{}, err
	}
	return StageResult{Counts: Counts{
		Embedded:    res.Embedded,
		EmbedFailed: res.Failed,
		Duplicates:  res.Duplicates,
	}}, nil
}

// optimize runs the Sunday pass. Each project is optimized at most once per
// canonical calendar day by this process, and a failing project does not
// stop the others.
func (c *Coordinator) optimize(ctx context.Context, state *cycleState) (StageResult, error) {
	if c.deps.Optimizer == nil {
		return skipped(ReasonNotConfigured)
	}
	if !c.deps.Scheduler.OptimizationWindowOpen(state.now) {
		return skipped(ReasonOutsideWindow)
	}
	if state.scopeErr != nil {
		return StageResult{}, state.scopeErr
	}
	day := state.now.In(c.deps.Scheduler.Location()).Format(time.DateOnly)
	var counts Counts
	eligible, ran := 0, 0
	for _, project := range state.projects {
		if !project.Active || project.ConfigError != "" {
			continue
		}
		eligible++
		if !c.claimOptimization(project.ID, day) {
			continue
		}
		ran++
		res, err := c.deps.Optimizer.Optimize(ctx, project)
		if err != nil {
			counts.OptimizeFailed++
			c.releaseOptimization(project.ID)
			logging.WarnWithContext(c.logger, "project optimization failed", "optimization_failed",
				logging.Project(project.ID),
				logging.String(logging.FieldImpact, "strategy weights unchanged"),
				logging.Error(err),
			)
			continue
		}
		counts.ProjectsOptimized++
		if res.Updated {
			c.deps.Activity.Record(ctx, project.ID, activity.ActionStrategyUpdated, res)
		}
	}
	switch {
	case eligible == 0:
		return skipped(ReasonNoEligibleProjects)
	case ran == 0:
		return skipped(ReasonAlreadyRan)
	}
	return StageResult{Counts: counts}, nil
}

func (c *Coordinator) claimOptimization(projectID, day string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.optimizedOn[projectID] == day {
		return false
	}
	c.optimizedOn[projectID] = day
	return true
}

func (c *Coordinator) releaseOptimization(projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.optimizedOn, projectID)
}

func (c *Coordinator) finish(ctx context.Context, logger *slog.Logger, result RunResult) {
	failed := result.FailedStages()
	c.deps.Metrics.ObserveCycle(result.FinishedAt, result.Duration, failed)
	c.deps.Activity.Record(ctx, result.ProjectID, activity.ActionCycleCompleted, result)

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "cycle_complete"),
		logging.Int("executed", result.Executed),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed),
		logging.Int("created", result.Created),
		logging.Int("published", result.Published),
		logging.Duration("duration", result.Duration),
	}
	if len(failed) > 0 {
		attrs = append(attrs,
			logging.Any("failed_stages", failed),
			logging.Alert("cycle_degraded"),
		)
		logging.WarnWithContext(logger, "cycle completed with failed stages", "cycle_degraded", attrs...)
	} else {
		logger.Info("cycle completed", logging.Args(attrs...)...)
	}

	summary := notifications.CycleSummary{
		CycleID:       result.CycleID,
		ProjectID:     result.ProjectID,
		Executed:      result.Executed,
		Failed:        result.Failed,
		Created:       result.Created,
		Published:     result.Published,
		PublishFailed: result.PublishFailed,
		FailedStages:  failed,
		Duration:      result.Duration,
	}
	if err := c.deps.Notifier.NotifyCycleCompleted(ctx, summary); err != nil {
		logger.Debug("cycle notification failed", logging.Error(err))
	}
}

// countFailures counts the errors joined by errors.Join.
func countFailures(err error) int {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}
