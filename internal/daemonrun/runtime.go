package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/viadorer/orchestrator-sub001/internal/activity"
	"github.com/viadorer/orchestrator-sub001/internal/api"
	"github.com/viadorer/orchestrator-sub001/internal/config"
	"github.com/viadorer/orchestrator-sub001/internal/content"
	"github.com/viadorer/orchestrator-sub001/internal/database"
	"github.com/viadorer/orchestrator-sub001/internal/embedding"
	"github.com/viadorer/orchestrator-sub001/internal/executor"
	"github.com/viadorer/orchestrator-sub001/internal/feeds"
	"github.com/viadorer/orchestrator-sub001/internal/generator"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/metrics"
	"github.com/viadorer/orchestrator-sub001/internal/notifications"
	"github.com/viadorer/orchestrator-sub001/internal/optimizer"
	"github.com/viadorer/orchestrator-sub001/internal/orchestrator"
	"github.com/viadorer/orchestrator-sub001/internal/projects"
	"github.com/viadorer/orchestrator-sub001/internal/publishing"
	"github.com/viadorer/orchestrator-sub001/internal/queue"
	"github.com/viadorer/orchestrator-sub001/internal/scheduler"
	"github.com/viadorer/orchestrator-sub001/internal/services/claude"
	"github.com/viadorer/orchestrator-sub001/internal/services/embeddings"
	"github.com/viadorer/orchestrator-sub001/internal/services/llm"
	"github.com/viadorer/orchestrator-sub001/internal/services/publisher"
	"github.com/viadorer/orchestrator-sub001/internal/vision"
)

// Runtime holds the wired object graph shared by the daemon and the
// one-shot CLI commands.
type Runtime struct {
	Config      *config.Config
	DB          *database.DB
	Tasks       *queue.Store
	Projects    *projects.Store
	Content     *content.Store
	Feeds       *feeds.Store
	Activity    *activity.Store
	Scheduler   *scheduler.Scheduler
	Executor    *executor.Executor
	Coordinator *orchestrator.Coordinator
	Intake      *orchestrator.Intake
	Service     *api.Service
	Metrics     *metrics.Metrics
	Notifier    notifications.Service
	Logger      *slog.Logger
}

// Build opens the database and wires every collaborator from cfg.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	rt := &Runtime{
		Config:   cfg,
		DB:       db,
		Tasks:    queue.NewStore(db),
		Projects: projects.NewStore(db, cfg.Orchestrator.DefaultPostingTime),
		Content:  content.NewStore(db),
		Feeds:    feeds.NewStore(db),
		Activity: activity.NewStore(db),
		Metrics:  metrics.New(),
		Notifier: notifications.NewService(cfg),
		Logger:   logger,
	}
	if err := rt.wire(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) wire(ctx context.Context) error {
	cfg := rt.Config
	logger := rt.Logger
	activityLog := activity.NewBestEffort(rt.Activity, logger)

	openRouter := llm.NewClient(cfg.GetLLM())
	completer, err := contentCompleter(ctx, cfg, openRouter)
	if err != nil {
		return err
	}

	gen := generator.NewHandler(generator.New(completer, logger), rt.Projects, rt.Content,
		cfg.Orchestrator.DuplicateThreshold, logger)
	tagger := vision.New(openRouter, rt.Content, cfg.Orchestrator.MediaBatchSize, logger)
	embedder := embedding.New(embeddings.NewClient(cfg.Embeddings, nil), rt.Content,
		cfg.Orchestrator.DuplicateThreshold, cfg.Orchestrator.EmbeddingBatchSize, logger)
	opt := optimizer.New(rt.Content, rt.Projects, nil, logger)
	pub := publishing.New(publisher.NewClient(cfg.Publisher, nil), rt.Content, activityLog, publishing.Options{
		MinAge:    time.Duration(cfg.Orchestrator.EngagementMinAgeHours) * time.Hour,
		BatchSize: cfg.Orchestrator.EngagementBatchSize,
	}, logger)
	fetcher := feeds.NewFetcher(cfg, rt.Feeds, logger)

	rt.Scheduler = scheduler.New(rt.Tasks, scheduler.OptionsFromConfig(cfg), logger)
	rt.Executor = executor.New(rt.Tasks, executor.Handlers{
		GenerateContent:     gen.Posts(),
		PublishCheck:        pub.PublishCheck(),
		RSSRefresh:          fetcher,
		MediaProcess:        tagger,
		TopicSuggestion:     gen.Topics(),
		EngagementPull:      pub.EngagementPull(),
		PerformanceOptimize: opt,
	}, logger,
		executor.WithRenewer(rt.Scheduler),
		executor.WithNotifier(rt.Notifier),
		executor.WithActivity(activityLog),
		executor.WithMetrics(rt.Metrics),
	)
	rt.Coordinator = orchestrator.NewCoordinator(orchestrator.Dependencies{
		Tasks:      rt.Tasks,
		Projects:   rt.Projects,
		Scheduler:  rt.Scheduler,
		Executor:   rt.Executor,
		Publishing: pub,
		Feeds:      fetcher,
		Media:      tagger,
		Embeddings: embedder,
		Optimizer:  opt,
		Activity:   activityLog,
		Notifier:   rt.Notifier,
		Metrics:    rt.Metrics,
	}, orchestrator.Options{
		MediaBatchSize:      cfg.Orchestrator.MediaBatchSize,
		EmbeddingBatchSize:  cfg.Orchestrator.EmbeddingBatchSize,
		EngagementBatchSize: cfg.Orchestrator.EngagementBatchSize,
	}, logger)
	rt.Intake = orchestrator.NewIntake(rt.Tasks, rt.Projects, activityLog, rt.Metrics, nil, logger)
	rt.Service = api.NewService(api.Dependencies{
		DB:            rt.DB,
		Tasks:         rt.Tasks,
		Executor:      rt.Executor,
		Coordinator:   rt.Coordinator,
		Intake:        rt.Intake,
		CycleLockPath: cfg.CycleLockPath(),
	}, logger)
	return nil
}

// contentCompleter picks the completion provider for generated posts and
// topics. Vision always uses the OpenRouter-compatible client.
func contentCompleter(ctx context.Context, cfg *config.Config, openRouter *llm.Client) (llm.Completer, error) {
	switch cfg.Generator.Provider {
	case config.ProviderAnthropic:
		client, err := claude.NewClient(ctx, cfg.Anthropic)
		if err != nil {
			return nil, fmt.Errorf("anthropic client: %w", err)
		}
		return client, nil
	default:
		return openRouter, nil
	}
}

// Close releases the database.
func (rt *Runtime) Close() error {
	if rt == nil || rt.DB == nil {
		return nil
	}
	return rt.DB.Close()
}
