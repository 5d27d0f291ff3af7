// Package optimizer turns recent engagement into per-content-type strategy
// weights that the generator includes in its prompts.
package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/viadorer/orchestrator-sub001/internal/content"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/projects"
	"github.com/viadorer/orchestrator-sub001/internal/queue"
	"github.com/viadorer/orchestrator-sub001/internal/services"
	"github.com/viadorer/orchestrator-sub001/internal/stage"
)

// Lookback is the engagement window the weights are computed from.
const Lookback = 30 * 24 * time.Hour

const defaultContentType = "post"

// ContentSource lists published items.
type ContentSource interface {
	ListPublishedSince(ctx context.Context, projectID string, since time.Time) ([]*content.Item, error)
}

// ProjectStore reads projects and stores their weights.
type ProjectStore interface {
	Get(ctx context.Context, id string) (*projects.Project, error)
	UpdateStrategyWeights(ctx context.Context, id string, weights map[string]float64) error
}

// Result describes one optimization pass.
type Result struct {
	ProjectID string             `json:"project_id"`
	Samples   int                `json:"samples"`
	Weights   map[string]float64 `json:"weights,omitempty"`
	Updated   bool               `json:"updated"`
}

// Optimizer computes strategy weights.
type Optimizer struct {
	content  ContentSource
	projects ProjectStore
	now      func() time.Time
	logger   *slog.Logger
}

// New constructs an optimizer.
func New(contentSource ContentSource, projectStore ProjectStore, now func() time.Time, logger *slog.Logger) *Optimizer {
	if now == nil {
		now = time.Now
	}
	return &Optimizer{
		content:  contentSource,
		projects: projectStore,
		now:      now,
		logger:   logging.NewComponentLogger(logger, "optimizer"),
	}
}

// Optimize recomputes project's weights from the last 30 days of engagement.
// Projects without measured posts keep their current weights.
func (o *Optimizer) Optimize(ctx context.Context, project *projects.Project) (Result, error) {
	result := Result{ProjectID: project.ID}
	items, err := o.content.ListPublishedSince(ctx, project.ID, o.now().Add(-Lookback))
	if err != nil {
		return result, fmt.Errorf("list published content: %w", err)
	}

	totals := make(map[string]float64)
	counts := make(map[string]int)
	for _, item := range items {
		if item.Engagement == nil {
			continue
		}
		kind := item.ContentType
		if kind == "" {
			kind = defaultContentType
		}
		totals[kind] += item.Engagement.Score()
		counts[kind]++
		result.Samples++
	}
	if result.Samples == 0 {
		o.logger.Info("optimization skipped",
			logging.Args(append(logging.DecisionAttrs("strategy_weights", "skip", "no measured posts in window"),
				logging.Project(project.ID))...)...)
		return result, nil
	}

	result.Weights = Normalize(totals, counts)
	if err := o.projects.UpdateStrategyWeights(ctx, project.ID, result.Weights); err != nil {
		return result, fmt.Errorf("store strategy weights: %w", err)
	}
	result.Updated = true
	o.logger.Info("strategy weights updated",
		logging.Project(project.ID),
		logging.Int("samples", result.Samples),
		logging.Any("weights", result.Weights),
	)
	return result, nil
}

// Normalize converts per-type engagement totals into average-based weights
// that sum to 1. When every average is zero the types share equally.
func Normalize(totals map[string]float64, counts map[string]int) map[string]float64 {
	averages := make(map[string]float64, len(totals))
	var sum float64
	for kind, total := range totals {
		if counts[kind] == 0 {
			continue
		}
		avg := total / float64(counts[kind])
		averages[kind] = avg
		sum += avg
	}
	weights := make(map[string]float64, len(averages))
	for kind, avg := range averages {
		if sum == 0 {
			weights[kind] = round(1 / float64(len(averages)))
			continue
		}
		weights[kind] = round(avg / sum)
	}
	return weights
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Execute runs a performance_optimize task for the task's project.
func (o *Optimizer) Execute(ctx context.Context, task *queue.Task) (any, error) {
	if _, err := queue.DecodeProject(task.Params); err != nil {
		return nil, stage.InvalidParams(string(task.Type), err)
	}
	project, err := o.projects.Get(ctx, task.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, services.Wrap(services.ErrConfiguration, "optimizer", "load project", fmt.Sprintf("project %s does not exist", task.ProjectID), nil)
	}
	return o.Optimize(ctx, project)
}

// HealthCheck reports ready; the optimizer only reads local data.
func (o *Optimizer) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("performance_optimize")
}
