package feeds

import (
	"context"

	"github.com/viadorer/orchestrator-sub001/internal/queue"
	"github.com/viadorer/orchestrator-sub001/internal/stage"
)

// Execute runs an rss_refresh task over every active source.
func (f *Fetcher) Execute(ctx context.Context, task *queue.Task) (any, error) {
	if _, err := queue.DecodeProject(task.Params); err != nil {
		return nil, stage.InvalidParams(string(task.Type), err)
	}
	return f.FetchAll(ctx)
}

// HealthCheck reports ready; sources are checked individually on fetch.
func (f *Fetcher) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("rss_refresh")
}
