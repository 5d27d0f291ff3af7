package publishing

import (
	"context"

	"github.com/viadorer/orchestrator-sub001/internal/queue"
	"github.com/viadorer/orchestrator-sub001/internal/stage"
)

// PublishCheck returns the publish_check task handler.
func (s *Service) PublishCheck() stage.Handler { return publishCheckHandler{s} }

// EngagementPull returns the engagement_pull task handler.
func (s *Service) EngagementPull() stage.Handler { return engagementHandler{s} }

type publishCheckHandler struct{ *Service }

func (h publishCheckHandler) Execute(ctx context.Context, task *queue.Task) (any, error) {
	params, err := queue.DecodePublishCheck(task.Params)
	if err != nil {
		return nil, stage.InvalidParams(string(task.Type), err)
	}
	return h.PublishItem(ctx, params.ContentID)
}

func (h publishCheckHandler) HealthCheck(context.Context) stage.Health {
	return h.health("publish_check")
}

type engagementHandler struct{ *Service }

func (h engagementHandler) Execute(ctx context.Context, task *queue.Task) (any, error) {
	params, err := queue.DecodeBatch(task.Params, h.batchSize)
	if err != nil {
		return nil, stage.InvalidParams(string(task.Type), err)
	}
	return h.RefreshEngagement(ctx, params.Limit)
}

func (h engagementHandler) HealthCheck(context.Context) stage.Health {
	return h.health("engagement_pull")
}

func (s *Service) health(name string) stage.Health {
	if !s.publisher.Configured() {
		return stage.Unhealthy(name, "publisher credentials missing")
	}
	return stage.Healthy(name)
}
