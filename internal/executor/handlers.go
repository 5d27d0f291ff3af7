package executor

import (
	"context"
	"fmt"

	"github.com/viadorer/orchestrator-sub001/internal/queue"
	"github.com/viadorer/orchestrator-sub001/internal/services"
	"github.com/viadorer/orchestrator-sub001/internal/stage"
)

// Handlers is the closed dispatch table, one handler per task type.
type Handlers struct {
	GenerateContent     stage.Handler
	PublishCheck        stage.Handler
	RSSRefresh          stage.Handler
	MediaProcess        stage.Handler
	TopicSuggestion     stage.Handler
	EngagementPull      stage.Handler
	PerformanceOptimize stage.Handler
}

// Lookup returns the handler for taskType. Unknown types fail with
// ErrUnsupportedTaskType; known types without a handler fail with
// ErrConfiguration.
func (h Handlers) Lookup(taskType queue.TaskType) (stage.Handler, error) {
	var handler stage.Handler
	switch taskType {
	case queue.TypeGenerateContent:
		handler = h.GenerateContent
	case queue.TypePublishCheck:
		handler = h.PublishCheck
	case queue.TypeRSSRefresh:
		handler = h.RSSRefresh
	case queue.TypeMediaProcess:
		handler = h.MediaProcess
	case queue.TypeTopicSuggestion:
		handler = h.TopicSuggestion
	case queue.TypeEngagementPull:
		handler = h.EngagementPull
	case queue.TypePerformanceOptimize:
		handler = h.PerformanceOptimize
	default:
		return nil, services.Wrap(services.ErrUnsupportedTaskType, "executor", "dispatch",
			fmt.Sprintf("no handler for task type %q", taskType), nil)
	}
	if handler == nil {
		return nil, services.Wrap(services.ErrConfiguration, "executor", "dispatch",
			fmt.Sprintf("handler for %s is not configured", taskType), nil)
	}
	return handler, nil
}

// Health reports each configured handler's readiness, keyed by task type.
func (h Handlers) Health(ctx context.Context) map[queue.TaskType]stage.Health {
	out := make(map[queue.TaskType]stage.Health)
	for _, taskType := range queue.KnownTaskTypes() {
		handler, err := h.Lookup(taskType)
		if err != nil {
			out[taskType] = stage.NotConfigured(string(taskType))
			continue
		}
		out[taskType] = handler.HealthCheck(ctx)
	}
	return out
}
