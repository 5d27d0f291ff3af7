package stage

import (
	"context"

	"github.com/viadorer/orchestrator-sub001/internal/queue"
)

// Handler runs one task type on behalf of the executor. The returned value is
// encoded as the task's result.
type Handler interface {
	Execute(context.Context, *queue.Task) (any, error)
	HealthCheck(context.Context) Health
}

// HandlerFunc adapts a function into a Handler that always reports healthy.
type HandlerFunc func(context.Context, *queue.Task) (any, error)

// Execute calls f.
func (f HandlerFunc) Execute(ctx context.Context, task *queue.Task) (any, error) {
	return f(ctx, task)
}

// HealthCheck reports the function as ready.
func (f HandlerFunc) HealthCheck(context.Context) Health {
	return Healthy("func")
}
