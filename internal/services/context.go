package services

import "context"

type contextKey string

const (
	taskIDKey    contextKey = "task_id"
	projectIDKey contextKey = "project_id"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithTaskID tags ctx with the task being executed.
func WithTaskID(ctx context.Context, id string) context.Context { return with(ctx, taskIDKey, id) }

// WithProjectID tags ctx with the project a task or cycle belongs to.
func WithProjectID(ctx context.Context, id string) context.Context {
	return with(ctx, projectIDKey, id)
}

// WithStage tags ctx with the running cycle stage.
func WithStage(ctx context.Context, stage string) context.Context { return with(ctx, stageKey, stage) }

// WithRequestID tags ctx with a correlation identifier (API request or cycle).
func WithRequestID(ctx context.Context, id string) context.Context {
	return with(ctx, requestIDKey, id)
}

func TaskIDFromContext(ctx context.Context) (string, bool)    { return lookup(ctx, taskIDKey) }
func ProjectIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, projectIDKey) }
func StageFromContext(ctx context.Context) (string, bool)     { return lookup(ctx, stageKey) }
func RequestIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, requestIDKey) }

// with leaves ctx untouched for empty values so an outer tag is not masked.
func with(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func lookup(ctx context.Context, key contextKey) (string, bool) {
	value, ok := ctx.Value(key).(string)
	return value, ok && value != ""
}
