// Package vision tags uploaded media assets through a multimodal completer so
// the content generator can pick matching images.
package vision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/viadorer/orchestrator-sub001/internal/content"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/queue"
	"github.com/viadorer/orchestrator-sub001/internal/services"
	"github.com/viadorer/orchestrator-sub001/internal/services/llm"
	"github.com/viadorer/orchestrator-sub001/internal/stage"
	"github.com/viadorer/orchestrator-sub001/internal/textutil"
)

const (
	systemPrompt = `You describe marketing images. Respond with JSON only:
{"description": "one sentence", "tags": ["up to 8 short lowercase tags"]}`
	userPrompt     = "Describe this image and tag its subjects, setting, and mood."
	maxTags        = 8
	maxDescription = 300
)

// MediaStore is the slice of the content store the tagger uses.
type MediaStore interface {
	ListUnprocessedMedia(ctx context.Context, limit int) ([]*content.MediaAsset, error)
	MarkMediaProcessed(ctx context.Context, id string, tags []string, description string) error
	MarkMediaFailed(ctx context.Context, id, message string) error
}

// BatchResult tallies one ProcessBatch call.
type BatchResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Tagger processes unprocessed media assets.
type Tagger struct {
	completer    llm.ImageCompleter
	store        MediaStore
	defaultLimit int
	logger       *slog.Logger
}

// New constructs a tagger. defaultLimit bounds task-driven batches that do
// not name their own limit.
func New(completer llm.ImageCompleter, store MediaStore, defaultLimit int, logger *slog.Logger) *Tagger {
	return &Tagger{
		completer:    completer,
		store:        store,
		defaultLimit: defaultLimit,
		logger:       logging.NewComponentLogger(logger, "vision"),
	}
}

// ProcessBatch tags at most limit assets. Per-asset failures are recorded on
// the asset and counted; only a failure to list the backlog is returned.
func (t *Tagger) ProcessBatch(ctx context.Context, limit int) (BatchResult, error) {
	var result BatchResult
	if limit <= 0 {
		return result, nil
	}
	if t.completer == nil {
		return result, services.Wrap(services.ErrConfiguration, "vision", "process batch", "no vision provider configured", nil)
	}
	assets, err := t.store.ListUnprocessedMedia(ctx, limit)
	if err != nil {
		return result, fmt.Errorf("list unprocessed media: %w", err)
	}
	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		tags, description, tagErr := t.tag(ctx, asset.URL)
		if tagErr != nil {
			result.Failed++
			logging.WarnWithContext(t.logger, "media tagging failed", "media_tag_failed",
				logging.String("media_id", asset.ID),
				logging.String(logging.FieldErrorHint, "check the asset URL is publicly reachable"),
				logging.String(logging.FieldImpact, "asset will not be offered to the generator"),
				logging.Error(tagErr),
			)
			if err := t.store.MarkMediaFailed(ctx, asset.ID, services.FailureMessage(tagErr)); err != nil {
				return result, fmt.Errorf("mark media failed: %w", err)
			}
			continue
		}
		if err := t.store.MarkMediaProcessed(ctx, asset.ID, tags, description); err != nil {
			return result, fmt.Errorf("mark media processed: %w", err)
		}
		result.Processed++
	}
	return result, nil
}

func (t *Tagger) tag(ctx context.Context, url string) ([]string, string, error) {
	raw, err := t.completer.CompleteJSONWithImage(ctx, systemPrompt, userPrompt, url)
	if err != nil {
		return nil, "", err
	}
	var payload struct {
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
	}
	if err := llm.DecodeJSON(raw, &payload); err != nil {
		return nil, "", fmt.Errorf("decode vision payload: %w", err)
	}
	tags := make([]string, 0, len(payload.Tags))
	for _, tag := range payload.Tags {
		tag = strings.ToLower(textutil.CollapseWhitespace(tag))
		if tag != "" && len(tags) < maxTags {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return nil, "", fmt.Errorf("%w: vision payload has no tags", services.ErrExternalService)
	}
	return tags, textutil.Truncate(textutil.CollapseWhitespace(payload.Description), maxDescription), nil
}

// Execute runs a media_process task.
func (t *Tagger) Execute(ctx context.Context, task *queue.Task) (any, error) {
	params, err := queue.DecodeBatch(task.Params, t.defaultLimit)
	if err != nil {
		return nil, stage.InvalidParams(string(task.Type), err)
	}
	return t.ProcessBatch(ctx, params.Limit)
}

// HealthCheck reports whether a vision provider is wired.
func (t *Tagger) HealthCheck(context.Context) stage.Health {
	if t.completer == nil {
		return stage.Unhealthy("media_process", "no vision provider configured")
	}
	if c, ok := t.completer.(interface{ Configured() bool }); ok && !c.Configured() {
		return stage.Unhealthy("media_process", "vision provider missing api key")
	}
	return stage.Healthy("media_process")
}
