package generator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/viadorer/orchestrator-sub001/internal/content"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/projects"
	"github.com/viadorer/orchestrator-sub001/internal/queue"
	"github.com/viadorer/orchestrator-sub001/internal/services"
	"github.com/viadorer/orchestrator-sub001/internal/stage"
)

const (
	recentTopicLimit = 20
	mediaOptionLimit = 12
	mediaNone        = "none"
)

// ProjectReader loads project records.
type ProjectReader interface {
	Get(ctx context.Context, id string) (*projects.Project, error)
}

// ContentWriter is the slice of the content store the handlers use.
type ContentWriter interface {
	CreateItem(ctx context.Context, input content.NewItem) (*content.Item, error)
	RecentTopics(ctx context.Context, projectID string, limit int) ([]string, error)
	ListMedia(ctx context.Context, projectID string, limit int) ([]*content.MediaAsset, error)
	AddTopic(ctx context.Context, projectID, topic, rationale, sourceTaskID string) (*content.Topic, error)
}

// GenerateResult is stored on completed generate_content tasks.
type GenerateResult struct {
	ContentID string         `json:"content_id"`
	Status    content.Status `json:"status"`
	Score     float64        `json:"score"`
	Platform  string         `json:"platform"`
}

// TopicResult is stored on completed topic_suggestion tasks.
type TopicResult struct {
	Suggested int      `json:"suggested"`
	Topics    []string `json:"topics"`
}

// Handler executes generate_content and topic_suggestion tasks.
type Handler struct {
	gen                *Generator
	projects           ProjectReader
	content            ContentWriter
	duplicateThreshold float64
	logger             *slog.Logger
}

// NewHandler binds the generator to the project and content stores.
func NewHandler(gen *Generator, projectStore ProjectReader, contentStore ContentWriter, duplicateThreshold float64, logger *slog.Logger) *Handler {
	return &Handler{
		gen:                gen,
		projects:           projectStore,
		content:            contentStore,
		duplicateThreshold: duplicateThreshold,
		logger:             logging.NewComponentLogger(logger, "generator"),
	}
}

// Posts returns the generate_content handler.
func (h *Handler) Posts() stage.Handler { return postHandler{h} }

// Topics returns the topic_suggestion handler.
func (h *Handler) Topics() stage.Handler { return topicHandler{h} }

type postHandler struct{ *Handler }

func (h postHandler) Execute(ctx context.Context, task *queue.Task) (any, error) {
	params, err := queue.DecodeGenerateContent(task.Params)
	if err != nil {
		return nil, stage.InvalidParams(string(task.Type), err)
	}
	project, err := h.loadProject(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}
	cfg := project.Config
	if params.ContentStrategy == "" {
		params.ContentStrategy = cfg.ContentStrategy
	}
	if params.MediaStrategy == "" {
		params.MediaStrategy = cfg.MediaStrategy
	}

	req := Request{
		ProjectName:     project.Name,
		Platform:        params.Platform,
		ContentType:     params.ContentType,
		Topic:           params.Topic,
		Notes:           params.Notes,
		ContentStrategy: params.ContentStrategy,
		MediaStrategy:   params.MediaStrategy,
		StrategyWeights: project.StrategyWeights,
	}
	if req.Topic == "" {
		recent, err := h.content.RecentTopics(ctx, project.ID, recentTopicLimit)
		if err != nil {
			return nil, fmt.Errorf("load recent topics: %w", err)
		}
		req.RecentTopics = recent
	}
	if params.MediaStrategy != "" && params.MediaStrategy != mediaNone {
		media, err := h.mediaOptions(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		req.Media = media
	}

	out, err := h.gen.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	status := content.StatusReview
	if cfg.AutoPublish && out.Score >= cfg.AutoPublishThreshold {
		status = content.StatusApproved
	}
	item, err := h.content.CreateItem(ctx, content.NewItem{
		ProjectID:    project.ID,
		Platform:     params.Platform,
		ContentType:  params.ContentType,
		Topic:        out.Topic,
		Body:         out.Text,
		Hashtags:     out.Hashtags,
		MediaURL:     out.MediaURL,
		Score:        out.Score,
		SourceTaskID: task.ID,
		Status:       status,
	})
	if err != nil {
		return nil, fmt.Errorf("store generated content: %w", err)
	}
	h.logger.Info("content generated",
		logging.Project(project.ID),
		logging.Task(task.ID),
		logging.String("content_id", item.ID),
		logging.String("content_status", string(item.Status)),
		logging.Float64("score", item.Score),
	)
	return GenerateResult{ContentID: item.ID, Status: item.Status, Score: item.Score, Platform: item.Platform}, nil
}

func (h postHandler) HealthCheck(ctx context.Context) stage.Health {
	return h.health("generate_content")
}

type topicHandler struct{ *Handler }

func (h topicHandler) Execute(ctx context.Context, task *queue.Task) (any, error) {
	if _, err := queue.DecodeProject(task.Params); err != nil {
		return nil, stage.InvalidParams(string(task.Type), err)
	}
	project, err := h.loadProject(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}
	recent, err := h.content.RecentTopics(ctx, project.ID, recentTopicLimit)
	if err != nil {
		return nil, fmt.Errorf("load recent topics: %w", err)
	}
	suggestions, err := h.gen.SuggestTopics(ctx, TopicRequest{
		ProjectName:     project.Name,
		ContentStrategy: project.Config.ContentStrategy,
		Recent:          recent,
		Threshold:       h.duplicateThreshold,
	})
	if err != nil {
		return nil, err
	}
	result := TopicResult{Topics: make([]string, 0, len(suggestions))}
	for _, s := range suggestions {
		if _, err := h.content.AddTopic(ctx, project.ID, s.Topic, s.Rationale, task.ID); err != nil {
			return nil, fmt.Errorf("store topic suggestion: %w", err)
		}
		result.Topics = append(result.Topics, s.Topic)
	}
	result.Suggested = len(result.Topics)
	return result, nil
}

func (h topicHandler) HealthCheck(ctx context.Context) stage.Health {
	return h.health("topic_suggestion")
}

func (h *Handler) loadProject(ctx context.Context, id string) (*projects.Project, error) {
	project, err := h.projects.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, services.Wrap(services.ErrConfiguration, "generator", "load project", fmt.Sprintf("project %s does not exist", id), nil)
	}
	return project, nil
}

func (h *Handler) mediaOptions(ctx context.Context, projectID string) ([]MediaOption, error) {
	assets, err := h.content.ListMedia(ctx, projectID, mediaOptionLimit)
	if err != nil {
		return nil, fmt.Errorf("load media: %w", err)
	}
	options := make([]MediaOption, 0, len(assets))
	for _, asset := range assets {
		if !asset.Processed || asset.ErrorMessage != "" {
			continue
		}
		options = append(options, MediaOption{URL: asset.URL, Description: asset.Description, Tags: asset.Tags})
	}
	return options, nil
}

func (h *Handler) health(name string) stage.Health {
	if h.gen == nil || h.gen.completer == nil {
		return stage.Unhealthy(name, "no completion provider configured")
	}
	if c, ok := h.gen.completer.(interface{ Configured() bool }); ok && !c.Configured() {
		return stage.Unhealthy(name, "completion provider missing api key")
	}
	return stage.Healthy(name)
}
