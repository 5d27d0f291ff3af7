package generator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/services"
	"github.com/viadorer/orchestrator-sub001/internal/services/llm"
	"github.com/viadorer/orchestrator-sub001/internal/textutil"
)

// platformLimits caps post length per platform, in runes.
var platformLimits = map[string]int{
	"x":         280,
	"twitter":   280,
	"instagram": 2200,
	"linkedin":  3000,
	"facebook":  5000,
}

const defaultLimit = 3000

// MediaOption is a processed media asset the model may attach.
type MediaOption struct {
	URL         string   `json:"url"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Request carries everything a single generation needs.
type Request struct {
	ProjectName     string
	Platform        string
	ContentType     string
	Topic           string
	Notes           string
	ContentStrategy string
	MediaStrategy   string
	StrategyWeights map[string]float64
	RecentTopics    []string
	Media           []MediaOption
}

// Output is the generated post.
type Output struct {
	Text     string   `json:"text"`
	Score    float64  `json:"score"`
	Topic    string   `json:"topic,omitempty"`
	MediaURL string   `json:"media_url,omitempty"`
	Hashtags []string `json:"hashtags,omitempty"`
}

// Suggestion is one proposed topic.
type Suggestion struct {
	Topic     string `json:"topic"`
	Rationale string `json:"rationale,omitempty"`
}

// TopicRequest drives SuggestTopics.
type TopicRequest struct {
	ProjectName     string
	ContentStrategy string
	Recent          []string
	Count           int
	// Threshold is the fingerprint similarity at or above which a
	// suggestion counts as a repeat.
	Threshold float64
}

// Generator produces posts and topic ideas.
type Generator struct {
	completer llm.Completer
	logger    *slog.Logger
}

// New constructs a generator backed by completer.
func New(completer llm.Completer, logger *slog.Logger) *Generator {
	return &Generator{completer: completer, logger: logging.NewComponentLogger(logger, "generator")}
}

type generatedPost struct {
	Text     string   `json:"text"`
	Score    float64  `json:"score"`
	Topic    string   `json:"topic"`
	MediaURL string   `json:"media_url"`
	Hashtags []string `json:"hashtags"`
}

// Generate writes one post for req.
func (g *Generator) Generate(ctx context.Context, req Request) (Output, error) {
	if g == nil || g.completer == nil {
		return Output{}, services.Wrap(services.ErrConfiguration, "generator", "generate", "no completion provider configured", nil)
	}
	raw, err := g.completer.CompleteJSON(ctx, postSystemPrompt, buildPostPrompt(req))
	if err != nil {
		return Output{}, services.Wrap(services.ErrExternalService, "generator", "complete", "", err)
	}
	var post generatedPost
	if err := llm.DecodeJSON(raw, &post); err != nil {
		return Output{}, services.Wrap(services.ErrExternalService, "generator", "decode", "model returned malformed JSON", err)
	}
	text := strings.TrimSpace(post.Text)
	if text == "" {
		return Output{}, services.Wrap(services.ErrExternalService, "generator", "decode", "model returned empty text", nil)
	}
	limit, ok := platformLimits[req.Platform]
	if !ok {
		limit = defaultLimit
	}
	out := Output{
		Text:     textutil.Truncate(text, limit),
		Score:    clampScore(post.Score),
		Topic:    strings.TrimSpace(post.Topic),
		Hashtags: textutil.NormalizeHashtags(post.Hashtags),
		MediaURL: pickMedia(post.MediaURL, req.Media),
	}
	if out.Topic == "" {
		out.Topic = req.Topic
	}
	g.logger.Debug("post generated",
		logging.String("platform", req.Platform),
		logging.Float64("score", out.Score),
		logging.Int("length", len([]rune(out.Text))),
	)
	return out, nil
}

// SuggestTopics asks for topic ideas and filters repeats.
func (g *Generator) SuggestTopics(ctx context.Context, req TopicRequest) ([]Suggestion, error) {
	if g == nil || g.completer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "generator", "suggest topics", "no completion provider configured", nil)
	}
	if req.Count <= 0 {
		req.Count = 5
	}
	raw, err := g.completer.CompleteJSON(ctx, topicSystemPrompt, buildTopicPrompt(req))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "generator", "complete", "", err)
	}
	var payload struct {
		Topics []Suggestion `json:"topics"`
	}
	if err := llm.DecodeJSON(raw, &payload); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "generator", "decode", "model returned malformed JSON", err)
	}

	known := append([]string(nil), req.Recent...)
	accepted := make([]Suggestion, 0, len(payload.Topics))
	for _, s := range payload.Topics {
		s.Topic = textutil.CollapseWhitespace(s.Topic)
		s.Rationale = strings.TrimSpace(s.Rationale)
		if s.Topic == "" {
			continue
		}
		if idx, score := textutil.MostSimilar(s.Topic, known); idx >= 0 && req.Threshold > 0 && score >= req.Threshold {
			g.logger.Debug("topic dropped as repeat",
				logging.String("topic", s.Topic),
				logging.String("similar_to", known[idx]),
				logging.Float64("similarity", score),
			)
			continue
		}
		known = append(known, s.Topic)
		accepted = append(accepted, s)
		if len(accepted) == req.Count {
			break
		}
	}
	return accepted, nil
}

func clampScore(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return math.Round(score*10) / 10
}

// pickMedia accepts the model's choice only when it names an offered asset.
func pickMedia(choice string, options []MediaOption) string {
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return ""
	}
	for _, option := range options {
		if option.URL == choice {
			return choice
		}
	}
	return ""
}

func describeWeights(weights map[string]float64) string {
	if len(weights) == 0 {
		return ""
	}
	parts := make([]string, 0, len(weights))
	for _, key := range sortedKeys(weights) {
		parts = append(parts, fmt.Sprintf("%s=%.2f", key, weights[key]))
	}
	return strings.Join(parts, ", ")
}
