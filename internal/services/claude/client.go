// Package claude adapts the Anthropic Messages API (direct or via AWS
// Bedrock) to the llm.Completer interface used by the content generator.
package claude

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/viadorer/orchestrator-sub001/internal/config"
	"github.com/viadorer/orchestrator-sub001/internal/services"
	"github.com/viadorer/orchestrator-sub001/internal/services/llm"
)

const jsonInstruction = "Respond with a single JSON object and no surrounding prose."

// Client issues JSON-only completions through the Anthropic SDK.
type Client struct {
	inner     anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

var _ llm.Completer = (*Client)(nil)

// NewClient builds a client from the [anthropic] config section. Extra
// request options are appended last (tests point the base URL at a stub).
func NewClient(ctx context.Context, cfg config.Anthropic, extra ...option.RequestOption) (*Client, error) {
	var opts []option.RequestOption
	model := anthropic.Model(strings.TrimSpace(cfg.Model))
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	if cfg.UseBedrock {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
		model = bedrockModel(model)
	} else {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			return nil, fmt.Errorf("%w: anthropic.api_key is required unless use_bedrock is set", services.ErrConfiguration)
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	opts = append(opts, extra...)

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &Client{
		inner:     anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Model returns the resolved model identifier.
func (c *Client) Model() anthropic.Model {
	return c.model
}

// CompleteJSON sends one system+user exchange and returns the concatenated
// text blocks. The text is expected to hold JSON; callers decode with
// llm.DecodeJSON.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(systemPrompt) == "" || strings.TrimSpace(userPrompt) == "" {
		return "", fmt.Errorf("%w: claude: system and user prompts are required", services.ErrValidation)
	}
	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: strings.TrimSpace(systemPrompt) + "\n\n" + jsonInstruction},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(strings.TrimSpace(userPrompt))),
		},
	})
	if err != nil {
		return "", classify(err)
	}

	var builder strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			builder.WriteString(variant.Text)
		}
	}
	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", fmt.Errorf("%w: claude: empty completion (stop_reason=%s)", services.ErrExternalService, resp.StopReason)
	}
	return text, nil
}

func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, "claude", "messages", "credentials rejected", err)
		case apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError:
			return services.Wrap(services.ErrTransient, "claude", "messages", "", err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "claude", "messages", "", err)
	}
	return services.Wrap(services.ErrExternalService, "claude", "messages", "", err)
}

// bedrockModel maps Anthropic model names to Bedrock cross-region inference
// profiles. Unknown names pass through unchanged.
func bedrockModel(model anthropic.Model) anthropic.Model {
	profiles := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}
	if profile, ok := profiles[model]; ok {
		return anthropic.Model(profile)
	}
	return model
}
