package preflight

import (
	"context"
	"net/http"
	"strings"

	"github.com/viadorer/orchestrator-sub001/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Options controls which checks run.
type Options struct {
	// Probe sends one request to each configured remote service.
	Probe bool
	// HTTPClient overrides the client used by probes.
	HTTPClient *http.Client
}

// RunAll executes the checks that apply to cfg.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	switch cfg.Generator.Provider {
	case config.ProviderAnthropic:
		// Vision tagging still goes through the OpenRouter-compatible endpoint.
		results = append(results,
			checkAnthropicCredentials(cfg.Anthropic),
			checkLLMCredentials("Vision LLM", cfg.GetLLM()),
		)
	default:
		results = append(results, checkLLMCredentials("Content LLM", cfg.GetLLM()))
	}

	if !cfg.PublisherConfigured() {
		results = append(results, Result{Name: "Publisher", Detail: "api key missing; auto publish and engagement refresh are skipped"})
	} else if !opts.Probe {
		results = append(results, Result{Name: "Publisher", Passed: true, Detail: "configured"})
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		results = append(results, Result{Name: "Notifications", Passed: true, Detail: "disabled"})
	} else {
		results = append(results, Result{Name: "Notifications", Passed: true, Detail: cfg.Notifications.NtfyTopic})
	}

	if !opts.Probe {
		return results
	}

	if llmCfg := cfg.GetLLM(); llmCfg.APIKey != "" {
		results = append(results, CheckLLM(ctx, "OpenRouter API", llmCfg, opts.HTTPClient))
	}
	if cfg.PublisherConfigured() {
		results = append(results, CheckPublisher(ctx, cfg.Publisher, opts.HTTPClient))
	}
	if cfg.RemoteEmbeddingsEnabled() {
		results = append(results, CheckEmbeddings(ctx, cfg.Embeddings, opts.HTTPClient))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func checkLLMCredentials(name string, cfg config.LLMConfig) Result {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Model}
}

func checkAnthropicCredentials(cfg config.Anthropic) Result {
	const name = "Content LLM"
	if cfg.UseBedrock {
		return Result{Name: name, Passed: true, Detail: "bedrock (" + cfg.AWSRegion + ")"}
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "anthropic API key missing"}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Model}
}
