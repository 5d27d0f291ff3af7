package config

const (
	defaultConfigPath                  = "~/.config/postpilot/config.toml"
	defaultDataDir                     = "~/.local/share/postpilot"
	defaultLogDir                      = "~/.local/share/postpilot/logs"
	defaultAPIBind                     = "127.0.0.1:7488"
	defaultTimezone                    = "Europe/Prague"
	defaultCycleSchedule               = "0 * * * *"
	defaultTopicWindowStartHour        = 8
	defaultTopicWindowEndHour          = 10
	defaultOptimizationWindowStartHour = 8
	defaultOptimizationWindowEndHour   = 10
	defaultMediaBatchSize              = 10
	defaultEmbeddingBatchSize          = 20
	defaultEngagementMinAgeHours       = 24
	defaultEngagementBatchSize         = 50
	defaultPostingTime                 = "09:00"
	defaultDuplicateThreshold          = 0.92
	defaultGeneratorProvider           = ProviderOpenRouter
	defaultLLMBaseURL                  = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                    = "google/gemini-2.5-flash"
	defaultLLMReferer                  = "https://github.com/viadorer/orchestrator-sub001"
	defaultLLMTitle                    = "postpilot"
	defaultLLMTimeoutSeconds           = 60
	defaultAnthropicModel              = "claude-sonnet-4-20250514"
	defaultAnthropicMaxTokens          = 2048
	defaultPublisherBaseURL            = "https://getlate.dev/api/v1"
	defaultPublisherTimeoutSeconds     = 30
	defaultEmbeddingsBaseURL           = "https://api.openai.com/v1/embeddings"
	defaultEmbeddingsModel             = "text-embedding-3-small"
	defaultEmbeddingsTimeoutSeconds    = 30
	defaultFeedRequestTimeout          = 20
	defaultFeedUserAgent               = "postpilot-feeds/1.0"
	defaultFeedMaxItemsPerSource       = 25
	defaultNotifyRequestTimeout        = 10
	defaultLogFormat                   = "console"
	defaultLogLevel                    = "info"
)

// Supported content generation providers.
const (
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Orchestrator: Orchestrator{
			Timezone:                    defaultTimezone,
			CycleSchedule:               defaultCycleSchedule,
			TopicWindowStartHour:        defaultTopicWindowStartHour,
			TopicWindowEndHour:          defaultTopicWindowEndHour,
			OptimizationWindowStartHour: defaultOptimizationWindowStartHour,
			OptimizationWindowEndHour:   defaultOptimizationWindowEndHour,
			MediaBatchSize:              defaultMediaBatchSize,
			EmbeddingBatchSize:          defaultEmbeddingBatchSize,
			EngagementMinAgeHours:       defaultEngagementMinAgeHours,
			EngagementBatchSize:         defaultEngagementBatchSize,
			DefaultPostingTime:          defaultPostingTime,
			DuplicateThreshold:          defaultDuplicateThreshold,
		},
		Generator: Generator{
			Provider: defaultGeneratorProvider,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Anthropic: Anthropic{
			Model:     defaultAnthropicModel,
			MaxTokens: defaultAnthropicMaxTokens,
		},
		Publisher: Publisher{
			BaseURL:        defaultPublisherBaseURL,
			TimeoutSeconds: defaultPublisherTimeoutSeconds,
		},
		Embeddings: Embeddings{
			BaseURL:        defaultEmbeddingsBaseURL,
			Model:          defaultEmbeddingsModel,
			TimeoutSeconds: defaultEmbeddingsTimeoutSeconds,
		},
		Feeds: Feeds{
			RequestTimeout:    defaultFeedRequestTimeout,
			UserAgent:         defaultFeedUserAgent,
			MaxItemsPerSource: defaultFeedMaxItemsPerSource,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			CycleSummary:   true,
			TaskFailures:   true,
		},
		Metrics: Metrics{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
