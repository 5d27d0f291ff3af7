package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeOrchestrator(); err != nil {
		return err
	}
	c.normalizeGenerator()
	c.normalizeLLM()
	c.normalizeAnthropic()
	c.normalizePublisher()
	c.normalizeEmbeddings()
	c.normalizeFeeds()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("POSTPILOT_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeOrchestrator() error {
	o := &c.Orchestrator
	o.Timezone = strings.TrimSpace(o.Timezone)
	if o.Timezone == "" {
		o.Timezone = defaultTimezone
	}
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return fmt.Errorf("orchestrator.timezone: %w", err)
	}
	c.location = loc

	o.CycleSchedule = strings.TrimSpace(o.CycleSchedule)
	if o.CycleSchedule == "" {
		o.CycleSchedule = defaultCycleSchedule
	}
	o.DefaultPostingTime = strings.TrimSpace(o.DefaultPostingTime)
	if o.DefaultPostingTime == "" {
		o.DefaultPostingTime = defaultPostingTime
	}
	if o.DuplicateThreshold == 0 {
		o.DuplicateThreshold = defaultDuplicateThreshold
	}
	return nil
}

func (c *Config) normalizeGenerator() {
	c.Generator.Provider = strings.ToLower(strings.TrimSpace(c.Generator.Provider))
	if c.Generator.Provider == "" {
		c.Generator.Provider = defaultGeneratorProvider
	}
}

func (c *Config) normalizeLLM() {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = value
		}
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeAnthropic() {
	if strings.TrimSpace(c.Anthropic.APIKey) == "" {
		if value, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok {
			c.Anthropic.APIKey = value
		}
	}
	c.Anthropic.APIKey = strings.TrimSpace(c.Anthropic.APIKey)
	c.Anthropic.Model = strings.TrimSpace(c.Anthropic.Model)
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = defaultAnthropicModel
	}
	if c.Anthropic.MaxTokens <= 0 {
		c.Anthropic.MaxTokens = defaultAnthropicMaxTokens
	}
	c.Anthropic.AWSRegion = strings.TrimSpace(c.Anthropic.AWSRegion)
	c.Anthropic.AWSProfile = strings.TrimSpace(c.Anthropic.AWSProfile)
}

func (c *Config) normalizePublisher() {
	if strings.TrimSpace(c.Publisher.APIKey) == "" {
		if value, ok := os.LookupEnv("POSTPILOT_PUBLISHER_API_KEY"); ok {
			c.Publisher.APIKey = value
		}
	}
	c.Publisher.APIKey = strings.TrimSpace(c.Publisher.APIKey)
	c.Publisher.BaseURL = strings.TrimRight(strings.TrimSpace(c.Publisher.BaseURL), "/")
	if c.Publisher.TimeoutSeconds <= 0 {
		c.Publisher.TimeoutSeconds = defaultPublisherTimeoutSeconds
	}
}

func (c *Config) normalizeEmbeddings() {
	if strings.TrimSpace(c.Embeddings.APIKey) == "" {
		if value, ok := os.LookupEnv("EMBEDDINGS_API_KEY"); ok {
			c.Embeddings.APIKey = value
		}
	}
	c.Embeddings.APIKey = strings.TrimSpace(c.Embeddings.APIKey)
	c.Embeddings.BaseURL = strings.TrimSpace(c.Embeddings.BaseURL)
	c.Embeddings.Model = strings.TrimSpace(c.Embeddings.Model)
	if c.Embeddings.Model == "" {
		c.Embeddings.Model = defaultEmbeddingsModel
	}
	if c.Embeddings.TimeoutSeconds <= 0 {
		c.Embeddings.TimeoutSeconds = defaultEmbeddingsTimeoutSeconds
	}
}

func (c *Config) normalizeFeeds() {
	c.Feeds.UserAgent = strings.TrimSpace(c.Feeds.UserAgent)
	if c.Feeds.UserAgent == "" {
		c.Feeds.UserAgent = defaultFeedUserAgent
	}
	if c.Feeds.RequestTimeout <= 0 {
		c.Feeds.RequestTimeout = defaultFeedRequestTimeout
	}
	if c.Feeds.MaxItemsPerSource <= 0 {
		c.Feeds.MaxItemsPerSource = defaultFeedMaxItemsPerSource
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
