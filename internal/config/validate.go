package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOrchestrator(); err != nil {
		return err
	}
	if err := c.validateGenerator(); err != nil {
		return err
	}
	if err := c.validateAnthropic(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOrchestrator() error {
	o := c.Orchestrator
	if _, err := cron.ParseStandard(o.CycleSchedule); err != nil {
		return fmt.Errorf("orchestrator.cycle_schedule %q: %w", o.CycleSchedule, err)
	}
	if err := validateWindow("orchestrator.topic_window", o.TopicWindowStartHour, o.TopicWindowEndHour); err != nil {
		return err
	}
	if err := validateWindow("orchestrator.optimization_window", o.OptimizationWindowStartHour, o.OptimizationWindowEndHour); err != nil {
		return err
	}
	if err := ensurePositive(map[string]int{
		"orchestrator.media_batch_size":         o.MediaBatchSize,
		"orchestrator.embedding_batch_size":     o.EmbeddingBatchSize,
		"orchestrator.engagement_min_age_hours": o.EngagementMinAgeHours,
		"orchestrator.engagement_batch_size":    o.EngagementBatchSize,
	}); err != nil {
		return err
	}
	if _, err := time.Parse("15:04", o.DefaultPostingTime); err != nil {
		return fmt.Errorf("orchestrator.default_posting_time %q must be HH:MM", o.DefaultPostingTime)
	}
	if o.DuplicateThreshold <= 0 || o.DuplicateThreshold > 1 {
		return errors.New("orchestrator.duplicate_threshold must be in (0, 1]")
	}
	return nil
}

func validateWindow(name string, start, end int) error {
	if start < 0 || end > 24 || start >= end {
		return fmt.Errorf("%s must satisfy 0 <= start_hour < end_hour <= 24 (got %d-%d)", name, start, end)
	}
	return nil
}

func (c *Config) validateGenerator() error {
	switch c.Generator.Provider {
	case ProviderOpenRouter, ProviderAnthropic:
		return nil
	default:
		return fmt.Errorf("generator.provider %q must be %q or %q", c.Generator.Provider, ProviderOpenRouter, ProviderAnthropic)
	}
}

func (c *Config) validateAnthropic() error {
	if c.Generator.Provider != ProviderAnthropic {
		return nil
	}
	if c.Anthropic.UseBedrock && c.Anthropic.AWSRegion == "" {
		return errors.New("anthropic.aws_region must be set when anthropic.use_bedrock is true")
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	return ensurePositive(map[string]int{
		"llm.timeout_seconds":           c.LLM.TimeoutSeconds,
		"anthropic.max_tokens":          c.Anthropic.MaxTokens,
		"publisher.timeout_seconds":     c.Publisher.TimeoutSeconds,
		"embeddings.timeout_seconds":    c.Embeddings.TimeoutSeconds,
		"feeds.request_timeout":         c.Feeds.RequestTimeout,
		"feeds.max_items_per_source":    c.Feeds.MaxItemsPerSource,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}

func ensurePositive(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
