package projects

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/viadorer/orchestrator-sub001/internal/services"
)

// Posting frequencies understood by the scheduler.
const (
	FrequencyDaily        = "daily"
	FrequencyWeekdays     = "weekdays"
	FrequencyThreePerWeek = "three_per_week"
	FrequencyWeekly       = "weekly"
)

const (
	defaultFrequency       = FrequencyDaily
	defaultMaxPostsPerDay  = 1
	defaultThreshold       = 8.0
	defaultContentStrategy = "educational"
	defaultMediaStrategy   = "none"
	defaultPlatform        = "facebook"
	maxThreshold           = 10.0
)

// OrchestratorConfig is the per-project automation configuration.
type OrchestratorConfig struct {
	Enabled              bool     `json:"enabled"`
	PostingFrequency     string   `json:"posting_frequency"`
	PostingTimes         []string `json:"posting_times"`
	MaxPostsPerDay       int      `json:"max_posts_per_day"`
	AutoPublish          bool     `json:"auto_publish"`
	AutoPublishThreshold float64  `json:"auto_publish_threshold"`
	ContentStrategy      string   `json:"content_strategy"`
	MediaStrategy        string   `json:"media_strategy"`
	PauseWeekends        bool     `json:"pause_weekends"`
	Platforms            []string `json:"platforms"`
}

// rawConfig distinguishes missing keys from explicit zero values.
type rawConfig struct {
	Enabled              *bool    `json:"enabled"`
	PostingFrequency     *string  `json:"posting_frequency"`
	PostingTimes         []string `json:"posting_times"`
	MaxPostsPerDay       *int     `json:"max_posts_per_day"`
	AutoPublish          *bool    `json:"auto_publish"`
	AutoPublishThreshold *float64 `json:"auto_publish_threshold"`
	ContentStrategy      *string  `json:"content_strategy"`
	MediaStrategy        *string  `json:"media_strategy"`
	PauseWeekends        *bool    `json:"pause_weekends"`
	Platforms            []string `json:"platforms"`
}

// DefaultOrchestratorConfig returns the configuration used for missing keys.
// defaultPostingTime fills the single slot used when no times are configured.
func DefaultOrchestratorConfig(defaultPostingTime string) OrchestratorConfig {
	return OrchestratorConfig{
		PostingFrequency:     defaultFrequency,
		PostingTimes:         []string{defaultPostingTime},
		MaxPostsPerDay:       defaultMaxPostsPerDay,
		AutoPublishThreshold: defaultThreshold,
		ContentStrategy:      defaultContentStrategy,
		MediaStrategy:        defaultMediaStrategy,
		Platforms:            []string{defaultPlatform},
	}
}

// ParseOrchestratorConfig decodes and validates a stored configuration blob.
func ParseOrchestratorConfig(data []byte, defaultPostingTime string) (OrchestratorConfig, error) {
	cfg := DefaultOrchestratorConfig(defaultPostingTime)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return cfg, nil
	}

	var raw rawConfig
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return OrchestratorConfig{}, fmt.Errorf("%w: orchestrator config: %v", services.ErrValidation, err)
	}

	if raw.Enabled != nil {
		cfg.Enabled = *raw.Enabled
	}
	if raw.PostingFrequency != nil {
		cfg.PostingFrequency = strings.ToLower(strings.TrimSpace(*raw.PostingFrequency))
	}
	if len(raw.PostingTimes) > 0 {
		cfg.PostingTimes = raw.PostingTimes
	}
	if raw.MaxPostsPerDay != nil {
		cfg.MaxPostsPerDay = *raw.MaxPostsPerDay
	}
	if raw.AutoPublish != nil {
		cfg.AutoPublish = *raw.AutoPublish
	}
	if raw.AutoPublishThreshold != nil {
		cfg.AutoPublishThreshold = *raw.AutoPublishThreshold
	}
	if raw.ContentStrategy != nil && strings.TrimSpace(*raw.ContentStrategy) != "" {
		cfg.ContentStrategy = strings.TrimSpace(*raw.ContentStrategy)
	}
	if raw.MediaStrategy != nil && strings.TrimSpace(*raw.MediaStrategy) != "" {
		cfg.MediaStrategy = strings.TrimSpace(*raw.MediaStrategy)
	}
	if raw.PauseWeekends != nil {
		cfg.PauseWeekends = *raw.PauseWeekends
	}
	if len(raw.Platforms) > 0 {
		cfg.Platforms = raw.Platforms
	}

	if err := cfg.Normalize(); err != nil {
		return OrchestratorConfig{}, err
	}
	return cfg, nil
}

// Normalize trims values, sorts posting times, and validates the result.
func (c *OrchestratorConfig) Normalize() error {
	switch c.PostingFrequency {
	case "":
		c.PostingFrequency = defaultFrequency
	case FrequencyDaily, FrequencyWeekdays, FrequencyThreePerWeek, FrequencyWeekly:
	default:
		return fmt.Errorf("%w: unknown posting_frequency %q", services.ErrValidation, c.PostingFrequency)
	}
	times := make([]string, 0, len(c.PostingTimes))
	seen := make(map[string]struct{}, len(c.PostingTimes))
	for _, value := range c.PostingTimes {
		clock, err := ParseClock(value)
		if err != nil {
			return err
		}
		normalized := clock.String()
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		times = append(times, normalized)
	}
	sort.Strings(times) // HH:MM sorts lexically
	c.PostingTimes = times
	if c.MaxPostsPerDay < 0 {
		return fmt.Errorf("%w: max_posts_per_day must not be negative", services.ErrValidation)
	}
	if c.AutoPublishThreshold < 0 || c.AutoPublishThreshold > maxThreshold {
		return fmt.Errorf("%w: auto_publish_threshold must be within 0..%g", services.ErrValidation, maxThreshold)
	}
	platforms := c.Platforms[:0]
	for _, p := range c.Platforms {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			platforms = append(platforms, p)
		}
	}
	if len(platforms) == 0 {
		platforms = append(platforms, defaultPlatform)
	}
	c.Platforms = platforms
	return nil
}

// PostsOn reports whether the posting frequency allows posting on day.
func (c OrchestratorConfig) PostsOn(day time.Weekday) bool {
	switch c.PostingFrequency {
	case FrequencyWeekdays:
		return day != time.Saturday && day != time.Sunday
	case FrequencyThreePerWeek:
		return day == time.Monday || day == time.Wednesday || day == time.Friday
	case FrequencyWeekly:
		return day == time.Monday
	default:
		return true
	}
}

// PrimaryPlatform returns the first configured platform.
func (c OrchestratorConfig) PrimaryPlatform() string {
	if len(c.Platforms) == 0 {
		return defaultPlatform
	}
	return c.Platforms[0]
}

// Clock is a time of day in minutes after midnight.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses an HH:MM time of day.
func ParseClock(value string) (Clock, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return Clock{}, fmt.Errorf("%w: posting time %q must be HH:MM", services.ErrValidation, value)
	}
	return Clock{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the instant of this time of day on the calendar day of day,
// interpreted in day's location.
func (c Clock) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}
