package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Orchestrator contains cycle timing, weekly windows, and batch limits.
type Orchestrator struct {
	Timezone                    string  `toml:"timezone"`
	CycleSchedule               string  `toml:"cycle_schedule"`
	RunOnStart                  bool    `toml:"run_on_start"`
	TopicWindowStartHour        int     `toml:"topic_window_start_hour"`
	TopicWindowEndHour          int     `toml:"topic_window_end_hour"`
	OptimizationWindowStartHour int     `toml:"optimization_window_start_hour"`
	OptimizationWindowEndHour   int     `toml:"optimization_window_end_hour"`
	MediaBatchSize              int     `toml:"media_batch_size"`
	EmbeddingBatchSize          int     `toml:"embedding_batch_size"`
	EngagementMinAgeHours       int     `toml:"engagement_min_age_hours"`
	EngagementBatchSize         int     `toml:"engagement_batch_size"`
	DefaultPostingTime          string  `toml:"default_posting_time"`
	DuplicateThreshold          float64 `toml:"duplicate_threshold"`
}

// Generator selects the completion provider used for content generation.
type Generator struct {
	Provider string `toml:"provider"`
}

// LLM contains OpenRouter-compatible chat completion settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Anthropic contains settings for the Anthropic Messages API provider.
type Anthropic struct {
	APIKey     string `toml:"api_key"`
	Model      string `toml:"model"`
	MaxTokens  int    `toml:"max_tokens"`
	UseBedrock bool   `toml:"use_bedrock"`
	AWSRegion  string `toml:"aws_region"`
	AWSProfile string `toml:"aws_profile"`
}

// Publisher contains credentials for the social posting API.
type Publisher struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Embeddings contains settings for the remote embeddings endpoint. When no
// API key is configured, lexical fingerprints are used instead.
type Embeddings struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Feeds contains RSS fetcher settings.
type Feeds struct {
	RequestTimeout    int    `toml:"request_timeout"`
	UserAgent         string `toml:"user_agent"`
	MaxItemsPerSource int    `toml:"max_items_per_source"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	CycleSummary   bool   `toml:"cycle_summary"`
	TaskFailures   bool   `toml:"task_failures"`
}

// Metrics controls the Prometheus endpoint on the API server.
type Metrics struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for postpilot.
//
// Configuration sections by subsystem:
//   - Paths: database/log directories and API bind address
//   - Orchestrator: cycle schedule, operating timezone, weekly windows, batch sizes
//   - Generator: which completion provider generates content
//   - LLM: OpenRouter-compatible completion settings
//   - Anthropic: Anthropic Messages API settings (direct or Bedrock)
//   - Publisher: social posting API credentials
//   - Embeddings: remote embeddings endpoint
//   - Feeds: RSS fetcher behaviour
//   - Notifications: ntfy push notification settings
//   - Metrics: Prometheus endpoint toggle
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Orchestrator  Orchestrator  `toml:"orchestrator"`
	Generator     Generator     `toml:"generator"`
	LLM           LLM           `toml:"llm"`
	Anthropic     Anthropic     `toml:"anthropic"`
	Publisher     Publisher     `toml:"publisher"`
	Embeddings    Embeddings    `toml:"embeddings"`
	Feeds         Feeds         `toml:"feeds"`
	Notifications Notifications `toml:"notifications"`
	Metrics       Metrics       `toml:"metrics"`
	Logging       Logging       `toml:"logging"`

	location *time.Location
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the config file, applies defaults for everything it leaves out,
// then normalizes and validates the result. It returns the path it used and
// whether that file existed; a missing file yields the defaults.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// decodeFile rejects unknown keys so a typo in a section name is reported
// instead of silently falling back to a default.
func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// resolveConfigPath honours an explicit path even when it does not exist
// yet. Otherwise it tries the user config, then ./postpilot.toml, and
// reports the user config path as missing when neither exists.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		exists, err := isFile(expanded)
		return expanded, exists, err
	}

	userPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	localPath, err := filepath.Abs("postpilot.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, localPath} {
		if ok, _ := isFile(candidate); ok {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	}
	return !info.IsDir(), nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "postpilot.db")
}

// DaemonLockPath returns the single-instance daemon lock file.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.DataDir, "postpilotd.lock")
}

// CycleLockPath returns the lock file that keeps cycles from overlapping
// across processes.
func (c *Config) CycleLockPath() string {
	return filepath.Join(c.Paths.DataDir, "cycle.lock")
}

// Location returns the canonical operating timezone. Configs that were not
// loaded through Load resolve the zone on demand and fall back to UTC.
func (c *Config) Location() *time.Location {
	if c == nil {
		return time.UTC
	}
	if c.location != nil {
		return c.location
	}
	if loc, err := time.LoadLocation(strings.TrimSpace(c.Orchestrator.Timezone)); err == nil {
		return loc
	}
	return time.UTC
}

// expandPath resolves a leading "~" or "~/" against the home directory and
// makes the result absolute.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, strings.TrimPrefix(value[1:], "/"))
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// ExpandPath applies the config path rules to paths given on the command line.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

// CreateSample writes the annotated sample config to path, creating its
// directory.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the completion settings shared by generator and vision.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the OpenRouter-compatible connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}

// PublisherConfigured reports whether publisher credentials are present.
func (c *Config) PublisherConfigured() bool {
	return strings.TrimSpace(c.Publisher.APIKey) != "" && strings.TrimSpace(c.Publisher.BaseURL) != ""
}

// RemoteEmbeddingsEnabled reports whether the embeddings endpoint is usable.
func (c *Config) RemoteEmbeddingsEnabled() bool {
	return strings.TrimSpace(c.Embeddings.APIKey) != "" && strings.TrimSpace(c.Embeddings.BaseURL) != ""
}
