package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/viadorer/orchestrator-sub001/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndUsesEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OPENROUTER_API_KEY", "env-llm-key")
	t.Setenv("POSTPILOT_PUBLISHER_API_KEY", "env-publisher-key")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "postpilot")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "postpilot.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
	if cfg.LLM.APIKey != "env-llm-key" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if !cfg.PublisherConfigured() {
		t.Fatal("expected publisher configured from env key and default base url")
	}
	if cfg.RemoteEmbeddingsEnabled() {
		t.Fatal("expected remote embeddings disabled without api key")
	}
	if cfg.Location().String() != "Europe/Prague" {
		t.Fatalf("unexpected location %q", cfg.Location())
	}
	if cfg.Orchestrator.MediaBatchSize != 10 || cfg.Orchestrator.EmbeddingBatchSize != 20 {
		t.Fatalf("unexpected batch defaults: %+v", cfg.Orchestrator)
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "postpilot.toml")
	content := `
[paths]
data_dir = "` + filepath.ToSlash(filepath.Join(dir, "data")) + `"

[orchestrator]
timezone = "America/New_York"
cycle_schedule = "*/30 * * * *"
topic_window_start_hour = 9
topic_window_end_hour = 11

[generator]
provider = "anthropic"

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Location().String() != "America/New_York" {
		t.Fatalf("unexpected location %q", cfg.Location())
	}
	if cfg.Orchestrator.CycleSchedule != "*/30 * * * *" {
		t.Fatalf("unexpected schedule %q", cfg.Orchestrator.CycleSchedule)
	}
	if cfg.Generator.Provider != config.ProviderAnthropic {
		t.Fatalf("unexpected provider %q", cfg.Generator.Provider)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected lowercased logging settings, got %+v", cfg.Logging)
	}
	if cfg.Orchestrator.TopicWindowStartHour != 9 || cfg.Orchestrator.TopicWindowEndHour != 11 {
		t.Fatalf("unexpected topic window %+v", cfg.Orchestrator)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[orchestrator]\nquota_mode = \"strict\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"bad cron", func(c *config.Config) { c.Orchestrator.CycleSchedule = "every hour" }, "cycle_schedule"},
		{"inverted topic window", func(c *config.Config) { c.Orchestrator.TopicWindowStartHour = 12; c.Orchestrator.TopicWindowEndHour = 10 }, "topic_window"},
		{"window past midnight", func(c *config.Config) { c.Orchestrator.OptimizationWindowEndHour = 25 }, "optimization_window"},
		{"zero media batch", func(c *config.Config) { c.Orchestrator.MediaBatchSize = 0 }, "media_batch_size"},
		{"bad posting time", func(c *config.Config) { c.Orchestrator.DefaultPostingTime = "9am" }, "default_posting_time"},
		{"unknown provider", func(c *config.Config) { c.Generator.Provider = "cohere" }, "generator.provider"},
		{"bedrock without region", func(c *config.Config) {
			c.Generator.Provider = config.ProviderAnthropic
			c.Anthropic.UseBedrock = true
		}, "aws_region"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestSampleConfigParsesAndValidates(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}
