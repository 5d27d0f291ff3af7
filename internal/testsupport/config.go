package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/viadorer/orchestrator-sub001/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Credentials are cleared so collaborators stay offline unless a test opts in.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.LLM.APIKey = ""
	cfgVal.Anthropic.APIKey = ""
	cfgVal.Publisher.APIKey = ""
	cfgVal.Embeddings.APIKey = ""
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTimezone sets the canonical operating timezone.
func WithTimezone(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Orchestrator.Timezone = name
	}
}

// WithPublisher points the publisher at baseURL with a test key.
func WithPublisher(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Publisher.BaseURL = baseURL
		b.cfg.Publisher.APIKey = "test-publisher-key"
	}
}

// WithLLM points the OpenRouter-compatible client at baseURL with a test key.
func WithLLM(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = baseURL
		b.cfg.LLM.APIKey = "test-llm-key"
	}
}

// WithNtfy enables notifications against the given topic URL.
func WithNtfy(topicURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topicURL
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
