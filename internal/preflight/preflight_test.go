package preflight_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viadorer/orchestrator-sub001/internal/config"
	"github.com/viadorer/orchestrator-sub001/internal/preflight"
	"github.com/viadorer/orchestrator-sub001/internal/testsupport"
)

func byName(results []preflight.Result) map[string]preflight.Result {
	out := make(map[string]preflight.Result, len(results))
	for _, r := range results {
		out[r.Name] = r
	}
	return out
}

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, preflight.CheckDirectoryAccess("Data", dir).Passed)

	missing := preflight.CheckDirectoryAccess("Data", filepath.Join(dir, "nope"))
	assert.False(t, missing.Passed)
	assert.Contains(t, missing.Detail, "does not exist")

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Contains(t, preflight.CheckDirectoryAccess("Data", file).Detail, "not a directory")
}

func TestRunAllLocalReportsMissingCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	require.NoError(t, cfg.EnsureDirectories())

	results := byName(preflight.RunAll(context.Background(), cfg, preflight.Options{}))
	assert.True(t, results["Data directory"].Passed)
	assert.True(t, results["Log directory"].Passed)
	assert.False(t, results["Content LLM"].Passed)
	assert.False(t, results["Publisher"].Passed)
	assert.Equal(t, "disabled", results["Notifications"].Detail)

	failed := preflight.Failed(preflight.RunAll(context.Background(), cfg, preflight.Options{}))
	assert.Len(t, failed, 2)
}

func TestRunAllAnthropicAlsoChecksVisionLLM(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	require.NoError(t, cfg.EnsureDirectories())
	cfg.Generator.Provider = config.ProviderAnthropic
	cfg.Anthropic.APIKey = "sk-ant-test"

	results := byName(preflight.RunAll(context.Background(), cfg, preflight.Options{}))
	assert.True(t, results["Content LLM"].Passed)
	assert.False(t, results["Vision LLM"].Passed)
}

func TestRunAllProbesConfiguredServices(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/llm", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"ok":true}`}}},
		})
	})
	mux.HandleFunc("/publisher/accounts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-publisher-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accounts": []any{map[string]any{"id": "a1", "platform": "linkedin", "name": "Acme"}},
		})
	})
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []any{map[string]any{"index": 0, "embedding": []float64{0.1, 0.2, 0.3}}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := testsupport.NewConfig(t,
		testsupport.WithLLM(srv.URL+"/llm"),
		testsupport.WithPublisher(srv.URL+"/publisher"),
	)
	cfg.Embeddings.BaseURL = srv.URL + "/embeddings"
	cfg.Embeddings.APIKey = "test-embeddings-key"
	require.NoError(t, cfg.EnsureDirectories())

	results := preflight.RunAll(context.Background(), cfg, preflight.Options{Probe: true, HTTPClient: srv.Client()})
	assert.Empty(t, preflight.Failed(results))

	named := byName(results)
	assert.Equal(t, "API reachable", named["OpenRouter API"].Detail)
	assert.Equal(t, "1 connected accounts", named["Publisher API"].Detail)
	assert.Equal(t, "3 dimensions", named["Embeddings API"].Detail)
}

func TestCheckLLMReportsRejectedKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid key"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	result := preflight.CheckLLM(context.Background(), "OpenRouter API", config.LLMConfig{
		APIKey:  "bad",
		BaseURL: srv.URL,
		Model:   "test-model",
	}, srv.Client())
	assert.False(t, result.Passed)
	assert.Contains(t, result.Detail, "401")
}
