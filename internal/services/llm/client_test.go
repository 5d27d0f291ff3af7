package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/viadorer/orchestrator-sub001/internal/config"
	"github.com/viadorer/orchestrator-sub001/internal/services"
)

func writeCompletion(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	payload := map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": content}},
		},
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func newTestClient(url string, opts ...Option) *Client {
	opts = append([]Option{WithSleeper(func(time.Duration) {})}, opts...)
	return NewClient(config.LLMConfig{APIKey: "test", BaseURL: url, Model: "demo-model"}, opts...)
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Fatalf("authorization header = %q", got)
		}
		writeCompletion(t, w, `{"ok":true}`)
	}))
	defer server.Close()

	if err := newTestClient(server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, "```json\n{\"ok\":true}\n```")
	}))
	defer server.Close()

	if err := newTestClient(server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientUnauthorizedIsConfigurationError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CompleteJSON(context.Background(), "sys", "user")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected no retry on 401, got %d calls", calls.Load())
	}
}

func TestClientRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			writeCompletion(t, w, `{"text":"hello"}`)
		}
	}))
	defer server.Close()

	var slept []time.Duration
	client := newTestClient(server.URL,
		WithRetry(5, 100*time.Millisecond, time.Second),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	content, err := client.CompleteJSON(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if content != `{"text":"hello"}` {
		t.Fatalf("unexpected content %q", content)
	}
	if len(slept) != 2 {
		t.Fatalf("expected 2 sleeps, got %v", slept)
	}
	if slept[0] != time.Second {
		t.Fatalf("Retry-After should be capped at max delay, got %s", slept[0])
	}
	if slept[1] != 200*time.Millisecond {
		t.Fatalf("second backoff = %s, want 200ms", slept[1])
	}
}

func TestClientGivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeCompletion(t, w, "   ")
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, WithRetry(3, time.Millisecond, time.Millisecond)).
		CompleteJSON(context.Background(), "sys", "user")
	if err == nil || !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Fatalf("expected exhausted retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestClientExhaustedStatusKeepsClassification(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	var slept []time.Duration
	client := newTestClient(server.URL,
		WithRetry(2, time.Millisecond, time.Millisecond),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	_, err := client.CompleteJSON(context.Background(), "sys", "user")
	if err == nil || !strings.Contains(err.Error(), "failed after 2 attempts") {
		t.Fatalf("expected exhausted retries, got %v", err)
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient classification, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
	if len(slept) != 1 {
		t.Fatalf("expected no sleep after the last attempt, got %v", slept)
	}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient(config.LLMConfig{BaseURL: "http://127.0.0.1:1"})
	if _, err := client.CompleteJSON(context.Background(), "sys", "user"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if client.Configured() {
		t.Fatal("client without key should not report configured")
	}
}

func TestCompleteJSONWithImageSendsContentParts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		var parts []contentPart
		if err := json.Unmarshal(req.Messages[1].Content, &parts); err != nil {
			t.Fatalf("user content is not a part list: %v", err)
		}
		if len(parts) != 2 || parts[1].ImageURL == nil || parts[1].ImageURL.URL != "https://cdn.example/a.jpg" {
			t.Fatalf("unexpected parts %+v", parts)
		}
		writeCompletion(t, w, `{"tags":["office"]}`)
	}))
	defer server.Close()

	content, err := newTestClient(server.URL).CompleteJSONWithImage(context.Background(), "sys", "describe", "https://cdn.example/a.jpg")
	if err != nil {
		t.Fatalf("CompleteJSONWithImage: %v", err)
	}
	if !strings.Contains(content, "office") {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestDecodeJSON(t *testing.T) {
	var target struct {
		Text string `json:"text"`
	}
	cases := []string{
		`{"text":"a"}`,
		"```json\n{\"text\":\"a\"}\n```",
		"Sure! Here it is: {\"text\":\"a\"} Hope that helps.",
	}
	for _, input := range cases {
		target.Text = ""
		if err := DecodeJSON(input, &target); err != nil {
			t.Fatalf("DecodeJSON(%q): %v", input, err)
		}
		if target.Text != "a" {
			t.Fatalf("DecodeJSON(%q) text = %q", input, target.Text)
		}
	}
	if err := DecodeJSON("no json here", &target); err == nil {
		t.Fatal("expected error for prose-only payload")
	}
}
