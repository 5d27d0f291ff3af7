// Package publisher talks to the third-party social posting API.
//
// Publish never returns a Go error: every outcome, including transport
// failures and a missing API key, is folded into a tagged Result so the
// auto-publish sweep can tally published, failed, and skipped items.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/viadorer/orchestrator-sub001/internal/config"
	"github.com/viadorer/orchestrator-sub001/internal/services"
)

// Payload is one post to publish.
type Payload struct {
	ProjectID string   `json:"project_id"`
	Platform  string   `json:"platform"`
	Text      string   `json:"text"`
	MediaURL  string   `json:"media_url,omitempty"`
	Hashtags  []string `json:"hashtags,omitempty"`
	AccountID string   `json:"account_id,omitempty"`
}

// Result is the tagged outcome of Publish.
type Result struct {
	OK         bool   `json:"ok"`
	ExternalID string `json:"external_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Err        string `json:"error,omitempty"`
	// Skipped marks results where nothing was attempted (no credentials).
	Skipped bool `json:"skipped,omitempty"`
}

// Account is a connected social account.
type Account struct {
	ID       string `json:"id"`
	Platform string `json:"platform"`
	Name     string `json:"name"`
}

// Engagement is the metrics snapshot for one published post.
type Engagement struct {
	Impressions int `json:"impressions"`
	Likes       int `json:"likes"`
	Comments    int `json:"comments"`
	Shares      int `json:"shares"`
	Clicks      int `json:"clicks"`
}

// Client is the HTTP client for the posting API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a client from the [publisher] section.
func NewClient(cfg config.Publisher, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: httpClient,
	}
}

// Configured reports whether credentials and an endpoint are present.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != "" && c.baseURL != ""
}

// Publish posts payload and reports the outcome.
func (c *Client) Publish(ctx context.Context, payload Payload) Result {
	if !c.Configured() {
		return Result{Skipped: true, Err: "publisher not configured"}
	}
	if strings.TrimSpace(payload.Text) == "" {
		return Result{Err: "empty post text"}
	}
	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/posts", payload, &resp); err != nil {
		return Result{Err: services.FailureMessage(err)}
	}
	if strings.TrimSpace(resp.ID) == "" {
		return Result{Status: resp.Status, Err: "publisher response missing post id"}
	}
	status := resp.Status
	if status == "" {
		status = "published"
	}
	return Result{OK: true, ExternalID: resp.ID, Status: status}
}

// ListAccounts returns the connected social accounts.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%w: publisher api key not set", services.ErrConfiguration)
	}
	var resp struct {
		Accounts []Account `json:"accounts"`
	}
	if err := c.do(ctx, http.MethodGet, "/accounts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

// FetchEngagement returns current metrics for a published post.
func (c *Client) FetchEngagement(ctx context.Context, externalID string) (Engagement, error) {
	if !c.Configured() {
		return Engagement{}, fmt.Errorf("%w: publisher api key not set", services.ErrConfiguration)
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return Engagement{}, fmt.Errorf("%w: external id required", services.ErrValidation)
	}
	var resp Engagement
	if err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(externalID)+"/analytics", nil, &resp); err != nil {
		return Engagement{}, err
	}
	return resp, nil
}

type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("publisher http %d: %s", e.status, e.body)
}

func (e *httpStatusError) Unwrap() error {
	switch {
	case e.status == http.StatusUnauthorized || e.status == http.StatusForbidden:
		return services.ErrConfiguration
	case e.status == http.StatusNotFound:
		return services.ErrNotFound
	case e.status == http.StatusTooManyRequests || e.status >= http.StatusInternalServerError:
		return services.ErrTransient
	default:
		return services.ErrExternalService
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode publisher request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build publisher request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "publisher", method+" "+path, "", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read publisher response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &httpStatusError{status: resp.StatusCode, body: strings.TrimSpace(string(data))}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode publisher response: %w", services.ErrExternalService, err)
	}
	return nil
}
