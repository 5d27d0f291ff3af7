package content

import (
	"strings"
	"time"
)

// Status is the review/publish state of a content item.
type Status string

const (
	StatusReview        Status = "review"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
	StatusPublished     Status = "published"
	StatusPublishFailed Status = "publish_failed"
)

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	switch s := Status(strings.ToLower(strings.TrimSpace(value))); s {
	case StatusReview, StatusApproved, StatusRejected, StatusPublished, StatusPublishFailed:
		return s, true
	default:
		return "", false
	}
}

// Engagement is a snapshot of post metrics reported by the publisher.
type Engagement struct {
	Impressions int `json:"impressions"`
	Likes       int `json:"likes"`
	Comments    int `json:"comments"`
	Shares      int `json:"shares"`
	Clicks      int `json:"clicks"`
}

// Score folds engagement into one comparable number.
func (e Engagement) Score() float64 {
	return float64(e.Likes) + 2*float64(e.Comments) + 3*float64(e.Shares) + 0.5*float64(e.Clicks)
}

// Item is a generated or manually entered post.
type Item struct {
	ID                  string      `json:"id"`
	ProjectID           string      `json:"project_id"`
	Platform            string      `json:"platform"`
	ContentType         string      `json:"content_type,omitempty"`
	Topic               string      `json:"topic,omitempty"`
	Body                string      `json:"body"`
	Hashtags            []string    `json:"hashtags,omitempty"`
	MediaURL            string      `json:"media_url,omitempty"`
	Status              Status      `json:"status"`
	Score               float64     `json:"ai_score"`
	SourceTaskID        string      `json:"source_task_id,omitempty"`
	ExternalID          string      `json:"external_id,omitempty"`
	PublishError        string      `json:"publish_error,omitempty"`
	PublishedAt         time.Time   `json:"published_at,omitzero"`
	Engagement          *Engagement `json:"engagement,omitempty"`
	EngagementUpdatedAt time.Time   `json:"engagement_updated_at,omitzero"`
	Embedding           []float64   `json:"-"`
	EmbeddedAt          time.Time   `json:"embedded_at,omitzero"`
	DuplicateOf         string      `json:"duplicate_of,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// NewItem carries creation input.
type NewItem struct {
	ProjectID    string
	Platform     string
	ContentType  string
	Topic        string
	Body         string
	Hashtags     []string
	MediaURL     string
	Score        float64
	SourceTaskID string
	Status       Status
}

// ItemFilter narrows ListItems results.
type ItemFilter struct {
	ProjectID string
	Status    Status
	Limit     int
}

// MediaAsset is an uploaded image awaiting or after vision tagging.
type MediaAsset struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	URL          string    `json:"url"`
	Processed    bool      `json:"processed"`
	Tags         []string  `json:"tags,omitempty"`
	Description  string    `json:"description,omitempty"`
	ErrorMessage string    `json:"error,omitempty"`
	ProcessedAt  time.Time `json:"processed_at,omitzero"`
	CreatedAt    time.Time `json:"created_at"`
}

// Topic is a suggested post topic.
type Topic struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Topic        string    `json:"topic"`
	Rationale    string    `json:"rationale,omitempty"`
	SourceTaskID string    `json:"source_task_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
