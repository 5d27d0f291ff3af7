package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/viadorer/orchestrator-sub001/internal/database"
	"github.com/viadorer/orchestrator-sub001/internal/services"
)

// Store persists content items, media assets and topic suggestions.
type Store struct {
	db  *database.DB
	now func() time.Time
}

// NewStore returns a content store over db.
func NewStore(db *database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock overrides the time source; it returns s for chaining.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

const itemColumns = "id, project_id, platform, content_type, topic, body, hashtags, media_url, status, ai_score, source_task_id, external_id, publish_error, published_at, engagement, engagement_updated_at, embedding, embedded_at, duplicate_of, created_at, updated_at"

// CreateItem inserts a content item. Status defaults to review.
func (s *Store) CreateItem(ctx context.Context, input NewItem) (*Item, error) {
	if strings.TrimSpace(input.ProjectID) == "" {
		return nil, fmt.Errorf("%w: project id is required", services.ErrValidation)
	}
	if strings.TrimSpace(input.Body) == "" {
		return nil, fmt.Errorf("%w: content body is required", services.ErrValidation)
	}
	status := input.Status
	if status == "" {
		status = StatusReview
	}
	platform := strings.ToLower(strings.TrimSpace(input.Platform))
	if platform == "" {
		platform = "facebook"
	}
	hashtags, err := encodeJSON(input.Hashtags)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	now := database.FormatTime(s.now())
	if _, err := s.db.ExecWithRetry(ctx,
		`INSERT INTO content_items (id, project_id, platform, content_type, topic, body, hashtags, media_url, status, ai_score, source_task_id, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, input.ProjectID, platform,
		database.NullableString(input.ContentType), database.NullableString(input.Topic),
		input.Body, hashtags, database.NullableString(input.MediaURL),
		string(status), input.Score, database.NullableString(input.SourceTaskID),
		now, now,
	); err != nil {
		return nil, fmt.Errorf("insert content item: %w", err)
	}
	return s.GetItem(ctx, id)
}

// GetItem fetches an item. It returns nil, nil when missing.
func (s *Store) GetItem(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM content_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get content item %s: %w", id, err)
	}
	return item, nil
}

// ListItems returns items newest first.
func (s *Store) ListItems(ctx context.Context, filter ItemFilter) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM content_items WHERE 1 = 1`
	var args []any
	if filter.ProjectID != "" {
		query += ` AND project_id = ?`
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	return s.queryItems(ctx, query, args...)
}

// ListApproved returns a project's approved items, best score first.
func (s *Store) ListApproved(ctx context.Context, projectID string) ([]*Item, error) {
	return s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM content_items WHERE project_id = ? AND status = ? ORDER BY ai_score DESC, created_at ASC`,
		projectID, string(StatusApproved))
}

// ListForEngagement returns published items older than cutoff whose metrics
// are stale, least recently refreshed first.
func (s *Store) ListForEngagement(ctx context.Context, cutoff time.Time, limit int) ([]*Item, error) {
	return s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM content_items
         WHERE status = ? AND external_id IS NOT NULL AND published_at <= ?
         ORDER BY COALESCE(engagement_updated_at, '') ASC, published_at ASC
         LIMIT ?`,
		string(StatusPublished), database.FormatTime(cutoff), limit)
}

// ListUnembedded returns published items without an embedding.
func (s *Store) ListUnembedded(ctx context.Context, limit int) ([]*Item, error) {
	return s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM content_items
         WHERE status = ? AND embedding IS NULL
         ORDER BY published_at ASC, rowid ASC
         LIMIT ?`,
		string(StatusPublished), limit)
}

// ListEmbedded returns a project's embedded items, oldest first.
func (s *Store) ListEmbedded(ctx context.Context, projectID string) ([]*Item, error) {
	return s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM content_items
         WHERE project_id = ? AND embedding IS NOT NULL
         ORDER BY published_at ASC, rowid ASC`,
		projectID)
}

// ListPublishedSince returns a project's items published at or after since.
func (s *Store) ListPublishedSince(ctx context.Context, projectID string, since time.Time) ([]*Item, error) {
	return s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM content_items
         WHERE project_id = ? AND status = ? AND published_at >= ?
         ORDER BY published_at ASC`,
		projectID, string(StatusPublished), database.FormatTime(since))
}

// RecentTopics returns the topics of a project's latest items.
func (s *Store) RecentTopics(ctx context.Context, projectID string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT topic FROM (
             SELECT topic, created_at FROM content_items WHERE project_id = ? AND topic IS NOT NULL AND topic <> ''
             UNION ALL
             SELECT topic, created_at FROM topic_suggestions WHERE project_id = ?
         ) ORDER BY created_at DESC LIMIT ?`,
		projectID, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent topics: %w", err)
	}
	defer rows.Close()
	var topics []string
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}

// SetStatus performs a guarded review transition (approve or reject).
func (s *Store) SetStatus(ctx context.Context, id string, from, to Status) error {
	res, err := s.db.ExecWithRetry(ctx,
		`UPDATE content_items SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), database.FormatTime(s.now()), id, string(from))
	if err != nil {
		return fmt.Errorf("update content status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		item, getErr := s.GetItem(ctx, id)
		if getErr != nil {
			return getErr
		}
		if item == nil {
			return fmt.Errorf("%w: content item %s", services.ErrNotFound, id)
		}
		return fmt.Errorf("%w: content item %s is %s, expected %s", services.ErrInconsistent, id, item.Status, from)
	}
	return nil
}

// MarkPublished records a successful publish.
func (s *Store) MarkPublished(ctx context.Context, id, externalID string) error {
	now := database.FormatTime(s.now())
	_, err := s.db.ExecWithRetry(ctx,
		`UPDATE content_items SET status = ?, external_id = ?, publish_error = NULL, published_at = ?, updated_at = ? WHERE id = ?`,
		string(StatusPublished), database.NullableString(externalID), now, now, id)
	if err != nil {
		return fmt.Errorf("mark content published: %w", err)
	}
	return nil
}

// MarkPublishFailed records a failed publish attempt.
func (s *Store) MarkPublishFailed(ctx context.Context, id, message string) error {
	_, err := s.db.ExecWithRetry(ctx,
		`UPDATE content_items SET status = ?, publish_error = ?, updated_at = ? WHERE id = ?`,
		string(StatusPublishFailed), message, database.FormatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("mark content publish failed: %w", err)
	}
	return nil
}

// UpdateEngagement stores a metrics snapshot.
func (s *Store) UpdateEngagement(ctx context.Context, id string, engagement Engagement) error {
	encoded, err := json.Marshal(engagement)
	if err != nil {
		return fmt.Errorf("encode engagement: %w", err)
	}
	now := database.FormatTime(s.now())
	if _, err := s.db.ExecWithRetry(ctx,
		`UPDATE content_items SET engagement = ?, engagement_updated_at = ?, updated_at = ? WHERE id = ?`,
		string(encoded), now, now, id); err != nil {
		return fmt.Errorf("update engagement: %w", err)
	}
	return nil
}

// SaveEmbedding stores an item's vector and optional duplicate reference.
func (s *Store) SaveEmbedding(ctx context.Context, id string, vector []float64, duplicateOf string) error {
	encoded, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	now := database.FormatTime(s.now())
	if _, err := s.db.ExecWithRetry(ctx,
		`UPDATE content_items SET embedding = ?, embedded_at = ?, duplicate_of = ?, updated_at = ? WHERE id = ?`,
		string(encoded), now, database.NullableString(duplicateOf), now, id); err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query content items: %w", err)
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		item                                    Item
		contentType, topic, hashtags, mediaURL  sql.NullString
		status                                  string
		score                                   sql.NullFloat64
		sourceTask, externalID, publishErr      sql.NullString
		publishedRaw, engagementRaw, engagedRaw sql.NullString
		embeddingRaw, embeddedRaw, duplicateOf  sql.NullString
		createdRaw, updatedRaw                  string
	)
	if err := scanner.Scan(
		&item.ID, &item.ProjectID, &item.Platform, &contentType, &topic, &item.Body, &hashtags, &mediaURL,
		&status, &score, &sourceTask, &externalID, &publishErr, &publishedRaw, &engagementRaw, &engagedRaw,
		&embeddingRaw, &embeddedRaw, &duplicateOf, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	item.ContentType = contentType.String
	item.Topic = topic.String
	item.MediaURL = mediaURL.String
	item.Status = Status(status)
	item.Score = score.Float64
	item.SourceTaskID = sourceTask.String
	item.ExternalID = externalID.String
	item.PublishError = publishErr.String
	item.DuplicateOf = duplicateOf.String

	if err := decodeJSON(hashtags, &item.Hashtags); err != nil {
		return nil, fmt.Errorf("decode hashtags: %w", err)
	}
	if engagementRaw.Valid && engagementRaw.String != "" {
		item.Engagement = &Engagement{}
		if err := json.Unmarshal([]byte(engagementRaw.String), item.Engagement); err != nil {
			return nil, fmt.Errorf("decode engagement: %w", err)
		}
	}
	if err := decodeJSON(embeddingRaw, &item.Embedding); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}

	var err error
	if item.PublishedAt, err = database.ParseNullTime(publishedRaw); err != nil {
		return nil, err
	}
	if item.EngagementUpdatedAt, err = database.ParseNullTime(engagedRaw); err != nil {
		return nil, err
	}
	if item.EmbeddedAt, err = database.ParseNullTime(embeddedRaw); err != nil {
		return nil, err
	}
	if item.CreatedAt, err = database.ParseTime(createdRaw); err != nil {
		return nil, err
	}
	if item.UpdatedAt, err = database.ParseTime(updatedRaw); err != nil {
		return nil, err
	}
	return &item, nil
}

func encodeJSON(v []string) (any, error) {
	if len(v) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode list: %w", err)
	}
	return string(data), nil
}

func decodeJSON(raw sql.NullString, dst any) error {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw.String), dst)
}
