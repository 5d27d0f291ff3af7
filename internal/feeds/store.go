package feeds

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/viadorer/orchestrator-sub001/internal/database"
	"github.com/viadorer/orchestrator-sub001/internal/services"
)

// Source is a configured feed.
type Source struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	Name          string    `json:"name,omitempty"`
	URL           string    `json:"url"`
	Active        bool      `json:"active"`
	LastFetchedAt time.Time `json:"last_fetched_at,omitzero"`
	LastError     string    `json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Item is one stored feed entry.
type Item struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"source_id"`
	ProjectID   string    `json:"project_id"`
	GUID        string    `json:"guid"`
	Title       string    `json:"title"`
	Link        string    `json:"link,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at,omitzero"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists sources and items.
type Store struct {
	db  *database.DB
	now func() time.Time
}

// NewStore returns a feed store over db.
func NewStore(db *database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// AddSource registers a feed URL for a project.
func (s *Store) AddSource(ctx context.Context, projectID, name, rawURL string) (*Source, error) {
	projectID = strings.TrimSpace(projectID)
	rawURL = strings.TrimSpace(rawURL)
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id is required", services.ErrValidation)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: feed url %q must be absolute http(s)", services.ErrValidation, rawURL)
	}
	src := &Source{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      strings.TrimSpace(name),
		URL:       rawURL,
		Active:    true,
		CreatedAt: s.now().UTC(),
	}
	if _, err := s.db.ExecWithRetry(ctx,
		`INSERT INTO feed_sources (id, project_id, name, url, active, created_at) VALUES (?, ?, ?, ?, 1, ?)`,
		src.ID, src.ProjectID, database.NullableString(src.Name), src.URL, database.FormatTime(src.CreatedAt),
	); err != nil {
		return nil, fmt.Errorf("insert feed source: %w", err)
	}
	return src, nil
}

// ListSources returns sources, optionally only active ones.
func (s *Store) ListSources(ctx context.Context, projectID string, activeOnly bool) ([]*Source, error) {
	query := `SELECT id, project_id, COALESCE(name, ''), url, active, last_fetched_at, COALESCE(last_error, ''), created_at FROM feed_sources WHERE 1 = 1`
	var args []any
	if projectID != "" {
		query += ` AND project_id = ?`
		args = append(args, projectID)
	}
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY created_at ASC, rowid ASC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list feed sources: %w", err)
	}
	defer rows.Close()
	var out []*Source
	for rows.Next() {
		var (
			src        Source
			active     int
			fetchedRaw sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&src.ID, &src.ProjectID, &src.Name, &src.URL, &active, &fetchedRaw, &src.LastError, &createdRaw); err != nil {
			return nil, err
		}
		src.Active = active != 0
		if src.LastFetchedAt, err = database.ParseNullTime(fetchedRaw); err != nil {
			return nil, err
		}
		if src.CreatedAt, err = database.ParseTime(createdRaw); err != nil {
			return nil, err
		}
		out = append(out, &src)
	}
	return out, rows.Err()
}

// RecordFetch stores the outcome of a fetch attempt on the source row.
func (s *Store) RecordFetch(ctx context.Context, sourceID string, fetchErr error) error {
	var message any
	if fetchErr != nil {
		message = fetchErr.Error()
	}
	if _, err := s.db.ExecWithRetry(ctx,
		`UPDATE feed_sources SET last_fetched_at = ?, last_error = ? WHERE id = ?`,
		database.FormatTime(s.now()), message, sourceID,
	); err != nil {
		return fmt.Errorf("record feed fetch: %w", err)
	}
	return nil
}

// InsertItem stores an entry and reports whether it was new.
func (s *Store) InsertItem(ctx context.Context, item Item) (bool, error) {
	if strings.TrimSpace(item.GUID) == "" {
		return false, fmt.Errorf("%w: feed item guid is required", services.ErrValidation)
	}
	res, err := s.db.ExecWithRetry(ctx,
		`INSERT INTO feed_items (id, source_id, project_id, guid, title, link, summary, published_at, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (source_id, guid) DO NOTHING`,
		uuid.NewString(), item.SourceID, item.ProjectID, item.GUID,
		database.NullableString(item.Title), database.NullableString(item.Link), database.NullableString(item.Summary),
		database.NullableTime(item.PublishedAt), database.FormatTime(s.now()),
	)
	if err != nil {
		return false, fmt.Errorf("insert feed item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListItems returns a project's newest items.
func (s *Store) ListItems(ctx context.Context, projectID string, limit int) ([]*Item, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, project_id, guid, COALESCE(title, ''), COALESCE(link, ''), COALESCE(summary, ''), published_at, created_at
         FROM feed_items WHERE project_id = ? ORDER BY COALESCE(published_at, created_at) DESC LIMIT ?`,
		projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list feed items: %w", err)
	}
	defer rows.Close()
	var out []*Item
	for rows.Next() {
		var (
			item         Item
			publishedRaw sql.NullString
			createdRaw   string
		)
		if err := rows.Scan(&item.ID, &item.SourceID, &item.ProjectID, &item.GUID, &item.Title, &item.Link, &item.Summary, &publishedRaw, &createdRaw); err != nil {
			return nil, err
		}
		if item.PublishedAt, err = database.ParseNullTime(publishedRaw); err != nil {
			return nil, err
		}
		if item.CreatedAt, err = database.ParseTime(createdRaw); err != nil {
			return nil, err
		}
		out = append(out, &item)
	}
	return out, rows.Err()
}
