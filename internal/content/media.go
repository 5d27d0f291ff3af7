package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/viadorer/orchestrator-sub001/internal/database"
	"github.com/viadorer/orchestrator-sub001/internal/services"
)

const mediaColumns = "id, project_id, url, processed, tags, description, error_message, processed_at, created_at"

// AddMedia registers an asset for vision tagging.
func (s *Store) AddMedia(ctx context.Context, projectID, url string) (*MediaAsset, error) {
	projectID = strings.TrimSpace(projectID)
	url = strings.TrimSpace(url)
	if projectID == "" || url == "" {
		return nil, fmt.Errorf("%w: project id and url are required", services.ErrValidation)
	}
	asset := &MediaAsset{ID: uuid.NewString(), ProjectID: projectID, URL: url, CreatedAt: s.now().UTC()}
	if _, err := s.db.ExecWithRetry(ctx,
		`INSERT INTO media_assets (id, project_id, url, processed, created_at) VALUES (?, ?, ?, 0, ?)`,
		asset.ID, asset.ProjectID, asset.URL, database.FormatTime(asset.CreatedAt),
	); err != nil {
		return nil, fmt.Errorf("insert media asset: %w", err)
	}
	return asset, nil
}

// ListUnprocessedMedia returns the oldest unprocessed assets.
func (s *Store) ListUnprocessedMedia(ctx context.Context, limit int) ([]*MediaAsset, error) {
	return s.queryMedia(ctx,
		`SELECT `+mediaColumns+` FROM media_assets WHERE processed = 0 ORDER BY created_at ASC, rowid ASC LIMIT ?`,
		limit)
}

// ListMedia returns a project's assets newest first.
func (s *Store) ListMedia(ctx context.Context, projectID string, limit int) ([]*MediaAsset, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.queryMedia(ctx,
		`SELECT `+mediaColumns+` FROM media_assets WHERE project_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		projectID, limit)
}

// MarkMediaProcessed stores vision tags for an asset.
func (s *Store) MarkMediaProcessed(ctx context.Context, id string, tags []string, description string) error {
	encoded, err := encodeJSON(tags)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecWithRetry(ctx,
		`UPDATE media_assets SET processed = 1, tags = ?, description = ?, error_message = NULL, processed_at = ? WHERE id = ?`,
		encoded, database.NullableString(description), database.FormatTime(s.now()), id,
	); err != nil {
		return fmt.Errorf("mark media processed: %w", err)
	}
	return nil
}

// MarkMediaFailed records a tagging failure. The asset leaves the
// unprocessed backlog so one bad file cannot block the batch.
func (s *Store) MarkMediaFailed(ctx context.Context, id, message string) error {
	if _, err := s.db.ExecWithRetry(ctx,
		`UPDATE media_assets SET processed = 1, error_message = ?, processed_at = ? WHERE id = ?`,
		message, database.FormatTime(s.now()), id,
	); err != nil {
		return fmt.Errorf("mark media failed: %w", err)
	}
	return nil
}

func (s *Store) queryMedia(ctx context.Context, query string, args ...any) ([]*MediaAsset, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query media assets: %w", err)
	}
	defer rows.Close()
	var assets []*MediaAsset
	for rows.Next() {
		var (
			asset        MediaAsset
			processed    int
			tags         sql.NullString
			description  sql.NullString
			errorMessage sql.NullString
			processedRaw sql.NullString
			createdRaw   string
		)
		if err := rows.Scan(&asset.ID, &asset.ProjectID, &asset.URL, &processed, &tags, &description, &errorMessage, &processedRaw, &createdRaw); err != nil {
			return nil, err
		}
		asset.Processed = processed != 0
		asset.Description = description.String
		asset.ErrorMessage = errorMessage.String
		if tags.Valid && tags.String != "" {
			if err := json.Unmarshal([]byte(tags.String), &asset.Tags); err != nil {
				return nil, fmt.Errorf("decode media tags: %w", err)
			}
		}
		if asset.ProcessedAt, err = database.ParseNullTime(processedRaw); err != nil {
			return nil, err
		}
		if asset.CreatedAt, err = database.ParseTime(createdRaw); err != nil {
			return nil, err
		}
		assets = append(assets, &asset)
	}
	return assets, rows.Err()
}
