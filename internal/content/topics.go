package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/viadorer/orchestrator-sub001/internal/database"
	"github.com/viadorer/orchestrator-sub001/internal/services"
)

// AddTopic stores a topic suggestion.
func (s *Store) AddTopic(ctx context.Context, projectID, topic, rationale, sourceTaskID string) (*Topic, error) {
	topic = strings.TrimSpace(topic)
	if strings.TrimSpace(projectID) == "" || topic == "" {
		return nil, fmt.Errorf("%w: project id and topic are required", services.ErrValidation)
	}
	t := &Topic{
		ID:           uuid.NewString(),
		ProjectID:    projectID,
		Topic:        topic,
		Rationale:    strings.TrimSpace(rationale),
		SourceTaskID: sourceTaskID,
		CreatedAt:    s.now().UTC(),
	}
	if _, err := s.db.ExecWithRetry(ctx,
		`INSERT INTO topic_suggestions (id, project_id, topic, rationale, source_task_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Topic, database.NullableString(t.Rationale), database.NullableString(t.SourceTaskID),
		database.FormatTime(t.CreatedAt),
	); err != nil {
		return nil, fmt.Errorf("insert topic suggestion: %w", err)
	}
	return t, nil
}

// ListTopics returns a project's suggestions newest first.
func (s *Store) ListTopics(ctx context.Context, projectID string, limit int) ([]*Topic, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, topic, COALESCE(rationale, ''), COALESCE(source_task_id, ''), created_at
         FROM topic_suggestions WHERE project_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()
	var topics []*Topic
	for rows.Next() {
		var (
			t          Topic
			createdRaw string
		)
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Topic, &t.Rationale, &t.SourceTaskID, &createdRaw); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = database.ParseTime(createdRaw); err != nil {
			return nil, err
		}
		topics = append(topics, &t)
	}
	return topics, rows.Err()
}
