// Package activity is the append-only audit log of orchestrator actions.
//
// Writers never depend on the log succeeding: BestEffort wraps any Appender,
// logs append failures and discards them.
package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/viadorer/orchestrator-sub001/internal/database"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/services"
)

// Actions recorded by the orchestrator.
const (
	ActionCycleCompleted   = "cycle_completed"
	ActionTaskCompleted    = "task_completed"
	ActionTaskFailed       = "task_failed"
	ActionTaskCreated      = "task_created"
	ActionPriorityTask     = "priority_task_created"
	ActionContentPublished = "content_published"
	ActionPublishFailed    = "content_publish_failed"
	ActionTopicsSuggested  = "topics_suggested"
	ActionStrategyUpdated  = "strategy_updated"
)

// Entry is one activity record.
type Entry struct {
	ID        int64           `json:"id"`
	ProjectID string          `json:"project_id,omitempty"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Appender accepts activity entries.
type Appender interface {
	Append(ctx context.Context, projectID, action string, details any) error
}

// Store persists entries in the activity_log table.
type Store struct {
	db  *database.DB
	now func() time.Time
}

// NewStore returns an activity store over db.
func NewStore(db *database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Append writes one entry. details is encoded as JSON.
func (s *Store) Append(ctx context.Context, projectID, action string, details any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return fmt.Errorf("%w: activity action is required", services.ErrValidation)
	}
	var encoded any
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("encode activity details: %w", err)
		}
		encoded = string(data)
	}
	if _, err := s.db.ExecWithRetry(ctx,
		`INSERT INTO activity_log (project_id, action, details, created_at) VALUES (?, ?, ?, ?)`,
		database.NullableString(projectID), action, encoded, database.FormatTime(s.now()),
	); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// List returns the newest entries, optionally scoped to a project.
func (s *Store) List(ctx context.Context, projectID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, COALESCE(project_id, ''), action, details, created_at FROM activity_log`
	var args []any
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var (
			entry      Entry
			details    sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.ProjectID, &entry.Action, &details, &createdRaw); err != nil {
			return nil, err
		}
		if details.Valid {
			entry.Details = json.RawMessage(details.String)
		}
		if entry.CreatedAt, err = database.ParseTime(createdRaw); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// BestEffort forwards entries to an Appender and swallows its failures.
type BestEffort struct {
	next   Appender
	logger *slog.Logger
}

// NewBestEffort wraps next. A nil next makes every append a no-op.
func NewBestEffort(next Appender, logger *slog.Logger) *BestEffort {
	return &BestEffort{next: next, logger: logging.NewComponentLogger(logger, "activity")}
}

// Record appends an entry, logging and discarding any failure or panic.
func (b *BestEffort) Record(ctx context.Context, projectID, action string, details any) {
	if b == nil || b.next == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.WarnWithContext(logging.WithContext(ctx, b.logger), "activity append panicked", "activity_append_failed",
				logging.String("action", action),
				logging.Any("panic", r),
				logging.String(logging.FieldImpact, "activity entry dropped"),
			)
		}
	}()
	if err := b.next.Append(ctx, projectID, action, details); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, b.logger), "activity append failed", "activity_append_failed",
			logging.String("action", action),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check database health"),
			logging.String(logging.FieldImpact, "activity entry dropped"),
		)
	}
}
