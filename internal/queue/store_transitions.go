package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/viadorer/orchestrator-sub001/internal/database"
)

// MarkRunning moves a pending task to running.
func (s *Store) MarkRunning(ctx context.Context, id string) error {
	now := database.FormatTime(s.now())
	return s.transition(ctx, id, StatusPending, StatusRunning,
		`UPDATE tasks SET status = ?, started_at = ? WHERE id = ? AND status = ?`,
		string(StatusRunning), now, id, string(StatusPending))
}

// MarkCompleted moves a running task to completed and stores result.
func (s *Store) MarkCompleted(ctx context.Context, id string, result json.RawMessage) error {
	var stored any
	if len(result) > 0 {
		stored = string(result)
	}
	now := database.FormatTime(s.now())
	return s.transition(ctx, id, StatusRunning, StatusCompleted,
		`UPDATE tasks SET status = ?, result = ?, error_message = NULL, finished_at = ? WHERE id = ? AND status = ?`,
		string(StatusCompleted), stored, now, id, string(StatusRunning))
}

// MarkFailed moves a running task to failed and stores message.
func (s *Store) MarkFailed(ctx context.Context, id string, message string) error {
	now := database.FormatTime(s.now())
	return s.transition(ctx, id, StatusRunning, StatusFailed,
		`UPDATE tasks SET status = ?, error_message = ?, finished_at = ? WHERE id = ? AND status = ?`,
		string(StatusFailed), message, now, id, string(StatusRunning))
}

// Cancel marks a pending task cancelled.
func (s *Store) Cancel(ctx context.Context, id string) error {
	now := database.FormatTime(s.now())
	return s.transition(ctx, id, StatusPending, StatusCancelled,
		`UPDATE tasks SET status = ?, finished_at = ? WHERE id = ? AND status = ?`,
		string(StatusCancelled), now, id, string(StatusPending))
}

func (s *Store) transition(ctx context.Context, id string, from, to Status, query string, args ...any) error {
	res, err := s.db.ExecWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark task %s %s: %w", id, to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark task %s %s: %w", id, to, err)
	}
	if affected > 0 {
		return nil
	}
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	te := &TransitionError{TaskID: id, Expected: from, Target: to}
	if current != nil {
		te.Actual = current.Status
	}
	return te
}
