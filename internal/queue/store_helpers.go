package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/viadorer/orchestrator-sub001/internal/database"
)

const taskColumns = "rowid, id, project_id, task_type, params, priority, status, scheduled_for, recurring, result, error_message, created_at, started_at, finished_at"

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		seq          int64
		id           string
		projectID    string
		taskType     string
		params       sql.NullString
		priority     int
		status       string
		scheduledRaw string
		recurring    sql.NullString
		result       sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&seq,
		&id,
		&projectID,
		&taskType,
		&params,
		&priority,
		&status,
		&scheduledRaw,
		&recurring,
		&result,
		&errorMessage,
		&createdRaw,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	task := &Task{
		ID:           id,
		ProjectID:    projectID,
		Type:         TaskType(taskType),
		Priority:     priority,
		Status:       Status(status),
		Recurring:    recurring.String,
		ErrorMessage: errorMessage.String,
		seq:          seq,
	}
	if params.Valid && params.String != "" {
		task.Params = json.RawMessage(params.String)
	}
	if result.Valid && result.String != "" {
		task.Result = json.RawMessage(result.String)
	}

	var err error
	if task.ScheduledFor, err = database.ParseTime(scheduledRaw); err != nil {
		return nil, err
	}
	if task.CreatedAt, err = database.ParseTime(createdRaw); err != nil {
		return nil, err
	}
	if task.StartedAt, err = database.ParseNullTime(startedRaw); err != nil {
		return nil, err
	}
	if task.FinishedAt, err = database.ParseNullTime(finishedRaw); err != nil {
		return nil, err
	}
	return task, nil
}
