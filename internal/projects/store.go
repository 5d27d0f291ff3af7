package projects

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

// Project is one tenant.
type Project struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Active          bool               `json:"active"`
	Timezone        string             `json:"timezone,omitempty"`
	Config          OrchestratorConfig `json:"orchestrator_config"`
	StrategyWeights map[string]float64 `json:"strategy_weights,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`

	// ConfigError is set when the stored configuration failed to decode. The
	// project is then treated as disabled.
	ConfigError string `json:"config_error,omitempty"`
}

// Location returns the project's operating timezone, falling back to
// fallback when unset or unknown.
func (p *Project) Location(fallback *time.Location) *time.Location {
	if fallback == nil {
		fallback = time.UTC
	}
	if p == nil || strings.TrimSpace(p.Timezone) == "" {
		return fallback
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}

// Store persists projects.
type Store struct {
	db                 *database.DB
	defaultPostingTime string
	now                func() time.Time
}

// NewStore returns a project store. defaultPostingTime is the slot used for
// projects without posting times.
func NewStore(db *database.DB, defaultPostingTime string) *Store {
	return &Store{db: db, defaultPostingTime: defaultPostingTime, now: time.Now}
}

// NewProject carries creation input.
type NewProject struct {
	ID       string
	Name     string
	Timezone string
	Config   json.RawMessage
}

// Create inserts a project after validating its configuration.
func (s *Store) Create(ctx context.Context, input NewProject) (*Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", services.ErrValidation)
	}
	if tz := strings.TrimSpace(input.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("%w: timezone %q: %v", services.ErrValidation, tz, err)
		}
	}
	cfg, err := ParseOrchestratorConfig(input.Config, s.defaultPostingTime)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode orchestrator config: %w", err)
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now().UTC()
	if _, err := s.db.ExecWithRetry(ctx,
		`INSERT INTO projects (id, name, active, timezone, orchestrator_config, created_at, updated_at)
         VALUES (?, ?, 1, ?, ?, ?, ?)`,
		id, name, database.NullableString(input.Timezone), string(encoded),
		database.FormatTime(now), database.FormatTime(now),
	); err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a project. It returns nil, nil when missing.
func (s *Store) Get(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	project, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	return project, nil
}

// List returns projects ordered by name. activeOnly excludes inactive ones.
func (s *Store) List(ctx context.Context, activeOnly bool) ([]*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name, id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()
	var out []*Project
	for rows.Next() {
		project, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, project)
	}
	return out, rows.Err()
}

// ListActive returns active projects.
func (s *Store) ListActive(ctx context.Context) ([]*Project, error) {
	return s.List(ctx, true)
}

// UpdateConfig replaces the orchestrator configuration of a project.
func (s *Store) UpdateConfig(ctx context.Context, id string, raw json.RawMessage) (*Project, error) {
	cfg, err := ParseOrchestratorConfig(raw, s.defaultPostingTime)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode orchestrator config: %w", err)
	}
	if err := s.update(ctx, id, `orchestrator_config = ?`, string(encoded)); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// SetActive toggles whether the project participates in cycles.
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	return s.update(ctx, id, `active = ?`, database.BoolToInt(active))
}

// UpdateStrategyWeights stores the weights produced by the optimizer.
func (s *Store) UpdateStrategyWeights(ctx context.Context, id string, weights map[string]float64) error {
	encoded, err := json.Marshal(weights)
	if err != nil {
		return fmt.Errorf("encode strategy weights: %w", err)
	}
	return s.update(ctx, id, `strategy_weights = ?`, string(encoded))
}

func (s *Store) update(ctx context.Context, id, assignment string, value any) error {
	res, err := s.db.ExecWithRetry(ctx,
		`UPDATE projects SET `+assignment+`, updated_at = ? WHERE id = ?`,
		value, database.FormatTime(s.now()), id,
	)
	if err != nil {
		return fmt.Errorf("update project %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: project %s", services.ErrNotFound, id)
	}
	return nil
}

const projectColumns = "id, name, active, timezone, orchestrator_config, strategy_weights, created_at, updated_at"

func (s *Store) scan(scanner interface{ Scan(dest ...any) error }) (*Project, error) {
	var (
		project    Project
		active     int
		timezone   sql.NullString
		cfgRaw     string
		weightsRaw sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&project.ID, &project.Name, &active, &timezone, &cfgRaw, &weightsRaw, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	project.Active = active != 0
	project.Timezone = timezone.String

	cfg, err := ParseOrchestratorConfig([]byte(cfgRaw), s.defaultPostingTime)
	if err != nil {
		project.Config = DefaultOrchestratorConfig(s.defaultPostingTime)
		project.ConfigError = err.Error()
	} else {
		project.Config = cfg
	}
	if weightsRaw.Valid && weightsRaw.String != "" {
		if err := json.Unmarshal([]byte(weightsRaw.String), &project.StrategyWeights); err != nil {
			return nil, fmt.Errorf("decode strategy weights for %s: %w", project.ID, err)
		}
	}
	if project.CreatedAt, err = database.ParseTime(createdRaw); err != nil {
		return nil, err
	}
	if project.UpdatedAt, err = database.ParseTime(updatedRaw); err != nil {
		return nil, err
	}
	return &project, nil
}
