package database

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the base schema version. Additive changes go into
// migrations/ instead of bumping this value.
const schemaVersion = 1

// ErrSchemaMismatch reports a database created by an incompatible build.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// initSchema creates the tables on a fresh file and refuses to open a file
// whose base schema differs from this build's.
func (d *DB) initSchema(ctx context.Context) error {
	version, err := d.schemaVersion(ctx)
	if err != nil {
		return err
	}
	switch version {
	case 0:
		return d.WithTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
			_, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion)
			return err
		})
	case schemaVersion:
		return nil
	default:
		return fmt.Errorf("%w: %s has version %d, this build expects %d (move the file aside to start fresh)",
			ErrSchemaMismatch, d.path, version, schemaVersion)
	}
}

// schemaVersion returns 0 when the schema_version table does not exist yet.
func (d *DB) schemaVersion(ctx context.Context) (int, error) {
	var tables int
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'",
	).Scan(&tables)
	if err != nil {
		return 0, fmt.Errorf("check schema_version table: %w", err)
	}
	if tables == 0 {
		return 0, nil
	}
	var version int
	if err := d.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
