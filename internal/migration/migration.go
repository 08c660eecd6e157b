package migration

import (
	"context"
	"fmt"
	"time"

	"painel/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles catalog schema migrations for SQLite and PostgreSQL
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all catalog migrations in order. It is safe to run repeatedly.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	d, err := dialectOf(db)
	if err != nil {
		return err
	}

	if err := r.createSchemaVersionTable(ctx, db, d); err != nil {
		return errors.Wrap(err, "failed to create schema_version table")
	}

	if err := r.createDatasetsTable(ctx, db, d); err != nil {
		return errors.Wrap(err, "failed to create datasets table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	if err := r.recordVersion(ctx, db, d); err != nil {
		return errors.Wrap(err, "failed to record schema version")
	}

	return nil
}

// AppliedVersion returns the most recently recorded schema version, or ""
// when migrations have never run.
func (r *MigrationRunner) AppliedVersion(ctx context.Context, db *sqlx.DB) (string, error) {
	var versions []string
	err := db.SelectContext(ctx, &versions, `SELECT version FROM schema_version ORDER BY applied_at DESC, version DESC`)
	if err != nil {
		return "", errors.DatabaseError("failed to read schema version", err)
	}
	if len(versions) == 0 {
		return "", nil
	}
	return versions[0], nil
}

type dialect struct {
	name      string
	json      string
	timestamp string
}

var (
	postgresDialect = dialect{name: "postgres", json: "JSONB", timestamp: "TIMESTAMP WITH TIME ZONE"}
	sqliteDialect   = dialect{name: "sqlite", json: "TEXT", timestamp: "INTEGER"}
)

func dialectOf(db *sqlx.DB) (dialect, error) {
	switch db.DriverName() {
	case "postgres", "pgx":
		return postgresDialect, nil
	case "sqlite", "sqlite3":
		return sqliteDialect, nil
	default:
		return dialect{}, errors.ConfigInvalid(fmt.Sprintf("unsupported catalog driver %q", db.DriverName()))
	}
}

func (r *MigrationRunner) createSchemaVersionTable(ctx context.Context, db *sqlx.DB, d dialect) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version VARCHAR(32) PRIMARY KEY,
			applied_at %s NOT NULL
		)
	`, d.timestamp))
	return err
}

func (r *MigrationRunner) createDatasetsTable(ctx context.Context, db *sqlx.DB, d dialect) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS datasets (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			source_file VARCHAR(512) NOT NULL DEFAULT '',
			record_count INTEGER NOT NULL DEFAULT 0,
			field_count INTEGER NOT NULL DEFAULT 0,
			filter_columns %[1]s NOT NULL,
			metric_columns %[1]s NOT NULL,
			metadata %[1]s,
			table_data %[1]s NOT NULL,
			created_at %[2]s NOT NULL,
			updated_at %[2]s NOT NULL
		)
	`, d.json, d.timestamp))
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_datasets_updated_at ON datasets(updated_at)`,
	}

	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *MigrationRunner) recordVersion(ctx context.Context, db *sqlx.DB, d dialect) error {
	var count int
	if err := db.GetContext(ctx, &count, db.Rebind(`SELECT COUNT(*) FROM schema_version WHERE version = ?`), r.version); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var appliedAt any = time.Now().UTC()
	if d == sqliteDialect {
		appliedAt = time.Now().Unix()
	}
	_, err := db.ExecContext(ctx, db.Rebind(`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`), r.version, appliedAt)
	return err
}
