package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"painel/domain/core"
	"painel/domain/dataset"
	"painel/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// datasetCatalog implements ports.DatasetCatalog on PostgreSQL
type datasetCatalog struct {
	db *sqlx.DB
}

type datasetRow struct {
	dataset.Record
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Open connects to PostgreSQL using a lib/pq connection string.
func Open(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// NewDatasetCatalog creates a new dataset catalog
func NewDatasetCatalog(db *sqlx.DB) ports.DatasetCatalog {
	return &datasetCatalog{db: db}
}

// Save inserts the entry or replaces the one stored under the same name.
// A replaced entry keeps its ID and creation time; both are written back
// into entry.
func (c *datasetCatalog) Save(ctx context.Context, entry *dataset.Entry) error {
	rec, err := entry.ToRecord()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}

	query := `INSERT INTO datasets (
		id, name, source_file, record_count, field_count,
		filter_columns, metric_columns, metadata, table_data, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
	)
	ON CONFLICT (name) DO UPDATE SET
		source_file = EXCLUDED.source_file,
		record_count = EXCLUDED.record_count,
		field_count = EXCLUDED.field_count,
		filter_columns = EXCLUDED.filter_columns,
		metric_columns = EXCLUDED.metric_columns,
		metadata = EXCLUDED.metadata,
		table_data = EXCLUDED.table_data,
		updated_at = EXCLUDED.updated_at
	RETURNING id, created_at`

	var (
		id        string
		createdAt time.Time
	)
	err = c.db.QueryRowContext(ctx, query,
		rec.ID, rec.Name, rec.SourceFile, rec.RecordCount, rec.FieldCount,
		string(rec.FilterColumns), string(rec.MetricColumns), string(rec.Metadata), string(rec.TableData),
		entry.CreatedAt, now,
	).Scan(&id, &createdAt)
	if err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	entry.ID = core.DatasetID(id)
	entry.CreatedAt = createdAt.UTC()
	entry.UpdatedAt = now
	return nil
}

// Get retrieves a dataset by name
func (c *datasetCatalog) Get(ctx context.Context, name string) (*dataset.Entry, error) {
	query := `SELECT
		id, name, source_file, record_count, field_count,
		filter_columns, metric_columns, COALESCE(metadata, '{}'::jsonb) AS metadata, table_data,
		created_at, updated_at
	FROM datasets WHERE name = $1`

	var row datasetRow
	if err := c.db.GetContext(ctx, &row, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrDatasetNotFound, name)
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return row.Entry(row.CreatedAt.UTC(), row.UpdatedAt.UTC())
}

// List returns every dataset summary ordered by name
func (c *datasetCatalog) List(ctx context.Context) ([]dataset.Summary, error) {
	query := `SELECT id, name, source_file, record_count, field_count, updated_at
	FROM datasets ORDER BY name`

	var summaries []dataset.Summary
	if err := c.db.SelectContext(ctx, &summaries, query); err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return summaries, nil
}

// Delete removes a dataset by name
func (c *datasetCatalog) Delete(ctx context.Context, name string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM datasets WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrDatasetNotFound, name)
	}
	return nil
}
