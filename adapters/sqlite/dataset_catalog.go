package sqlite

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
)

// datasetCatalog implements ports.DatasetCatalog on SQLite. Timestamps are
// stored as unix nanoseconds.
type datasetCatalog struct {
	db  *sqlx.DB
	now func() time.Time
}

type datasetRow struct {
	dataset.Record
	CreatedAt int64 `db:"created_at"`
	UpdatedAt int64 `db:"updated_at"`
}

type summaryRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	SourceFile  string `db:"source_file"`
	RecordCount int    `db:"record_count"`
	FieldCount  int    `db:"field_count"`
	UpdatedAt   int64  `db:"updated_at"`
}

// NewDatasetCatalog creates a catalog over an opened SQLite database whose
// schema has been migrated.
func NewDatasetCatalog(db *sqlx.DB) ports.DatasetCatalog {
	return &datasetCatalog{db: db, now: time.Now}
}

// Save inserts the entry or replaces the one stored under the same name.
// The original creation time and ID of a replaced entry are kept and written
// back into entry.
func (c *datasetCatalog) Save(ctx context.Context, entry *dataset.Entry) error {
	rec, err := entry.ToRecord()
	if err != nil {
		return err
	}
	now := c.now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}

	row := datasetRow{Record: rec, CreatedAt: entry.CreatedAt.UnixNano(), UpdatedAt: now.UnixNano()}
	query, args, err := c.db.BindNamed(`INSERT INTO datasets (
		id, name, source_file, record_count, field_count,
		filter_columns, metric_columns, metadata, table_data, created_at, updated_at
	) VALUES (
		:id, :name, :source_file, :record_count, :field_count,
		:filter_columns, :metric_columns, :metadata, :table_data, :created_at, :updated_at
	)
	ON CONFLICT(name) DO UPDATE SET
		source_file = excluded.source_file,
		record_count = excluded.record_count,
		field_count = excluded.field_count,
		filter_columns = excluded.filter_columns,
		metric_columns = excluded.metric_columns,
		metadata = excluded.metadata,
		table_data = excluded.table_data,
		updated_at = excluded.updated_at
	RETURNING id, created_at`, row)
	if err != nil {
		return fmt.Errorf("failed to bind dataset %q: %w", entry.Name, err)
	}

	var stored struct {
		ID        string `db:"id"`
		CreatedAt int64  `db:"created_at"`
	}
	if err := c.db.QueryRowxContext(ctx, query, args...).StructScan(&stored); err != nil {
		return fmt.Errorf("failed to save dataset %q: %w", entry.Name, err)
	}
	entry.ID = core.DatasetID(stored.ID)
	entry.CreatedAt = time.Unix(0, stored.CreatedAt).UTC()
	entry.UpdatedAt = now
	return nil
}

// Get retrieves a dataset by name
func (c *datasetCatalog) Get(ctx context.Context, name string) (*dataset.Entry, error) {
	var row datasetRow
	err := c.db.GetContext(ctx, &row, `SELECT
		id, name, source_file, record_count, field_count,
		filter_columns, metric_columns, COALESCE(metadata, '') AS metadata, table_data, created_at, updated_at
	FROM datasets WHERE name = ?`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrDatasetNotFound, name)
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return row.Entry(time.Unix(0, row.CreatedAt).UTC(), time.Unix(0, row.UpdatedAt).UTC())
}

// List returns every dataset summary ordered by name
func (c *datasetCatalog) List(ctx context.Context) ([]dataset.Summary, error) {
	var rows []summaryRow
	err := c.db.SelectContext(ctx, &rows, `SELECT id, name, source_file, record_count, field_count, updated_at
		FROM datasets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}

	summaries := make([]dataset.Summary, len(rows))
	for i, r := range rows {
		summaries[i] = dataset.Summary{
			ID:          core.DatasetID(r.ID),
			Name:        r.Name,
			SourceFile:  r.SourceFile,
			RecordCount: r.RecordCount,
			FieldCount:  r.FieldCount,
			UpdatedAt:   time.Unix(0, r.UpdatedAt).UTC(),
		}
	}
	return summaries, nil
}

// Delete removes a dataset by name
func (c *datasetCatalog) Delete(ctx context.Context, name string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM datasets WHERE name = ?`, name)
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
