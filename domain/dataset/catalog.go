package dataset

import (
	"encoding/json"
	"fmt"
	"time"

	"painel/domain/core"
)

// Entry is a named, processed dataset as held by the catalog.
type Entry struct {
	ID            core.DatasetID `json:"id"`
	Name          string         `json:"name"`
	SourceFile    string         `json:"source_file"`
	Table         *TypedTable    `json:"table"`
	FilterColumns []string       `json:"filter_columns"`
	MetricColumns []string       `json:"metric_columns"`
	Metadata      Metadata       `json:"metadata"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Summary is the lightweight listing form of an Entry.
type Summary struct {
	ID          core.DatasetID `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	SourceFile  string         `json:"source_file" db:"source_file"`
	RecordCount int            `json:"record_count" db:"record_count"`
	FieldCount  int            `json:"field_count" db:"field_count"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// Metadata carries what processing learned about the dataset.
type Metadata struct {
	Fields   []FieldInfo    `json:"fields"`
	Missing  []MissingCount `json:"missing,omitempty"`
	FileInfo FileInfo       `json:"file_info"`
	Warnings []string       `json:"warnings,omitempty"`
}

// FieldInfo describes a single column after inference.
type FieldInfo struct {
	Name         string             `json:"name"`
	Role         Role               `json:"role"`
	NonEmpty     int                `json:"non_empty"`
	Parsed       int                `json:"parsed"`
	Degraded     int                `json:"degraded"`
	UniqueCount  int                `json:"unique_count"`
	MissingCount int                `json:"missing_count"`
	Statistics   map[string]float64 `json:"statistics,omitempty"`
}

// MissingCount reports missing values in a declared filter column.
type MissingCount struct {
	Column  string `json:"column"`
	Missing int    `json:"missing"`
	Warning string `json:"warning"`
}

// FileInfo contains file-specific metadata
type FileInfo struct {
	Format    string `json:"format"`
	Encoding  string `json:"encoding,omitempty"`
	Delimiter string `json:"delimiter,omitempty"`
	SheetName string `json:"sheet_name,omitempty"`
}

// Summarize builds the listing form.
func (e *Entry) Summarize() Summary {
	s := Summary{ID: e.ID, Name: e.Name, SourceFile: e.SourceFile, UpdatedAt: e.UpdatedAt}
	if e.Table != nil {
		s.RecordCount = e.Table.NumRows()
		s.FieldCount = e.Table.NumColumns()
	}
	return s
}

// ReadResult is an uploaded file read into a raw table.
type ReadResult struct {
	Table *RawTable
	Info  FileInfo
}

// Record is the storage form of an Entry shared by the catalog
// repositories: list-valued and nested fields are JSON encoded.
type Record struct {
	ID            string `db:"id"`
	Name          string `db:"name"`
	SourceFile    string `db:"source_file"`
	RecordCount   int    `db:"record_count"`
	FieldCount    int    `db:"field_count"`
	FilterColumns []byte `db:"filter_columns"`
	MetricColumns []byte `db:"metric_columns"`
	Metadata      []byte `db:"metadata"`
	TableData     []byte `db:"table_data"`
}

// ToRecord encodes e for storage.
func (e *Entry) ToRecord() (Record, error) {
	if e.Table == nil {
		return Record{}, fmt.Errorf("entry %q has no table", e.Name)
	}
	rec := Record{
		ID:          e.ID.String(),
		Name:        e.Name,
		SourceFile:  e.SourceFile,
		RecordCount: e.Table.NumRows(),
		FieldCount:  e.Table.NumColumns(),
	}
	var err error
	if rec.FilterColumns, err = json.Marshal(nonNil(e.FilterColumns)); err != nil {
		return Record{}, fmt.Errorf("failed to marshal filter columns: %w", err)
	}
	if rec.MetricColumns, err = json.Marshal(nonNil(e.MetricColumns)); err != nil {
		return Record{}, fmt.Errorf("failed to marshal metric columns: %w", err)
	}
	if rec.Metadata, err = json.Marshal(e.Metadata); err != nil {
		return Record{}, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if rec.TableData, err = json.Marshal(e.Table); err != nil {
		return Record{}, fmt.Errorf("failed to marshal table: %w", err)
	}
	return rec, nil
}

// Entry decodes the record back into a catalog entry.
func (r Record) Entry(createdAt, updatedAt time.Time) (*Entry, error) {
	e := &Entry{
		ID:         core.DatasetID(r.ID),
		Name:       r.Name,
		SourceFile: r.SourceFile,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
		Table:      &TypedTable{},
	}
	if err := json.Unmarshal(r.FilterColumns, &e.FilterColumns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal filter columns: %w", err)
	}
	if err := json.Unmarshal(r.MetricColumns, &e.MetricColumns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metric columns: %w", err)
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if err := json.Unmarshal(r.TableData, e.Table); err != nil {
		return nil, fmt.Errorf("failed to unmarshal table: %w", err)
	}
	return e, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
