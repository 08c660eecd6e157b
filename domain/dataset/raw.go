package dataset

import (
	"fmt"
	"strings"

	"painel/domain/core"
)

// RawColumn is one named column as read from a file, cells untyped.
type RawColumn struct {
	Name  string
	Cells []any
}

// RawTable is an immutable, ordered set of untyped columns. It is produced
// once per upload.
type RawTable struct {
	columns     []RawColumn
	rows        int
	fingerprint core.Hash
}

// RawOptions controls header normalization.
type RawOptions struct {
	LowercaseHeaders bool
}

// NewRawTable builds a RawTable from a header row and string data rows.
// Header names are trimmed; blank names become column_N. Short rows are
// padded with empty cells and long rows are truncated to the header width.
func NewRawTable(headers []string, rows [][]string, opts RawOptions) (*RawTable, error) {
	cells := make([][]any, len(rows))
	for r, row := range rows {
		cells[r] = make([]any, len(row))
		for c, v := range row {
			cells[r][c] = v
		}
	}
	return NewRawTableFromCells(headers, cells, opts)
}

// NewRawTableFromCells is NewRawTable for rows that already carry native
// cells such as float64 or time.Time.
func NewRawTableFromCells(headers []string, rows [][]any, opts RawOptions) (*RawTable, error) {
	if len(headers) == 0 {
		return nil, core.ErrNoColumns
	}
	columns := make([]RawColumn, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if opts.LowercaseHeaders {
			name = strings.ToLower(name)
		}
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		columns[i] = RawColumn{Name: name, Cells: make([]any, len(rows))}
	}
	for r, row := range rows {
		for c := range columns {
			if c < len(row) {
				columns[c].Cells[r] = row[c]
			} else {
				columns[c].Cells[r] = ""
			}
		}
	}
	return newRawTable(columns, len(rows)), nil
}

// NewRawTableFromColumns builds a RawTable from already assembled columns,
// which must all have the same length. Names are trimmed.
func NewRawTableFromColumns(columns []RawColumn) (*RawTable, error) {
	if len(columns) == 0 {
		return nil, core.ErrNoColumns
	}
	rows := len(columns[0].Cells)
	cols := make([]RawColumn, len(columns))
	for i, c := range columns {
		if len(c.Cells) != rows {
			return nil, fmt.Errorf("column %q has %d cells, expected %d", c.Name, len(c.Cells), rows)
		}
		cols[i] = RawColumn{Name: strings.TrimSpace(c.Name), Cells: append([]any(nil), c.Cells...)}
	}
	return newRawTable(cols, rows), nil
}

func newRawTable(columns []RawColumn, rows int) *RawTable {
	h := &core.Hasher{}
	h.Field(fmt.Sprint(rows))
	for _, c := range columns {
		h.Field(c.Name)
		for _, cell := range c.Cells {
			h.Field(fmt.Sprintf("%T", cell)).Field(CanonicalString(cell))
		}
	}
	return &RawTable{columns: columns, rows: rows, fingerprint: h.Sum()}
}

func (t *RawTable) NumRows() int    { return t.rows }
func (t *RawTable) NumColumns() int { return len(t.columns) }

// Fingerprint identifies the table by content.
func (t *RawTable) Fingerprint() core.Hash { return t.fingerprint }

// Columns returns the columns in file order. Callers must not mutate them.
func (t *RawTable) Columns() []RawColumn { return t.columns }

// Names returns column names in order.
func (t *RawTable) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks a column up by name. The first match wins when names repeat.
func (t *RawTable) Column(name string) (*RawColumn, bool) {
	for i := range t.columns {
		if t.columns[i].Name == name {
			return &t.columns[i], true
		}
	}
	return nil, false
}

// Preview returns up to n rows as canonical strings, for upload feedback.
func (t *RawTable) Preview(n int) [][]string {
	if n > t.rows {
		n = t.rows
	}
	out := make([][]string, n)
	for r := 0; r < n; r++ {
		row := make([]string, len(t.columns))
		for c, col := range t.columns {
			row[c] = CanonicalString(col.Cells[r])
		}
		out[r] = row
	}
	return out
}
