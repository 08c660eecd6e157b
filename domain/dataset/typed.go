package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"painel/domain/core"
)

// Column is one typed column. Exactly one of Numbers, Strings or Dates is
// populated, selected by Role.
type Column struct {
	Name    string
	Role    Role
	Numbers []float64
	Strings []string
	Dates   []NullDate
}

// Len returns the number of cells.
func (c *Column) Len() int {
	switch {
	case c.Role.IsNumeric():
		return len(c.Numbers)
	case c.Role == RoleDate:
		return len(c.Dates)
	default:
		return len(c.Strings)
	}
}

// IsMissing reports whether row i holds no value.
func (c *Column) IsMissing(i int) bool {
	switch {
	case c.Role.IsNumeric():
		return math.IsNaN(c.Numbers[i])
	case c.Role == RoleDate:
		return !c.Dates[i].Valid
	default:
		return c.Strings[i] == ""
	}
}

// MissingCount counts rows without a value.
func (c *Column) MissingCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// Value returns row i as a plain Go value: float64, string, time.Time or nil
// for a missing number or date.
func (c *Column) Value(i int) any {
	switch {
	case c.Role.IsNumeric():
		if math.IsNaN(c.Numbers[i]) {
			return nil
		}
		return c.Numbers[i]
	case c.Role == RoleDate:
		if !c.Dates[i].Valid {
			return nil
		}
		return c.Dates[i].Time
	default:
		return c.Strings[i]
	}
}

// Key returns the canonical filter key of row i. Missing cells map to
// MissingLabel so they stay selectable; a real cell that reads like the
// placeholder is escaped with EscapeKey.
func (c *Column) Key(i int) string {
	s := CanonicalString(c.Value(i))
	if s == "" {
		return MissingLabel
	}
	return EscapeKey(s)
}

// EscapeKey returns the filter key for a present value. Values of the form
// MissingLabel preceded by zero or more backslashes gain one more leading
// backslash, so no present value ever shares a key with a missing cell.
func EscapeKey(s string) string {
	if strings.TrimLeft(s, `\`) == MissingLabel {
		return `\` + s
	}
	return s
}

// Options returns the sorted distinct filter keys present in the column,
// including MissingLabel when any row is missing.
func (c *Column) Options() []string {
	seen := make(map[string]struct{})
	for i := 0; i < c.Len(); i++ {
		seen[c.Key(i)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (c *Column) validate() error {
	if !c.Role.IsValid() {
		return fmt.Errorf("column %q: invalid role %q", c.Name, c.Role)
	}
	switch {
	case c.Role.IsNumeric():
		if c.Strings != nil || c.Dates != nil {
			return fmt.Errorf("column %q: numeric column carries non-numeric cells", c.Name)
		}
		for i, v := range c.Numbers {
			if c.Role == RoleCurrency && (math.IsNaN(v) || math.IsInf(v, 0)) {
				return fmt.Errorf("column %q: non-finite currency value at row %d", c.Name, i)
			}
		}
	case c.Role == RoleDate:
		if c.Strings != nil || c.Numbers != nil {
			return fmt.Errorf("column %q: date column carries non-date cells", c.Name)
		}
	default:
		if c.Numbers != nil || c.Dates != nil {
			return fmt.Errorf("column %q: text column carries non-text cells", c.Name)
		}
	}
	return nil
}

// project copies the given rows into a new column.
func (c *Column) project(rows []int) Column {
	out := Column{Name: c.Name, Role: c.Role}
	switch {
	case c.Role.IsNumeric():
		out.Numbers = make([]float64, len(rows))
		for i, r := range rows {
			out.Numbers[i] = c.Numbers[r]
		}
	case c.Role == RoleDate:
		out.Dates = make([]NullDate, len(rows))
		for i, r := range rows {
			out.Dates[i] = c.Dates[r]
		}
	default:
		out.Strings = make([]string, len(rows))
		for i, r := range rows {
			out.Strings[i] = c.Strings[r]
		}
	}
	return out
}

// TypedTable is the immutable result of type inference. Every derived view
// reads from it without mutating it.
type TypedTable struct {
	columns     []Column
	rows        int
	fingerprint core.Hash
}

// NewTypedTable validates the columns and takes ownership of them.
func NewTypedTable(columns []Column) (*TypedTable, error) {
	if len(columns) == 0 {
		return nil, core.ErrNoColumns
	}
	rows := columns[0].Len()
	for i := range columns {
		if err := columns[i].validate(); err != nil {
			return nil, err
		}
		if columns[i].Len() != rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", columns[i].Name, columns[i].Len(), rows)
		}
	}
	t := &TypedTable{columns: columns, rows: rows}
	t.fingerprint = t.computeFingerprint()
	return t, nil
}

func (t *TypedTable) NumRows() int    { return t.rows }
func (t *TypedTable) NumColumns() int { return len(t.columns) }

// Fingerprint identifies the table by content; equal fingerprints mean
// byte-identical typed output.
func (t *TypedTable) Fingerprint() core.Hash { return t.fingerprint }

// Columns returns the columns in order. Callers must treat them as read-only.
func (t *TypedTable) Columns() []Column { return t.columns }

// Names returns column names in order.
func (t *TypedTable) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks a column up by name.
func (t *TypedTable) Column(name string) (*Column, bool) {
	for i := range t.columns {
		if t.columns[i].Name == name {
			return &t.columns[i], true
		}
	}
	return nil, false
}

// PrimaryDateColumn returns the first Date column by column order.
func (t *TypedTable) PrimaryDateColumn() (*Column, bool) {
	for i := range t.columns {
		if t.columns[i].Role == RoleDate {
			return &t.columns[i], true
		}
	}
	return nil, false
}

// Select materializes the given rows, in the given order, into a new table.
func (t *TypedTable) Select(rows []int) *TypedTable {
	cols := make([]Column, len(t.columns))
	for i := range t.columns {
		cols[i] = t.columns[i].project(rows)
	}
	out := &TypedTable{columns: cols, rows: len(rows)}
	out.fingerprint = out.computeFingerprint()
	return out
}

// AsRaw converts the table back into untyped cells: float64 for numbers,
// time.Time for dates, string for text and nil for missing numbers/dates.
func (t *TypedTable) AsRaw() *RawTable {
	cols := make([]RawColumn, len(t.columns))
	for i := range t.columns {
		c := &t.columns[i]
		cells := make([]any, t.rows)
		for r := 0; r < t.rows; r++ {
			cells[r] = c.Value(r)
		}
		cols[i] = RawColumn{Name: c.Name, Cells: cells}
	}
	return newRawTable(cols, t.rows)
}

// Row returns row i as plain Go values in column order.
func (t *TypedTable) Row(i int) []any {
	out := make([]any, len(t.columns))
	for c := range t.columns {
		out[c] = t.columns[c].Value(i)
	}
	return out
}

func (t *TypedTable) computeFingerprint() core.Hash {
	h := &core.Hasher{}
	h.Field(strconv.Itoa(t.rows))
	for i := range t.columns {
		c := &t.columns[i]
		h.Field(c.Name).Field(string(c.Role))
		switch {
		case c.Role.IsNumeric():
			for _, v := range c.Numbers {
				h.Field(strconv.FormatFloat(v, 'g', -1, 64))
			}
		case c.Role == RoleDate:
			for _, d := range c.Dates {
				if d.Valid {
					h.Field(d.Time.UTC().Format(time.RFC3339Nano))
				} else {
					h.Field("")
				}
			}
		default:
			h.Fields(c.Strings)
		}
	}
	return h.Sum()
}
