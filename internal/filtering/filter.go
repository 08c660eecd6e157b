// Package filtering applies filter specs to typed tables.
//
// A View is an index projection over its source table: filtering never copies
// cells and never reorders rows.
package filtering

import (
	"painel/domain/core"
	"painel/domain/dataset"
	"painel/domain/filter"
	apperrors "painel/internal/errors"
)

// View is the read-only result of applying a spec to a table.
type View struct {
	Source *dataset.TypedTable
	Rows   []int
	Key    core.Hash
}

// Len returns the number of rows in the view.
func (v *View) Len() int { return len(v.Rows) }

// IsIdentity reports whether the view covers every source row in order.
func (v *View) IsIdentity() bool {
	if len(v.Rows) != v.Source.NumRows() {
		return false
	}
	for i, r := range v.Rows {
		if r != i {
			return false
		}
	}
	return true
}

// Materialize copies the view's rows into a new table. The identity view
// returns the source itself.
func (v *View) Materialize() *dataset.TypedTable {
	if v.IsIdentity() {
		return v.Source
	}
	return v.Source.Select(v.Rows)
}

type matcher struct {
	column *dataset.Column
	values map[string]struct{}
}

// Apply filters table by spec. Rows must satisfy every restricted column and,
// when present, the date range on the primary date column. Rows with no date
// never satisfy a range.
func Apply(table *dataset.TypedTable, spec filter.Spec) (*View, error) {
	key := filter.CacheKey(table.Fingerprint(), spec)

	var (
		matchers []matcher
		excluded bool
	)
	for _, name := range spec.ActiveColumns() {
		col, ok := table.Column(name)
		if !ok {
			return nil, apperrors.Structural(apperrors.StageFiltering, name, core.ErrColumnNotFound)
		}
		sel := spec.Columns[name]
		if sel.Mode() == filter.ModeNone {
			excluded = true
			continue
		}
		matchers = append(matchers, matcher{column: col, values: sel.Set()})
	}

	var dateCol *dataset.Column
	if spec.Dates != nil {
		if err := spec.Dates.Validate(); err != nil {
			return nil, apperrors.Structural(apperrors.StageFiltering, "", err)
		}
		col, ok := table.PrimaryDateColumn()
		if !ok {
			return nil, apperrors.Structural(apperrors.StageFiltering, "", core.ErrNoDateColumn)
		}
		dateCol = col
	}
	if excluded {
		return &View{Source: table, Rows: []int{}, Key: key}, nil
	}

	rows := make([]int, 0, table.NumRows())
rowLoop:
	for i := 0; i < table.NumRows(); i++ {
		for _, m := range matchers {
			if _, ok := m.values[m.column.Key(i)]; !ok {
				continue rowLoop
			}
		}
		if dateCol != nil {
			d := dateCol.Dates[i]
			if !d.Valid || !spec.Dates.Contains(d.Time) {
				continue
			}
		}
		rows = append(rows, i)
	}
	return &View{Source: table, Rows: rows, Key: key}, nil
}
