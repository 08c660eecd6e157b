package filter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"painel/domain/core"
)

// Mode is the state of a per-column selection.
type Mode string

const (
	// ModeAll means the column contributes no restriction.
	ModeAll Mode = "all"
	// ModeOnly keeps rows whose key is in the selected values.
	ModeOnly Mode = "only"
	// ModeNone excludes every row.
	ModeNone Mode = "none"
)

// Selection is the tri-state restriction on one column. The zero value is
// unrestricted, so an untouched filter never excludes rows.
type Selection struct {
	mode   Mode
	values []string
}

// All returns an unrestricted selection.
func All() Selection { return Selection{mode: ModeAll} }

// None returns a selection that excludes every row.
func None() Selection { return Selection{mode: ModeNone} }

// Only restricts the column to the given keys. Duplicates are dropped and the
// values kept sorted. With no values it is equivalent to None.
func Only(values ...string) Selection {
	uniq := dedupe(values)
	if len(uniq) == 0 {
		return None()
	}
	return Selection{mode: ModeOnly, values: uniq}
}

// SelectionOf is the list shorthand used by forms and files: an empty list
// means unrestricted, a non-empty list means Only.
func SelectionOf(values []string) Selection {
	if len(dedupe(values)) == 0 {
		return All()
	}
	return Only(values...)
}

// Mode returns the selection state.
func (s Selection) Mode() Mode {
	if s.mode == "" {
		return ModeAll
	}
	return s.mode
}

// Values returns the selected keys in sorted order.
func (s Selection) Values() []string {
	return append([]string(nil), s.values...)
}

// IsUnrestricted reports whether every row passes.
func (s Selection) IsUnrestricted() bool { return s.Mode() == ModeAll }

// Set returns the selected keys as a lookup set.
func (s Selection) Set() map[string]struct{} {
	set := make(map[string]struct{}, len(s.values))
	for _, v := range s.values {
		set[v] = struct{}{}
	}
	return set
}

type selectionJSON struct {
	Mode   Mode     `json:"mode" yaml:"mode"`
	Values []string `json:"values,omitempty" yaml:"values,omitempty"`
}

// MarshalJSON writes {"mode":...,"values":[...]}.
func (s Selection) MarshalJSON() ([]byte, error) {
	return json.Marshal(selectionJSON{Mode: s.Mode(), Values: s.values})
}

// UnmarshalJSON accepts the object form or a bare list (list shorthand).
func (s *Selection) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var values []string
		if err := json.Unmarshal(data, &values); err != nil {
			return err
		}
		*s = SelectionOf(values)
		return nil
	}
	var sj selectionJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return err
	}
	sel, err := sj.build()
	if err != nil {
		return err
	}
	*s = sel
	return nil
}

// UnmarshalYAML accepts the same two forms as UnmarshalJSON: a mapping with
// mode and values, or a bare sequence.
func (s *Selection) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var values []string
		if err := node.Decode(&values); err != nil {
			return err
		}
		*s = SelectionOf(values)
		return nil
	}
	var sj selectionJSON
	if err := node.Decode(&sj); err != nil {
		return err
	}
	sel, err := sj.build()
	if err != nil {
		return err
	}
	*s = sel
	return nil
}

func (sj selectionJSON) build() (Selection, error) {
	switch sj.Mode {
	case "", ModeAll:
		return All(), nil
	case ModeNone:
		return None(), nil
	case ModeOnly:
		return Only(sj.Values...), nil
	default:
		return Selection{}, fmt.Errorf("unknown selection mode %q", sj.Mode)
	}
}

// DateRange restricts the primary date column; both ends are inclusive.
type DateRange struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// DayRange covers whole calendar days: from the start of startDay through the
// last instant of endDay, in startDay's location.
func DayRange(startDay, endDay time.Time) DateRange {
	loc := startDay.Location()
	start := time.Date(startDay.Year(), startDay.Month(), startDay.Day(), 0, 0, 0, 0, loc)
	e := endDay.In(loc)
	end := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
	return DateRange{Start: start, End: end}
}

// Validate rejects an inverted range.
func (r DateRange) Validate() error {
	if r.Start.After(r.End) {
		return core.ErrInvalidRange
	}
	return nil
}

// Contains is an inclusive comparison on both ends.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Spec is the full set of restrictions defining one filtered view.
type Spec struct {
	Columns map[string]Selection `json:"columns,omitempty" yaml:"columns,omitempty"`
	Dates   *DateRange           `json:"dates,omitempty" yaml:"dates,omitempty"`
}

// NewSpec returns an empty, unrestricted spec.
func NewSpec() Spec {
	return Spec{Columns: make(map[string]Selection)}
}

// With returns a copy of s with column set to sel.
func (s Spec) With(column string, sel Selection) Spec {
	out := s.clone()
	out.Columns[column] = sel
	return out
}

// WithDates returns a copy of s restricted to r.
func (s Spec) WithDates(r DateRange) Spec {
	out := s.clone()
	out.Dates = &r
	return out
}

// IsEmpty reports whether the spec restricts nothing.
func (s Spec) IsEmpty() bool {
	if s.Dates != nil {
		return false
	}
	for _, sel := range s.Columns {
		if !sel.IsUnrestricted() {
			return false
		}
	}
	return true
}

// ActiveColumns returns the restricted columns in sorted order.
func (s Spec) ActiveColumns() []string {
	var cols []string
	for name, sel := range s.Columns {
		if !sel.IsUnrestricted() {
			cols = append(cols, name)
		}
	}
	sort.Strings(cols)
	return cols
}

func (s Spec) clone() Spec {
	out := Spec{Columns: make(map[string]Selection, len(s.Columns)+1)}
	for k, v := range s.Columns {
		out.Columns[k] = v
	}
	if s.Dates != nil {
		r := *s.Dates
		out.Dates = &r
	}
	return out
}

// CacheKey derives the memoization key of (table, spec) from content only:
// every selected value, every mode and both range instants take part.
// Unrestricted columns are left out, so an untouched column and an absent
// column share a key.
func CacheKey(table core.Hash, s Spec) core.Hash {
	h := &core.Hasher{}
	h.Field(table.String())
	for _, name := range s.ActiveColumns() {
		sel := s.Columns[name]
		h.Field(name).Field(string(sel.Mode())).Fields(sel.values)
	}
	if s.Dates != nil {
		h.Field("dates").
			Field(s.Dates.Start.UTC().Format(time.RFC3339Nano)).
			Field(s.Dates.End.UTC().Format(time.RFC3339Nano))
	} else {
		h.Field("nodates")
	}
	return h.Sum()
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
