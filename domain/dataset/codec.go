package dataset

import (
	"encoding/json"
	"fmt"
	"math"
)

type columnJSON struct {
	Name    string     `json:"name"`
	Role    Role       `json:"role"`
	Numbers []*float64 `json:"numbers,omitempty"`
	Strings []string   `json:"strings,omitempty"`
	Dates   []NullDate `json:"dates,omitempty"`
	Rows    int        `json:"rows"`
}

// MarshalJSON encodes the table column-wise; NaN numbers become null.
func (t *TypedTable) MarshalJSON() ([]byte, error) {
	cols := make([]columnJSON, len(t.columns))
	for i := range t.columns {
		c := &t.columns[i]
		cj := columnJSON{Name: c.Name, Role: c.Role, Rows: c.Len()}
		switch {
		case c.Role.IsNumeric():
			cj.Numbers = make([]*float64, len(c.Numbers))
			for r, v := range c.Numbers {
				if !math.IsNaN(v) {
					v := v
					cj.Numbers[r] = &v
				}
			}
		case c.Role == RoleDate:
			cj.Dates = c.Dates
		default:
			cj.Strings = c.Strings
		}
		cols[i] = cj
	}
	return json.Marshal(struct {
		Columns []columnJSON `json:"columns"`
	}{cols})
}

// UnmarshalJSON rebuilds a validated table.
func (t *TypedTable) UnmarshalJSON(data []byte) error {
	var payload struct {
		Columns []columnJSON `json:"columns"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	cols := make([]Column, len(payload.Columns))
	for i, cj := range payload.Columns {
		c := Column{Name: cj.Name, Role: cj.Role}
		switch {
		case cj.Role.IsNumeric():
			c.Numbers = make([]float64, cj.Rows)
			for r := 0; r < cj.Rows; r++ {
				c.Numbers[r] = math.NaN()
				if r < len(cj.Numbers) && cj.Numbers[r] != nil {
					c.Numbers[r] = *cj.Numbers[r]
				}
			}
		case cj.Role == RoleDate:
			c.Dates = make([]NullDate, cj.Rows)
			copy(c.Dates, cj.Dates)
		default:
			c.Strings = make([]string, cj.Rows)
			copy(c.Strings, cj.Strings)
		}
		cols[i] = c
	}
	decoded, err := NewTypedTable(cols)
	if err != nil {
		return fmt.Errorf("decode table: %w", err)
	}
	*t = *decoded
	return nil
}
