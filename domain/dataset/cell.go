package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// NullDate is a date cell that may hold no value. An unparseable source cell
// becomes an invalid NullDate, never the zero time.
type NullDate struct {
	Time  time.Time
	Valid bool
}

// DateOf wraps a valid time.
func DateOf(t time.Time) NullDate {
	return NullDate{Time: t, Valid: true}
}

// MarshalJSON encodes a missing date as null.
func (d NullDate) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts null or an RFC 3339 string.
func (d *NullDate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = NullDate{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	*d = DateOf(t)
	return nil
}

// FormatDate renders a date the way it appears in filter keys and exports:
// date-only when the clock reads midnight.
func FormatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// FormatNumber renders a float with the shortest exact representation.
// Non-finite values render as the empty string.
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CanonicalString converts a cell of unknown type to the string form used
// for Text columns, filter keys and fingerprints. Missing becomes "".
func CanonicalString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return FormatNumber(x)
	case float32:
		return FormatNumber(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return FormatDate(x)
	case NullDate:
		if !x.Valid {
			return ""
		}
		return FormatDate(x.Time)
	case fmt.Stringer:
		return strings.TrimSpace(x.String())
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// IsEmptyCell reports whether a raw cell carries no value.
func IsEmptyCell(v any) bool {
	return CanonicalString(v) == ""
}
