package coercer

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"painel/domain/dataset"
)

// TypeCoercer converts individual cells deterministically. It never fails on
// a single value: callers get a value and an ok flag.
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the coercion thresholds
type CoercionConfig struct {
	DateThreshold float64        `json:"date_threshold"` // share of non-empty cells that must parse as dates (strict)
	Location      *time.Location `json:"-"`
}

// DefaultCoercionConfig returns the defaults used by inference
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		DateThreshold: 0.5,
		Location:      time.UTC,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &TypeCoercer{config: config}
}

// Config returns the active configuration
func (c *TypeCoercer) Config() CoercionConfig {
	return c.config
}

var (
	// Brazilian convention: dot thousands in groups of three, comma decimal.
	brGrouped = regexp.MustCompile(`^[1-9]\d{0,2}(\.\d{3})+(,\d+)?$`)
	brPlain   = regexp.MustCompile(`^\d+(,\d+)?$`)

	// Conventional: comma thousands, dot decimal.
	convGrouped = regexp.MustCompile(`^[1-9]\d{0,2}(,\d{3})+(\.\d+)?$`)
	convPlain   = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// Longest symbols first so "US$" is not left as "US".
var currencySymbols = []string{"R$", "US$", "BRL", "USD", "EUR", "$", "€", "£"}

// ParseCurrency parses a currency cell. Native numbers pass through; strings
// are read under the Brazilian convention first and the conventional one as
// a fallback. The result is always finite when ok is true.
func (c *TypeCoercer) ParseCurrency(raw any) (float64, bool) {
	if v, ok := nativeNumber(raw); ok {
		return v, true
	}
	s, ok := raw.(string)
	if !ok {
		return 0, false
	}
	d, ok := parseAmount(s, true)
	if !ok {
		return 0, false
	}
	return finite(d.InexactFloat64())
}

// ParseNumber parses a plain numeric literal: native numbers or strings in
// either decimal convention, without currency symbols.
func (c *TypeCoercer) ParseNumber(raw any) (float64, bool) {
	if v, ok := nativeNumber(raw); ok {
		return v, true
	}
	s, ok := raw.(string)
	if !ok {
		return 0, false
	}
	d, ok := parseAmount(s, false)
	if !ok {
		return 0, false
	}
	return finite(d.InexactFloat64())
}

func parseAmount(s string, allowSymbols bool) (decimal.Decimal, bool) {
	clean := strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
	if clean == "" {
		return decimal.Decimal{}, false
	}

	negative := false
	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		clean = strings.TrimSpace(clean[1 : len(clean)-1])
		negative = true
	}
	if strings.HasSuffix(clean, "-") {
		clean = strings.TrimSpace(strings.TrimSuffix(clean, "-"))
		negative = !negative
	}
	if strings.HasPrefix(clean, "-") {
		clean = strings.TrimSpace(strings.TrimPrefix(clean, "-"))
		negative = !negative
	} else if strings.HasPrefix(clean, "+") {
		clean = strings.TrimSpace(strings.TrimPrefix(clean, "+"))
	}

	if allowSymbols {
		for _, sym := range currencySymbols {
			if idx := indexFoldASCII(clean, sym); idx >= 0 {
				clean = clean[:idx] + clean[idx+len(sym):]
				break
			}
		}
		clean = strings.TrimSpace(clean)
		// "R$ -10,00"
		if strings.HasPrefix(clean, "-") {
			clean = strings.TrimSpace(strings.TrimPrefix(clean, "-"))
			negative = !negative
		}
	}
	// thousands separated by spaces: "1 234,56"
	clean = strings.Join(strings.Fields(clean), "")

	var canonical string
	switch {
	case brGrouped.MatchString(clean) || brPlain.MatchString(clean):
		canonical = strings.ReplaceAll(strings.ReplaceAll(clean, ".", ""), ",", ".")
	case convGrouped.MatchString(clean) || convPlain.MatchString(clean):
		canonical = strings.ReplaceAll(clean, ",", "")
	default:
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// indexFoldASCII finds sym in s ignoring ASCII letter case only. The index is
// always a byte offset into s itself, so slicing s with it is safe for any
// UTF-8 input.
func indexFoldASCII(s, sym string) int {
	for i := 0; i+len(sym) <= len(s); i++ {
		if equalFoldASCII(s[i:i+len(sym)], sym) {
			return i
		}
	}
	return -1
}

func equalFoldASCII(a, b string) bool {
	for i := 0; i < len(a); i++ {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + 'a' - 'A'
	}
	return b
}

func nativeNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case decimal.Decimal:
		return finite(v.InexactFloat64())
	}
	return 0, false
}

func finite(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Day-first layouts come before month-first ones, so an ambiguous cell such
// as 03/04/2024 reads as 3 April.
var dateLayouts = []string{
	"2/1/2006",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2-1-2006",
	"2-1-2006 15:04:05",
	"2.1.2006",
	"2/1/06",
	"1/2/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1-2-2006",
	"2006-1-2",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006/1/2",
	"02-Jan-2006",
	"2 Jan 2006",
}

// ParseDate parses a date cell. time.Time values are always valid; strings
// are tried against day-first, then month-first, then ISO layouts.
func (c *TypeCoercer) ParseDate(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v, true
	case dataset.NullDate:
		return v.Time, v.Valid
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, c.config.Location); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// CanonicalString converts a cell to its trimmed string form.
func (c *TypeCoercer) CanonicalString(raw any) string {
	return dataset.CanonicalString(raw)
}

// AnalyzeTypeDistribution counts how many non-empty cells parse as each type
func (c *TypeCoercer) AnalyzeTypeDistribution(values []any) TypeAnalysis {
	analysis := TypeAnalysis{TotalCount: len(values)}

	for _, val := range values {
		if dataset.IsEmptyCell(val) {
			continue
		}
		analysis.NonEmptyCount++
		if _, ok := c.ParseDate(val); ok {
			analysis.DateCount++
		}
		if _, ok := c.ParseNumber(val); ok {
			analysis.NumericCount++
		}
	}

	if analysis.NonEmptyCount > 0 {
		n := float64(analysis.NonEmptyCount)
		analysis.DateRatio = float64(analysis.DateCount) / n
		analysis.NumericRatio = float64(analysis.NumericCount) / n
	}
	analysis.IsDate = analysis.NonEmptyCount > 0 && analysis.DateRatio > c.config.DateThreshold
	analysis.IsNumeric = analysis.NonEmptyCount > 0 && analysis.NumericCount == analysis.NonEmptyCount

	return analysis
}

// TypeAnalysis contains the results of type distribution analysis
type TypeAnalysis struct {
	TotalCount    int     `json:"total_count"`
	NonEmptyCount int     `json:"non_empty_count"`
	DateCount     int     `json:"date_count"`
	NumericCount  int     `json:"numeric_count"`
	DateRatio     float64 `json:"date_ratio"`
	NumericRatio  float64 `json:"numeric_ratio"`
	IsDate        bool    `json:"is_date"`
	IsNumeric     bool    `json:"is_numeric"`
}
