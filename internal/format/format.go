// Package format renders values for on-screen display. Exports never go
// through it, so exported files keep full numeric precision.
package format

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"painel/domain/metrics"
)

// BRL renders v as Brazilian currency, "R$ 1.234,56".
func BRL(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return "R$ " + Number(v, 2)
}

// Number renders v with the given decimal places, dot thousands and comma
// decimal separator.
func Number(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	d := decimal.NewFromFloat(v).Round(places)
	neg := d.IsNegative()
	s := d.Abs().StringFixed(places)

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i+1:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}

// Percent renders a percentage such as 12,34%.
func Percent(v float64) string {
	return Number(v, 2) + "%"
}

// Delta renders the percentage of a delta, or "N/A" when it is undefined.
func Delta(d metrics.Delta) string {
	if !d.PercentDefined {
		return metrics.NotAPercent
	}
	s := Percent(d.Percent)
	if d.Percent > 0 {
		s = "+" + s
	}
	return s
}

// Metric renders a metric value: currency for money columns, an integer for
// counts and a plain number otherwise.
func Metric(v float64, currency bool, count bool) string {
	switch {
	case currency:
		return BRL(v)
	case count:
		return Number(v, 0)
	default:
		return Number(v, 2)
	}
}
