// Package metrics computes KPI summaries over filtered views and the variance
// between a base and a comparison view.
package metrics

import (
	"math"

	"github.com/montanaflynn/stats"

	"painel/domain/core"
	"painel/domain/dataset"
	"painel/domain/metrics"
	apperrors "painel/internal/errors"
	"painel/internal/filtering"
)

// Summarize computes total, mean and count of metric over view.
//
// For the row-count metric total equals count and mean is 1 whenever the view
// has rows. For a column metric total is the sum of present values and mean
// their arithmetic mean. An empty view yields all zeros.
func Summarize(view *filtering.View, metric metrics.Metric) (metrics.Summary, error) {
	summary := metrics.Summary{Metric: metric, Count: view.Len()}

	if metric.IsRowCount() {
		summary.Present = summary.Count
		summary.Total = float64(summary.Count)
		if summary.Count > 0 {
			summary.Mean = 1
		}
		return summary, nil
	}

	col, err := MetricColumn(view.Source, metric)
	if err != nil {
		return metrics.Summary{}, err
	}

	values := make(stats.Float64Data, 0, view.Len())
	for _, r := range view.Rows {
		if v := col.Numbers[r]; !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	summary.Present = len(values)
	if len(values) == 0 {
		return summary, nil
	}

	// stats only errors on empty input, which is handled above.
	summary.Total, _ = values.Sum()
	summary.Mean, _ = values.Mean()
	return summary, nil
}

// MetricColumn resolves the column behind a metric, which must be numeric.
func MetricColumn(table *dataset.TypedTable, metric metrics.Metric) (*dataset.Column, error) {
	col, ok := table.Column(metric.Column)
	if !ok {
		return nil, apperrors.Structural(apperrors.StageAggregation, metric.Column, core.ErrColumnNotFound)
	}
	if !col.Role.IsNumeric() {
		return nil, apperrors.Structural(apperrors.StageAggregation, metric.Column, core.ErrNotNumeric)
	}
	return col, nil
}

// Compare reports the variance of every statistic from base to comparison.
func Compare(base, comparison metrics.Summary) metrics.VarianceReport {
	return metrics.VarianceReport{
		Metric: base.Metric,
		Total:  Variance(base.Total, comparison.Total),
		Mean:   Variance(base.Mean, comparison.Mean),
		Count:  Variance(float64(base.Count), float64(comparison.Count)),
	}
}

// Variance computes one delta. With a zero base the percentage is 0 when the
// comparison is also zero and undefined otherwise.
func Variance(base, comparison float64) metrics.Delta {
	d := metrics.Delta{
		Base:       base,
		Comparison: comparison,
		Absolute:   comparison - base,
	}
	switch {
	case base != 0:
		d.Percent = d.Absolute / base * 100
		d.PercentDefined = true
	case comparison == 0:
		d.PercentDefined = true
	}
	if d.Absolute >= 0 {
		d.Direction = metrics.Favorable
	} else {
		d.Direction = metrics.Unfavorable
	}
	return d
}

// SummarizeAll summarizes several metrics over one view, in order.
func SummarizeAll(view *filtering.View, list []metrics.Metric) ([]metrics.Summary, error) {
	out := make([]metrics.Summary, 0, len(list))
	for _, m := range list {
		s, err := Summarize(view, m)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Comparison is one metric summarized over both views of a pair.
type Comparison struct {
	Metric     metrics.Metric         `json:"metric"`
	Base       metrics.Summary        `json:"base"`
	Comparison metrics.Summary        `json:"comparison"`
	Variance   metrics.VarianceReport `json:"variance"`
}

// ComparePair summarizes every metric over the base and comparison views.
func ComparePair(pair *filtering.Pair, list []metrics.Metric) ([]Comparison, error) {
	out := make([]Comparison, 0, len(list))
	for _, m := range list {
		base, err := Summarize(pair.Base, m)
		if err != nil {
			return nil, err
		}
		comp, err := Summarize(pair.Comparison, m)
		if err != nil {
			return nil, err
		}
		out = append(out, Comparison{Metric: m, Base: base, Comparison: comp, Variance: Compare(base, comp)})
	}
	return out, nil
}

// DefaultMetrics is the row count followed by each declared metric column.
func DefaultMetrics(columns []string) []metrics.Metric {
	out := []metrics.Metric{metrics.RowCount()}
	for _, c := range columns {
		out = append(out, metrics.OfColumn(c))
	}
	return out
}

// ParseMetrics maps names to metrics; an empty list gives DefaultMetrics.
func ParseMetrics(names, declared []string) []metrics.Metric {
	if len(names) == 0 {
		return DefaultMetrics(declared)
	}
	out := make([]metrics.Metric, len(names))
	for i, n := range names {
		out[i] = metrics.ParseMetric(n)
	}
	return out
}

// IsCurrency reports whether metric reads a currency column, so callers can
// pick a display format.
func IsCurrency(table *dataset.TypedTable, metric metrics.Metric) bool {
	if metric.IsRowCount() {
		return false
	}
	col, ok := table.Column(metric.Column)
	return ok && col.Role == dataset.RoleCurrency
}
