package metrics

// RowCountLabel names the row-count pseudo metric in listings and files.
const RowCountLabel = "row_count"

// Metric selects what a summary measures: a numeric column, or the number
// of rows when Column is empty.
type Metric struct {
	Column string `json:"column,omitempty"`
}

// RowCount returns the row-count pseudo metric.
func RowCount() Metric { return Metric{} }

// OfColumn measures a numeric column.
func OfColumn(name string) Metric { return Metric{Column: name} }

// IsRowCount reports whether m is the pseudo metric.
func (m Metric) IsRowCount() bool { return m.Column == "" }

// ParseMetric maps the row_count label (or "") to the pseudo metric and any
// other name to a column metric.
func ParseMetric(s string) Metric {
	if s == "" || s == RowCountLabel {
		return RowCount()
	}
	return OfColumn(s)
}

func (m Metric) String() string {
	if m.IsRowCount() {
		return RowCountLabel
	}
	return m.Column
}

// Summary holds the statistics of one metric over one filtered view.
type Summary struct {
	Metric  Metric  `json:"metric"`
	Total   float64 `json:"total"`
	Mean    float64 `json:"mean"`
	Count   int     `json:"count"`
	Present int     `json:"present"`
}

// Direction is the presentation sign of a delta.
type Direction string

const (
	Favorable   Direction = "favorable"
	Unfavorable Direction = "unfavorable"
)

// Delta compares one statistic between the base and comparison views.
type Delta struct {
	Base           float64   `json:"base"`
	Comparison     float64   `json:"comparison"`
	Absolute       float64   `json:"absolute"`
	Percent        float64   `json:"percent"`
	PercentDefined bool      `json:"percent_defined"`
	Direction      Direction `json:"direction"`
}

// NotAPercent is shown when the base is zero and the comparison is not.
const NotAPercent = "N/A"

// VarianceReport is the per-statistic comparison of two summaries.
type VarianceReport struct {
	Metric Metric `json:"metric"`
	Total  Delta  `json:"total"`
	Mean   Delta  `json:"mean"`
	Count  Delta  `json:"count"`
}
