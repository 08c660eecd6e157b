package profiling

import (
	"math"

	"painel/domain/dataset"
)

// ColumnProfile is the numeric profile of one metric column.
type ColumnProfile struct {
	Column       string       `json:"column"`
	Rows         int          `json:"rows"`
	Missing      int          `json:"missing"`
	Distribution Distribution `json:"distribution"`
}

// Statistics flattens the profile for catalog metadata. Non-finite values
// are left out.
func (p ColumnProfile) Statistics() map[string]float64 {
	d := p.Distribution
	all := map[string]float64{
		"sum":      d.Sum,
		"mean":     d.Mean,
		"std_dev":  d.StdDev,
		"min":      d.Min,
		"max":      d.Max,
		"median":   d.Median,
		"q25":      d.Q25,
		"q75":      d.Q75,
		"skewness": d.Skewness,
		"kurtosis": d.Kurtosis,
		"outliers": float64(d.Outliers),
		"zeros":    float64(d.Zeros),
		"negative": float64(d.Negative),
	}
	out := make(map[string]float64, len(all))
	for k, v := range all {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

// DataProfiler profiles numeric columns of typed tables
type DataProfiler struct {
	analyzer *DistributionAnalyzer
}

// NewDataProfiler creates a new data profiler
func NewDataProfiler() *DataProfiler {
	return &DataProfiler{analyzer: NewDistributionAnalyzer()}
}

// ProfileColumn profiles a numeric column. ok is false for non-numeric columns
// and columns with no present values.
func (dp *DataProfiler) ProfileColumn(col *dataset.Column) (ColumnProfile, bool) {
	if !col.Role.IsNumeric() {
		return ColumnProfile{}, false
	}
	profile := ColumnProfile{Column: col.Name, Rows: col.Len()}
	data := make([]float64, 0, len(col.Numbers))
	for _, v := range col.Numbers {
		if math.IsNaN(v) {
			profile.Missing++
			continue
		}
		data = append(data, v)
	}
	dist, err := dp.analyzer.AnalyzeDistribution(data)
	if err != nil {
		return profile, false
	}
	profile.Distribution = dist
	return profile, true
}

// ProfileTable profiles the named columns, skipping unknown or non-numeric ones.
func (dp *DataProfiler) ProfileTable(table *dataset.TypedTable, columns []string) map[string]ColumnProfile {
	results := make(map[string]ColumnProfile)
	for _, name := range columns {
		col, ok := table.Column(name)
		if !ok {
			continue
		}
		if p, ok := dp.ProfileColumn(col); ok {
			results[name] = p
		}
	}
	return results
}
