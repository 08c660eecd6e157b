package profiling

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Distribution summarizes the shape of a numeric column.
type Distribution struct {
	Count    int     `json:"count"`
	Sum      float64 `json:"sum"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	Q25      float64 `json:"q25"`
	Q75      float64 `json:"q75"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"` // excess
	IsNormal bool    `json:"is_normal"`
	NormalP  float64 `json:"normal_p"`
	Outliers int     `json:"outliers"`
	Zeros    int     `json:"zeros"`
	Negative int     `json:"negative"`
}

// DistributionAnalyzer handles distribution shape analysis
type DistributionAnalyzer struct{}

// NewDistributionAnalyzer creates a new distribution analyzer
func NewDistributionAnalyzer() *DistributionAnalyzer {
	return &DistributionAnalyzer{}
}

// AnalyzeDistribution computes summary and shape statistics. data must not
// contain NaN.
func (da *DistributionAnalyzer) AnalyzeDistribution(data []float64) (Distribution, error) {
	d := Distribution{Count: len(data)}

	mean, err := stats.Mean(data)
	if err != nil {
		return d, err
	}
	median, err := stats.Median(data)
	if err != nil {
		return d, err
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	q25 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
	q75 := stat.Quantile(0.75, stat.Empirical, sorted, nil)

	d.Sum = floats.Sum(data)
	d.Mean = mean
	d.Min = floats.Min(data)
	d.Max = floats.Max(data)
	d.Median = median
	d.Q25 = q25
	d.Q75 = q75

	if len(data) > 1 {
		d.StdDev = stat.StdDev(data, nil)
	}
	if len(data) > 2 && d.StdDev > 0 {
		d.Skewness = stat.Skew(data, nil)
	}
	if len(data) > 3 && d.StdDev > 0 {
		d.Kurtosis = stat.ExKurtosis(data, nil)
	}
	d.IsNormal, d.NormalP = testNormality(len(data), d.Skewness, d.Kurtosis)
	d.Outliers = detectOutliers(data, q25, q75)

	for _, x := range data {
		switch {
		case x == 0:
			d.Zeros++
		case x < 0:
			d.Negative++
		}
	}
	return d, nil
}

// testNormality is a Jarque-Bera test on the sample skewness and excess
// kurtosis, chi-squared with two degrees of freedom.
func testNormality(n int, skew, exKurt float64) (bool, float64) {
	if n < 8 {
		return false, 1.0
	}
	jb := float64(n) / 6 * (skew*skew + exKurt*exKurt/4)
	p := 1 - distuv.ChiSquared{K: 2}.CDF(jb)
	if math.IsNaN(p) {
		return false, 1.0
	}
	return p > 0.05, p
}

// detectOutliers counts values outside 1.5 IQR of the quartiles
func detectOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lowerBound := q25 - 1.5*iqr
	upperBound := q75 + 1.5*iqr

	outlierCount := 0
	for _, x := range data {
		if x < lowerBound || x > upperBound {
			outlierCount++
		}
	}
	return outlierCount
}
