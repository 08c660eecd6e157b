package metrics

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"painel/domain/core"
	"painel/domain/dataset"
	"painel/domain/filter"
	"painel/domain/metrics"
	apperrors "painel/internal/errors"
	"painel/internal/filtering"
	"painel/internal/inference"
)

func viewOf(t *testing.T, table *dataset.TypedTable, spec filter.Spec) *filtering.View {
	t.Helper()
	v, err := filtering.Apply(table, spec)
	require.NoError(t, err)
	return v
}

func TestSummarizeEndToEnd(t *testing.T) {
	raw, err := dataset.NewRawTableFromColumns([]dataset.RawColumn{{
		Name:  "valor",
		Cells: []any{"R$ 10,00", "R$ 20,00", "R$ 30,00", "", "R$ 50,00"},
	}})
	require.NoError(t, err)

	res, err := inference.Infer(raw, inference.Hints{Currency: []string{"valor"}})
	require.NoError(t, err)

	summary, err := Summarize(viewOf(t, res.Table, filter.NewSpec()), metrics.OfColumn("valor"))
	require.NoError(t, err)
	assert.InDelta(t, 110.0, summary.Total, 1e-9)
	assert.Equal(t, 5, summary.Count)
	assert.InDelta(t, 22.0, summary.Mean, 1e-9)
}

func TestSummarizeRowCount(t *testing.T) {
	table, err := dataset.NewTypedTable([]dataset.Column{
		{Name: "regiao", Role: dataset.RoleCategorical, Strings: []string{"Sul", "Sul", "Norte"}},
	})
	require.NoError(t, err)

	summary, err := Summarize(viewOf(t, table, filter.NewSpec()), metrics.RowCount())
	require.NoError(t, err)
	assert.Equal(t, metrics.Summary{Metric: metrics.RowCount(), Total: 3, Mean: 1, Count: 3, Present: 3}, summary)

	empty, err := Summarize(viewOf(t, table, filter.NewSpec().With("regiao", filter.None())), metrics.RowCount())
	require.NoError(t, err)
	assert.Equal(t, 0.0, empty.Total)
	assert.Equal(t, 0.0, empty.Mean)
	assert.Equal(t, 0, empty.Count)
}

func TestSummarizeEmptyAndMissing(t *testing.T) {
	table, err := dataset.NewTypedTable([]dataset.Column{
		{Name: "regiao", Role: dataset.RoleText, Strings: []string{"Sul", "Sul", "Norte"}},
		{Name: "peso", Role: dataset.RoleNumeric, Numbers: []float64{2, math.NaN(), 4}},
	})
	require.NoError(t, err)

	all, err := Summarize(viewOf(t, table, filter.NewSpec()), metrics.OfColumn("peso"))
	require.NoError(t, err)
	assert.Equal(t, 6.0, all.Total)
	assert.Equal(t, 3.0, all.Mean)
	assert.Equal(t, 3, all.Count)
	assert.Equal(t, 2, all.Present)

	none, err := Summarize(viewOf(t, table, filter.NewSpec().With("regiao", filter.Only("Leste"))), metrics.OfColumn("peso"))
	require.NoError(t, err)
	assert.Equal(t, metrics.Summary{Metric: metrics.OfColumn("peso")}, none)
}

func TestSummarizeRejectsNonNumeric(t *testing.T) {
	table, err := dataset.NewTypedTable([]dataset.Column{
		{Name: "regiao", Role: dataset.RoleText, Strings: []string{"Sul"}},
	})
	require.NoError(t, err)
	view := viewOf(t, table, filter.NewSpec())

	_, err = Summarize(view, metrics.OfColumn("regiao"))
	assert.Equal(t, apperrors.CodeStructural, apperrors.GetCode(err))
	assert.ErrorIs(t, err, core.ErrNotNumeric)

	_, err = Summarize(view, metrics.OfColumn("valor"))
	assert.ErrorIs(t, err, core.ErrColumnNotFound)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name        string
		base, comp  float64
		wantAbs     float64
		wantPct     float64
		wantDefined bool
		wantDir     metrics.Direction
	}{
		{"growth", 100, 150, 50, 50, true, metrics.Favorable},
		{"decline", 200, 150, -50, -25, true, metrics.Unfavorable},
		{"zero base", 0, 50, 50, 0, false, metrics.Favorable},
		{"both zero", 0, 0, 0, 0, true, metrics.Favorable},
		{"negative base", -100, -50, 50, -50, true, metrics.Favorable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Compare(metrics.Summary{Total: tt.base}, metrics.Summary{Total: tt.comp})
			assert.Equal(t, tt.wantAbs, report.Total.Absolute)
			assert.Equal(t, tt.wantPct, report.Total.Percent)
			assert.Equal(t, tt.wantDefined, report.Total.PercentDefined)
			assert.Equal(t, tt.wantDir, report.Total.Direction)
			assert.False(t, math.IsInf(report.Total.Percent, 0))
		})
	}
}

func TestCompareCounts(t *testing.T) {
	report := Compare(
		metrics.Summary{Metric: metrics.RowCount(), Total: 4, Mean: 1, Count: 4},
		metrics.Summary{Metric: metrics.RowCount(), Total: 5, Mean: 1, Count: 5},
	)
	assert.Equal(t, 1.0, report.Count.Absolute)
	assert.Equal(t, 25.0, report.Count.Percent)
	assert.Equal(t, 0.0, report.Mean.Absolute)
	assert.True(t, report.Mean.PercentDefined)
}

func TestComparePair(t *testing.T) {
	table, err := dataset.NewTypedTable([]dataset.Column{
		{Name: "regiao", Role: dataset.RoleCategorical, Strings: []string{"Sul", "Norte", "Sul", "Norte"}},
		{Name: "valor", Role: dataset.RoleCurrency, Numbers: []float64{10, 0, 30, 5}},
	})
	require.NoError(t, err)

	pair, err := filtering.NewEngine(4).ApplyPair(context.Background(), table,
		filter.NewSpec().With("regiao", filter.Only("Norte")),
		filter.NewSpec().With("regiao", filter.Only("Sul")))
	require.NoError(t, err)

	out, err := ComparePair(pair, ParseMetrics(nil, []string{"valor"}))
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.True(t, out[0].Metric.IsRowCount())
	assert.Equal(t, 0.0, out[0].Variance.Count.Absolute)

	assert.Equal(t, "valor", out[1].Metric.Column)
	assert.Equal(t, 5.0, out[1].Base.Total)
	assert.Equal(t, 40.0, out[1].Comparison.Total)
	assert.Equal(t, 700.0, out[1].Variance.Total.Percent)

	_, err = ComparePair(pair, []metrics.Metric{metrics.OfColumn("regiao")})
	assert.ErrorIs(t, err, core.ErrNotNumeric)
}

func TestParseMetrics(t *testing.T) {
	got := ParseMetrics([]string{"row_count", "custo"}, []string{"valor"})
	assert.Equal(t, []metrics.Metric{metrics.RowCount(), metrics.OfColumn("custo")}, got)
	assert.Equal(t, DefaultMetrics([]string{"valor"}), ParseMetrics(nil, []string{"valor"}))
}
