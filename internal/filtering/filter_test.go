package filtering

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"painel/domain/core"
	"painel/domain/dataset"
	"painel/domain/filter"
	apperrors "painel/internal/errors"
	"painel/internal/inference"
	"painel/internal/testkit"
)

func day(d int) dataset.NullDate {
	return dataset.DateOf(time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC))
}

// salesTable has 10 rows; regiao is blank on rows 2, 5 and 8.
func salesTable(t *testing.T) *dataset.TypedTable {
	t.Helper()
	table, err := dataset.NewTypedTable([]dataset.Column{
		{Name: "data", Role: dataset.RoleDate, Dates: []dataset.NullDate{
			day(1), day(2), day(3), day(4), {}, day(6), day(7), day(8), day(9), day(10),
		}},
		{Name: "regiao", Role: dataset.RoleText, Strings: []string{
			"Sul", "Norte", "", "Sul", "Norte", "", "Sul", "Norte", "", "Sul",
		}},
		{Name: "valor", Role: dataset.RoleCurrency, Numbers: []float64{
			10, 20, 30, 40, 50, 60, 70, 80, 90, 100,
		}},
	})
	require.NoError(t, err)
	return table
}

func TestApplyIdentityLaw(t *testing.T) {
	table := salesTable(t)

	for name, spec := range map[string]filter.Spec{
		"zero spec":       {},
		"new spec":        filter.NewSpec(),
		"all selection":   filter.NewSpec().With("regiao", filter.All()),
		"empty shorthand": filter.NewSpec().With("regiao", filter.SelectionOf(nil)),
	} {
		t.Run(name, func(t *testing.T) {
			view, err := Apply(table, spec)
			require.NoError(t, err)
			assert.True(t, view.IsIdentity())
			assert.Same(t, table, view.Materialize())
		})
	}
}

func TestApplyMissingPlaceholder(t *testing.T) {
	table := salesTable(t)
	col, _ := table.Column("regiao")
	assert.Contains(t, col.Options(), dataset.MissingLabel)

	view, err := Apply(table, filter.NewSpec().With("regiao", filter.Only(dataset.MissingLabel)))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 8}, view.Rows)
}

func TestApplyLiteralPlaceholderValue(t *testing.T) {
	table, err := dataset.NewTypedTable([]dataset.Column{
		{Name: "obs", Role: dataset.RoleText, Strings: []string{"(vazio)", "", `\(vazio)`, "ok"}},
	})
	require.NoError(t, err)
	col, _ := table.Column("obs")
	assert.Equal(t, []string{dataset.MissingLabel, `\(vazio)`, `\\(vazio)`, "ok"}, col.Options())

	view, err := Apply(table, filter.NewSpec().With("obs", filter.Only(dataset.MissingLabel)))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, view.Rows)

	view, err = Apply(table, filter.NewSpec().With("obs", filter.Only(dataset.EscapeKey("(vazio)"))))
	require.NoError(t, err)
	assert.Equal(t, []int{0}, view.Rows)

	view, err = Apply(table, filter.NewSpec().With("obs", filter.Only(dataset.EscapeKey(`\(vazio)`))))
	require.NoError(t, err)
	assert.Equal(t, []int{2}, view.Rows)
}

func TestApplySelections(t *testing.T) {
	table := salesTable(t)

	tests := []struct {
		name string
		spec filter.Spec
		want []int
	}{
		{"only sul", filter.NewSpec().With("regiao", filter.Only("Sul")), []int{0, 3, 6, 9}},
		{"two values", filter.NewSpec().With("regiao", filter.Only("Sul", "Norte")), []int{0, 1, 3, 4, 6, 7, 9}},
		{"none", filter.NewSpec().With("regiao", filter.None()), []int{}},
		{"empty only is none", filter.NewSpec().With("regiao", filter.Only()), []int{}},
		{"unknown value", filter.NewSpec().With("regiao", filter.Only("Leste")), []int{}},
		{"numeric key", filter.NewSpec().With("valor", filter.Only("30", "100")), []int{2, 9}},
		{
			"inclusive range",
			filter.NewSpec().WithDates(filter.DayRange(time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC))),
			[]int{2, 3, 5},
		},
		{
			"range and selection",
			filter.NewSpec().With("regiao", filter.Only("Sul")).WithDates(filter.DayRange(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC))),
			[]int{0, 3, 6},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := Apply(table, tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, view.Rows)
		})
	}
}

func TestApplyRangeExcludesMissingDates(t *testing.T) {
	table := salesTable(t)
	r := filter.DateRange{
		Start: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	view, err := Apply(table, filter.NewSpec().WithDates(r))
	require.NoError(t, err)
	assert.Equal(t, 9, view.Len())
	assert.NotContains(t, view.Rows, 4)
}

func TestApplyStructuralErrors(t *testing.T) {
	table := salesTable(t)

	_, err := Apply(table, filter.NewSpec().With("cidade", filter.Only("Recife")))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeStructural, apperrors.GetCode(err))
	assert.ErrorIs(t, err, core.ErrColumnNotFound)

	noDates, err := dataset.NewTypedTable([]dataset.Column{
		{Name: "valor", Role: dataset.RoleCurrency, Numbers: []float64{1}},
	})
	require.NoError(t, err)
	_, err = Apply(noDates, filter.NewSpec().WithDates(filter.DayRange(time.Now(), time.Now())))
	assert.ErrorIs(t, err, core.ErrNoDateColumn)

	inverted := filter.DateRange{Start: time.Now(), End: time.Now().Add(-time.Hour)}
	_, err = Apply(table, filter.NewSpec().WithDates(inverted))
	assert.ErrorIs(t, err, core.ErrInvalidRange)
}

func TestApplyPreservesOrderAndIsDeterministic(t *testing.T) {
	raw := testkit.NewSalesGenerator(testkit.DefaultSalesConfig()).RawTable()
	hints := testkit.SalesHints()
	res, err := inference.Infer(raw, inference.Hints{Currency: hints.Currency, Text: hints.Text})
	require.NoError(t, err)

	spec := filter.NewSpec().
		With("regiao", filter.Only("Sul", "Sudeste")).
		With("produto", filter.Only("Café", "Arroz", "Leite"))

	first, err := Apply(res.Table, spec)
	require.NoError(t, err)
	second, err := Apply(res.Table, spec)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Rows, second.Rows); diff != "" {
		t.Errorf("rows differ:\n%s", diff)
	}
	assert.Equal(t, first.Materialize().Fingerprint(), second.Materialize().Fingerprint())
	assert.NotEmpty(t, first.Rows)
	for i := 1; i < len(first.Rows); i++ {
		assert.Less(t, first.Rows[i-1], first.Rows[i])
	}
}

func TestEngineCachesByContent(t *testing.T) {
	table := salesTable(t)
	engine := NewEngine(8)

	a, err := engine.Apply(table, filter.NewSpec().With("regiao", filter.Only("Sul")))
	require.NoError(t, err)
	b, err := engine.Apply(table, filter.NewSpec().With("regiao", filter.Only("Sul")))
	require.NoError(t, err)
	assert.Same(t, a, b)

	// Editing a value must change the key even with no external counter.
	c, err := engine.Apply(table, filter.NewSpec().With("regiao", filter.Only("Norte")))
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, []int{1, 4, 7}, c.Rows)

	stats := engine.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
	assert.Equal(t, 2, stats.Entries)
}

func TestEngineEvictsOldest(t *testing.T) {
	table := salesTable(t)
	engine := NewEngine(2)

	for _, v := range []string{"Sul", "Norte", "(vazio)"} {
		_, err := engine.Apply(table, filter.NewSpec().With("regiao", filter.Only(v)))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, engine.Stats().Entries)

	_, err := engine.Apply(table, filter.NewSpec().With("regiao", filter.Only("Sul")))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), engine.Stats().Misses)

	engine.Purge()
	assert.Equal(t, 0, engine.Stats().Entries)
}

func TestEngineErrorsAreNotCached(t *testing.T) {
	engine := NewEngine(4)
	_, err := engine.Apply(salesTable(t), filter.NewSpec().With("cidade", filter.Only("x")))
	require.Error(t, err)
	assert.Equal(t, 0, engine.Stats().Entries)
}

func TestApplyPairIndependentViews(t *testing.T) {
	table := salesTable(t)
	engine := NewEngine(8)

	base := filter.NewSpec().With("regiao", filter.Only("Sul"))
	comparison := filter.NewSpec().WithDates(filter.DayRange(
		time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	))

	pair, err := engine.ApplyPair(context.Background(), table, base, comparison)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 6, 9}, pair.Base.Rows)
	assert.Equal(t, []int{7, 8, 9}, pair.Comparison.Rows)

	_, err = engine.ApplyPair(context.Background(), table, base, filter.NewSpec().With("cidade", filter.Only("x")))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = engine.ApplyPair(ctx, table, base, comparison)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineConcurrentIdenticalRequests(t *testing.T) {
	table := salesTable(t)
	engine := NewEngine(8)
	spec := filter.NewSpec().With("regiao", filter.Only("Norte"))

	var wg sync.WaitGroup
	views := make([]*View, 16)
	for i := range views {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := engine.Apply(table, spec)
			assert.NoError(t, err)
			views[i] = v
		}(i)
	}
	wg.Wait()

	for _, v := range views {
		assert.Equal(t, []int{1, 4, 7}, v.Rows)
	}
	stats := engine.Stats()
	assert.Equal(t, uint64(len(views)), stats.Hits+stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}
