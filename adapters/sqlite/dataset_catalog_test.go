package sqlite

import (
	"context"
	"math"
	"testing"
	"time"

	"painel/domain/core"
	"painel/domain/dataset"
	"painel/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openCatalog(t *testing.T) (*sqlx.DB, *datasetCatalog) {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migration.NewRunner().Run(ctx, db))
	return db, NewDatasetCatalog(db).(*datasetCatalog)
}

func sampleEntry(t *testing.T, name string) *dataset.Entry {
	t.Helper()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	table, err := dataset.NewTypedTable([]dataset.Column{
		{Name: "data", Role: dataset.RoleDate, Dates: []dataset.NullDate{dataset.DateOf(day), {}, dataset.DateOf(day.AddDate(0, 0, 1))}},
		{Name: "regiao", Role: dataset.RoleCategorical, Strings: []string{"Sul", "", "Norte"}},
		{Name: "valor", Role: dataset.RoleCurrency, Numbers: []float64{10.5, 0, 1234.56}},
		{Name: "quantidade", Role: dataset.RoleNumeric, Numbers: []float64{1, math.NaN(), 3}},
	})
	require.NoError(t, err)
	return &dataset.Entry{
		ID:            core.DatasetID(core.NewID()),
		Name:          name,
		SourceFile:    "vendas.csv",
		Table:         table,
		FilterColumns: []string{"regiao"},
		MetricColumns: []string{"valor"},
		Metadata: dataset.Metadata{
			FileInfo: dataset.FileInfo{Format: "csv", Delimiter: ";"},
			Missing:  []dataset.MissingCount{{Column: "regiao", Missing: 1, Warning: "1 linha sem valor"}},
		},
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	db, _ := openCatalog(t)

	var busy int
	require.NoError(t, db.Get(&busy, "PRAGMA busy_timeout"))
	assert.Equal(t, 5000, busy)
}

func TestDatasetCatalog_SaveGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, catalog := openCatalog(t)
	entry := sampleEntry(t, "vendas")

	require.NoError(t, catalog.Save(ctx, entry))
	got, err := catalog.Get(ctx, "vendas")
	require.NoError(t, err)

	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, "vendas.csv", got.SourceFile)
	assert.Equal(t, []string{"regiao"}, got.FilterColumns)
	assert.Equal(t, []string{"valor"}, got.MetricColumns)
	assert.Equal(t, entry.Metadata, got.Metadata)
	assert.Equal(t, entry.Table.Fingerprint(), got.Table.Fingerprint())
	assert.Equal(t, 3, got.Table.NumRows())

	qty, ok := got.Table.Column("quantidade")
	require.True(t, ok)
	assert.True(t, math.IsNaN(qty.Numbers[1]))

	dates, ok := got.Table.Column("data")
	require.True(t, ok)
	assert.False(t, dates.Dates[1].Valid)
	assert.WithinDuration(t, entry.UpdatedAt, got.UpdatedAt, time.Microsecond)
}

func TestDatasetCatalog_SaveOverwritesByName(t *testing.T) {
	ctx := context.Background()
	_, catalog := openCatalog(t)

	first := sampleEntry(t, "vendas")
	require.NoError(t, catalog.Save(ctx, first))

	second := sampleEntry(t, "vendas")
	second.SourceFile = "vendas_marco.xlsx"
	second.FilterColumns = []string{"regiao", "data"}
	require.NotEqual(t, first.ID, second.ID)
	require.NoError(t, catalog.Save(ctx, second))
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

	got, err := catalog.Get(ctx, "vendas")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "vendas_marco.xlsx", got.SourceFile)
	assert.Equal(t, []string{"regiao", "data"}, got.FilterColumns)

	list, err := catalog.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDatasetCatalog_List(t *testing.T) {
	ctx := context.Background()
	_, catalog := openCatalog(t)

	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, catalog.Save(ctx, sampleEntry(t, name)))
	}

	list, err := catalog.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "c", list[2].Name)
	assert.Equal(t, 3, list[0].RecordCount)
	assert.Equal(t, 4, list[0].FieldCount)
}

func TestDatasetCatalog_NotFound(t *testing.T) {
	ctx := context.Background()
	_, catalog := openCatalog(t)

	_, err := catalog.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrDatasetNotFound)
	assert.True(t, core.IsNotFoundError(err))

	err = catalog.Delete(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrDatasetNotFound)
}

func TestDatasetCatalog_Delete(t *testing.T) {
	ctx := context.Background()
	_, catalog := openCatalog(t)
	require.NoError(t, catalog.Save(ctx, sampleEntry(t, "vendas")))

	require.NoError(t, catalog.Delete(ctx, "vendas"))
	_, err := catalog.Get(ctx, "vendas")
	assert.ErrorIs(t, err, core.ErrDatasetNotFound)
}

func TestMigration_Idempotent(t *testing.T) {
	ctx := context.Background()
	db, _ := openCatalog(t)
	runner := migration.NewRunner()

	require.NoError(t, runner.Run(ctx, db))
	version, err := runner.AppliedVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, runner.Version(), version)
}
