package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"painel/domain/core"
	"painel/domain/dataset"
	"painel/internal/migration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a disposable database named by TEST_DATABASE_URL.
func TestDatasetCatalog_Postgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping postgres test: TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, url)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, migration.NewRunner().Run(ctx, db))

	name := "teste_" + core.NewID().String()[:8]
	table, err := dataset.NewTypedTable([]dataset.Column{
		{Name: "data", Role: dataset.RoleDate, Dates: []dataset.NullDate{dataset.DateOf(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))}},
		{Name: "valor", Role: dataset.RoleCurrency, Numbers: []float64{99.9}},
	})
	require.NoError(t, err)

	catalog := NewDatasetCatalog(db)
	entry := &dataset.Entry{
		ID:            core.DatasetID(core.NewID()),
		Name:          name,
		Table:         table,
		FilterColumns: []string{"data"},
		MetricColumns: []string{"valor"},
	}
	require.NoError(t, catalog.Save(ctx, entry))
	defer catalog.Delete(ctx, name)

	got, err := catalog.Get(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, table.Fingerprint(), got.Table.Fingerprint())
	assert.Equal(t, []string{"valor"}, got.MetricColumns)

	list, err := catalog.List(ctx)
	require.NoError(t, err)
	var names []string
	for _, s := range list {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, name)

	require.NoError(t, catalog.Delete(ctx, name))
	_, err = catalog.Get(ctx, name)
	assert.ErrorIs(t, err, core.ErrDatasetNotFound)
}
