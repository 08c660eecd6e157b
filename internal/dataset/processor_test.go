package dataset

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"painel/adapters/excel"
	"painel/adapters/sqlite"
	"painel/domain/core"
	"painel/domain/dataset"
	apperrors "painel/internal/errors"
	"painel/internal/migration"
	"painel/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Save(ctx context.Context, entry *dataset.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockCatalog) Get(ctx context.Context, name string) (*dataset.Entry, error) {
	args := m.Called(ctx, name)
	if e, ok := args.Get(0).(*dataset.Entry); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCatalog) List(ctx context.Context) ([]dataset.Summary, error) {
	args := m.Called(ctx)
	return args.Get(0).([]dataset.Summary), args.Error(1)
}

func (m *mockCatalog) Delete(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func newProcessor(t *testing.T, catalog *mockCatalog) *Processor {
	t.Helper()
	storage := NewLocalFileStorageWithPath(t.TempDir())
	return NewProcessor(excel.NewDataReader(excel.DefaultReaderConfig()), catalog, nil, storage)
}

func salesRequest(t *testing.T) Request {
	t.Helper()
	hints := testkit.SalesHints()
	return Request{
		Name:            "vendas",
		SourceFile:      "vendas.csv",
		Raw:             testkit.NewSalesGenerator(testkit.DefaultSalesConfig()).RawTable(),
		CurrencyColumns: hints.Currency,
		TextColumns:     hints.Text,
		FilterColumns:   hints.Filters,
		MetricColumns:   hints.Metrics,
	}
}

func TestProcess_StoresEntry(t *testing.T) {
	catalog := &mockCatalog{}
	catalog.On("Save", mock.Anything, mock.AnythingOfType("*dataset.Entry")).Return(nil)
	p := newProcessor(t, catalog)

	out, err := p.Process(context.Background(), salesRequest(t))
	require.NoError(t, err)
	catalog.AssertNumberOfCalls(t, "Save", 1)

	entry := out.Entry
	assert.Equal(t, "vendas", entry.Name)
	assert.Equal(t, 500, entry.Table.NumRows())
	assert.Equal(t, testkit.SalesHints().Filters, entry.FilterColumns)

	valor, ok := entry.Table.Column("valor")
	require.True(t, ok)
	assert.Equal(t, dataset.RoleCurrency, valor.Role)
	pedido, _ := entry.Table.Column("pedido")
	assert.Equal(t, dataset.RoleText, pedido.Role)
	data, _ := entry.Table.Column("data")
	assert.Equal(t, dataset.RoleDate, data.Role)
	regiao, _ := entry.Table.Column("regiao")
	assert.Equal(t, dataset.RoleCategorical, regiao.Role)

	var valorField *dataset.FieldInfo
	for i := range entry.Metadata.Fields {
		if entry.Metadata.Fields[i].Name == "valor" {
			valorField = &entry.Metadata.Fields[i]
		}
	}
	require.NotNil(t, valorField)
	assert.Contains(t, valorField.Statistics, "sum")
	assert.Greater(t, valorField.Degraded, 0)
}

func TestProcess_ReportsMissingFilterValues(t *testing.T) {
	catalog := &mockCatalog{}
	catalog.On("Save", mock.Anything, mock.Anything).Return(nil)
	p := newProcessor(t, catalog)

	raw, err := dataset.NewRawTable(
		[]string{"data", "regiao", "valor"},
		[][]string{
			{"01/02/2024", "Sul", "R$ 10,00"},
			{"02/02/2024", "", "R$ 20,00"},
			{"03/02/2024", "Norte", "R$ 30,00"},
			{"04/02/2024", "", ""},
			{"05/02/2024", "Sul", "R$ 50,00"},
		}, dataset.RawOptions{})
	require.NoError(t, err)

	out, err := p.Process(context.Background(), Request{
		Name:            "pequeno",
		Raw:             raw,
		CurrencyColumns: []string{"valor"},
		FilterColumns:   []string{"regiao"},
		MetricColumns:   []string{"valor"},
	})
	require.NoError(t, err)
	require.Len(t, out.Missing, 1)
	assert.Equal(t, "regiao", out.Missing[0].Column)
	assert.Equal(t, 2, out.Missing[0].Missing)
	assert.Contains(t, out.Missing[0].Warning, "regiao")
	assert.Equal(t, out.Missing, out.Entry.Metadata.Missing)
}

func TestProcess_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		code   string
		column string
	}{
		{"no filter columns", func(r *Request) { r.FilterColumns = nil }, apperrors.CodeConfigInvalid, ""},
		{"unknown filter column", func(r *Request) { r.FilterColumns = []string{"loja"} }, apperrors.CodeStructural, "loja"},
		{"unknown metric column", func(r *Request) { r.MetricColumns = []string{"lucro"} }, apperrors.CodeStructural, "lucro"},
		{"text metric", func(r *Request) { r.MetricColumns = []string{"pedido"} }, apperrors.CodeStructural, "pedido"},
		{"missing name", func(r *Request) { r.Name = "" }, apperrors.CodeInvalidInput, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := &mockCatalog{}
			p := newProcessor(t, catalog)
			req := salesRequest(t)
			tt.mutate(&req)

			_, err := p.Process(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetCode(err))
			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.column, appErr.Column)
			catalog.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestProcess_EmptyTable(t *testing.T) {
	catalog := &mockCatalog{}
	p := newProcessor(t, catalog)
	raw, err := dataset.NewRawTable([]string{"regiao"}, nil, dataset.RawOptions{})
	require.NoError(t, err)

	_, err = p.Process(context.Background(), Request{Name: "x", Raw: raw, FilterColumns: []string{"regiao"}})
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))
}

func TestProcess_SaveFailure(t *testing.T) {
	catalog := &mockCatalog{}
	catalog.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	p := newProcessor(t, catalog)

	_, err := p.Process(context.Background(), salesRequest(t))
	assert.Equal(t, apperrors.CodeDatabaseError, apperrors.GetCode(err))
}

func TestRead_InputFormatErrors(t *testing.T) {
	p := newProcessor(t, &mockCatalog{})

	_, err := p.Read(context.Background(), "notas.pdf", strings.NewReader("%PDF"))
	assert.Equal(t, apperrors.CodeInputFormat, apperrors.GetCode(err))

	_, err = p.Read(context.Background(), "vazio.csv", strings.NewReader("regiao;valor\n"))
	assert.Equal(t, apperrors.CodeInputFormat, apperrors.GetCode(err))
}

func TestUploadThenProcess(t *testing.T) {
	catalog := &mockCatalog{}
	catalog.On("Save", mock.Anything, mock.Anything).Return(nil)
	p := newProcessor(t, catalog)
	ctx := context.Background()

	csv := testkit.NewSalesGenerator(testkit.DefaultSalesConfig()).CSV(';')
	up, err := p.StoreUpload(ctx, "Vendas.CSV", strings.NewReader(string(csv)))
	require.NoError(t, err)
	assert.Equal(t, 500, up.Result.Table.NumRows())
	assert.Positive(t, up.Size)

	req := salesRequest(t)
	req.Raw = nil
	req.SourceFile = ""
	out, err := p.ProcessUpload(ctx, up.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Vendas.CSV", out.Entry.SourceFile)
	assert.Equal(t, "csv", out.Entry.Metadata.FileInfo.Format)

	exists, err := p.storage.Exists(ctx, up.Path)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = p.GetUpload(up.ID)
	assert.ErrorIs(t, err, core.ErrUploadNotFound)
}

func TestStoreUpload_RejectsUnreadable(t *testing.T) {
	p := newProcessor(t, &mockCatalog{})

	_, err := p.StoreUpload(context.Background(), "dados.csv", strings.NewReader(""))
	assert.Equal(t, apperrors.CodeInputFormat, apperrors.GetCode(err))
}

func TestProcess_ReprocessKeepsStoredIdentity(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migration.NewRunner().Run(ctx, db))

	catalog := sqlite.NewDatasetCatalog(db)
	p := NewProcessor(excel.NewDataReader(excel.DefaultReaderConfig()), catalog, nil, nil)

	first, err := p.Process(ctx, salesRequest(t))
	require.NoError(t, err)

	req := salesRequest(t)
	req.SourceFile = "vendas_marco.csv"
	second, err := p.Process(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.Entry.ID, second.Entry.ID)
	assert.True(t, first.Entry.CreatedAt.Equal(second.Entry.CreatedAt))
	assert.False(t, second.Entry.CreatedAt.IsZero())

	stored, err := catalog.Get(ctx, "vendas")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, second.Entry.ID)
	assert.True(t, stored.CreatedAt.Equal(second.Entry.CreatedAt))
	assert.Equal(t, "vendas_marco.csv", stored.SourceFile)
}

func TestProcessUpload_StoredFileGone(t *testing.T) {
	catalog := &mockCatalog{}
	p := newProcessor(t, catalog)
	ctx := context.Background()

	csv := testkit.NewSalesGenerator(testkit.DefaultSalesConfig()).CSV(';')
	up, err := p.StoreUpload(ctx, "vendas.csv", strings.NewReader(string(csv)))
	require.NoError(t, err)
	require.NoError(t, os.Remove(up.Path))

	_, err = p.ProcessUpload(ctx, up.ID, salesRequest(t))
	assert.ErrorIs(t, err, core.ErrUploadNotFound)
	catalog.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)

	_, err = p.GetUpload(up.ID)
	assert.ErrorIs(t, err, core.ErrUploadNotFound)
}
