package excel

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"painel/domain/core"
	"painel/domain/dataset"
	"painel/internal/testkit"
)

func read(t *testing.T, name, content string) (*ReadResult, error) {
	t.Helper()
	return NewDataReader(DefaultReaderConfig()).Read(context.Background(), name, strings.NewReader(content))
}

func TestReadCSVSemicolonBrazilian(t *testing.T) {
	res, err := read(t, "vendas.csv", " data ; valor ;regiao\n01/02/2024;R$ 1.234,56;Sul\n02/02/2024;\"R$ 10,00\";Norte\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"data", "valor", "regiao"}, res.Table.Names())
	assert.Equal(t, 2, res.Table.NumRows())
	assert.Equal(t, ";", res.Info.Delimiter)
	assert.Equal(t, EncodingUTF8, res.Info.Encoding)

	valor, _ := res.Table.Column("valor")
	assert.Equal(t, "R$ 1.234,56", valor.Cells[0])
}

func TestReadCSVFallsBackToComma(t *testing.T) {
	res, err := read(t, "sales.csv", "date,amount\n2024-02-01,\"1,234.56\"\n")
	require.NoError(t, err)

	assert.Equal(t, ",", res.Info.Delimiter)
	amount, _ := res.Table.Column("amount")
	assert.Equal(t, "1,234.56", amount.Cells[0])
}

func TestReadCSVWindows1252AndBOM(t *testing.T) {
	encoded, err := charmap.Windows1252.NewEncoder().String("região;valor\nSão Paulo;5,00\n")
	require.NoError(t, err)

	res, err := read(t, "legado.csv", encoded)
	require.NoError(t, err)
	assert.Equal(t, EncodingWindows1252, res.Info.Encoding)
	assert.Equal(t, []string{"região", "valor"}, res.Table.Names())
	col, _ := res.Table.Column("região")
	assert.Equal(t, "São Paulo", col.Cells[0])

	res, err = read(t, "bom.csv", "\xef\xbb\xbfregiao;valor\nSul;1\n")
	require.NoError(t, err)
	assert.Equal(t, "regiao", res.Table.Names()[0])
}

func TestReadCSVLowercaseHeaders(t *testing.T) {
	cfg := DefaultReaderConfig()
	cfg.LowercaseHeaders = true
	res, err := NewDataReader(cfg).Read(context.Background(), "x.csv", strings.NewReader("Região;VALOR\nSul;1\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"região", "valor"}, res.Table.Names())
}

func TestReadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name, file, content string
	}{
		{"empty", "a.csv", ""},
		{"blank", "a.csv", "  \n \n"},
		{"header only", "a.csv", "regiao;valor\n"},
		{"unsupported", "a.pdf", "%PDF"},
		{"broken xlsx", "a.xlsx", "not a zip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := read(t, tt.file, tt.content)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrUnreadableInput)
		})
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	table, err := dataset.NewTypedTable([]dataset.Column{
		{Name: "data", Role: dataset.RoleDate, Dates: []dataset.NullDate{
			dataset.DateOf(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)), {},
		}},
		{Name: "valor", Role: dataset.RoleCurrency, Numbers: []float64{123.456, 10}},
		{Name: "codigo", Role: dataset.RoleText, Strings: []string{"00123", ""}},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, table))

	res, err := NewDataReader(DefaultReaderConfig()).Read(context.Background(), "export.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, res.Info.Format)
	assert.Equal(t, ExportSheet, res.Info.SheetName)
	assert.Equal(t, []string{"data", "valor", "codigo"}, res.Table.Names())

	data, _ := res.Table.Column("data")
	got, ok := data.Cells[0].(time.Time)
	require.True(t, ok, "date cell read as %T", data.Cells[0])
	assert.True(t, got.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))

	valor, _ := res.Table.Column("valor")
	assert.Equal(t, 123.456, valor.Cells[0])

	codigo, _ := res.Table.Column("codigo")
	assert.Equal(t, "00123", codigo.Cells[0])
}

func TestReadGeneratedSales(t *testing.T) {
	config := testkit.DefaultSalesConfig()
	config.Rows = 30
	content := testkit.NewSalesGenerator(config).CSV(';')

	res, err := NewDataReader(DefaultReaderConfig()).Read(context.Background(), "vendas.csv", bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, testkit.SalesColumns, res.Table.Names())
	assert.Equal(t, 30, res.Table.NumRows())
}
