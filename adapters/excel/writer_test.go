package excel

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"painel/domain/dataset"
)

func TestWriteCSVKeepsPrecision(t *testing.T) {
	table, err := dataset.NewTypedTable([]dataset.Column{
		{Name: "data", Role: dataset.RoleDate, Dates: []dataset.NullDate{
			dataset.DateOf(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)),
			dataset.DateOf(time.Date(2024, 3, 16, 9, 30, 0, 0, time.UTC)),
			{},
		}},
		{Name: "valor", Role: dataset.RoleCurrency, Numbers: []float64{1234.5678, 0.1, 1e6}},
		{Name: "peso", Role: dataset.RoleNumeric, Numbers: []float64{1, math.NaN(), 2.5}},
		{Name: "regiao", Role: dataset.RoleCategorical, Strings: []string{"Sul", "", "Norte, Leste"}},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))

	want := "data,valor,peso,regiao\n" +
		"2024-03-15,1234.5678,1,Sul\n" +
		"2024-03-16T09:30:00Z,0.1,,\n" +
		",1000000,2.5,\"Norte, Leste\"\n"
	assert.Equal(t, want, buf.String())
}
