package testkit

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"time"

	"painel/domain/dataset"
	"painel/internal/format"
)

// SalesGeneratorConfig configures the synthetic sales dataset
type SalesGeneratorConfig struct {
	Rows        int       `json:"rows"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	MissingRate float64   `json:"missing_rate"` // share of blank region and amount cells
	Seed        int64     `json:"seed"`
}

// DefaultSalesConfig returns sensible defaults for sales data generation
func DefaultSalesConfig() SalesGeneratorConfig {
	return SalesGeneratorConfig{
		Rows:        500,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		MissingRate: 0.02,
		Seed:        42,
	}
}

// SalesColumns is the header row produced by the generator.
var SalesColumns = []string{"data", "pedido", "regiao", "vendedor", "produto", "quantidade", "valor", "custo"}

var (
	regions  = []string{"Norte", "Nordeste", "Centro-Oeste", "Sudeste", "Sul"}
	sellers  = []string{"Ana", "Bruno", "Carla", "Diego", "Elisa", "Fábio", "Gabriela", "Hugo"}
	products = []string{"Café", "Açúcar", "Arroz", "Feijão", "Farinha", "Óleo", "Leite", "Sabão", "Macarrão", "Biscoito"}
)

// SalesHintSet names the roles of the generated columns.
type SalesHintSet struct {
	Currency []string
	Text     []string
	Filters  []string
	Metrics  []string
}

// SalesHints returns the role hints matching SalesColumns.
func SalesHints() SalesHintSet {
	return SalesHintSet{
		Currency: []string{"valor", "custo"},
		Text:     []string{"pedido"},
		Filters:  []string{"regiao", "vendedor", "produto"},
		Metrics:  []string{"valor", "custo"},
	}
}

// SalesGenerator generates Brazilian-formatted sales rows
type SalesGenerator struct {
	config SalesGeneratorConfig
	rng    *rand.Rand
}

// NewSalesGenerator creates a generator; equal seeds give equal output.
func NewSalesGenerator(config SalesGeneratorConfig) *SalesGenerator {
	return &SalesGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Rows generates the data rows as strings, exactly as they would appear in
// a semicolon-separated export from a Brazilian spreadsheet.
func (g *SalesGenerator) Rows() [][]string {
	g.rng = rand.New(rand.NewSource(g.config.Seed))
	days := int(g.config.EndDate.Sub(g.config.StartDate).Hours()/24) + 1

	rows := make([][]string, 0, g.config.Rows)
	for i := 0; i < g.config.Rows; i++ {
		day := g.config.StartDate.AddDate(0, 0, g.rng.Intn(days))
		qty := 1 + g.rng.Intn(12)
		unit := 5 + g.rng.Float64()*95
		amount := math.Round(unit*float64(qty)*100) / 100
		cost := math.Round(amount*(0.55+g.rng.Float64()*0.3)*100) / 100

		region := regions[g.rng.Intn(len(regions))]
		valor := format.BRL(amount)
		if g.rng.Float64() < g.config.MissingRate {
			region = ""
		}
		if g.rng.Float64() < g.config.MissingRate {
			valor = ""
		}

		rows = append(rows, []string{
			day.Format("02/01/2006"),
			fmt.Sprintf("PED-%05d", i+1),
			region,
			sellers[g.rng.Intn(len(sellers))],
			products[g.rng.Intn(len(products))],
			fmt.Sprintf("%d", qty),
			valor,
			format.BRL(cost),
		})
	}
	return rows
}

// RawTable returns the generated rows as a RawTable.
func (g *SalesGenerator) RawTable() *dataset.RawTable {
	raw, err := dataset.NewRawTable(SalesColumns, g.Rows(), dataset.RawOptions{})
	if err != nil {
		panic(err) // header row is constant
	}
	return raw
}

// CSV renders the generated rows with a header, using sep as delimiter.
func (g *SalesGenerator) CSV(sep rune) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = sep
	_ = w.Write(SalesColumns)
	_ = w.WriteAll(g.Rows())
	return buf.Bytes()
}
