// Package inference classifies raw spreadsheet columns into typed columns.
//
// Currency and Text are caller hints. Every other column is resolved in a
// fixed order: Date, Categorical, Numeric, String. A single bad cell never
// fails the run; it degrades to the column's sentinel and is counted.
package inference

import (
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"painel/adapters/datareadiness/coercer"
	"painel/domain/core"
	"painel/domain/dataset"
	"painel/internal"
	apperrors "painel/internal/errors"
)

var logger = internal.DefaultLogger.With("Inference")

// Hints are the caller-declared roles. Columns in neither list are inferred.
type Hints struct {
	Currency []string `json:"currency" yaml:"currency"`
	Text     []string `json:"text" yaml:"text"`
}

// Config holds the inference thresholds.
type Config struct {
	CategoricalRatio       float64 // distinct/rows must be below this
	CategoricalMaxDistinct int     // and distinct must be below this
	DateThreshold          float64 // share of non-empty cells parsing as dates, strict
	CacheEntries           int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		CategoricalRatio:       0.10,
		CategoricalMaxDistinct: 50,
		DateThreshold:          0.5,
		CacheEntries:           32,
	}
}

// ColumnReport describes how one column was resolved.
type ColumnReport struct {
	Name     string       `json:"name"`
	Role     dataset.Role `json:"role"`
	NonEmpty int          `json:"non_empty"`
	Parsed   int          `json:"parsed"`
	Degraded int          `json:"degraded"`
	Distinct int          `json:"distinct"`
}

// Result is the output of one inference run. It is shared between callers
// hitting the cache and must not be modified.
type Result struct {
	Table    *dataset.TypedTable `json:"-"`
	Columns  []ColumnReport      `json:"columns"`
	Warnings []string            `json:"warnings,omitempty"`
}

// Report returns the report for a column.
func (r *Result) Report(name string) (ColumnReport, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnReport{}, false
}

// Inferencer runs inference and memoizes results per (raw table, hints).
type Inferencer struct {
	config  Config
	coercer *coercer.TypeCoercer

	mu    sync.Mutex
	cache map[core.Hash]*Result
	group singleflight.Group
}

// New creates an Inferencer. Zero config fields fall back to defaults.
func New(config Config) *Inferencer {
	def := DefaultConfig()
	if config.CategoricalRatio <= 0 {
		config.CategoricalRatio = def.CategoricalRatio
	}
	if config.CategoricalMaxDistinct <= 0 {
		config.CategoricalMaxDistinct = def.CategoricalMaxDistinct
	}
	if config.DateThreshold <= 0 {
		config.DateThreshold = def.DateThreshold
	}
	if config.CacheEntries <= 0 {
		config.CacheEntries = def.CacheEntries
	}
	cc := coercer.DefaultCoercionConfig()
	cc.DateThreshold = config.DateThreshold
	return &Inferencer{
		config:  config,
		coercer: coercer.NewTypeCoercer(cc),
		cache:   make(map[core.Hash]*Result),
	}
}

// Infer classifies raw with the default configuration and no cache.
func Infer(raw *dataset.RawTable, hints Hints) (*Result, error) {
	return New(DefaultConfig()).infer(raw, hints)
}

// Infer classifies raw, serving repeated (table, hints) pairs from cache.
func (inf *Inferencer) Infer(raw *dataset.RawTable, hints Hints) (*Result, error) {
	key := cacheKey(raw, hints)

	inf.mu.Lock()
	if res, ok := inf.cache[key]; ok {
		inf.mu.Unlock()
		return res, nil
	}
	inf.mu.Unlock()

	v, err, _ := inf.group.Do(key.String(), func() (interface{}, error) {
		res, err := inf.infer(raw, hints)
		if err != nil {
			return nil, err
		}
		inf.mu.Lock()
		if len(inf.cache) >= inf.config.CacheEntries {
			inf.cache = make(map[core.Hash]*Result)
		}
		inf.cache[key] = res
		inf.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func cacheKey(raw *dataset.RawTable, hints Hints) core.Hash {
	h := &core.Hasher{}
	h.Field(raw.Fingerprint().String())
	h.Field("currency").SortedFields(hints.Currency)
	h.Field("text").SortedFields(hints.Text)
	return h.Sum()
}

func (inf *Inferencer) infer(raw *dataset.RawTable, hints Hints) (*Result, error) {
	if raw == nil || raw.NumColumns() == 0 {
		return nil, apperrors.Structural(apperrors.StageInference, "", core.ErrNoColumns)
	}
	if raw.NumRows() == 0 {
		return nil, apperrors.Structural(apperrors.StageInference, "", core.ErrEmptyTable)
	}

	res := &Result{}
	roles := make(map[string]dataset.Role)
	for _, name := range hints.Text {
		roles[name] = dataset.RoleText
	}
	for _, name := range hints.Currency {
		if roles[name] == dataset.RoleText {
			res.Warnings = append(res.Warnings, fmt.Sprintf("column %q hinted as both currency and text; using currency", name))
		}
		roles[name] = dataset.RoleCurrency
	}
	for _, name := range sortedKeys(roles) {
		if _, ok := raw.Column(name); !ok {
			return nil, apperrors.Structural(apperrors.StageInference, name, core.ErrColumnNotFound)
		}
	}

	start := time.Now()
	columns := make([]dataset.Column, 0, raw.NumColumns())
	for _, rc := range raw.Columns() {
		var (
			col    dataset.Column
			report ColumnReport
		)
		switch roles[rc.Name] {
		case dataset.RoleCurrency:
			col, report = inf.currencyColumn(rc)
		case dataset.RoleText:
			col, report = inf.textColumn(rc, dataset.RoleText)
		default:
			col, report = inf.classify(rc)
		}
		if report.Degraded > 0 {
			logger.Debug("column %q (%s): %d of %d cells degraded", rc.Name, report.Role, report.Degraded, report.NonEmpty)
		}
		columns = append(columns, col)
		res.Columns = append(res.Columns, report)
	}

	table, err := dataset.NewTypedTable(columns)
	if err != nil {
		return nil, apperrors.Structural(apperrors.StageInference, "", err)
	}
	res.Table = table
	log.Printf("[Inference] classified %d columns over %d rows in %v", table.NumColumns(), table.NumRows(), time.Since(start))
	return res, nil
}

// currencyColumn zero-fills blanks and unparseable cells.
func (inf *Inferencer) currencyColumn(rc dataset.RawColumn) (dataset.Column, ColumnReport) {
	report := ColumnReport{Name: rc.Name, Role: dataset.RoleCurrency}
	values := make([]float64, len(rc.Cells))
	seen := make(map[float64]struct{})
	for i, cell := range rc.Cells {
		if !dataset.IsEmptyCell(cell) {
			report.NonEmpty++
		}
		v, ok := inf.coercer.ParseCurrency(cell)
		if ok {
			report.Parsed++
		} else {
			report.Degraded++
			v = 0
		}
		values[i] = v
		seen[v] = struct{}{}
	}
	report.Distinct = len(seen)
	return dataset.Column{Name: rc.Name, Role: dataset.RoleCurrency, Numbers: values}, report
}

// textColumn keeps the canonical string of every cell; missing is "".
func (inf *Inferencer) textColumn(rc dataset.RawColumn, role dataset.Role) (dataset.Column, ColumnReport) {
	report := ColumnReport{Name: rc.Name, Role: role}
	values := make([]string, len(rc.Cells))
	seen := make(map[string]struct{})
	for i, cell := range rc.Cells {
		s := inf.coercer.CanonicalString(cell)
		values[i] = s
		if s != "" {
			report.NonEmpty++
			report.Parsed++
			seen[s] = struct{}{}
		}
	}
	report.Distinct = len(seen)
	return dataset.Column{Name: rc.Name, Role: role, Strings: values}, report
}

func (inf *Inferencer) classify(rc dataset.RawColumn) (dataset.Column, ColumnReport) {
	analysis := inf.coercer.AnalyzeTypeDistribution(rc.Cells)
	if analysis.NonEmptyCount == 0 {
		return inf.textColumn(rc, dataset.RoleString)
	}
	if analysis.IsDate {
		return inf.dateColumn(rc)
	}

	keys := make([]string, len(rc.Cells))
	for i, cell := range rc.Cells {
		keys[i] = inf.coercer.CanonicalString(cell)
	}
	distinct := inf.distinct(rc, keys, analysis.IsNumeric)
	ratio := float64(distinct) / float64(len(rc.Cells))
	if ratio < inf.config.CategoricalRatio && distinct < inf.config.CategoricalMaxDistinct {
		report := ColumnReport{
			Name:     rc.Name,
			Role:     dataset.RoleCategorical,
			NonEmpty: analysis.NonEmptyCount,
			Parsed:   analysis.NonEmptyCount,
			Distinct: distinct,
		}
		return dataset.Column{Name: rc.Name, Role: dataset.RoleCategorical, Strings: keys}, report
	}

	if analysis.IsNumeric {
		return inf.numericColumn(rc, distinct)
	}
	return inf.textColumn(rc, dataset.RoleString)
}

// distinct counts distinct non-empty values. Columns made only of numbers
// are counted by value, so the count is the same whether the cells arrive as
// text or as float64.
func (inf *Inferencer) distinct(rc dataset.RawColumn, keys []string, numeric bool) int {
	if !numeric {
		seen := make(map[string]struct{})
		for _, k := range keys {
			if k != "" {
				seen[k] = struct{}{}
			}
		}
		return len(seen)
	}
	seen := make(map[float64]struct{})
	for i, cell := range rc.Cells {
		if keys[i] == "" {
			continue
		}
		if v, ok := inf.coercer.ParseNumber(cell); ok {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

func (inf *Inferencer) dateColumn(rc dataset.RawColumn) (dataset.Column, ColumnReport) {
	report := ColumnReport{Name: rc.Name, Role: dataset.RoleDate}
	dates := make([]dataset.NullDate, len(rc.Cells))
	seen := make(map[int64]struct{})
	for i, cell := range rc.Cells {
		if dataset.IsEmptyCell(cell) {
			continue
		}
		report.NonEmpty++
		t, ok := inf.coercer.ParseDate(cell)
		if !ok {
			report.Degraded++
			continue
		}
		report.Parsed++
		dates[i] = dataset.DateOf(t)
		seen[t.UnixNano()] = struct{}{}
	}
	report.Distinct = len(seen)
	return dataset.Column{Name: rc.Name, Role: dataset.RoleDate, Dates: dates}, report
}

// numericColumn leaves missing cells as NaN.
func (inf *Inferencer) numericColumn(rc dataset.RawColumn, distinct int) (dataset.Column, ColumnReport) {
	report := ColumnReport{Name: rc.Name, Role: dataset.RoleNumeric, Distinct: distinct}
	values := make([]float64, len(rc.Cells))
	for i, cell := range rc.Cells {
		values[i] = math.NaN()
		if dataset.IsEmptyCell(cell) {
			continue
		}
		report.NonEmpty++
		if v, ok := inf.coercer.ParseNumber(cell); ok {
			values[i] = v
			report.Parsed++
		} else {
			report.Degraded++
		}
	}
	return dataset.Column{Name: rc.Name, Role: dataset.RoleNumeric, Numbers: values}, report
}

func sortedKeys(m map[string]dataset.Role) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
