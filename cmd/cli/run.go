package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"painel/adapters/excel"
	"painel/domain/filter"
	"painel/internal/filtering"
	"painel/internal/format"
	"painel/internal/inference"
	aggregation "painel/internal/metrics"
)

// specDocument is the on-disk form of a filter spec:
//
//	columns:
//	  regiao: [Sul, Norte]
//	  vendedor: {mode: none}
//	dates:
//	  start: 2024-01-01
//	  end: 31/01/2024
type specDocument struct {
	Columns map[string]filter.Selection `yaml:"columns"`
	Dates   *struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"`
	} `yaml:"dates"`
}

var dayLayouts = []string{"2006-01-02", "02/01/2006"}

func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD or DD/MM/YYYY)", s)
}

func loadSpec(path string) (filter.Spec, error) {
	spec := filter.NewSpec()
	if path == "" {
		return spec, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return spec, fmt.Errorf("failed to read spec file: %w", err)
	}
	var doc specDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return spec, fmt.Errorf("failed to parse spec file %s: %w", path, err)
	}
	for name, sel := range doc.Columns {
		spec = spec.With(name, sel)
	}
	if doc.Dates != nil {
		start, err := parseDay(doc.Dates.Start)
		if err != nil {
			return spec, err
		}
		end, err := parseDay(doc.Dates.End)
		if err != nil {
			return spec, err
		}
		spec = spec.WithDates(filter.DayRange(start, end))
	}
	return spec, nil
}

func (h hintFlags) resolve() (inference.Hints, error) {
	hints := inference.Hints{
		Currency: append([]string(nil), h.currency...),
		Text:     append([]string(nil), h.text...),
	}
	if h.hintsFile == "" {
		return hints, nil
	}
	data, err := os.ReadFile(h.hintsFile)
	if err != nil {
		return hints, fmt.Errorf("failed to read hints file: %w", err)
	}
	var fromFile inference.Hints
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return hints, fmt.Errorf("failed to parse hints file %s: %w", h.hintsFile, err)
	}
	hints.Currency = append(hints.Currency, fromFile.Currency...)
	hints.Text = append(hints.Text, fromFile.Text...)
	return hints, nil
}

func loadTable(ctx context.Context, path string, h hintFlags) (*inference.Result, error) {
	hints, err := h.resolve()
	if err != nil {
		return nil, err
	}
	reader := excel.NewDataReader(excel.DefaultReaderConfig())
	read, err := reader.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return inference.Infer(read.Table, hints)
}

func runInfer(ctx context.Context, w io.Writer, path string, h hintFlags, asJSON bool) error {
	res, err := loadTable(ctx, path, h)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "COLUMN\tROLE\tNON-EMPTY\tPARSED\tDEGRADED\tDISTINCT\n")
	for _, c := range res.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n", c.Name, c.Role, c.NonEmpty, c.Parsed, c.Degraded, c.Distinct)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d rows, %d columns\n", res.Table.NumRows(), res.Table.NumColumns())
	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}

func runSummarize(ctx context.Context, w io.Writer, path string, h hintFlags, names []string, specPath string) error {
	res, err := loadTable(ctx, path, h)
	if err != nil {
		return err
	}
	spec, err := loadSpec(specPath)
	if err != nil {
		return err
	}
	view, err := filtering.Apply(res.Table, spec)
	if err != nil {
		return err
	}
	summaries, err := aggregation.SummarizeAll(view, aggregation.ParseMetrics(names, nil))
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%d of %d rows\n\n", view.Len(), res.Table.NumRows())
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "METRIC\tTOTAL\tMEAN\tCOUNT\t\n")
	for _, s := range summaries {
		currency := aggregation.IsCurrency(res.Table, s.Metric)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t\n", s.Metric,
			format.Metric(s.Total, currency, s.Metric.IsRowCount()),
			format.Metric(s.Mean, currency, false),
			s.Count)
	}
	return tw.Flush()
}

func runCompare(ctx context.Context, w io.Writer, path string, h hintFlags, names []string, basePath, comparisonPath string) error {
	res, err := loadTable(ctx, path, h)
	if err != nil {
		return err
	}
	base, err := loadSpec(basePath)
	if err != nil {
		return err
	}
	comparison, err := loadSpec(comparisonPath)
	if err != nil {
		return err
	}

	pair, err := filtering.NewEngine(2).ApplyPair(ctx, res.Table, base, comparison)
	if err != nil {
		return err
	}
	results, err := aggregation.ComparePair(pair, aggregation.ParseMetrics(names, nil))
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "base: %d rows, comparison: %d rows\n\n", pair.Base.Len(), pair.Comparison.Len())
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "METRIC\tBASE\tCOMPARISON\tVARIATION\tDIRECTION\t\n")
	for _, c := range results {
		currency := aggregation.IsCurrency(res.Table, c.Metric)
		count := c.Metric.IsRowCount()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", c.Metric,
			format.Metric(c.Base.Total, currency, count),
			format.Metric(c.Comparison.Total, currency, count),
			format.Delta(c.Variance.Total),
			c.Variance.Total.Direction)
	}
	return tw.Flush()
}

func runExport(ctx context.Context, w io.Writer, path string, h hintFlags, specPath, out string) error {
	write := excel.WriteCSV
	switch strings.ToLower(filepath.Ext(out)) {
	case ".csv":
	case ".xlsx":
		write = excel.WriteXLSX
	default:
		return fmt.Errorf("unsupported output %q: use .csv or .xlsx", out)
	}

	res, err := loadTable(ctx, path, h)
	if err != nil {
		return err
	}
	spec, err := loadSpec(specPath)
	if err != nil {
		return err
	}
	view, err := filtering.Apply(res.Table, spec)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	if err := write(f, view.Materialize()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %d rows to %s\n", view.Len(), out)
	return nil
}
