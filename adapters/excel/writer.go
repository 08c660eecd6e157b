package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"painel/domain/dataset"
)

// ExportSheet is the sheet name used for XLSX exports.
const ExportSheet = "Dados"

// WriteCSV writes the table as comma-separated UTF-8 with a header row.
// Numbers keep full precision, dates are ISO 8601 and missing cells are empty.
func WriteCSV(w io.Writer, table *dataset.TypedTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Names()); err != nil {
		return err
	}
	record := make([]string, table.NumColumns())
	cols := table.Columns()
	for r := 0; r < table.NumRows(); r++ {
		for c := range cols {
			record[c] = exportString(&cols[c], r)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportString(col *dataset.Column, r int) string {
	switch {
	case col.Role.IsNumeric():
		v := col.Numbers[r]
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case col.Role == dataset.RoleDate:
		d := col.Dates[r]
		if !d.Valid {
			return ""
		}
		return exportDate(d.Time)
	default:
		return col.Strings[r]
	}
}

func exportDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

// WriteXLSX writes the table as a single-sheet workbook with native number
// and date cells.
func WriteXLSX(w io.Writer, table *dataset.TypedTable) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return err
	}
	dateFmt := "yyyy-mm-dd hh:mm:ss"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(ExportSheet)
	if err != nil {
		return err
	}

	header := make([]interface{}, table.NumColumns())
	for i, name := range table.Names() {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	cols := table.Columns()
	for r := 0; r < table.NumRows(); r++ {
		row := make([]interface{}, len(cols))
		for c := range cols {
			row[c] = xlsxCell(&cols[c], r, dateStyle)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}

func xlsxCell(col *dataset.Column, r int, dateStyle int) interface{} {
	switch {
	case col.Role.IsNumeric():
		v := col.Numbers[r]
		if math.IsNaN(v) {
			return nil
		}
		return v
	case col.Role == dataset.RoleDate:
		d := col.Dates[r]
		if !d.Valid {
			return nil
		}
		return excelize.Cell{StyleID: dateStyle, Value: d.Time}
	default:
		return col.Strings[r]
	}
}
