package excel

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"painel/domain/core"
	"painel/domain/dataset"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	config ReaderConfig
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(config ReaderConfig) *DataReader {
	if len(config.Delimiters) == 0 {
		config.Delimiters = DefaultReaderConfig().Delimiters
	}
	if config.MinDataRows <= 0 {
		config.MinDataRows = 1
	}
	return &DataReader{config: config}
}

// FormatOf maps a file name to a supported format by extension.
func FormatOf(name string) (string, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, true
	case ".xlsx", ".xls", ".xlsm":
		return FormatXLSX, true
	}
	return "", false
}

// ReadFile reads a file from disk
func (r *DataReader) ReadFile(ctx context.Context, path string) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return r.Read(ctx, filepath.Base(path), f)
}

// Read reads an upload; name selects the format by extension.
func (r *DataReader) Read(ctx context.Context, name string, src io.Reader) (*ReadResult, error) {
	format, ok := FormatOf(name)
	if !ok {
		return nil, fmt.Errorf("unsupported file type %q: %w", filepath.Ext(name), core.ErrUnreadableInput)
	}
	log.Printf("[DataReader] Starting to read %s file: %s", format, name)

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%s is empty: %w", name, core.ErrUnreadableInput)
	}

	switch format {
	case FormatCSV:
		return r.readCSVData(data)
	default:
		return r.readExcelData(data)
	}
}

// readCSVData decodes the bytes and tries each delimiter in turn. The first
// delimiter that yields more than one header column wins; a file that only
// ever yields one column is read as single-column with the first delimiter.
func (r *DataReader) readCSVData(data []byte) (*ReadResult, error) {
	start := time.Now()
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	encoding := EncodingUTF8
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode CSV file: %w", core.ErrUnreadableInput)
		}
		data = decoded
		encoding = EncodingWindows1252
	}

	var (
		rows    [][]string
		delim   rune
		lastErr error
	)
	for _, d := range r.config.Delimiters {
		parsed, err := parseCSV(data, d)
		if err != nil {
			lastErr = err
			continue
		}
		if rows == nil {
			rows, delim = parsed, d
		}
		if len(parsed) > 0 && len(parsed[0]) > 1 {
			rows, delim = parsed, d
			break
		}
	}
	if rows == nil {
		return nil, fmt.Errorf("failed to read CSV file: %v: %w", lastErr, core.ErrUnreadableInput)
	}
	log.Printf("[DataReader] CSV file read in %.2fms (%d rows, delimiter %q, %s)",
		float64(time.Since(start).Nanoseconds())/1e6, len(rows), delim, encoding)

	table, err := r.processRows(rows)
	if err != nil {
		return nil, err
	}
	return &ReadResult{
		Table: table,
		Info:  dataset.FileInfo{Format: FormatCSV, Encoding: encoding, Delimiter: string(delim)},
	}, nil
}

func parseCSV(data []byte, delim rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return dropBlankRows(rows), nil
}

// processRows converts string rows into a RawTable
func (r *DataReader) processRows(rows [][]string) (*dataset.RawTable, error) {
	if len(rows) < 1+r.config.MinDataRows {
		return nil, fmt.Errorf("file must have a header row and at least %d data row(s): %w", r.config.MinDataRows, core.ErrUnreadableInput)
	}
	table, err := dataset.NewRawTable(rows[0], trimRows(rows[1:]), dataset.RawOptions{LowercaseHeaders: r.config.LowercaseHeaders})
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, core.ErrUnreadableInput)
	}
	log.Printf("[DataReader] processed %d columns, %d rows", table.NumColumns(), table.NumRows())
	return table, nil
}

// readExcelData reads the configured sheet, or the first one. Number cells
// come back natively so display formatting never reaches inference.
func (r *DataReader) readExcelData(data []byte) (*ReadResult, error) {
	startTime := time.Now()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v: %w", err, core.ErrUnreadableInput)
	}
	defer f.Close()

	sheet := r.config.SheetName
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets: %w", core.ErrUnreadableInput)
		}
		sheet = sheets[0]
	}

	formatted, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v: %w", sheet, err, core.ErrUnreadableInput)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v: %w", sheet, err, core.ErrUnreadableInput)
	}
	log.Printf("[DataReader] %s read in %.2fms (%d rows)", sheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(formatted))

	var (
		header []string
		rows   [][]any
	)
	for i, line := range formatted {
		if isBlankRow(line) {
			continue
		}
		if header == nil {
			header = line
			continue
		}
		var rawRow []string
		if i < len(raw) {
			rawRow = raw[i]
		}
		row := make([]any, len(line))
		for j, display := range line {
			var stored string
			if j < len(rawRow) {
				stored = rawRow[j]
			}
			row[j] = nativeCell(f, sheet, j+1, i+1, display, stored)
		}
		rows = append(rows, row)
	}
	if header == nil || len(rows) < r.config.MinDataRows {
		return nil, fmt.Errorf("Excel file must have a header row and at least %d data row(s): %w", r.config.MinDataRows, core.ErrUnreadableInput)
	}

	table, err := dataset.NewRawTableFromCells(header, rows, dataset.RawOptions{LowercaseHeaders: r.config.LowercaseHeaders})
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, core.ErrUnreadableInput)
	}
	return &ReadResult{
		Table: table,
		Info:  dataset.FileInfo{Format: FormatXLSX, SheetName: sheet},
	}, nil
}

var dateDisplay = regexp.MustCompile(`^\d{1,4}[-/]\d{1,2}([-/]\d{1,4})?|^\d{1,2}-[A-Za-z]{3}|^\d{1,2}:\d{2}`)

// nativeCell keeps text cells as displayed. Number cells become time.Time
// when displayed as a date and float64 otherwise.
func nativeCell(f *excelize.File, sheet string, col, row int, display, stored string) any {
	display = strings.TrimSpace(display)
	if stored == "" {
		return display
	}
	serial, err := strconv.ParseFloat(stored, 64)
	if err != nil {
		return display
	}
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return display
	}
	switch ct, _ := f.GetCellType(sheet, ref); ct {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula, excelize.CellTypeBool, excelize.CellTypeError:
		return display
	}
	if dateDisplay.MatchString(display) {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t
		}
		return display
	}
	return serial
}

func trimRows(rows [][]string) [][]string {
	for _, row := range rows {
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
	}
	return rows
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, row := range rows {
		if !isBlankRow(row) {
			out = append(out, row)
		}
	}
	return out
}
