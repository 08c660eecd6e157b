package excel

// ReaderConfig holds configuration for reading uploads
type ReaderConfig struct {
	LowercaseHeaders bool   `json:"lowercase_headers"`
	Delimiters       []rune `json:"delimiters"` // tried in order
	SheetName        string `json:"sheet_name"` // empty means the first sheet
	MinDataRows      int    `json:"min_data_rows"`
}

// DefaultReaderConfig returns sensible defaults for uploads from Brazilian
// spreadsheets: semicolon first, then comma, then tab.
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		Delimiters:  []rune{';', ',', '\t'},
		MinDataRows: 1,
	}
}
