package excel

import "painel/domain/dataset"

// File formats accepted for upload
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Encodings reported in FileInfo
const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1252 = "windows-1252"
)

// ReadResult is a raw table plus what the reader learned about the file.
type ReadResult = dataset.ReadResult
