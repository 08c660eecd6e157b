// Package dataset turns uploaded spreadsheets into catalog entries.
//
// The flow mirrors the dashboard's "process" action: an upload is read into a
// raw table, the caller declares role hints plus filter and metric columns,
// and Process validates the configuration, infers column roles, reports
// missing filter values, profiles metric columns and stores the result.
// Nothing is written to the catalog unless every step succeeds.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"time"

	"painel/domain/core"
	"painel/domain/dataset"
	apperrors "painel/internal/errors"
	"painel/internal/inference"
	"painel/internal/profiling"
	"painel/ports"
)

// Processor reads uploads and processes them into the catalog
type Processor struct {
	reader     ports.TableReader
	catalog    ports.DatasetCatalog
	inferencer *inference.Inferencer
	profiler   *profiling.DataProfiler
	storage    FileStorage

	mu      sync.RWMutex
	uploads map[core.UploadID]*Upload
}

// Upload is a stored file that has been read but not yet processed.
type Upload struct {
	ID         core.UploadID       `json:"id"`
	Filename   string              `json:"filename"`
	Path       string              `json:"-"`
	Size       int64               `json:"size"`
	Result     *dataset.ReadResult `json:"-"`
	UploadedAt time.Time           `json:"uploaded_at"`
}

// Request is one "process" action.
type Request struct {
	Name            string            `json:"name"`
	SourceFile      string            `json:"source_file"`
	Raw             *dataset.RawTable `json:"-"`
	FileInfo        dataset.FileInfo  `json:"file_info"`
	CurrencyColumns []string          `json:"currency_columns"`
	TextColumns     []string          `json:"text_columns"`
	FilterColumns   []string          `json:"filter_columns"`
	MetricColumns   []string          `json:"metric_columns"`
}

// Hints returns the role hints carried by the request.
func (r Request) Hints() inference.Hints {
	return inference.Hints{Currency: r.CurrencyColumns, Text: r.TextColumns}
}

// Outcome is what a successful process action produced.
type Outcome struct {
	Entry    *dataset.Entry           `json:"entry"`
	Columns  []inference.ColumnReport `json:"columns"`
	Missing  []dataset.MissingCount   `json:"missing,omitempty"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// NewProcessor creates a new dataset processor
func NewProcessor(reader ports.TableReader, catalog ports.DatasetCatalog, inferencer *inference.Inferencer, storage FileStorage) *Processor {
	if inferencer == nil {
		inferencer = inference.New(inference.DefaultConfig())
	}
	return &Processor{
		reader:     reader,
		catalog:    catalog,
		inferencer: inferencer,
		profiler:   profiling.NewDataProfiler(),
		storage:    storage,
		uploads:    make(map[core.UploadID]*Upload),
	}
}

// Read reads an uploaded file into a raw table. Any failure is an
// INPUT_FORMAT error and leaves the processor untouched.
func (p *Processor) Read(ctx context.Context, filename string, src io.Reader) (*dataset.ReadResult, error) {
	result, err := p.reader.Read(ctx, filename, src)
	if err != nil {
		return nil, apperrors.InputFormat(fmt.Sprintf("could not read %s", filepath.Base(filename)), err)
	}
	if result.Table == nil || result.Table.NumRows() == 0 {
		return nil, apperrors.InputFormat(fmt.Sprintf("%s has no data rows", filepath.Base(filename)), core.ErrEmptyTable)
	}
	log.Printf("[Processor] Read %s: %d rows, %d columns (%s)",
		filename, result.Table.NumRows(), result.Table.NumColumns(), result.Info.Format)
	return result, nil
}

// StoreUpload keeps the file and reads it. The upload is registered only if
// it could be read.
func (p *Processor) StoreUpload(ctx context.Context, filename string, src io.Reader) (*Upload, error) {
	if p.storage == nil {
		return nil, apperrors.New(apperrors.CodeInternalError, "no upload storage configured")
	}
	path, err := p.storage.Store(ctx, src, filename)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return nil, apperrors.InputFormat(fmt.Sprintf("%s is too large", filepath.Base(filename)), err)
		}
		return nil, apperrors.Wrap(err, "failed to store upload")
	}

	rc, err := p.storage.GetReader(ctx, path)
	if err != nil {
		p.storage.Delete(ctx, path)
		return nil, apperrors.Wrap(err, "failed to reopen upload")
	}
	result, err := p.Read(ctx, filename, rc)
	rc.Close()
	if err != nil {
		p.storage.Delete(ctx, path)
		return nil, err
	}

	size, _ := p.storage.GetFileSize(path)
	up := &Upload{
		ID:         core.UploadID(core.NewID()),
		Filename:   filepath.Base(filename),
		Path:       path,
		Size:       size,
		Result:     result,
		UploadedAt: time.Now().UTC(),
	}
	p.mu.Lock()
	p.uploads[up.ID] = up
	p.mu.Unlock()
	return up, nil
}

// GetUpload returns a registered upload.
func (p *Processor) GetUpload(id core.UploadID) (*Upload, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	up, ok := p.uploads[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUploadNotFound, id)
	}
	return up, nil
}

// ProcessUpload runs Process over a registered upload and discards the
// upload once its dataset is stored.
func (p *Processor) ProcessUpload(ctx context.Context, id core.UploadID, req Request) (*Outcome, error) {
	up, err := p.GetUpload(id)
	if err != nil {
		return nil, err
	}
	if p.storage != nil {
		ok, err := p.storage.Exists(ctx, up.Path)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to check upload")
		}
		if !ok {
			p.forget(id)
			return nil, fmt.Errorf("%w: %s (stored file is gone)", core.ErrUploadNotFound, id)
		}
	}
	req.Raw = up.Result.Table
	req.FileInfo = up.Result.Info
	if req.SourceFile == "" {
		req.SourceFile = up.Filename
	}

	out, err := p.Process(ctx, req)
	if err != nil {
		return nil, err
	}

	p.forget(id)
	if p.storage != nil {
		if err := p.storage.Delete(ctx, up.Path); err != nil {
			log.Printf("[Processor] Warning: could not remove upload %s: %v", up.Path, err)
		}
	}
	return out, nil
}

func (p *Processor) forget(id core.UploadID) {
	p.mu.Lock()
	delete(p.uploads, id)
	p.mu.Unlock()
}

// Process validates req, infers the typed table and stores it under req.Name.
func (p *Processor) Process(ctx context.Context, req Request) (*Outcome, error) {
	if err := p.validateRequest(req); err != nil {
		return nil, err
	}

	res, err := p.inferencer.Infer(req.Raw, req.Hints())
	if err != nil {
		return nil, err
	}
	table := res.Table

	for _, name := range req.MetricColumns {
		col, _ := table.Column(name)
		if !col.Role.IsNumeric() {
			return nil, apperrors.Structural(apperrors.StageProcessing, name,
				fmt.Errorf("%w: inferred as %s", core.ErrNotNumeric, col.Role))
		}
	}

	missing := missingReport(table, req.FilterColumns)
	for _, m := range missing {
		log.Printf("[Processor] Warning: %s", m.Warning)
	}

	profiles := p.profiler.ProfileTable(table, req.MetricColumns)

	entry := &dataset.Entry{
		ID:            core.DatasetID(core.NewID()),
		Name:          req.Name,
		SourceFile:    req.SourceFile,
		Table:         table,
		FilterColumns: append([]string(nil), req.FilterColumns...),
		MetricColumns: append([]string(nil), req.MetricColumns...),
		Metadata: dataset.Metadata{
			Fields:   fieldInfos(table, res.Columns, profiles),
			Missing:  missing,
			FileInfo: req.FileInfo,
			Warnings: res.Warnings,
		},
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.catalog.Save(ctx, entry); err != nil {
		return nil, apperrors.DatabaseError(fmt.Sprintf("failed to store dataset %q", req.Name), err)
	}

	log.Printf("[Processor] Stored dataset %q: %d rows, %d columns, %d filter, %d metric",
		entry.Name, table.NumRows(), table.NumColumns(), len(req.FilterColumns), len(req.MetricColumns))

	return &Outcome{
		Entry:    entry,
		Columns:  res.Columns,
		Missing:  missing,
		Warnings: res.Warnings,
	}, nil
}

func (p *Processor) validateRequest(req Request) error {
	if req.Name == "" {
		return apperrors.InvalidInput("dataset name is required")
	}
	if req.Raw == nil {
		return apperrors.InputFormat("no table to process", core.ErrUnreadableInput)
	}
	if len(req.FilterColumns) == 0 {
		return apperrors.ConfigInvalid("select at least one filter column")
	}
	if req.Raw.NumRows() == 0 {
		return apperrors.ConfigInvalid("the processed table is empty")
	}

	groups := [][]string{req.FilterColumns, req.MetricColumns, req.CurrencyColumns, req.TextColumns}
	for _, group := range groups {
		for _, name := range group {
			if _, ok := req.Raw.Column(name); !ok {
				return apperrors.Structural(apperrors.StageProcessing, name, core.ErrColumnNotFound)
			}
		}
	}
	return nil
}

func missingReport(table *dataset.TypedTable, filterColumns []string) []dataset.MissingCount {
	var out []dataset.MissingCount
	for _, name := range filterColumns {
		col, ok := table.Column(name)
		if !ok {
			continue
		}
		n := col.MissingCount()
		if n == 0 {
			continue
		}
		out = append(out, dataset.MissingCount{
			Column:  name,
			Missing: n,
			Warning: fmt.Sprintf("column %q has %d of %d rows without a value; filtering on it may be unreliable", name, n, table.NumRows()),
		})
	}
	return out
}

func fieldInfos(table *dataset.TypedTable, reports []inference.ColumnReport, profiles map[string]profiling.ColumnProfile) []dataset.FieldInfo {
	fields := make([]dataset.FieldInfo, 0, len(reports))
	for _, r := range reports {
		fi := dataset.FieldInfo{
			Name:        r.Name,
			Role:        r.Role,
			NonEmpty:    r.NonEmpty,
			Parsed:      r.Parsed,
			Degraded:    r.Degraded,
			UniqueCount: r.Distinct,
		}
		if col, ok := table.Column(r.Name); ok {
			fi.MissingCount = col.MissingCount()
		}
		if prof, ok := profiles[r.Name]; ok {
			fi.Statistics = prof.Statistics()
		}
		fields = append(fields, fi)
	}
	return fields
}
