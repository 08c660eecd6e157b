package ui

import (
	"log"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"painel/adapters/excel"
	"painel/domain/core"
	"painel/domain/dataset"
	datasetsvc "painel/internal/dataset"

	"github.com/gin-gonic/gin"
)

const previewRows = 10

// processRequest is the body of POST /api/datasets.
type processRequest struct {
	UploadID        string   `json:"upload_id" binding:"required"`
	Name            string   `json:"name" binding:"required"`
	CurrencyColumns []string `json:"currency_columns"`
	TextColumns     []string `json:"text_columns"`
	FilterColumns   []string `json:"filter_columns"`
	MetricColumns   []string `json:"metric_columns"`
}

// datasetDetail is the response of GET /api/datasets/:name.
type datasetDetail struct {
	Name          string                 `json:"name"`
	SourceFile    string                 `json:"source_file"`
	Rows          int                    `json:"rows"`
	Fields        []dataset.FieldInfo    `json:"fields"`
	FilterColumns []string               `json:"filter_columns"`
	MetricColumns []string               `json:"metric_columns"`
	Options       map[string][]string    `json:"options"`
	DateRange     *dateBounds            `json:"date_range,omitempty"`
	Missing       []dataset.MissingCount `json:"missing,omitempty"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

type dateBounds struct {
	Column string    `json:"column"`
	Min    time.Time `json:"min"`
	Max    time.Time `json:"max"`
}

// handleUpload stores and reads a spreadsheet, returning its columns and a
// preview so the caller can choose role hints.
func (s *Server) handleUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		log.Printf("[handleUpload] FAILED - No file uploaded: %v", err)
		badRequest(c, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Size > s.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds the upload limit"})
		return
	}
	if _, ok := excel.FormatOf(header.Filename); !ok {
		badRequest(c, "Only Excel (.xlsx) and CSV (.csv) files are allowed")
		return
	}

	up, err := s.processor.StoreUpload(c.Request.Context(), filepath.Base(header.Filename), file)
	if err != nil {
		respondError(c, err)
		return
	}

	table := up.Result.Table
	c.JSON(http.StatusCreated, gin.H{
		"upload":    up,
		"columns":   table.Names(),
		"rows":      table.NumRows(),
		"preview":   table.Preview(previewRows),
		"file_info": up.Result.Info,
	})
}

// handleProcess runs the process action over an upload.
func (s *Server) handleProcess(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	uploadID, err := core.ParseUploadID(req.UploadID)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	out, err := s.processor.ProcessUpload(c.Request.Context(), uploadID, datasetsvc.Request{
		Name:            strings.TrimSpace(req.Name),
		CurrencyColumns: req.CurrencyColumns,
		TextColumns:     req.TextColumns,
		FilterColumns:   req.FilterColumns,
		MetricColumns:   req.MetricColumns,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	s.forgetEntry(out.Entry.Name)

	c.JSON(http.StatusCreated, gin.H{
		"dataset":  out.Entry.Summarize(),
		"columns":  out.Columns,
		"missing":  out.Missing,
		"warnings": out.Warnings,
	})
}

func (s *Server) handleListDatasets(c *gin.Context) {
	summaries, err := s.catalog.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if summaries == nil {
		summaries = []dataset.Summary{}
	}
	c.JSON(http.StatusOK, gin.H{"datasets": summaries, "count": len(summaries)})
}

func (s *Server) handleGetDataset(c *gin.Context) {
	entry, err := s.loadEntry(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}

	detail := datasetDetail{
		Name:          entry.Name,
		SourceFile:    entry.SourceFile,
		Rows:          entry.Table.NumRows(),
		Fields:        entry.Metadata.Fields,
		FilterColumns: entry.FilterColumns,
		MetricColumns: entry.MetricColumns,
		Options:       make(map[string][]string, len(entry.FilterColumns)),
		Missing:       entry.Metadata.Missing,
		UpdatedAt:     entry.UpdatedAt,
	}
	for _, name := range entry.FilterColumns {
		if col, ok := entry.Table.Column(name); ok {
			detail.Options[name] = col.Options()
		}
	}
	detail.DateRange = primaryDateBounds(entry.Table)

	c.JSON(http.StatusOK, detail)
}

func (s *Server) handleDeleteDataset(c *gin.Context) {
	name := c.Param("name")
	if err := s.catalog.Delete(c.Request.Context(), name); err != nil {
		respondError(c, err)
		return
	}
	s.forgetEntry(name)
	c.Status(http.StatusNoContent)
}

func primaryDateBounds(table *dataset.TypedTable) *dateBounds {
	col, ok := table.PrimaryDateColumn()
	if !ok {
		return nil
	}
	var times []time.Time
	for _, d := range col.Dates {
		if d.Valid {
			times = append(times, d.Time)
		}
	}
	if len(times) == 0 {
		return nil
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return &dateBounds{Column: col.Name, Min: times[0], Max: times[len(times)-1]}
}
