package ui

import (
	"fmt"
	"net/http"
	"strings"

	"painel/adapters/excel"
	"painel/domain/filter"
	"painel/domain/metrics"
	"painel/internal/format"
	aggregation "painel/internal/metrics"

	"github.com/gin-gonic/gin"
)

type viewRequest struct {
	Filters filter.Spec `json:"filters"`
	Metrics []string    `json:"metrics"`
}

type compareRequest struct {
	Base       filter.Spec `json:"base"`
	Comparison filter.Spec `json:"comparison"`
	Metrics    []string    `json:"metrics"`
}

type exportRequest struct {
	Filters filter.Spec `json:"filters"`
}

type summaryView struct {
	metrics.Summary
	Display struct {
		Total string `json:"total"`
		Mean  string `json:"mean"`
	} `json:"display"`
}

type comparisonView struct {
	aggregation.Comparison
	Display struct {
		Total string `json:"total"`
		Mean  string `json:"mean"`
		Count string `json:"count"`
	} `json:"display"`
}

// handleView summarizes the requested metrics over one filtered view.
func (s *Server) handleView(c *gin.Context) {
	var req viewRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	entry, err := s.loadEntry(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}

	view, err := s.engine.Apply(entry.Table, req.Filters)
	if err != nil {
		respondError(c, err)
		return
	}
	summaries, err := aggregation.SummarizeAll(view, aggregation.ParseMetrics(req.Metrics, entry.MetricColumns))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]summaryView, len(summaries))
	for i, sm := range summaries {
		currency := aggregation.IsCurrency(entry.Table, sm.Metric)
		out[i].Summary = sm
		out[i].Display.Total = format.Metric(sm.Total, currency, sm.Metric.IsRowCount())
		out[i].Display.Mean = format.Metric(sm.Mean, currency, false)
	}

	c.JSON(http.StatusOK, gin.H{
		"rows":      view.Len(),
		"total":     entry.Table.NumRows(),
		"summaries": out,
	})
}

// handleCompare summarizes the base and comparison views and their variance.
func (s *Server) handleCompare(c *gin.Context) {
	var req compareRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	entry, err := s.loadEntry(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}

	pair, err := s.engine.ApplyPair(c.Request.Context(), entry.Table, req.Base, req.Comparison)
	if err != nil {
		respondError(c, err)
		return
	}
	comparisons, err := aggregation.ComparePair(pair, aggregation.ParseMetrics(req.Metrics, entry.MetricColumns))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]comparisonView, len(comparisons))
	for i, cmp := range comparisons {
		out[i].Comparison = cmp
		out[i].Display.Total = format.Delta(cmp.Variance.Total)
		out[i].Display.Mean = format.Delta(cmp.Variance.Mean)
		out[i].Display.Count = format.Delta(cmp.Variance.Count)
	}

	c.JSON(http.StatusOK, gin.H{
		"base_rows":       pair.Base.Len(),
		"comparison_rows": pair.Comparison.Len(),
		"comparisons":     out,
	})
}

// handleExport streams the filtered rows as CSV or XLSX with full precision.
func (s *Server) handleExport(c *gin.Context) {
	var req exportRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	fileFormat := strings.ToLower(c.DefaultQuery("format", excel.FormatCSV))
	if fileFormat != excel.FormatCSV && fileFormat != excel.FormatXLSX {
		badRequest(c, fmt.Sprintf("unsupported export format %q", fileFormat))
		return
	}

	entry, err := s.loadEntry(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := s.engine.Apply(entry.Table, req.Filters)
	if err != nil {
		respondError(c, err)
		return
	}
	table := view.Materialize()

	filename := fmt.Sprintf("%s.%s", entry.Name, fileFormat)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	switch fileFormat {
	case excel.FormatXLSX:
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Status(http.StatusOK)
		err = excel.WriteXLSX(c.Writer, table)
	default:
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		err = excel.WriteCSV(c.Writer, table)
	}
	if err != nil {
		c.Error(err)
	}
}

// bindOptionalJSON decodes the body when present; an empty body leaves
// dst at its zero value, which means unrestricted specs.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dst)
}
