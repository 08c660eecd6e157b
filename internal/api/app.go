// Package api is the headless read API over the dataset catalog. It never
// writes to the catalog.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"painel/domain/core"
	"painel/domain/dataset"
	"painel/domain/filter"
	apperrors "painel/internal/errors"
	"painel/internal/filtering"
	aggregation "painel/internal/metrics"
	"painel/ports"
)

// App serves the read API
type App struct {
	router  *chi.Mux
	catalog ports.CatalogReader
	engine  *filtering.Engine
}

// NewApp creates the read API over catalog
func NewApp(catalog ports.CatalogReader, engine *filtering.Engine) *App {
	if engine == nil {
		engine = filtering.NewEngine(filtering.DefaultCacheSize)
	}
	a := &App{
		router:  chi.NewRouter(),
		catalog: catalog,
		engine:  engine,
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// ServeHTTP implements http.Handler
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	a.router.Get("/healthz", a.handleHealth)
	a.router.Get("/datasets", a.handleListDatasets)
	a.router.Get("/datasets/{name}/options", a.handleOptions)
	a.router.Post("/datasets/{name}/summary", a.handleSummary)
}

type summaryRequest struct {
	Filters filter.Spec `json:"filters"`
	Metrics []string    `json:"metrics"`
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	summaries, err := a.catalog.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if summaries == nil {
		summaries = []dataset.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"datasets": summaries})
}

// handleOptions lists the selectable keys of every declared filter column.
func (a *App) handleOptions(w http.ResponseWriter, r *http.Request) {
	entry, err := a.catalog.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	options := make(map[string][]string, len(entry.FilterColumns))
	for _, name := range entry.FilterColumns {
		if col, ok := entry.Table.Column(name); ok {
			options[name] = col.Options()
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dataset": entry.Name,
		"options": options,
	})
}

func (a *App) handleSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	entry, err := a.catalog.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := a.engine.Apply(entry.Table, req.Filters)
	if err != nil {
		writeError(w, err)
		return
	}
	summaries, err := aggregation.SummarizeAll(view, aggregation.ParseMetrics(req.Metrics, entry.MetricColumns))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dataset":   entry.Name,
		"rows":      view.Len(),
		"summaries": summaries,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.GetCode(err) == apperrors.CodeStructural:
		status = http.StatusBadRequest
	case core.IsNotFoundError(err):
		status = http.StatusNotFound
	}
	body := map[string]string{"error": err.Error()}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body["code"] = appErr.Code
		if appErr.Column != "" {
			body["column"] = appErr.Column
		}
	}
	if status == http.StatusInternalServerError {
		log.Printf("[API] Request failed: %v", err)
	}
	writeJSON(w, status, body)
}
