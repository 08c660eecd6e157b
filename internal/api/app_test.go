package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"painel/domain/core"
	"painel/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	entries map[string]*dataset.Entry
}

func (f *fakeCatalog) Get(ctx context.Context, name string) (*dataset.Entry, error) {
	e, ok := f.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrDatasetNotFound, name)
	}
	return e, nil
}

func (f *fakeCatalog) List(ctx context.Context) ([]dataset.Summary, error) {
	var out []dataset.Summary
	for _, e := range f.entries {
		out = append(out, e.Summarize())
	}
	return out, nil
}

func newApp(t *testing.T) *App {
	t.Helper()
	day := func(d int) dataset.NullDate { return dataset.DateOf(time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)) }
	table, err := dataset.NewTypedTable([]dataset.Column{
		{Name: "data", Role: dataset.RoleDate, Dates: []dataset.NullDate{day(1), day(2), day(3), day(4)}},
		{Name: "regiao", Role: dataset.RoleCategorical, Strings: []string{"Sul", "", "Norte", "Sul"}},
		{Name: "valor", Role: dataset.RoleCurrency, Numbers: []float64{10, 20, 30, 40}},
	})
	require.NoError(t, err)
	catalog := &fakeCatalog{entries: map[string]*dataset.Entry{
		"vendas": {Name: "vendas", Table: table, FilterColumns: []string{"regiao"}, MetricColumns: []string{"valor"}},
	}}
	return NewApp(catalog, nil)
}

func serve(t *testing.T, a *App, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	a.ServeHTTP(w, req)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w, out
}

func TestHealthAndList(t *testing.T) {
	a := newApp(t)

	w, body := serve(t, a, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	w, body = serve(t, a, http.MethodGet, "/datasets", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["datasets"], 1)
}

func TestOptions(t *testing.T) {
	a := newApp(t)

	w, body := serve(t, a, http.MethodGet, "/datasets/vendas/options", "")
	require.Equal(t, http.StatusOK, w.Code)
	options := body["options"].(map[string]interface{})["regiao"].([]interface{})
	assert.ElementsMatch(t, []interface{}{"Norte", "Sul", dataset.MissingLabel}, options)

	w, _ = serve(t, a, http.MethodGet, "/datasets/outro/options", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSummary(t *testing.T) {
	a := newApp(t)

	w, body := serve(t, a, http.MethodPost, "/datasets/vendas/summary",
		`{"filters":{"columns":{"regiao":["Sul","(vazio)"]}},"metrics":["valor"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), body["rows"])
	summary := body["summaries"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, float64(70), summary["total"])

	w, body = serve(t, a, http.MethodPost, "/datasets/vendas/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4), body["rows"])
	assert.Len(t, body["summaries"], 2)

	w, body = serve(t, a, http.MethodPost, "/datasets/vendas/summary", `{"filters":{"columns":{"loja":["x"]}}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "loja", body["column"])

	w, _ = serve(t, a, http.MethodPost, "/datasets/vendas/summary", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
