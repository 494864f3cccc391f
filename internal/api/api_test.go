package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go-bar-race/internal/api/handler"
	"go-bar-race/internal/config"
	"go-bar-race/internal/model"
	"go-bar-race/internal/pipeline"
	"go-bar-race/internal/sample"
	"go-bar-race/internal/store"
	"go-bar-race/pkg/router"
	"go-bar-race/pkg/utils"
)

func newTestServer(t *testing.T) (*router.Router, *handler.RunHandler) {
	t.Helper()
	if err := store.InitDB(filepath.Join(t.TempDir(), "api.db")); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	deps := pipeline.Deps{
		Defaults: config.RenderConfig{
			TopN: 10, Format: "gif", FPS: 2, PeriodMillis: 1000,
			Width: 320, Height: 240, DPI: 72,
			Colormap: "viridis", Transition: "linear", Workers: 2,
		},
		Table: sample.Table(),
	}
	h := handler.NewRunHandler(deps, utils.NewOutputManager(t.TempDir()))
	t.Cleanup(h.Shutdown)

	r := router.New()
	r.Logger = log.New(io.Discard, "", 0)
	RegisterRoutes(r, h)
	return r, h
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, rd))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func exportSpec() model.RunSpec {
	return model.RunSpec{
		Source: model.Source{Path: "sample.csv"},
		Render: model.RenderSpec{Skip: true},
		Export: &model.Export{File: "wide.csv", Rankings: "rankings.json", DB: true},
	}
}

func createRun(t *testing.T, r http.Handler, h *handler.RunHandler, spec model.RunSpec) string {
	t.Helper()
	rec := do(t, r, http.MethodPost, "/api/v1/runs", spec)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	id, _ := decode(t, rec)["runID"].(string)
	if id == "" {
		t.Fatalf("Expected run id in %s", rec.Body.String())
	}
	h.Wait()
	return id
}

func TestCreateRun_Lifecycle(t *testing.T) {
	r, h := newTestServer(t)
	id := createRun(t, r, h, exportSpec())

	rec := do(t, r, http.MethodGet, "/api/v1/runs/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}
	got := decode(t, rec)
	if got["status"] != model.StatusCompleted {
		t.Errorf("Expected completed, got %v", got["status"])
	}
	summary, ok := got["summary"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected summary in %v", got)
	}
	if summary["report"] == nil {
		t.Errorf("Expected a normalize report in summary %v", summary)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/runs", nil)
	var runs []model.RunRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil || len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %s (%v)", rec.Body.String(), err)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/runs/"+id+"/progress", nil)
	if n := decode(t, rec)["completed"]; n == nil || n.(float64) < 4 {
		t.Errorf("Expected completed stages, got %s", rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/v1/runs/"+id+"/logs?limit=2", nil)
	if n := decode(t, rec)["count"]; n != float64(2) {
		t.Errorf("Expected 2 log lines, got %v", n)
	}

	rec = do(t, r, http.MethodDelete, "/api/v1/runs/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec = do(t, r, http.MethodGet, "/api/v1/runs/"+id, nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}

func TestRunResults(t *testing.T) {
	r, h := newTestServer(t)
	id := createRun(t, r, h, exportSpec())

	rec := do(t, r, http.MethodGet, "/api/v1/runs/"+id+"/panel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("panel: %d %s", rec.Code, rec.Body.String())
	}
	var panel model.WidePanel
	if err := json.Unmarshal(rec.Body.Bytes(), &panel); err != nil {
		t.Fatal(err)
	}
	if len(panel.Periods) != 5 || len(panel.Entities) != 10 {
		t.Errorf("Expected 5x10 panel, got %dx%d", len(panel.Periods), len(panel.Entities))
	}

	rec = do(t, r, http.MethodGet, "/api/v1/runs/"+id+"/rankings?period=2020", nil)
	if n := decode(t, rec)["count"]; n != float64(10) {
		t.Errorf("Expected 10 rankings for 2020, got %v", n)
	}
	if rec = do(t, r, http.MethodGet, "/api/v1/runs/"+id+"/rankings?period=abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad period, got %d", rec.Code)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/runs/"+id+"/files", nil)
	files, _ := decode(t, rec)["files"].([]interface{})
	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got %s", rec.Body.String())
	}
	var url string
	for _, f := range files {
		entry := f.(map[string]interface{})
		if entry["name"] == "wide.csv" {
			url, _ = entry["download_url"].(string)
		}
	}
	if url == "" {
		t.Fatalf("Expected download url for wide.csv in %s", rec.Body.String())
	}
	rec = do(t, r, http.MethodGet, url, nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "period,") {
		t.Errorf("Expected wide csv, got %d %q", rec.Code, rec.Body.String())
	}
	if rec = do(t, r, http.MethodGet, "/api/v1/download/"+id+"/missing.csv", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing file, got %d", rec.Code)
	}
}

func TestCreateRun_Invalid(t *testing.T) {
	r, _ := newTestServer(t)

	rec := do(t, r, http.MethodPost, "/api/v1/runs", model.RunSpec{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if msg, _ := decode(t, rec)["error"].(string); !strings.Contains(msg, "source") {
		t.Errorf("Expected source problem, got %q", msg)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad json, got %d", rec.Code)
	}
}

func TestRunNotFound(t *testing.T) {
	r, _ := newTestServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/runs/nope"},
		{http.MethodGet, "/api/v1/runs/nope/errors"},
		{http.MethodGet, "/api/v1/runs/nope/logs"},
		{http.MethodGet, "/api/v1/runs/nope/panel"},
		{http.MethodPost, "/api/v1/runs/nope/retry"},
		{http.MethodPatch, "/api/v1/runs/nope/cancel"},
		{http.MethodDelete, "/api/v1/runs/nope"},
	} {
		if rec := do(t, r, tc.method, tc.path, nil); rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, rec.Code)
		}
	}
	if rec := do(t, r, http.MethodPut, "/api/v1/runs/nope/retry", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestRetryAndCancel(t *testing.T) {
	r, h := newTestServer(t)
	spec := exportSpec()
	spec.Transformations = []string{"bogus"}
	// Stored specs bypass validation at create time, so the retry fails.
	id := "failed-run"
	if err := store.SaveRun(id, spec); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateRunStatus(id, model.StatusFailed); err != nil {
		t.Fatal(err)
	}

	if rec := do(t, r, http.MethodPatch, "/api/v1/runs/"+id+"/cancel", nil); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 cancelling an idle run, got %d", rec.Code)
	}

	rec := do(t, r, http.MethodPost, "/api/v1/runs/"+id+"/retry", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("retry: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["previous_status"]; got != model.StatusFailed {
		t.Errorf("Expected previous status failed, got %v", got)
	}
	h.Wait()

	rec = do(t, r, http.MethodGet, "/api/v1/runs/"+id+"/errors", nil)
	if n := decode(t, rec)["count"]; n == nil || n.(float64) < 1 {
		t.Errorf("Expected recorded errors, got %s", rec.Body.String())
	}
}

func TestSwaggerMounted(t *testing.T) {
	r, _ := newTestServer(t)
	rec := do(t, r, http.MethodGet, "/swagger/doc.json", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/runs/{id}/rankings") {
		t.Errorf("Expected swagger doc, got %d", rec.Code)
	}
}
