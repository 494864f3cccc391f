package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-bar-race/internal/model"
	"go-bar-race/internal/pipeline"
	"go-bar-race/internal/store"
	"go-bar-race/pkg/utils"
)

func newTestHandler(t *testing.T) *RunHandler {
	t.Helper()
	if err := store.InitDB(filepath.Join(t.TempDir(), "handler.db")); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	h := NewRunHandler(pipeline.Deps{}, utils.NewOutputManager(t.TempDir()))
	t.Cleanup(h.Shutdown)
	return h
}

// untilCancelled blocks until the run is cancelled, then records the
// cancellation the way a failing stage does.
func untilCancelled(runID string) func(ctx context.Context, deps pipeline.Deps) error {
	return func(ctx context.Context, deps pipeline.Deps) error {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		now := time.Now()
		store.SaveStageProgress(runID, "render", "failed", nil, &now, 0, 1)
		store.SaveRunError(runID, "render", ctx.Err())
		os.MkdirAll(deps.OutputDir, 0o755)
		return ctx.Err()
	}
}

func saveRun(t *testing.T, id string) {
	t.Helper()
	if err := store.SaveRun(id, model.RunSpec{Source: model.Source{Path: "sample.csv"}}); err != nil {
		t.Fatal(err)
	}
}

func TestStart_RejectsActiveRun(t *testing.T) {
	h := newTestHandler(t)
	saveRun(t, "r1")

	if err := h.start("r1", untilCancelled("r1")); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.start("r1", untilCancelled("r1")); !errors.Is(err, errRunActive) {
		t.Fatalf("Expected errRunActive, got %v", err)
	}

	rec := httptest.NewRecorder()
	h.RetryRun(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs/r1/retry", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 retrying an active run, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.CancelRun(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/runs/r1/cancel", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected the first run to stay cancellable, got %d", rec.Code)
	}
	h.Wait()
	if h.isRunning("r1") {
		t.Error("Expected r1 to be finished")
	}
}

func TestDeleteRun_WaitsForActiveRun(t *testing.T) {
	h := newTestHandler(t)
	saveRun(t, "r2")
	if err := h.start("r2", untilCancelled("r2")); err != nil {
		t.Fatalf("start: %v", err)
	}

	rec := httptest.NewRecorder()
	h.DeleteRun(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/runs/r2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	h.Wait()

	errs, err := store.GetRunErrors("r2")
	if err != nil || len(errs) != 0 {
		t.Errorf("Expected no errors left for deleted run, got %v (%v)", errs, err)
	}
	stages, err := store.GetStageProgress("r2")
	if err != nil || len(stages) != 0 {
		t.Errorf("Expected no stage rows left for deleted run, got %v (%v)", stages, err)
	}
	if _, err := os.Stat(filepath.Join(h.outputs.BaseOutputDir, "r2")); !os.IsNotExist(err) {
		t.Errorf("Expected run directory removed, got %v", err)
	}
}
