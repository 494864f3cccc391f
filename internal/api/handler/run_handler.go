package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-bar-race/internal/model"
	"go-bar-race/internal/pipeline"
	"go-bar-race/internal/store"
	"go-bar-race/pkg/router"
	"go-bar-race/pkg/utils"
)

// errRunActive is returned by start when the run is already executing.
var errRunActive = errors.New("run is still active")

// activeRun is a run executing in this process.
type activeRun struct {
	cancel context.CancelFunc
	done   chan struct{} // closed when the run goroutine returns
}

// RunHandler serves the /api/v1 run endpoints and owns the runs started
// by this process.
type RunHandler struct {
	deps    pipeline.Deps
	outputs *utils.OutputManager

	mu      sync.Mutex
	running map[string]*activeRun
	wg      sync.WaitGroup
}

// NewRunHandler creates a handler. deps is the template for every run;
// its OutputDir is replaced by the run's own directory.
func NewRunHandler(deps pipeline.Deps, outputs *utils.OutputManager) *RunHandler {
	return &RunHandler{
		deps:    deps,
		outputs: outputs,
		running: make(map[string]*activeRun),
	}
}

// Wait blocks until every run started by h has finished.
func (h *RunHandler) Wait() {
	h.wg.Wait()
}

// Shutdown cancels all in-flight runs and waits for them.
func (h *RunHandler) Shutdown() {
	h.mu.Lock()
	for _, run := range h.running {
		run.cancel()
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *RunHandler) active(runID string) *activeRun {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running[runID]
}

func (h *RunHandler) isRunning(runID string) bool {
	return h.active(runID) != nil
}

// start launches fn for runID in the background with a cancellable context.
// It returns errRunActive when runID is already executing.
func (h *RunHandler) start(runID string, fn func(ctx context.Context, deps pipeline.Deps) error) error {
	dir, err := h.outputs.RunDir(runID)
	if err != nil {
		return err
	}
	deps := h.deps
	deps.OutputDir = dir

	ctx, cancel := context.WithCancel(context.Background())
	h.mu.Lock()
	if _, ok := h.running[runID]; ok {
		h.mu.Unlock()
		cancel()
		return errRunActive
	}
	run := &activeRun{cancel: cancel, done: make(chan struct{})}
	h.running[runID] = run
	h.wg.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		defer func() {
			h.mu.Lock()
			if h.running[runID] == run {
				delete(h.running, runID)
			}
			h.mu.Unlock()
			cancel()
			close(run.done)
		}()
		if err := fn(ctx, deps); err != nil {
			slog.Error("run failed", "run", runID, "error", err)
		}
	}()
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// runID extracts the run id from /api/v1/runs/{id}[/...] and
// /api/v1/download/{id}/...
func runID(r *http.Request) string {
	return router.Segment(r.URL.Path, 3)
}

// lookupRun writes 404 and returns nil when the run does not exist.
func lookupRun(w http.ResponseWriter, id string) *model.RunRecord {
	run, err := store.GetRun(id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return nil
	}
	if err != nil {
		http.Error(w, "Failed to fetch run", http.StatusInternalServerError)
		return nil
	}
	return run
}

// CreateRun creates and starts a new run
// @Summary Create a new run
// @Description Validate the run spec, store it and start normalizing and rendering in the background
// @Tags runs
// @Accept json
// @Produce json
// @Param run body model.RunSpec true "Run configuration"
// @Success 200 {object} map[string]interface{} "Run created"
// @Failure 400 {object} map[string]interface{} "Invalid run spec"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [post]
func (h *RunHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var spec model.RunSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	checked := spec
	pipeline.ApplyDefaults(&checked, h.deps.Defaults)
	if err := pipeline.ValidateSpec(checked); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}

	id := uuid.New().String()
	if err := store.SaveRun(id, spec); err != nil {
		http.Error(w, "Failed to save run", http.StatusInternalServerError)
		return
	}
	err := h.start(id, func(ctx context.Context, deps pipeline.Deps) error {
		_, err := pipeline.Run(ctx, id, spec, deps)
		return err
	})
	if err != nil {
		store.UpdateRunStatus(id, model.StatusFailed)
		store.SaveRunError(id, "run", err)
		http.Error(w, "Failed to start run", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Run created successfully",
		"runID":     id,
		"status":    model.StatusPending,
		"createdAt": time.Now().UTC(),
	})
}

// ListRuns lists all runs
// @Summary List runs
// @Description Get all runs with their current status, newest first
// @Tags runs
// @Produce json
// @Success 200 {array} model.RunRecord
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [get]
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := store.ListRuns()
	if err != nil {
		http.Error(w, "Failed to fetch runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun retrieves one run
// @Summary Get run
// @Description Retrieve the run spec, status and, once finished, the summary of a run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run details"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id} [get]
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if router.Segment(r.URL.Path, 4) != "" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	run := lookupRun(w, runID(r))
	if run == nil {
		return
	}
	resp := map[string]interface{}{
		"id":        run.ID,
		"spec":      run.Spec,
		"status":    run.Status,
		"createdAt": run.CreatedAt,
		"updatedAt": run.UpdatedAt,
		"active":    h.isRunning(run.ID),
	}
	if summary, err := store.GetRunSummary(run.ID); err == nil {
		resp["summary"] = summary
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteRun deletes a run
// @Summary Delete run
// @Description Cancel the run if it is active, then remove its records and output files
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run deleted"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id} [delete]
func (h *RunHandler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	id := runID(r)
	run := h.active(id)
	if run != nil {
		run.cancel()
		// The run records its cancellation before the rows are removed.
		select {
		case <-run.done:
		case <-r.Context().Done():
			return
		}
	}

	if err := store.DeleteRun(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete run", http.StatusInternalServerError)
		return
	}
	os.RemoveAll(filepath.Join(h.outputs.BaseOutputDir, id))
	writeJSON(w, http.StatusOK, map[string]interface{}{"run_id": id, "deleted": true, "cancelled": run != nil})
}

// GetRunErrors retrieves the errors of a run
// @Summary Get run errors
// @Description Retrieve the errors recorded while the run executed
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run errors"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id}/errors [get]
func (h *RunHandler) GetRunErrors(w http.ResponseWriter, r *http.Request) {
	run := lookupRun(w, runID(r))
	if run == nil {
		return
	}
	errs, err := store.GetRunErrors(run.ID)
	if err != nil {
		http.Error(w, "Failed to retrieve errors", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": run.ID,
		"errors": errs,
		"count":  len(errs),
	})
}

// GetRunLogs retrieves the stage logs of a run
// @Summary Get run logs
// @Description Retrieve persisted stage log lines, oldest first
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Param limit query int false "Maximum number of lines"
// @Success 200 {object} map[string]interface{} "Run logs"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id}/logs [get]
func (h *RunHandler) GetRunLogs(w http.ResponseWriter, r *http.Request) {
	run := lookupRun(w, runID(r))
	if run == nil {
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	logs, err := store.GetPipelineLogs(run.ID, limit)
	if err != nil {
		http.Error(w, "Failed to retrieve logs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": run.ID,
		"logs":   logs,
		"count":  len(logs),
	})
}

// GetRunProgress retrieves stage progress
// @Summary Get run progress
// @Description Retrieve the status of every stage the run has reached
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Stage progress"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id}/progress [get]
func (h *RunHandler) GetRunProgress(w http.ResponseWriter, r *http.Request) {
	run := lookupRun(w, runID(r))
	if run == nil {
		return
	}
	stages, err := store.GetStageProgress(run.ID)
	if err != nil {
		http.Error(w, "Failed to retrieve progress", http.StatusInternalServerError)
		return
	}
	completed := 0
	for _, s := range stages {
		if s.Status == "completed" {
			completed++
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":    run.ID,
		"status":    run.Status,
		"stages":    stages,
		"completed": completed,
	})
}

// GetRunPanel retrieves the normalized wide panel
// @Summary Get normalized panel
// @Description Retrieve the dense period x entity table produced by the normalizer (requires export.db)
// @Tags results
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.WidePanel
// @Failure 404 {object} map[string]interface{} "Run or panel not found"
// @Router /runs/{id}/panel [get]
func (h *RunHandler) GetRunPanel(w http.ResponseWriter, r *http.Request) {
	run := lookupRun(w, runID(r))
	if run == nil {
		return
	}
	panel, err := store.GetPanel(run.ID)
	if err != nil {
		http.Error(w, "Failed to retrieve panel", http.StatusInternalServerError)
		return
	}
	if len(panel.Periods) == 0 {
		http.Error(w, "Panel not stored for this run", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, panel)
}

// GetRunRankings retrieves the per-period leaderboard
// @Summary Get rankings
// @Description Retrieve rank, share and rank change per period (requires export.db)
// @Tags results
// @Produce json
// @Param id path string true "Run ID"
// @Param period query int false "Only this period"
// @Success 200 {object} map[string]interface{} "Rankings"
// @Failure 400 {object} map[string]interface{} "Invalid period"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id}/rankings [get]
func (h *RunHandler) GetRunRankings(w http.ResponseWriter, r *http.Request) {
	run := lookupRun(w, runID(r))
	if run == nil {
		return
	}
	var period *int
	if s := r.URL.Query().Get("period"); s != "" {
		p, ok := utils.ParsePeriod(s)
		if !ok {
			http.Error(w, "Invalid period", http.StatusBadRequest)
			return
		}
		period = &p
	}
	rankings, err := store.GetRankings(run.ID, period)
	if err != nil {
		http.Error(w, "Failed to retrieve rankings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":   run.ID,
		"rankings": rankings,
		"count":    len(rankings),
	})
}

// GetRunFiles lists output files
// @Summary List output files
// @Description List the animation, frames, charts and exports written by a run, with download URLs
// @Tags results
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Output files"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id}/files [get]
func (h *RunHandler) GetRunFiles(w http.ResponseWriter, r *http.Request) {
	run := lookupRun(w, runID(r))
	if run == nil {
		return
	}
	files, err := store.GetOutputFiles(run.ID)
	if err != nil {
		http.Error(w, "Failed to retrieve files", http.StatusInternalServerError)
		return
	}
	out := make([]map[string]interface{}, 0, len(files))
	for _, f := range files {
		entry := map[string]interface{}{
			"kind":       f.Kind,
			"name":       filepath.Base(f.Path),
			"size":       f.Size,
			"file_type":  f.FileType,
			"created_at": f.CreatedAt,
		}
		if f.FileType != "directory" {
			entry["download_url"] = h.outputs.DownloadURL(run.ID, f.Path)
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": run.ID,
		"files":  out,
		"count":  len(out),
	})
}

// RetryRun re-runs a finished run
// @Summary Retry run
// @Description Run a failed or cancelled run again with its stored spec
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Retry started"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Failure 409 {object} map[string]interface{} "Run is still active"
// @Router /runs/{id}/retry [post]
func (h *RunHandler) RetryRun(w http.ResponseWriter, r *http.Request) {
	run := lookupRun(w, runID(r))
	if run == nil {
		return
	}
	err := h.start(run.ID, func(ctx context.Context, deps pipeline.Deps) error {
		_, err := pipeline.RetryRun(ctx, run.ID, deps)
		return err
	})
	if errors.Is(err, errRunActive) {
		http.Error(w, "Run is still active", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, "Failed to start retry", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":         "Retry started",
		"run_id":          run.ID,
		"previous_status": run.Status,
	})
}

// CancelRun cancels an active run
// @Summary Cancel run
// @Description Cancel the context of an active run; it stops at the next stage or frame chunk
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run cancelled"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Failure 409 {object} map[string]interface{} "Run is not active"
// @Router /runs/{id}/cancel [patch]
func (h *RunHandler) CancelRun(w http.ResponseWriter, r *http.Request) {
	run := lookupRun(w, runID(r))
	if run == nil {
		return
	}
	active := h.active(run.ID)
	if active == nil {
		http.Error(w, "Run is not active", http.StatusConflict)
		return
	}
	active.cancel()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Run cancellation requested",
		"run_id":  run.ID,
	})
}

// DownloadFile serves an output file
// @Summary Download output file
// @Description Download a file written by a run, by its base name as listed in /runs/{id}/files
// @Tags results
// @Produce octet-stream
// @Param id path string true "Run ID"
// @Param file path string true "File name"
// @Success 200 {file} file "File content"
// @Failure 400 {object} map[string]interface{} "Not a file"
// @Failure 404 {object} map[string]interface{} "File not found"
// @Router /download/{id}/{file} [get]
func (h *RunHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id := runID(r)
	name := router.Segment(r.URL.Path, 4)
	files, err := store.GetOutputFiles(id)
	if err != nil {
		http.Error(w, "Failed to retrieve files", http.StatusInternalServerError)
		return
	}
	for _, f := range files {
		if filepath.Base(f.Path) != name {
			continue
		}
		info, err := os.Stat(f.Path)
		if err != nil {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		if info.IsDir() {
			http.Error(w, "Not a file", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
		http.ServeFile(w, r, f.Path)
		return
	}
	http.Error(w, "File not found", http.StatusNotFound)
}
