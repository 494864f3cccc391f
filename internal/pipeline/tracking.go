package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"go-bar-race/internal/model"
	"go-bar-race/internal/store"
)

// Stage names.
const (
	StageIngest    = "ingest"
	StageTransform = "transform"
	StageNormalize = "normalize"
	StageRankings  = "rankings"
	StageExport    = "export"
	StageRender    = "render"
)

// stageStatus maps a stage to the run status shown while it runs.
var stageStatus = map[string]string{
	StageIngest:    model.StatusIngesting,
	StageTransform: model.StatusIngesting,
	StageNormalize: model.StatusNormalizing,
	StageRankings:  model.StatusNormalizing,
	StageExport:    model.StatusExporting,
	StageRender:    model.StatusRendering,
}

// RunTracker collects the metrics of one run and mirrors stage progress,
// logs and errors to the store when one is configured.
type RunTracker struct {
	RunID   string
	mu      sync.RWMutex
	metrics model.RunMetrics
	persist bool
}

// NewRunTracker creates a tracker for runID.
func NewRunTracker(runID string) *RunTracker {
	return &RunTracker{
		RunID:   runID,
		persist: store.Enabled(),
		metrics: model.RunMetrics{
			RunID:     runID,
			Status:    model.StatusRunning,
			StartTime: time.Now(),
			Stages:    make(map[string]model.StageMetrics),
			Errors:    make([]model.ErrorDetail, 0),
		},
	}
}

// StartStage marks the start of a stage.
func (rt *RunTracker) StartStage(stage string) {
	now := time.Now()
	rt.mu.Lock()
	rt.metrics.Stages[stage] = model.StageMetrics{Stage: stage, Status: "started", StartTime: now}
	rt.mu.Unlock()

	slog.Info("stage started", "run", rt.RunID, "stage", stage)
	if rt.persist {
		if status, ok := stageStatus[stage]; ok {
			store.UpdateRunStatus(rt.RunID, status)
		}
		store.SaveStageProgress(rt.RunID, stage, "started", &now, nil, 0, 0)
	}
}

// EndStage marks a stage completed with the number of records it handled.
func (rt *RunTracker) EndStage(stage string, records int64, details map[string]interface{}) {
	rt.finish(stage, "completed", records)
	m := rt.Stage(stage)

	slog.Info("stage completed", "run", rt.RunID, "stage", stage, "records", records, "duration", m.Duration)
	if rt.persist {
		store.SaveStageProgress(rt.RunID, stage, "completed", nil, m.EndTime, int(records), int(m.ErrorCount))
		if details == nil {
			details = map[string]interface{}{}
		}
		details["duration_ms"] = m.Duration.Milliseconds()
		details["records"] = records
		store.SavePipelineLog(rt.RunID, stage, "info", "stage completed", details)
	}
}

// FailStage marks a stage failed and records err.
func (rt *RunTracker) FailStage(stage string, err error) {
	rt.finish(stage, "failed", 0)
	rt.RecordError(stage, errorType(err), err.Error())
	m := rt.Stage(stage)
	if rt.persist {
		store.SaveStageProgress(rt.RunID, stage, "failed", nil, m.EndTime, 0, int(m.ErrorCount))
		store.SaveRunError(rt.RunID, stage, err)
	}
}

func (rt *RunTracker) finish(stage, status string, records int64) {
	now := time.Now()
	rt.mu.Lock()
	defer rt.mu.Unlock()
	m := rt.metrics.Stages[stage]
	if m.StartTime.IsZero() {
		m.StartTime = now
	}
	m.Stage = stage
	m.Status = status
	m.EndTime = &now
	m.Duration = now.Sub(m.StartTime)
	m.RecordsProcessed = records
	rt.metrics.Stages[stage] = m
}

// RecordError records a non-fatal or fatal error against a stage.
func (rt *RunTracker) RecordError(stage, errType, message string) {
	d := model.ErrorDetail{
		Timestamp: time.Now(),
		Stage:     stage,
		ErrorType: errType,
		Message:   message,
		Severity:  determineSeverity(errType),
	}
	rt.mu.Lock()
	rt.metrics.Errors = append(rt.metrics.Errors, d)
	rt.metrics.ErrorCount++
	m := rt.metrics.Stages[stage]
	m.ErrorCount++
	rt.metrics.Stages[stage] = m
	rt.mu.Unlock()

	slog.Warn("stage error", "run", rt.RunID, "stage", stage, "type", errType, "error", message)
	if rt.persist {
		store.SavePipelineLog(rt.RunID, stage, "error", message, map[string]interface{}{
			"error_type": errType,
			"severity":   d.Severity,
		})
	}
}

// Log writes a stage log line to slog and, when persisting, to the store.
func (rt *RunTracker) Log(stage, level, message string, details map[string]interface{}) {
	args := []any{"run", rt.RunID, "stage", stage}
	for k, v := range details {
		args = append(args, k, v)
	}
	switch level {
	case "warning", "warn":
		slog.Warn(message, args...)
	case "debug":
		slog.Debug(message, args...)
	default:
		slog.Info(message, args...)
	}
	if rt.persist {
		store.SavePipelineLog(rt.RunID, stage, level, message, details)
	}
}

// Update applies fn to the metrics under the tracker's lock.
func (rt *RunTracker) Update(fn func(m *model.RunMetrics)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	fn(&rt.metrics)
}

// Complete marks the run completed.
func (rt *RunTracker) Complete() {
	rt.end(model.StatusCompleted)
}

// Fail marks the run failed, or cancelled when the context was cancelled.
func (rt *RunTracker) Fail(status string) {
	rt.end(status)
}

func (rt *RunTracker) end(status string) {
	now := time.Now()
	rt.mu.Lock()
	rt.metrics.Status = status
	rt.metrics.EndTime = &now
	rt.metrics.Duration = now.Sub(rt.metrics.StartTime)
	rt.mu.Unlock()
	if rt.persist {
		store.UpdateRunStatus(rt.RunID, status)
	}
}

// Stage returns the metrics of one stage.
func (rt *RunTracker) Stage(stage string) model.StageMetrics {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.metrics.Stages[stage]
}

// Metrics returns a copy of the current metrics.
func (rt *RunTracker) Metrics() model.RunMetrics {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	m := rt.metrics
	m.Stages = make(map[string]model.StageMetrics, len(rt.metrics.Stages))
	for k, v := range rt.metrics.Stages {
		m.Stages[k] = v
	}
	m.Errors = append([]model.ErrorDetail(nil), rt.metrics.Errors...)
	return m
}

// Helper function to determine error severity
func determineSeverity(errType string) string {
	switch errType {
	case "format_error", "cancelled", "timeout":
		return "critical"
	case "source_error", "render_error", "export_error":
		return "high"
	case "gap", "fallback":
		return "medium"
	}
	return "low"
}
