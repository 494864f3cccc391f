package model

import "time"

// Run statuses.
const (
	StatusPending     = "pending"
	StatusRunning     = "running"
	StatusIngesting   = "ingesting"
	StatusNormalizing = "normalizing"
	StatusExporting   = "exporting"
	StatusRendering   = "rendering"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusCancelled   = "cancelled"
)

// StageMetrics represents metrics for a single run stage.
type StageMetrics struct {
	Stage            string        `json:"stage"`
	Status           string        `json:"status"` // started, completed, failed
	StartTime        time.Time     `json:"start_time"`
	EndTime          *time.Time    `json:"end_time,omitempty"`
	Duration         time.Duration `json:"duration"`
	RecordsProcessed int64         `json:"records_processed"`
	ErrorCount       int64         `json:"error_count"`
}

// RunMetrics aggregates the counters of one run.
type RunMetrics struct {
	RunID       string                  `json:"run_id"`
	Status      string                  `json:"status"`
	StartTime   time.Time               `json:"start_time"`
	EndTime     *time.Time              `json:"end_time,omitempty"`
	Duration    time.Duration           `json:"duration"`
	RowsRead    int64                   `json:"rows_read"`
	RowsSkipped int64                   `json:"rows_skipped"`
	Entities    int64                   `json:"entities"`
	Periods     int64                   `json:"periods"`
	Outliers    int64                   `json:"outliers"`
	Corrections int64                   `json:"corrections"`
	Frames      int64                   `json:"frames"`
	Strategy    string                  `json:"strategy,omitempty"`
	ErrorCount  int64                   `json:"error_count"`
	Stages      map[string]StageMetrics `json:"stages"`
	Errors      []ErrorDetail           `json:"errors"`
}

// ErrorDetail represents an error with its stage context.
type ErrorDetail struct {
	Timestamp time.Time `json:"timestamp"`
	Stage     string    `json:"stage"`
	ErrorType string    `json:"error_type"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"` // low, medium, high, critical
}

// LogEntry is a persisted stage log line.
type LogEntry struct {
	ID        int64                  `json:"id"`
	RunID     string                 `json:"run_id"`
	Stage     string                 `json:"stage"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// StageProgress is a persisted stage status row.
type StageProgress struct {
	Stage            string     `json:"stage"`
	Status           string     `json:"status"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	RecordsProcessed int        `json:"records_processed"`
	ErrorCount       int        `json:"error_count"`
}

// RunRecord is a persisted run row.
type RunRecord struct {
	ID        string    `json:"id"`
	Spec      *RunSpec  `json:"spec,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
