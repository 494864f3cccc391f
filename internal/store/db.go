package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-bar-race/internal/model"
)

var db *sql.DB

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		spec TEXT,
		status TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		stage TEXT,
		error_message TEXT,
		created_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS stage_progress (
		run_id TEXT,
		stage TEXT,
		status TEXT,
		started_at DATETIME,
		completed_at DATETIME,
		records_processed INTEGER,
		error_count INTEGER,
		PRIMARY KEY (run_id, stage)
	);`,
	`CREATE TABLE IF NOT EXISTS pipeline_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		stage TEXT,
		level TEXT,
		message TEXT,
		details TEXT,
		created_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS panel_cells (
		run_id TEXT,
		period INTEGER,
		col INTEGER,
		entity TEXT,
		value REAL,
		PRIMARY KEY (run_id, period, col)
	);`,
	`CREATE TABLE IF NOT EXISTS rankings (
		run_id TEXT,
		period INTEGER,
		rank INTEGER,
		entity TEXT,
		value REAL,
		share REAL,
		rank_change INTEGER,
		PRIMARY KEY (run_id, period, rank)
	);`,
	`CREATE TABLE IF NOT EXISTS output_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		kind TEXT,
		path TEXT,
		size INTEGER,
		file_type TEXT,
		created_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS run_summaries (
		run_id TEXT PRIMARY KEY,
		summary TEXT,
		updated_at DATETIME
	);`,
}

// InitDB opens the sqlite database at dbPath and creates missing tables.
func InitDB(dbPath string) error {
	conn, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return err
	}
	// sqlite serialises writers anyway; one connection avoids lock errors
	// between concurrent runs.
	conn.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return fmt.Errorf("create schema: %w", err)
		}
	}
	db = conn
	return nil
}

// Close closes the database. Later calls to Enabled report false.
func Close() error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

// Enabled reports whether InitDB has been called. The CLI runs without a
// database.
func Enabled() bool {
	return db != nil
}

// ------------------- Runs -------------------

// SaveRun stores a new pending run.
func SaveRun(runID string, spec model.RunSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO runs (id, spec, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		runID, specJSON, model.StatusPending, now, now)
	return err
}

// ListRuns returns all runs, newest first, without their specs.
func ListRuns() ([]model.RunRecord, error) {
	rows, err := db.Query(`SELECT id, status, created_at, updated_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []model.RunRecord{}
	for rows.Next() {
		var r model.RunRecord
		if err := rows.Scan(&r.ID, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun fetches the full run spec and status.
func GetRun(runID string) (*model.RunRecord, error) {
	var specJSON string
	r := model.RunRecord{ID: runID}
	err := db.QueryRow(`SELECT spec, status, created_at, updated_at FROM runs WHERE id = ?`, runID).
		Scan(&specJSON, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var spec model.RunSpec
	if err := json.Unmarshal([]byte(specJSON), &spec); err != nil {
		return nil, fmt.Errorf("decode spec of run %s: %w", runID, err)
	}
	r.Spec = &spec
	return &r, nil
}

// UpdateRunStatus updates the status of a run.
func UpdateRunStatus(runID string, status string) error {
	now := time.Now().UTC()
	res, err := db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRun removes a run and everything recorded for it.
func DeleteRun(runID string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	for _, table := range []string{"run_errors", "stage_progress", "pipeline_logs", "panel_cells", "rankings", "output_files", "run_summaries"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// ------------------- Errors -------------------

// SaveRunError records an error for a run.
func SaveRunError(runID, stage string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := db.Exec(`INSERT INTO run_errors (run_id, stage, error_message, created_at) VALUES (?, ?, ?, ?)`,
		runID, stage, err.Error(), now)
	return e
}

// GetRunErrors returns the errors recorded for a run, oldest first.
func GetRunErrors(runID string) ([]model.ErrorDetail, error) {
	rows, err := db.Query(`SELECT stage, error_message, created_at FROM run_errors WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ErrorDetail{}
	for rows.Next() {
		d := model.ErrorDetail{ErrorType: "run_error", Severity: "high"}
		if err := rows.Scan(&d.Stage, &d.Message, &d.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ------------------- Stage progress and logs -------------------

// SaveStageProgress upserts the progress row of one stage.
func SaveStageProgress(runID, stage, status string, startedAt, completedAt *time.Time, records, errorCount int) error {
	_, err := db.Exec(`INSERT INTO stage_progress (run_id, stage, status, started_at, completed_at, records_processed, error_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, stage) DO UPDATE SET
			status = excluded.status,
			started_at = COALESCE(excluded.started_at, stage_progress.started_at),
			completed_at = excluded.completed_at,
			records_processed = excluded.records_processed,
			error_count = excluded.error_count`,
		runID, stage, status, nullTime(startedAt), nullTime(completedAt), records, errorCount)
	return err
}

// GetStageProgress returns the stage rows of a run in start order.
func GetStageProgress(runID string) ([]model.StageProgress, error) {
	rows, err := db.Query(`SELECT stage, status, started_at, completed_at, records_processed, error_count
		FROM stage_progress WHERE run_id = ? ORDER BY started_at`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.StageProgress{}
	for rows.Next() {
		var p model.StageProgress
		var started, completed sql.NullTime
		if err := rows.Scan(&p.Stage, &p.Status, &started, &completed, &p.RecordsProcessed, &p.ErrorCount); err != nil {
			return nil, err
		}
		if started.Valid {
			p.StartedAt = &started.Time
		}
		if completed.Valid {
			p.CompletedAt = &completed.Time
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SavePipelineLog persists one stage log line.
func SavePipelineLog(runID, stage, level, message string, details map[string]interface{}) error {
	var detailsJSON []byte
	if len(details) > 0 {
		var err error
		if detailsJSON, err = json.Marshal(details); err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT INTO pipeline_logs (run_id, stage, level, message, details, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, stage, level, message, string(detailsJSON), time.Now().UTC())
	return err
}

// GetPipelineLogs returns up to limit log lines of a run, oldest first.
// limit <= 0 returns all of them.
func GetPipelineLogs(runID string, limit int) ([]model.LogEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`SELECT id, stage, level, message, details, created_at
		FROM pipeline_logs WHERE run_id = ? ORDER BY id LIMIT ?`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.LogEntry{}
	for rows.Next() {
		e := model.LogEntry{RunID: runID}
		var details string
		if err := rows.Scan(&e.ID, &e.Stage, &e.Level, &e.Message, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		if details != "" {
			if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ------------------- Results -------------------

// SavePanel replaces the stored wide panel of a run.
func SavePanel(runID string, w *model.WidePanel) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM panel_cells WHERE run_id = ?`, runID); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO panel_cells (run_id, period, col, entity, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, p := range w.Periods {
		for j, e := range w.Entities {
			if _, err := stmt.Exec(runID, p, j, e, w.Values[i][j]); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// GetPanel rebuilds the stored wide panel of a run.
func GetPanel(runID string) (*model.WidePanel, error) {
	rows, err := db.Query(`SELECT period, col, entity, value FROM panel_cells WHERE run_id = ? ORDER BY period, col`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	w := &model.WidePanel{Periods: []int{}, Entities: []string{}, Values: [][]float64{}}
	for rows.Next() {
		var period, col int
		var entity string
		var value float64
		if err := rows.Scan(&period, &col, &entity, &value); err != nil {
			return nil, err
		}
		if n := len(w.Periods); n == 0 || w.Periods[n-1] != period {
			w.Periods = append(w.Periods, period)
			w.Values = append(w.Values, []float64{})
		}
		if len(w.Periods) == 1 {
			w.Entities = append(w.Entities, entity)
		}
		last := len(w.Values) - 1
		w.Values[last] = append(w.Values[last], value)
	}
	return w, rows.Err()
}

// SaveRankings replaces the stored leaderboard of a run.
func SaveRankings(runID string, rankings []model.Ranking) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM rankings WHERE run_id = ?`, runID); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO rankings (run_id, period, rank, entity, value, share, rank_change) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rankings {
		if _, err := stmt.Exec(runID, r.Period, r.Rank, r.Entity, r.Value, r.Share, r.RankChange); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetRankings returns the leaderboard of a run, optionally for one period.
func GetRankings(runID string, period *int) ([]model.Ranking, error) {
	query := `SELECT period, rank, entity, value, share, rank_change FROM rankings WHERE run_id = ?`
	args := []interface{}{runID}
	if period != nil {
		query += ` AND period = ?`
		args = append(args, *period)
	}
	rows, err := db.Query(query+` ORDER BY period, rank`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Ranking{}
	for rows.Next() {
		var r model.Ranking
		if err := rows.Scan(&r.Period, &r.Rank, &r.Entity, &r.Value, &r.Share, &r.RankChange); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveOutputFile records an artifact written by a run.
func SaveOutputFile(f model.OutputFile) error {
	_, err := db.Exec(`INSERT INTO output_files (run_id, kind, path, size, file_type, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		f.RunID, f.Kind, f.Path, f.Size, f.FileType, time.Now().UTC())
	return err
}

// GetOutputFiles lists the artifacts of a run.
func GetOutputFiles(runID string) ([]model.OutputFile, error) {
	rows, err := db.Query(`SELECT id, kind, path, size, file_type, created_at FROM output_files WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.OutputFile{}
	for rows.Next() {
		f := model.OutputFile{RunID: runID}
		var created time.Time
		if err := rows.Scan(&f.ID, &f.Kind, &f.Path, &f.Size, &f.FileType, &created); err != nil {
			return nil, err
		}
		f.CreatedAt = created.Format(time.RFC3339)
		out = append(out, f)
	}
	return out, rows.Err()
}

// SaveRunSummary stores the final report of a run.
func SaveRunSummary(runID string, s model.RunSummary) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = db.Exec(`INSERT INTO run_summaries (run_id, summary, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET summary = excluded.summary, updated_at = excluded.updated_at`,
		runID, string(b), time.Now().UTC())
	return err
}

// GetRunSummary returns the stored report of a run, or ErrNotFound.
func GetRunSummary(runID string) (*model.RunSummary, error) {
	var raw string
	err := db.QueryRow(`SELECT summary FROM run_summaries WHERE run_id = ?`, runID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s model.RunSummary
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
