package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"go-bar-race/internal/model"
	"go-bar-race/internal/store"
)

// ExportResult represents the result of an export operation
type ExportResult struct {
	Type        string    `json:"type"` // database, csv, json, xlsx
	Kind        string    `json:"kind"` // panel, rankings
	Path        string    `json:"path"` // file path or table name
	RecordCount int       `json:"record_count"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	ExportedAt  time.Time `json:"exported_at"`
}

// ExportManager writes the normalized panel and the rankings of one run.
type ExportManager struct {
	RunID  string
	Spec   *model.Export
	Dir    string // output directory for file exports
	Retry  RetryConfig
	Result []ExportResult
}

// Export runs every export the run spec asks for and returns one result per
// destination. A failed destination does not stop the others.
func (em *ExportManager) Export(ctx context.Context, w *model.WidePanel, rankings []model.Ranking) []ExportResult {
	if em.Spec == nil {
		return nil
	}
	if em.Spec.File != "" {
		em.add(ctx, "panel", em.Spec.File, func(path string) (int, error) { return WritePanel(path, w) })
	}
	if em.Spec.Rankings != "" {
		em.add(ctx, "rankings", em.Spec.Rankings, func(path string) (int, error) { return WriteRankings(path, rankings) })
	}
	if em.Spec.DB {
		em.Result = append(em.Result, em.exportToDatabase(w, rankings))
	}
	return em.Result
}

func (em *ExportManager) add(ctx context.Context, kind, name string, write func(path string) (int, error)) {
	path := filepath.Join(em.Dir, filepath.Base(name))
	res := ExportResult{Type: exportFormat(path), Kind: kind, Path: path}

	var n int
	err := Retry(ctx, em.Retry, "export "+kind, func(context.Context) error {
		var err error
		n, err = write(path)
		return err
	})
	res.ExportedAt = time.Now()
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Success = true
		res.RecordCount = n
	}
	em.Result = append(em.Result, res)
}

func (em *ExportManager) exportToDatabase(w *model.WidePanel, rankings []model.Ranking) ExportResult {
	res := ExportResult{Type: "database", Kind: "panel+rankings", Path: "panel_cells,rankings", ExportedAt: time.Now()}
	if !store.Enabled() {
		res.Error = "no database configured"
		return res
	}
	if err := store.SavePanel(em.RunID, w); err != nil {
		res.Error = err.Error()
		return res
	}
	if err := store.SaveRankings(em.RunID, rankings); err != nil {
		res.Error = err.Error()
		return res
	}
	rows, cols := w.Shape()
	res.RecordCount = rows*cols + len(rankings)
	res.Success = true
	return res
}

// exportFormat is the lower-cased extension of path without the dot.
func exportFormat(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WritePanel writes the wide panel as csv, json or xlsx, chosen by the
// extension of path. It returns the number of data rows written.
func WritePanel(path string, w *model.WidePanel) (int, error) {
	header := append([]string{"period"}, w.Entities...)
	switch exportFormat(path) {
	case "csv":
		rows := make([][]string, len(w.Periods))
		for i, p := range w.Periods {
			row := []string{strconv.Itoa(p)}
			for _, v := range w.Values[i] {
				row = append(row, formatFloat(v))
			}
			rows[i] = row
		}
		return len(rows), writeCSV(path, header, rows)
	case "json":
		return len(w.Periods), writeJSON(path, w)
	case "xlsx":
		rows := make([][]interface{}, len(w.Periods))
		for i, p := range w.Periods {
			row := []interface{}{p}
			for _, v := range w.Values[i] {
				row = append(row, v)
			}
			rows[i] = row
		}
		return len(rows), writeXLSX(path, "panel", header, rows)
	}
	return 0, Permanent(fmt.Errorf("unsupported export format: %s", path))
}

// WriteRankings writes the leaderboard as csv, json or xlsx.
func WriteRankings(path string, rankings []model.Ranking) (int, error) {
	header := []string{"period", "rank", "entity", "value", "share", "rank_change"}
	switch exportFormat(path) {
	case "csv":
		rows := make([][]string, len(rankings))
		for i, r := range rankings {
			rows[i] = []string{
				strconv.Itoa(r.Period), strconv.Itoa(r.Rank), r.Entity,
				formatFloat(r.Value), strconv.FormatFloat(r.Share, 'f', 6, 64), strconv.Itoa(r.RankChange),
			}
		}
		return len(rows), writeCSV(path, header, rows)
	case "json":
		return len(rankings), writeJSON(path, rankings)
	case "xlsx":
		rows := make([][]interface{}, len(rankings))
		for i, r := range rankings {
			rows[i] = []interface{}{r.Period, r.Rank, r.Entity, r.Value, r.Share, r.RankChange}
		}
		return len(rows), writeXLSX(path, "rankings", header, rows)
	}
	return 0, Permanent(fmt.Errorf("unsupported export format: %s", path))
}

// WriteTable writes a raw long-format table as csv or xlsx.
func WriteTable(path string, t *model.Table) error {
	switch exportFormat(path) {
	case "csv":
		return writeCSV(path, t.Header, t.Rows)
	case "xlsx":
		rows := make([][]interface{}, len(t.Rows))
		for i, r := range t.Rows {
			row := make([]interface{}, len(r))
			for j, c := range r {
				if v, err := strconv.ParseFloat(c, 64); err == nil {
					row[j] = v
				} else {
					row[j] = c
				}
			}
			rows[i] = row
		}
		return writeXLSX(path, "data", t.Header, rows)
	}
	return fmt.Errorf("unsupported table format: %s", path)
}

func writeCSV(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return file.Close()
}

func writeJSON(path string, v interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return file.Close()
}

func writeXLSX(path, sheet string, header []string, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
