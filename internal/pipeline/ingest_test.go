package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"go-bar-race/internal/model"
	"go-bar-race/internal/sample"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestSourceType(t *testing.T) {
	cases := map[model.Source]string{
		{Path: "data/GDP.XLSX"}:                       "xlsx",
		{Path: "https://example.com/gdp.csv?raw=1"}:   "csv",
		{Path: "gdp.data", Type: ".TSV"}:              "tsv",
		{Path: "https://example.com/files/table.txt"}: "txt",
	}
	for src, want := range cases {
		if got := SourceType(src); got != want {
			t.Errorf("SourceType(%+v) = %q, want %q", src, got, want)
		}
	}
}

func TestReadTable_CSV(t *testing.T) {
	path := writeFile(t, "gdp.csv", "\ufeff\"year\", country ,gdp\n2020,A,1\n2021,B\n")

	tbl, err := ReadTable(context.Background(), model.Source{Path: path})
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if strings.Join(tbl.Header, "|") != "year|country|gdp" {
		t.Errorf("Unexpected header %q", tbl.Header)
	}
	if len(tbl.Rows) != 2 || len(tbl.Rows[1]) != 2 {
		t.Errorf("Expected ragged rows to be kept, got %v", tbl.Rows)
	}
	if tbl.Source != path {
		t.Errorf("Unexpected source %s", tbl.Source)
	}
}

func TestReadTable_TxtSniffsTabs(t *testing.T) {
	path := writeFile(t, "gdp.txt", "year\tcountry\tgdp\n2020\tA, Inc.\t1\n")

	tbl, err := ReadTable(context.Background(), model.Source{Path: path})
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(tbl.Rows) != 1 || tbl.Rows[0][1] != "A, Inc." {
		t.Errorf("Unexpected rows %v", tbl.Rows)
	}
}

func TestReadTable_XLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.xlsx")
	if err := WriteTable(path, sample.Table()); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	tbl, err := ReadTable(context.Background(), model.Source{Path: path})
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if tbl.Sheet != "data" || len(tbl.Rows) != len(sample.Table().Rows) {
		t.Errorf("Unexpected table: sheet %q, %d rows", tbl.Sheet, len(tbl.Rows))
	}
	if tbl.Rows[0][0] != "2005" {
		t.Errorf("Expected raw year cell, got %q", tbl.Rows[0][0])
	}

	if _, err := ReadTable(context.Background(), model.Source{Path: path, Sheet: "missing"}); err == nil {
		t.Error("Expected error for missing sheet")
	}
}

func TestReadTable_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gdp.csv" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("year,country,gdp\n2024,A,5\n"))
	}))
	defer srv.Close()

	tbl, err := ReadTable(context.Background(), model.Source{Path: srv.URL + "/gdp.csv"})
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(tbl.Rows) != 1 {
		t.Errorf("Unexpected rows %v", tbl.Rows)
	}
}

func TestReadTable_HTTPNotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := ReadTable(context.Background(), model.Source{Path: srv.URL + "/gdp.csv"})
	if err == nil {
		t.Fatal("Expected error")
	}
	if hits.Load() != 1 {
		t.Errorf("Expected a single request, got %d", hits.Load())
	}
}

func TestReadTable_Errors(t *testing.T) {
	if _, err := ReadTable(context.Background(), model.Source{Path: "gdp.parquet"}); err == nil {
		t.Error("Expected error for unsupported type")
	}
	_, err := ReadTable(context.Background(), model.Source{Path: filepath.Join(t.TempDir(), "none.csv")})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
	empty := writeFile(t, "empty.csv", "")
	if _, err := ReadTable(context.Background(), model.Source{Path: empty}); err == nil {
		t.Error("Expected error for empty file")
	}
}
