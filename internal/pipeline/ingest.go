package pipeline

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"

	"go-bar-race/internal/model"
)

// ------------------- Ingestion -------------------

// SourceType returns the effective type of src: its explicit Type, or the
// lower-cased extension of its path or URL.
func SourceType(src model.Source) string {
	if src.Type != "" {
		return strings.ToLower(strings.TrimPrefix(src.Type, "."))
	}
	p := src.Path
	if u, err := url.Parse(src.Path); err == nil && isRemote(src.Path) {
		p = u.Path
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}

func isRemote(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// ReadTable loads the long-format table described by src. The first row is
// the header; ragged rows are kept for the normalizer to judge.
func ReadTable(ctx context.Context, src model.Source) (*model.Table, error) {
	typ := SourceType(src)
	slog.Info("ingesting source", "path", src.Path, "type", typ)

	var rc io.ReadCloser
	err := Retry(ctx, DefaultRetryConfigs[StageIngest], "open "+src.Path, func(ctx context.Context) error {
		var err error
		rc, err = open(ctx, src.Path)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var t *model.Table
	switch typ {
	case "csv":
		t, err = readDelimited(rc, ',')
	case "tsv":
		t, err = readDelimited(rc, '\t')
	case "txt":
		br := bufio.NewReader(rc)
		t, err = readDelimited(br, sniffDelimiter(br))
	case "xlsx", "xlsm":
		t, err = readWorkbook(rc, src.Sheet)
	default:
		return nil, fmt.Errorf("unsupported source type %q for %s", typ, src.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Path, err)
	}
	t.Source = src.Path
	slog.Info("source ingested", "path", src.Path, "rows", len(t.Rows), "columns", t.Width())
	return t, nil
}

// open returns a reader for a local file or an http(s) URL.
func open(ctx context.Context, p string) (io.ReadCloser, error) {
	if !isRemote(p) {
		f, err := os.Open(p)
		if err != nil {
			return nil, Permanent(fmt.Errorf("failed to open source file: %w", err))
		}
		return f, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, Permanent(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to GET source: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		err := fmt.Errorf("failed to GET source: %s", resp.Status)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, Permanent(err)
		}
		return nil, err
	}
	return resp.Body, nil
}

// sniffDelimiter peeks at the first line and picks tab or comma.
func sniffDelimiter(br *bufio.Reader) rune {
	line, _ := br.Peek(4096)
	if i := strings.IndexByte(string(line), '\n'); i >= 0 {
		line = line[:i]
	}
	if strings.Count(string(line), "\t") > strings.Count(string(line), ",") {
		return '\t'
	}
	return ','
}

func readDelimited(r io.Reader, comma rune) (*model.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty table")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t := &model.Table{Header: cleanHeader(header)}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		t.Rows = append(t.Rows, rec)
	}
}

func readWorkbook(r io.Reader, sheet string) (*model.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	return &model.Table{Sheet: sheet, Header: cleanHeader(rows[0]), Rows: rows[1:]}, nil
}

// cleanHeader trims whitespace and strips stray quotes from header cells.
func cleanHeader(h []string) []string {
	out := make([]string, len(h))
	for i, c := range h {
		out[i] = strings.ReplaceAll(strings.TrimSpace(c), `"`, "")
	}
	// Excel and some CSV exports prefix the first cell with a byte order mark.
	if len(out) > 0 {
		out[0] = strings.TrimPrefix(out[0], "\ufeff")
	}
	return out
}
