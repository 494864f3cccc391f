package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"go-bar-race/internal/model"
)

// entityColumn is the position of the entity field in a long-format row.
const entityColumn = 1

type transformFunc func(string) string

var (
	transforms = map[string]transformFunc{
		"trim":      strings.TrimSpace,
		"nfc":       norm.NFC.String,
		"lowercase": strings.ToLower,
		"uppercase": strings.ToUpper,
		"title": func(s string) string {
			// Casers are stateful, so each call gets its own.
			return cases.Title(language.English).String(strings.ToLower(s))
		},
	}
)

// KnownTransform reports whether name is a supported entity transform.
func KnownTransform(name string) bool {
	_, ok := transforms[name]
	return ok
}

// TransformRows rewrites the entity column of every row in place. trim is
// always applied first. Rows are split across workerCount workers; row
// order is preserved.
func TransformRows(ctx context.Context, t *model.Table, transformations []string, workerCount int) (int, error) {
	chain := []transformFunc{strings.TrimSpace}
	for _, name := range transformations {
		f, ok := transforms[name]
		if !ok {
			return 0, fmt.Errorf("unknown transformation: %s", name)
		}
		if name != "trim" {
			chain = append(chain, f)
		}
	}
	if workerCount <= 0 {
		workerCount = 2
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	changed := 0

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			workerChanged := 0
			for idx := range jobs {
				row := t.Rows[idx]
				if len(row) <= entityColumn {
					continue
				}
				v := row[entityColumn]
				for _, f := range chain {
					v = f(v)
				}
				if v != row[entityColumn] {
					row[entityColumn] = v
					workerChanged++
				}
			}
			mu.Lock()
			changed += workerChanged
			mu.Unlock()
		}()
	}

	var err error
feed:
	for i := range t.Rows {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	if err != nil {
		return changed, err
	}

	slog.Debug("entity transforms applied", "transforms", transformations, "rows_changed", changed)
	return changed, nil
}
