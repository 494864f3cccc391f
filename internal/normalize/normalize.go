package normalize

import (
	"log/slog"

	"go-bar-race/internal/model"
)

// Options configures Normalize.
type Options struct {
	// TopN limits the retained entities. Zero or less keeps every entity.
	TopN int
	// ReferencePeriod ranks entities for TopN; nil means the latest period.
	ReferencePeriod *int
	// Threshold is the outlier distance in standard deviations.
	Threshold float64
	// Duplicates collapses repeated (entity, period) rows.
	Duplicates DuplicatePolicy
}

// Result is the output of one Normalize run.
type Result struct {
	Panel  *model.Panel
	Wide   *model.WidePanel
	Report model.NormalizeReport
}

// Normalize runs Parse, top-N selection, outlier correction and
// densification over t.
func Normalize(t *model.Table, opts Options) (*Result, error) {
	panel, stats, err := Parse(t, opts.Duplicates)
	if err != nil {
		return nil, err
	}
	report := model.NormalizeReport{
		RowsRead:    stats.RowsRead,
		RowsSkipped: stats.RowsSkipped,
		Duplicates:  stats.Duplicates,
		Entities:    len(panel.Entities),
		Corrections: []model.Correction{},
		Gaps:        []model.Gap{},
	}
	if ref, ok := referencePeriod(panel, opts.ReferencePeriod); ok {
		report.Reference = ref
	}

	selected := panel.Entities
	if opts.TopN > 0 {
		selected = SelectTopEntities(panel, opts.TopN, opts.ReferencePeriod)
	}
	report.Selected = append([]string{}, selected...)
	panel = panel.Restrict(selected)

	for _, e := range panel.Entities {
		s := panel.Series[e]
		flagged := DetectOutliers(s, opts.Threshold)
		if len(flagged) == 0 {
			continue
		}
		report.Outliers += len(flagged)
		corrected, gaps := interpolate(s, flagged)
		isGap := make(map[int]bool, len(gaps))
		for _, p := range gaps {
			isGap[p] = true
		}
		for _, p := range flagged {
			before, _ := s.At(p)
			after, _ := corrected.At(p)
			if isGap[p] {
				report.Gaps = append(report.Gaps, model.Gap{Entity: e, Period: p, Value: before})
				continue
			}
			report.Corrections = append(report.Corrections, model.Correction{
				Entity: e, Period: p, Original: before, Corrected: after,
			})
		}
		panel.Series[e] = corrected
	}

	slog.Debug("normalized panel",
		"rows", report.RowsRead,
		"skipped", report.RowsSkipped,
		"entities", len(panel.Entities),
		"periods", len(panel.Periods),
		"outliers", report.Outliers,
		"corrections", len(report.Corrections),
	)

	return &Result{
		Panel:  panel,
		Wide:   ToWidePanel(panel),
		Report: report,
	}, nil
}
