package pipeline

import (
	"fmt"
	"strings"
	"time"

	"go-bar-race/internal/config"
	"go-bar-race/internal/model"
	"go-bar-race/internal/normalize"
	"go-bar-race/internal/render"
)

// ValidationError lists every problem found in a run spec.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid run spec: " + strings.Join(e.Problems, "; ")
}

// ApplyDefaults fills unset spec fields from the configured defaults.
func ApplyDefaults(spec *model.RunSpec, d config.RenderConfig) {
	n := &spec.Normalization
	if n.TopN == 0 {
		n.TopN = d.TopN
	}
	if n.Duplicates == "" {
		n.Duplicates = string(normalize.KeepLast)
	}

	r := &spec.Render
	setString := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if *dst == 0 {
			*dst = v
		}
	}
	setString(&r.Format, d.Format)
	setString(&r.Output, "race")
	setString(&r.Transition, d.Transition)
	setString(&r.Colormap, d.Colormap)
	setString(&r.FontFile, d.FontFile)
	setInt(&r.FPS, d.FPS)
	setInt(&r.PeriodMillis, d.PeriodMillis)
	setInt(&r.Width, d.Width)
	setInt(&r.Height, d.Height)
	setInt(&r.DPI, d.DPI)
	setInt(&r.Bars, min(n.TopN, 50))
	setInt(&spec.Concurrency.RenderWorkers, d.Workers)
}

// ValidateSpec checks a run spec after defaults have been applied.
func ValidateSpec(spec model.RunSpec) error {
	var problems []string
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}
	inRange := func(name string, v, lo, hi int) {
		check(v >= lo && v <= hi, "%s must be between %d and %d, got %d", name, lo, hi, v)
	}

	check(strings.TrimSpace(spec.Source.Path) != "", "source.path is required")
	if spec.Source.Path != "" {
		switch typ := SourceType(spec.Source); typ {
		case "csv", "tsv", "txt", "xlsx", "xlsm":
		default:
			problems = append(problems, fmt.Sprintf("unsupported source type %q", typ))
		}
	}
	for _, t := range spec.Transformations {
		check(KnownTransform(t), "unknown transformation %q", t)
	}

	n := spec.Normalization
	inRange("normalization.topN", n.TopN, 1, 100)
	check(n.Threshold >= 0, "normalization.threshold must not be negative")
	if _, err := normalize.ParseDuplicatePolicy(n.Duplicates); err != nil {
		problems = append(problems, err.Error())
	}

	r := spec.Render
	if !r.Skip {
		if _, err := render.ParseFormat(r.Format); err != nil {
			problems = append(problems, err.Error())
		}
		inRange("render.fps", r.FPS, 1, 30)
		inRange("render.dpi", r.DPI, 72, 300)
		inRange("render.bars", r.Bars, 1, 50)
		inRange("render.width", r.Width, 160, 3840)
		inRange("render.height", r.Height, 120, 2160)
		check(r.PeriodMillis >= 100, "render.periodMillis must be at least 100")
		if _, err := render.Easing(r.Transition); err != nil {
			problems = append(problems, err.Error())
		}
		if _, err := render.Palette(r.Colormap, 1); err != nil {
			problems = append(problems, err.Error())
		}
		check(!strings.ContainsAny(r.Output, `/\`), "render.output must be a plain name")
	}

	if t := spec.Concurrency.JobTimeout; t != "" {
		_, err := time.ParseDuration(t)
		check(err == nil, "concurrency.jobTimeout %q is not a duration", t)
	}
	if e := spec.Export; e != nil {
		for _, f := range []string{e.File, e.Rankings} {
			if f == "" {
				continue
			}
			switch exportFormat(f) {
			case "csv", "json", "xlsx":
			default:
				problems = append(problems, fmt.Sprintf("unsupported export file %q", f))
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
