package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go-bar-race/internal/config"
	"go-bar-race/internal/model"
	"go-bar-race/internal/normalize"
	"go-bar-race/internal/render"
	"go-bar-race/internal/store"
	"go-bar-race/pkg/utils"
)

// Deps carries what a run needs besides its spec.
type Deps struct {
	Defaults     config.RenderConfig
	JobTimeout   time.Duration // used when the run spec has none
	OutputDir    string        // directory receiving exports and the animation
	Capabilities render.Capabilities
	// Table, when set, replaces reading spec.Source.
	Table *model.Table
}

// Result is everything a run produced.
type Result struct {
	RunID      string
	Spec       model.RunSpec
	Normalized *normalize.Result
	Rankings   []model.Ranking
	Exports    []ExportResult
	Render     *render.Result
	Metrics    model.RunMetrics
}

// Summary condenses r for storage and API responses.
func (r *Result) Summary() model.RunSummary {
	s := model.RunSummary{}
	if r.Normalized != nil {
		s.Report = r.Normalized.Report
	}
	if r.Render != nil {
		s.Strategy = string(r.Render.Strategy)
		s.Format = string(r.Render.Format)
		s.Requested = string(r.Render.Requested)
		s.Reason = r.Render.Reason
		s.Frames = r.Render.Frames
		s.Output = r.Render.Path
	}
	return s
}

// NormalizeOptions maps the run spec normalization block to normalizer options.
func NormalizeOptions(n model.Normalization) (normalize.Options, error) {
	policy, err := normalize.ParseDuplicatePolicy(n.Duplicates)
	if err != nil {
		return normalize.Options{}, err
	}
	return normalize.Options{
		TopN:            n.TopN,
		ReferencePeriod: n.ReferencePeriod,
		Threshold:       n.Threshold,
		Duplicates:      policy,
	}, nil
}

// RenderOptions maps the run spec render block to renderer options. The
// output name is placed in dir.
func RenderOptions(r model.RenderSpec, workers int, dir string) (render.Options, error) {
	format, err := render.ParseFormat(r.Format)
	if err != nil {
		return render.Options{}, err
	}
	flag := func(b *bool) bool { return b == nil || *b }
	style := render.DefaultStyle()
	style.Title = r.Title
	style.Subtitle = r.Subtitle
	style.Unit = r.Unit
	style.Width = r.Width
	style.Height = r.Height
	style.DPI = r.DPI
	style.Colormap = r.Colormap
	style.FontFile = r.FontFile
	style.ShowValues = flag(r.ShowValues)
	style.ShowGrid = flag(r.ShowGrid)
	style.ShowRankChanges = flag(r.ShowRankChanges)
	style.Watermark = r.Watermark

	return render.Options{
		Format:       format,
		Output:       filepath.Join(dir, filepath.Base(r.Output)),
		FPS:          r.FPS,
		PeriodLength: time.Duration(r.PeriodMillis) * time.Millisecond,
		Transition:   r.Transition,
		Bars:         r.Bars,
		Workers:      workers,
		Style:        style,
	}, nil
}

// ------------------- Pipeline Runner -------------------

// Run executes one run: ingest, transform, normalize, rankings, export and
// render. Stage progress is tracked and, when a store is open, persisted.
func Run(ctx context.Context, runID string, spec model.RunSpec, deps Deps) (res *Result, err error) {
	tracker := NewRunTracker(runID)
	res = &Result{RunID: runID}
	stage := "validate"

	defer func() {
		if err != nil {
			tracker.FailStage(stage, err)
			if errors.Is(err, context.Canceled) {
				tracker.Fail(model.StatusCancelled)
			} else {
				tracker.Fail(model.StatusFailed)
			}
		} else {
			tracker.Complete()
			if store.Enabled() {
				store.SaveRunSummary(runID, res.Summary())
			}
		}
		res.Metrics = tracker.Metrics()
	}()

	ApplyDefaults(&spec, deps.Defaults)
	res.Spec = spec
	if err := ValidateSpec(spec); err != nil {
		return res, err
	}
	nopts, err := NormalizeOptions(spec.Normalization)
	if err != nil {
		return res, err
	}

	timeout := deps.JobTimeout
	if spec.Concurrency.JobTimeout != "" || timeout <= 0 {
		timeout = utils.ParseDuration(spec.Concurrency.JobTimeout)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tracker.Log("run", "info", "run started", map[string]interface{}{
		"source":  spec.Source.Path,
		"top_n":   spec.Normalization.TopN,
		"format":  spec.Render.Format,
		"timeout": timeout.String(),
	})

	// --- INGESTION STAGE ---
	stage = StageIngest
	tracker.StartStage(stage)
	table := deps.Table
	if table == nil {
		if table, err = ReadTable(ctx, spec.Source); err != nil {
			return res, err
		}
	}
	tracker.EndStage(stage, int64(len(table.Rows)), map[string]interface{}{"columns": table.Width()})

	// --- TRANSFORMATION STAGE ---
	stage = StageTransform
	tracker.StartStage(stage)
	changed, err := TransformRows(ctx, table, spec.Transformations, 2)
	if err != nil {
		return res, err
	}
	tracker.EndStage(stage, int64(changed), map[string]interface{}{"transforms": spec.Transformations})

	// --- NORMALIZATION STAGE ---
	stage = StageNormalize
	tracker.StartStage(stage)
	normalized, err := normalize.Normalize(table, nopts)
	if err != nil {
		return res, err
	}
	res.Normalized = normalized
	report := normalized.Report
	for _, g := range report.Gaps {
		tracker.RecordError(stage, "gap", fmt.Sprintf("outlier %s/%d (%g) has no valid neighbour on one side, left unchanged", g.Entity, g.Period, g.Value))
	}
	rows, cols := normalized.Wide.Shape()
	tracker.Update(func(m *model.RunMetrics) {
		m.RowsRead = int64(report.RowsRead)
		m.RowsSkipped = int64(report.RowsSkipped)
		m.Entities = int64(cols)
		m.Periods = int64(rows)
		m.Outliers = int64(report.Outliers)
		m.Corrections = int64(len(report.Corrections))
	})
	tracker.EndStage(stage, int64(report.RowsRead-report.RowsSkipped), map[string]interface{}{
		"skipped":     report.RowsSkipped,
		"duplicates":  report.Duplicates,
		"selected":    report.Selected,
		"outliers":    report.Outliers,
		"corrections": len(report.Corrections),
	})

	// --- RANKINGS STAGE ---
	stage = StageRankings
	tracker.StartStage(stage)
	res.Rankings = Rankings(normalized.Wide)
	tracker.EndStage(stage, int64(len(res.Rankings)), nil)

	outDir := deps.OutputDir
	if outDir == "" {
		outDir = "."
	}

	// --- EXPORT STAGE ---
	if spec.Export != nil {
		stage = StageExport
		tracker.StartStage(stage)
		em := &ExportManager{RunID: runID, Spec: spec.Export, Dir: outDir, Retry: DefaultRetryConfigs[StageExport]}
		res.Exports = em.Export(ctx, normalized.Wide, res.Rankings)
		exported := 0
		for _, r := range res.Exports {
			if !r.Success {
				tracker.RecordError(stage, "export_error", fmt.Sprintf("%s export to %s failed: %s", r.Kind, r.Path, r.Error))
				continue
			}
			exported += r.RecordCount
			if r.Type != "database" {
				registerOutput(runID, r.Kind, r.Path)
			}
		}
		tracker.EndStage(stage, int64(exported), nil)
	}

	// --- RENDER STAGE ---
	if spec.Render.Skip {
		return res, nil
	}
	stage = StageRender
	tracker.StartStage(stage)
	ropts, err := RenderOptions(spec.Render, spec.Concurrency.RenderWorkers, outDir)
	if err != nil {
		return res, err
	}
	rendered, err := render.Render(ctx, normalized.Wide, ropts, deps.Capabilities)
	if err != nil {
		return res, err
	}
	res.Render = rendered
	if rendered.Reason != "" {
		tracker.RecordError(stage, "fallback", rendered.Reason)
	}
	tracker.Update(func(m *model.RunMetrics) {
		m.Frames = int64(rendered.Frames)
		m.Strategy = string(rendered.Strategy)
	})
	registerRender(runID, rendered)
	tracker.EndStage(stage, int64(rendered.Frames), map[string]interface{}{
		"strategy": string(rendered.Strategy),
		"format":   string(rendered.Format),
		"path":     rendered.Path,
	})
	return res, nil
}

// RetryRun re-runs a stored run with its original spec.
func RetryRun(ctx context.Context, runID string, deps Deps) (*Result, error) {
	run, err := store.GetRun(runID)
	if err != nil {
		return nil, err
	}
	if err := store.UpdateRunStatus(runID, model.StatusPending); err != nil {
		return nil, err
	}
	store.SavePipelineLog(runID, "run", "info", "retrying run", map[string]interface{}{"previous_status": run.Status})
	return Run(ctx, runID, *run.Spec, deps)
}

// registerOutput records an artifact in the store.
func registerOutput(runID, kind, path string) {
	if !store.Enabled() {
		return
	}
	size, _ := utils.FileSize(path)
	store.SaveOutputFile(model.OutputFile{
		RunID:    runID,
		Kind:     kind,
		Path:     path,
		Size:     size,
		FileType: utils.FileType(path),
	})
}

func registerRender(runID string, r *render.Result) {
	switch {
	case r.Strategy == render.StrategyStatic:
		for _, f := range r.Files {
			registerOutput(runID, "static", f)
		}
	case r.Format == render.FormatPNG:
		registerOutput(runID, "frames", r.Path)
	default:
		registerOutput(runID, "animation", r.Path)
	}
}

// errorType classifies a run error for tracking.
func errorType(err error) string {
	var fe *normalize.FormatError
	var ve *ValidationError
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &fe):
		return "format_error"
	case errors.As(err, &ve):
		return "validation_error"
	case errors.Is(err, render.ErrNoFrames), errors.Is(err, render.ErrUnsupportedFormat):
		return "render_error"
	}
	return "run_error"
}
