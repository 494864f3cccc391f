package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"go-bar-race/internal/model"
)

// Result reports what Render actually produced.
type Result struct {
	Strategy  Strategy `json:"strategy"`
	Requested Format   `json:"requested_format"`
	Format    Format   `json:"format"`
	Path      string   `json:"path"`
	Files     []string `json:"files"`
	Frames    int      `json:"frames"`
	Reason    string   `json:"reason,omitempty"`
}

// Render draws w and writes it to opts.Output using the strategy chosen by
// Plan. If the animation cannot be encoded, the static charts are written
// instead and the Result says so.
func Render(ctx context.Context, w *model.WidePanel, opts Options, caps Capabilities) (*Result, error) {
	opts = opts.withDefaults()
	plan, err := Plan(w, opts, caps)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(opts.Output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	if plan.Strategy == StrategyAnimated {
		res, err := renderAnimated(ctx, w, opts, plan, caps)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("animation failed, writing static charts", "error", err)
		plan.Strategy = StrategyStatic
		plan.Reason = "animation failed: " + err.Error()
	}
	return renderStatic(w, opts, plan)
}

func newEncoder(ctx context.Context, plan RenderPlan, opts Options, caps Capabilities) (Encoder, string, error) {
	switch plan.Format {
	case FormatGIF:
		path := opts.Output + ".gif"
		return newGIFEncoder(path, opts.FPS), path, nil
	case FormatPNG:
		dir := opts.Output + "_frames"
		enc, err := newPNGEncoder(dir)
		return enc, dir, err
	case FormatMP4:
		path := opts.Output + ".mp4"
		enc, err := newFFmpegEncoder(ctx, caps.FFmpeg, path, opts.FPS)
		return enc, path, err
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, plan.Format)
}

func renderAnimated(ctx context.Context, w *model.WidePanel, opts Options, plan RenderPlan, caps Capabilities) (*Result, error) {
	frames, err := BuildFrames(w, opts)
	if err != nil {
		return nil, err
	}
	renderer, err := NewChartRenderer(opts.Style, opts.Bars)
	if err != nil {
		return nil, err
	}
	enc, path, err := newEncoder(ctx, plan, opts, caps)
	if err != nil {
		return nil, err
	}
	abort := func() {
		if a, ok := enc.(interface{ Abort() }); ok {
			a.Abort()
		}
	}

	if err := drawFrames(ctx, renderer, frames, opts.Workers, enc); err != nil {
		abort()
		return nil, err
	}
	if g, ok := enc.(*gifEncoder); ok {
		g.hold(opts.FPS)
	}
	if err := enc.Close(); err != nil {
		abort()
		return nil, err
	}

	slog.Info("animation written", "path", path, "frames", len(frames), "format", plan.Format)
	return &Result{
		Strategy:  StrategyAnimated,
		Requested: plan.Requested,
		Format:    plan.Format,
		Path:      path,
		Files:     enc.Files(),
		Frames:    len(frames),
		Reason:    plan.Reason,
	}, nil
}

// drawFrames renders frames with a bounded pool of workers, one chunk at a
// time, and feeds the images to enc in frame order.
func drawFrames(ctx context.Context, r FrameRenderer, frames []Frame, workers int, enc Encoder) error {
	chunk := workers * 4
	for start := 0; start < len(frames); start += chunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+chunk, len(frames))
		images := make([]*image.RGBA, end-start)
		errs := make([]error, end-start)

		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					images[i], errs[i] = r.RenderFrame(frames[start+i])
				}
			}()
		}
		for i := range images {
			jobs <- i
		}
		close(jobs)
		wg.Wait()

		for i, img := range images {
			if errs[i] != nil {
				return fmt.Errorf("frame %d: %w", start+i, errs[i])
			}
			if err := enc.Add(img); err != nil {
				return err
			}
		}
	}
	return nil
}

func renderStatic(w *model.WidePanel, opts Options, plan RenderPlan) (*Result, error) {
	keys, err := KeyFrames(w, opts)
	if err != nil {
		return nil, err
	}
	dir := opts.Output + "_static_charts"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart dir: %w", err)
	}

	sr := NewStaticRenderer(opts.Style)
	var files []string
	var charts []image.Image
	for _, f := range keys {
		var buf bytes.Buffer
		if err := sr.RenderPeriod(f, &buf); err != nil {
			return nil, fmt.Errorf("chart for %s: %w", f.Label, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("chart_%s.png", f.Label))
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return nil, err
		}
		files = append(files, path)

		img, err := png.Decode(&buf)
		if err != nil {
			return nil, fmt.Errorf("decode chart %s: %w", f.Label, err)
		}
		charts = append(charts, img)
	}
	if len(files) == 0 {
		return nil, ErrNoFrames
	}

	res := &Result{
		Strategy:  StrategyStatic,
		Requested: plan.Requested,
		Format:    FormatPNG,
		Path:      files[0],
		Files:     files,
		Frames:    len(files),
		Reason:    plan.Reason,
	}
	if len(charts) > 1 {
		path := opts.Output + ".gif"
		enc := newGIFEncoder(path, 1)
		for _, img := range charts {
			if err := enc.Add(img); err != nil {
				return nil, err
			}
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("combine static charts: %w", err)
		}
		res.Format = FormatGIF
		res.Path = path
		res.Files = append(res.Files, path)
	}
	slog.Info("static charts written", "dir", dir, "charts", len(files))
	return res, nil
}
