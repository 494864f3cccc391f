package render

import (
	"fmt"
	"os/exec"

	"go-bar-race/internal/model"
)

// Strategy is how a panel ends up on disk.
type Strategy string

const (
	StrategyAnimated Strategy = "animated"
	StrategyStatic   Strategy = "static"
)

// Capabilities describes what the host can produce.
type Capabilities struct {
	FFmpeg string // path to ffmpeg, empty when unavailable
}

// DetectCapabilities probes the host for external encoders.
func DetectCapabilities() Capabilities {
	var c Capabilities
	if p, err := exec.LookPath("ffmpeg"); err == nil {
		c.FFmpeg = p
	}
	return c
}

// CanEncode reports whether f can be written on this host.
func (c Capabilities) CanEncode(f Format) bool {
	switch f {
	case FormatGIF, FormatPNG:
		return true
	case FormatMP4:
		return c.FFmpeg != ""
	}
	return false
}

// RenderPlan is the strategy chosen before any frame is drawn.
type RenderPlan struct {
	Strategy  Strategy
	Requested Format
	Format    Format
	Reason    string
}

// Plan picks the rendering strategy and effective format for w.
func Plan(w *model.WidePanel, opts Options, caps Capabilities) (RenderPlan, error) {
	opts = opts.withDefaults()
	plan := RenderPlan{Strategy: StrategyAnimated, Requested: opts.Format, Format: opts.Format}

	switch opts.Format {
	case FormatGIF, FormatMP4, FormatPNG:
	default:
		return plan, fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}
	rows, cols := w.Shape()
	if rows == 0 || cols == 0 {
		return plan, ErrNoFrames
	}
	if !caps.CanEncode(plan.Format) {
		plan.Format = FormatGIF
		plan.Reason = fmt.Sprintf("%s encoder unavailable (ffmpeg not found), writing gif", opts.Format)
	}
	if rows == 1 {
		plan.Strategy = StrategyStatic
		plan.Reason = "single period, nothing to animate"
	}
	return plan, nil
}
