package render

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Format is an output container.
type Format string

const (
	FormatGIF Format = "gif"
	FormatMP4 Format = "mp4"
	FormatPNG Format = "png" // numbered PNG sequence in a directory
)

// ParseFormat maps user input ("GIF", "png-sequence", ...) to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "gif":
		return FormatGIF, nil
	case "mp4", "video":
		return FormatMP4, nil
	case "png", "png-sequence", "frames":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

var (
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrNoFrames          = errors.New("nothing to render: panel has no periods or entities")
)

// Style is the complete visual configuration of a chart. It is passed to
// the renderers at call time.
type Style struct {
	Title           string
	Subtitle        string
	Unit            string
	Width           int // pixels
	Height          int // pixels
	DPI             int
	Colormap        string
	FontFile        string // optional TTF/OTF used for every label
	ShowValues      bool
	ShowGrid        bool
	ShowRankChanges bool
	Watermark       string
}

// DefaultStyle returns the style used when a field is left zero.
func DefaultStyle() Style {
	return Style{
		Title:           "Ranking",
		Width:           1280,
		Height:          720,
		DPI:             100,
		Colormap:        "viridis",
		ShowValues:      true,
		ShowGrid:        true,
		ShowRankChanges: true,
	}
}

// Options configures one render.
type Options struct {
	Format       Format
	Output       string // base path without extension
	FPS          int
	PeriodLength time.Duration // time spent moving from one period to the next
	Transition   string
	Bars         int // visible bars per frame
	Workers      int
	Style        Style
}

// withDefaults fills zero fields.
func (o Options) withDefaults() Options {
	d := DefaultStyle()
	if o.Format == "" {
		o.Format = FormatGIF
	}
	if o.Output == "" {
		o.Output = "race"
	}
	if o.FPS <= 0 {
		o.FPS = 10
	}
	if o.PeriodLength <= 0 {
		o.PeriodLength = time.Second
	}
	if o.Transition == "" {
		o.Transition = EaseInOutCubic
	}
	if o.Bars <= 0 {
		o.Bars = 10
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Style.Width <= 0 {
		o.Style.Width = d.Width
	}
	if o.Style.Height <= 0 {
		o.Style.Height = d.Height
	}
	if o.Style.DPI <= 0 {
		o.Style.DPI = d.DPI
	}
	if o.Style.Colormap == "" {
		o.Style.Colormap = d.Colormap
	}
	return o
}

// StepsPerPeriod is the number of frames spent on each period transition.
func (o Options) StepsPerPeriod() int {
	steps := int(float64(o.FPS)*o.PeriodLength.Seconds() + 0.5)
	if steps < 1 {
		return 1
	}
	return steps
}
