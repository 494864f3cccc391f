package render

import (
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// StaticRenderer draws one plain bar chart per period with go-chart. It is
// the fallback when an animation cannot be produced.
type StaticRenderer struct {
	style Style
}

func NewStaticRenderer(style Style) *StaticRenderer {
	return &StaticRenderer{style: style}
}

// RenderPeriod writes f as a PNG chart to w.
func (r *StaticRenderer) RenderPeriod(f Frame, w io.Writer) error {
	if len(f.Bars) == 0 {
		return ErrNoFrames
	}
	bars := make([]chart.Value, 0, len(f.Bars))
	lo, hi := 0.0, 0.0
	for _, b := range f.Bars {
		lo = math.Min(lo, b.Value)
		hi = math.Max(hi, b.Value)
		c := drawing.Color{R: b.Color.R, G: b.Color.G, B: b.Color.B, A: 0xff}
		bars = append(bars, chart.Value{
			Label: shorten(b.Entity, 14),
			Value: b.Value,
			Style: chart.Style{FillColor: c, StrokeColor: c},
		})
	}

	barWidth := (r.style.Width - 120) / (2 * len(bars))
	if barWidth < 8 {
		barWidth = 8
	}
	title := fmt.Sprintf("%s (%s)", r.style.Title, f.Label)
	if r.style.Title == "" {
		title = f.Label
	}
	graph := chart.BarChart{
		Title:      title,
		Width:      r.style.Width,
		Height:     r.style.Height,
		BarWidth:   barWidth,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		// Bars start at zero; equal or all-zero values still need a non-empty range.
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: math.Max(hi, lo+1)},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return FormatValue(f, "")
				}
				return ""
			},
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, w)
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
