package render

import (
	"fmt"
	"image"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	periodColor = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}
	gridColor   = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
)

// FrameRenderer turns a frame into a raster image.
type FrameRenderer interface {
	RenderFrame(f Frame) (*image.RGBA, error)
}

// ChartRenderer draws horizontal bar frames with gonum/plot. It holds no
// per-frame state and is safe for concurrent use.
type ChartRenderer struct {
	style Style
	bars  int
	typo  typography
}

// NewChartRenderer loads the style's font and returns a renderer for
// frames with up to bars visible bars.
func NewChartRenderer(style Style, bars int) (*ChartRenderer, error) {
	typo, err := loadTypography(style.FontFile)
	if err != nil {
		return nil, err
	}
	if bars <= 0 {
		bars = 10
	}
	return &ChartRenderer{style: style, bars: bars, typo: typo}, nil
}

type valueTicks struct{}

func (valueTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = FormatValue(ticks[i].Value, "")
		}
	}
	return ticks
}

// barWidth approximates the thickness of one bar slot in points.
func (r *ChartRenderer) barWidth() vg.Length {
	heightPt := float64(r.style.Height) / float64(r.style.DPI) * 72
	slot := 0.75 * heightPt / float64(r.bars)
	return vg.Length(0.8 * slot)
}

func (r *ChartRenderer) label(b Bar) string {
	s := b.Entity
	if r.style.ShowValues {
		s += "  " + FormatValue(b.Value, r.style.Unit)
	}
	if r.style.ShowRankChanges {
		if d := FormatRankChange(b.RankDelta); d != "" {
			s += " (" + d + ")"
		}
	}
	return s
}

func (r *ChartRenderer) RenderFrame(f Frame) (*image.RGBA, error) {
	p := plot.New()
	p.Title.Text = r.style.Title
	if r.style.Subtitle != "" {
		p.Title.Text += "\n" + r.style.Subtitle
	}
	for _, s := range []*text.Style{&p.Title.TextStyle, &p.X.Label.TextStyle, &p.X.Tick.Label, &p.Y.Tick.Label} {
		r.typo.apply(s)
	}
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = r.style.Unit
	p.X.Tick.Marker = valueTicks{}
	p.HideY()

	if r.style.ShowGrid {
		g := plotter.NewGrid()
		g.Vertical.Color = gridColor
		g.Horizontal.Width = 0
		p.Add(g)
	}

	xmax := 1.0
	xys := make(plotter.XYs, 0, len(f.Bars))
	names := make([]string, 0, len(f.Bars))
	for _, b := range f.Bars {
		y := float64(r.bars-1) - b.Position
		bc, err := plotter.NewBarChart(plotter.Values{b.Value}, r.barWidth())
		if err != nil {
			return nil, fmt.Errorf("bar %s: %w", b.Entity, err)
		}
		bc.Horizontal = true
		bc.XMin = y
		bc.Color = b.Color
		bc.LineStyle.Width = 0
		p.Add(bc)

		if b.Value > xmax {
			xmax = b.Value
		}
		xys = append(xys, plotter.XY{X: b.Value, Y: y})
		names = append(names, r.label(b))
	}
	xlim := xmax * 1.25
	if len(xys) > 0 {
		labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: names})
		if err != nil {
			return nil, fmt.Errorf("labels: %w", err)
		}
		for i := range labels.TextStyle {
			r.typo.apply(&labels.TextStyle[i])
			labels.TextStyle[i].Font.Size = vg.Points(10)
			labels.TextStyle[i].XAlign = draw.XLeft
			labels.TextStyle[i].YAlign = draw.YCenter
		}
		labels.Offset = vg.Point{X: vg.Points(4)}
		p.Add(labels)
	}

	period, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{{X: xlim * 0.98, Y: -0.4}},
		Labels: []string{f.Label},
	})
	if err != nil {
		return nil, fmt.Errorf("period label: %w", err)
	}
	r.typo.apply(&period.TextStyle[0])
	period.TextStyle[0].Font.Size = vg.Points(36)
	period.TextStyle[0].Color = periodColor
	period.TextStyle[0].XAlign = draw.XRight
	period.TextStyle[0].YAlign = draw.YBottom
	p.Add(period)

	// Add widens the axes to the data range, so pin them again.
	p.X.Min, p.X.Max = 0, xlim
	p.Y.Min, p.Y.Max = -0.6, float64(r.bars)-0.4

	img := image.NewRGBA(image.Rect(0, 0, r.style.Width, r.style.Height))
	c := vgimg.NewWith(vgimg.UseImage(img), vgimg.UseDPI(r.style.DPI))
	p.Draw(draw.New(c))
	drawCaption(img, r.style.Watermark)
	return img, nil
}
