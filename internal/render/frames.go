package render

import (
	"image/color"
	"sort"
	"strconv"
	"time"

	"go-bar-race/internal/model"
)

// Bar is one entity as drawn in a single frame.
type Bar struct {
	Entity    string
	Value     float64
	Position  float64 // 0 is the top slot; fractional while moving
	Rank      int     // 1-based rank at the labelled period
	RankDelta int     // positive when the entity climbed since the previous period
	Color     color.RGBA
}

// Frame is one image of the animation.
type Frame struct {
	Index    int
	Period   int
	Label    string
	Progress float64 // eased progress towards the next period, 0 on key frames
	Bars     []Bar   // sorted top to bottom
}

// rankPositions returns the 0-based rank slot of every column in row,
// highest value first. Ties keep column order.
func rankPositions(row []float64) []int {
	idx := make([]int, len(row))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return row[idx[a]] > row[idx[b]] })
	pos := make([]int, len(row))
	for slot, col := range idx {
		pos[col] = slot
	}
	return pos
}

// BuildFrames expands a wide panel into the full frame list: one key frame
// per period plus StepsPerPeriod-1 eased in-between frames per transition.
func BuildFrames(w *model.WidePanel, opts Options) ([]Frame, error) {
	opts = opts.withDefaults()
	rows, cols := w.Shape()
	if rows == 0 || cols == 0 {
		return nil, ErrNoFrames
	}
	ease, err := Easing(opts.Transition)
	if err != nil {
		return nil, err
	}
	colors, err := Palette(opts.Style.Colormap, cols)
	if err != nil {
		return nil, err
	}

	ranks := make([][]int, rows)
	for i := range w.Values {
		ranks[i] = rankPositions(w.Values[i])
	}
	delta := func(period, col int) int {
		if period == 0 {
			return 0
		}
		return ranks[period-1][col] - ranks[period][col]
	}

	build := func(from, to int, t float64) Frame {
		e := ease(t)
		label := from
		if t >= 0.5 {
			label = to
		}
		f := Frame{
			Period:   w.Periods[label],
			Label:    strconv.Itoa(w.Periods[label]),
			Progress: e,
		}
		for c, entity := range w.Entities {
			a, b := w.Values[from][c], w.Values[to][c]
			ra, rb := float64(ranks[from][c]), float64(ranks[to][c])
			pos := ra + (rb-ra)*e
			if pos >= float64(opts.Bars) {
				continue
			}
			f.Bars = append(f.Bars, Bar{
				Entity:    entity,
				Value:     a + (b-a)*e,
				Position:  pos,
				Rank:      ranks[label][c] + 1,
				RankDelta: delta(label, c),
				Color:     colors[c],
			})
		}
		sort.SliceStable(f.Bars, func(i, j int) bool { return f.Bars[i].Position < f.Bars[j].Position })
		return f
	}

	steps := opts.StepsPerPeriod()
	frames := make([]Frame, 0, (rows-1)*steps+1)
	for i := 0; i < rows-1; i++ {
		for k := 0; k < steps; k++ {
			frames = append(frames, build(i, i+1, float64(k)/float64(steps)))
		}
	}
	frames = append(frames, build(rows-1, rows-1, 0))
	for i := range frames {
		frames[i].Index = i
	}
	return frames, nil
}

// KeyFrames returns one frame per period with no tweening, as used by the
// static fallback.
func KeyFrames(w *model.WidePanel, opts Options) ([]Frame, error) {
	opts.FPS = 1
	opts.PeriodLength = time.Second
	return BuildFrames(w, opts)
}
