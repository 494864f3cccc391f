package render

import (
	"fmt"
	"image/color"
	"sort"
	"strconv"
)

type colormap struct {
	anchors     []string
	qualitative bool
}

var colormaps = map[string]colormap{
	"viridis": {anchors: []string{"#440154", "#3b528b", "#21918c", "#5ec962", "#fde725"}},
	"plasma":  {anchors: []string{"#0d0887", "#7e03a8", "#cc4778", "#f89540", "#f0f921"}},
	"inferno": {anchors: []string{"#000004", "#57106e", "#bc3754", "#f98e09", "#fcffa4"}},
	"magma":   {anchors: []string{"#000004", "#51127c", "#b73779", "#fc8961", "#fcfdbf"}},
	"cividis": {anchors: []string{"#00204d", "#414d6b", "#7c7b78", "#bcaf6f", "#ffea46"}},
	"tab10": {qualitative: true, anchors: []string{
		"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
		"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
	}},
	"tab20": {qualitative: true, anchors: []string{
		"#1f77b4", "#aec7e8", "#ff7f0e", "#ffbb78", "#2ca02c", "#98df8a", "#d62728", "#ff9896",
		"#9467bd", "#c5b0d5", "#8c564b", "#c49c94", "#e377c2", "#f7b6d2", "#7f7f7f", "#c7c7c7",
		"#bcbd22", "#dbdb8d", "#17becf", "#9edae5",
	}},
}

// Colormaps lists the supported colormap names.
func Colormaps() []string {
	names := make([]string, 0, len(colormaps))
	for n := range colormaps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Palette returns n colours from the named colormap. Sequential maps are
// sampled evenly over [0, 0.8] so the lightest end stays readable on white;
// qualitative maps cycle.
func Palette(name string, n int) ([]color.RGBA, error) {
	cm, ok := colormaps[name]
	if !ok {
		return nil, fmt.Errorf("unknown colormap: %q", name)
	}
	anchors := make([]color.RGBA, len(cm.anchors))
	for i, h := range cm.anchors {
		anchors[i] = hexColor(h)
	}

	out := make([]color.RGBA, n)
	for i := range out {
		if cm.qualitative {
			out[i] = anchors[i%len(anchors)]
			continue
		}
		pos := 0.0
		if n > 1 {
			pos = 0.8 * float64(i) / float64(n-1)
		}
		out[i] = sample(anchors, pos)
	}
	return out, nil
}

// sample linearly interpolates the anchor list at pos in [0, 1].
func sample(anchors []color.RGBA, pos float64) color.RGBA {
	if len(anchors) == 1 || pos <= 0 {
		return anchors[0]
	}
	if pos >= 1 {
		return anchors[len(anchors)-1]
	}
	x := pos * float64(len(anchors)-1)
	i := int(x)
	f := x - float64(i)
	a, b := anchors[i], anchors[i+1]
	mix := func(p, q uint8) uint8 {
		return uint8(float64(p) + (float64(q)-float64(p))*f + 0.5)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}

func hexColor(h string) color.RGBA {
	v, _ := strconv.ParseUint(h[1:], 16, 32)
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
