package render

import (
	"fmt"
	"math"
	"sort"
)

// Transition names.
const (
	Linear         = "linear"
	EaseInOutCubic = "ease_in_out_cubic"
	EaseInOutSine  = "ease_in_out_sine"
	EaseInCubic    = "ease_in_cubic"
	EaseOutCubic   = "ease_out_cubic"
)

// EasingFunc maps progress t in [0,1] to eased progress in [0,1].
type EasingFunc func(t float64) float64

var easings = map[string]EasingFunc{
	Linear: func(t float64) float64 { return t },
	EaseInOutCubic: func(t float64) float64 {
		if t < 0.5 {
			return 4 * t * t * t
		}
		return 1 - math.Pow(-2*t+2, 3)/2
	},
	EaseInOutSine: func(t float64) float64 {
		return -(math.Cos(math.Pi*t) - 1) / 2
	},
	EaseInCubic: func(t float64) float64 { return t * t * t },
	EaseOutCubic: func(t float64) float64 {
		return 1 - math.Pow(1-t, 3)
	},
}

// Easing returns the named easing function.
func Easing(name string) (EasingFunc, error) {
	if name == "" {
		name = EaseInOutCubic
	}
	f, ok := easings[name]
	if !ok {
		return nil, fmt.Errorf("unknown transition: %q", name)
	}
	return f, nil
}

// Transitions lists the supported transition names.
func Transitions() []string {
	names := make([]string, 0, len(easings))
	for n := range easings {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
