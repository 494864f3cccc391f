package normalize

import (
	"math"

	"go-bar-race/internal/model"
)

const (
	// DefaultThreshold is the outlier distance from the mean in standard
	// deviations.
	DefaultThreshold = 3.0
	// MinPoints is the series length at or below which nothing is flagged.
	MinPoints = 3
)

// DetectOutliers returns the periods whose value lies more than k sample
// standard deviations from the series mean. k <= 0 means DefaultThreshold.
// Series of MinPoints observations or fewer, and constant series, are never
// flagged.
func DetectOutliers(s *model.Series, k float64) []int {
	if s == nil || s.Len() <= MinPoints {
		return nil
	}
	if k <= 0 {
		k = DefaultThreshold
	}
	values := s.Values()
	m := mean(values)
	sd := stddev(values)
	if sd == 0 || math.IsNaN(sd) {
		return nil
	}

	var flagged []int
	for _, obs := range s.Observations {
		if math.Abs(obs.Value-m) > k*sd {
			flagged = append(flagged, obs.Period)
		}
	}
	return flagged
}

// Interpolate returns a copy of s where every flagged period is replaced by
// the linear interpolation between the nearest unflagged observations before
// and after it. A flagged period without a neighbour on both sides keeps its
// original value.
func Interpolate(s *model.Series, flagged []int) *model.Series {
	out, _ := interpolate(s, flagged)
	return out
}

// interpolate also returns the flagged periods it could not correct.
func interpolate(s *model.Series, flagged []int) (*model.Series, []int) {
	out := s.Clone()
	if len(flagged) == 0 {
		return out, nil
	}
	isFlagged := make(map[int]bool, len(flagged))
	for _, p := range flagged {
		isFlagged[p] = true
	}

	var gaps []int
	obs := s.Observations
	for i, o := range obs {
		if !isFlagged[o.Period] {
			continue
		}
		prev, next := -1, -1
		for j := i - 1; j >= 0; j-- {
			if !isFlagged[obs[j].Period] {
				prev = j
				break
			}
		}
		for j := i + 1; j < len(obs); j++ {
			if !isFlagged[obs[j].Period] {
				next = j
				break
			}
		}
		if prev < 0 || next < 0 {
			gaps = append(gaps, o.Period)
			continue
		}
		a, b := obs[prev], obs[next]
		out.Observations[i].Value = a.Value + (b.Value-a.Value)*float64(o.Period-a.Period)/float64(b.Period-a.Period)
	}
	return out, gaps
}
