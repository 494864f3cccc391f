package pipeline

import (
	"sort"

	"go-bar-race/internal/model"
)

// Rankings builds the per-period leaderboard of w: rank, share of the
// period total, and rank change against the previous period (positive when
// the entity climbed). Ties keep column order.
func Rankings(w *model.WidePanel) []model.Ranking {
	rows, cols := w.Shape()
	out := make([]model.Ranking, 0, rows*cols)
	prev := make([]int, cols)

	for i, period := range w.Periods {
		values := w.Values[i]
		order := make([]int, cols)
		for j := range order {
			order[j] = j
		}
		sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

		total := 0.0
		for _, v := range values {
			total += v
		}

		current := make([]int, cols)
		for r, col := range order {
			rank := r + 1
			current[col] = rank
			share := 0.0
			if total != 0 {
				share = values[col] / total
			}
			change := 0
			if i > 0 {
				change = prev[col] - rank
			}
			out = append(out, model.Ranking{
				Period:     period,
				Rank:       rank,
				Entity:     w.Entities[col],
				Value:      values[col],
				Share:      share,
				RankChange: change,
			})
		}
		prev = current
	}
	return out
}
