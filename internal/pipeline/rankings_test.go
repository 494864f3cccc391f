package pipeline

import (
	"math"
	"testing"

	"go-bar-race/internal/model"
)

func TestRankings(t *testing.T) {
	w := &model.WidePanel{
		Periods:  []int{2020, 2021},
		Entities: []string{"A", "B", "C"},
		Values:   [][]float64{{5, 3, 2}, {1, 6, 3}},
	}

	got := Rankings(w)
	if len(got) != 6 {
		t.Fatalf("Expected 6 rankings, got %d", len(got))
	}

	first := got[0]
	if first.Period != 2020 || first.Rank != 1 || first.Entity != "A" || math.Abs(first.Share-0.5) > 1e-9 || first.RankChange != 0 {
		t.Errorf("Unexpected first ranking %+v", first)
	}

	want := []struct {
		entity string
		change int
	}{{"B", 1}, {"C", 1}, {"A", -2}}
	for i, w := range want {
		r := got[3+i]
		if r.Entity != w.entity || r.Rank != i+1 || r.RankChange != w.change {
			t.Errorf("2021 rank %d: expected %s (%+d), got %+v", i+1, w.entity, w.change, r)
		}
	}
}

func TestRankings_TiesAndZeroTotal(t *testing.T) {
	w := &model.WidePanel{
		Periods:  []int{2020},
		Entities: []string{"A", "B"},
		Values:   [][]float64{{0, 0}},
	}

	got := Rankings(w)
	if got[0].Entity != "A" || got[1].Entity != "B" {
		t.Errorf("Expected ties to keep column order, got %+v", got)
	}
	if got[0].Share != 0 {
		t.Errorf("Expected zero share for zero total, got %v", got[0].Share)
	}
}
