package normalize

import (
	"sort"

	"go-bar-race/internal/model"
)

// SelectTopEntities returns up to n entities with the largest value at the
// reference period, largest first. A nil ref means the latest period in the
// panel. Ties keep input order. Entities without a value at the reference
// period are never selected.
func SelectTopEntities(p *model.Panel, n int, ref *int) []string {
	if n <= 0 {
		return nil
	}
	reference, ok := referencePeriod(p, ref)
	if !ok {
		return nil
	}

	type candidate struct {
		entity string
		value  float64
	}
	var candidates []candidate
	for _, e := range p.Entities {
		if v, ok := p.Series[e].At(reference); ok {
			candidates = append(candidates, candidate{entity: e, value: v})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].value > candidates[j].value
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.entity
	}
	return out
}

func referencePeriod(p *model.Panel, ref *int) (int, bool) {
	if ref != nil {
		return *ref, true
	}
	return p.LatestPeriod()
}
