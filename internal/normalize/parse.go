package normalize

import (
	"fmt"
	"sort"
	"strings"

	"go-bar-race/internal/model"
	"go-bar-race/pkg/utils"
)

// RequiredColumns is the positional contract: period, entity, value.
const RequiredColumns = 3

// FormatError reports a structurally invalid table. It is the only fatal
// normalizer error.
type FormatError struct {
	Columns int
	Reason  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error: %s (got %d columns, need at least %d)", e.Reason, e.Columns, RequiredColumns)
}

// DuplicatePolicy decides which value survives when an entity reports the
// same period more than once.
type DuplicatePolicy string

const (
	KeepLast  DuplicatePolicy = "last"
	KeepFirst DuplicatePolicy = "first"
	Sum       DuplicatePolicy = "sum"
)

// ParseDuplicatePolicy maps a name to a policy; "" means KeepLast.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeepLast:
		return KeepLast, nil
	case KeepFirst:
		return KeepFirst, nil
	case Sum:
		return Sum, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy: %q", s)
	}
}

// ParseStats counts what Parse read, skipped and collapsed.
type ParseStats struct {
	RowsRead    int
	RowsSkipped int
	Duplicates  int
}

// Parse coerces the first three columns of every row into observations and
// groups them into a panel. Rows with an unparseable period or value, or an
// empty entity, are skipped silently and counted in the stats.
func Parse(t *model.Table, policy DuplicatePolicy) (*model.Panel, ParseStats, error) {
	var stats ParseStats
	if width := t.Width(); width < RequiredColumns {
		return nil, stats, &FormatError{Columns: width, Reason: "insufficient columns"}
	}
	if policy == "" {
		policy = KeepLast
	}

	panel := model.NewPanel()
	index := make(map[string]map[int]int) // entity -> period -> position in series
	periods := make(map[int]struct{})

	for _, row := range t.Rows {
		stats.RowsRead++
		if len(row) < RequiredColumns {
			stats.RowsSkipped++
			continue
		}
		period, ok := utils.ParsePeriod(row[0])
		if !ok {
			stats.RowsSkipped++
			continue
		}
		value, ok := utils.ParseNumber(row[2])
		if !ok {
			stats.RowsSkipped++
			continue
		}
		entity := strings.TrimSpace(row[1])
		if entity == "" {
			stats.RowsSkipped++
			continue
		}

		s, ok := panel.Series[entity]
		if !ok {
			s = &model.Series{Entity: entity}
			panel.Series[entity] = s
			panel.Entities = append(panel.Entities, entity)
			index[entity] = make(map[int]int)
		}
		if pos, dup := index[entity][period]; dup {
			stats.Duplicates++
			switch policy {
			case KeepLast:
				s.Observations[pos].Value = value
			case Sum:
				s.Observations[pos].Value += value
			}
			continue
		}
		index[entity][period] = len(s.Observations)
		s.Observations = append(s.Observations, model.Observation{Entity: entity, Period: period, Value: value})
		periods[period] = struct{}{}
	}

	for _, s := range panel.Series {
		sort.SliceStable(s.Observations, func(i, j int) bool {
			return s.Observations[i].Period < s.Observations[j].Period
		})
	}
	panel.Periods = make([]int, 0, len(periods))
	for p := range periods {
		panel.Periods = append(panel.Periods, p)
	}
	sort.Ints(panel.Periods)

	return panel, stats, nil
}
