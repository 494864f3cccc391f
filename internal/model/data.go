package model

import "sort"

// Table is the raw positional input: a header row plus data rows as read
// from a spreadsheet or delimited file. Nothing is coerced yet.
type Table struct {
	Source string     `json:"source"`
	Sheet  string     `json:"sheet,omitempty"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Width returns the number of columns the table declares. The header wins;
// a headerless table falls back to its widest row.
func (t *Table) Width() int {
	if len(t.Header) > 0 {
		return len(t.Header)
	}
	width := 0
	for _, row := range t.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// Observation is one coerced (entity, period, value) row.
type Observation struct {
	Entity string  `json:"entity"`
	Period int     `json:"period"`
	Value  float64 `json:"value"`
}

// Series holds the observations of one entity ordered by period, with at
// most one observation per period.
type Series struct {
	Entity       string        `json:"entity"`
	Observations []Observation `json:"observations"`
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.Observations)
}

// Values returns the observation values in period order.
func (s *Series) Values() []float64 {
	values := make([]float64, len(s.Observations))
	for i, obs := range s.Observations {
		values[i] = obs.Value
	}
	return values
}

// At returns the value observed at period.
func (s *Series) At(period int) (float64, bool) {
	i := sort.Search(len(s.Observations), func(i int) bool {
		return s.Observations[i].Period >= period
	})
	if i < len(s.Observations) && s.Observations[i].Period == period {
		return s.Observations[i].Value, true
	}
	return 0, false
}

// Clone returns a deep copy of the series.
func (s *Series) Clone() *Series {
	obs := make([]Observation, len(s.Observations))
	copy(obs, s.Observations)
	return &Series{Entity: s.Entity, Observations: obs}
}

// Panel is the set of per-entity series plus the global, ascending period
// set. Entities keep first-seen input order.
type Panel struct {
	Entities []string           `json:"entities"`
	Periods  []int              `json:"periods"`
	Series   map[string]*Series `json:"series"`
}

// NewPanel returns an empty panel.
func NewPanel() *Panel {
	return &Panel{Series: make(map[string]*Series)}
}

// Get returns the series of entity, or nil.
func (p *Panel) Get(entity string) *Series {
	return p.Series[entity]
}

// ObservationCount returns the number of observations across all series.
func (p *Panel) ObservationCount() int {
	n := 0
	for _, s := range p.Series {
		n += s.Len()
	}
	return n
}

// LatestPeriod returns the largest period in the panel.
func (p *Panel) LatestPeriod() (int, bool) {
	if len(p.Periods) == 0 {
		return 0, false
	}
	return p.Periods[len(p.Periods)-1], true
}

// Restrict returns a panel holding only the given entities, in the given
// order. The global period set is kept as-is.
func (p *Panel) Restrict(entities []string) *Panel {
	out := NewPanel()
	out.Periods = append([]int(nil), p.Periods...)
	for _, e := range entities {
		s, ok := p.Series[e]
		if !ok {
			continue
		}
		out.Entities = append(out.Entities, e)
		out.Series[e] = s.Clone()
	}
	return out
}

// WidePanel is the dense period x entity grid handed to rendering. Absent
// cells hold zero.
type WidePanel struct {
	Periods  []int       `json:"periods"`
	Entities []string    `json:"entities"`
	Values   [][]float64 `json:"values"` // Values[row][column]
}

// Shape returns (rows, columns).
func (w *WidePanel) Shape() (int, int) {
	return len(w.Periods), len(w.Entities)
}

// At returns the cell for (period, entity).
func (w *WidePanel) At(period int, entity string) (float64, bool) {
	row, col := -1, -1
	for i, p := range w.Periods {
		if p == period {
			row = i
			break
		}
	}
	for j, e := range w.Entities {
		if e == entity {
			col = j
			break
		}
	}
	if row < 0 || col < 0 {
		return 0, false
	}
	return w.Values[row][col], true
}

// Row returns the values of period index i keyed by entity.
func (w *WidePanel) Row(i int) map[string]float64 {
	out := make(map[string]float64, len(w.Entities))
	for j, e := range w.Entities {
		out[e] = w.Values[i][j]
	}
	return out
}

// Ranking is one entity's standing within a period.
type Ranking struct {
	Period     int     `json:"period"`
	Rank       int     `json:"rank"`
	Entity     string  `json:"entity"`
	Value      float64 `json:"value"`
	Share      float64 `json:"share"`
	RankChange int     `json:"rank_change"`
}
