package normalize

import "go-bar-race/internal/model"

// ToWidePanel densifies a panel into a period x entity grid. Every period of
// the panel is a row, every entity a column, and absent cells are zero.
func ToWidePanel(p *model.Panel) *model.WidePanel {
	w := &model.WidePanel{
		Periods:  append([]int(nil), p.Periods...),
		Entities: append([]string(nil), p.Entities...),
		Values:   make([][]float64, len(p.Periods)),
	}
	for i, period := range p.Periods {
		row := make([]float64, len(p.Entities))
		for j, e := range p.Entities {
			if s := p.Series[e]; s != nil {
				if v, ok := s.At(period); ok {
					row[j] = v
				}
			}
		}
		w.Values[i] = row
	}
	return w
}
