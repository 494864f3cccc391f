package normalize

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"go-bar-race/internal/model"
	"go-bar-race/internal/sample"
)

func series(entity string, periods []int, values []float64) *model.Series {
	s := &model.Series{Entity: entity}
	for i, p := range periods {
		s.Observations = append(s.Observations, model.Observation{Entity: entity, Period: p, Value: values[i]})
	}
	return s
}

func table(rows ...[]string) *model.Table {
	return &model.Table{Header: []string{"year", "country", "gdp"}, Rows: rows}
}

func TestParse_InsufficientColumns(t *testing.T) {
	tbl := &model.Table{Header: []string{"year", "gdp"}, Rows: [][]string{{"2020", "1"}}}

	_, _, err := Parse(tbl, KeepLast)

	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("Expected FormatError, got %v", err)
	}
	if fe.Columns != 2 || fe.Reason != "insufficient columns" {
		t.Errorf("Unexpected FormatError %+v", fe)
	}
}

func TestParse_SkipsUncoercibleRows(t *testing.T) {
	tbl := table(
		[]string{"2020", "A", "10"},
		[]string{"n/a", "A", "11"},
		[]string{"2021", "A", "twelve"},
		[]string{"2021", "", "12"},
		[]string{"2021"},
		[]string{"2021.0", "B", "5"},
	)

	panel, stats, err := Parse(tbl, KeepLast)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if stats.RowsRead != 6 || stats.RowsSkipped != 4 {
		t.Errorf("Expected 6 read / 4 skipped, got %+v", stats)
	}
	if panel.ObservationCount() != 2 {
		t.Errorf("Expected 2 observations, got %d", panel.ObservationCount())
	}
	if len(panel.Periods) != 2 || panel.Periods[0] != 2020 || panel.Periods[1] != 2021 {
		t.Errorf("Unexpected periods %v", panel.Periods)
	}
}

func TestParse_HeaderTextIsIgnored(t *testing.T) {
	tbl := &model.Table{
		Header: []string{"gdp", "year", "country", "extra"},
		Rows:   [][]string{{"2001", "X", "7", "ignored"}},
	}

	panel, _, err := Parse(tbl, KeepLast)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v, ok := panel.Get("X").At(2001); !ok || v != 7 {
		t.Errorf("Expected X@2001 = 7, got %v (%v)", v, ok)
	}
}

func TestParse_DuplicatePolicies(t *testing.T) {
	tbl := table(
		[]string{"2020", "A", "1"},
		[]string{"2020", "A", "2"},
		[]string{"2020", "A", "4"},
	)
	tests := []struct {
		policy DuplicatePolicy
		want   float64
	}{
		{KeepLast, 4},
		{KeepFirst, 1},
		{Sum, 7},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			panel, stats, err := Parse(tbl, tt.policy)
			if err != nil {
				t.Fatal(err)
			}
			if stats.Duplicates != 2 {
				t.Errorf("Expected 2 duplicates, got %d", stats.Duplicates)
			}
			if got, _ := panel.Get("A").At(2020); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			if panel.Get("A").Len() != 1 {
				t.Errorf("Expected one observation per period")
			}
		})
	}
}

func TestParseDuplicatePolicy(t *testing.T) {
	if p, err := ParseDuplicatePolicy(""); err != nil || p != KeepLast {
		t.Errorf("Expected default KeepLast, got %v %v", p, err)
	}
	if p, err := ParseDuplicatePolicy("SUM"); err != nil || p != Sum {
		t.Errorf("Expected Sum, got %v %v", p, err)
	}
	if _, err := ParseDuplicatePolicy("mean"); err == nil {
		t.Error("Expected error for unknown policy")
	}
}

func TestSelectTopEntities(t *testing.T) {
	tbl := table(
		[]string{"2020", "A", "5"},
		[]string{"2020", "B", "9"},
		[]string{"2021", "A", "10"},
		[]string{"2021", "B", "3"},
		[]string{"2021", "C", "10"},
		[]string{"2021", "D", "1"},
	)
	panel, _, _ := Parse(tbl, KeepLast)

	got := SelectTopEntities(panel, 2, nil)
	if len(got) != 2 || got[0] != "A" || got[1] != "C" {
		t.Errorf("Expected [A C] (tie kept in input order), got %v", got)
	}

	ref := 2020
	got = SelectTopEntities(panel, 5, &ref)
	if len(got) != 2 || got[0] != "B" || got[1] != "A" {
		t.Errorf("Expected only entities defined at 2020, got %v", got)
	}

	if got := SelectTopEntities(panel, 0, nil); len(got) != 0 {
		t.Errorf("Expected no entities for n=0, got %v", got)
	}
}

func TestSelectTopEntities_DominatesUnselected(t *testing.T) {
	panel, _, _ := Parse(sample.Table(), KeepLast)
	selected := SelectTopEntities(panel, 4, nil)
	if len(selected) > 4 {
		t.Fatalf("Expected at most 4, got %d", len(selected))
	}

	ref, _ := panel.LatestPeriod()
	minSelected := math.Inf(1)
	in := map[string]bool{}
	for _, e := range selected {
		in[e] = true
		v, ok := panel.Get(e).At(ref)
		if !ok {
			t.Fatalf("Selected %s has no value at %d", e, ref)
		}
		minSelected = math.Min(minSelected, v)
	}
	for _, e := range panel.Entities {
		if in[e] {
			continue
		}
		if v, ok := panel.Get(e).At(ref); ok && v > minSelected {
			t.Errorf("Unselected %s (%v) beats a selected entity (%v)", e, v, minSelected)
		}
	}
}

func TestDetectOutliers_ShortSeriesNeverFlagged(t *testing.T) {
	s := series("A", []int{1, 2, 3}, []float64{1, 1, 1e9})
	if got := DetectOutliers(s, 0.1); len(got) != 0 {
		t.Errorf("Expected no flags for 3 points, got %v", got)
	}
}

func TestDetectOutliers_ConstantSeriesNeverFlagged(t *testing.T) {
	s := series("A", []int{1, 2, 3, 4, 5, 6}, []float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.1})
	if got := DetectOutliers(s, 0); len(got) != 0 {
		t.Errorf("Expected no flags for a constant series, got %v", got)
	}
}

func TestDetectOutliers_FlagsSpike(t *testing.T) {
	periods := make([]int, 15)
	values := make([]float64, 15)
	for i := range periods {
		periods[i] = 2000 + i
		values[i] = 100 + float64(i%3)
	}
	values[7] = 10000

	got := DetectOutliers(series("A", periods, values), 0)
	if len(got) != 1 || got[0] != 2007 {
		t.Errorf("Expected [2007], got %v", got)
	}
}

func TestDetectOutliers_FourPointsTooFewForThreeSigma(t *testing.T) {
	s := series("A", []int{2000, 2001, 2002, 2003}, []float64{100, 100, 10000, 103})
	if got := DetectOutliers(s, 0); len(got) != 0 {
		t.Errorf("Expected no flags, got %v", got)
	}
}

func TestInterpolate_LinearBetweenNeighbours(t *testing.T) {
	s := series("A", []int{2000, 2001, 2002, 2003}, []float64{100, 100, 10000, 103})

	out := Interpolate(s, []int{2002})

	got, _ := out.At(2002)
	if math.Abs(got-101.5) > 1e-10 {
		t.Errorf("Expected 101.5, got %v", got)
	}
	if orig, _ := s.At(2002); orig != 10000 {
		t.Errorf("Input series must not be mutated, got %v", orig)
	}
}

func TestInterpolate_BoundaryLeftUnchanged(t *testing.T) {
	s := series("A", []int{0, 1, 2, 3}, []float64{9999, 10, 11, 12})

	out := Interpolate(s, []int{0})

	if got, _ := out.At(0); got != 9999 {
		t.Errorf("Expected boundary value 9999, got %v", got)
	}
}

func TestInterpolate_SkipsFlaggedNeighbours(t *testing.T) {
	s := series("A", []int{0, 1, 2, 4}, []float64{0, 50, 60, 40})

	out := Interpolate(s, []int{1, 2})

	want := map[int]float64{1: 10, 2: 20}
	for p, w := range want {
		if got, _ := out.At(p); math.Abs(got-w) > 1e-10 {
			t.Errorf("period %d: expected %v, got %v", p, w, got)
		}
	}
}

func TestToWidePanel_Rectangular(t *testing.T) {
	tbl := table(
		[]string{"2020", "A", "1"},
		[]string{"2021", "B", "2"},
		[]string{"2022", "A", "3"},
	)
	panel, _, _ := Parse(tbl, KeepLast)

	w := ToWidePanel(panel)

	rows, cols := w.Shape()
	if rows != 3 || cols != 2 {
		t.Fatalf("Expected 3x2, got %dx%d", rows, cols)
	}
	for i := range w.Periods {
		if len(w.Values[i]) != cols {
			t.Fatalf("Row %d has %d cells", i, len(w.Values[i]))
		}
	}
	if v, _ := w.At(2021, "A"); v != 0 {
		t.Errorf("Expected zero fill, got %v", v)
	}
	if v, _ := w.At(2022, "A"); v != 3 {
		t.Errorf("Expected 3, got %v", v)
	}
}

func TestNormalize_SampleEndToEnd(t *testing.T) {
	res, err := Normalize(sample.Table(), Options{TopN: 10})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	rows, cols := res.Wide.Shape()
	if rows != 5 {
		t.Errorf("Expected 5 rows, got %d", rows)
	}
	if cols != 10 {
		t.Errorf("Expected 10 columns, got %d", cols)
	}
	if res.Report.Outliers != 0 || len(res.Report.Corrections) != 0 {
		t.Errorf("Expected no outliers in the clean sample, got %+v", res.Report)
	}
	if res.Report.Reference != 2024 {
		t.Errorf("Expected reference 2024, got %d", res.Report.Reference)
	}
	for i, year := range res.Wide.Periods {
		for j, country := range res.Wide.Entities {
			want, ok := sample.Value(year, country)
			if !ok {
				want = 0
			}
			if got := res.Wide.Values[i][j]; got != want {
				t.Errorf("%s@%d: expected %v, got %v", country, year, want, got)
			}
		}
	}
	if res.Wide.Entities[0] != "United States" || res.Wide.Entities[1] != "China" {
		t.Errorf("Expected columns in ranking order, got %v", res.Wide.Entities)
	}
}

func TestNormalize_CorrectsAndReportsGaps(t *testing.T) {
	var rows [][]string
	for i := 0; i < 15; i++ {
		v := "100"
		if i == 7 {
			v = "100000"
		}
		rows = append(rows, []string{strconv.Itoa(2000 + i), "A", v})
	}
	res, err := Normalize(table(rows...), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Report.Corrections) != 1 {
		t.Fatalf("Expected one correction, got %+v", res.Report)
	}
	c := res.Report.Corrections[0]
	if c.Period != 2007 || c.Original != 100000 || c.Corrected != 100 {
		t.Errorf("Unexpected correction %+v", c)
	}
	if v, _ := res.Wide.At(2007, "A"); v != 100 {
		t.Errorf("Expected corrected cell 100, got %v", v)
	}

	rows[0][2] = "100000"
	rows[7][2] = "100"
	res, err = Normalize(table(rows...), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Report.Gaps) != 1 || res.Report.Gaps[0].Period != 2000 {
		t.Errorf("Expected a boundary gap at 2000, got %+v", res.Report)
	}
	if v, _ := res.Wide.At(2000, "A"); v != 100000 {
		t.Errorf("Expected boundary value kept, got %v", v)
	}
}
