// Package sample holds the GDP ranking table used for demos and tests.
package sample

import (
	"strconv"

	"go-bar-race/internal/model"
)

// Years covered by the sample.
var Years = []int{2005, 2010, 2015, 2020, 2024}

type entry struct {
	country string
	gdp     float64
}

// GDP in hundred-million USD, top ten countries per year.
var gdp = map[int][]entry{
	2005: {
		{"United States", 13094}, {"Japan", 4756}, {"Germany", 2866}, {"United Kingdom", 2511}, {"China", 2309},
		{"France", 2207}, {"Italy", 1856}, {"Canada", 1169}, {"Spain", 1159}, {"South Korea", 898},
	},
	2010: {
		{"United States", 14964}, {"China", 5812}, {"Japan", 5793}, {"Germany", 3310}, {"France", 2560},
		{"United Kingdom", 2246}, {"Brazil", 2088}, {"Italy", 2051}, {"India", 1729}, {"Russia", 1638},
	},
	2015: {
		{"United States", 18037}, {"China", 11226}, {"Japan", 4382}, {"Germany", 3365}, {"United Kingdom", 2863},
		{"France", 2420}, {"India", 2088}, {"Italy", 1826}, {"Brazil", 1801}, {"Canada", 1553},
	},
	2020: {
		{"United States", 21323}, {"China", 14688}, {"Japan", 5056}, {"Germany", 3888}, {"United Kingdom", 2698},
		{"India", 2675}, {"France", 2647}, {"Italy", 1897}, {"Canada", 1656}, {"South Korea", 1644},
	},
	2024: {
		{"United States", 28780}, {"China", 18530}, {"Germany", 4590}, {"Japan", 4110}, {"India", 3940},
		{"United Kingdom", 3500}, {"France", 3130}, {"Italy", 2330}, {"Brazil", 2330}, {"Canada", 2240},
	},
}

// Value returns the sample GDP of country in year.
func Value(year int, country string) (float64, bool) {
	for _, e := range gdp[year] {
		if e.country == country {
			return e.gdp, true
		}
	}
	return 0, false
}

// Table returns the sample as a long-format table: year, country, gdp.
func Table() *model.Table {
	t := &model.Table{
		Source: "sample",
		Header: []string{"year", "country", "gdp"},
	}
	for _, y := range Years {
		for _, e := range gdp[y] {
			t.Rows = append(t.Rows, []string{
				strconv.Itoa(y),
				e.country,
				strconv.FormatFloat(e.gdp, 'f', -1, 64),
			})
		}
	}
	return t
}
