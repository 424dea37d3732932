package model

import (
	"sort"
	"time"
)

// Column names of the wide result table besides the factor codes.
const (
	ColTotal         = "total"
	ColElectric      = "electric"
	ColCombustion    = "combustion"
	ColNewElectric   = "new_electric"
	ColNewCombustion = "new_combustion"
	ColRetired       = "retired"
	ColRemoved       = "removed"
	ColMeanAge       = "mean_age"
	ColRatio         = "ratio"
)

// Columns returns the canonical column order of a result table.
func Columns() []string {
	cols := make([]string, 0, 12)
	for _, f := range Factors() {
		cols = append(cols, f.String())
	}
	return append(cols, ColTotal, ColElectric, ColCombustion, ColNewElectric,
		ColNewCombustion, ColRetired, ColRemoved, ColMeanAge, ColRatio)
}

// FleetYearState is the fleet composition of one scenario at the end of a year.
type FleetYearState struct {
	Year          int     `json:"year"`
	Total         int     `json:"total"`
	Electric      int     `json:"electric"`
	Combustion    int     `json:"combustion"`
	NewElectric   int     `json:"new_electric"`
	NewCombustion int     `json:"new_combustion"`
	Retired       int     `json:"retired"`
	Removed       int     `json:"removed"`
	MeanAge       float64 `json:"mean_age"`
	// Ratio is the electric share in percent.
	Ratio float64 `json:"ratio"`
}

// Row is one year of a wide table keyed by column name. Missing cells are absent.
type Row map[string]float64

// Table is the wide, year-indexed representation of a scenario result.
type Table map[int]Row

// Years returns the years of the table in ascending order.
func (t Table) Years() []int {
	ys := make([]int, 0, len(t))
	for y := range t {
		ys = append(ys, y)
	}
	sort.Ints(ys)
	return ys
}

// Set stores a cell, creating the row when needed.
func (t Table) Set(year int, col string, v float64) {
	r, ok := t[year]
	if !ok {
		r = Row{}
		t[year] = r
	}
	r[col] = v
}

// SetState writes the fleet state columns of st.
func (t Table) SetState(st FleetYearState) {
	t.Set(st.Year, ColTotal, float64(st.Total))
	t.Set(st.Year, ColElectric, float64(st.Electric))
	t.Set(st.Year, ColCombustion, float64(st.Combustion))
	t.Set(st.Year, ColNewElectric, float64(st.NewElectric))
	t.Set(st.Year, ColNewCombustion, float64(st.NewCombustion))
	t.Set(st.Year, ColRetired, float64(st.Retired))
	t.Set(st.Year, ColRemoved, float64(st.Removed))
	t.Set(st.Year, ColMeanAge, st.MeanAge)
	t.Set(st.Year, ColRatio, st.Ratio)
}

// ScenarioResult is the simulated trajectory of one scenario.
type ScenarioResult struct {
	Scenario Scenario         `json:"scenario"`
	Table    Table            `json:"table"`
	States   []FleetYearState `json:"states,omitempty"`
}

// ResultSet groups the results of one run for a target.
type ResultSet struct {
	RunID     string           `json:"run_id"`
	Target    Target           `json:"target"`
	Generated time.Time        `json:"generated"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// Scenario returns the result for s, if present.
func (rs *ResultSet) Scenario(s Scenario) (ScenarioResult, bool) {
	if rs == nil {
		return ScenarioResult{}, false
	}
	for _, r := range rs.Scenarios {
		if r.Scenario == s {
			return r, true
		}
	}
	return ScenarioResult{}, false
}

// PlotPoint is one charting tuple: electric ratio of a scenario in a year.
type PlotPoint struct {
	Year     int      `json:"year"`
	Ratio    float64  `json:"ratio"`
	Scenario Scenario `json:"scenario"`
}
