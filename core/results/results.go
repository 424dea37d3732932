// Package results converts scenario results between the wide per-scenario
// tables used for computation and the long rows used for storage.
package results

import (
	"sort"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/kilianp07/evfleet/core/model"
)

// Row is one stored fact: the value of a series for a target, year and scenario.
type Row struct {
	Target   model.Target   `json:"target"`
	Year     int            `json:"year"`
	Series   string         `json:"series"`
	Value    float64        `json:"value"`
	Scenario model.Scenario `json:"scenario"`
}

// Melt flattens the wide tables into long rows tagged with target and scenario.
// Rows are ordered by scenario, year and column.
func Melt(target model.Target, res []model.ScenarioResult) []Row {
	var out []Row
	for _, r := range res {
		for _, y := range r.Table.Years() {
			row := r.Table[y]
			for _, col := range orderedColumns(row) {
				out = append(out, Row{Target: target, Year: y, Series: col, Value: row[col], Scenario: r.Scenario})
			}
		}
	}
	return out
}

// Pivot regroups the rows of target by scenario into wide tables.
func Pivot(target model.Target, rows []Row) map[model.Scenario]model.Table {
	out := map[model.Scenario]model.Table{}
	for _, r := range rows {
		if r.Target != target {
			continue
		}
		t, ok := out[r.Scenario]
		if !ok {
			t = model.Table{}
			out[r.Scenario] = t
		}
		t.Set(r.Year, r.Series, r.Value)
	}
	return out
}

// ScenarioResults pivots rows and returns the results in scenario order.
func ScenarioResults(target model.Target, rows []Row) []model.ScenarioResult {
	tables := Pivot(target, rows)
	out := make([]model.ScenarioResult, 0, len(tables))
	for sc, t := range tables {
		out = append(out, model.ScenarioResult{Scenario: sc, Table: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scenario < out[j].Scenario })
	return out
}

// EqualTables reports whether a and b hold the same cells within tol.
func EqualTables(a, b model.Table, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for y, ra := range a {
		rb, ok := b[y]
		if !ok || len(ra) != len(rb) {
			return false
		}
		for col, va := range ra {
			vb, ok := rb[col]
			if !ok || !scalar.EqualWithinAbs(va, vb, tol) {
				return false
			}
		}
	}
	return true
}

func orderedColumns(row model.Row) []string {
	known := map[string]bool{}
	var cols []string
	for _, c := range model.Columns() {
		known[c] = true
		if _, ok := row[c]; ok {
			cols = append(cols, c)
		}
	}
	var extra []string
	for c := range row {
		if !known[c] {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(cols, extra...)
}
