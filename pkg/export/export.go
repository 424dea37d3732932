// Package export writes simulation results as CSV, JSON or an HTML chart.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/evfleet/core/model"
)

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteCSV writes the wide tables of every scenario to w, one row per
// scenario and year in canonical column order. Missing cells stay empty.
func WriteCSV(w io.Writer, scenarios []model.ScenarioResult) error {
	cols := model.Columns()
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"scenario", "year"}, cols...)); err != nil {
		return err
	}
	for _, r := range scenarios {
		for _, y := range r.Table.Years() {
			row := r.Table[y]
			rec := make([]string, 0, len(cols)+2)
			rec = append(rec, r.Scenario.String(), strconv.Itoa(y))
			for _, c := range cols {
				v, ok := row[c]
				if !ok {
					rec = append(rec, "")
					continue
				}
				rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePlotCSV writes the ratio series in long form.
func WritePlotCSV(w io.Writer, points []model.PlotPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"year", "ratio", "scenario"}); err != nil {
		return err
	}
	for _, p := range points {
		rec := []string{strconv.Itoa(p.Year), strconv.FormatFloat(p.Ratio, 'f', -1, 64), p.Scenario.String()}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteChartHTML renders the electric ratio of every scenario as a line
// chart. Years a scenario lacks are left as gaps.
func WriteChartHTML(w io.Writer, target model.Target, points []model.PlotPoint) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Emission-free share of fleet %s", target)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Year"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Share (%)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	yearSet := map[int]bool{}
	byScenario := map[model.Scenario]map[int]float64{}
	for _, p := range points {
		yearSet[p.Year] = true
		if byScenario[p.Scenario] == nil {
			byScenario[p.Scenario] = map[int]float64{}
		}
		byScenario[p.Scenario][p.Year] = p.Ratio
	}
	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)
	xAxis := make([]string, len(years))
	for i, y := range years {
		xAxis[i] = strconv.Itoa(y)
	}
	line.SetXAxis(xAxis)
	for _, sc := range model.Scenarios() {
		vals, ok := byScenario[sc]
		if !ok {
			continue
		}
		data := make([]opts.LineData, len(years))
		for i, y := range years {
			if v, ok := vals[y]; ok {
				data[i] = opts.LineData{Value: v}
			}
		}
		line.AddSeries(sc.String(), data)
	}
	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
