// Package calibration derives the starting state of the fleet simulation from
// historical observations of the total and the electric fleet size.
package calibration

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/kilianp07/evfleet/core/fleet"
	"github.com/kilianp07/evfleet/core/model"
)

// Year is one pivoted row of the historical table.
type Year struct {
	Year     int     `json:"year"`
	Total    float64 `json:"total"`
	Electric float64 `json:"electric"`
	// Ratio is electric / total as a fraction.
	Ratio float64 `json:"ratio"`
}

// Baseline is the outcome of a calibration.
type Baseline struct {
	History []Year
	Anchor  Year
	Start   fleet.Start
}

// Calibrator pivots historical observations and draws the initial age
// distribution of the anchor fleet.
type Calibrator struct {
	StartYear        int
	TotalSeriesID    int
	ElectricSeriesID int
	// MaxInitialAge bounds the uniformly drawn ages of the anchor fleet.
	MaxInitialAge int
	Rand          *rand.Rand
}

// Pivot turns the observations of the two base series into a year-indexed
// table ordered by year. Years lacking either series are skipped.
func (c Calibrator) Pivot(obs []model.Observation) []Year {
	totals := map[int]float64{}
	electric := map[int]float64{}
	for _, o := range obs {
		switch o.SeriesID {
		case c.TotalSeriesID:
			totals[o.Year] = o.Value
		case c.ElectricSeriesID:
			electric[o.Year] = o.Value
		}
	}
	var out []Year
	for y, t := range totals {
		e, ok := electric[y]
		if !ok {
			continue
		}
		row := Year{Year: y, Total: t, Electric: e}
		if t != 0 {
			row.Ratio = e / t
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// Calibrate builds the baseline anchored at StartYear-1.
func (c Calibrator) Calibrate(obs []model.Observation) (Baseline, error) {
	history := c.Pivot(obs)
	anchorYear := c.StartYear - 1
	var anchor *Year
	for i := range history {
		if history[i].Year == anchorYear {
			anchor = &history[i]
			break
		}
	}
	if anchor == nil {
		return Baseline{}, fmt.Errorf("%w: no observations of series %d and %d for anchor year %d",
			model.ErrCalibration, c.TotalSeriesID, c.ElectricSeriesID, anchorYear)
	}
	total := int(math.Round(anchor.Total))
	electric := int(math.Round(anchor.Electric))
	if total <= 0 {
		return Baseline{}, fmt.Errorf("%w: anchor fleet size %d", model.ErrCalibration, total)
	}
	if electric < 0 || electric > total {
		return Baseline{}, fmt.Errorf("%w: anchor electric fleet %d outside [0,%d]", model.ErrCalibration, electric, total)
	}
	h := c.draw(total, electric)
	return Baseline{
		History: history,
		Anchor:  *anchor,
		Start:   fleet.Start{Year: anchorYear, Fleet: h},
	}, nil
}

func (c Calibrator) draw(total, electric int) *fleet.Histogram {
	rng := c.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	maxAge := c.MaxInitialAge
	if maxAge < 0 {
		maxAge = 0
	}
	h := fleet.NewHistogram()
	for i := 0; i < total; i++ {
		h.Add(rng.Intn(maxAge+1), i < electric, 1)
	}
	return h
}
