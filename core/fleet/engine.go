// Package fleet simulates the yearly turnover of a car fleet.
//
// Each simulated year follows the same cycle: size the fleet with the growth
// factor, retire cars that reached the replacement age (ages as carried from
// the previous year), fill the gap with new cars split by the electric share
// or shed the oldest cars when the fleet shrinks faster than retirement, and
// finally age the surviving cars by one year. New cars enter at age zero.
package fleet

import (
	"fmt"
	"math"

	"github.com/kilianp07/evfleet/core/logger"
	"github.com/kilianp07/evfleet/core/model"
)

// Start is the calibrated initial state of a simulation.
type Start struct {
	// Year is the calibration anchor, the last year before the horizon.
	Year  int
	Fleet *Histogram
}

// Engine runs the per-scenario fleet simulation.
type Engine struct {
	EndYear int
	log     logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine creates an engine simulating up to and including endYear.
func NewEngine(endYear int, opts ...Option) *Engine {
	e := &Engine{EndYear: endYear, log: logger.NopLogger{}}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Simulate runs one scenario from a copy of start.Fleet. The returned table
// holds the anchor year and every simulated year.
func (e *Engine) Simulate(sc model.Scenario, factors model.ScenarioFactors, start Start) (model.ScenarioResult, error) {
	if start.Fleet == nil || start.Fleet.Total() <= 0 {
		return model.ScenarioResult{}, &model.ScenarioError{Scenario: sc, Year: start.Year,
			Err: fmt.Errorf("%w: empty starting fleet", model.ErrDomain)}
	}
	h := start.Fleet.Clone()
	res := model.ScenarioResult{Scenario: sc, Table: model.Table{}}
	anchor := snapshot(start.Year, h)
	res.Table.SetState(anchor)
	res.States = append(res.States, anchor)

	for year := start.Year + 1; year <= e.EndYear; year++ {
		st, err := e.step(h, factors, year)
		if err != nil {
			return model.ScenarioResult{}, &model.ScenarioError{Scenario: sc, Year: year, Err: err}
		}
		for _, f := range model.Factors() {
			v, _ := factors.Value(f, year)
			res.Table.Set(year, f.String(), v)
		}
		res.Table.SetState(st)
		res.States = append(res.States, st)
	}
	if len(res.States) > 1 {
		last := res.States[len(res.States)-1]
		e.log.Debugw("scenario simulated", map[string]any{
			"scenario": sc.String(),
			"year":     last.Year,
			"total":    last.Total,
			"ratio":    last.Ratio,
		})
	}
	return res, nil
}

func (e *Engine) step(h *Histogram, factors model.ScenarioFactors, year int) (model.FleetYearState, error) {
	growth, err := factor(factors, model.FactorGrowth, year)
	if err != nil {
		return model.FleetYearState{}, err
	}
	maxAge, err := factor(factors, model.FactorMaxAge, year)
	if err != nil {
		return model.FleetYearState{}, err
	}
	share, err := factor(factors, model.FactorElectricShare, year)
	if err != nil {
		return model.FleetYearState{}, err
	}
	share, err = clampShare(share)
	if err != nil {
		return model.FleetYearState{}, err
	}

	target := int(math.Round(float64(h.Total()) * growth))
	if target <= 0 {
		return model.FleetYearState{}, fmt.Errorf("%w: fleet size %d", model.ErrDomain, target)
	}

	retired := h.Retire(maxAge)
	toReplace := target - h.Total()
	var newElectric, newCombustion, removed int
	if toReplace >= 0 {
		newElectric = int(math.Round(float64(toReplace) * share))
		newCombustion = toReplace - newElectric
	} else {
		removed = h.RemoveOldest(-toReplace)
	}
	h.Age()
	h.Add(0, true, newElectric)
	h.Add(0, false, newCombustion)

	st := snapshot(year, h)
	st.NewElectric = newElectric
	st.NewCombustion = newCombustion
	st.Retired = retired
	st.Removed = removed
	if st.Total != target {
		return st, fmt.Errorf("%w: fleet size %d does not match target %d", model.ErrDomain, st.Total, target)
	}
	if math.IsNaN(st.Ratio) || st.Ratio < 0 || st.Ratio > 100 {
		return st, fmt.Errorf("%w: electric ratio %g", model.ErrDomain, st.Ratio)
	}
	return st, nil
}

func factor(factors model.ScenarioFactors, f model.Factor, year int) (float64, error) {
	v, ok := factors.Value(f, year)
	if !ok {
		return 0, fmt.Errorf("%w: %s has no value for %d", model.ErrMissingFactorData, f, year)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s is not finite in %d", model.ErrMissingFactorData, f, year)
	}
	return v, nil
}

func snapshot(year int, h *Histogram) model.FleetYearState {
	total := h.Total()
	electric := h.Electric()
	st := model.FleetYearState{
		Year:       year,
		Total:      total,
		Electric:   electric,
		Combustion: total - electric,
		MeanAge:    h.MeanAge(),
	}
	if total > 0 {
		st.Ratio = 100 * float64(electric) / float64(total)
	}
	return st
}

// factorTolerance absorbs the drift left by cumulative interpolation of
// factor series.
const factorTolerance = 1e-9

func clampShare(share float64) (float64, error) {
	switch {
	case share < -factorTolerance || share > 1+factorTolerance || math.IsNaN(share):
		return 0, fmt.Errorf("%w: electric share %g outside [0,1]", model.ErrDomain, share)
	case share < 0:
		return 0, nil
	case share > 1:
		return 1, nil
	}
	return share, nil
}
