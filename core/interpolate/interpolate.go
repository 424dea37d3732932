// Package interpolate expands piecewise-linear factor intervals into dense
// per-year factor series.
//
// Segments are applied in the order given. When two segments of the same
// scenario and factor cover the same year the later one wins; callers that
// need stricter guarantees validate with Overlaps before storing intervals.
package interpolate

import (
	"math"
	"sort"

	"github.com/kilianp07/evfleet/core/model"
)

// Interpolator resolves the start year sentinel of intervals.
type Interpolator struct {
	StartYear int
}

// New returns an Interpolator for a horizon beginning at startYear.
func New(startYear int) Interpolator { return Interpolator{StartYear: startYear} }

// Series interpolates a single interval.
func (ip Interpolator) Series(iv model.FactorInterval) (model.FactorSeries, error) {
	out := model.FactorSeries{}
	if err := ip.apply(out, iv); err != nil {
		return nil, err
	}
	return out, nil
}

func (ip Interpolator) apply(series model.FactorSeries, raw model.FactorInterval) error {
	iv := raw.Resolve(ip.StartYear)
	if iv.YearTo <= iv.YearFrom {
		return &model.IntervalError{Interval: raw, Reason: "year_to must be greater than year_from"}
	}
	if !finite(iv.ValueFrom) || !finite(iv.ValueTo) {
		return &model.IntervalError{Interval: raw, Reason: "non-finite value"}
	}
	step := (iv.ValueTo - iv.ValueFrom) / float64(iv.YearTo-iv.YearFrom)
	for y := iv.YearFrom; y <= iv.YearTo; y++ {
		if y == iv.YearFrom {
			series[y] = iv.ValueFrom
			continue
		}
		series[y] = series[y-1] + step
	}
	return nil
}

// Expand interpolates all intervals grouped by scenario and factor.
func (ip Interpolator) Expand(intervals []model.FactorInterval) (map[model.Scenario]model.ScenarioFactors, error) {
	out := map[model.Scenario]model.ScenarioFactors{}
	for _, iv := range intervals {
		sf, ok := out[iv.Scenario]
		if !ok {
			sf = model.ScenarioFactors{}
			out[iv.Scenario] = sf
		}
		s, ok := sf[iv.Factor]
		if !ok {
			s = model.FactorSeries{}
			sf[iv.Factor] = s
		}
		if err := ip.apply(s, iv); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Discontinuity describes a boundary year where a segment does not start at
// the value its predecessor ended with.
type Discontinuity struct {
	Scenario model.Scenario
	Factor   model.Factor
	Year     int
	End      float64
	Start    float64
}

// Discontinuities reports contiguous segments whose shared boundary values
// differ by more than tol. Intervals must be valid.
func (ip Interpolator) Discontinuities(intervals []model.FactorInterval, tol float64) []Discontinuity {
	var out []Discontinuity
	for key, segs := range ip.group(intervals) {
		for i := 1; i < len(segs); i++ {
			prev, cur := segs[i-1], segs[i]
			if prev.YearTo != cur.YearFrom {
				continue
			}
			if math.Abs(prev.ValueTo-cur.ValueFrom) > tol {
				out = append(out, Discontinuity{
					Scenario: key.scenario, Factor: key.factor,
					Year: cur.YearFrom, End: prev.ValueTo, Start: cur.ValueFrom,
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scenario != out[j].Scenario {
			return out[i].Scenario < out[j].Scenario
		}
		if out[i].Factor != out[j].Factor {
			return out[i].Factor < out[j].Factor
		}
		return out[i].Year < out[j].Year
	})
	return out
}

// Overlaps returns an error for the first pair of segments of the same
// scenario and factor sharing more than a boundary year, or for any segment
// that cannot be interpolated.
func (ip Interpolator) Overlaps(intervals []model.FactorInterval) error {
	for _, iv := range intervals {
		r := iv.Resolve(ip.StartYear)
		if r.YearTo <= r.YearFrom {
			return &model.IntervalError{Interval: iv, Reason: "year_to must be greater than year_from"}
		}
	}
	for _, segs := range ip.group(intervals) {
		end := segs[0].YearTo
		for _, seg := range segs[1:] {
			if seg.YearFrom < end {
				return &model.IntervalError{Interval: seg, Reason: "overlaps previous segment"}
			}
			end = max(end, seg.YearTo)
		}
	}
	return nil
}

type groupKey struct {
	scenario model.Scenario
	factor   model.Factor
}

// group resolves sentinels and orders segments per scenario/factor by start year.
func (ip Interpolator) group(intervals []model.FactorInterval) map[groupKey][]model.FactorInterval {
	g := map[groupKey][]model.FactorInterval{}
	for _, iv := range intervals {
		k := groupKey{iv.Scenario, iv.Factor}
		g[k] = append(g[k], iv.Resolve(ip.StartYear))
	}
	for _, segs := range g {
		sort.SliceStable(segs, func(i, j int) bool { return segs[i].YearFrom < segs[j].YearFrom })
	}
	return g
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
