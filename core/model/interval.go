package model

// StartYearSentinel in YearFrom stands for the simulation start year.
const StartYearSentinel = 0

// FactorInterval is one linear segment of a factor trajectory.
type FactorInterval struct {
	Target    Target   `json:"target"`
	Scenario  Scenario `json:"scenario"`
	Factor    Factor   `json:"factor"`
	YearFrom  int      `json:"year_from"`
	YearTo    int      `json:"year_to"`
	ValueFrom float64  `json:"value_from"`
	ValueTo   float64  `json:"value_to"`
}

// Resolve returns a copy with the start year sentinel replaced by startYear.
func (iv FactorInterval) Resolve(startYear int) FactorInterval {
	if iv.YearFrom == StartYearSentinel {
		iv.YearFrom = startYear
	}
	return iv
}

// FactorSeries maps a year of the horizon to a factor value.
type FactorSeries map[int]float64

// ScenarioFactors holds one series per factor for a scenario.
type ScenarioFactors map[Factor]FactorSeries

// Value returns the factor value for year and whether it is defined.
func (sf ScenarioFactors) Value(f Factor, year int) (float64, bool) {
	s, ok := sf[f]
	if !ok {
		return 0, false
	}
	v, ok := s[year]
	return v, ok
}

// Observation is one row of the historical time series dataset.
type Observation struct {
	SeriesID int     `json:"ts_id"`
	Year     int     `json:"year"`
	Value    float64 `json:"value"`
}
