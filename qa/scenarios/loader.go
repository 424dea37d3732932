// Package scenarios runs YAML described regression cases through the full
// simulation pipeline.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/evfleet/core/model"
)

type SettingsDef struct {
	StartYear     int   `yaml:"start_year"`
	EndYear       int   `yaml:"end_year"`
	MaxInitialAge int   `yaml:"max_initial_age"`
	Seed          int64 `yaml:"seed"`
}

type HistoryDef struct {
	Year     int     `yaml:"year"`
	Total    float64 `yaml:"total"`
	Electric float64 `yaml:"electric"`
}

type IntervalDef struct {
	Scenario  string  `yaml:"scenario"`
	Factor    string  `yaml:"factor"`
	From      int     `yaml:"from"`
	To        int     `yaml:"to"`
	ValueFrom float64 `yaml:"value_from"`
	ValueTo   float64 `yaml:"value_to"`
}

func (d IntervalDef) ToModel(target model.Target) (model.FactorInterval, error) {
	sc, err := model.ParseScenario(d.Scenario)
	if err != nil {
		return model.FactorInterval{}, err
	}
	f, err := model.ParseFactor(d.Factor)
	if err != nil {
		return model.FactorInterval{}, err
	}
	return model.FactorInterval{
		Target: target, Scenario: sc, Factor: f,
		YearFrom: d.From, YearTo: d.To, ValueFrom: d.ValueFrom, ValueTo: d.ValueTo,
	}, nil
}

// Expectation pins the state of one scenario in one year. Nil fields are
// not checked.
type Expectation struct {
	Scenario string   `yaml:"scenario"`
	Year     int      `yaml:"year"`
	Total    *int     `yaml:"total,omitempty"`
	Electric *int     `yaml:"electric,omitempty"`
	Ratio    *float64 `yaml:"ratio,omitempty"`
	Retired  *int     `yaml:"retired,omitempty"`
	Removed  *int     `yaml:"removed,omitempty"`
	MeanAge  *float64 `yaml:"mean_age,omitempty"`
}

type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Target      string        `yaml:"target"`
	Settings    SettingsDef   `yaml:"settings"`
	History     []HistoryDef  `yaml:"history"`
	Intervals   []IntervalDef `yaml:"intervals"`
	// Error names the sentinel the run must fail with, e.g. "missing_factor_data".
	Error    string        `yaml:"error,omitempty"`
	Expected []Expectation `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario name is required", path)
	}
	if sc.Target == "" {
		sc.Target = "QA"
	}
	return &sc, nil
}

var sentinels = map[string]error{
	"data_unavailable":    model.ErrDataUnavailable,
	"invalid_interval":    model.ErrInvalidInterval,
	"missing_factor_data": model.ErrMissingFactorData,
	"domain":              model.ErrDomain,
	"calibration":         model.ErrCalibration,
}

func parseError(name string) (error, bool) {
	err, ok := sentinels[name]
	return err, ok
}
