package model

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable is returned when a backing dataset is missing or malformed.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrInvalidInterval marks a factor interval that cannot be interpolated.
	ErrInvalidInterval = errors.New("invalid interval")
	// ErrMissingFactorData is returned when a required factor has no value for a year.
	ErrMissingFactorData = errors.New("missing factor data")
	// ErrDomain signals a modelling or data bug such as a non-positive fleet.
	ErrDomain = errors.New("domain error")
	// ErrCalibration is returned when the historical baseline cannot be established.
	ErrCalibration = errors.New("calibration failed")
	// ErrUnknownTarget is returned for targets without a configured simulation.
	ErrUnknownTarget = errors.New("unknown target")
	// ErrNoResults is returned when results are requested before a successful run.
	ErrNoResults = errors.New("no results")
)

// IntervalError reports the interval that caused an interpolation or
// validation failure.
type IntervalError struct {
	Interval FactorInterval
	Reason   string
}

func (e *IntervalError) Error() string {
	iv := e.Interval
	return fmt.Sprintf("%s: %s/%s %d-%d: %s", ErrInvalidInterval, iv.Scenario, iv.Factor, iv.YearFrom, iv.YearTo, e.Reason)
}

func (e *IntervalError) Unwrap() error { return ErrInvalidInterval }

// ScenarioError attaches the scenario and year to an engine failure.
type ScenarioError struct {
	Scenario Scenario
	Year     int
	Err      error
}

func (e *ScenarioError) Error() string {
	return fmt.Sprintf("scenario %s year %d: %v", e.Scenario, e.Year, e.Err)
}

func (e *ScenarioError) Unwrap() error { return e.Err }
