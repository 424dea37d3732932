package model

import (
	"fmt"
	"strings"
)

// Target identifies the policy goal a simulation is calibrated and reported
// against (column "ziel" in the datasets).
type Target string

// Scenario is a named policy variant simulated independently of the others.
type Scenario int

const (
	ScenarioLow Scenario = iota + 1
	ScenarioMedium
	ScenarioHigh
)

var scenarioCodes = map[Scenario]string{
	ScenarioLow:    "low",
	ScenarioMedium: "medium",
	ScenarioHigh:   "high",
}

var scenarioLookup = map[string]Scenario{
	"low":    ScenarioLow,
	"tief":   ScenarioLow,
	"medium": ScenarioMedium,
	"mittel": ScenarioMedium,
	"high":   ScenarioHigh,
	"hoch":   ScenarioHigh,
}

// Scenarios lists all known scenarios in display order.
func Scenarios() []Scenario { return []Scenario{ScenarioLow, ScenarioMedium, ScenarioHigh} }

func (s Scenario) String() string {
	if c, ok := scenarioCodes[s]; ok {
		return c
	}
	return fmt.Sprintf("scenario(%d)", int(s))
}

// Valid reports whether s is a member of the scenario enumeration.
func (s Scenario) Valid() bool {
	_, ok := scenarioCodes[s]
	return ok
}

// ParseScenario resolves a wire code (english or german) to a Scenario.
func ParseScenario(code string) (Scenario, error) {
	if s, ok := scenarioLookup[strings.ToLower(strings.TrimSpace(code))]; ok {
		return s, nil
	}
	return 0, fmt.Errorf("unknown scenario %q", code)
}

// MarshalText encodes the scenario as its wire code.
func (s Scenario) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid scenario %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a wire code.
func (s *Scenario) UnmarshalText(b []byte) error {
	v, err := ParseScenario(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Factor is a time-varying input parameter of the fleet model.
type Factor int

const (
	// FactorGrowth is the year-over-year fleet size multiplier (f1).
	FactorGrowth Factor = iota + 1
	// FactorMaxAge is the replacement age threshold in years (f2).
	FactorMaxAge
	// FactorElectricShare is the share of newly added cars that are electric (f3).
	FactorElectricShare
)

var factorCodes = map[Factor]string{
	FactorGrowth:        "f1",
	FactorMaxAge:        "f2",
	FactorElectricShare: "f3",
}

// Factors lists the factors required by the fleet engine.
func Factors() []Factor { return []Factor{FactorGrowth, FactorMaxAge, FactorElectricShare} }

func (f Factor) String() string {
	if c, ok := factorCodes[f]; ok {
		return c
	}
	return fmt.Sprintf("factor(%d)", int(f))
}

// Valid reports whether f is a member of the factor enumeration.
func (f Factor) Valid() bool {
	_, ok := factorCodes[f]
	return ok
}

// ParseFactor resolves a factor code such as "f2".
func ParseFactor(code string) (Factor, error) {
	c := strings.ToLower(strings.TrimSpace(code))
	for f, name := range factorCodes {
		if name == c {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown factor %q", code)
}

func (f Factor) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid factor %d", int(f))
	}
	return []byte(f.String()), nil
}

func (f *Factor) UnmarshalText(b []byte) error {
	v, err := ParseFactor(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
