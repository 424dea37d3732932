package config

import "fmt"

// SimulationConfig holds the horizon and calibration settings shared by
// every target.
type SimulationConfig struct {
	StartYear int `json:"start_year"`
	EndYear   int `json:"end_year"`
	// Seed feeds the initial age draw. Zero draws a time based seed per run.
	Seed             int64 `json:"seed"`
	MaxInitialAge    int   `json:"max_initial_age"`
	TotalSeriesID    int   `json:"total_series_id"`
	ElectricSeriesID int   `json:"electric_series_id"`
	// Targets restricts the served targets. Empty means every target found
	// in the interval dataset.
	Targets []string `json:"targets"`
	// DiscontinuityTolerance is the absolute gap between adjacent interval
	// segments above which a warning is logged.
	DiscontinuityTolerance float64 `json:"discontinuity_tolerance"`
}

// SetDefaults applies the horizon used by the dashboard.
func (c *SimulationConfig) SetDefaults() {
	if c.StartYear == 0 {
		c.StartYear = 2024
	}
	if c.EndYear == 0 {
		c.EndYear = 2040
	}
	if c.MaxInitialAge == 0 {
		c.MaxInitialAge = 12
	}
	if c.TotalSeriesID == 0 {
		c.TotalSeriesID = 12
	}
	if c.ElectricSeriesID == 0 {
		c.ElectricSeriesID = 13
	}
	if c.DiscontinuityTolerance == 0 {
		c.DiscontinuityTolerance = 1e-9
	}
}

// Validate checks the horizon and series ids.
func (c SimulationConfig) Validate() error {
	if c.EndYear < c.StartYear {
		return fmt.Errorf("end_year %d before start_year %d", c.EndYear, c.StartYear)
	}
	if c.MaxInitialAge < 0 {
		return fmt.Errorf("max_initial_age must not be negative")
	}
	if c.TotalSeriesID == c.ElectricSeriesID {
		return fmt.Errorf("total and electric series ids must differ")
	}
	return nil
}
