package scenarios

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evfleet/core/model"
	"github.com/kilianp07/evfleet/core/simulation"
	"github.com/kilianp07/evfleet/core/store"
)

const (
	totalSeries    = 12
	electricSeries = 13
)

// RunScenario seeds a memory store from sc, runs the simulation and checks
// every expectation.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	ctx := context.Background()
	target := model.Target(sc.Target)

	repo := store.NewMemoryStore()
	var obs []model.Observation
	for _, h := range sc.History {
		obs = append(obs,
			model.Observation{SeriesID: totalSeries, Year: h.Year, Value: h.Total},
			model.Observation{SeriesID: electricSeries, Year: h.Year, Value: h.Electric},
		)
	}
	require.NoError(t, repo.SaveObservations(ctx, obs))
	ivs := make([]model.FactorInterval, 0, len(sc.Intervals))
	for _, d := range sc.Intervals {
		iv, err := d.ToModel(target)
		require.NoError(t, err)
		ivs = append(ivs, iv)
	}
	require.NoError(t, repo.SaveIntervals(ctx, target, ivs))

	settings := simulation.Settings{
		StartYear:              sc.Settings.StartYear,
		EndYear:                sc.Settings.EndYear,
		MaxInitialAge:          sc.Settings.MaxInitialAge,
		TotalSeriesID:          totalSeries,
		ElectricSeriesID:       electricSeries,
		Seed:                   sc.Settings.Seed,
		DiscontinuityTolerance: 1e-9,
	}
	rs, err := simulation.New(target, settings, repo).Run(ctx)
	if sc.Error != "" {
		want, ok := parseError(sc.Error)
		require.True(t, ok, "unknown error %q", sc.Error)
		require.Error(t, err)
		assert.True(t, errors.Is(err, want), "got %v, want %v", err, want)
		return
	}
	require.NoError(t, err)

	for _, exp := range sc.Expected {
		scen, err := model.ParseScenario(exp.Scenario)
		require.NoError(t, err)
		st, ok := state(rs, scen, exp.Year)
		require.True(t, ok, "no state for %s %d", exp.Scenario, exp.Year)
		if exp.Total != nil {
			assert.Equal(t, *exp.Total, st.Total, "%s %d total", exp.Scenario, exp.Year)
		}
		if exp.Electric != nil {
			assert.Equal(t, *exp.Electric, st.Electric, "%s %d electric", exp.Scenario, exp.Year)
		}
		if exp.Ratio != nil {
			assert.InDelta(t, *exp.Ratio, st.Ratio, 1e-3, "%s %d ratio", exp.Scenario, exp.Year)
		}
		if exp.Retired != nil {
			assert.Equal(t, *exp.Retired, st.Retired, "%s %d retired", exp.Scenario, exp.Year)
		}
		if exp.Removed != nil {
			assert.Equal(t, *exp.Removed, st.Removed, "%s %d removed", exp.Scenario, exp.Year)
		}
		if exp.MeanAge != nil {
			assert.InDelta(t, *exp.MeanAge, st.MeanAge, 1e-6, "%s %d mean age", exp.Scenario, exp.Year)
		}
	}
}

func state(rs *model.ResultSet, sc model.Scenario, year int) (model.FleetYearState, bool) {
	r, ok := rs.Scenario(sc)
	if !ok {
		return model.FleetYearState{}, false
	}
	for _, st := range r.States {
		if st.Year == year {
			return st, true
		}
	}
	return model.FleetYearState{}, false
}
