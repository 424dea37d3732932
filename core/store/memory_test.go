package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evfleet/core/factory"
	"github.com/kilianp07/evfleet/core/model"
	"github.com/kilianp07/evfleet/core/results"
)

func TestMemoryStore_Intervals(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ivs := []model.FactorInterval{
		{Scenario: model.ScenarioLow, Factor: model.FactorGrowth, YearTo: 2040, ValueFrom: 1, ValueTo: 1},
		{Scenario: model.ScenarioHigh, Factor: model.FactorGrowth, YearTo: 2040, ValueFrom: 1, ValueTo: 1.1},
	}
	require.NoError(t, s.SaveIntervals(ctx, "M1", ivs))
	got, err := s.LoadIntervals(ctx, "M1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.Target("M1"), got[0].Target)

	require.NoError(t, s.SaveIntervals(ctx, "M1", ivs[:1]))
	got, err = s.LoadIntervals(ctx, "M1")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	targets, err := s.Targets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Target{"M1"}, targets)
}

func TestMemoryStore_ObservationsAndResults(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.SaveObservations(ctx, []model.Observation{{SeriesID: 12, Year: 2023, Value: 10}, {SeriesID: 5, Year: 2023, Value: 1}}))
	obs, err := s.LoadObservations(ctx, 12)
	require.NoError(t, err)
	assert.Len(t, obs, 1)
	all, err := s.LoadObservations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	rows := []results.Row{{Target: "M1", Year: 2024, Series: "ratio", Value: 3, Scenario: model.ScenarioLow}}
	require.NoError(t, s.SaveResults(ctx, "M1", rows))
	got, err := s.LoadResults(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, rows, got)
	none, err := s.LoadResults(ctx, "M2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNew_DefaultsToMemory(t *testing.T) {
	repo, err := New(factory.ModuleConfig{})
	require.NoError(t, err)
	_, ok := repo.(*MemoryStore)
	assert.True(t, ok)
	assert.Contains(t, Backends(), "memory")
}
