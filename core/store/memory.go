package store

import (
	"context"
	"sort"
	"sync"

	"github.com/kilianp07/evfleet/core/model"
	"github.com/kilianp07/evfleet/core/results"
)

// MemoryStore keeps all datasets in memory for tests or demo usage.
type MemoryStore struct {
	mu           sync.Mutex
	intervals    map[model.Target][]model.FactorInterval
	observations []model.Observation
	results      map[model.Target][]results.Row
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		intervals: map[model.Target][]model.FactorInterval{},
		results:   map[model.Target][]results.Row{},
	}
}

// SaveObservations replaces the historical observations.
func (s *MemoryStore) SaveObservations(_ context.Context, obs []model.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observations = append([]model.Observation(nil), obs...)
	return nil
}

func (s *MemoryStore) LoadIntervals(_ context.Context, target model.Target) ([]model.FactorInterval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.FactorInterval(nil), s.intervals[target]...), nil
}

func (s *MemoryStore) SaveIntervals(_ context.Context, target model.Target, intervals []model.FactorInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]model.FactorInterval, len(intervals))
	for i, iv := range intervals {
		iv.Target = target
		cp[i] = iv
	}
	s.intervals[target] = cp
	return nil
}

func (s *MemoryStore) Targets(context.Context) ([]model.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Target, 0, len(s.intervals))
	for t, ivs := range s.intervals {
		if len(ivs) > 0 {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *MemoryStore) LoadObservations(_ context.Context, ids ...int) ([]model.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FilterObservations(s.observations, ids...), nil
}

func (s *MemoryStore) SaveResults(_ context.Context, target model.Target, rows []results.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[target] = append([]results.Row(nil), rows...)
	return nil
}

func (s *MemoryStore) LoadResults(_ context.Context, target model.Target) ([]results.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]results.Row(nil), s.results[target]...), nil
}

func (s *MemoryStore) Close() error { return nil }

// FilterObservations keeps the observations of the given series ids.
func FilterObservations(obs []model.Observation, ids ...int) []model.Observation {
	if len(ids) == 0 {
		return append([]model.Observation(nil), obs...)
	}
	want := map[int]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Observation
	for _, o := range obs {
		if want[o.SeriesID] {
			out = append(out, o)
		}
	}
	return out
}

