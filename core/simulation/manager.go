package simulation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/evfleet/core/model"
	coremon "github.com/kilianp07/evfleet/core/monitoring"
)

// Manager owns one Simulation per target.
type Manager struct {
	sims map[model.Target]*Simulation
}

// NewManager creates a simulation for every target. With no explicit targets
// they are discovered from repo.
func NewManager(ctx context.Context, repo Repository, settings Settings, targets []model.Target, opts ...Option) (*Manager, error) {
	if len(targets) == 0 {
		var err error
		if targets, err = repo.Targets(ctx); err != nil {
			return nil, fmt.Errorf("discover targets: %w", err)
		}
	}
	m := &Manager{sims: make(map[model.Target]*Simulation, len(targets))}
	for _, t := range targets {
		m.sims[t] = New(t, settings, repo, opts...)
	}
	return m, nil
}

// Get returns the simulation of target.
func (m *Manager) Get(target model.Target) (*Simulation, error) {
	s, ok := m.sims[target]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownTarget, target)
	}
	return s, nil
}

// Targets lists the managed targets in sorted order.
func (m *Manager) Targets() []model.Target {
	out := make([]model.Target, 0, len(m.sims))
	for t := range m.sims {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RunAll runs every target concurrently and returns the first error. A failing
// target does not cancel the others.
func (m *Manager) RunAll(ctx context.Context) error {
	var g errgroup.Group
	for _, s := range m.sims {
		g.Go(func() error {
			defer coremon.Recover()
			_, err := s.Run(ctx)
			return err
		})
	}
	return g.Wait()
}

// LoadPersisted loads the stored results of every target that has some.
func (m *Manager) LoadPersisted(ctx context.Context) (int, error) {
	loaded := 0
	for _, t := range m.Targets() {
		_, err := m.sims[t].LoadPersisted(ctx)
		switch {
		case err == nil:
			loaded++
		case errors.Is(err, model.ErrNoResults):
		default:
			return loaded, err
		}
	}
	return loaded, nil
}
