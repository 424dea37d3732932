// Package store defines the repositories the simulation reads its inputs
// from and writes its results to.
package store

import (
	"context"

	"github.com/kilianp07/evfleet/core/model"
	"github.com/kilianp07/evfleet/core/results"
)

// IntervalStore persists factor intervals. SaveIntervals replaces the whole
// interval set of a target.
type IntervalStore interface {
	LoadIntervals(ctx context.Context, target model.Target) ([]model.FactorInterval, error)
	SaveIntervals(ctx context.Context, target model.Target, intervals []model.FactorInterval) error
	Targets(ctx context.Context) ([]model.Target, error)
}

// SeriesSource provides historical observations. With no ids every
// observation is returned.
type SeriesSource interface {
	LoadObservations(ctx context.Context, ids ...int) ([]model.Observation, error)
}

// ObservationWriter is implemented by backends that can import history.
// SaveObservations replaces the whole dataset.
type ObservationWriter interface {
	SaveObservations(ctx context.Context, obs []model.Observation) error
}

// ResultStore persists melted results. SaveResults replaces the rows of a target.
type ResultStore interface {
	SaveResults(ctx context.Context, target model.Target, rows []results.Row) error
	LoadResults(ctx context.Context, target model.Target) ([]results.Row, error)
}

// Repository bundles all datasets of one backend.
type Repository interface {
	IntervalStore
	SeriesSource
	ResultStore
	Close() error
}
