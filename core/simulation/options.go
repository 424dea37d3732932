package simulation

import (
	"math/rand"
	"time"

	"github.com/kilianp07/evfleet/core/logger"
	"github.com/kilianp07/evfleet/core/metrics"
	"github.com/kilianp07/evfleet/core/monitoring"
	"github.com/kilianp07/evfleet/core/runlog"
)

// Settings holds the horizon and calibration parameters of a simulation.
type Settings struct {
	StartYear        int
	EndYear          int
	MaxInitialAge    int
	TotalSeriesID    int
	ElectricSeriesID int
	// Seed makes runs reproducible. Zero draws a time based seed per run.
	Seed int64
	// DiscontinuityTolerance is the gap between adjacent interval segments
	// above which a warning is logged.
	DiscontinuityTolerance float64
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithRand shares r across runs instead of seeding a source per run.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulation) {
		if r != nil {
			s.newRand = func() *rand.Rand { return r }
		}
	}
}

// WithLogger sets the logger used by the simulation and its engine.
func WithLogger(l logger.Logger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSink reports every run to sink.
func WithSink(sink metrics.MetricsSink) Option {
	return func(s *Simulation) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithRunLog appends a record of every run to store.
func WithRunLog(store runlog.Store) Option {
	return func(s *Simulation) { s.runlog = store }
}

// WithMonitor captures failed runs.
func WithMonitor(m monitoring.Monitor) Option {
	return func(s *Simulation) {
		if m != nil {
			s.monitor = m
		}
	}
}

// WithNotifier announces every finished run to n.
func WithNotifier(n Notifier) Option {
	return func(s *Simulation) { s.notifier = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Simulation) {
		if now != nil {
			s.now = now
		}
	}
}
