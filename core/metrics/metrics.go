package metrics

import (
	"time"

	"github.com/kilianp07/evfleet/core/model"
)

// Run statuses reported in RunEvent.Status.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// RunEvent summarizes one simulation run of a target.
type RunEvent struct {
	RunID    string
	Target   model.Target
	Status   string
	Duration time.Duration
	// Final holds the last simulated state of every scenario.
	Final map[model.Scenario]model.FleetYearState
	Error string
	Time  time.Time
}

// MetricsSink records simulation runs for observability purposes.
type MetricsSink interface {
	RecordRun(ev RunEvent) error
}

// ScenarioStateEvent carries the yearly states of one scenario of a run.
type ScenarioStateEvent struct {
	RunID    string
	Target   model.Target
	Scenario model.Scenario
	States   []model.FleetYearState
	Time     time.Time
}

// ScenarioStateRecorder is implemented by sinks able to store yearly states.
type ScenarioStateRecorder interface {
	RecordScenarioStates(ev ScenarioStateEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error                     { return nil }
func (NopSink) RecordScenarioStates(ScenarioStateEvent) error { return nil }

// Closer is implemented by sinks holding connections.
type Closer interface {
	Close()
}

// Close releases s if it holds connections.
func Close(s MetricsSink) {
	if c, ok := s.(Closer); ok {
		c.Close()
	}
}

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordRun(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RecordScenarioStates forwards states to the sinks supporting them.
func (m *MultiSink) RecordScenarioStates(ev ScenarioStateEvent) error {
	var first error
	for _, s := range m.Sinks {
		if rec, ok := s.(ScenarioStateRecorder); ok {
			if err := rec.RecordScenarioStates(ev); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// Close releases every sink holding connections.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		Close(s)
	}
}
