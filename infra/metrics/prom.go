package metrics

import (
	coremetrics "github.com/kilianp07/evfleet/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records simulation runs in Prometheus metrics.
type PromSink struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	ratio    *prometheus.GaugeVec
	vehicles *prometheus.GaugeVec
}

// NewPromSink registers run metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_runs_total",
		Help: "Total number of simulation runs",
	}, []string{"target", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simulation_run_duration_seconds",
		Help:    "Wall time of a simulation run",
		Buckets: prometheus.DefBuckets,
	}, []string{"target"})
	ratio := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fleet_electric_ratio_percent",
		Help: "Electric share of the fleet at the end of the horizon",
	}, []string{"target", "scenario"})
	vehicles := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fleet_vehicles_total",
		Help: "Fleet size at the end of the horizon",
	}, []string{"target", "scenario"})

	var err error
	if runs, err = register(reg, runs); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if ratio, err = register(reg, ratio); err != nil {
		return nil, err
	}
	if vehicles, err = register(reg, vehicles); err != nil {
		return nil, err
	}
	return &PromSink{runs: runs, duration: duration, ratio: ratio, vehicles: vehicles}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun counts the run and exposes the final state of each scenario.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	target := string(ev.Target)
	s.runs.WithLabelValues(target, ev.Status).Inc()
	s.duration.WithLabelValues(target).Observe(ev.Duration.Seconds())
	for sc, st := range ev.Final {
		s.ratio.WithLabelValues(target, sc.String()).Set(st.Ratio)
		s.vehicles.WithLabelValues(target, sc.String()).Set(float64(st.Total))
	}
	return nil
}
