// Package metrics defines the sinks simulation runs are reported to. Sinks
// like the Prometheus, InfluxDB and MQTT implementations in infra/metrics
// record one RunEvent per run and, when they implement ScenarioStateRecorder,
// the yearly fleet states of each scenario. NewMetricsSink returns a
// MultiSink automatically when multiple sinks are configured.
package metrics
