package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/evfleet/core/metrics"
	"github.com/kilianp07/evfleet/infra/logger"
)

// InfluxSink writes runs and yearly fleet states to an InfluxDB instance
// using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun writes one simulation_run point.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("simulation_run").
		AddTag("target", string(ev.Target)).
		AddTag("status", ev.Status).
		AddTag("run_id", ev.RunID).
		AddField("duration_ms", round3(float64(ev.Duration.Microseconds())/1000)).
		AddField("scenarios", len(ev.Final)).
		SetTime(ev.Time)
	if ev.Error != "" {
		p = p.AddField("error", ev.Error)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordScenarioStates writes one fleet_state point per simulated year.
// Points are stamped with January 1st of their year.
func (s *InfluxSink) RecordScenarioStates(ev coremetrics.ScenarioStateEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(ev.States))
	for _, st := range ev.States {
		p := write.NewPointWithMeasurement("fleet_state").
			AddTag("target", string(ev.Target)).
			AddTag("scenario", ev.Scenario.String()).
			AddTag("run_id", ev.RunID).
			AddField("total", st.Total).
			AddField("electric", st.Electric).
			AddField("combustion", st.Combustion).
			AddField("new_electric", st.NewElectric).
			AddField("new_combustion", st.NewCombustion).
			AddField("retired", st.Retired).
			AddField("removed", st.Removed).
			AddField("mean_age", round3(st.MeanAge)).
			AddField("ratio", round3(st.Ratio)).
			SetTime(time.Date(st.Year, time.January, 1, 0, 0, 0, 0, time.UTC))
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
