package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/evfleet/core/metrics"
	"github.com/kilianp07/evfleet/core/model"
)

type bodyRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (b *bodyRecorder) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.bodies = append(b.bodies, strings.TrimSpace(string(data)))
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInfluxSink_RecordRun(t *testing.T) {
	rec := &bodyRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	ev := coremetrics.RunEvent{RunID: "r1", Target: "M1", Status: coremetrics.StatusOK, Duration: 1500 * time.Microsecond,
		Final: map[model.Scenario]model.FleetYearState{model.ScenarioLow: {}}, Time: now}
	require.NoError(t, sink.RecordRun(ev))

	p := write.NewPointWithMeasurement("simulation_run").
		AddTag("target", "M1").
		AddTag("status", "ok").
		AddTag("run_id", "r1").
		AddField("duration_ms", 1.5).
		AddField("scenarios", 1).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	require.Len(t, rec.bodies, 1)
	assert.Equal(t, expected, rec.bodies[0])
}

func TestInfluxSink_RecordScenarioStates(t *testing.T) {
	rec := &bodyRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()

	ev := coremetrics.ScenarioStateEvent{RunID: "r1", Target: "M1", Scenario: model.ScenarioHigh,
		States: []model.FleetYearState{
			{Year: 2024, Total: 1010, Electric: 60, Combustion: 950, MeanAge: 6.12345, Ratio: 100 * 60.0 / 1010},
			{Year: 2025, Total: 1020, Electric: 80, Combustion: 940, Ratio: 100 * 80.0 / 1020},
		}}
	require.NoError(t, sink.RecordScenarioStates(ev))
	require.Len(t, rec.bodies, 1)
	lines := strings.Split(rec.bodies[0], "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "fleet_state,"))
	for _, tag := range []string{"run_id=r1", "scenario=high", "target=M1"} {
		assert.Contains(t, lines[0], tag)
	}
	assert.Contains(t, lines[0], "mean_age=6.123")
	assert.Contains(t, lines[0], "total=1010i")
	assert.Contains(t, lines[1], "electric=80i")

	require.NoError(t, sink.RecordScenarioStates(coremetrics.ScenarioStateEvent{Target: "M1"}))
	assert.Len(t, rec.bodies, 1)
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	_, isInflux := sink.(*InfluxSink)
	assert.False(t, isInflux, "expected NopSink on failing health check")
	assert.True(t, called, "health endpoint not called")
}
