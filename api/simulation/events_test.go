package simulation

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coresim "github.com/kilianp07/evfleet/core/simulation"
	"github.com/kilianp07/evfleet/internal/eventbus"
)

func TestEventsHandler_StreamsNotices(t *testing.T) {
	bus := eventbus.New[coresim.Notice]()
	h := NewEventsHandler(bus, "")

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	rr := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rr, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	bus.Publish(coresim.Notice{RunID: "r1", Target: "M1", Status: "ok", FinalRatios: map[string]float64{"low": 42}})
	// buffered notices are still delivered after close
	bus.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return")
	}

	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	body := rr.Body.String()
	assert.Contains(t, body, "event: run\n")
	assert.Contains(t, body, `"run_id":"r1"`)
	assert.Contains(t, body, `"low":42`)
	assert.Equal(t, 0, bus.Subscribers())
}

func TestEventsHandler_BusClosed(t *testing.T) {
	bus := eventbus.New[coresim.Notice]()
	bus.Close()
	rr := httptest.NewRecorder()
	NewEventsHandler(bus, "").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestEventsHandler_Auth(t *testing.T) {
	bus := eventbus.New[coresim.Notice]()
	rr := httptest.NewRecorder()
	NewEventsHandler(bus, "tok").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
