package simulation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evfleet/core/model"
	coresim "github.com/kilianp07/evfleet/core/simulation"
	"github.com/kilianp07/evfleet/core/store"
)

func newTestHandler(t *testing.T, token string) (http.Handler, *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	repo := store.NewMemoryStore()
	var ivs []model.FactorInterval
	for _, sc := range model.Scenarios() {
		ivs = append(ivs,
			model.FactorInterval{Scenario: sc, Factor: model.FactorGrowth, YearFrom: 0, YearTo: 2030, ValueFrom: 1.01, ValueTo: 1.01},
			model.FactorInterval{Scenario: sc, Factor: model.FactorMaxAge, YearFrom: 0, YearTo: 2030, ValueFrom: 12, ValueTo: 12},
			model.FactorInterval{Scenario: sc, Factor: model.FactorElectricShare, YearFrom: 0, YearTo: 2030, ValueFrom: 0.3, ValueTo: 0.6},
		)
	}
	require.NoError(t, repo.SaveIntervals(ctx, "M1", ivs))
	require.NoError(t, repo.SaveObservations(ctx, []model.Observation{
		{SeriesID: 12, Year: 2022, Value: 1000},
		{SeriesID: 13, Year: 2022, Value: 20},
		{SeriesID: 12, Year: 2023, Value: 1010},
		{SeriesID: 13, Year: 2023, Value: 40},
	}))
	settings := coresim.Settings{
		StartYear: 2024, EndYear: 2030, MaxInitialAge: 12,
		TotalSeriesID: 12, ElectricSeriesID: 13, Seed: 3, DiscontinuityTolerance: 1e-9,
	}
	m, err := coresim.NewManager(ctx, repo, settings, nil)
	require.NoError(t, err)
	return NewHandler(m, token), repo
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestTargets(t *testing.T) {
	h, _ := newTestHandler(t, "")
	rr := do(h, http.MethodGet, "/api/targets", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var got []string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, []string{"M1"}, got)
}

func TestUnknownTarget(t *testing.T) {
	h, _ := newTestHandler(t, "")
	rr := do(h, http.MethodGet, "/api/targets/XX/intervals", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "unknown target")
}

func TestResultsBeforeRun(t *testing.T) {
	h, _ := newTestHandler(t, "")
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/targets/M1/results", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/targets/M1/plot", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/api/targets/M1/persist", "").Code)
}

func TestRunAndQuery(t *testing.T) {
	h, repo := newTestHandler(t, "")
	rr := do(h, http.MethodPost, "/api/targets/M1/run", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var rs model.ResultSet
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rs))
	assert.Equal(t, model.Target("M1"), rs.Target)
	assert.Len(t, rs.Scenarios, len(model.Scenarios()))

	rr = do(h, http.MethodGet, "/api/targets/M1/results?scenario=low", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var tbl model.Table
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tbl))
	assert.Contains(t, tbl, 2030)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/api/targets/M1/results?scenario=bogus", "").Code)

	rr = do(h, http.MethodGet, "/api/targets/M1/plot", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var pts []model.PlotPoint
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pts))
	assert.NotEmpty(t, pts)

	rr = do(h, http.MethodGet, "/api/targets/M1/chart", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "echarts")

	rr = do(h, http.MethodPost, "/api/targets/M1/persist", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	rows, err := repo.LoadResults(context.Background(), "M1")
	require.NoError(t, err)
	assert.NotEmpty(t, rows)
}

func TestIntervals_GetAndPut(t *testing.T) {
	h, repo := newTestHandler(t, "")
	rr := do(h, http.MethodGet, "/api/targets/M1/intervals", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var ivs []model.FactorInterval
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ivs))
	require.Len(t, ivs, 3*len(model.Scenarios()))
	assert.Contains(t, rr.Body.String(), `"factor":"f1"`)

	ivs[0].ValueTo = 1.05
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(ivs))
	rr = do(h, http.MethodPut, "/api/targets/M1/intervals", buf.String())
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())
	stored, err := repo.LoadIntervals(context.Background(), "M1")
	require.NoError(t, err)
	assert.InDelta(t, 1.05, stored[0].ValueTo, 1e-12)

	rr = do(h, http.MethodPut, "/api/targets/M1/intervals", `[{"scenario":"nope","factor":"f1"}]`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	overlap := `[{"scenario":"low","factor":"f1","year_from":2024,"year_to":2030,"value_from":1,"value_to":1},
	{"scenario":"low","factor":"f1","year_from":2026,"year_to":2028,"value_from":1,"value_to":1}]`
	rr = do(h, http.MethodPut, "/api/targets/M1/intervals", overlap)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid interval")
}

func TestRequireToken(t *testing.T) {
	h, _ := newTestHandler(t, "secret")
	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/api/targets", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/targets", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t, "")
	assert.Equal(t, http.StatusMethodNotAllowed, do(h, http.MethodDelete, "/api/targets/M1/run", "").Code)
}
