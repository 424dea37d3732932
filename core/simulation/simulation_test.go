package simulation

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evfleet/core/metrics"
	"github.com/kilianp07/evfleet/core/model"
	"github.com/kilianp07/evfleet/core/results"
	"github.com/kilianp07/evfleet/core/runlog"
	"github.com/kilianp07/evfleet/core/store"
)

func settings() Settings {
	return Settings{
		StartYear:              2024,
		EndYear:                2030,
		MaxInitialAge:          12,
		TotalSeriesID:          12,
		ElectricSeriesID:       13,
		Seed:                   5,
		DiscontinuityTolerance: 1e-9,
	}
}

func scenarioIntervals(sc model.Scenario, growth, shareFrom, shareTo float64) []model.FactorInterval {
	return []model.FactorInterval{
		{Scenario: sc, Factor: model.FactorGrowth, YearFrom: 0, YearTo: 2030, ValueFrom: growth, ValueTo: growth},
		{Scenario: sc, Factor: model.FactorMaxAge, YearFrom: 0, YearTo: 2030, ValueFrom: 12, ValueTo: 12},
		{Scenario: sc, Factor: model.FactorElectricShare, YearFrom: 0, YearTo: 2030, ValueFrom: shareFrom, ValueTo: shareTo},
	}
}

func seed(t *testing.T, targets ...model.Target) *store.MemoryStore {
	t.Helper()
	ctx := context.Background()
	repo := store.NewMemoryStore()
	var ivs []model.FactorInterval
	ivs = append(ivs, scenarioIntervals(model.ScenarioHigh, 1.02, 0.5, 1)...)
	ivs = append(ivs, scenarioIntervals(model.ScenarioLow, 1, 0.2, 0.5)...)
	for _, target := range targets {
		require.NoError(t, repo.SaveIntervals(ctx, target, ivs))
	}
	require.NoError(t, repo.SaveObservations(ctx, []model.Observation{
		{SeriesID: 12, Year: 2021, Value: 1000},
		{SeriesID: 13, Year: 2021, Value: 10},
		{SeriesID: 12, Year: 2022, Value: 1010},
		{SeriesID: 13, Year: 2022, Value: 30},
		{SeriesID: 12, Year: 2023, Value: 1020},
		{SeriesID: 13, Year: 2023, Value: 51},
	}))
	return repo
}

type recordingSink struct {
	mu     sync.Mutex
	runs   []metrics.RunEvent
	states []metrics.ScenarioStateEvent
}

func (r *recordingSink) RecordRun(ev metrics.RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, ev)
	return nil
}

func (r *recordingSink) RecordScenarioStates(ev metrics.ScenarioStateEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, ev)
	return nil
}

type memRunLog struct {
	mu   sync.Mutex
	recs []runlog.RunRecord
}

func (m *memRunLog) Append(_ context.Context, rec runlog.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}
func (m *memRunLog) Query(context.Context, runlog.Query) ([]runlog.RunRecord, error) {
	return m.recs, nil
}
func (m *memRunLog) Close() error { return nil }

type recordMonitor struct {
	errs []error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = tags
}
func (r *recordMonitor) Recover(any)         {}
func (r *recordMonitor) Flush(time.Duration) {}

func TestRun(t *testing.T) {
	repo := seed(t, "M1")
	sink := &recordingSink{}
	rl := &memRunLog{}
	sim := New("M1", settings(), repo, WithSink(sink), WithRunLog(rl))

	_, err := sim.Results()
	require.ErrorIs(t, err, model.ErrNoResults)

	rs, err := sim.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, rs.RunID)
	require.Len(t, rs.Scenarios, 2)
	assert.Equal(t, model.ScenarioLow, rs.Scenarios[0].Scenario)
	assert.Equal(t, model.ScenarioHigh, rs.Scenarios[1].Scenario)

	for _, r := range rs.Scenarios {
		tbl := r.Table
		assert.Equal(t, []int{2021, 2022, 2023, 2024, 2025, 2026, 2027, 2028, 2029, 2030}, tbl.Years())
		assert.InDelta(t, 1.0, tbl[2021][model.ColRatio], 1e-9, "history ratio in percent")
		assert.InDelta(t, 1010, tbl[2022][model.ColTotal], 1e-9)
		assert.InDelta(t, 1020, tbl[2023][model.ColTotal], 1e-9)
		assert.InDelta(t, 5, tbl[2023][model.ColRatio], 1e-9)
		for y := 2024; y <= 2030; y++ {
			row := tbl[y]
			assert.Equal(t, math.Round(tbl[y-1][model.ColTotal]*row["f1"]), row[model.ColTotal], "year %d", y)
			assert.Equal(t, row[model.ColTotal], row[model.ColElectric]+row[model.ColCombustion], "year %d", y)
			assert.GreaterOrEqual(t, row[model.ColRatio], tbl[y-1][model.ColRatio], "ratio grows in %d", y)
		}
		assert.Len(t, r.States, 8)
	}

	require.Len(t, sink.runs, 1)
	assert.Equal(t, metrics.StatusOK, sink.runs[0].Status)
	assert.Len(t, sink.runs[0].Final, 2)
	assert.Len(t, sink.states, 2)
	require.Len(t, rl.recs, 1)
	assert.Equal(t, rs.RunID, rl.recs[0].RunID)
	assert.Equal(t, []string{"low", "high"}, rl.recs[0].Scenarios)
	assert.False(t, rl.recs[0].Failed())

	got, err := sim.Results()
	require.NoError(t, err)
	assert.Same(t, rs, got)
}

func TestRun_Reproducible(t *testing.T) {
	repo := seed(t, "M1")
	a, err := New("M1", settings(), repo).Run(context.Background())
	require.NoError(t, err)
	b, err := New("M1", settings(), repo).Run(context.Background())
	require.NoError(t, err)
	for i := range a.Scenarios {
		assert.True(t, results.EqualTables(a.Scenarios[i].Table, b.Scenarios[i].Table, 1e-12))
	}
}

func TestRun_FailureKeepsPreviousResults(t *testing.T) {
	ctx := context.Background()
	repo := seed(t, "M1")
	sink := &recordingSink{}
	mon := &recordMonitor{}
	rl := &memRunLog{}
	sim := New("M1", settings(), repo, WithSink(sink), WithMonitor(mon), WithRunLog(rl))
	first, err := sim.Run(ctx)
	require.NoError(t, err)

	broken := scenarioIntervals(model.ScenarioLow, 1, 0.2, 0.5)
	broken[2].YearTo = 2026
	require.NoError(t, sim.SaveEdits(ctx, broken))

	_, err = sim.Run(ctx)
	require.ErrorIs(t, err, model.ErrMissingFactorData)
	var se *model.ScenarioError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, model.ScenarioLow, se.Scenario)
	assert.Equal(t, 2027, se.Year)

	got, err := sim.Results()
	require.NoError(t, err)
	assert.Equal(t, first.RunID, got.RunID)

	require.Len(t, sink.runs, 2)
	assert.Equal(t, metrics.StatusError, sink.runs[1].Status)
	require.Len(t, mon.errs, 1)
	assert.Equal(t, "M1", mon.tags["target"])
	require.Len(t, rl.recs, 2)
	assert.True(t, rl.recs[1].Failed())
}

func TestRun_MissingData(t *testing.T) {
	ctx := context.Background()
	_, err := New("M9", settings(), seed(t, "M1")).Run(ctx)
	assert.ErrorIs(t, err, model.ErrDataUnavailable)

	s := settings()
	s.StartYear = 2026
	_, err = New("M1", s, seed(t, "M1")).Run(ctx)
	assert.ErrorIs(t, err, model.ErrCalibration)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mon := &recordMonitor{}
	_, err := New("M1", settings(), seed(t, "M1"), WithMonitor(mon)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, mon.errs)
}

func TestSaveEdits_Validation(t *testing.T) {
	ctx := context.Background()
	repo := seed(t, "M1")
	sim := New("M1", settings(), repo)

	overlapping := []model.FactorInterval{
		{Scenario: model.ScenarioLow, Factor: model.FactorGrowth, YearFrom: 2024, YearTo: 2030, ValueFrom: 1, ValueTo: 1},
		{Scenario: model.ScenarioLow, Factor: model.FactorGrowth, YearFrom: 2028, YearTo: 2035, ValueFrom: 1, ValueTo: 1},
	}
	assert.ErrorIs(t, sim.SaveEdits(ctx, overlapping), model.ErrInvalidInterval)

	bad := []model.FactorInterval{{Factor: model.FactorGrowth, YearFrom: 2024, YearTo: 2030}}
	assert.ErrorIs(t, sim.SaveEdits(ctx, bad), model.ErrInvalidInterval)

	zero := []model.FactorInterval{{Scenario: model.ScenarioLow, Factor: model.FactorGrowth, YearFrom: 2024, YearTo: 2024}}
	assert.ErrorIs(t, sim.SaveEdits(ctx, zero), model.ErrInvalidInterval)

	before, err := sim.Intervals(ctx)
	require.NoError(t, err)
	assert.Len(t, before, 6, "rejected edits leave the stored set untouched")

	adjacent := []model.FactorInterval{
		{Target: "other", Scenario: model.ScenarioLow, Factor: model.FactorGrowth, YearFrom: 0, YearTo: 2027, ValueFrom: 1, ValueTo: 1.03},
		{Scenario: model.ScenarioLow, Factor: model.FactorGrowth, YearFrom: 2027, YearTo: 2030, ValueFrom: 1.03, ValueTo: 1.03},
	}
	require.NoError(t, sim.SaveEdits(ctx, adjacent))
	after, err := sim.Intervals(ctx)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, model.Target("M1"), after[0].Target)
}

func TestPlotSeries(t *testing.T) {
	sim := New("M1", settings(), seed(t, "M1"))
	_, err := sim.PlotSeries()
	require.ErrorIs(t, err, model.ErrNoResults)
	_, err = sim.Run(context.Background())
	require.NoError(t, err)

	pts, err := sim.PlotSeries()
	require.NoError(t, err)
	require.Len(t, pts, 20)
	assert.Equal(t, 2021, pts[0].Year)
	assert.Equal(t, model.ScenarioLow, pts[0].Scenario)
	assert.InDelta(t, 1, pts[0].Ratio, 1e-9)
	assert.Equal(t, model.ScenarioHigh, pts[19].Scenario)
	assert.Equal(t, 2030, pts[19].Year)

	tbl, err := sim.ResultTable(model.ScenarioHigh)
	require.NoError(t, err)
	assert.InDelta(t, pts[19].Ratio, tbl[2030][model.ColRatio], 1e-12)
	_, err = sim.ResultTable(model.ScenarioMedium)
	assert.ErrorIs(t, err, model.ErrNoResults)
}

func TestPersistRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := seed(t, "M1")
	sim := New("M1", settings(), repo)
	require.ErrorIs(t, sim.Persist(ctx), model.ErrNoResults)
	rs, err := sim.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, sim.Persist(ctx))

	fresh := New("M1", settings(), repo)
	loaded, err := fresh.LoadPersisted(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Scenarios, len(rs.Scenarios))
	for i := range rs.Scenarios {
		assert.Equal(t, rs.Scenarios[i].Scenario, loaded.Scenarios[i].Scenario)
		assert.True(t, results.EqualTables(rs.Scenarios[i].Table, loaded.Scenarios[i].Table, 1e-9))
	}

	_, err = New("M2", settings(), repo).LoadPersisted(ctx)
	assert.ErrorIs(t, err, model.ErrNoResults)
}

func TestConcurrentRuns(t *testing.T) {
	sim := New("M1", settings(), seed(t, "M1"))
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := sim.Run(context.Background())
			errs <- err
		}()
		go func() {
			defer wg.Done()
			if rs, err := sim.Results(); err == nil {
				assert.Len(t, rs.Scenarios, 2)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

type noticeRecorder struct {
	notices []Notice
}

func (n *noticeRecorder) Publish(notice Notice) { n.notices = append(n.notices, notice) }

func TestRun_Notifies(t *testing.T) {
	ctx := context.Background()
	repo := seed(t, "M1")
	rec := &noticeRecorder{}
	sim := New("M1", settings(), repo, WithNotifier(rec))
	rs, err := sim.Run(ctx)
	require.NoError(t, err)

	broken := scenarioIntervals(model.ScenarioLow, 1, 0.2, 0.5)
	broken[0].YearTo = 2026
	require.NoError(t, sim.SaveEdits(ctx, broken))
	_, err = sim.Run(ctx)
	require.Error(t, err)

	require.Len(t, rec.notices, 2)
	assert.Equal(t, rs.RunID, rec.notices[0].RunID)
	assert.Equal(t, metrics.StatusOK, rec.notices[0].Status)
	assert.Contains(t, rec.notices[0].FinalRatios, "high")
	assert.Equal(t, metrics.StatusError, rec.notices[1].Status)
	assert.NotEmpty(t, rec.notices[1].Error)
}

// blockingSink holds RecordRun until release is closed.
type blockingSink struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSink) RecordRun(metrics.RunEvent) error {
	b.entered <- struct{}{}
	<-b.release
	return nil
}

func TestRun_SlowSinkDoesNotBlockEdits(t *testing.T) {
	ctx := context.Background()
	sink := &blockingSink{entered: make(chan struct{}, 1), release: make(chan struct{})}
	sim := New("M1", settings(), seed(t, "M1"), WithSink(sink))

	done := make(chan error, 1)
	go func() {
		_, err := sim.Run(ctx)
		done <- err
	}()
	select {
	case <-sink.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("run never reached the sink")
	}

	edited := scenarioIntervals(model.ScenarioLow, 1, 0.1, 0.4)
	saved := make(chan error, 1)
	go func() { saved <- sim.SaveEdits(ctx, edited) }()
	select {
	case err := <-saved:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("edit blocked by a pending sink")
	}
	rs, err := sim.Results()
	require.NoError(t, err, "results are current before the sink returns")
	assert.Len(t, rs.Scenarios, 2)

	close(sink.release)
	require.NoError(t, <-done)
}
