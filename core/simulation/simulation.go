// Package simulation orchestrates the fleet projection of a target: it loads
// the factor intervals and the historical baseline, runs every scenario and
// keeps the latest result set for the outer surfaces.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/evfleet/core/calibration"
	"github.com/kilianp07/evfleet/core/fleet"
	"github.com/kilianp07/evfleet/core/interpolate"
	"github.com/kilianp07/evfleet/core/logger"
	"github.com/kilianp07/evfleet/core/metrics"
	"github.com/kilianp07/evfleet/core/model"
	"github.com/kilianp07/evfleet/core/monitoring"
	"github.com/kilianp07/evfleet/core/results"
	"github.com/kilianp07/evfleet/core/runlog"
	"github.com/kilianp07/evfleet/core/store"
)

// Repository is the subset of the storage backend a Simulation needs.
type Repository interface {
	store.IntervalStore
	store.SeriesSource
	store.ResultStore
}

// Notice announces a finished run.
type Notice struct {
	RunID  string       `json:"run_id"`
	Target model.Target `json:"target"`
	Status string       `json:"status"`
	Error  string       `json:"error,omitempty"`
	// FinalRatios maps scenario codes to the electric share in percent at
	// the end of the horizon.
	FinalRatios map[string]float64 `json:"final_ratios,omitempty"`
	Time        time.Time          `json:"time"`
}

// Notifier receives a Notice after every run. Publish must not block.
type Notifier interface {
	Publish(Notice)
}

// Simulation runs and serves the projection of one target. Runs and interval
// edits are serialized; reads of the current results never block on a run.
type Simulation struct {
	target   model.Target
	settings Settings
	repo     Repository

	log      logger.Logger
	sink     metrics.MetricsSink
	runlog   runlog.Store
	monitor  monitoring.Monitor
	notifier Notifier
	now      func() time.Time
	newRand  func() *rand.Rand

	mu sync.Mutex

	resMu   sync.RWMutex
	current *model.ResultSet
}

// New creates the simulation of target backed by repo.
func New(target model.Target, settings Settings, repo Repository, opts ...Option) *Simulation {
	s := &Simulation{
		target:   target,
		settings: settings,
		repo:     repo,
		log:      logger.NopLogger{},
		sink:     metrics.NopSink{},
		monitor:  monitoring.NopMonitor{},
		now:      time.Now,
	}
	s.newRand = func() *rand.Rand {
		seed := s.settings.Seed
		if seed == 0 {
			seed = s.now().UnixNano()
		}
		return rand.New(rand.NewSource(seed))
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Target returns the policy goal this simulation projects.
func (s *Simulation) Target() model.Target { return s.target }

// Run recomputes every scenario of the target from the stored intervals and
// history. The current results are replaced only when the run succeeds.
// Sinks, the run log and the notifier are fed after the target lock is
// released.
func (s *Simulation) Run(ctx context.Context) (*model.ResultSet, error) {
	s.mu.Lock()
	started := s.now()
	runID := uuid.NewString()
	rs, err := s.run(ctx, runID, started)
	if err == nil {
		s.resMu.Lock()
		s.current = rs
		s.resMu.Unlock()
	}
	s.mu.Unlock()

	s.report(ctx, runID, started, rs, err)
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func (s *Simulation) run(ctx context.Context, runID string, started time.Time) (*model.ResultSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	intervals, err := s.repo.LoadIntervals(ctx, s.target)
	if err != nil {
		return nil, fmt.Errorf("load intervals of %s: %w", s.target, err)
	}
	if len(intervals) == 0 {
		return nil, fmt.Errorf("%w: no factor intervals for target %s", model.ErrDataUnavailable, s.target)
	}
	ip := interpolate.New(s.settings.StartYear)
	for _, d := range ip.Discontinuities(intervals, s.settings.DiscontinuityTolerance) {
		s.log.Warnf("target %s: %s %s jumps from %g to %g in %d", s.target, d.Scenario, d.Factor, d.End, d.Start, d.Year)
	}
	factors, err := ip.Expand(intervals)
	if err != nil {
		return nil, err
	}

	obs, err := s.repo.LoadObservations(ctx, s.settings.TotalSeriesID, s.settings.ElectricSeriesID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	cal := calibration.Calibrator{
		StartYear:        s.settings.StartYear,
		TotalSeriesID:    s.settings.TotalSeriesID,
		ElectricSeriesID: s.settings.ElectricSeriesID,
		MaxInitialAge:    s.settings.MaxInitialAge,
		Rand:             s.newRand(),
	}
	base, err := cal.Calibrate(obs)
	if err != nil {
		return nil, err
	}

	engine := fleet.NewEngine(s.settings.EndYear, fleet.WithLogger(s.log))
	rs := &model.ResultSet{RunID: runID, Target: s.target, Generated: started}
	for _, sc := range model.Scenarios() {
		sf, ok := factors[sc]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := engine.Simulate(sc, sf, base.Start)
		if err != nil {
			return nil, err
		}
		addHistory(res.Table, base.History, base.Start.Year)
		rs.Scenarios = append(rs.Scenarios, res)
	}
	if len(rs.Scenarios) == 0 {
		return nil, fmt.Errorf("%w: no scenario defined for target %s", model.ErrDataUnavailable, s.target)
	}
	return rs, nil
}

// addHistory copies the observed years before the anchor into t so a chart
// shows history and projection as one line.
func addHistory(t model.Table, history []calibration.Year, anchor int) {
	for _, h := range history {
		if h.Year >= anchor {
			continue
		}
		t.Set(h.Year, model.ColTotal, h.Total)
		t.Set(h.Year, model.ColElectric, h.Electric)
		t.Set(h.Year, model.ColRatio, 100*h.Ratio)
	}
}

func (s *Simulation) report(ctx context.Context, runID string, started time.Time, rs *model.ResultSet, runErr error) {
	elapsed := s.now().Sub(started)
	ev := metrics.RunEvent{
		RunID:    runID,
		Target:   s.target,
		Status:   metrics.StatusOK,
		Duration: elapsed,
		Final:    map[model.Scenario]model.FleetYearState{},
		Time:     started,
	}
	rec := runlog.RunRecord{
		Timestamp:   started,
		RunID:       runID,
		Target:      string(s.target),
		FinalRatios: map[string]float64{},
		DurationMS:  elapsed.Milliseconds(),
	}
	if runErr != nil {
		ev.Status = metrics.StatusError
		ev.Error = runErr.Error()
		rec.Error = runErr.Error()
		s.log.Errorf("run %s of %s failed: %v", runID, s.target, runErr)
		if !errors.Is(runErr, context.Canceled) {
			s.monitor.CaptureException(runErr, map[string]string{"target": string(s.target), "run_id": runID})
		}
	} else {
		for _, r := range rs.Scenarios {
			rec.Scenarios = append(rec.Scenarios, r.Scenario.String())
			if n := len(r.States); n > 0 {
				last := r.States[n-1]
				ev.Final[r.Scenario] = last
				rec.FinalRatios[r.Scenario.String()] = last.Ratio
			}
		}
		s.log.Infof("run %s of %s finished in %s with %d scenarios", runID, s.target, elapsed, len(rs.Scenarios))
	}

	if err := s.sink.RecordRun(ev); err != nil {
		s.log.Warnf("record run metrics: %v", err)
	}
	if rec, ok := s.sink.(metrics.ScenarioStateRecorder); ok && rs != nil {
		for _, r := range rs.Scenarios {
			err := rec.RecordScenarioStates(metrics.ScenarioStateEvent{
				RunID: runID, Target: s.target, Scenario: r.Scenario, States: r.States, Time: started,
			})
			if err != nil {
				s.log.Warnf("record scenario states: %v", err)
			}
		}
	}
	if s.runlog != nil {
		if err := s.runlog.Append(context.WithoutCancel(ctx), rec); err != nil {
			s.log.Warnf("append run log: %v", err)
		}
	}
	if s.notifier != nil {
		s.notifier.Publish(Notice{
			RunID:       runID,
			Target:      s.target,
			Status:      ev.Status,
			Error:       ev.Error,
			FinalRatios: rec.FinalRatios,
			Time:        started,
		})
	}
}

// Intervals returns the stored factor intervals of the target.
func (s *Simulation) Intervals(ctx context.Context) ([]model.FactorInterval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.LoadIntervals(ctx, s.target)
}

// SaveEdits validates intervals and replaces the stored interval set of the
// target. Segments of the same scenario and factor may share a boundary year
// but must not overlap otherwise. Results are not recomputed.
func (s *Simulation) SaveEdits(ctx context.Context, intervals []model.FactorInterval) error {
	clean := make([]model.FactorInterval, len(intervals))
	for i, iv := range intervals {
		if !iv.Scenario.Valid() {
			return &model.IntervalError{Interval: iv, Reason: "unknown scenario"}
		}
		if !iv.Factor.Valid() {
			return &model.IntervalError{Interval: iv, Reason: "unknown factor"}
		}
		iv.Target = s.target
		clean[i] = iv
	}
	if err := interpolate.New(s.settings.StartYear).Overlaps(clean); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.SaveIntervals(ctx, s.target, clean); err != nil {
		return fmt.Errorf("save intervals of %s: %w", s.target, err)
	}
	s.log.Infof("saved %d intervals for %s", len(clean), s.target)
	return nil
}

// Results returns the current result set, or ErrNoResults before the first
// successful run.
func (s *Simulation) Results() (*model.ResultSet, error) {
	s.resMu.RLock()
	defer s.resMu.RUnlock()
	if s.current == nil {
		return nil, fmt.Errorf("%w for target %s", model.ErrNoResults, s.target)
	}
	return s.current, nil
}

// ResultTable returns the wide table of one scenario.
func (s *Simulation) ResultTable(sc model.Scenario) (model.Table, error) {
	rs, err := s.Results()
	if err != nil {
		return nil, err
	}
	r, ok := rs.Scenario(sc)
	if !ok {
		return nil, fmt.Errorf("%w: scenario %s not simulated for %s", model.ErrNoResults, sc, s.target)
	}
	return r.Table, nil
}

// PlotSeries returns the electric ratio of every scenario and year, ordered
// by scenario and year.
func (s *Simulation) PlotSeries() ([]model.PlotPoint, error) {
	rs, err := s.Results()
	if err != nil {
		return nil, err
	}
	var out []model.PlotPoint
	for _, r := range rs.Scenarios {
		for _, y := range r.Table.Years() {
			v, ok := r.Table[y][model.ColRatio]
			if !ok {
				continue
			}
			out = append(out, model.PlotPoint{Year: y, Ratio: v, Scenario: r.Scenario})
		}
	}
	return out, nil
}

// Persist stores the current results in long form, replacing the rows
// previously stored for the target.
func (s *Simulation) Persist(ctx context.Context) error {
	rs, err := s.Results()
	if err != nil {
		return err
	}
	rows := results.Melt(s.target, rs.Scenarios)
	if err := s.repo.SaveResults(ctx, s.target, rows); err != nil {
		return fmt.Errorf("persist results of %s: %w", s.target, err)
	}
	s.log.Infof("persisted %d result rows for %s", len(rows), s.target)
	return nil
}

// LoadPersisted makes the stored results of the target current. They carry
// no run id and no yearly states.
func (s *Simulation) LoadPersisted(ctx context.Context) (*model.ResultSet, error) {
	rows, err := s.repo.LoadResults(ctx, s.target)
	if err != nil {
		return nil, fmt.Errorf("load results of %s: %w", s.target, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: nothing persisted for %s", model.ErrNoResults, s.target)
	}
	rs := &model.ResultSet{Target: s.target, Generated: s.now(), Scenarios: results.ScenarioResults(s.target, rows)}
	s.resMu.Lock()
	s.current = rs
	s.resMu.Unlock()
	return rs, nil
}
