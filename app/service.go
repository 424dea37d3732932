// Package app wires configuration, storage, metrics and the HTTP API into a
// runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/evfleet/api/runs"
	apisim "github.com/kilianp07/evfleet/api/simulation"
	"github.com/kilianp07/evfleet/config"
	coremetrics "github.com/kilianp07/evfleet/core/metrics"
	"github.com/kilianp07/evfleet/core/model"
	coremon "github.com/kilianp07/evfleet/core/monitoring"
	"github.com/kilianp07/evfleet/core/runlog"
	"github.com/kilianp07/evfleet/core/simulation"
	corestore "github.com/kilianp07/evfleet/core/store"
	"github.com/kilianp07/evfleet/infra/logger"
	"github.com/kilianp07/evfleet/infra/metrics"
	"github.com/kilianp07/evfleet/infra/monitoring"
	"github.com/kilianp07/evfleet/internal/eventbus"

	// Register storage backends.
	_ "github.com/kilianp07/evfleet/infra/store"
)

// Service holds one simulation per target and the resources they share.
type Service struct {
	Manager *simulation.Manager
	Repo    corestore.Repository
	RunLog  runlog.Store
	Events  *eventbus.Bus[simulation.Notice]
	cfg     *config.Config
	sink    coremetrics.MetricsSink
	log     logger.Logger
}

// New creates a Service from the configuration and discovers the targets.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	repo, err := corestore.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("storage %s: %w", cfg.Storage.Type, err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	rl, err := runlog.Open(runlog.Options{
		Backend:    cfg.RunLog.Backend,
		Path:       cfg.RunLog.Path,
		MaxSizeMB:  cfg.RunLog.MaxSizeMB,
		MaxBackups: cfg.RunLog.MaxBackups,
		MaxAgeDays: cfg.RunLog.MaxAgeDays,
	})
	if err != nil {
		coremetrics.Close(sink)
		_ = repo.Close()
		return nil, fmt.Errorf("run log: %w", err)
	}

	sc := cfg.Simulation
	settings := simulation.Settings{
		StartYear:              sc.StartYear,
		EndYear:                sc.EndYear,
		MaxInitialAge:          sc.MaxInitialAge,
		TotalSeriesID:          sc.TotalSeriesID,
		ElectricSeriesID:       sc.ElectricSeriesID,
		Seed:                   sc.Seed,
		DiscontinuityTolerance: sc.DiscontinuityTolerance,
	}
	targets := make([]model.Target, 0, len(sc.Targets))
	for _, t := range sc.Targets {
		targets = append(targets, model.Target(t))
	}
	events := eventbus.New[simulation.Notice]()
	manager, err := simulation.NewManager(ctx, repo, settings, targets,
		simulation.WithLogger(logger.New("simulation")),
		simulation.WithNotifier(events),
		simulation.WithSink(sink),
		simulation.WithRunLog(rl),
		simulation.WithMonitor(mon),
	)
	if err != nil {
		coremetrics.Close(sink)
		_ = rl.Close()
		_ = repo.Close()
		return nil, fmt.Errorf("simulation manager: %w", err)
	}
	n, err := manager.LoadPersisted(ctx)
	if err != nil {
		logg.Warnf("load persisted results: %v", err)
	}
	logg.Infof("serving %d targets, %d with persisted results", len(manager.Targets()), n)

	return &Service{
		Manager: manager,
		Repo:    repo,
		RunLog:  rl,
		Events:  events,
		cfg:     cfg,
		sink:    sink,
		log:     logg,
	}, nil
}

// Handler returns the HTTP routes of the service.
func (s *Service) Handler() http.Handler {
	api := apisim.NewHandler(s.Manager, s.cfg.HTTP.Token)
	mux := http.NewServeMux()
	mux.Handle("/api/targets", api)
	mux.Handle("/api/targets/", api)
	mux.Handle("/api/runs", runs.NewHandler(s.RunLog, s.cfg.HTTP.Token))
	mux.Handle("/api/events", apisim.NewEventsHandler(s.Events, s.cfg.HTTP.Token))
	return mux
}

// Run serves the API until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if addr := s.cfg.HTTP.PrometheusAddress; addr != "" {
		go func() {
			defer coremon.Recover()
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	srv := &http.Server{Addr: s.cfg.HTTP.Address, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		defer coremon.Recover()
		s.log.Infof("api listening on %s", s.cfg.HTTP.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case <-ctx.Done():
		s.Events.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Close releases the resources held by the service and ends event streams.
func (s *Service) Close() error {
	var errs []error
	s.Events.Close()
	coremetrics.Close(s.sink)
	if err := s.RunLog.Close(); err != nil {
		errs = append(errs, fmt.Errorf("run log: %w", err))
	}
	if err := s.Repo.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
