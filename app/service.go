// Package app assembles the orchestrator, the optimizer and their
// infrastructure from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kilianp07/microgrid/api"
	_ "github.com/kilianp07/microgrid/app/plugins"
	"github.com/kilianp07/microgrid/config"
	"github.com/kilianp07/microgrid/core/dispatch"
	"github.com/kilianp07/microgrid/core/factory"
	coremetrics "github.com/kilianp07/microgrid/core/metrics"
	"github.com/kilianp07/microgrid/core/model"
	coremon "github.com/kilianp07/microgrid/core/monitoring"
	"github.com/kilianp07/microgrid/core/orchestrator"
	"github.com/kilianp07/microgrid/core/runlog"
	"github.com/kilianp07/microgrid/core/simulation"
	"github.com/kilianp07/microgrid/infra/logger"
	"github.com/kilianp07/microgrid/infra/metrics"
	"github.com/kilianp07/microgrid/infra/monitoring"
	"github.com/kilianp07/microgrid/infra/plant"
	"github.com/kilianp07/microgrid/internal/eventbus"
)

const eventBuffer = 64

// Service owns the long-lived resources shared by runs and the API.
type Service struct {
	cfg    *config.Config
	log    logger.Logger
	sink   coremetrics.MetricsSink
	store  runlog.RunStore
	solver *dispatch.Optimizer
	bus    *eventbus.Bus[orchestrator.WindowEvent]

	collectorDone <-chan struct{}
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	cfg.Log.Apply()
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := runlog.New(cfg.Store)
	if err != nil {
		closeSink(sink)
		return nil, fmt.Errorf("run store: %w", err)
	}

	opts := []dispatch.Option{
		dispatch.WithLogger(logger.New("dispatch")),
		dispatch.WithTolerance(cfg.Dispatch.Tolerance),
	}
	if rec, ok := sink.(coremetrics.DispatchRecorder); ok {
		opts = append(opts, dispatch.WithRecorder(rec))
	}

	s := &Service{
		cfg:    cfg,
		log:    logg,
		sink:   sink,
		store:  store,
		solver: dispatch.NewOptimizer(opts...),
		bus:    eventbus.New[orchestrator.WindowEvent](eventBuffer),
	}
	rec, _ := sink.(metrics.EventRecorder)
	s.collectorDone = metrics.StartEventCollector(context.Background(), s.bus, rec)
	return s, nil
}

// Store exposes the run store.
func (s *Service) Store() runlog.RunStore { return s.store }

// Solve prices p with the configured optimizer.
func (s *Service) Solve(p model.DispatchProblem) (model.DispatchSolution, error) {
	return s.solver.Solve(p)
}

// Problem builds a dispatch problem using the configured costs.
func (s *Service) Problem(demand, solar, batteryMax float64) model.DispatchProblem {
	return s.cfg.Dispatch.Problem(demand, solar, batteryMax)
}

// RunWindows executes the configured window schedule on a fresh simulator
// session and stores the outcome. The run is returned even when it failed.
func (s *Service) RunWindows(ctx context.Context) (*model.SimulationRun, error) {
	windows, err := s.cfg.Windows.Windows()
	if err != nil {
		return nil, err
	}
	sim, err := simulation.NewSimulator(s.simulatorConfig())
	if err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}

	progress := s.bus.Subscribe()
	logged := make(chan struct{})
	go func() {
		defer close(logged)
		for ev := range progress {
			s.logEvent(ev)
		}
	}()

	orch := orchestrator.New(
		orchestrator.WithLogger(logger.New("orchestrator")),
		orchestrator.WithMetrics(s.sink),
		orchestrator.WithEvents(s.bus),
	)
	started := time.Now()
	run, runErr := orch.Run(ctx, simulation.NewSession(sim, simulation.WithSessionLogger(logger.New("simulation"))), windows)
	s.bus.Unsubscribe(progress)
	<-logged

	if run != nil {
		rec := runlog.NewRecord(run, started, time.Now())
		if err := s.store.Append(context.WithoutCancel(ctx), rec); err != nil {
			s.log.Errorf("store run %s: %v", run.ID, err)
			return run, errors.Join(runErr, fmt.Errorf("store run: %w", err))
		}
	}
	return run, runErr
}

// simulatorConfig hands the dispatch costs to the plant unless its own
// section overrides them.
func (s *Service) simulatorConfig() factory.ModuleConfig {
	mc := s.cfg.Simulator
	if mc.Type != plant.Backend {
		return mc
	}
	conf := make(map[string]any, len(mc.Conf)+1)
	for k, v := range mc.Conf {
		conf[k] = v
	}
	if _, ok := conf["dispatch"]; !ok {
		conf["dispatch"] = map[string]any{
			"grid_unit_cost":    s.cfg.Dispatch.Grid(),
			"battery_unit_cost": s.cfg.Dispatch.Battery(),
			"tolerance":         s.cfg.Dispatch.Tolerance,
		}
	}
	return factory.ModuleConfig{Type: mc.Type, Conf: conf}
}

func (s *Service) logEvent(ev orchestrator.WindowEvent) {
	switch ev.Type {
	case orchestrator.EventWindowCompleted:
		fields := map[string]any{"run_id": ev.RunID, "window": ev.Window}
		if ev.Result != nil {
			fields["ticks"] = ev.Result.Ticks()
			fields["terminal_accumulator"] = ev.Result.TerminalAccumulator
		}
		s.log.Debugw("window completed", fields)
	case orchestrator.EventWindowFailed:
		s.log.Warnf("run %s: window %d failed: %v", ev.RunID, ev.Window, ev.Err)
	case orchestrator.EventRunFinished:
		s.log.Infof("run %s finished", ev.RunID)
	}
}

// Serve exposes the HTTP API, and Prometheus on its own address when
// configured, until ctx is canceled.
func (s *Service) Serve(ctx context.Context) error {
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	srv := api.NewServer(s.cfg.API, s.store, s.solver, logger.New("api"))
	return srv.ListenAndServe(ctx)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	<-s.collectorDone
	err := s.store.Close()
	closeSink(s.sink)
	coremon.Flush(2 * time.Second)
	return err
}

func closeSink(sink coremetrics.MetricsSink) {
	if c, ok := sink.(io.Closer); ok {
		_ = c.Close()
	}
}
