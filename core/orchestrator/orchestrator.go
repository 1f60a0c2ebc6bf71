package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	corelogger "github.com/kilianp07/microgrid/core/logger"
	"github.com/kilianp07/microgrid/core/metrics"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/core/monitoring"
	"github.com/kilianp07/microgrid/core/simulation"
	"github.com/kilianp07/microgrid/internal/eventbus"
)

// Orchestrator drives windows through a simulator session.
type Orchestrator struct {
	log   corelogger.Logger
	sink  metrics.MetricsSink
	bus   *eventbus.Bus[WindowEvent]
	now   func() time.Time
	newID func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l corelogger.Logger) Option {
	return func(o *Orchestrator) { o.log = corelogger.OrNop(l) }
}

// WithMetrics records window and run outcomes to sink.
func WithMetrics(sink metrics.MetricsSink) Option {
	return func(o *Orchestrator) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithEvents publishes progress events on bus.
func WithEvents(bus *eventbus.Bus[WindowEvent]) Option {
	return func(o *Orchestrator) { o.bus = bus }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithRunID overrides run identifier generation.
func WithRunID(gen func() string) Option {
	return func(o *Orchestrator) { o.newID = gen }
}

// New returns an Orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		log:   corelogger.OrNop(nil),
		sink:  metrics.NopSink{},
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes windows in index order on the simulator held by sess. The
// accumulator seed of window 0 is taken from the caller; every later seed is
// the terminal accumulator of the previous window, whatever the caller set.
//
// The returned run always holds the results of the windows that completed.
// On failure the error is a *RunError. The session is released before Run
// returns.
func (o *Orchestrator) Run(ctx context.Context, sess *simulation.Session, windows []model.SimulationWindow) (*model.SimulationRun, error) {
	started := o.now()
	run := &model.SimulationRun{
		ID:      o.newID(),
		Windows: append([]model.SimulationWindow(nil), windows...),
	}

	if err := model.ValidateWindows(windows); err != nil {
		if cerr := sess.Close(); cerr != nil {
			o.log.Warnf("run %s: release simulator: %v", run.ID, cerr)
		}
		return run, o.finish(run, started, &RunError{RunID: run.ID, Window: -1, Err: err})
	}

	o.log.Infof("run %s: starting %d windows, seed accumulator %v", run.ID, len(windows), windows[0].InitialAccumulator)
	err := sess.Use(ctx, func(ctx context.Context, sim simulation.Simulator) error {
		return o.fold(ctx, sim, run)
	})
	return run, o.finish(run, started, o.asRunError(run, err))
}

// fold threads the accumulator through the windows: each step consumes the
// carry produced by the previous one.
func (o *Orchestrator) fold(ctx context.Context, sim simulation.Simulator, run *model.SimulationRun) error {
	carry := run.Windows[0].InitialAccumulator
	for i := range run.Windows {
		if err := ctx.Err(); err != nil {
			return &RunError{RunID: run.ID, Completed: len(run.Results), Window: i, Err: err}
		}
		w := run.Windows[i]
		w.InitialAccumulator = carry
		run.Windows[i] = w

		res, next, err := o.step(ctx, sim, run.ID, w)
		if err != nil {
			o.publish(WindowEvent{Type: EventWindowFailed, RunID: run.ID, Window: i, Err: err, Time: o.now()})
			return &RunError{RunID: run.ID, Completed: len(run.Results), Window: i, Err: err}
		}
		run.Results = append(run.Results, res)
		o.publish(WindowEvent{Type: EventWindowCompleted, RunID: run.ID, Window: i, Result: &run.Results[len(run.Results)-1], Time: o.now()})
		carry = next
	}
	return nil
}

// step configures and invokes the simulator once for w and returns the
// validated result together with the carry for the next window.
func (o *Orchestrator) step(ctx context.Context, sim simulation.Simulator, runID string, w model.SimulationWindow) (model.WindowResult, float64, error) {
	started := o.now()
	o.publish(WindowEvent{Type: EventWindowStarted, RunID: runID, Window: w.Index, Time: started})
	o.log.Debugw("window start", map[string]any{
		"run_id":              runID,
		"window":              w.Index,
		"start_time":          w.StartTime,
		"stop_time":           w.StopTime,
		"demand_selector":     w.DemandSelector,
		"initial_accumulator": w.InitialAccumulator,
	})

	res, err := invoke(ctx, sim, w)
	rec := metrics.WindowRecord{RunID: runID, Window: w.Index, Duration: o.now().Sub(started), Time: started}
	if err != nil {
		rec.Err = err.Error()
		o.recordWindow(rec)
		o.log.Errorf("run %s: window %d failed: %v", runID, w.Index, err)
		return model.WindowResult{}, 0, err
	}
	rec.Ticks = res.Ticks()
	rec.TerminalAccumulator = res.TerminalAccumulator
	o.recordWindow(rec)
	if tr, ok := o.sink.(metrics.TraceRecorder); ok {
		if err := tr.RecordTraces(metrics.TraceRecord{RunID: runID, Window: w, Result: res, Started: started}); err != nil {
			o.log.Warnf("run %s: record traces for window %d: %v", runID, w.Index, err)
		}
	}
	o.log.Infof("run %s: window %d done, %d ticks, load[0]=%v solar[0]=%v battery[0]=%v accumulator %v -> %v",
		runID, w.Index, res.Ticks(), res.Load[0], res.Solar[0], res.Battery[0], w.InitialAccumulator, res.TerminalAccumulator)
	return res, res.TerminalAccumulator, nil
}

func invoke(ctx context.Context, sim simulation.Simulator, w model.SimulationWindow) (model.WindowResult, error) {
	if err := sim.Configure(ctx, simulation.ParamsFor(w)); err != nil {
		return model.WindowResult{}, fmt.Errorf("%w: configure window %d: %w", model.ErrSimulatorFailure, w.Index, err)
	}
	sig, err := sim.Invoke(ctx)
	if err != nil {
		return model.WindowResult{}, fmt.Errorf("%w: invoke window %d: %w", model.ErrSimulatorFailure, w.Index, err)
	}
	res, err := sig.ToResult(w.Index)
	if err != nil {
		return model.WindowResult{}, fmt.Errorf("window %d: %w", w.Index, err)
	}
	return res, nil
}

func (o *Orchestrator) asRunError(run *model.SimulationRun, err error) error {
	if err == nil {
		return nil
	}
	var re *RunError
	if errors.As(err, &re) {
		return re
	}
	if errors.Is(err, simulation.ErrSessionBusy) || errors.Is(err, simulation.ErrSessionClosed) {
		err = fmt.Errorf("%w: %w", model.ErrConfiguration, err)
	}
	return &RunError{RunID: run.ID, Completed: len(run.Results), Window: -1, Err: err}
}

func (o *Orchestrator) finish(run *model.SimulationRun, started time.Time, err error) error {
	run.Err = err
	rec := metrics.RunRecord{
		RunID:     run.ID,
		Windows:   len(run.Windows),
		Completed: len(run.Results),
		Duration:  o.now().Sub(started),
		Time:      started,
	}
	if err != nil {
		rec.ErrorKind = model.ErrorKind(err)
		tags := map[string]string{"run_id": run.ID, "kind": rec.ErrorKind, "completed": strconv.Itoa(rec.Completed)}
		var re *RunError
		if errors.As(err, &re) && re.Window >= 0 {
			tags["window"] = strconv.Itoa(re.Window)
		}
		monitoring.CaptureException(err, tags)
		o.log.Errorf("run %s: stopped after %d/%d windows: %v", run.ID, rec.Completed, rec.Windows, err)
	} else {
		o.log.Infof("run %s: completed %d windows in %s", run.ID, rec.Completed, rec.Duration)
	}
	if rr, ok := o.sink.(metrics.RunRecorder); ok {
		if rerr := rr.RecordRun(rec); rerr != nil {
			o.log.Warnf("run %s: record run: %v", run.ID, rerr)
		}
	}
	o.publish(WindowEvent{Type: EventRunFinished, RunID: run.ID, Window: rec.Completed, Err: err, Time: o.now()})
	return err
}

func (o *Orchestrator) recordWindow(rec metrics.WindowRecord) {
	if err := o.sink.RecordWindow(rec); err != nil {
		o.log.Warnf("run %s: record window %d: %v", rec.RunID, rec.Window, err)
	}
}

func (o *Orchestrator) publish(ev WindowEvent) {
	if o.bus != nil {
		o.bus.Publish(ev)
	}
}
