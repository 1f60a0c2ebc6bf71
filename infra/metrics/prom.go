package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/microgrid/core/metrics"
)

// PromSink exposes window, run and dispatch outcomes as Prometheus metrics.
type PromSink struct {
	windows     *prometheus.CounterVec
	duration    prometheus.Histogram
	ticks       prometheus.Gauge
	accumulator prometheus.Gauge
	runs        *prometheus.CounterVec
	completed   prometheus.Gauge
	dispatches  *prometheus.CounterVec
	cost        prometheus.Gauge
	events      *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		windows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "microgrid_windows_total",
			Help: "Simulation windows processed, by outcome",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "microgrid_window_duration_seconds",
			Help:    "Wall time spent configuring and invoking the simulator for one window",
			Buckets: prometheus.DefBuckets,
		}),
		ticks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "microgrid_window_ticks",
			Help: "Samples per trace in the last completed window",
		}),
		accumulator: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "microgrid_terminal_accumulator",
			Help: "Battery accumulator at the end of the last completed window",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "microgrid_runs_total",
			Help: "Finished runs, by error kind",
		}, []string{"kind"}),
		completed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "microgrid_run_completed_windows",
			Help: "Windows completed by the last run",
		}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "microgrid_dispatch_total",
			Help: "Dispatch problems solved",
		}, []string{"feasible", "battery_enabled"}),
		cost: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "microgrid_dispatch_cost",
			Help: "Total cost of the last feasible dispatch",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "microgrid_window_events_total",
			Help: "Progress events published by the orchestrator",
		}, []string{"type"}),
	}
	var err error
	if s.windows, err = register(reg, s.windows); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.ticks, err = register(reg, s.ticks); err != nil {
		return nil, err
	}
	if s.accumulator, err = register(reg, s.accumulator); err != nil {
		return nil, err
	}
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.completed, err = register(reg, s.completed); err != nil {
		return nil, err
	}
	if s.dispatches, err = register(reg, s.dispatches); err != nil {
		return nil, err
	}
	if s.cost, err = register(reg, s.cost); err != nil {
		return nil, err
	}
	if s.events, err = register(reg, s.events); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg, reusing the collector already registered under
// the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordWindow counts the window and tracks its size and terminal value.
func (s *PromSink) RecordWindow(r coremetrics.WindowRecord) error {
	s.duration.Observe(r.Duration.Seconds())
	if r.Failed() {
		s.windows.WithLabelValues("failed").Inc()
		return nil
	}
	s.windows.WithLabelValues("completed").Inc()
	s.ticks.Set(float64(r.Ticks))
	s.accumulator.Set(r.TerminalAccumulator)
	return nil
}

// RecordRun counts finished runs.
func (s *PromSink) RecordRun(r coremetrics.RunRecord) error {
	kind := r.ErrorKind
	if kind == "" {
		kind = "ok"
	}
	s.runs.WithLabelValues(kind).Inc()
	s.completed.Set(float64(r.Completed))
	return nil
}

// RecordDispatch counts solved problems by outcome.
func (s *PromSink) RecordDispatch(r coremetrics.DispatchRecord) error {
	s.dispatches.WithLabelValues(strconv.FormatBool(r.Solution.Feasible), strconv.Itoa(r.Solution.BatteryEnabled)).Inc()
	if r.Solution.Feasible {
		s.cost.Set(r.Solution.TotalCost)
	}
	return nil
}

// RecordEvent counts a progress event.
func (s *PromSink) RecordEvent(eventType string) error {
	s.events.WithLabelValues(eventType).Inc()
	return nil
}
