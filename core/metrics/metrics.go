package metrics

import (
	"time"

	"github.com/kilianp07/microgrid/core/model"
)

// WindowRecord summarises one simulation window outcome.
type WindowRecord struct {
	RunID               string
	Window              int
	Ticks               int
	TerminalAccumulator float64
	Duration            time.Duration
	Err                 string
	Time                time.Time
}

// Failed reports whether the window aborted the run.
func (r WindowRecord) Failed() bool { return r.Err != "" }

// MetricsSink records window outcomes.
type MetricsSink interface {
	RecordWindow(rec WindowRecord) error
}

// TraceRecord carries the full traces of a completed window.
type TraceRecord struct {
	RunID   string
	Window  model.SimulationWindow
	Result  model.WindowResult
	Started time.Time
}

// TraceRecorder is implemented by sinks that persist per-tick samples.
type TraceRecorder interface {
	RecordTraces(rec TraceRecord) error
}

// RunRecord summarises a finished or aborted run.
type RunRecord struct {
	RunID     string
	Windows   int
	Completed int
	ErrorKind string
	Duration  time.Duration
	Time      time.Time
}

// RunRecorder is implemented by sinks that track whole runs.
type RunRecorder interface {
	RecordRun(rec RunRecord) error
}

// DispatchRecord captures one optimizer call.
type DispatchRecord struct {
	Problem  model.DispatchProblem
	Solution model.DispatchSolution
	// Err wraps model.ErrInfeasible when the balance could not be met.
	Err      error
	Duration time.Duration
	Time     time.Time
}

// DispatchRecorder is implemented by sinks that track dispatch decisions.
type DispatchRecorder interface {
	RecordDispatch(rec DispatchRecord) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordWindow(WindowRecord) error     { return nil }
func (NopSink) RecordTraces(TraceRecord) error      { return nil }
func (NopSink) RecordRun(RunRecord) error           { return nil }
func (NopSink) RecordDispatch(DispatchRecord) error { return nil }
