package model

import (
	"fmt"
	"math"
)

// TraceKind names one of the signal traces a simulation window produces.
type TraceKind string

const (
	TraceLoad        TraceKind = "load"
	TraceSolar       TraceKind = "solar"
	TraceBattery     TraceKind = "battery"
	TraceAccumulator TraceKind = "accumulator"
)

// TraceKinds lists every trace a window result carries, in reporting order.
var TraceKinds = []TraceKind{TraceLoad, TraceSolar, TraceBattery, TraceAccumulator}

// String returns the trace name.
func (k TraceKind) String() string { return string(k) }

// Valid reports whether k is one of the known trace kinds.
func (k TraceKind) Valid() bool {
	for _, known := range TraceKinds {
		if k == known {
			return true
		}
	}
	return false
}

// SimulationWindow is one scheduled run of the simulator.
// Times are expressed in the simulator's own time unit.
type SimulationWindow struct {
	Index              int     `json:"index"`
	StartTime          float64 `json:"start_time"`
	StopTime           float64 `json:"stop_time"`
	DemandSelector     float64 `json:"demand_selector"`
	InitialAccumulator float64 `json:"initial_accumulator"`
}

// Validate checks the time bounds of a single window.
func (w SimulationWindow) Validate() error {
	if math.IsNaN(w.StartTime) || math.IsNaN(w.StopTime) || math.IsInf(w.StartTime, 0) || math.IsInf(w.StopTime, 0) {
		return fmt.Errorf("%w: window %d has non-finite bounds", ErrConfiguration, w.Index)
	}
	if w.StartTime < 0 {
		return fmt.Errorf("%w: window %d start_time %v is negative", ErrConfiguration, w.Index, w.StartTime)
	}
	if w.StopTime <= w.StartTime {
		return fmt.Errorf("%w: window %d stop_time %v must be greater than start_time %v",
			ErrConfiguration, w.Index, w.StopTime, w.StartTime)
	}
	if math.IsNaN(w.DemandSelector) || math.IsInf(w.DemandSelector, 0) {
		return fmt.Errorf("%w: window %d has non-finite demand selector", ErrConfiguration, w.Index)
	}
	return nil
}

// ValidateWindows checks that the sequence is non-empty, that indices are
// contiguous from zero and that every window has valid bounds.
func ValidateWindows(windows []SimulationWindow) error {
	if len(windows) == 0 {
		return fmt.Errorf("%w: no windows", ErrConfiguration)
	}
	for i, w := range windows {
		if w.Index != i {
			return fmt.Errorf("%w: window at position %d has index %d", ErrConfiguration, i, w.Index)
		}
		if err := w.Validate(); err != nil {
			return err
		}
	}
	if math.IsNaN(windows[0].InitialAccumulator) || math.IsInf(windows[0].InitialAccumulator, 0) {
		return fmt.Errorf("%w: non-finite accumulator seed", ErrConfiguration)
	}
	return nil
}

// WindowResult holds the traces produced by one simulator invocation.
// All traces have the same length, one sample per simulation tick.
type WindowResult struct {
	Index               int       `json:"index"`
	Load                []float64 `json:"load"`
	Solar               []float64 `json:"solar"`
	Battery             []float64 `json:"battery"`
	Accumulator         []float64 `json:"accumulator"`
	TerminalAccumulator float64   `json:"terminal_accumulator"`
}

// Trace returns the samples for the given kind, or nil for an unknown kind.
func (r WindowResult) Trace(kind TraceKind) []float64 {
	switch kind {
	case TraceLoad:
		return r.Load
	case TraceSolar:
		return r.Solar
	case TraceBattery:
		return r.Battery
	case TraceAccumulator:
		return r.Accumulator
	default:
		return nil
	}
}

// Ticks returns the number of samples in each trace.
func (r WindowResult) Ticks() int { return len(r.Accumulator) }

// SimulationRun is the full ordered sequence of windows and the results of
// those that completed.
type SimulationRun struct {
	ID      string             `json:"id"`
	Windows []SimulationWindow `json:"windows"`
	Results []WindowResult     `json:"results"`
	// Err is the reason the run stopped early, nil when Done.
	Err error `json:"-"`
}

// Completed returns how many windows finished successfully.
func (r *SimulationRun) Completed() int {
	if r == nil {
		return 0
	}
	return len(r.Results)
}

// Done reports whether every scheduled window produced a result.
func (r *SimulationRun) Done() bool {
	return r != nil && len(r.Windows) > 0 && len(r.Results) == len(r.Windows)
}
