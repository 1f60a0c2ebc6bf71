// Package simtest provides an in-memory simulator for tests.
package simtest

import (
	"context"
	"errors"
	"sync"

	"github.com/kilianp07/microgrid/core/simulation"
)

// Step returns the signals for one invocation given the parameters the
// simulator was configured with.
type Step func(call int, params simulation.Params) (simulation.Signals, error)

// Scripted is a Simulator driven by a Step function. It records every
// configuration it receives.
type Scripted struct {
	Step        Step
	FinalizeErr error

	mu         sync.Mutex
	configured simulation.Params
	calls      []simulation.Params
	finalized  int
	inFlight   int
	maxFlight  int
}

// Configure stores params for the next Invoke.
func (s *Scripted) Configure(_ context.Context, params simulation.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(simulation.Params, len(params))
	for k, v := range params {
		cp[k] = v
	}
	s.configured = cp
	return nil
}

// Invoke runs the step for the stored configuration.
func (s *Scripted) Invoke(context.Context) (simulation.Signals, error) {
	s.mu.Lock()
	if s.configured == nil {
		s.mu.Unlock()
		return nil, errors.New("invoke before configure")
	}
	params := s.configured
	s.configured = nil
	call := len(s.calls)
	s.calls = append(s.calls, params)
	s.inFlight++
	if s.inFlight > s.maxFlight {
		s.maxFlight = s.inFlight
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()
	if s.Step == nil {
		return Ramp(4, params[simulation.ParamInitialAccumulator], 1), nil
	}
	return s.Step(call, params)
}

// Finalize counts releases.
func (s *Scripted) Finalize() error {
	s.mu.Lock()
	s.finalized++
	s.mu.Unlock()
	return s.FinalizeErr
}

// Calls returns the parameters of every invocation, in order.
func (s *Scripted) Calls() []simulation.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]simulation.Params, len(s.calls))
	copy(out, s.calls)
	return out
}

// Finalized returns how many times Finalize was called.
func (s *Scripted) Finalized() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalized
}

// MaxInFlight returns the highest number of concurrent invocations seen.
func (s *Scripted) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxFlight
}

// Ramp builds n-sample signals whose accumulator starts at seed and grows by
// step each tick.
func Ramp(n int, seed, step float64) simulation.Signals {
	sig := simulation.Signals{
		"load":        make([]float64, n),
		"solar":       make([]float64, n),
		"battery":     make([]float64, n),
		"accumulator": make([]float64, n),
	}
	for i := 0; i < n; i++ {
		sig["load"][i] = 10 + float64(i)
		sig["solar"][i] = 4
		sig["battery"][i] = step
		sig["accumulator"][i] = seed + float64(i+1)*step
	}
	return sig
}
