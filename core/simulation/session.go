package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	corelogger "github.com/kilianp07/microgrid/core/logger"
	"github.com/kilianp07/microgrid/core/model"
)

var (
	// ErrSessionBusy is returned when a session is used by two runs at once.
	ErrSessionBusy = errors.New("simulation session already in use")
	// ErrSessionClosed is returned when a finalized session is used again.
	ErrSessionClosed = errors.New("simulation session finalized")
)

// Session owns a simulator for exactly one run. The simulator is finalized
// when the run returns, whatever the outcome.
type Session struct {
	sim Simulator
	log corelogger.Logger

	mu     sync.Mutex
	busy   bool
	closed bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the logger used for finalize failures that cannot be
// returned.
func WithSessionLogger(l corelogger.Logger) SessionOption {
	return func(s *Session) { s.log = corelogger.OrNop(l) }
}

// NewSession wraps sim. The session takes ownership of it.
func NewSession(sim Simulator, opts ...SessionOption) *Session {
	s := &Session{sim: sim, log: corelogger.OrNop(nil)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Use acquires the simulator, calls fn and finalizes the simulator on every
// exit path, including panics. A finalize error is returned only when fn
// succeeded; otherwise it is logged.
func (s *Session) Use(ctx context.Context, fn func(ctx context.Context, sim Simulator) error) (err error) {
	if s == nil || s.sim == nil {
		return fmt.Errorf("%w: nil simulator", model.ErrConfiguration)
	}
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrSessionClosed
	case s.busy:
		s.mu.Unlock()
		return ErrSessionBusy
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		ferr := s.sim.Finalize()
		s.mu.Lock()
		s.busy = false
		s.closed = true
		s.mu.Unlock()
		switch {
		case ferr == nil:
		case err == nil:
			err = &FinalizeError{Err: ferr}
		default:
			s.log.Warnf("finalize simulator after failed run: %v", ferr)
		}
	}()
	return fn(ctx, s.sim)
}

// Close finalizes a session that was never used. It is a no-op once the
// simulator has been released.
func (s *Session) Close() error {
	if s == nil || s.sim == nil {
		return nil
	}
	s.mu.Lock()
	if s.closed || s.busy {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.sim.Finalize()
}

// Closed reports whether the simulator has been finalized.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// FinalizeError reports that releasing the simulator failed after a
// successful run.
type FinalizeError struct {
	Err error
}

func (e *FinalizeError) Error() string { return "finalize simulator: " + e.Err.Error() }

func (e *FinalizeError) Unwrap() []error { return []error{model.ErrSimulatorFailure, e.Err} }
