package model

import (
	"context"
	"errors"
)

var (
	// ErrConfiguration marks malformed window sequences or dispatch inputs.
	// These are rejected before any external call and never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrSimulatorFailure marks a simulator invocation error or malformed output.
	ErrSimulatorFailure = errors.New("simulator failure")

	// ErrInfeasible marks a dispatch problem whose balance cannot be met.
	ErrInfeasible = errors.New("dispatch infeasible")
)

// ErrorKind returns a short label for the taxonomy entry err belongs to.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrSimulatorFailure):
		return "simulator_failure"
	case errors.Is(err, ErrInfeasible):
		return "infeasible"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
