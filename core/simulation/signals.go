package simulation

import (
	"fmt"
	"math"

	"github.com/kilianp07/microgrid/core/model"
)

// Signals maps trace names to the samples a simulator produced.
type Signals map[string][]float64

// Validate checks that every required trace is present, non-empty, finite
// and that all traces share the same length.
func (s Signals) Validate() error {
	length := -1
	for _, kind := range model.TraceKinds {
		samples, ok := s[kind.String()]
		if !ok {
			return fmt.Errorf("%w: missing %s trace", model.ErrSimulatorFailure, kind)
		}
		if len(samples) == 0 {
			return fmt.Errorf("%w: empty %s trace", model.ErrSimulatorFailure, kind)
		}
		if length >= 0 && len(samples) != length {
			return fmt.Errorf("%w: %s trace has %d samples, expected %d",
				model.ErrSimulatorFailure, kind, len(samples), length)
		}
		length = len(samples)
		for i, v := range samples {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s sample %d is not finite", model.ErrSimulatorFailure, kind, i)
			}
		}
	}
	return nil
}

// ToResult validates the signals and copies them into a WindowResult for
// the given window index. The terminal accumulator is the last accumulator
// sample, unmodified.
func (s Signals) ToResult(index int) (model.WindowResult, error) {
	if err := s.Validate(); err != nil {
		return model.WindowResult{}, err
	}
	acc := clone(s[model.TraceAccumulator.String()])
	return model.WindowResult{
		Index:               index,
		Load:                clone(s[model.TraceLoad.String()]),
		Solar:               clone(s[model.TraceSolar.String()]),
		Battery:             clone(s[model.TraceBattery.String()]),
		Accumulator:         acc,
		TerminalAccumulator: acc[len(acc)-1],
	}, nil
}

func clone(in []float64) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	return out
}
