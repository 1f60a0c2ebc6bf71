package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestValidateWindows(t *testing.T) {
	ok := []SimulationWindow{
		{Index: 0, StartTime: 0, StopTime: 10},
		{Index: 1, StartTime: 0, StopTime: 10, DemandSelector: 14400},
	}
	if err := ValidateWindows(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name    string
		windows []SimulationWindow
	}{
		{"empty", nil},
		{"gap", []SimulationWindow{{Index: 0, StopTime: 1}, {Index: 2, StopTime: 1}}},
		{"not zero based", []SimulationWindow{{Index: 1, StopTime: 1}}},
		{"stop before start", []SimulationWindow{{Index: 0, StartTime: 5, StopTime: 5}}},
		{"negative start", []SimulationWindow{{Index: 0, StartTime: -1, StopTime: 5}}},
		{"nan selector", []SimulationWindow{{Index: 0, StopTime: 5, DemandSelector: math.NaN()}}},
	}
	for _, c := range cases {
		err := ValidateWindows(c.windows)
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("%s: expected configuration error, got %v", c.name, err)
		}
	}
}

func TestWindowResultTrace(t *testing.T) {
	r := WindowResult{Load: []float64{1}, Solar: []float64{2}, Battery: []float64{3}, Accumulator: []float64{4}}
	for i, k := range TraceKinds {
		got := r.Trace(k)
		if len(got) != 1 || got[0] != float64(i+1) {
			t.Errorf("%s: unexpected trace %v", k, got)
		}
	}
	if r.Trace("voltage") != nil {
		t.Errorf("unknown kind should return nil")
	}
	if TraceKind("voltage").Valid() {
		t.Errorf("voltage should not be a valid kind")
	}
}

func TestDispatchProblemValidate(t *testing.T) {
	if err := (DispatchProblem{Demand: 20, SolarAvailable: 12, BatteryMax: 10}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := []DispatchProblem{
		{Demand: -1},
		{SolarAvailable: -0.5},
		{BatteryMax: -10},
		{GridUnitCost: math.Inf(1)},
	}
	for _, p := range bad {
		if err := p.Validate(); !errors.Is(err, ErrConfiguration) {
			t.Errorf("%+v: expected configuration error, got %v", p, err)
		}
	}
}

func TestErrorKind(t *testing.T) {
	if ErrorKind(nil) != "" {
		t.Fatal("nil error should have empty kind")
	}
	if got := ErrorKind(errors.Join(errors.New("boom"), ErrSimulatorFailure)); got != "simulator_failure" {
		t.Fatalf("unexpected kind %q", got)
	}
	if got := ErrorKind(errors.New("other")); got != "internal" {
		t.Fatalf("unexpected kind %q", got)
	}
	if got := ErrorKind(fmt.Errorf("window 2: %w", context.Canceled)); got != "canceled" {
		t.Fatalf("unexpected kind %q", got)
	}
}
