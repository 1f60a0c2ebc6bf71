package simulation

import (
	"errors"
	"math"
	"testing"

	"github.com/kilianp07/microgrid/core/model"
)

func validSignals() Signals {
	return Signals{
		"load":        {1, 2, 3},
		"solar":       {0, 1, 0},
		"battery":     {1, 1, 3},
		"accumulator": {0.1, 0.2, 5.0},
	}
}

func TestSignalsToResult(t *testing.T) {
	res, err := validSignals().ToResult(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Index != 2 {
		t.Fatalf("expected index 2 got %d", res.Index)
	}
	if res.TerminalAccumulator != 5.0 {
		t.Fatalf("expected terminal 5.0 got %v", res.TerminalAccumulator)
	}
	if res.Ticks() != 3 {
		t.Fatalf("expected 3 ticks got %d", res.Ticks())
	}
}

func TestSignalsResultIsCopied(t *testing.T) {
	sig := validSignals()
	res, err := sig.ToResult(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sig["accumulator"][2] = 99
	if res.Accumulator[2] != 5.0 {
		t.Fatalf("result shares memory with simulator output")
	}
}

func TestSignalsValidateFailures(t *testing.T) {
	cases := map[string]func(Signals){
		"missing":  func(s Signals) { delete(s, "solar") },
		"empty":    func(s Signals) { s["battery"] = nil },
		"mismatch": func(s Signals) { s["load"] = []float64{1, 2} },
		"nan":      func(s Signals) { s["accumulator"][1] = math.NaN() },
		"inf":      func(s Signals) { s["load"][0] = math.Inf(-1) },
	}
	for name, mutate := range cases {
		sig := validSignals()
		mutate(sig)
		if _, err := sig.ToResult(0); !errors.Is(err, model.ErrSimulatorFailure) {
			t.Errorf("%s: expected simulator failure, got %v", name, err)
		}
	}
}

func TestParamsFor(t *testing.T) {
	p := ParamsFor(model.SimulationWindow{Index: 1, StartTime: 0, StopTime: 14400, DemandSelector: 28800, InitialAccumulator: 5})
	for name, want := range map[string]float64{
		ParamStartTime:          0,
		ParamStopTime:           14400,
		ParamDemandSelector:     28800,
		ParamInitialAccumulator: 5,
	} {
		got, err := p.Get(name)
		if err != nil || got != want {
			t.Errorf("%s: got %v (%v) want %v", name, got, err, want)
		}
	}
	if _, err := p.Get("missing"); err == nil {
		t.Fatal("expected missing parameter error")
	}
}
