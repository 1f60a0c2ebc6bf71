package scenarios

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/microgrid/core/dispatch"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/core/orchestrator"
	"github.com/kilianp07/microgrid/core/simulation"
	"github.com/kilianp07/microgrid/core/simulation/simtest"
	"github.com/kilianp07/microgrid/infra/logger"
	"github.com/kilianp07/microgrid/infra/metrics"
)

const tolerance = 1e-6

// RunScenario executes every dispatch and run case of sc.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	opt := dispatch.NewOptimizer(dispatch.WithLogger(logger.NopLogger{}), dispatch.WithRecorder(sink))
	for _, c := range sc.Dispatch {
		t.Run(c.Name, func(t *testing.T) { runDispatch(t, opt, c) })
	}
	for _, c := range sc.Runs {
		t.Run(c.Name, func(t *testing.T) { runWindows(t, sink, c) })
	}
	if n, err := testutil.GatherAndCount(reg, "microgrid_dispatch_total"); err != nil || (len(sc.Dispatch) > 0 && n == 0) {
		t.Errorf("dispatch metrics not recorded")
	}
}

func runDispatch(t *testing.T, opt *dispatch.Optimizer, c DispatchCase) {
	sol, err := opt.Solve(c.Problem.ToModel())
	exp := c.Expected
	if exp.Error != "" {
		if got := model.ErrorKind(err); got != exp.Error {
			t.Fatalf("error kind = %q (%v), want %q", got, err, exp.Error)
		}
		return
	}
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if sol.Feasible != exp.Feasible {
		t.Fatalf("feasible = %v, want %v", sol.Feasible, exp.Feasible)
	}
	if sol.BatteryEnabled != exp.Enabled {
		t.Errorf("battery enabled = %d, want %d", sol.BatteryEnabled, exp.Enabled)
	}
	for name, pair := range map[string][2]float64{
		"grid":    {sol.GridCurrent, exp.Grid},
		"battery": {sol.BatteryCurrent, exp.Battery},
		"cost":    {sol.TotalCost, exp.Cost},
	} {
		if math.Abs(pair[0]-pair[1]) > tolerance {
			t.Errorf("%s = %v, want %v", name, pair[0], pair[1])
		}
	}
}

func script(steps []StepDef) simtest.Step {
	return func(call int, p simulation.Params) (simulation.Signals, error) {
		if call >= len(steps) {
			return nil, errors.New("no scripted step")
		}
		st := steps[call]
		if st.Fail != "" {
			return nil, errors.New(st.Fail)
		}
		var sig simulation.Signals
		if len(st.Accumulator) > 0 {
			sig = simtest.Ramp(len(st.Accumulator), 0, 0)
			sig[model.TraceAccumulator.String()] = append([]float64(nil), st.Accumulator...)
		} else {
			sig = simtest.Ramp(st.Ticks, p[simulation.ParamInitialAccumulator], st.Increment)
		}
		if st.ShortTrace != "" {
			tr := sig[st.ShortTrace]
			if len(tr) > 0 {
				sig[st.ShortTrace] = tr[:len(tr)-1]
			}
		}
		return sig, nil
	}
}

func runWindows(t *testing.T, sink *metrics.PromSink, c RunCase) {
	sim := &simtest.Scripted{Step: script(c.Steps)}
	run, err := orchestrator.New(orchestrator.WithMetrics(sink)).Run(context.Background(), simulation.NewSession(sim), c.ToModel())
	exp := c.Expected
	if got := model.ErrorKind(err); got != exp.Error {
		t.Fatalf("error kind = %q (%v), want %q", got, err, exp.Error)
	}
	if len(run.Results) != exp.Completed {
		t.Fatalf("completed = %d, want %d", len(run.Results), exp.Completed)
	}
	if sim.Finalized() != 1 {
		t.Fatalf("simulator finalized %d times", sim.Finalized())
	}
	calls := sim.Calls()
	for i, want := range exp.Seeds {
		if i >= len(calls) {
			t.Fatalf("window %d never invoked", i)
		}
		if got := calls[i][simulation.ParamInitialAccumulator]; got != want {
			t.Errorf("window %d seed = %v, want %v", i, got, want)
		}
	}
	for i, want := range exp.Terminal {
		if got := run.Results[i].TerminalAccumulator; got != want {
			t.Errorf("window %d terminal = %v, want %v", i, got, want)
		}
	}
}
