package simulation

import (
	"context"
	"fmt"

	"github.com/kilianp07/microgrid/core/factory"
	"github.com/kilianp07/microgrid/core/model"
)

// Parameter names understood by every simulator backend.
const (
	ParamStartTime          = "start_time"
	ParamStopTime           = "stop_time"
	ParamDemandSelector     = "demand_selector"
	ParamInitialAccumulator = "initial_accumulator"
)

// Params is the set of named values a window is configured with.
type Params map[string]float64

// ParamsFor builds the simulator configuration of a window.
func ParamsFor(w model.SimulationWindow) Params {
	return Params{
		ParamStartTime:          w.StartTime,
		ParamStopTime:           w.StopTime,
		ParamDemandSelector:     w.DemandSelector,
		ParamInitialAccumulator: w.InitialAccumulator,
	}
}

// Get returns the named value or an error when it is missing.
func (p Params) Get(name string) (float64, error) {
	v, ok := p[name]
	if !ok {
		return 0, fmt.Errorf("missing parameter %s", name)
	}
	return v, nil
}

// Simulator is a stateful external time stepper. Configure is called before
// every Invoke; Finalize releases it and is called exactly once.
type Simulator interface {
	Configure(ctx context.Context, params Params) error
	Invoke(ctx context.Context) (Signals, error)
	Finalize() error
}

var backends = factory.NewRegistry[Simulator]()

// RegisterBackend makes a simulator implementation available by name.
func RegisterBackend(name string, f factory.Factory[Simulator]) error {
	return backends.Register(name, f)
}

// NewSimulator instantiates the backend described by cfg.
func NewSimulator(cfg factory.ModuleConfig) (Simulator, error) {
	return backends.Create(cfg)
}

// Backends lists the registered backend names.
func Backends() []string { return backends.Types() }
