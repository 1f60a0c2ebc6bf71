// Package plant is a reference microgrid time stepper. It produces the
// load, solar, battery and accumulator traces a real engine would, so runs
// can be executed without an external simulator.
package plant

import (
	"context"
	"fmt"
	"math"

	"github.com/kilianp07/microgrid/core/dispatch"
	"github.com/kilianp07/microgrid/core/factory"
	corelogger "github.com/kilianp07/microgrid/core/logger"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/core/simulation"
	"github.com/kilianp07/microgrid/infra/logger"
)

// Backend is the simulator registry name of the plant.
const Backend = "plant"

func init() {
	if err := simulation.RegisterBackend(Backend, func(conf map[string]any) (simulation.Simulator, error) {
		var cfg Config
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, fmt.Errorf("%w: plant config: %w", model.ErrConfiguration, err)
		}
		return New(cfg, logger.New("plant"))
	}); err != nil {
		panic(err)
	}
}

// Plant implements simulation.Simulator.
type Plant struct {
	cfg Config
	opt *dispatch.Optimizer
	log corelogger.Logger

	params    simulation.Params
	finalized bool
}

// New validates cfg and returns a plant.
func New(cfg Config, log corelogger.Logger) (*Plant, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Plant{cfg: cfg, log: corelogger.OrNop(log)}
	if cfg.UseOptimizer {
		p.opt = dispatch.NewOptimizer(dispatch.WithLogger(p.log), dispatch.WithTolerance(cfg.Dispatch.Tolerance))
	}
	return p, nil
}

// Configure stores the window parameters.
func (p *Plant) Configure(_ context.Context, params simulation.Params) error {
	if p.finalized {
		return fmt.Errorf("plant finalized")
	}
	for _, name := range []string{
		simulation.ParamStartTime, simulation.ParamStopTime,
		simulation.ParamDemandSelector, simulation.ParamInitialAccumulator,
	} {
		if _, err := params.Get(name); err != nil {
			return err
		}
	}
	p.params = params
	return nil
}

// Invoke steps the plant from start_time to stop_time. Samples are taken
// every StepSeconds, including both bounds when they fall on the grid.
func (p *Plant) Invoke(ctx context.Context) (simulation.Signals, error) {
	if p.params == nil {
		return nil, fmt.Errorf("invoke before configure")
	}
	start := p.params[simulation.ParamStartTime]
	stop := p.params[simulation.ParamStopTime]
	offset := p.params[simulation.ParamDemandSelector]
	bat := &Battery{RatedCurrent: p.cfg.BatteryRated, Accumulator: p.params[simulation.ParamInitialAccumulator]}
	p.params = nil

	dt := p.cfg.StepSeconds
	span := math.Floor((stop - start) / dt)
	if !(span >= 0 && span < float64(p.cfg.MaxTicks)) {
		return nil, fmt.Errorf("%w: window [%v, %v] needs more than %d ticks of %vs",
			model.ErrSimulatorFailure, start, stop, p.cfg.MaxTicks, dt)
	}
	n := int(span) + 1
	sig := simulation.Signals{
		model.TraceLoad.String():        make([]float64, n),
		model.TraceSolar.String():       make([]float64, n),
		model.TraceBattery.String():     make([]float64, n),
		model.TraceAccumulator.String(): make([]float64, n),
	}
	for i := 0; i < n; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		t := offset + start + float64(i)*dt
		load, solar := p.cfg.loadAt(t), p.cfg.solarAt(t)
		want, err := p.batteryRequest(load, solar)
		if err != nil {
			return nil, err
		}
		sig[model.TraceLoad.String()][i] = load
		sig[model.TraceSolar.String()][i] = solar
		sig[model.TraceBattery.String()][i] = bat.Apply(want, dt)
		sig[model.TraceAccumulator.String()][i] = bat.Accumulator
	}
	p.log.Debugf("plant: %d ticks from %v to %v (selector %v), accumulator %v", n, start, stop, offset, bat.Accumulator)
	return sig, nil
}

// batteryRequest chooses the battery current for one tick. Surplus solar
// charges the battery; a deficit is covered by the battery, by the
// optimizer's choice when enabled.
func (p *Plant) batteryRequest(load, solar float64) (float64, error) {
	deficit := load - solar
	if deficit <= 0 || p.opt == nil {
		return deficit, nil
	}
	sol, err := p.opt.Solve(p.cfg.Dispatch.Problem(load, solar, p.cfg.BatteryRated))
	if err != nil {
		return 0, err
	}
	return sol.BatteryCurrent, nil
}

// Finalize releases the plant.
func (p *Plant) Finalize() error {
	p.finalized = true
	p.params = nil
	return nil
}
