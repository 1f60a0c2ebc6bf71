package dispatch

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	corelogger "github.com/kilianp07/microgrid/core/logger"
	"github.com/kilianp07/microgrid/core/metrics"
	"github.com/kilianp07/microgrid/core/model"
)

const defaultTolerance = 1e-9

// Optimizer allocates grid and battery current at minimum cost. It keeps no
// state between calls and may be shared between goroutines.
type Optimizer struct {
	tol  float64
	log  corelogger.Logger
	sink metrics.DispatchRecorder
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger used for per-solve debug output.
func WithLogger(l corelogger.Logger) Option {
	return func(o *Optimizer) { o.log = corelogger.OrNop(l) }
}

// WithRecorder records every solved problem.
func WithRecorder(r metrics.DispatchRecorder) Option {
	return func(o *Optimizer) { o.sink = r }
}

// WithTolerance sets the numeric tolerance used by the simplex and when
// cleaning solver output.
func WithTolerance(tol float64) Option {
	return func(o *Optimizer) {
		if tol > 0 {
			o.tol = tol
		}
	}
}

// NewOptimizer returns an optimizer with the default tolerance.
func NewOptimizer(opts ...Option) *Optimizer {
	o := &Optimizer{tol: defaultTolerance, log: corelogger.OrNop(nil)}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// simplex points to the LP routine used for each branch. It can be
// overridden in tests to simulate solver failures.
var simplex = func(c []float64, a mat.Matrix, b []float64, tol float64, initialBasic []int) (float64, []float64, error) {
	return lp.Simplex(c, a, b, tol, initialBasic)
}

type branch struct {
	enabled int
	grid    float64
	battery float64
	cost    float64
}

// Solve returns the minimum cost allocation for p. Invalid input yields an
// error wrapping model.ErrConfiguration; an unsatisfiable balance yields a
// solution with Feasible set to false and no error.
func (o *Optimizer) Solve(p model.DispatchProblem) (model.DispatchSolution, error) {
	start := time.Now()
	if err := p.Validate(); err != nil {
		return model.DispatchSolution{}, err
	}
	sol, err := o.solve(p)
	if err != nil {
		o.log.Errorf("dispatch solve failed: %v", err)
		return model.DispatchSolution{}, err
	}
	var reason error
	if !sol.Feasible {
		reason = fmt.Errorf("%w: shortfall %v with battery_max %v", model.ErrInfeasible, p.Shortfall(), p.BatteryMax)
	}
	fields := map[string]any{
		"demand":          p.Demand,
		"solar":           p.SolarAvailable,
		"battery_max":     p.BatteryMax,
		"grid_current":    sol.GridCurrent,
		"battery_current": sol.BatteryCurrent,
		"battery_enabled": sol.BatteryEnabled,
		"total_cost":      sol.TotalCost,
		"feasible":        sol.Feasible,
	}
	if reason != nil {
		fields["reason"] = reason.Error()
	}
	o.log.Debugw("dispatch solved", fields)
	if o.sink != nil {
		rec := metrics.DispatchRecord{Problem: p, Solution: sol, Err: reason, Duration: time.Since(start), Time: start}
		if err := o.sink.RecordDispatch(rec); err != nil {
			o.log.Warnf("record dispatch: %v", err)
		}
	}
	return sol, nil
}

func (o *Optimizer) solve(p model.DispatchProblem) (model.DispatchSolution, error) {
	shortfall := p.Shortfall()
	if shortfall < -o.tol {
		// Surplus solar would need a negative grid or battery current.
		return model.DispatchSolution{}, nil
	}
	if shortfall < 0 {
		shortfall = 0
	}

	var best *branch
	for enabled := 0; enabled <= 1; enabled++ {
		br, err := o.solveBranch(p, shortfall, enabled)
		if errors.Is(err, lp.ErrInfeasible) {
			continue
		}
		if err != nil {
			return model.DispatchSolution{}, fmt.Errorf("battery_enabled=%d: %w", enabled, err)
		}
		if best == nil || br.cost < best.cost-o.tieTolerance(best.cost, br.cost) {
			b := br
			best = &b
		}
	}
	if best == nil {
		return model.DispatchSolution{}, nil
	}
	return model.DispatchSolution{
		GridCurrent:    best.grid,
		BatteryCurrent: best.battery,
		BatteryEnabled: best.enabled,
		TotalCost:      best.cost,
		Feasible:       true,
	}, nil
}

// solveBranch solves the LP obtained by fixing the battery switch. In
// standard form with x = [grid, battery, slack] >= 0:
//
//	min  cg*grid + cb*battery
//	s.t. grid + battery         = shortfall
//	            battery + slack = enabled*batteryMax
//
// Grid and slack form a feasible starting basis whenever shortfall >= 0.
func (o *Optimizer) solveBranch(p model.DispatchProblem, shortfall float64, enabled int) (branch, error) {
	capacity := float64(enabled) * p.BatteryMax
	c := []float64{p.GridUnitCost, p.BatteryUnitCost, 0}
	a := mat.NewDense(2, 3, []float64{
		1, 1, 0,
		0, 1, 1,
	})
	b := []float64{shortfall, capacity}

	_, x, err := simplex(c, a, b, o.tol, []int{0, 2})
	if err != nil {
		return branch{}, err
	}
	if len(x) < 2 {
		return branch{}, fmt.Errorf("solver returned %d values", len(x))
	}

	battery := o.clean(x[1])
	if battery > capacity {
		battery = capacity
	}
	if battery > shortfall {
		battery = shortfall
	}
	// Derive grid from the balance so the equality holds without solver noise.
	grid := shortfall - battery
	if grid < 0 {
		grid = 0
	}
	return branch{
		enabled: enabled,
		grid:    grid,
		battery: battery,
		cost:    p.GridUnitCost*grid + p.BatteryUnitCost*battery,
	}, nil
}

// clean drops negative solver noise. Positive values are kept as is.
func (o *Optimizer) clean(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// tieTolerance scales the tie margin with the compared objectives.
func (o *Optimizer) tieTolerance(a, b float64) float64 {
	return o.tol * math.Max(math.Abs(a), math.Abs(b))
}
