// Package scenarios loads YAML acceptance scenarios for the dispatch
// optimizer and the window orchestrator and runs them.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/microgrid/core/model"
)

// ProblemDef is a dispatch problem as written in a scenario file.
type ProblemDef struct {
	Demand          float64 `yaml:"demand"`
	Solar           float64 `yaml:"solar"`
	BatteryMax      float64 `yaml:"battery_max"`
	GridUnitCost    float64 `yaml:"grid_cost"`
	BatteryUnitCost float64 `yaml:"battery_cost"`
}

func (p ProblemDef) ToModel() model.DispatchProblem {
	return model.DispatchProblem{
		Demand:          p.Demand,
		SolarAvailable:  p.Solar,
		BatteryMax:      p.BatteryMax,
		GridUnitCost:    p.GridUnitCost,
		BatteryUnitCost: p.BatteryUnitCost,
	}
}

// DispatchExpected is the solution a dispatch case must produce. Error holds
// an error kind; when set the other fields are ignored.
type DispatchExpected struct {
	Grid     float64 `yaml:"grid"`
	Battery  float64 `yaml:"battery"`
	Enabled  int     `yaml:"enabled"`
	Cost     float64 `yaml:"cost"`
	Feasible bool    `yaml:"feasible"`
	Error    string  `yaml:"error,omitempty"`
}

type DispatchCase struct {
	Name     string           `yaml:"name"`
	Problem  ProblemDef       `yaml:"problem"`
	Expected DispatchExpected `yaml:"expected"`
}

type WindowDef struct {
	StartTime      float64 `yaml:"start_time"`
	StopTime       float64 `yaml:"stop_time"`
	DemandSelector float64 `yaml:"demand_selector"`
	Accumulator    float64 `yaml:"accumulator,omitempty"`
}

// StepDef scripts one simulator invocation. Accumulator lists the full
// accumulator trace; when empty, Ticks samples growing by Increment from the
// injected seed are produced.
type StepDef struct {
	Ticks       int       `yaml:"ticks"`
	Increment   float64   `yaml:"increment"`
	Accumulator []float64 `yaml:"accumulator,omitempty"`
	Fail        string    `yaml:"fail,omitempty"`
	ShortTrace  string    `yaml:"short_trace,omitempty"`
}

type RunExpected struct {
	Completed int       `yaml:"completed"`
	Error     string    `yaml:"error,omitempty"`
	Seeds     []float64 `yaml:"seeds"`
	Terminal  []float64 `yaml:"terminal"`
}

type RunCase struct {
	Name     string      `yaml:"name"`
	Windows  []WindowDef `yaml:"windows"`
	Steps    []StepDef   `yaml:"steps"`
	Expected RunExpected `yaml:"expected"`
}

func (c RunCase) ToModel() []model.SimulationWindow {
	out := make([]model.SimulationWindow, len(c.Windows))
	for i, w := range c.Windows {
		out[i] = model.SimulationWindow{
			Index:              i,
			StartTime:          w.StartTime,
			StopTime:           w.StopTime,
			DemandSelector:     w.DemandSelector,
			InitialAccumulator: w.Accumulator,
		}
	}
	return out
}

type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Dispatch    []DispatchCase `yaml:"dispatch"`
	Runs        []RunCase      `yaml:"runs"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario has no name", path)
	}
	return &sc, nil
}
