package model

import (
	"fmt"
	"math"
)

// DispatchProblem describes one instantaneous grid/battery allocation.
// Currents are in amperes, costs per ampere.
type DispatchProblem struct {
	Demand          float64 `json:"demand"`
	SolarAvailable  float64 `json:"solar_available"`
	BatteryMax      float64 `json:"battery_max"`
	GridUnitCost    float64 `json:"grid_unit_cost"`
	BatteryUnitCost float64 `json:"battery_unit_cost"`
}

// Shortfall is the current that grid and battery must supply together.
func (p DispatchProblem) Shortfall() float64 { return p.Demand - p.SolarAvailable }

// Validate rejects negative or non-finite inputs.
func (p DispatchProblem) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"demand", p.Demand},
		{"solar_available", p.SolarAvailable},
		{"battery_max", p.BatteryMax},
		{"grid_unit_cost", p.GridUnitCost},
		{"battery_unit_cost", p.BatteryUnitCost},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrConfiguration, f.name)
		}
		if f.v < 0 {
			return fmt.Errorf("%w: %s %v is negative", ErrConfiguration, f.name, f.v)
		}
	}
	return nil
}

// DispatchSolution is the optimizer output. When Feasible is false all
// allocations are zero.
type DispatchSolution struct {
	GridCurrent    float64 `json:"grid_current"`
	BatteryCurrent float64 `json:"battery_current"`
	BatteryEnabled int     `json:"battery_enabled"`
	TotalCost      float64 `json:"total_cost"`
	Feasible       bool    `json:"feasible"`
}

// Check verifies the balance and gating invariants of a feasible solution
// against p within tol.
func (s DispatchSolution) Check(p DispatchProblem, tol float64) error {
	if !s.Feasible {
		return nil
	}
	if s.GridCurrent < -tol || s.BatteryCurrent < -tol {
		return fmt.Errorf("negative allocation grid=%v battery=%v", s.GridCurrent, s.BatteryCurrent)
	}
	if s.BatteryEnabled != 0 && s.BatteryEnabled != 1 {
		return fmt.Errorf("battery_enabled %d is not binary", s.BatteryEnabled)
	}
	if d := p.SolarAvailable + s.BatteryCurrent + s.GridCurrent - p.Demand; math.Abs(d) > tol {
		return fmt.Errorf("balance off by %v", d)
	}
	if s.BatteryCurrent > float64(s.BatteryEnabled)*p.BatteryMax+tol {
		return fmt.Errorf("battery current %v exceeds gate %d*%v", s.BatteryCurrent, s.BatteryEnabled, p.BatteryMax)
	}
	return nil
}
