package dispatch

import (
	"fmt"

	"github.com/kilianp07/microgrid/core/model"
)

const (
	defaultGridUnitCost    = 0.5
	defaultBatteryUnitCost = 0.2
)

// Config holds the cost coefficients applied to dispatch problems. A nil
// cost is unset; an explicit zero is a free source.
type Config struct {
	GridUnitCost    *float64 `json:"grid_unit_cost"`
	BatteryUnitCost *float64 `json:"battery_unit_cost"`
	Tolerance       float64  `json:"tolerance"`
}

// Cost returns a pointer to v for building a Config literal.
func Cost(v float64) *float64 { return &v }

// SetDefaults applies the reference tariff to the costs left unset.
func (c *Config) SetDefaults() {
	if c.GridUnitCost == nil {
		c.GridUnitCost = Cost(defaultGridUnitCost)
	}
	if c.BatteryUnitCost == nil {
		c.BatteryUnitCost = Cost(defaultBatteryUnitCost)
	}
	if c.Tolerance <= 0 {
		c.Tolerance = defaultTolerance
	}
}

// Validate rejects negative costs.
func (c Config) Validate() error {
	if c.Grid() < 0 || c.Battery() < 0 {
		return fmt.Errorf("%w: dispatch costs must be non-negative", model.ErrConfiguration)
	}
	return nil
}

// Problem builds a dispatch problem priced with the configured costs.
func (c Config) Problem(demand, solar, batteryMax float64) model.DispatchProblem {
	return model.DispatchProblem{
		Demand:          demand,
		SolarAvailable:  solar,
		BatteryMax:      batteryMax,
		GridUnitCost:    c.Grid(),
		BatteryUnitCost: c.Battery(),
	}
}

// Grid returns the grid unit cost, or the reference value when unset.
func (c Config) Grid() float64 {
	if c.GridUnitCost == nil {
		return defaultGridUnitCost
	}
	return *c.GridUnitCost
}

// Battery returns the battery unit cost, or the reference value when unset.
func (c Config) Battery() float64 {
	if c.BatteryUnitCost == nil {
		return defaultBatteryUnitCost
	}
	return *c.BatteryUnitCost
}
