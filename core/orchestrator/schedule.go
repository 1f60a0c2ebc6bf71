package orchestrator

import (
	"fmt"
	"math"

	"github.com/kilianp07/microgrid/core/model"
)

const (
	defaultWindowCount    = 6
	defaultWindowDuration = 14400.0
)

// ScheduleConfig generates a window sequence. When Selectors is set it
// overrides Count and the offset/step pair.
type ScheduleConfig struct {
	Count          int       `json:"count"`
	StartTime      float64   `json:"start_time"`
	Duration       float64   `json:"duration"`
	SelectorOffset float64   `json:"selector_offset"`
	SelectorStep   float64   `json:"selector_step"`
	Seed           float64   `json:"seed"`
	Selectors      []float64 `json:"selectors"`
}

// SetDefaults fills the six four-hour windows of one day.
func (c *ScheduleConfig) SetDefaults() {
	if c.Count == 0 && len(c.Selectors) == 0 {
		c.Count = defaultWindowCount
	}
	if c.Duration == 0 {
		c.Duration = defaultWindowDuration
	}
	if c.SelectorStep == 0 {
		c.SelectorStep = c.Duration
	}
}

// Validate checks the generator parameters.
func (c ScheduleConfig) Validate() error {
	if len(c.Selectors) == 0 && c.Count <= 0 {
		return fmt.Errorf("%w: window count must be positive", model.ErrConfiguration)
	}
	if c.StartTime < 0 || math.IsNaN(c.StartTime) {
		return fmt.Errorf("%w: start_time must be non-negative", model.ErrConfiguration)
	}
	if c.Duration <= 0 || math.IsInf(c.Duration, 0) || math.IsNaN(c.Duration) {
		return fmt.Errorf("%w: window duration must be positive", model.ErrConfiguration)
	}
	if math.IsNaN(c.Seed) || math.IsInf(c.Seed, 0) {
		return fmt.Errorf("%w: seed must be finite", model.ErrConfiguration)
	}
	return nil
}

// Windows builds the sequence. Every window runs over
// [StartTime, StartTime+Duration]; the demand selector moves the load
// profile instead of the simulated clock.
func (c ScheduleConfig) Windows() ([]model.SimulationWindow, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	selectors := c.Selectors
	if len(selectors) == 0 {
		selectors = make([]float64, c.Count)
		for i := range selectors {
			selectors[i] = c.SelectorOffset + float64(i)*c.SelectorStep
		}
	}
	windows := make([]model.SimulationWindow, len(selectors))
	for i, sel := range selectors {
		windows[i] = model.SimulationWindow{
			Index:          i,
			StartTime:      c.StartTime,
			StopTime:       c.StartTime + c.Duration,
			DemandSelector: sel,
		}
	}
	windows[0].InitialAccumulator = c.Seed
	return windows, model.ValidateWindows(windows)
}
