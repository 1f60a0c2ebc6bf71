package plant

import (
	"fmt"

	"github.com/kilianp07/microgrid/core/dispatch"
	"github.com/kilianp07/microgrid/core/model"
)

// Config describes the reference microgrid. Currents are in amperes and
// times in seconds.
type Config struct {
	StepSeconds  float64 `json:"step_seconds"`
	Period       float64 `json:"period"`
	BaseLoad     float64 `json:"base_load"`
	PeakLoad     float64 `json:"peak_load"`
	PeakLoadHour float64 `json:"peak_load_hour"`
	PeakSolar    float64 `json:"peak_solar"`
	SunriseHour  float64 `json:"sunrise_hour"`
	SunsetHour   float64 `json:"sunset_hour"`
	BatteryRated float64 `json:"battery_rated"`
	// MaxTicks bounds the samples produced by a single invocation.
	MaxTicks int `json:"max_ticks"`
	// UseOptimizer lets the dispatch optimizer pick the battery current of
	// each tick instead of the greedy rule.
	UseOptimizer bool            `json:"use_optimizer"`
	Dispatch     dispatch.Config `json:"dispatch"`
}

// defaultMaxTicks covers a year at the default one minute step.
const defaultMaxTicks = 1 << 20

// SetDefaults applies the small-scale microgrid reference values.
func (c *Config) SetDefaults() {
	if c.StepSeconds == 0 {
		c.StepSeconds = 60
	}
	if c.Period == 0 {
		c.Period = 86400
	}
	if c.BaseLoad == 0 && c.PeakLoad == 0 {
		c.BaseLoad = 8
		c.PeakLoad = 20
	}
	if c.PeakLoadHour == 0 {
		c.PeakLoadHour = 19
	}
	if c.PeakSolar == 0 {
		c.PeakSolar = 12
	}
	if c.SunriseHour == 0 && c.SunsetHour == 0 {
		c.SunriseHour = 6
		c.SunsetHour = 18
	}
	if c.BatteryRated == 0 {
		c.BatteryRated = 10
	}
	if c.MaxTicks == 0 {
		c.MaxTicks = defaultMaxTicks
	}
	c.Dispatch.SetDefaults()
}

// Validate checks the plant parameters.
func (c Config) Validate() error {
	switch {
	case c.StepSeconds <= 0:
		return fmt.Errorf("%w: step_seconds must be positive", model.ErrConfiguration)
	case c.Period <= 0:
		return fmt.Errorf("%w: period must be positive", model.ErrConfiguration)
	case c.BaseLoad < 0 || c.PeakLoad < c.BaseLoad:
		return fmt.Errorf("%w: load profile requires 0 <= base_load <= peak_load", model.ErrConfiguration)
	case c.PeakSolar < 0:
		return fmt.Errorf("%w: peak_solar must be non-negative", model.ErrConfiguration)
	case c.SunsetHour <= c.SunriseHour:
		return fmt.Errorf("%w: sunset_hour must follow sunrise_hour", model.ErrConfiguration)
	case c.BatteryRated < 0:
		return fmt.Errorf("%w: battery_rated must be non-negative", model.ErrConfiguration)
	case c.MaxTicks < 1:
		return fmt.Errorf("%w: max_ticks must be positive", model.ErrConfiguration)
	}
	return c.Dispatch.Validate()
}
