package plant

import "math"

// loadAt returns the household demand at time-of-day t (seconds). Demand
// follows a raised cosine peaking at PeakLoadHour.
func (c Config) loadAt(t float64) float64 {
	tod := math.Mod(t, c.Period)
	phase := 2 * math.Pi * (tod - c.PeakLoadHour*3600) / c.Period
	return c.BaseLoad + (c.PeakLoad-c.BaseLoad)*0.5*(1+math.Cos(phase))
}

// solarAt returns the clear-sky panel current at time-of-day t (seconds).
func (c Config) solarAt(t float64) float64 {
	tod := math.Mod(t, c.Period)
	rise, set := c.SunriseHour*3600, c.SunsetHour*3600
	if tod <= rise || tod >= set {
		return 0
	}
	return c.PeakSolar * math.Sin(math.Pi*(tod-rise)/(set-rise))
}
