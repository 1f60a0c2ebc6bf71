package plant

import "math"

// Battery tracks the charge exchanged by the plant battery. Positive current
// discharges into the bus, negative current charges.
type Battery struct {
	RatedCurrent float64
	// Accumulator is the net charge delivered, in ampere hours.
	Accumulator float64
}

// Apply limits the requested current to the rating, integrates it over dt
// seconds and returns the current actually applied.
func (b *Battery) Apply(current, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	actual := math.Max(-b.RatedCurrent, math.Min(b.RatedCurrent, current))
	b.Accumulator += actual * dt / 3600
	return actual
}
