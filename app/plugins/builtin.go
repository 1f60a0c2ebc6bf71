// Package plugins links the built-in simulator backends and metrics sinks
// into the binary. Each imported package registers itself in init.
package plugins

import (
	"github.com/kilianp07/microgrid/core/metrics"
	"github.com/kilianp07/microgrid/core/simulation"

	_ "github.com/kilianp07/microgrid/infra/metrics"
	_ "github.com/kilianp07/microgrid/infra/mqtt"
	_ "github.com/kilianp07/microgrid/infra/plant"
)

// Simulators returns the available simulator backend names.
func Simulators() []string { return simulation.Backends() }

// Sinks returns the available metrics sink names.
func Sinks() []string { return metrics.SinkTypes() }
