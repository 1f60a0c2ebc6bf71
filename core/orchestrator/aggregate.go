package orchestrator

import (
	"github.com/kilianp07/microgrid/core/model"
)

// WindowTrace is one trace of one window, ready for plotting or export.
type WindowTrace struct {
	Window   int       `json:"window"`
	Kind     string    `json:"kind"`
	Selector float64   `json:"demand_selector"`
	Samples  []float64 `json:"samples"`
}

// OpeningSample holds the first sample of each trace of a window.
type OpeningSample struct {
	Window      int     `json:"window"`
	Load        float64 `json:"load"`
	Solar       float64 `json:"solar"`
	Battery     float64 `json:"battery"`
	Accumulator float64 `json:"accumulator"`
}

// TracesByKind returns the kind trace of every completed window, one entry
// per window in index order. Samples are not concatenated across windows.
func TracesByKind(run *model.SimulationRun, kind model.TraceKind) []WindowTrace {
	if run == nil || !kind.Valid() {
		return nil
	}
	out := make([]WindowTrace, 0, len(run.Results))
	for _, res := range run.Results {
		out = append(out, WindowTrace{
			Window:   res.Index,
			Kind:     kind.String(),
			Selector: selector(run, res.Index),
			Samples:  append([]float64(nil), res.Trace(kind)...),
		})
	}
	return out
}

// AllTraces returns every trace of every completed window, grouped by window.
func AllTraces(run *model.SimulationRun) []WindowTrace {
	if run == nil {
		return nil
	}
	out := make([]WindowTrace, 0, len(run.Results)*len(model.TraceKinds))
	for _, res := range run.Results {
		for _, kind := range model.TraceKinds {
			out = append(out, WindowTrace{
				Window:   res.Index,
				Kind:     kind.String(),
				Selector: selector(run, res.Index),
				Samples:  append([]float64(nil), res.Trace(kind)...),
			})
		}
	}
	return out
}

// OpeningSamples returns the first sample of each trace for every completed
// window.
func OpeningSamples(run *model.SimulationRun) []OpeningSample {
	if run == nil {
		return nil
	}
	out := make([]OpeningSample, 0, len(run.Results))
	for _, res := range run.Results {
		if res.Ticks() == 0 {
			continue
		}
		out = append(out, OpeningSample{
			Window:      res.Index,
			Load:        res.Load[0],
			Solar:       res.Solar[0],
			Battery:     res.Battery[0],
			Accumulator: res.Accumulator[0],
		})
	}
	return out
}

func selector(run *model.SimulationRun, index int) float64 {
	if index >= 0 && index < len(run.Windows) {
		return run.Windows[index].DemandSelector
	}
	return 0
}
