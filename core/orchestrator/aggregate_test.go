package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/microgrid/core/model"
)

func sampleRun() *model.SimulationRun {
	return &model.SimulationRun{
		Windows: []model.SimulationWindow{
			{Index: 0, StopTime: 10},
			{Index: 1, StopTime: 10, DemandSelector: 14400},
			{Index: 2, StopTime: 10, DemandSelector: 28800},
		},
		Results: []model.WindowResult{
			{Index: 0, Load: []float64{1, 2}, Solar: []float64{3, 4}, Battery: []float64{5, 6}, Accumulator: []float64{7, 8}, TerminalAccumulator: 8},
			{Index: 1, Load: []float64{9, 10}, Solar: []float64{11, 12}, Battery: []float64{13, 14}, Accumulator: []float64{15, 16}, TerminalAccumulator: 16},
		},
	}
}

func TestTracesByKindKeepsWindowsSeparate(t *testing.T) {
	run := sampleRun()
	traces := TracesByKind(run, model.TraceSolar)
	require.Len(t, traces, 2)
	assert.Equal(t, WindowTrace{Window: 0, Kind: "solar", Samples: []float64{3, 4}}, traces[0])
	assert.Equal(t, WindowTrace{Window: 1, Kind: "solar", Selector: 14400, Samples: []float64{11, 12}}, traces[1])

	traces[0].Samples[0] = -1
	assert.Equal(t, 3.0, run.Results[0].Solar[0])

	assert.Nil(t, TracesByKind(run, model.TraceKind("voltage")))
	assert.Nil(t, TracesByKind(nil, model.TraceLoad))
}

func TestAllTraces(t *testing.T) {
	traces := AllTraces(sampleRun())
	require.Len(t, traces, 8)
	assert.Equal(t, "load", traces[0].Kind)
	assert.Equal(t, "accumulator", traces[3].Kind)
	assert.Equal(t, 1, traces[4].Window)
}

func TestOpeningSamples(t *testing.T) {
	got := OpeningSamples(sampleRun())
	assert.Equal(t, []OpeningSample{
		{Window: 0, Load: 1, Solar: 3, Battery: 5, Accumulator: 7},
		{Window: 1, Load: 9, Solar: 11, Battery: 13, Accumulator: 15},
	}, got)
}
