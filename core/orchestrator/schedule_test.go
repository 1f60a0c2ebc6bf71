package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/microgrid/core/model"
)

func TestScheduleDefaults(t *testing.T) {
	var cfg ScheduleConfig
	cfg.SetDefaults()
	windows, err := cfg.Windows()
	require.NoError(t, err)
	require.Len(t, windows, 6)
	for i, w := range windows {
		assert.Equal(t, i, w.Index)
		assert.Equal(t, 0.0, w.StartTime)
		assert.Equal(t, 14400.0, w.StopTime)
		assert.Equal(t, float64(i)*14400, w.DemandSelector)
	}
	assert.Equal(t, 72000.0, windows[5].DemandSelector)
}

func TestScheduleExplicitSelectors(t *testing.T) {
	cfg := ScheduleConfig{Selectors: []float64{100, 50}, Duration: 60, StartTime: 10, Seed: 3}
	cfg.SetDefaults()
	windows, err := cfg.Windows()
	require.NoError(t, err)
	assert.Equal(t, []model.SimulationWindow{
		{Index: 0, StartTime: 10, StopTime: 70, DemandSelector: 100, InitialAccumulator: 3},
		{Index: 1, StartTime: 10, StopTime: 70, DemandSelector: 50},
	}, windows)
}

func TestScheduleValidate(t *testing.T) {
	bad := []ScheduleConfig{
		{Count: -1, Duration: 1},
		{Count: 1, Duration: -5},
		{Count: 1, Duration: 1, StartTime: -1},
	}
	for _, cfg := range bad {
		_, err := cfg.Windows()
		assert.ErrorIs(t, err, model.ErrConfiguration)
	}
}
