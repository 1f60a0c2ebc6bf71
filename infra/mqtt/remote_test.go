package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/microgrid/core/factory"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/core/orchestrator"
	"github.com/kilianp07/microgrid/core/simulation"
	"github.com/kilianp07/microgrid/core/simulation/simtest"
)

// answer makes the mock broker reply to every request with fn's signals.
func answer(mc *mockClient, cfg RemoteConfig, fn func(SimulationRequest) SimulationResponse) {
	mc.onPublish = func(topic string, payload []byte) {
		if topic != cfg.RequestTopic {
			return
		}
		var req SimulationRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return
		}
		resp := fn(req)
		resp.CorrelationID = req.CorrelationID
		b, _ := json.Marshal(resp)
		go mc.deliver(cfg.ResponseTopic, b)
	}
}

func remoteConfig() RemoteConfig {
	cfg := RemoteConfig{MQTT: Config{Broker: "tcp://localhost:1883"}, Timeout: time.Second}
	cfg.SetDefaults()
	return cfg
}

func TestRemoteSimulatorRoundTrip(t *testing.T) {
	mc := useMock(t)
	cfg := remoteConfig()
	answer(mc, cfg, func(req SimulationRequest) SimulationResponse {
		return SimulationResponse{Signals: simtest.Ramp(3, req.Params[simulation.ParamInitialAccumulator], 2)}
	})
	sim, err := NewRemoteSimulator(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.ResponseTopic, mc.subscribed[0].topic)

	windows := []model.SimulationWindow{
		{Index: 0, StopTime: 10, InitialAccumulator: 1},
		{Index: 1, StopTime: 10},
	}
	run, err := orchestrator.New().Run(context.Background(), simulation.NewSession(sim), windows)
	require.NoError(t, err)
	assert.Equal(t, 7.0, run.Results[0].TerminalAccumulator)
	assert.Equal(t, 13.0, run.Results[1].TerminalAccumulator)
	assert.Equal(t, 1, mc.disconnects)

	var req SimulationRequest
	require.NoError(t, json.Unmarshal(mc.published[1].payload, &req))
	assert.Equal(t, 7.0, req.Params[simulation.ParamInitialAccumulator])
	assert.NotEmpty(t, req.CorrelationID)
}

func TestRemoteSimulatorEngineError(t *testing.T) {
	mc := useMock(t)
	cfg := remoteConfig()
	answer(mc, cfg, func(SimulationRequest) SimulationResponse {
		return SimulationResponse{Error: "model did not converge"}
	})
	sim, err := NewRemoteSimulator(cfg)
	require.NoError(t, err)
	require.NoError(t, sim.Configure(context.Background(), simulation.Params{"start_time": 0}))
	_, err = sim.Invoke(context.Background())
	assert.ErrorContains(t, err, "model did not converge")
}

func TestRemoteSimulatorTimeout(t *testing.T) {
	useMock(t)
	cfg := remoteConfig()
	cfg.Timeout = 20 * time.Millisecond
	sim, err := NewRemoteSimulator(cfg)
	require.NoError(t, err)
	require.NoError(t, sim.Configure(context.Background(), simulation.Params{}))
	_, err = sim.Invoke(context.Background())
	assert.True(t, errors.Is(err, ErrResponseTimeout))
	assert.Empty(t, sim.pending)
}

func TestRemoteSimulatorContextCanceled(t *testing.T) {
	useMock(t)
	sim, err := NewRemoteSimulator(remoteConfig())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, sim.Configure(ctx, simulation.Params{}))
	_, err = sim.Invoke(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemoteSimulatorIgnoresUnknownResponses(t *testing.T) {
	mc := useMock(t)
	cfg := remoteConfig()
	sim, err := NewRemoteSimulator(cfg)
	require.NoError(t, err)
	mc.deliver(cfg.ResponseTopic, []byte(`{"correlation_id":"nobody"}`))
	mc.deliver(cfg.ResponseTopic, []byte(`not json`))
	assert.Empty(t, sim.pending)
}

func TestRemoteSimulatorFinalizeOnce(t *testing.T) {
	mc := useMock(t)
	sim, err := NewRemoteSimulator(remoteConfig())
	require.NoError(t, err)
	require.NoError(t, sim.Finalize())
	require.NoError(t, sim.Finalize())
	assert.Equal(t, 1, mc.disconnects)
	assert.Error(t, sim.Configure(context.Background(), simulation.Params{}))
}

func TestRemoteBackendRegistered(t *testing.T) {
	useMock(t)
	sim, err := simulation.NewSimulator(factory.ModuleConfig{
		Type: RemoteBackend,
		Conf: map[string]any{
			"mqtt":          map[string]any{"broker": "tcp://localhost:1883"},
			"request_topic": "lab/req",
			"timeout":       "30s",
		},
	})
	require.NoError(t, err)
	r := sim.(*RemoteSimulator)
	assert.Equal(t, "lab/req", r.cfg.RequestTopic)
	assert.Equal(t, 30*time.Second, r.cfg.Timeout)

	_, err = simulation.NewSimulator(factory.ModuleConfig{Type: RemoteBackend, Conf: map[string]any{}})
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
