package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/microgrid/core/factory"
	corelogger "github.com/kilianp07/microgrid/core/logger"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/core/simulation"
	"github.com/kilianp07/microgrid/infra/logger"
)

// RemoteBackend is the simulator registry name of the MQTT bridge.
const RemoteBackend = "mqtt"

// ErrResponseTimeout is returned when the remote engine does not answer in
// time.
var ErrResponseTimeout = errors.New("remote simulator response timeout")

// RemoteConfig configures the remote simulator bridge.
type RemoteConfig struct {
	MQTT          Config        `json:"mqtt"`
	RequestTopic  string        `json:"request_topic"`
	ResponseTopic string        `json:"response_topic"`
	Timeout       time.Duration `json:"timeout"`
}

// SetDefaults fills the topics and the response timeout.
func (c *RemoteConfig) SetDefaults() {
	if c.RequestTopic == "" {
		c.RequestTopic = "microgrid/simulator/request"
	}
	if c.ResponseTopic == "" {
		c.ResponseTopic = "microgrid/simulator/response"
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "microgrid-orchestrator-" + uuid.NewString()[:8]
	}
}

// SimulationRequest is published on the request topic for each window.
type SimulationRequest struct {
	CorrelationID string            `json:"correlation_id"`
	Params        simulation.Params `json:"params"`
}

// SimulationResponse is expected on the response topic.
type SimulationResponse struct {
	CorrelationID string             `json:"correlation_id"`
	Signals       simulation.Signals `json:"signals"`
	Error         string             `json:"error,omitempty"`
}

type transport interface {
	publisher
	Subscribe(topic string, h paho.MessageHandler) error
	Disconnect()
}

// RemoteSimulator forwards windows to an engine listening on MQTT.
type RemoteSimulator struct {
	cfg RemoteConfig
	tr  transport
	log corelogger.Logger

	mu      sync.Mutex
	params  simulation.Params
	pending map[string]chan SimulationResponse
	closed  bool
}

func init() {
	if err := simulation.RegisterBackend(RemoteBackend, func(conf map[string]any) (simulation.Simulator, error) {
		var cfg RemoteConfig
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, fmt.Errorf("%w: mqtt simulator config: %w", model.ErrConfiguration, err)
		}
		return NewRemoteSimulator(cfg)
	}); err != nil {
		panic(err)
	}
}

// NewRemoteSimulator connects to the broker and listens for responses.
func NewRemoteSimulator(cfg RemoteConfig) (*RemoteSimulator, error) {
	cfg.SetDefaults()
	if err := cfg.MQTT.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfiguration, err)
	}
	cli, err := Connect(cfg.MQTT, "mqtt_simulator")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSimulatorFailure, err)
	}
	return newRemoteSimulator(cfg, cli)
}

func newRemoteSimulator(cfg RemoteConfig, tr transport) (*RemoteSimulator, error) {
	r := &RemoteSimulator{
		cfg:     cfg,
		tr:      tr,
		log:     logger.New("mqtt_simulator"),
		pending: make(map[string]chan SimulationResponse),
	}
	if err := tr.Subscribe(cfg.ResponseTopic, r.onResponse); err != nil {
		tr.Disconnect()
		return nil, fmt.Errorf("%w: %w", model.ErrSimulatorFailure, err)
	}
	return r, nil
}

func (r *RemoteSimulator) onResponse(_ paho.Client, msg paho.Message) {
	var resp SimulationResponse
	if err := json.Unmarshal(msg.Payload(), &resp); err != nil {
		r.log.Errorf("failed to decode simulator response: %v", err)
		return
	}
	r.mu.Lock()
	ch, ok := r.pending[resp.CorrelationID]
	r.mu.Unlock()
	if !ok {
		r.log.Warnf("response for unknown request %s", resp.CorrelationID)
		return
	}
	select {
	case ch <- resp:
	default:
	}
}

// Configure stores the window parameters for the next Invoke.
func (r *RemoteSimulator) Configure(_ context.Context, params simulation.Params) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("remote simulator finalized")
	}
	cp := make(simulation.Params, len(params))
	for k, v := range params {
		cp[k] = v
	}
	r.params = cp
	return nil
}

// Invoke publishes the request and waits for the matching response, the
// configured timeout or ctx, whichever comes first.
func (r *RemoteSimulator) Invoke(ctx context.Context) (simulation.Signals, error) {
	r.mu.Lock()
	if r.params == nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("invoke before configure")
	}
	req := SimulationRequest{CorrelationID: uuid.NewString(), Params: r.params}
	r.params = nil
	ch := make(chan SimulationResponse, 1)
	r.pending[req.CorrelationID] = ch
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, req.CorrelationID)
		r.mu.Unlock()
	}()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if err := r.tr.Publish(r.cfg.RequestTopic, payload, false); err != nil {
		return nil, err
	}
	r.log.Debugf("sent simulation request %s", req.CorrelationID)

	timer := time.NewTimer(r.cfg.Timeout)
	defer timer.Stop()
	select {
	case resp := <-ch:
		if resp.Error != "" {
			return nil, fmt.Errorf("remote engine: %s", resp.Error)
		}
		return resp.Signals, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w after %s", ErrResponseTimeout, r.cfg.Timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Finalize disconnects from the broker.
func (r *RemoteSimulator) Finalize() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.params = nil
	r.mu.Unlock()
	r.tr.Disconnect()
	return nil
}
