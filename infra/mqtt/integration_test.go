//go:build integration

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/microgrid/core/orchestrator"
	"github.com/kilianp07/microgrid/core/simulation"
	"github.com/kilianp07/microgrid/core/simulation/simtest"
)

func startMosquitto(t *testing.T) string {
	t.Helper()
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}
	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

// TestIntegrationRemoteSimulator drives a full day through a stand-in engine
// answering on a real broker.
func TestIntegrationRemoteSimulator(t *testing.T) {
	broker := startMosquitto(t)
	cfg := RemoteConfig{MQTT: Config{Broker: broker, QoS: 1}, Timeout: 10 * time.Second}
	cfg.SetDefaults()

	engine := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("engine"))
	if token := engine.Connect(); token.Wait() && token.Error() != nil {
		t.Fatalf("engine connect: %v", token.Error())
	}
	defer engine.Disconnect(250)
	token := engine.Subscribe(cfg.RequestTopic, 1, func(c paho.Client, msg paho.Message) {
		var req SimulationRequest
		if err := json.Unmarshal(msg.Payload(), &req); err != nil {
			return
		}
		resp := SimulationResponse{
			CorrelationID: req.CorrelationID,
			Signals:       simtest.Ramp(5, req.Params[simulation.ParamInitialAccumulator], 1),
		}
		b, _ := json.Marshal(resp)
		c.Publish(cfg.ResponseTopic, 1, false, b)
	})
	if token.Wait() && token.Error() != nil {
		t.Fatalf("engine subscribe: %v", token.Error())
	}

	sim, err := NewRemoteSimulator(cfg)
	if err != nil {
		t.Fatalf("remote simulator: %v", err)
	}
	sched := orchestrator.ScheduleConfig{}
	sched.SetDefaults()
	windows, err := sched.Windows()
	if err != nil {
		t.Fatalf("windows: %v", err)
	}
	run, err := orchestrator.New().Run(context.Background(), simulation.NewSession(sim), windows)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := run.Results[5].TerminalAccumulator; got != 30 {
		t.Fatalf("terminal accumulator = %v, want 30", got)
	}
}
