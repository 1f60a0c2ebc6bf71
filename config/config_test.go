package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kilianp07/microgrid/core/model"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `simulator:
  type: plant
  conf:
    step_seconds: 30
    use_optimizer: true
windows:
  count: 3
  duration: 7200
  seed: 5
dispatch:
  grid_unit_cost: 0.4
  battery_unit_cost: 0.1
metrics:
  sinks:
    - type: "nop"
  prometheus_addr: ":9100"
store:
  backend: jsonl
  path: runs.jsonl
api:
  addr: ":9000"
  allowed_origins: ["http://localhost:3000"]
  timeout: 45s
sentry:
  dsn: ""
  environment: test
log:
  backend: logrus
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"simulator.type", cfg.Simulator.Type, "plant"},
		{"simulator.conf.use_optimizer", cfg.Simulator.Conf["use_optimizer"], true},
		{"windows.count", cfg.Windows.Count, 3},
		{"windows.duration", cfg.Windows.Duration, 7200.0},
		{"windows.selector_step", cfg.Windows.SelectorStep, 7200.0},
		{"windows.seed", cfg.Windows.Seed, 5.0},
		{"dispatch.grid", cfg.Dispatch.Grid(), 0.4},
		{"dispatch.battery", cfg.Dispatch.Battery(), 0.1},
		{"metrics.sinks", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"metrics.prometheus_addr", cfg.Metrics.PrometheusAddr, ":9100"},
		{"store.backend", cfg.Store.Backend, "jsonl"},
		{"api.addr", cfg.API.Addr, ":9000"},
		{"api.origins", len(cfg.API.AllowedOrigins), 1},
		{"api.timeout", cfg.API.Timeout, 45 * time.Second},
		{"sentry.environment", cfg.Sentry.Environment, "test"},
		{"log.backend", cfg.Log.Backend, "logrus"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadJSONDefaults(t *testing.T) {
	path := writeFile(t, "config.json", `{"store": {"backend": "sqlite"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Simulator.Type != DefaultSimulator {
		t.Errorf("simulator type %q", cfg.Simulator.Type)
	}
	if cfg.Windows.Count != 6 || cfg.Windows.Duration != 14400 {
		t.Errorf("windows %+v", cfg.Windows)
	}
	if cfg.Store.Path != "microgrid.db" {
		t.Errorf("store path %q", cfg.Store.Path)
	}
	if cfg.Dispatch.Grid() != 0.5 || cfg.Dispatch.Battery() != 0.2 {
		t.Errorf("dispatch %+v", cfg.Dispatch)
	}
	if cfg.API.Addr != ":8080" {
		t.Errorf("api addr %q", cfg.API.Addr)
	}
}

func TestEnvOverride(t *testing.T) {
	path := writeFile(t, "config.yaml", "store:\n  backend: jsonl\n  path: a.jsonl\n")
	t.Setenv("MG_STORE__PATH", "b.jsonl")
	t.Setenv("MG_WINDOWS__COUNT", "2")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Store.Path != "b.jsonl" {
		t.Errorf("store path %q", cfg.Store.Path)
	}
	if cfg.Windows.Count != 2 {
		t.Errorf("windows count %d", cfg.Windows.Count)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("store backend %q", cfg.Store.Backend)
	}
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"bad.toml":     "a = 1",
		"store.yaml":   "store:\n  backend: redis\n",
		"costs.yaml":   "dispatch:\n  grid_unit_cost: -1\n",
		"log.yaml":     "log:\n  backend: syslog\n",
		"windows.yaml": "windows:\n  duration: -5\n",
		"sink.yaml":    "metrics:\n  sinks:\n    - conf: {}\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, name, data))
			if !errors.Is(err, model.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestLogApply(t *testing.T) {
	t.Setenv("LOG_BACKEND", "")
	os.Unsetenv("LOG_BACKEND")
	t.Setenv("LOG_LEVEL", "warn")
	LogConfig{Backend: "Logrus", Level: "debug"}.Apply()
	if got := os.Getenv("LOG_BACKEND"); got != "logrus" {
		t.Errorf("LOG_BACKEND %q", got)
	}
	if got := os.Getenv("LOG_LEVEL"); got != "warn" {
		t.Errorf("LOG_LEVEL %q", got)
	}
}
