// Package config loads the microgrid configuration file.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/microgrid/api"
	"github.com/kilianp07/microgrid/core/dispatch"
	"github.com/kilianp07/microgrid/core/factory"
	"github.com/kilianp07/microgrid/core/metrics"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/core/orchestrator"
	"github.com/kilianp07/microgrid/core/runlog"
	"github.com/kilianp07/microgrid/infra/monitoring"
)

// EnvPrefix marks environment overrides. MG_STORE__PATH sets store.path.
const EnvPrefix = "MG_"

// DefaultSimulator is used when no simulator section is given.
const DefaultSimulator = "plant"

type Config struct {
	Simulator factory.ModuleConfig        `json:"simulator"`
	Windows   orchestrator.ScheduleConfig `json:"windows"`
	Dispatch  dispatch.Config             `json:"dispatch"`
	Metrics   metrics.Config              `json:"metrics"`
	Store     runlog.Config               `json:"store"`
	API       api.Config                  `json:"api"`
	Sentry    monitoring.Config           `json:"sentry"`
	Log       LogConfig                   `json:"log"`
}

// Load reads path, applies MG_ environment overrides, fills defaults and
// validates every section. An empty path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported config format: %s", model.ErrConfiguration, ext)
	}
}

// SetDefaults applies section defaults.
func (c *Config) SetDefaults() {
	if c.Simulator.Type == "" {
		c.Simulator.Type = DefaultSimulator
	}
	c.Windows.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Store.SetDefaults()
	c.API.SetDefaults()
	c.Log.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	checks := []struct {
		section string
		fn      func() error
	}{
		{"windows", c.Windows.Validate},
		{"dispatch", c.Dispatch.Validate},
		{"store", c.Store.Validate},
		{"log", c.Log.Validate},
	}
	for _, chk := range checks {
		if err := chk.fn(); err != nil {
			return fmt.Errorf("%s: %w", chk.section, err)
		}
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics: %w: sink %d has no type", model.ErrConfiguration, i)
		}
	}
	return nil
}
