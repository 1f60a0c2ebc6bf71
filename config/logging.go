package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kilianp07/microgrid/core/model"
)

// LogConfig selects the logger implementation and verbosity.
type LogConfig struct {
	// Backend is "zerolog" or "logrus".
	Backend string `json:"backend"`
	// Level is debug, info, warn or error.
	Level string `json:"level"`
	// Dev switches to human readable console output.
	Dev bool `json:"dev"`
}

// SetDefaults applies zerolog at info level.
func (c *LogConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "zerolog"
	}
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks the backend and level names.
func (c LogConfig) Validate() error {
	switch strings.ToLower(c.Backend) {
	case "zerolog", "logrus":
	default:
		return fmt.Errorf("%w: unknown log backend %s", model.ErrConfiguration, c.Backend)
	}
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %s", model.ErrConfiguration, c.Level)
	}
	return nil
}

// Apply exports the settings to the environment read by infra/logger.
// Variables already set by the operator win.
func (c LogConfig) Apply() {
	setIfUnset("LOG_BACKEND", strings.ToLower(c.Backend))
	setIfUnset("LOG_LEVEL", strings.ToLower(c.Level))
	if c.Dev {
		setIfUnset("APP_ENV", "dev")
	}
}

func setIfUnset(key, value string) {
	if _, ok := os.LookupEnv(key); !ok {
		_ = os.Setenv(key, value)
	}
}
