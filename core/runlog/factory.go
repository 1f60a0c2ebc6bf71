package runlog

import (
	"fmt"

	"github.com/kilianp07/microgrid/core/model"
)

// Config selects and configures the run store backend.
type Config struct {
	// Backend is "sqlite", "jsonl" or "rotating".
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults selects a SQLite file in the working directory.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "sqlite"
	}
	if c.Path == "" {
		switch c.Backend {
		case "sqlite":
			c.Path = "microgrid.db"
		default:
			c.Path = "runs.jsonl"
		}
	}
	if c.Backend == "rotating" {
		if c.MaxSizeMB == 0 {
			c.MaxSizeMB = 100
		}
		if c.MaxBackups == 0 {
			c.MaxBackups = 5
		}
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	switch c.Backend {
	case "sqlite", "jsonl", "rotating":
		return nil
	default:
		return fmt.Errorf("%w: unknown run store backend %q", model.ErrConfiguration, c.Backend)
	}
}

// New opens the configured store.
func New(cfg Config) (RunStore, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "jsonl":
		return NewJSONLStore(cfg.Path)
	case "rotating":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	default:
		return NewSQLiteStore(cfg.Path)
	}
}
