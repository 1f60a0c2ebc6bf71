package logger

import (
	"os"
	"strings"

	corelogger "github.com/kilianp07/microgrid/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// New returns a Logger tagged with the given component. LOG_BACKEND selects
// the implementation ("zerolog" by default, or "logrus"); APP_ENV=dev switches
// to human readable output.
func New(component string) Logger {
	if strings.EqualFold(os.Getenv("LOG_BACKEND"), "logrus") {
		return NewLogrusLogger(component)
	}
	return NewZerologLogger(component)
}

func devMode() bool {
	return strings.ToLower(os.Getenv("APP_ENV")) == "dev"
}
