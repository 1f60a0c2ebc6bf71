package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuiltinsRegistered(t *testing.T) {
	assert.Subset(t, Simulators(), []string{"plant", "mqtt"})
	assert.Subset(t, Sinks(), []string{"nop", "prometheus", "influx", "mqtt"})
}
