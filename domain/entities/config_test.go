package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, 4, cfg.Pool.Capacity)
	assert.Equal(t, 30*time.Second, cfg.Pool.RentTimeout)
	assert.True(t, cfg.Pool.SanitizeOnReturn)
	assert.Equal(t, []string{"**"}, cfg.Interpreter.AllowedModules)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestNewConfig_Options(t *testing.T) {
	cfg := NewConfig(
		WithCapacity(8),
		WithCapacity(-1), // ignored
		WithRentTimeout(time.Second),
		WithExecutionTimeout(0),
		WithSearchPaths("/scripts"),
		WithLogLevel("debug"),
	)
	assert.Equal(t, 8, cfg.Pool.Capacity)
	assert.Equal(t, time.Second, cfg.Pool.RentTimeout)
	assert.Zero(t, cfg.Bridge.ExecutionTimeout)
	assert.Equal(t, []string{"/scripts"}, cfg.Interpreter.SearchPaths)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestPoolConfig_EffectiveMinInstances(t *testing.T) {
	assert.Equal(t, 4, PoolConfig{Capacity: 4}.EffectiveMinInstances())
	assert.Equal(t, 2, PoolConfig{Capacity: 4, MinInstances: 2}.EffectiveMinInstances())
	assert.Equal(t, 4, PoolConfig{Capacity: 4, MinInstances: 9}.EffectiveMinInstances())
}
