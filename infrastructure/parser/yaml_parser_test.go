package parser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYamlConfigParser_Parse(t *testing.T) {
	data := []byte(`
log_level: debug
pool:
  capacity: 8
  min_instances: 2
  rent_timeout: 5s
  max_rentals_per_instance: 100
interpreter:
  search_paths: [scripts, lib]
  allowed_modules: ["geometry/**", "util"]
  max_execution_steps: 1000000
bridge:
  execution_timeout: 1m
`)

	cfg, err := NewYamlConfigParser().Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8, cfg.Pool.Capacity)
	assert.Equal(t, 2, cfg.Pool.MinInstances)
	assert.Equal(t, 5*time.Second, cfg.Pool.RentTimeout)
	assert.Equal(t, 100, cfg.Pool.MaxRentalsPerInstance)
	assert.Equal(t, []string{"scripts", "lib"}, cfg.Interpreter.SearchPaths)
	assert.Equal(t, []string{"geometry/**", "util"}, cfg.Interpreter.AllowedModules)
	assert.Equal(t, uint64(1000000), cfg.Interpreter.MaxExecutionSteps)
	assert.Equal(t, time.Minute, cfg.Bridge.ExecutionTimeout)

	// Unset keys keep their defaults.
	defaults := entities.DefaultConfig()
	assert.Equal(t, defaults.Pool.SanitizeOnReturn, cfg.Pool.SanitizeOnReturn)
	assert.Equal(t, defaults.Interpreter.ProgramCacheSize, cfg.Interpreter.ProgramCacheSize)
	assert.Equal(t, defaults.Interpreter.AllowedPaths, cfg.Interpreter.AllowedPaths)
}

func TestYamlConfigParser_Empty(t *testing.T) {
	cfg, err := NewYamlConfigParser().Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultConfig(), *cfg)
}

func TestYamlConfigParser_Invalid(t *testing.T) {
	_, err := NewYamlConfigParser().Parse([]byte("pool: [not, a, map]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pool:\n  capacity: 3\n"), 0o600))

	cfg, err := ParseFile(NewYamlConfigParser(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Pool.Capacity)

	_, err = ParseFile(NewYamlConfigParser(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
