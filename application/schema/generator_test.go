package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema_NestedStruct(t *testing.T) {
	type ServerConfig struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	}

	type Config struct {
		Server  ServerConfig `json:"server"`
		Timeout int          `json:"timeout"`
	}

	schema, err := GenerateSchema(Config{})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(schema, &decoded))

	assert.Contains(t, string(schema), "server")
	assert.Contains(t, string(schema), "host")
	assert.Contains(t, string(schema), "timeout")
}

func TestConfigSchema(t *testing.T) {
	schema, err := ConfigSchema()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(schema, &decoded))

	props, ok := decoded["properties"].(map[string]interface{})
	require.True(t, ok, "expanded struct has top-level properties")
	assert.Contains(t, props, "pool")
	assert.Contains(t, props, "interpreter")
	assert.Contains(t, props, "bridge")

	// The capacity bounds come from jsonschema tags.
	assert.Contains(t, string(schema), `"maximum": 256`)
}
