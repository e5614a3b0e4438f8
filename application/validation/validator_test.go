package validation

import (
	"testing"
	"time"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/domain/errors"
	"github.com/aj-geddes/revitpy-sub005/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func newValidator(t *testing.T) *ConfigValidator {
	t.Helper()
	v, err := NewConfigValidator()
	require.NoError(t, err)
	return v
}

func TestConfigValidator_Defaults(t *testing.T) {
	cfg := entities.DefaultConfig()
	require.NoError(t, newValidator(t).Validate(&cfg))
}

func TestConfigValidator_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		mutate func(*entities.Config)
	}{
		{name: "zero capacity", field: "Pool.Capacity", mutate: func(c *entities.Config) { c.Pool.Capacity = 0 }},
		{name: "capacity too large", field: "Pool.Capacity", mutate: func(c *entities.Config) { c.Pool.Capacity = 1000 }},
		{name: "min above capacity", field: "Pool.MinInstances", mutate: func(c *entities.Config) { c.Pool.MinInstances = 9 }},
		{name: "no rent timeout", field: "Pool.RentTimeout", mutate: func(c *entities.Config) { c.Pool.RentTimeout = 0 }},
		{name: "bad log level", field: "LogLevel", mutate: func(c *entities.Config) { c.LogLevel = "loud" }},
		{name: "bad glob", field: "Interpreter.AllowedModules[0]", mutate: func(c *entities.Config) {
			c.Interpreter.AllowedModules = []string{"geometry/[unclosed"}
		}},
		{name: "empty search path", field: "Interpreter.SearchPaths[0]", mutate: func(c *entities.Config) {
			c.Interpreter.SearchPaths = []string{""}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := entities.DefaultConfig()
			tt.mutate(&cfg)

			err := newValidator(t).Validate(&cfg)
			cfgErr := testutil.RequireErrorAs[*errors.ConfigError](t, err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfigValidator_ReportsEveryField(t *testing.T) {
	cfg := entities.DefaultConfig()
	cfg.Pool.Capacity = 0
	cfg.Pool.RentTimeout = -time.Second
	cfg.LogLevel = "verbose"

	err := newValidator(t).Validate(&cfg)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
}

func TestConfigValidator_Nil(t *testing.T) {
	testutil.RequireErrorAs[*errors.ConfigError](t, newValidator(t).Validate(nil))
}
