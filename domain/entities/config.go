package entities

import (
	"time"
)

// Config is the complete configuration of a bridge process.
type Config struct {
	// LogLevel is the logging verbosity level ("debug", "info", "warn", "error").
	LogLevel string `json:"log_level,omitempty" yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	Pool        PoolConfig        `json:"pool" yaml:"pool"`
	Interpreter InterpreterConfig `json:"interpreter" yaml:"interpreter"`
	Bridge      BridgeConfig      `json:"bridge" yaml:"bridge"`
}

// PoolConfig controls the interpreter pool.
type PoolConfig struct {
	// Capacity is the maximum number of interpreters the pool holds.
	Capacity int `json:"capacity" yaml:"capacity" validate:"min=1,max=256" jsonschema:"minimum=1,maximum=256"`

	// MinInstances is the number of interpreters created eagerly at startup.
	// Zero means Capacity.
	MinInstances int `json:"min_instances,omitempty" yaml:"min_instances" validate:"min=0,ltefield=Capacity"`

	// RentTimeout bounds how long Rent waits for an idle interpreter.
	RentTimeout time.Duration `json:"rent_timeout" yaml:"rent_timeout" validate:"gt=0"`

	// WarmupParallelism limits concurrent interpreter creation. Zero means Capacity.
	WarmupParallelism int `json:"warmup_parallelism,omitempty" yaml:"warmup_parallelism" validate:"min=0"`

	// MaxRentalsPerInstance recycles an interpreter after this many rentals.
	// Zero disables recycling.
	MaxRentalsPerInstance int `json:"max_rentals_per_instance,omitempty" yaml:"max_rentals_per_instance" validate:"min=0"`

	// SanitizeOnReturn resets an interpreter's globals when it is returned.
	SanitizeOnReturn bool `json:"sanitize_on_return" yaml:"sanitize_on_return"`
}

// InterpreterConfig controls each embedded interpreter.
type InterpreterConfig struct {
	// SearchPaths are directories searched by ImportModule and load().
	SearchPaths []string `json:"search_paths,omitempty" yaml:"search_paths" validate:"dive,required"`

	// AllowedModules are glob patterns of importable module names.
	AllowedModules []string `json:"allowed_modules,omitempty" yaml:"allowed_modules" validate:"dive,required,glob"`

	// AllowedPaths are glob patterns of directories AddPath accepts.
	AllowedPaths []string `json:"allowed_paths,omitempty" yaml:"allowed_paths" validate:"dive,required,glob"`

	// MaxExecutionSteps cancels a script after this many runtime steps. Zero means unlimited.
	MaxExecutionSteps uint64 `json:"max_execution_steps,omitempty" yaml:"max_execution_steps"`

	// ProgramCacheSize is the number of compiled programs kept per interpreter.
	ProgramCacheSize int `json:"program_cache_size" yaml:"program_cache_size" validate:"min=0,max=4096"`
}

// BridgeConfig controls the API bridge.
type BridgeConfig struct {
	// ExecutionTimeout bounds a single execute, evaluate or call. Zero means
	// only the caller's context applies.
	ExecutionTimeout time.Duration `json:"execution_timeout,omitempty" yaml:"execution_timeout" validate:"min=0"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		LogLevel:    "info",
		Pool:        DefaultPoolConfig(),
		Interpreter: DefaultInterpreterConfig(),
		Bridge: BridgeConfig{
			ExecutionTimeout: 30 * time.Second,
		},
	}
}

// DefaultPoolConfig returns the default pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Capacity:         4,
		RentTimeout:      30 * time.Second,
		SanitizeOnReturn: true,
	}
}

// DefaultProgramCacheSize is the default number of compiled programs kept
// per interpreter.
const DefaultProgramCacheSize = 64

// DefaultInterpreterConfig returns the default interpreter configuration.
func DefaultInterpreterConfig() InterpreterConfig {
	return InterpreterConfig{
		AllowedModules:   []string{"**"},
		AllowedPaths:     []string{"**"},
		ProgramCacheSize: DefaultProgramCacheSize,
	}
}

// ConfigOption is a functional option for configuring Config.
type ConfigOption func(*Config)

// WithCapacity sets the pool capacity.
func WithCapacity(n int) ConfigOption {
	return func(c *Config) {
		if n > 0 {
			c.Pool.Capacity = n
		}
	}
}

// WithRentTimeout sets the default rent timeout.
func WithRentTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		if d > 0 {
			c.Pool.RentTimeout = d
		}
	}
}

// WithExecutionTimeout sets the bridge execution timeout.
func WithExecutionTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		if d >= 0 {
			c.Bridge.ExecutionTimeout = d
		}
	}
}

// WithSearchPaths sets the interpreter module search paths.
func WithSearchPaths(paths ...string) ConfigOption {
	return func(c *Config) {
		c.Interpreter.SearchPaths = append([]string(nil), paths...)
	}
}

// WithLogLevel sets the logging verbosity level.
func WithLogLevel(level string) ConfigOption {
	return func(c *Config) {
		c.LogLevel = level
	}
}

// NewConfig creates a new Config with the given options.
func NewConfig(opts ...ConfigOption) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// EffectiveMinInstances returns the number of interpreters created at startup.
func (c PoolConfig) EffectiveMinInstances() int {
	if c.MinInstances <= 0 || c.MinInstances > c.Capacity {
		return c.Capacity
	}
	return c.MinInstances
}
