package bridge

import (
	"log/slog"

	"github.com/aj-geddes/revitpy-sub005/domain/ports"
	"github.com/aj-geddes/revitpy-sub005/host"
	"github.com/aj-geddes/revitpy-sub005/hostfuncs"
	"github.com/benbjohnson/clock"
)

type bridgeConfig struct {
	clock           clock.Clock
	logger          *slog.Logger
	factory         ports.InterpreterFactory
	validator       ports.ConfigValidator
	interpreterOpts []host.InterpreterOption
	registryOpts    []hostfuncs.RegistryOption
}

func defaultBridgeConfig() bridgeConfig {
	return bridgeConfig{
		clock:  clock.New(),
		logger: slog.Default(),
	}
}

// Option configures a Bridge.
type Option func(*bridgeConfig)

// WithClock sets the clock shared by the bridge, its pool and its
// transaction manager.
func WithClock(clk clock.Clock) Option {
	return func(c *bridgeConfig) {
		c.clock = clk
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *bridgeConfig) {
		c.logger = logger
	}
}

// WithInterpreterFactory replaces the Starlark interpreter factory.
// Interpreter options and host functions are ignored when it is set.
func WithInterpreterFactory(factory ports.InterpreterFactory) Option {
	return func(c *bridgeConfig) {
		c.factory = factory
	}
}

// WithInterpreterOptions adds options to every interpreter the bridge creates.
func WithInterpreterOptions(opts ...host.InterpreterOption) Option {
	return func(c *bridgeConfig) {
		c.interpreterOpts = append(c.interpreterOpts, opts...)
	}
}

// WithHostFunctions registers extra host functions next to the element,
// geometry and parameter modules.
func WithHostFunctions(opts ...hostfuncs.RegistryOption) Option {
	return func(c *bridgeConfig) {
		c.registryOpts = append(c.registryOpts, opts...)
	}
}

// WithValidator checks the configuration before anything is created.
func WithValidator(v ports.ConfigValidator) Option {
	return func(c *bridgeConfig) {
		c.validator = v
	}
}
