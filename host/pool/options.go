package pool

import (
	"log/slog"

	"github.com/benbjohnson/clock"
)

type poolConfig struct {
	clock  clock.Clock
	logger *slog.Logger
}

func defaultPoolConfig() poolConfig {
	return poolConfig{
		clock: clock.New(),
	}
}

// PoolOption configures a Pool.
type PoolOption func(*poolConfig)

// WithClock sets the clock used for timestamps and rent timeouts.
func WithClock(clk clock.Clock) PoolOption {
	return func(c *poolConfig) {
		c.clock = clk
	}
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(logger *slog.Logger) PoolOption {
	return func(c *poolConfig) {
		c.logger = logger
	}
}
