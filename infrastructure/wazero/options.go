package wazero

import (
	"log/slog"

	"github.com/tetratelabs/wazero"
)

type loaderConfig struct {
	cache       wazero.CompilationCache
	logger      *slog.Logger
	memoryPages uint32
	wasi        bool
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{}
}

// LoaderOption configures a Loader.
type LoaderOption func(*loaderConfig)

// WithCompilationCache shares compiled code between loaders. Pools should
// pass one cache to every interpreter so each module compiles once.
func WithCompilationCache(cache wazero.CompilationCache) LoaderOption {
	return func(c *loaderConfig) {
		c.cache = cache
	}
}

// WithMemoryLimitPages caps the linear memory of every module (64KiB pages).
func WithMemoryLimitPages(pages uint32) LoaderOption {
	return func(c *loaderConfig) {
		c.memoryPages = pages
	}
}

// WithWASI instantiates wasi_snapshot_preview1 so modules built for WASI can
// be imported.
func WithWASI() LoaderOption {
	return func(c *loaderConfig) {
		c.wasi = true
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(c *loaderConfig) {
		c.logger = logger
	}
}
