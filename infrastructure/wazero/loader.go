package wazero

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aj-geddes/revitpy-sub005/host"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.starlark.net/starlark"
	"go.uber.org/multierr"
)

// Extension is the file extension handled by the loader.
const Extension = ".wasm"

// Loader is a host.ModuleLoader backed by one wazero runtime.
// Like the interpreter that owns it, it is not safe for concurrent use.
type Loader struct {
	runtime wazero.Runtime
	logger  *slog.Logger
	modules []api.Closer
}

var _ host.ModuleLoader = (*Loader)(nil)

// NewLoader creates a loader with its own runtime.
func NewLoader(ctx context.Context, opts ...LoaderOption) (*Loader, error) {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	rc := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.cache != nil {
		rc = rc.WithCompilationCache(cfg.cache)
	}
	if cfg.memoryPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.memoryPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rc)

	if cfg.wasi {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
		}
	}

	return &Loader{runtime: rt, logger: logger}, nil
}

// Factory returns a host.ModuleLoaderFactory creating one Loader per
// interpreter.
func Factory(opts ...LoaderOption) host.ModuleLoaderFactory {
	return func(ctx context.Context) (host.ModuleLoader, error) {
		return NewLoader(ctx, opts...)
	}
}

// Extension implements host.ModuleLoader.
func (l *Loader) Extension() string {
	return Extension
}

// Load implements host.ModuleLoader.
func (l *Loader) Load(ctx context.Context, name string, source []byte) (starlark.Value, error) {
	mod, instance, err := LoadModule(ctx, l.runtime, name, source)
	if err != nil {
		return nil, err
	}
	l.modules = append(l.modules, instance)
	l.logger.Debug("wasm module loaded", "module", name, "functions", len(mod.Members))
	return mod, nil
}

// Reset closes every module instance loaded so far. The runtime and any
// WASI instance stay available.
func (l *Loader) Reset(ctx context.Context) error {
	var errs error
	for _, m := range l.modules {
		errs = multierr.Append(errs, m.Close(ctx))
	}
	l.modules = nil
	return errs
}

// Close releases the runtime and every module in it.
func (l *Loader) Close(ctx context.Context) error {
	l.modules = nil
	return l.runtime.Close(ctx)
}
