package host

import (
	"context"
	"log/slog"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/domain/ports"
	"github.com/aj-geddes/revitpy-sub005/hostfuncs"
	"github.com/benbjohnson/clock"
	"go.starlark.net/starlark"
)

// DefaultMaxOutputSize limits captured print output per operation (1MB).
const DefaultMaxOutputSize = 1 * 1024 * 1024

// ModuleLoader turns a file with the loader's extension found on the search
// path into an importable module.
type ModuleLoader interface {
	// Extension returns the file extension handled, including the dot.
	Extension() string

	// Load builds a module from the file contents.
	Load(ctx context.Context, name string, source []byte) (starlark.Value, error)

	// Reset drops every module loaded so far.
	Reset(ctx context.Context) error

	// Close releases the loader's runtime.
	Close(ctx context.Context) error
}

// ModuleLoaderFactory creates the loader of one interpreter during Initialize.
type ModuleLoaderFactory func(ctx context.Context) (ModuleLoader, error)

type interpreterConfig struct {
	clock         clock.Clock
	logger        *slog.Logger
	registry      *hostfuncs.HandlerRegistry
	converter     ports.ValueConverter
	policy        ports.ImportPolicy
	libraries     starlark.StringDict
	id            string
	searchPaths   []string
	loaders       []ModuleLoaderFactory
	maxSteps      uint64
	cacheSize     int
	maxOutputSize int
}

func defaultInterpreterConfig() interpreterConfig {
	return interpreterConfig{
		clock:         clock.New(),
		libraries:     starlark.StringDict{},
		cacheSize:     entities.DefaultProgramCacheSize,
		maxOutputSize: DefaultMaxOutputSize,
	}
}

// InterpreterOption configures an Interpreter.
type InterpreterOption func(*interpreterConfig)

// WithConfig applies the interpreter section of the configuration.
func WithConfig(cfg entities.InterpreterConfig) InterpreterOption {
	return func(c *interpreterConfig) {
		c.searchPaths = append([]string(nil), cfg.SearchPaths...)
		c.maxSteps = cfg.MaxExecutionSteps
		c.cacheSize = cfg.ProgramCacheSize
	}
}

// WithID overrides the generated interpreter id.
func WithID(id string) InterpreterOption {
	return func(c *interpreterConfig) {
		c.id = id
	}
}

// WithClock sets the clock used for activity timestamps.
func WithClock(clk clock.Clock) InterpreterOption {
	return func(c *interpreterConfig) {
		c.clock = clk
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) InterpreterOption {
	return func(c *interpreterConfig) {
		c.logger = logger
	}
}

// WithHostFunctions binds every group of the registry as a module in the
// baseline namespace. Host functions need a converter (see WithConverter).
func WithHostFunctions(registry *hostfuncs.HandlerRegistry) InterpreterOption {
	return func(c *interpreterConfig) {
		c.registry = registry
	}
}

// WithConverter sets the converter used for host function arguments and
// results.
func WithConverter(conv ports.ValueConverter) InterpreterOption {
	return func(c *interpreterConfig) {
		c.converter = conv
	}
}

// WithPolicy restricts imports and search path additions.
func WithPolicy(policy ports.ImportPolicy) InterpreterOption {
	return func(c *interpreterConfig) {
		c.policy = policy
	}
}

// WithSearchPaths sets the initial module search path.
func WithSearchPaths(paths ...string) InterpreterOption {
	return func(c *interpreterConfig) {
		c.searchPaths = append([]string(nil), paths...)
	}
}

// WithMaxExecutionSteps bounds the runtime steps of one operation. 0 means
// unlimited.
func WithMaxExecutionSteps(steps uint64) InterpreterOption {
	return func(c *interpreterConfig) {
		c.maxSteps = steps
	}
}

// WithProgramCacheSize sets how many compiled modules are kept. 0 disables
// the cache.
func WithProgramCacheSize(size int) InterpreterOption {
	return func(c *interpreterConfig) {
		c.cacheSize = size
	}
}

// WithMaxOutputSize limits captured print output per operation.
func WithMaxOutputSize(size int) InterpreterOption {
	return func(c *interpreterConfig) {
		c.maxOutputSize = size
	}
}

// WithLibrary registers a module that can be imported by name without being
// bound in the baseline namespace.
func WithLibrary(name string, module starlark.Value) InterpreterOption {
	return func(c *interpreterConfig) {
		c.libraries[name] = module
	}
}

// WithModuleLoader adds a loader for another module file type.
func WithModuleLoader(factory ModuleLoaderFactory) InterpreterOption {
	return func(c *interpreterConfig) {
		c.loaders = append(c.loaders, factory)
	}
}
