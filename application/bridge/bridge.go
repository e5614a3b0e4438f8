// Package bridge is the facade scripts and host code meet through.
//
// A Bridge borrows an interpreter from the pool for every execute, evaluate,
// call and import, and always returns it. Host model mutations go through
// the element, geometry and parameter sub-bridges inside a transaction.
package bridge

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/aj-geddes/revitpy-sub005/application/convert"
	"github.com/aj-geddes/revitpy-sub005/application/transaction"
	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/domain/errors"
	"github.com/aj-geddes/revitpy-sub005/domain/policy"
	"github.com/aj-geddes/revitpy-sub005/domain/ports"
	"github.com/aj-geddes/revitpy-sub005/host"
	"github.com/aj-geddes/revitpy-sub005/host/pool"
	"github.com/aj-geddes/revitpy-sub005/hostfuncs"
	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

// Bridge composes the interpreter pool, the type converter, the transaction
// manager and the sub-bridges. It is safe for concurrent use.
type Bridge struct {
	cfg    entities.Config
	clock  clock.Clock
	logger *slog.Logger

	pool       *pool.Pool
	converter  *convert.TypeConverter
	tx         *transaction.Manager
	elements   *ElementBridge
	geometry   *GeometryBridge
	parameters *ParameterBridge
	registry   *hostfuncs.HandlerRegistry

	executions     *atomic.Uint64
	evaluations    *atomic.Uint64
	calls          *atomic.Uint64
	imports        *atomic.Uint64
	scriptFailures *atomic.Uint64
	failures       *atomic.Uint64
	total          *atomic.Uint64

	mu      sync.Mutex
	modules []string
}

// New creates a Bridge over model. Call Initialize before use.
func New(cfg entities.Config, model ports.HostModel, opts ...Option) (*Bridge, error) {
	c := defaultBridgeConfig()
	for _, opt := range opts {
		opt(&c)
	}
	if model == nil {
		return nil, &errors.ConfigError{Field: "model", Err: fmt.Errorf("host model is required")}
	}
	if c.validator != nil {
		if err := c.validator.Validate(&cfg); err != nil {
			return nil, err
		}
	}

	b := &Bridge{
		cfg:            cfg,
		clock:          c.clock,
		logger:         c.logger,
		converter:      convert.New(convert.WithLogger(c.logger)),
		tx:             transaction.NewManager(model, transaction.WithClock(c.clock), transaction.WithLogger(c.logger)),
		executions:     atomic.NewUint64(0),
		evaluations:    atomic.NewUint64(0),
		calls:          atomic.NewUint64(0),
		imports:        atomic.NewUint64(0),
		scriptFailures: atomic.NewUint64(0),
		failures:       atomic.NewUint64(0),
		total:          atomic.NewUint64(0),
	}
	b.elements = NewElementBridge(b.tx)
	b.geometry = NewGeometryBridge(b.tx)
	b.parameters = NewParameterBridge(b.tx, b.converter)

	registryOpts := []hostfuncs.RegistryOption{
		hostfuncs.WithMiddleware(hostfuncs.PanicRecoveryMiddleware(), hostfuncs.LoggingMiddleware(c.logger)),
		hostfuncs.WithBundle(HostBundle(b.elements, b.geometry, b.parameters)),
	}
	registry, err := hostfuncs.NewRegistry(append(registryOpts, c.registryOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to build host function registry: %w", err)
	}
	b.registry = registry

	factory := c.factory
	if factory == nil {
		interpOpts := []host.InterpreterOption{
			host.WithConfig(cfg.Interpreter),
			host.WithClock(c.clock),
			host.WithLogger(c.logger),
			host.WithConverter(b.converter),
			host.WithHostFunctions(registry),
			host.WithPolicy(policy.NewPolicy(
				cfg.Interpreter.AllowedModules,
				cfg.Interpreter.AllowedPaths,
				policy.WithDenialHandler(&policy.LogDenialHandler{Logger: c.logger}),
			)),
		}
		factory = host.NewFactory(append(interpOpts, c.interpreterOpts...)...)
	}

	b.pool, err = pool.New(cfg.Pool, factory, pool.WithClock(c.clock), pool.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Initialize creates the pool's interpreters.
func (b *Bridge) Initialize(ctx context.Context) error {
	if err := b.pool.Initialize(ctx); err != nil {
		return err
	}
	b.logger.Info("bridge initialized", "capacity", b.cfg.Pool.Capacity, "host_functions", len(b.registry.Names()))
	return nil
}

// Elements returns the element sub-bridge.
func (b *Bridge) Elements() *ElementBridge { return b.elements }

// Geometry returns the geometry sub-bridge.
func (b *Bridge) Geometry() *GeometryBridge { return b.geometry }

// Parameters returns the parameter sub-bridge.
func (b *Bridge) Parameters() *ParameterBridge { return b.parameters }

// Converter returns the type converter shared by every component.
func (b *Bridge) Converter() *convert.TypeConverter { return b.converter }

// HostFunctions returns the sorted names of the host functions scripts see.
func (b *Bridge) HostFunctions() []string { return b.registry.Names() }

// withInterpreter rents an interpreter, replays remembered imports and runs
// fn. The rental is released on every path. The execution timeout bounds
// the wait for the rental and fn together.
func (b *Bridge) withInterpreter(ctx context.Context, op string, counter *atomic.Uint64, fn func(context.Context, ports.Interpreter) error) error {
	b.total.Inc()
	counter.Inc()

	if limit := b.cfg.Bridge.ExecutionTimeout; limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = b.clock.WithTimeout(ctx, limit)
		defer cancel()
	}

	err := b.pool.With(ctx, func(interp ports.Interpreter) error {
		if err := b.replayImports(ctx, interp); err != nil {
			return err
		}
		return fn(ctx, interp)
	})
	if err != nil {
		b.failures.Inc()
		var scriptErr *errors.ScriptError
		if stdErrors.As(err, &scriptErr) {
			b.scriptFailures.Inc()
		}
		err = b.withTimeoutDuration(op, err)
		b.logger.Debug("bridge operation failed", "operation", op, "error", err)
	}
	return err
}

// withTimeoutDuration names the execution timeout in timeouts raised by the
// interpreter, which does not know it.
func (b *Bridge) withTimeoutDuration(op string, err error) error {
	var timeoutErr *errors.TimeoutError
	if limit := b.cfg.Bridge.ExecutionTimeout; limit > 0 && stdErrors.As(err, &timeoutErr) && timeoutErr.Duration == 0 {
		return &errors.TimeoutError{Operation: op, Duration: limit}
	}
	return err
}

func (b *Bridge) replayImports(ctx context.Context, interp ports.Interpreter) error {
	b.mu.Lock()
	modules := slices.Clone(b.modules)
	b.mu.Unlock()

	for _, name := range modules {
		if interp.HasModule(name) {
			continue
		}
		if err := interp.ImportModule(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bridge) toValues(args []any) ([]entities.Value, error) {
	values := make([]entities.Value, len(args))
	for i, arg := range args {
		v, err := b.converter.ToValue(arg)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (b *Bridge) toValueMap(m map[string]any) (map[string]entities.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	values := make(map[string]entities.Value, len(m))
	for k, arg := range m {
		v, err := b.converter.ToValue(arg)
		if err != nil {
			return nil, err
		}
		values[k] = v
	}
	return values, nil
}

// ExecuteCode runs a statement block on a pooled interpreter. globals are
// converted and bound first. A script failure is reported in the result,
// not as an error.
func (b *Bridge) ExecuteCode(ctx context.Context, code string, globals map[string]any) (*entities.ExecutionResult, error) {
	var result *entities.ExecutionResult
	err := b.withInterpreter(ctx, "execute", b.executions, func(ctx context.Context, interp ports.Interpreter) error {
		values, err := b.toValueMap(globals)
		if err != nil {
			return err
		}
		result, err = interp.Execute(ctx, code, values)
		return err
	})
	if err != nil {
		return nil, err
	}
	if result.Failed() {
		b.scriptFailures.Inc()
	}
	return result, nil
}

// EvaluateExpression computes an expression on a pooled interpreter.
// Script failures are *errors.ScriptError.
func (b *Bridge) EvaluateExpression(ctx context.Context, expr string) (entities.Value, error) {
	var value entities.Value
	err := b.withInterpreter(ctx, "evaluate", b.evaluations, func(ctx context.Context, interp ports.Interpreter) error {
		var err error
		value, err = interp.Evaluate(ctx, expr)
		return err
	})
	return value, err
}

// Evaluate computes an expression and converts the result to T.
// A result that does not fit T is *errors.ConversionError.
func Evaluate[T any](ctx context.Context, b *Bridge, expr string) (T, error) {
	v, err := b.EvaluateExpression(ctx, expr)
	if err != nil {
		var zero T
		return zero, err
	}
	out, err := convert.As[T](b.converter, v)
	if err != nil {
		b.failures.Inc()
	}
	return out, err
}

// CallFunction calls module.function on a pooled interpreter. An empty
// module calls a global function. Arguments are converted first.
func (b *Bridge) CallFunction(ctx context.Context, module, function string, args []any, kwargs map[string]any) (entities.Value, error) {
	var value entities.Value
	err := b.withInterpreter(ctx, "call", b.calls, func(ctx context.Context, interp ports.Interpreter) error {
		positional, err := b.toValues(args)
		if err != nil {
			return err
		}
		named, err := b.toValueMap(kwargs)
		if err != nil {
			return err
		}
		value, err = interp.Call(ctx, module, function, positional, named)
		return err
	})
	return value, err
}

// CallFunctionAs calls a function and converts the result to T.
func CallFunctionAs[T any](ctx context.Context, b *Bridge, module, function string, args []any, kwargs map[string]any) (T, error) {
	v, err := b.CallFunction(ctx, module, function, args, kwargs)
	if err != nil {
		var zero T
		return zero, err
	}
	out, err := convert.As[T](b.converter, v)
	if err != nil {
		b.failures.Inc()
	}
	return out, err
}

// ImportModule imports a module on a pooled interpreter and remembers it,
// so every later rental has it bound too.
func (b *Bridge) ImportModule(ctx context.Context, name string) error {
	err := b.withInterpreter(ctx, "import", b.imports, func(ctx context.Context, interp ports.Interpreter) error {
		return interp.ImportModule(ctx, name)
	})
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !slices.Contains(b.modules, name) {
		b.modules = append(b.modules, name)
	}
	return nil
}

// ImportedModules returns the remembered imports in import order.
func (b *Bridge) ImportedModules() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.modules)
}

// BeginTransaction opens the single active transaction.
func (b *Bridge) BeginTransaction(label string, opts ...transaction.BeginOption) (*transaction.Transaction, error) {
	b.total.Inc()
	tx, err := b.tx.Begin(label, opts...)
	if err != nil {
		b.failures.Inc()
	}
	return tx, err
}

// Commit makes the transaction's mutations visible. A failed commit rolls
// back and returns *errors.TransactionError.
func (b *Bridge) Commit(tx *transaction.Transaction) error {
	b.total.Inc()
	err := b.tx.Commit(tx)
	if err != nil {
		b.failures.Inc()
	}
	return err
}

// Rollback discards the transaction's mutations.
func (b *Bridge) Rollback(tx *transaction.Transaction) error {
	b.total.Inc()
	err := b.tx.Rollback(tx)
	if err != nil {
		b.failures.Inc()
	}
	return err
}

// ActiveTransaction returns the active transaction's description.
func (b *Bridge) ActiveTransaction() (entities.TransactionInfo, bool) {
	tx, ok := b.tx.Active()
	if !ok {
		return entities.TransactionInfo{}, false
	}
	return b.tx.Info(tx), true
}

// RunTransaction runs fn in a transaction that commits when fn returns nil.
func (b *Bridge) RunTransaction(label string, fn func(ports.ModelEditor) error) error {
	b.total.Inc()
	err := b.tx.Run(label, fn)
	if err != nil {
		b.failures.Inc()
	}
	return err
}

// ExecuteInTransaction runs code inside a new transaction. The transaction
// commits when the script succeeds and rolls back otherwise.
func (b *Bridge) ExecuteInTransaction(ctx context.Context, label, code string, globals map[string]any) (*entities.ExecutionResult, error) {
	tx, err := b.BeginTransaction(label)
	if err != nil {
		return nil, err
	}

	result, err := b.ExecuteCode(ctx, code, globals)
	if err != nil || result.Failed() {
		if rbErr := b.Rollback(tx); rbErr != nil {
			b.logger.Warn("rollback after failed script did not run", "label", label, "error", rbErr)
		}
		return result, err
	}
	if err := b.Commit(tx); err != nil {
		return result, err
	}
	return result, nil
}

// HealthCheck probes every idle interpreter.
func (b *Bridge) HealthCheck(ctx context.Context) (entities.HealthReport, error) {
	return b.pool.HealthCheck(ctx)
}

// ResetPool replaces every interpreter with a fresh one. Remembered imports
// are replayed on the new interpreters as they are rented.
func (b *Bridge) ResetPool(ctx context.Context) error {
	return b.pool.Reset(ctx)
}

// OptimizeMemory asks idle interpreters to drop their caches and returns how
// many did. Rented interpreters are left alone.
func (b *Bridge) OptimizeMemory(ctx context.Context) (int, error) {
	return b.pool.Optimize(ctx)
}

// Stats merges the statistics of every component.
func (b *Bridge) Stats() entities.BridgeStats {
	return entities.BridgeStats{
		CapturedAt:      b.clock.Now(),
		Pool:            b.pool.Stats(),
		TypeConversion:  b.converter.Stats(),
		Transactions:    b.tx.Stats(),
		Element:         b.elements.Stats(),
		Geometry:        b.geometry.Stats(),
		Parameter:       b.parameters.Stats(),
		Executions:      b.executions.Load(),
		Evaluations:     b.evaluations.Load(),
		FunctionCalls:   b.calls.Load(),
		Imports:         b.imports.Load(),
		ScriptFailures:  b.scriptFailures.Load(),
		Failures:        b.failures.Load(),
		TotalOperations: b.total.Load(),
	}
}

// ResetStats zeroes every counter. Interpreters, rentals and the active
// transaction are untouched.
func (b *Bridge) ResetStats() {
	for _, c := range []*atomic.Uint64{
		b.executions, b.evaluations, b.calls, b.imports,
		b.scriptFailures, b.failures, b.total,
	} {
		c.Store(0)
	}
	b.converter.ResetStats()
	b.tx.ResetStats()
	b.elements.ResetStats()
	b.geometry.ResetStats()
	b.parameters.ResetStats()
	b.pool.ResetCounters()
}

// Close rolls back an active transaction and closes the pool. Waiting
// renters fail with *errors.PoolDisposedError.
func (b *Bridge) Close(ctx context.Context) error {
	var errs error
	if tx, ok := b.tx.Active(); ok {
		b.logger.Warn("rolling back active transaction on close", "label", tx.Label())
		errs = multierr.Append(errs, b.tx.Rollback(tx))
	}
	return multierr.Append(errs, b.pool.Close(ctx))
}
