package host

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/domain/errors"
	"github.com/aj-geddes/revitpy-sub005/domain/ports"
	"github.com/golang/groupcache/lru"
	"github.com/google/uuid"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

var errNotInitialized = stdErrors.New("interpreter is not initialized")

// pingExpr is the side-effect free health probe.
const pingExpr = "1 + 1 == 2"

// Ensure Interpreter satisfies the port.
var _ ports.Interpreter = (*Interpreter)(nil)

// Interpreter is one Starlark runtime with its own global namespace.
// It is not safe for concurrent use by multiple borrowers; operations are
// serialized by an internal mutex so a misbehaving caller cannot corrupt it.
type Interpreter struct {
	config       interpreterConfig
	logger       *slog.Logger
	lastActivity *atomic.Time
	steps        *atomic.Uint64
	initialized  *atomic.Bool
	disposed     *atomic.Bool
	healthy      *atomic.Bool

	mu          sync.Mutex
	baseline    starlark.StringDict
	globals     starlark.StringDict
	imported    map[string]bool
	loaded      map[string]*loadEntry
	searchPaths []string
	loaders     []ModuleLoader
	programs    *lru.Cache
	output      *boundedBuffer
	id          string
}

// New creates an uninitialized interpreter.
func New(opts ...InterpreterOption) *Interpreter {
	cfg := defaultInterpreterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	id := cfg.id
	if id == "" {
		id = uuid.NewString()
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Interpreter{
		config:       cfg,
		id:           id,
		logger:       logger.With("interpreter_id", id),
		lastActivity: atomic.NewTime(cfg.clock.Now()),
		steps:        atomic.NewUint64(0),
		initialized:  atomic.NewBool(false),
		disposed:     atomic.NewBool(false),
		healthy:      atomic.NewBool(true),
		output:       newBoundedBuffer(cfg.maxOutputSize),
	}
}

// NewFactory returns an InterpreterFactory producing interpreters built with
// opts. Each interpreter gets its own id.
func NewFactory(opts ...InterpreterOption) ports.InterpreterFactory {
	return func(ctx context.Context) (ports.Interpreter, error) {
		if err := ctx.Err(); err != nil {
			return nil, errors.FromContext("create interpreter", err, 0)
		}
		return New(opts...), nil
	}
}

// ID returns the interpreter's unique identity.
func (i *Interpreter) ID() string {
	return i.id
}

// LastActivity returns the time of the last operation attempt.
func (i *Interpreter) LastActivity() time.Time {
	return i.lastActivity.Load()
}

// Healthy reports whether the instance is initialized, not disposed, and has
// not faulted.
func (i *Interpreter) Healthy() bool {
	return i.initialized.Load() && !i.disposed.Load() && i.healthy.Load()
}

func (i *Interpreter) touch() {
	i.lastActivity.Store(i.config.clock.Now())
}

// Initialize builds the baseline namespace. Calling it again is a no-op.
func (i *Interpreter) Initialize(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.touch()

	if i.disposed.Load() {
		return &errors.DisposedError{InterpreterID: i.id}
	}
	if i.initialized.Load() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &errors.InitializationError{InterpreterID: i.id, Err: err}
	}
	if i.config.registry != nil && len(i.config.registry.Groups()) > 0 && i.config.converter == nil {
		return &errors.InitializationError{
			InterpreterID: i.id,
			Err:           fmt.Errorf("host functions require a value converter"),
		}
	}

	loaders := make([]ModuleLoader, 0, len(i.config.loaders))
	for _, factory := range i.config.loaders {
		loader, err := factory(ctx)
		if err != nil {
			for _, l := range loaders {
				_ = l.Close(ctx)
			}
			return &errors.InitializationError{InterpreterID: i.id, Err: err}
		}
		loaders = append(loaders, loader)
	}

	i.loaders = loaders
	i.baseline = i.buildBaseline()
	if i.config.cacheSize > 0 {
		i.programs = lru.New(i.config.cacheSize)
	}
	i.resetState()
	i.initialized.Store(true)

	i.logger.Debug("interpreter initialized", "baseline", len(i.baseline), "search_paths", len(i.searchPaths))
	return nil
}

// resetState restores the namespace to the baseline. Callers hold i.mu.
func (i *Interpreter) resetState() {
	i.globals = make(starlark.StringDict, len(i.baseline))
	for k, v := range i.baseline {
		i.globals[k] = v
	}
	i.imported = make(map[string]bool)
	i.loaded = make(map[string]*loadEntry)
	i.searchPaths = append([]string(nil), i.config.searchPaths...)
	i.output.Reset()
}

// ready checks that the interpreter can run an operation. Callers hold i.mu.
func (i *Interpreter) ready() error {
	if i.disposed.Load() {
		return &errors.DisposedError{InterpreterID: i.id}
	}
	if !i.initialized.Load() {
		return &errors.InitializationError{InterpreterID: i.id, Err: errNotInitialized}
	}
	return nil
}

// recoverFault turns a panic escaping the runtime into an
// InterpreterFaultError and marks the instance unhealthy.
func (i *Interpreter) recoverFault(err *error) {
	if r := recover(); r != nil {
		i.healthy.Store(false)
		i.logger.Error("interpreter faulted", "panic", r)
		*err = &errors.InterpreterFaultError{Cause: r, InterpreterID: i.id}
	}
}

// Execute runs a block of statements in the persistent global namespace.
// globals are bound before the code runs. A syntax or runtime error in the
// script is reported in the result; cancellation is returned as an error.
func (i *Interpreter) Execute(ctx context.Context, code string, globals map[string]entities.Value) (result *entities.ExecutionResult, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	defer i.recoverFault(&err)
	i.touch()

	if err := i.ready(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.FromContext("execute", err, 0)
	}

	for name, value := range globals {
		sv, err := toStarlark(value)
		if err != nil {
			return nil, err
		}
		i.globals[name] = sv
	}

	start := i.config.clock.Now()
	result = &entities.ExecutionResult{
		InterpreterID: i.id,
		StartedAt:     start,
	}
	i.output.Reset()

	runErr := i.run(ctx, func(thread *starlark.Thread) error {
		f, err := i.fileOptions().Parse("<exec>", code, 0)
		if err != nil {
			return err
		}
		return starlark.ExecREPLChunk(f, thread, i.globals)
	})

	result.Duration = i.config.clock.Since(start)
	result.Output = i.output.String()
	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.FromContext("execute", ctxErr, 0)
		}
		scriptErr := classify(runErr)
		result.Error = scriptErr.ToErrorDetail()
		i.logger.Debug("script failed", "kind", scriptErr.Kind, "error", scriptErr.Message)
		return result, nil
	}
	result.Success = true
	return result, nil
}

// Evaluate computes a single expression against the global namespace.
// Script failures are returned as *errors.ScriptError.
func (i *Interpreter) Evaluate(ctx context.Context, expr string) (value entities.Value, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	defer i.recoverFault(&err)
	i.touch()

	sv, err := i.eval(ctx, expr)
	if err != nil {
		return entities.NoneValue(), err
	}
	return fromStarlark(sv)
}

func (i *Interpreter) eval(ctx context.Context, expr string) (starlark.Value, error) {
	if err := i.ready(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.FromContext("evaluate", err, 0)
	}

	i.output.Reset()
	var out starlark.Value
	runErr := i.run(ctx, func(thread *starlark.Thread) error {
		v, err := starlark.EvalOptions(i.fileOptions(), thread, "<eval>", expr, i.globals)
		out = v
		return err
	})
	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.FromContext("evaluate", ctxErr, 0)
		}
		return nil, classify(runErr)
	}
	return out, nil
}

// EvaluateAs evaluates expr and decodes the result into T.
func EvaluateAs[T any](ctx context.Context, interp ports.Interpreter, expr string) (T, error) {
	v, err := interp.Evaluate(ctx, expr)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeAs[T](v)
}

// GetVariableAs reads a global and decodes it into T.
func GetVariableAs[T any](interp ports.Interpreter, name string) (T, error) {
	v, err := interp.GetVariable(name)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeAs[T](v)
}

func decodeAs[T any](v entities.Value) (T, error) {
	out, err := entities.As[T](v)
	if err != nil {
		return out, &errors.ConversionError{
			From: v.Kind().String(),
			To:   reflect.TypeFor[T]().String(),
			Err:  err,
		}
	}
	return out, nil
}

// Call invokes a callable. With an empty module the function is looked up in
// the global namespace, otherwise as an attribute of the named module.
func (i *Interpreter) Call(ctx context.Context, module, function string, args []entities.Value, kwargs map[string]entities.Value) (value entities.Value, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	defer i.recoverFault(&err)
	i.touch()

	if err := i.ready(); err != nil {
		return entities.NoneValue(), err
	}
	if err := ctx.Err(); err != nil {
		return entities.NoneValue(), errors.FromContext("call", err, 0)
	}

	fn, err := i.lookupCallable(module, function)
	if err != nil {
		return entities.NoneValue(), err
	}

	positional := make(starlark.Tuple, len(args))
	for n, arg := range args {
		sv, err := toStarlark(arg)
		if err != nil {
			return entities.NoneValue(), err
		}
		positional[n] = sv
	}
	keys := make([]string, 0, len(kwargs))
	for k := range kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	named := make([]starlark.Tuple, 0, len(keys))
	for _, k := range keys {
		sv, err := toStarlark(kwargs[k])
		if err != nil {
			return entities.NoneValue(), err
		}
		named = append(named, starlark.Tuple{starlark.String(k), sv})
	}

	i.output.Reset()
	var out starlark.Value
	runErr := i.run(ctx, func(thread *starlark.Thread) error {
		v, err := starlark.Call(thread, fn, positional, named)
		out = v
		return err
	})
	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return entities.NoneValue(), errors.FromContext("call", ctxErr, 0)
		}
		return entities.NoneValue(), classify(runErr)
	}
	return fromStarlark(out)
}

func (i *Interpreter) lookupCallable(module, function string) (starlark.Callable, error) {
	qualified := function
	var v starlark.Value
	if module == "" {
		v = i.globals[function]
	} else {
		qualified = module + "." + function
		mod, ok := i.globals[module]
		if !ok {
			return nil, &errors.NameNotFoundError{Name: module}
		}
		attrs, ok := mod.(starlark.HasAttrs)
		if !ok {
			return nil, &errors.NameNotFoundError{Name: qualified}
		}
		attr, err := attrs.Attr(function)
		if err != nil {
			return nil, &errors.NameNotFoundError{Name: qualified}
		}
		v = attr
	}
	if v == nil {
		return nil, &errors.NameNotFoundError{Name: qualified}
	}
	fn, ok := v.(starlark.Callable)
	if !ok {
		return nil, &errors.ConversionError{From: v.Type(), To: "callable"}
	}
	return fn, nil
}

// SetVariable binds a global.
func (i *Interpreter) SetVariable(name string, value entities.Value) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.touch()

	if err := i.ready(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("variable name cannot be empty")
	}
	sv, err := toStarlark(value)
	if err != nil {
		return err
	}
	i.globals[name] = sv
	return nil
}

// GetVariable reads a global.
func (i *Interpreter) GetVariable(name string) (entities.Value, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.touch()

	if err := i.ready(); err != nil {
		return entities.NoneValue(), err
	}
	v, ok := i.globals[name]
	if !ok {
		return entities.NoneValue(), &errors.NameNotFoundError{Name: name}
	}
	return fromStarlark(v)
}

// Ping evaluates a fixed expression and checks its result.
func (i *Interpreter) Ping(ctx context.Context) (err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	defer i.recoverFault(&err)
	i.touch()

	v, err := i.eval(ctx, pingExpr)
	if err != nil {
		return err
	}
	if v != starlark.True {
		i.healthy.Store(false)
		return fmt.Errorf("health probe %q returned %s", pingExpr, v)
	}
	return nil
}

// MemoryInfo returns advisory counters. It never fails; a disposed or
// uninitialized interpreter reports zeros.
func (i *Interpreter) MemoryInfo() entities.MemoryInfo {
	i.mu.Lock()
	defer i.mu.Unlock()

	info := entities.MemoryInfo{ExecutionSteps: i.steps.Load()}
	if !i.initialized.Load() || i.disposed.Load() {
		return info
	}
	for name, v := range i.globals {
		if i.isBaseline(name, v) {
			continue
		}
		info.ObjectCount++
		info.ActiveReferences += countHandles(v, 0)
	}
	if i.programs != nil {
		info.CachedPrograms = i.programs.Len()
	}
	info.ImportedModules = len(i.imported)
	return info
}

func (i *Interpreter) isBaseline(name string, v starlark.Value) bool {
	b, ok := i.baseline[name]
	if !ok {
		return false
	}
	if reflect.TypeOf(b) != reflect.TypeOf(v) || !reflect.TypeOf(v).Comparable() {
		return false
	}
	return b == v
}

// Reset restores the baseline namespace and search path. Compiled programs
// stay cached.
func (i *Interpreter) Reset(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.touch()

	if err := i.ready(); err != nil {
		return err
	}
	var errs error
	for _, loader := range i.loaders {
		errs = multierr.Append(errs, loader.Reset(ctx))
	}
	i.resetState()
	if errs != nil {
		i.healthy.Store(false)
	}
	return errs
}

// Collect drops the compiled program cache. User state is untouched.
func (i *Interpreter) Collect() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.programs != nil {
		i.programs.Clear()
	}
	i.output.Reset()
}

// Close releases the runtime. Further operations fail with DisposedError.
// Closing twice is a no-op.
func (i *Interpreter) Close(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.touch()

	if i.disposed.Swap(true) {
		return nil
	}
	var errs error
	for _, loader := range i.loaders {
		errs = multierr.Append(errs, loader.Close(ctx))
	}
	i.loaders = nil
	i.globals = nil
	i.baseline = nil
	i.loaded = nil
	i.programs = nil
	i.logger.Debug("interpreter closed", "execution_steps", i.steps.Load())
	return errs
}

// run executes fn on a fresh thread bound to ctx. The thread is cancelled
// when ctx is done.
func (i *Interpreter) run(ctx context.Context, fn func(*starlark.Thread) error) error {
	thread := i.newThread(ctx)
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	defer stop()

	err := fn(thread)
	i.steps.Add(thread.ExecutionSteps())
	return err
}

const threadContextKey = "context"

func (i *Interpreter) newThread(ctx context.Context) *starlark.Thread {
	thread := &starlark.Thread{
		Name: i.id,
		Print: func(_ *starlark.Thread, msg string) {
			i.output.WriteLine(msg)
		},
		Load: i.load,
	}
	if i.config.maxSteps > 0 {
		thread.SetMaxExecutionSteps(i.config.maxSteps)
	}
	thread.SetLocal(threadContextKey, ctx)
	return thread
}

// ThreadContext returns the context of the operation running on thread, for
// use by builtins that block.
func ThreadContext(thread *starlark.Thread) context.Context {
	if ctx, ok := thread.Local(threadContextKey).(context.Context); ok {
		return ctx
	}
	return context.Background()
}

func (i *Interpreter) fileOptions() *syntax.FileOptions {
	return &syntax.FileOptions{
		Set:             true,
		While:           true,
		TopLevelControl: true,
		GlobalReassign:  true,
		Recursion:       true,
	}
}
