package ports

import (
	"context"
	"time"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
)

// Interpreter is one embedded, independently-stateful scripting runtime.
// An Interpreter is not safe for concurrent use; the pool guarantees a single
// borrower at a time.
type Interpreter interface {
	// ID returns the stable unique identity assigned at creation.
	ID() string

	// Initialize starts the runtime. It is idempotent.
	Initialize(ctx context.Context) error

	// Execute runs a statement block. Script failures are reported in the
	// result; only host-level failures are returned as errors.
	Execute(ctx context.Context, code string, globals map[string]entities.Value) (*entities.ExecutionResult, error)

	// Evaluate computes the value of an expression.
	Evaluate(ctx context.Context, expr string) (entities.Value, error)

	// Call invokes a function by name. An empty module means a global function.
	Call(ctx context.Context, module, function string, args []entities.Value, kwargs map[string]entities.Value) (entities.Value, error)

	// SetVariable binds a global.
	SetVariable(name string, value entities.Value) error

	// GetVariable reads a global.
	GetVariable(name string) (entities.Value, error)

	// ImportModule makes a module available in the global namespace.
	ImportModule(ctx context.Context, name string) error

	// AddPath extends the module search path.
	AddPath(path string) error

	// HasModule reports whether a module is bound in the namespace.
	HasModule(name string) bool

	// MemoryInfo returns advisory counters. It never fails.
	MemoryInfo() entities.MemoryInfo

	// LastActivity returns the time of the last operation attempt.
	LastActivity() time.Time

	// Ping runs a side-effect free probe.
	Ping(ctx context.Context) error

	// Healthy reports whether the instance may be reused.
	Healthy() bool

	// Reset clears user state back to the initialized baseline.
	Reset(ctx context.Context) error

	// Collect releases caches without touching user state.
	Collect()

	// Close releases all runtime resources. Later calls fail with DisposedError.
	Close(ctx context.Context) error
}

// InterpreterFactory creates uninitialized interpreters.
type InterpreterFactory func(ctx context.Context) (Interpreter, error)

// ValueConverter maps host-native Go values to and from entities.Value.
type ValueConverter interface {
	ToValue(native any) (entities.Value, error)
	FromValue(v entities.Value) (any, error)
}
