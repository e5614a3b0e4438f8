// Package errors provides the error taxonomy of the interpreter pool and bridge.
// All error types support error unwrapping via errors.As() and errors.Is().
//
// Infrastructure failures (pool exhaustion, disposal, cancellation) are
// returned as Go errors. Script failures are data: they travel inside
// entities.ExecutionResult, and only surface as *ScriptError from calls that
// have no result object to carry them (Evaluate, Call).
package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is implemented by error types that can describe themselves
// as a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to a structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// FromContext maps a context error to *TimeoutError or *CanceledError.
// Any other error is returned unchanged.
func FromContext(operation string, err error, limit time.Duration) error {
	switch {
	case err == nil:
		return nil
	case stdErrors.Is(err, context.DeadlineExceeded):
		return &TimeoutError{Operation: operation, Duration: limit}
	case stdErrors.Is(err, context.Canceled):
		return &CanceledError{Operation: operation}
	default:
		return err
	}
}

// InitializationError means an interpreter's runtime could not start.
// It is fatal to that instance and non-fatal to the pool.
type InitializationError struct {
	Err           error
	InterpreterID string
}

func (e *InitializationError) Error() string {
	if e.InterpreterID != "" {
		return fmt.Sprintf("interpreter %s failed to initialize: %v", e.InterpreterID, e.Err)
	}
	return fmt.Sprintf("interpreter failed to initialize: %v", e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *InitializationError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "internal", Code: "initialization"}
}

// PoolInitializationError means not a single interpreter could be created.
type PoolInitializationError struct {
	Err       error
	Requested int
}

func (e *PoolInitializationError) Error() string {
	return fmt.Sprintf("pool initialization failed: 0 of %d interpreters created: %v", e.Requested, e.Err)
}

func (e *PoolInitializationError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *PoolInitializationError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "pool", Code: "initialization"}
}

// TimeoutError represents an operation that exceeded its time bound.
// Callers may retry.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Duration > 0 {
		return fmt.Sprintf("%s timeout after %v", e.Operation, e.Duration)
	}
	return fmt.Sprintf("%s timeout", e.Operation)
}

func (e *TimeoutError) Timeout() bool {
	return true
}

// Is lets errors.Is(err, context.DeadlineExceeded) match.
func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// ToErrorDetail implements DetailedError.
func (e *TimeoutError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "timeout", Code: e.Operation, IsTimeout: true}
}

// CanceledError represents a caller-requested abort. It is not an error state
// of the pool or the interpreter.
type CanceledError struct {
	Operation string
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("%s canceled", e.Operation)
}

// Is lets errors.Is(err, context.Canceled) match.
func (e *CanceledError) Is(target error) bool {
	return target == context.Canceled
}

// ToErrorDetail implements DetailedError.
func (e *CanceledError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "canceled", Code: e.Operation}
}

// ScriptError is a syntax or runtime error raised by scripted code.
type ScriptError struct {
	// Kind is "syntax" or "runtime".
	Kind      string
	Message   string
	Backtrace string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// ToErrorDetail implements DetailedError.
func (e *ScriptError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Message, Type: e.Kind, Code: "script", Stack: e.Backtrace}
}

// ConversionError represents a value that cannot cross the type boundary.
type ConversionError struct {
	Err  error
	From string
	To   string
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot convert %s to %s: %v", e.From, e.To, e.Err)
	}
	return fmt.Sprintf("cannot convert %s to %s", e.From, e.To)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConversionError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "conversion", Code: e.From + "->" + e.To}
}

// NameNotFoundError means a global variable or function does not exist.
type NameNotFoundError struct {
	Name string
}

func (e *NameNotFoundError) Error() string {
	return fmt.Sprintf("name %q is not defined", e.Name)
}

// ToErrorDetail implements DetailedError.
func (e *NameNotFoundError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "runtime", Code: "name_not_found", IsNotFound: true}
}

// ImportError means a module could not be found or failed to load.
type ImportError struct {
	Err    error
	Module string
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot import module %q: %v", e.Module, e.Err)
	}
	return fmt.Sprintf("cannot import module %q", e.Module)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ImportError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "runtime", Code: "import:" + e.Module}
}

// DisposedError means an operation was attempted on a disposed interpreter.
type DisposedError struct {
	InterpreterID string
}

func (e *DisposedError) Error() string {
	return fmt.Sprintf("interpreter %s is disposed", e.InterpreterID)
}

// ToErrorDetail implements DetailedError.
func (e *DisposedError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "internal", Code: "disposed"}
}

// InterpreterFaultError means the runtime itself failed (for example a panic
// escaped it). The instance is replaced on return.
type InterpreterFaultError struct {
	Cause         any
	InterpreterID string
}

func (e *InterpreterFaultError) Error() string {
	return fmt.Sprintf("interpreter %s faulted: %v", e.InterpreterID, e.Cause)
}

// ToErrorDetail implements DetailedError.
func (e *InterpreterFaultError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "internal", Code: "fault"}
}

var errPoolDisposed = stdErrors.New("interpreter pool is disposed")

// PoolDisposedError is returned by pool operations after Close.
type PoolDisposedError struct {
	Operation string
}

func (e *PoolDisposedError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("%s: %v", e.Operation, errPoolDisposed)
	}
	return errPoolDisposed.Error()
}

// ToErrorDetail implements DetailedError.
func (e *PoolDisposedError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "pool", Code: "disposed"}
}

// TransactionAlreadyActiveError means Begin was called while another
// transaction is Active.
type TransactionAlreadyActiveError struct {
	Active string
}

func (e *TransactionAlreadyActiveError) Error() string {
	return fmt.Sprintf("transaction %q is already active", e.Active)
}

// ToErrorDetail implements DetailedError.
func (e *TransactionAlreadyActiveError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "transaction", Code: "already_active"}
}

// NoActiveTransactionError means a mutation or commit was attempted without
// an Active transaction.
type NoActiveTransactionError struct {
	Operation string
}

func (e *NoActiveTransactionError) Error() string {
	return fmt.Sprintf("%s requires an active transaction", e.Operation)
}

// ToErrorDetail implements DetailedError.
func (e *NoActiveTransactionError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "transaction", Code: "no_active"}
}

// TransactionError means a commit failed and the transaction was rolled back.
type TransactionError struct {
	Err   error
	Label string
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %q rolled back: %v", e.Label, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *TransactionError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "transaction", Code: "commit_failed"}
}

// ElementNotFoundError means the host model has no element with the given id.
type ElementNotFoundError struct {
	ID entities.ElementID
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element %d not found", e.ID)
}

// ToErrorDetail implements DetailedError.
func (e *ElementNotFoundError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "host_function", Code: "element_not_found", IsNotFound: true}
}

// PolicyError represents an import or search path denied by policy.
type PolicyError struct {
	Kind    string // "module" or "path"
	Subject string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s %q is not allowed by policy", e.Kind, e.Subject)
}

// ToErrorDetail implements DetailedError.
func (e *PolicyError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "policy", Code: e.Kind}
}

// HostFunctionError represents a failure while dispatching a host function.
type HostFunctionError struct {
	Err      error
	Function string
	// Code is "not_found", "invalid_arguments", "panic" or "failed".
	Code string
}

func (e *HostFunctionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("host function %s: %s: %v", e.Function, e.Code, e.Err)
	}
	return fmt.Sprintf("host function %s: %s", e.Function, e.Code)
}

func (e *HostFunctionError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *HostFunctionError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message:    e.Error(),
		Type:       "host_function",
		Code:       e.Code,
		IsNotFound: e.Code == "not_found",
	}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: e.Field}
}
