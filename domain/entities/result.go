package entities

import (
	"time"
)

// ExecutionResult is the outcome of running a statement block in an interpreter.
// Script-level failures (syntax errors, runtime exceptions) are reported here
// with Success=false rather than as Go errors.
type ExecutionResult struct {
	// StartedAt is when execution began.
	StartedAt time.Time `json:"started_at"`

	// Error describes the script failure when Success is false.
	// Error.Stack holds the runtime backtrace.
	Error *ErrorDetail `json:"error,omitempty"`

	// InterpreterID identifies the interpreter that ran the code.
	InterpreterID string `json:"interpreter_id"`

	// Output is everything the script printed.
	Output string `json:"output,omitempty"`

	// Duration is the wall time spent executing.
	Duration time.Duration `json:"duration_ns"`

	// Success is true if the block ran to completion.
	Success bool `json:"success"`
}

// Failed returns true if the script raised an error.
func (r *ExecutionResult) Failed() bool {
	return r != nil && !r.Success
}
