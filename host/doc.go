// Package host embeds the Starlark runtime as an interpreter instance.
//
// An Interpreter owns one global namespace that persists between Execute
// calls until Reset. Its baseline namespace holds the math, json and time
// libraries, the struct and module constructors, and one module per host
// function group. Script failures are returned as data inside
// entities.ExecutionResult; cancellation, disposal and runtime faults are
// returned as errors.
package host
