package hostfuncs

import (
	"fmt"

	"github.com/aj-geddes/revitpy-sub005/domain/errors"
)

// Host function error codes.
const (
	CodeNotFound         = "not_found"
	CodeInvalidArguments = "invalid_arguments"
	CodePanic            = "panic"
)

// NotFoundError reports an unknown host function name.
func NotFoundError(name string) *errors.HostFunctionError {
	return &errors.HostFunctionError{Function: name, Code: CodeNotFound}
}

// InvalidArgumentsError reports arguments that could not be decoded into the
// function's request.
func InvalidArgumentsError(name string, err error) *errors.HostFunctionError {
	return &errors.HostFunctionError{Function: name, Code: CodeInvalidArguments, Err: err}
}

// PanicError converts a recovered panic value into an error.
func PanicError(name string, panicValue any) *errors.HostFunctionError {
	var err error
	switch v := panicValue.(type) {
	case error:
		err = v
	case string:
		err = fmt.Errorf("%s", v)
	default:
		err = fmt.Errorf("panic recovered: %v", v)
	}
	return &errors.HostFunctionError{Function: name, Code: CodePanic, Err: err}
}
