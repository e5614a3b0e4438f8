package host

import (
	stdErrors "errors"
	"strings"

	"github.com/aj-geddes/revitpy-sub005/domain/errors"
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// classify converts a runtime error into a ScriptError carrying the
// runtime's own backtrace.
func classify(err error) *errors.ScriptError {
	var evalErr *starlark.EvalError
	if stdErrors.As(err, &evalErr) {
		return &errors.ScriptError{
			Kind:      "runtime",
			Message:   evalErr.Msg,
			Backtrace: evalErr.Backtrace(),
		}
	}

	var synErr syntax.Error
	if stdErrors.As(err, &synErr) {
		return &errors.ScriptError{
			Kind:      "syntax",
			Message:   synErr.Msg,
			Backtrace: synErr.Pos.String(),
		}
	}

	var resolveErrs resolve.ErrorList
	if stdErrors.As(err, &resolveErrs) && len(resolveErrs) > 0 {
		positions := make([]string, len(resolveErrs))
		for n, e := range resolveErrs {
			positions[n] = e.Pos.String() + ": " + e.Msg
		}
		return &errors.ScriptError{
			Kind:      "syntax",
			Message:   resolveErrs[0].Msg,
			Backtrace: strings.Join(positions, "\n"),
		}
	}

	return &errors.ScriptError{Kind: "runtime", Message: err.Error()}
}
