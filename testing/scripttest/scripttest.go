// Package scripttest provides a table-driven harness for running scripts
// through a bridge in tests.
package scripttest

import (
	"context"
	"strings"
	"testing"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/domain/errors"
)

// Runner executes scripts. *bridge.Bridge implements it.
type Runner interface {
	ExecuteCode(ctx context.Context, code string, globals map[string]any) (*entities.ExecutionResult, error)
	ExecuteInTransaction(ctx context.Context, label, code string, globals map[string]any) (*entities.ExecutionResult, error)
}

// TestCase defines one script run.
type TestCase struct {
	Name    string
	Code    string
	Globals map[string]any
	// Transaction runs the script in its own transaction, committed when
	// the script succeeds.
	Transaction bool
	Validate    func(t *testing.T, r *entities.ExecutionResult)
}

// RunScriptTests runs every case as a subtest, in order.
func RunScriptTests(t *testing.T, runner Runner, tests []TestCase) {
	t.Helper()

	for _, tc := range tests {
		t.Run(tc.Name, func(t *testing.T) {
			ctx := context.Background()

			var result *entities.ExecutionResult
			var err error
			if tc.Transaction {
				result, err = runner.ExecuteInTransaction(ctx, tc.Name, tc.Code, tc.Globals)
			} else {
				result, err = runner.ExecuteCode(ctx, tc.Code, tc.Globals)
			}
			// A host-level failure is reported as a failed result so
			// Validate sees every outcome the same way.
			if err != nil {
				result = &entities.ExecutionResult{Error: errors.ToErrorDetail(err)}
			}

			if tc.Validate != nil {
				tc.Validate(t, result)
			}
		})
	}
}

// AssertSuccess asserts the script ran to completion.
func AssertSuccess(t *testing.T, r *entities.ExecutionResult) {
	t.Helper()
	if !r.Success {
		t.Errorf("expected success, got failure: %v", r.Error)
	}
}

// AssertFailure asserts the script failed with a message containing substr.
func AssertFailure(t *testing.T, r *entities.ExecutionResult, substr string) {
	t.Helper()
	if r.Success {
		t.Errorf("expected failure, got success")
		return
	}
	if r.Error == nil {
		t.Errorf("failed result has no error")
		return
	}
	if !strings.Contains(r.Error.Message, substr) {
		t.Errorf("error %q does not contain %q", r.Error.Message, substr)
	}
}

// AssertOutput asserts the printed lines, ignoring the trailing newline.
func AssertOutput(t *testing.T, r *entities.ExecutionResult, lines ...string) {
	t.Helper()
	got := strings.TrimSuffix(r.Output, "\n")
	want := strings.Join(lines, "\n")
	if got != want {
		t.Errorf("output: expected %q, got %q", want, got)
	}
}
