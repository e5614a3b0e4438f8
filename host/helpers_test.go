package host

import (
	"context"
	"fmt"
	"testing"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/stretchr/testify/require"
)

// nativeConverter is a minimal ValueConverter for tests.
type nativeConverter struct{}

func (nativeConverter) FromValue(v entities.Value) (any, error) {
	return v.Native(), nil
}

func (nativeConverter) ToValue(native any) (entities.Value, error) {
	switch x := native.(type) {
	case nil:
		return entities.NoneValue(), nil
	case entities.Value:
		return x, nil
	case bool:
		return entities.BoolValue(x), nil
	case int:
		return entities.IntValue(int64(x)), nil
	case int64:
		return entities.IntValue(x), nil
	case float64:
		return entities.FloatValue(x), nil
	case string:
		return entities.StringValue(x), nil
	case entities.Handle:
		return entities.HandleValue(x), nil
	}
	return entities.NoneValue(), fmt.Errorf("unsupported %T", native)
}

func newInitialized(t *testing.T, opts ...InterpreterOption) *Interpreter {
	t.Helper()
	interp := New(opts...)
	require.NoError(t, interp.Initialize(context.Background()))
	t.Cleanup(func() { _ = interp.Close(context.Background()) })
	return interp
}

func execOK(t *testing.T, interp *Interpreter, code string) *entities.ExecutionResult {
	t.Helper()
	result, err := interp.Execute(context.Background(), code, nil)
	require.NoError(t, err)
	require.True(t, result.Success, "script failed: %v", result.Error)
	return result
}
