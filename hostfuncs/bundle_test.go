package hostfuncs

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeOf[T any]() reflect.Type { return reflect.TypeFor[T]() }

func TestNewBundle_QualifiesNames(t *testing.T) {
	bundle := NewBundle("util", map[string]Handler{
		"echo": echoHandler,
		"noop": echoHandler,
	})

	handlers := bundle.Handlers()
	assert.Len(t, handlers, 2)
	assert.Contains(t, handlers, "util.echo")
	assert.Contains(t, handlers, "util.noop")
}

func TestCombine(t *testing.T) {
	combined := Combine(
		NewBundle("a", map[string]Handler{"one": echoHandler}),
		NewBundle("b", map[string]Handler{"two": echoHandler}),
	)

	reg, err := NewRegistry(WithBundle(combined))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.one", "b.two"}, reg.Names())
}

func TestWithBundle_ConflictsWithHandler(t *testing.T) {
	_, err := NewRegistry(
		WithBundle(NewBundle("util", map[string]Handler{"echo": echoHandler})),
		WithRawHandler("util.echo", echoHandler),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestWithHandler_Typed(t *testing.T) {
	type greetRequest struct {
		Name string `mapstructure:"name"`
	}
	reg, err := NewRegistry(
		WithHandler("util.greet", func(ctx context.Context, req greetRequest) (string, error) {
			return "hello " + req.Name, nil
		}),
	)
	require.NoError(t, err)

	resp, err := reg.Invoke(context.Background(), "util.greet", Call{Kwargs: map[string]any{"name": "revit"}})
	require.NoError(t, err)
	assert.Equal(t, "hello revit", resp)
}
