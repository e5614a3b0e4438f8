package hostfuncs

import (
	"context"
	"errors"
	"testing"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	domainerrors "github.com/aj-geddes/revitpy-sub005/domain/errors"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type moveRequest struct {
	ID     entities.ElementID `mapstructure:"id"`
	Offset r3.Vector          `mapstructure:"offset"`
	Label  string             `mapstructure:"label,omitempty"`
}

func newMoveRegistry(t *testing.T, got *moveRequest) *HandlerRegistry {
	t.Helper()
	reg, err := NewRegistry(
		WithHandler("geometry.move", func(ctx context.Context, req moveRequest) (bool, error) {
			*got = req
			return true, nil
		}),
	)
	require.NoError(t, err)
	return reg
}

func TestTypedHandler_Positional(t *testing.T) {
	var got moveRequest
	reg := newMoveRegistry(t, &got)

	resp, err := reg.Invoke(context.Background(), "geometry.move", Call{
		Args: []any{int64(7), []any{int64(1), 2.5, int64(0)}},
	})
	require.NoError(t, err)
	assert.Equal(t, true, resp)
	assert.Equal(t, entities.ElementID(7), got.ID)
	assert.Equal(t, r3.Vector{X: 1, Y: 2.5, Z: 0}, got.Offset)
}

func TestTypedHandler_KeywordsAndHandle(t *testing.T) {
	var got moveRequest
	reg := newMoveRegistry(t, &got)

	_, err := reg.Invoke(context.Background(), "geometry.move", Call{
		Args: []any{entities.Handle{Kind: entities.HandleKindElement, ID: 3}},
		Kwargs: map[string]any{
			"offset": []any{0.0, 0.0, 1.0},
			"label":  "up",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, entities.ElementID(3), got.ID)
	assert.Equal(t, r3.Vector{Z: 1}, got.Offset)
	assert.Equal(t, "up", got.Label)
}

func TestTypedHandler_InvalidArguments(t *testing.T) {
	var got moveRequest
	reg := newMoveRegistry(t, &got)

	cases := map[string]Call{
		"too many positional": {Args: []any{int64(1), []any{0.0, 0.0, 0.0}, "x", "extra"}},
		"duplicate argument":  {Args: []any{int64(1)}, Kwargs: map[string]any{"id": int64(2)}},
		"unknown keyword":     {Kwargs: map[string]any{"colour": "red"}},
		"short point":         {Args: []any{int64(1), []any{0.0, 1.0}}},
		"wrong type":          {Args: []any{"seven"}},
		"missing offset":      {Args: []any{int64(1)}},
		"no arguments":        {},
	}
	for name, call := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Invoke(context.Background(), "geometry.move", call)
			require.Error(t, err)

			var hfErr *domainerrors.HostFunctionError
			require.True(t, errors.As(err, &hfErr))
			assert.Equal(t, CodeInvalidArguments, hfErr.Code)
			assert.Equal(t, "geometry.move", hfErr.Function)
		})
	}
}

func TestTypedHandler_MissingArguments(t *testing.T) {
	var got moveRequest
	reg := newMoveRegistry(t, &got)

	_, err := reg.Invoke(context.Background(), "geometry.move", Call{Args: []any{int64(5)}})
	var hfErr *domainerrors.HostFunctionError
	require.True(t, errors.As(err, &hfErr))
	assert.Equal(t, CodeInvalidArguments, hfErr.Code)
	assert.Contains(t, err.Error(), `missing required argument "offset"`)
	assert.Zero(t, got.ID, "handler must not run")

	// Optional fields may be left out.
	_, err = reg.Invoke(context.Background(), "geometry.move", Call{
		Kwargs: map[string]any{"id": int64(5), "offset": []any{0.0, 0.0, 1.0}},
	})
	require.NoError(t, err)
	assert.Empty(t, got.Label)

	// An explicit None counts as supplied.
	_, err = reg.Invoke(context.Background(), "geometry.move", Call{
		Args: []any{int64(5), []any{0.0, 0.0, 1.0}, nil},
	})
	require.NoError(t, err)
}

func TestRequiredParams(t *testing.T) {
	type req struct {
		ID     int64  `mapstructure:"id"`
		Name   string `mapstructure:"name,omitempty"`
		Count  int
		Hidden string `mapstructure:"-"`
	}
	assert.Equal(t, []string{"id", "count"}, requiredParams(typeOf[req]()))
	assert.Equal(t, []string{"id", "name", "count"}, paramNames(typeOf[req]()))
	assert.Nil(t, requiredParams(typeOf[int]()))
}

func TestTypedHandler_ScalarRequest(t *testing.T) {
	reg, err := NewRegistry(
		WithHandler("util.double", func(ctx context.Context, n int64) (int64, error) {
			return n * 2, nil
		}),
	)
	require.NoError(t, err)

	resp, err := reg.Invoke(context.Background(), "util.double", Call{Args: []any{int64(21)}})
	require.NoError(t, err)
	assert.Equal(t, int64(42), resp)

	_, err = reg.Invoke(context.Background(), "util.double", Call{Args: []any{int64(1), int64(2)}})
	assert.Error(t, err)
}

func TestTypedHandler_PropagatesHandlerError(t *testing.T) {
	reg, err := NewRegistry(
		WithHandler("element.get", func(ctx context.Context, req moveRequest) (any, error) {
			return nil, &domainerrors.ElementNotFoundError{ID: req.ID}
		}),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), "element.get", Call{Args: []any{int64(9), []any{0.0, 0.0, 0.0}}})
	var nf *domainerrors.ElementNotFoundError
	require.True(t, errors.As(err, &nf))
}

func TestParamNames(t *testing.T) {
	type req struct {
		First  string `mapstructure:"first"`
		Second int
		Hidden string `mapstructure:"-"`
	}
	assert.Equal(t, []string{"first", "second"}, paramNames(typeOf[req]()))
	assert.Nil(t, paramNames(typeOf[int]()))
}
