package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Native(t *testing.T) {
	v := MapValue(map[string]Value{
		"n":    IntValue(3),
		"tags": ListValue(StringValue("a"), NoneValue()),
		"el":   HandleValue(Handle{Kind: HandleKindElement, ID: 9}),
	})

	assert.Equal(t, map[string]any{
		"n":    int64(3),
		"tags": []any{"a", nil},
		"el":   Handle{Kind: HandleKindElement, ID: 9},
	}, v.Native())
}

func TestAs(t *testing.T) {
	n, err := As[int](IntValue(2))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := As[float64](IntValue(2))
	require.NoError(t, err)
	assert.Equal(t, 2.0, f)

	whole, err := As[int64](FloatValue(4.0))
	require.NoError(t, err)
	assert.Equal(t, int64(4), whole)

	s, err := As[[]string](ListValue(StringValue("a"), StringValue("b")))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, s)

	type point struct {
		X float64 `mapstructure:"x"`
		Y float64 `mapstructure:"y"`
	}
	p, err := As[point](MapValue(map[string]Value{"x": IntValue(1), "y": FloatValue(2.5)}))
	require.NoError(t, err)
	assert.Equal(t, point{X: 1, Y: 2.5}, p)

	raw, err := As[Value](StringValue("kept"))
	require.NoError(t, err)
	assert.True(t, raw.Equal(StringValue("kept")))
}

func TestAs_Rejects(t *testing.T) {
	_, err := As[int](StringValue("42"))
	assert.Error(t, err)

	_, err = As[int](FloatValue(2.5))
	assert.Error(t, err)

	_, err = As[string](IntValue(1))
	assert.Error(t, err)

	_, err = As[int](NoneValue())
	assert.Error(t, err)

	ptr, err := As[*int](NoneValue())
	require.NoError(t, err)
	assert.Nil(t, ptr)
}

func TestAs_RejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		as   func(Value) error
		in   Value
	}{
		{"int8 300", func(v Value) error { _, err := As[int8](v); return err }, IntValue(300)},
		{"int8 -129", func(v Value) error { _, err := As[int8](v); return err }, IntValue(-129)},
		{"int32 from float 2e12", func(v Value) error { _, err := As[int32](v); return err }, FloatValue(2e12)},
		{"int32 1<<40", func(v Value) error { _, err := As[int32](v); return err }, IntValue(1 << 40)},
		{"uint8 256", func(v Value) error { _, err := As[uint8](v); return err }, IntValue(256)},
		{"uint negative", func(v Value) error { _, err := As[uint](v); return err }, IntValue(-1)},
		{"int 1e19", func(v Value) error { _, err := As[int](v); return err }, FloatValue(1e19)},
		{"float32 1e300", func(v Value) error { _, err := As[float32](v); return err }, FloatValue(1e300)},
		{"nested field", func(v Value) error {
			_, err := As[struct {
				N int16 `mapstructure:"n"`
			}](v)
			return err
		}, MapValue(map[string]Value{"n": IntValue(40000)})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.as(tt.in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "overflows")
		})
	}
}

func TestAs_InRangeBounds(t *testing.T) {
	i8, err := As[int8](IntValue(-128))
	require.NoError(t, err)
	assert.Equal(t, int8(-128), i8)

	u8, err := As[uint8](FloatValue(255))
	require.NoError(t, err)
	assert.Equal(t, uint8(255), u8)

	f32, err := As[float32](FloatValue(1.5))
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f32)

	id, err := As[ElementID](IntValue(1 << 40))
	require.NoError(t, err)
	assert.Equal(t, ElementID(1<<40), id)
}
