package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_ZeroIsNone(t *testing.T) {
	var v Value
	assert.True(t, v.IsNone())
	assert.Equal(t, KindNone, v.Kind())
	assert.Equal(t, "None", v.String())
}

func TestValue_Accessors(t *testing.T) {
	i, ok := IntValue(42).Int()
	require.True(t, ok)
	assert.Equal(t, int64(42), i)

	f, ok := IntValue(2).Float()
	require.True(t, ok, "ints widen to float")
	assert.Equal(t, 2.0, f)

	_, ok = StringValue("x").Int()
	assert.False(t, ok)

	h, ok := HandleValue(Handle{Kind: "element", ID: 7}).Handle()
	require.True(t, ok)
	assert.Equal(t, int64(7), h.ID)
}

func TestValue_Equal(t *testing.T) {
	a := MapValue(map[string]Value{
		"xs": ListValue(IntValue(1), FloatValue(2.5)),
		"h":  HandleValue(Handle{Kind: "element", ID: 1}),
	})
	b := MapValue(map[string]Value{
		"xs": ListValue(IntValue(1), FloatValue(2.5)),
		"h":  HandleValue(Handle{Kind: "element", ID: 1}),
	})
	assert.True(t, a.Equal(b))
	assert.False(t, IntValue(1).Equal(FloatValue(1)))
	assert.False(t, ListValue(IntValue(1)).Equal(ListValue()))
}

func TestValue_String(t *testing.T) {
	v := MapValue(map[string]Value{
		"b": BoolValue(true),
		"a": ListValue(StringValue("x"), NoneValue()),
	})
	assert.Equal(t, `{"a": ["x", None], "b": True}`, v.String())
	assert.Equal(t, "<element #3>", HandleValue(Handle{Kind: "element", ID: 3}).String())
}

func TestValue_CountHandles(t *testing.T) {
	h := HandleValue(Handle{Kind: "element", ID: 1})
	v := ListValue(h, MapValue(map[string]Value{"inner": h}), IntValue(3))
	assert.Equal(t, 2, v.CountHandles())
}

func TestElement_CloneIsDeep(t *testing.T) {
	e := Element{ID: 1, Parameters: map[string]Value{"Width": FloatValue(1)}}
	c := e.Clone()
	c.Parameters["Width"] = FloatValue(2)

	w, _ := e.Parameters["Width"].Float()
	assert.Equal(t, 1.0, w)
	assert.Equal(t, Handle{Kind: HandleKindElement, ID: 1}, e.Handle())
}
