package host

import (
	"fmt"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// handleValue is the script-side form of an entities.Handle. Scripts see
// the handle's kind as its type and can read .id and .kind.
type handleValue struct {
	h entities.Handle
}

var (
	_ starlark.HasAttrs   = handleValue{}
	_ starlark.Comparable = handleValue{}
)

func (v handleValue) String() string       { return v.h.String() }
func (v handleValue) Type() string         { return v.h.Kind }
func (v handleValue) Freeze()              {}
func (v handleValue) Truth() starlark.Bool { return starlark.True }
func (v handleValue) AttrNames() []string  { return []string{"id", "kind"} }

func (v handleValue) Hash() (uint32, error) {
	return starlark.String(fmt.Sprintf("%s#%d", v.h.Kind, v.h.ID)).Hash()
}

func (v handleValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "id":
		return starlark.MakeInt64(v.h.ID), nil
	case "kind":
		return starlark.String(v.h.Kind), nil
	}
	return nil, nil
}

func (v handleValue) CompareSameType(op syntax.Token, y starlark.Value, depth int) (bool, error) {
	other := y.(handleValue)
	switch op {
	case syntax.EQL:
		return v.h == other.h, nil
	case syntax.NEQ:
		return v.h != other.h, nil
	}
	return false, fmt.Errorf("%s %s %s not implemented", v.Type(), op, y.Type())
}
