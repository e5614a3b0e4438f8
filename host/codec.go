package host

import (
	"fmt"
	"sort"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/domain/errors"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// maxValueDepth bounds nesting so self-referencing containers fail instead
// of recursing forever.
const maxValueDepth = 64

// toStarlark converts a boundary value into a fresh, unfrozen script value.
func toStarlark(v entities.Value) (starlark.Value, error) {
	switch v.Kind() {
	case entities.KindNone:
		return starlark.None, nil
	case entities.KindBool:
		b, _ := v.Bool()
		return starlark.Bool(b), nil
	case entities.KindInt:
		i, _ := v.Int()
		return starlark.MakeInt64(i), nil
	case entities.KindFloat:
		f, _ := v.Float()
		return starlark.Float(f), nil
	case entities.KindString:
		s, _ := v.Str()
		return starlark.String(s), nil
	case entities.KindHandle:
		h, _ := v.Handle()
		return handleValue{h: h}, nil
	case entities.KindList:
		items, _ := v.List()
		elems := make([]starlark.Value, len(items))
		for i, item := range items {
			sv, err := toStarlark(item)
			if err != nil {
				return nil, err
			}
			elems[i] = sv
		}
		return starlark.NewList(elems), nil
	case entities.KindMap:
		m, _ := v.Map()
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		dict := starlark.NewDict(len(m))
		for _, k := range keys {
			sv, err := toStarlark(m[k])
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	}
	return nil, &errors.ConversionError{From: v.Kind().String(), To: "starlark"}
}

// fromStarlark converts a script value into a boundary value. Functions,
// modules and other runtime objects cannot cross and yield a ConversionError.
func fromStarlark(v starlark.Value) (entities.Value, error) {
	return fromStarlarkDepth(v, 0)
}

func fromStarlarkDepth(v starlark.Value, depth int) (entities.Value, error) {
	if depth > maxValueDepth {
		return entities.NoneValue(), &errors.ConversionError{
			From: v.Type(), To: "value", Err: fmt.Errorf("nesting deeper than %d", maxValueDepth),
		}
	}

	switch x := v.(type) {
	case starlark.NoneType:
		return entities.NoneValue(), nil
	case starlark.Bool:
		return entities.BoolValue(bool(x)), nil
	case starlark.Int:
		i, ok := x.Int64()
		if !ok {
			return entities.NoneValue(), &errors.ConversionError{
				From: "int", To: "int64", Err: fmt.Errorf("%s overflows int64", x.String()),
			}
		}
		return entities.IntValue(i), nil
	case starlark.Float:
		return entities.FloatValue(float64(x)), nil
	case starlark.String:
		return entities.StringValue(string(x)), nil
	case starlark.Bytes:
		return entities.StringValue(string(x)), nil
	case handleValue:
		return entities.HandleValue(x.h), nil
	case *starlark.List:
		return sequenceToValue(x, x.Len(), depth)
	case starlark.Tuple:
		return sequenceToValue(x, x.Len(), depth)
	case *starlark.Set:
		return sequenceToValue(x, x.Len(), depth)
	case *starlark.Dict:
		out := make(map[string]entities.Value, x.Len())
		for _, item := range x.Items() {
			key, ok := starlark.AsString(item[0])
			if !ok {
				return entities.NoneValue(), &errors.ConversionError{
					From: "dict", To: "map", Err: fmt.Errorf("key %s is not a string", item[0].Type()),
				}
			}
			val, err := fromStarlarkDepth(item[1], depth+1)
			if err != nil {
				return entities.NoneValue(), err
			}
			out[key] = val
		}
		return entities.MapValue(out), nil
	case *starlarkstruct.Struct:
		out := make(map[string]entities.Value)
		for _, name := range x.AttrNames() {
			attr, err := x.Attr(name)
			if err != nil {
				return entities.NoneValue(), err
			}
			val, err := fromStarlarkDepth(attr, depth+1)
			if err != nil {
				return entities.NoneValue(), err
			}
			out[name] = val
		}
		return entities.MapValue(out), nil
	}
	return entities.NoneValue(), &errors.ConversionError{From: v.Type(), To: "value"}
}

func sequenceToValue(seq starlark.Iterable, n, depth int) (entities.Value, error) {
	out := make([]entities.Value, 0, n)
	iter := seq.Iterate()
	defer iter.Done()
	var item starlark.Value
	for iter.Next(&item) {
		val, err := fromStarlarkDepth(item, depth+1)
		if err != nil {
			return entities.NoneValue(), err
		}
		out = append(out, val)
	}
	return entities.ListValue(out...), nil
}

// countHandles walks containers reachable from v and counts host handles.
func countHandles(v starlark.Value, depth int) int {
	if depth > maxValueDepth {
		return 0
	}
	switch x := v.(type) {
	case handleValue:
		return 1
	case starlark.Iterable:
		n := 0
		iter := x.Iterate()
		defer iter.Done()
		var item starlark.Value
		for iter.Next(&item) {
			n += countHandles(item, depth+1)
		}
		if d, ok := v.(*starlark.Dict); ok {
			for _, k := range d.Keys() {
				val, _, _ := d.Get(k)
				n += countHandles(val, depth+1)
			}
		}
		return n
	}
	return 0
}
