package entities

import (
	"fmt"
	"math"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/golang/geo/r3"
)

// Native returns v as a plain Go value: nil, bool, int64, float64, string,
// []any, map[string]any or Handle.
func (v Value) Native() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindHandle:
		return v.h
	case KindList:
		out := make([]any, len(v.l))
		for i, item := range v.l {
			out[i] = item.Native()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Native()
		}
		return out
	}
	return nil
}

// As decodes v into T. Decoding is strict: strings never become numbers,
// floats with a fractional part never become integers, and None only decodes
// into nilable types.
func As[T any](v Value) (T, error) {
	var out T
	if p, ok := any(&out).(*Value); ok {
		*p = v
		return out, nil
	}

	t := reflect.TypeFor[T]()
	if v.IsNone() {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
			return out, nil
		}
		return out, fmt.Errorf("none is not a %s", t)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &out,
		ErrorUnused: true,
		DecodeHook:  DecodeHook(),
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(v.Native()); err != nil {
		return out, err
	}
	return out, nil
}

// DecodeHook returns the mapstructure hooks used to decode native values
// produced by Native into Go types: exact integers that fit their target,
// handles standing in for ids, and [x, y, z] lists for vectors.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		exactIntHook,
		rangeHook,
		handleToIDHook,
		listToVectorHook,
	)
}

func exactIntHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float64 {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f := data.(float64)
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("float %v has a fractional part", f)
		}
	}
	return data, nil
}

// rangeHook rejects numbers the target kind cannot represent. mapstructure
// itself would wrap or saturate them.
func rangeHook(from, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		switch x := data.(type) {
		case int64:
			n = x
		case float64:
			if x < -(1<<63) || x >= 1<<63 {
				return nil, fmt.Errorf("%v overflows %s", x, to)
			}
			n = int64(x)
		default:
			return data, nil
		}
		if reflect.Zero(to).OverflowInt(n) {
			return nil, fmt.Errorf("%d overflows %s", n, to)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		var n uint64
		switch x := data.(type) {
		case int64:
			if x < 0 {
				return nil, fmt.Errorf("%d overflows %s", x, to)
			}
			n = uint64(x)
		case float64:
			if x < 0 || x >= 1<<64 {
				return nil, fmt.Errorf("%v overflows %s", x, to)
			}
			n = uint64(x)
		default:
			return data, nil
		}
		if reflect.Zero(to).OverflowUint(n) {
			return nil, fmt.Errorf("%d overflows %s", n, to)
		}
	case reflect.Float32:
		if x, ok := data.(float64); ok && reflect.Zero(to).OverflowFloat(x) {
			return nil, fmt.Errorf("%v overflows %s", x, to)
		}
	}
	return data, nil
}

var (
	handleType = reflect.TypeOf(Handle{})
	vectorType = reflect.TypeOf(r3.Vector{})
)

// handleToIDHook lets a handle stand in for an integer id field.
func handleToIDHook(from, to reflect.Type, data any) (any, error) {
	if from != handleType || to == handleType {
		return data, nil
	}
	h := data.(Handle)
	switch to.Kind() {
	case reflect.Int, reflect.Int64:
		return reflect.ValueOf(h.ID).Convert(to).Interface(), nil
	}
	return data, nil
}

// listToVectorHook decodes [x, y, z] into an r3.Vector.
func listToVectorHook(from, to reflect.Type, data any) (any, error) {
	if to != vectorType || from.Kind() != reflect.Slice {
		return data, nil
	}
	items, ok := data.([]any)
	if !ok || len(items) != 3 {
		return nil, fmt.Errorf("expected a point [x, y, z], got %v", data)
	}
	var coords [3]float64
	for i, item := range items {
		switch n := item.(type) {
		case int64:
			coords[i] = float64(n)
		case float64:
			coords[i] = n
		default:
			return nil, fmt.Errorf("point coordinate %d is %T, not a number", i, item)
		}
	}
	return r3.Vector{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}
