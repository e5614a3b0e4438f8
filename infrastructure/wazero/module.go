package wazero

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/aj-geddes/revitpy-sub005/host"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// LoadModule compiles and instantiates wasm in rt and returns a module whose
// members call the exported functions. Functions whose signature uses
// anything other than i32, i64, f32 or f64 are not exposed. The returned
// closer releases the instance.
func LoadModule(ctx context.Context, rt wazero.Runtime, name string, wasm []byte) (*starlarkstruct.Module, api.Closer, error) {
	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile module %s: %w", name, err)
	}
	// An empty name lets every interpreter instantiate the same file.
	instance, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, nil, fmt.Errorf("failed to instantiate module %s: %w", name, err)
	}
	if init := instance.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			_ = instance.Close(ctx)
			return nil, nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	members := starlark.StringDict{}
	defs := compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for export := range defs {
		names = append(names, export)
	}
	sort.Strings(names)

	for _, export := range names {
		def := defs[export]
		if export == "_initialize" || export == "_start" || !supported(def) {
			continue
		}
		members[export] = exportBuiltin(name+"."+export, instance.ExportedFunction(export), def)
	}

	return &starlarkstruct.Module{Name: name, Members: members}, instance, nil
}

func supported(def api.FunctionDefinition) bool {
	for _, t := range slices.Concat(def.ParamTypes(), def.ResultTypes()) {
		switch t {
		case api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32, api.ValueTypeF64:
		default:
			return false
		}
	}
	return true
}

func exportBuiltin(name string, fn api.Function, def api.FunctionDefinition) *starlark.Builtin {
	params := def.ParamTypes()
	results := def.ResultTypes()

	return starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
		}
		if len(args) != len(params) {
			return nil, fmt.Errorf("%s: got %d arguments, want %d", b.Name(), len(args), len(params))
		}

		stack := make([]uint64, len(params))
		for i, t := range params {
			v, err := encode(t, args[i])
			if err != nil {
				return nil, fmt.Errorf("%s: argument %d: %w", b.Name(), i+1, err)
			}
			stack[i] = v
		}

		out, err := fn.Call(host.ThreadContext(thread), stack...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}

		switch len(results) {
		case 0:
			return starlark.None, nil
		case 1:
			return decode(results[0], out[0]), nil
		}
		tuple := make(starlark.Tuple, len(results))
		for i, t := range results {
			tuple[i] = decode(t, out[i])
		}
		return tuple, nil
	})
}

func encode(t api.ValueType, v starlark.Value) (uint64, error) {
	switch t {
	case api.ValueTypeI32:
		n, err := asInt64(v)
		if err != nil {
			return 0, err
		}
		if n < math.MinInt32 || n > math.MaxUint32 {
			return 0, fmt.Errorf("%d out of i32 range", n)
		}
		if n > math.MaxInt32 {
			return api.EncodeU32(uint32(n)), nil
		}
		return api.EncodeI32(int32(n)), nil
	case api.ValueTypeI64:
		n, err := asInt64(v)
		if err != nil {
			return 0, err
		}
		return api.EncodeI64(n), nil
	case api.ValueTypeF32:
		f, ok := starlark.AsFloat(v)
		if !ok {
			return 0, fmt.Errorf("got %s, want float", v.Type())
		}
		return api.EncodeF32(float32(f)), nil
	default:
		f, ok := starlark.AsFloat(v)
		if !ok {
			return 0, fmt.Errorf("got %s, want float", v.Type())
		}
		return api.EncodeF64(f), nil
	}
}

func asInt64(v starlark.Value) (int64, error) {
	i, ok := v.(starlark.Int)
	if !ok {
		return 0, fmt.Errorf("got %s, want int", v.Type())
	}
	n, ok := i.Int64()
	if !ok {
		return 0, fmt.Errorf("%s out of i64 range", i)
	}
	return n, nil
}

func decode(t api.ValueType, raw uint64) starlark.Value {
	switch t {
	case api.ValueTypeI32:
		return starlark.MakeInt(int(api.DecodeI32(raw)))
	case api.ValueTypeI64:
		return starlark.MakeInt64(int64(raw))
	case api.ValueTypeF32:
		return starlark.Float(api.DecodeF32(raw))
	default:
		return starlark.Float(api.DecodeF64(raw))
	}
}
