package host

import (
	"github.com/aj-geddes/revitpy-sub005/hostfuncs"
	starlarkjson "go.starlark.net/lib/json"
	starlarkmath "go.starlark.net/lib/math"
	starlarktime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// buildBaseline returns the names every fresh namespace starts with.
func (i *Interpreter) buildBaseline() starlark.StringDict {
	baseline := starlark.StringDict{
		"math":   starlarkmath.Module,
		"json":   starlarkjson.Module,
		"time":   starlarktime.Module,
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
		"module": starlark.NewBuiltin("module", starlarkstruct.MakeModule),
	}
	if i.config.registry == nil {
		return baseline
	}
	for _, group := range i.config.registry.Groups() {
		members := make(starlark.StringDict)
		for _, fn := range i.config.registry.Functions(group) {
			qualified := group + "." + fn
			members[fn] = starlark.NewBuiltin(qualified, i.hostBuiltin(qualified))
		}
		baseline[group] = &starlarkstruct.Module{Name: group, Members: members}
	}
	return baseline
}

type builtinFunc func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error)

// hostBuiltin adapts a registered host function to a Starlark builtin.
// Arguments and results cross through the configured ValueConverter.
func (i *Interpreter) hostBuiltin(name string) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		call := hostfuncs.Call{Args: make([]any, len(args))}
		for n, arg := range args {
			native, err := i.toNative(arg)
			if err != nil {
				return nil, err
			}
			call.Args[n] = native
		}
		if len(kwargs) > 0 {
			call.Kwargs = make(map[string]any, len(kwargs))
			for _, kv := range kwargs {
				key, _ := starlark.AsString(kv[0])
				native, err := i.toNative(kv[1])
				if err != nil {
					return nil, err
				}
				call.Kwargs[key] = native
			}
		}

		resp, err := i.config.registry.Invoke(ThreadContext(thread), name, call)
		if err != nil {
			return nil, err
		}
		v, err := i.config.converter.ToValue(resp)
		if err != nil {
			return nil, err
		}
		return toStarlark(v)
	}
}

func (i *Interpreter) toNative(sv starlark.Value) (any, error) {
	v, err := fromStarlark(sv)
	if err != nil {
		return nil, err
	}
	return i.config.converter.FromValue(v)
}
