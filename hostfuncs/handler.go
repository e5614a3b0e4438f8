package hostfuncs

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/go-viper/mapstructure/v2"
)

// Call carries the arguments of one host function invocation as native Go
// values (int64, float64, string, bool, []any, map[string]any,
// entities.Handle or nil).
type Call struct {
	Kwargs map[string]any
	Args   []any
}

// Handler is the common signature every registered host function has.
// The returned value is converted back into the script runtime.
type Handler func(ctx context.Context, call Call) (any, error)

// HostFunc is a typed host function. Its request is decoded from the call
// arguments: positional arguments bind to the request fields in declaration
// order, keyword arguments bind by their mapstructure tag. Every field is a
// required argument unless its tag carries ",omitempty".
type HostFunc[Req any, Resp any] func(context.Context, Req) (Resp, error)

// NewTypedHandler wraps a typed HostFunc into a Handler.
//
// Usage:
//
//	type findRequest struct {
//	    Category string `mapstructure:"category"`
//	    Name     string `mapstructure:"name,omitempty"`
//	}
//
//	h := hostfuncs.NewTypedHandler(func(ctx context.Context, req findRequest) ([]map[string]any, error) {
//	    return lookup(req.Category, req.Name)
//	})
//
//	// element.find("Walls") and element.find(category="Walls", name="n*")
//	// both decode; element.find() fails with a missing argument.
func NewTypedHandler[Req any, Resp any](fn HostFunc[Req, Resp]) Handler {
	t := reflect.TypeFor[Req]()
	params := paramNames(t)
	required := requiredParams(t)
	return func(ctx context.Context, call Call) (any, error) {
		var req Req
		if err := decodeCall(call, params, required, &req); err != nil {
			return nil, InvalidArgumentsError(FunctionName(ctx), err)
		}
		return fn(ctx, req)
	}
}

type param struct {
	name     string
	optional bool
}

// structParams lists the arguments of a request struct in field order.
func structParams(t reflect.Type) ([]param, bool) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, false
	}
	params := make([]param, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		p := param{name: strings.ToLower(f.Name)}
		if tag, ok := f.Tag.Lookup("mapstructure"); ok {
			tagName, opts, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				p.name = tagName
			}
			p.optional = slices.Contains(strings.Split(opts, ","), "omitempty")
		}
		params = append(params, p)
	}
	return params, true
}

// paramNames lists the keyword names of a request struct in field order.
// A non-struct request takes at most one positional argument.
func paramNames(t reflect.Type) []string {
	params, ok := structParams(t)
	if !ok {
		return nil
	}
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.name
	}
	return names
}

// requiredParams lists the request fields a call must supply.
func requiredParams(t reflect.Type) []string {
	params, _ := structParams(t)
	var names []string
	for _, p := range params {
		if !p.optional {
			names = append(names, p.name)
		}
	}
	return names
}

func decodeCall(call Call, params, required []string, out any) error {
	var input any
	if params == nil {
		switch {
		case len(call.Kwargs) > 0:
			return fmt.Errorf("unexpected keyword arguments")
		case len(call.Args) > 1:
			return fmt.Errorf("takes at most 1 positional argument (%d given)", len(call.Args))
		case len(call.Args) == 0:
			return nil
		}
		input = call.Args[0]
	} else {
		if len(call.Args) > len(params) {
			return fmt.Errorf("takes at most %d positional arguments (%d given)", len(params), len(call.Args))
		}
		m := make(map[string]any, len(call.Args)+len(call.Kwargs))
		for i, arg := range call.Args {
			m[params[i]] = arg
		}
		for k, v := range call.Kwargs {
			if _, dup := m[k]; dup {
				return fmt.Errorf("got multiple values for argument %q", k)
			}
			m[k] = v
		}
		input = m
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
		DecodeHook:  entities.DecodeHook(),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(input); err != nil {
		return err
	}

	if m, ok := input.(map[string]any); ok {
		for _, name := range required {
			if _, set := m[name]; !set {
				return fmt.Errorf("missing required argument %q", name)
			}
		}
	}
	return nil
}
