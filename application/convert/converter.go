// Package convert maps host-native Go values to and from the boundary
// value representation used by interpreters.
package convert

import (
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/domain/errors"
	"github.com/aj-geddes/revitpy-sub005/domain/ports"
	"github.com/golang/geo/r3"
	"go.uber.org/atomic"
)

// maxDepth bounds nesting so cyclic native values fail instead of
// recursing forever.
const maxDepth = 64

// TypeConverter converts between native Go values and entities.Value.
// It is safe for concurrent use. Every conversion is counted, successful or
// not.
type TypeConverter struct {
	logger      *slog.Logger
	conversions *atomic.Uint64
	failures    *atomic.Uint64
}

var _ ports.ValueConverter = (*TypeConverter)(nil)

// Option configures a TypeConverter.
type Option func(*TypeConverter)

// WithLogger sets the logger used for conversion failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *TypeConverter) {
		c.logger = logger
	}
}

// New creates a TypeConverter.
func New(opts ...Option) *TypeConverter {
	c := &TypeConverter{
		logger:      slog.Default(),
		conversions: atomic.NewUint64(0),
		failures:    atomic.NewUint64(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ToValue converts a native value. Supported inputs are nil, booleans,
// integers, floats, strings, byte slices, time values, entities.Value,
// entities.Handle, entities.Element (as its handle), r3.Vector (as
// [x, y, z]), slices, arrays, string-keyed maps, pointers and structs.
func (c *TypeConverter) ToValue(native any) (entities.Value, error) {
	c.conversions.Inc()
	v, err := toValue(native, 0)
	if err != nil {
		c.failures.Inc()
		c.logger.Debug("conversion to value failed", "type", fmt.Sprintf("%T", native), "error", err)
		return entities.NoneValue(), err
	}
	return v, nil
}

// FromValue converts a boundary value into plain Go values: nil, bool,
// int64, float64, string, []any, map[string]any or entities.Handle.
func (c *TypeConverter) FromValue(v entities.Value) (any, error) {
	c.conversions.Inc()
	return v.Native(), nil
}

// As decodes v into T, counting the conversion on c. Failures are
// *errors.ConversionError naming the value kind and the target type.
func As[T any](c *TypeConverter, v entities.Value) (T, error) {
	c.conversions.Inc()
	out, err := entities.As[T](v)
	if err != nil {
		c.failures.Inc()
		return out, &errors.ConversionError{
			From: v.Kind().String(),
			To:   reflect.TypeFor[T]().String(),
			Err:  err,
		}
	}
	return out, nil
}

// Stats returns the conversion counters.
func (c *TypeConverter) Stats() entities.ConverterStats {
	return entities.ConverterStats{
		Conversions: c.conversions.Load(),
		Failures:    c.failures.Load(),
	}
}

// ResetStats zeroes the counters.
func (c *TypeConverter) ResetStats() {
	c.conversions.Store(0)
	c.failures.Store(0)
}

func unsupported(t reflect.Type, err error) error {
	name := "nil"
	if t != nil {
		name = t.String()
	}
	return &errors.ConversionError{From: name, To: "value", Err: err}
}

func toValue(native any, depth int) (entities.Value, error) {
	if depth > maxDepth {
		return entities.NoneValue(), unsupported(reflect.TypeOf(native), fmt.Errorf("nesting deeper than %d", maxDepth))
	}

	switch x := native.(type) {
	case nil:
		return entities.NoneValue(), nil
	case entities.Value:
		return x, nil
	case entities.Handle:
		return entities.HandleValue(x), nil
	case entities.Element:
		return entities.HandleValue(x.Handle()), nil
	case *entities.Element:
		if x == nil {
			return entities.NoneValue(), nil
		}
		return entities.HandleValue(x.Handle()), nil
	case r3.Vector:
		return vectorValue(x), nil
	case bool:
		return entities.BoolValue(x), nil
	case string:
		return entities.StringValue(x), nil
	case []byte:
		return entities.StringValue(string(x)), nil
	case time.Time:
		return entities.StringValue(x.Format(time.RFC3339Nano)), nil
	case time.Duration:
		return entities.FloatValue(x.Seconds()), nil
	case error:
		return entities.StringValue(x.Error()), nil
	}

	rv := reflect.ValueOf(native)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return entities.IntValue(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return entities.NoneValue(), unsupported(rv.Type(), fmt.Errorf("%d overflows int64", u))
		}
		return entities.IntValue(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return entities.FloatValue(rv.Float()), nil
	case reflect.String:
		return entities.StringValue(rv.String()), nil
	case reflect.Bool:
		return entities.BoolValue(rv.Bool()), nil

	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return entities.NoneValue(), nil
		}
		return toValue(rv.Elem().Interface(), depth+1)

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return entities.ListValue(), nil
		}
		items := make([]entities.Value, rv.Len())
		for i := range items {
			item, err := toValue(rv.Index(i).Interface(), depth+1)
			if err != nil {
				return entities.NoneValue(), err
			}
			items[i] = item
		}
		return entities.ListValue(items...), nil

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return entities.NoneValue(), unsupported(rv.Type(), fmt.Errorf("map keys must be strings"))
		}
		m := make(map[string]entities.Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			item, err := toValue(iter.Value().Interface(), depth+1)
			if err != nil {
				return entities.NoneValue(), err
			}
			m[iter.Key().String()] = item
		}
		return entities.MapValue(m), nil

	case reflect.Struct:
		return structValue(rv, depth)
	}

	return entities.NoneValue(), unsupported(rv.Type(), fmt.Errorf("unsupported kind %s", rv.Kind()))
}

// structValue encodes a struct as a map. Keys follow the mapstructure tag
// when present and the lower-cased field name otherwise; "-" skips a field.
func structValue(rv reflect.Value, depth int) (entities.Value, error) {
	t := rv.Type()
	m := make(map[string]entities.Value, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.ToLower(f.Name)
		if tag, ok := f.Tag.Lookup("mapstructure"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		item, err := toValue(rv.Field(i).Interface(), depth+1)
		if err != nil {
			return entities.NoneValue(), err
		}
		m[name] = item
	}
	return entities.MapValue(m), nil
}

func vectorValue(v r3.Vector) entities.Value {
	return entities.ListValue(
		entities.FloatValue(v.X),
		entities.FloatValue(v.Y),
		entities.FloatValue(v.Z),
	)
}

// BoundingBoxValue encodes a box as {"min": [x, y, z], "max": [x, y, z]}.
func BoundingBoxValue(box entities.BoundingBox) entities.Value {
	return entities.MapValue(map[string]entities.Value{
		"min": vectorValue(box.Min),
		"max": vectorValue(box.Max),
	})
}
