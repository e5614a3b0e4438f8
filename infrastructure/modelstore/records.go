package modelstore

import (
	"fmt"
	"math"
	"strconv"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"gopkg.in/yaml.v3"
)

// handleKey marks a map that encodes a handle parameter.
const handleKey = "$handle"

type snapshotRecord struct {
	Elements []elementRecord   `yaml:"elements"`
	NextID   entities.ElementID `yaml:"next_id"`
}

type elementRecord struct {
	Parameters map[string]any     `yaml:"parameters,omitempty"`
	Category   string             `yaml:"category"`
	Name       string             `yaml:"name"`
	Geometry   entities.Geometry  `yaml:"geometry,omitempty"`
	ID         entities.ElementID `yaml:"id"`
}

func newSnapshotRecord(s entities.ModelSnapshot) snapshotRecord {
	rec := snapshotRecord{NextID: s.NextID, Elements: make([]elementRecord, len(s.Elements))}
	for i, e := range s.Elements {
		er := elementRecord{ID: e.ID, Category: e.Category, Name: e.Name, Geometry: e.Geometry}
		if len(e.Parameters) > 0 {
			er.Parameters = make(map[string]any, len(e.Parameters))
			for k, v := range e.Parameters {
				er.Parameters[k] = encodeValue(v)
			}
		}
		rec.Elements[i] = er
	}
	return rec
}

func (r snapshotRecord) snapshot() (entities.ModelSnapshot, error) {
	s := entities.ModelSnapshot{NextID: r.NextID, Elements: make([]entities.Element, len(r.Elements))}
	for i, er := range r.Elements {
		e := entities.Element{ID: er.ID, Category: er.Category, Name: er.Name, Geometry: er.Geometry}
		if len(er.Parameters) > 0 {
			e.Parameters = make(map[string]entities.Value, len(er.Parameters))
			for k, raw := range er.Parameters {
				v, err := decodeValue(raw)
				if err != nil {
					return s, fmt.Errorf("element %d parameter %q: %w", er.ID, k, err)
				}
				e.Parameters[k] = v
			}
		}
		s.Elements[i] = e
	}
	return s, nil
}

// floatRecord keeps integral floats from reading back as integers.
type floatRecord float64

func (f floatRecord) MarshalYAML() (any, error) {
	x := float64(f)
	var text string
	switch {
	case math.IsNaN(x):
		text = ".nan"
	case math.IsInf(x, 1):
		text = ".inf"
	case math.IsInf(x, -1):
		text = "-.inf"
	default:
		text = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: text}, nil
}

func encodeValue(v entities.Value) any {
	switch v.Kind() {
	case entities.KindFloat:
		f, _ := v.Float()
		return floatRecord(f)
	case entities.KindHandle:
		h, _ := v.Handle()
		return map[string]any{handleKey: h.Kind, "id": h.ID}
	case entities.KindList:
		items, _ := v.List()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = encodeValue(item)
		}
		return out
	case entities.KindMap:
		m, _ := v.Map()
		out := make(map[string]any, len(m))
		for k, item := range m {
			out[k] = encodeValue(item)
		}
		return out
	}
	return v.Native()
}

func decodeValue(raw any) (entities.Value, error) {
	switch x := raw.(type) {
	case nil:
		return entities.NoneValue(), nil
	case bool:
		return entities.BoolValue(x), nil
	case int:
		return entities.IntValue(int64(x)), nil
	case int64:
		return entities.IntValue(x), nil
	case uint64:
		return entities.IntValue(int64(x)), nil
	case float64:
		return entities.FloatValue(x), nil
	case string:
		return entities.StringValue(x), nil
	case []any:
		items := make([]entities.Value, len(x))
		for i, item := range x {
			v, err := decodeValue(item)
			if err != nil {
				return entities.NoneValue(), err
			}
			items[i] = v
		}
		return entities.ListValue(items...), nil
	case map[string]any:
		if kind, ok := x[handleKey].(string); ok {
			id, err := decodeValue(x["id"])
			if err != nil {
				return entities.NoneValue(), err
			}
			n, ok := id.Int()
			if !ok {
				return entities.NoneValue(), fmt.Errorf("handle id %v is not an integer", x["id"])
			}
			return entities.HandleValue(entities.Handle{Kind: kind, ID: n}), nil
		}
		m := make(map[string]entities.Value, len(x))
		for k, item := range x {
			v, err := decodeValue(item)
			if err != nil {
				return entities.NoneValue(), err
			}
			m[k] = v
		}
		return entities.MapValue(m), nil
	}
	return entities.NoneValue(), fmt.Errorf("unsupported value %T", raw)
}
