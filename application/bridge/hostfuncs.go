package bridge

import (
	"context"

	"github.com/aj-geddes/revitpy-sub005/application/convert"
	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/hostfuncs"
	"github.com/golang/geo/r3"
)

type idRequest struct {
	ID entities.ElementID `mapstructure:"id"`
}

type findRequest struct {
	Category string `mapstructure:"category,omitempty"`
	Name     string `mapstructure:"name,omitempty"`
}

type createRequest struct {
	Category string `mapstructure:"category"`
	Name     string `mapstructure:"name,omitempty"`
}

type renameRequest struct {
	ID   entities.ElementID `mapstructure:"id"`
	Name string             `mapstructure:"name"`
}

type distanceRequest struct {
	A entities.ElementID `mapstructure:"a"`
	B entities.ElementID `mapstructure:"b"`
}

type moveRequest struct {
	ID    entities.ElementID `mapstructure:"id"`
	Delta r3.Vector          `mapstructure:"delta"`
}

type setPointsRequest struct {
	ID     entities.ElementID `mapstructure:"id"`
	Points []r3.Vector        `mapstructure:"points"`
}

type parameterRequest struct {
	ID   entities.ElementID `mapstructure:"id"`
	Name string             `mapstructure:"name"`
}

type setParameterRequest struct {
	ID    entities.ElementID `mapstructure:"id"`
	Name  string             `mapstructure:"name"`
	Value any                `mapstructure:"value"`
}

// elementRecord is the script-side view of an element. Parameters are
// returned as boundary values so they keep their exact kind.
func elementRecord(e entities.Element) map[string]any {
	params := e.Parameters
	if params == nil {
		params = map[string]entities.Value{}
	}
	return map[string]any{
		"handle":     e.Handle(),
		"id":         int64(e.ID),
		"category":   e.Category,
		"name":       e.Name,
		"parameters": params,
		"points":     e.Geometry.Points,
	}
}

func elementRecords(elements []entities.Element) []map[string]any {
	out := make([]map[string]any, len(elements))
	for i, e := range elements {
		out[i] = elementRecord(e)
	}
	return out
}

// HostBundle exposes the sub-bridges to scripts as the element, geometry
// and parameter modules. Ids may be passed as integers or element handles;
// points are [x, y, z] lists.
//
//	e = element.create("Walls", "north")
//	geometry.set_points(e["handle"], [[0, 0, 0], [10, 0, 0]])
//	parameter.set(e["id"], "Height", 3.0)
func HostBundle(elements *ElementBridge, geometry *GeometryBridge, parameters *ParameterBridge) hostfuncs.HostFuncBundle {
	return hostfuncs.Combine(
		hostfuncs.NewBundle("element", map[string]hostfuncs.Handler{
			"get": hostfuncs.NewTypedHandler(func(_ context.Context, req idRequest) (map[string]any, error) {
				e, err := elements.Get(req.ID)
				if err != nil {
					return nil, err
				}
				return elementRecord(e), nil
			}),
			"find": hostfuncs.NewTypedHandler(func(_ context.Context, req findRequest) ([]map[string]any, error) {
				found, err := elements.Find(req.Category, req.Name)
				if err != nil {
					return nil, err
				}
				return elementRecords(found), nil
			}),
			"create": hostfuncs.NewTypedHandler(func(_ context.Context, req createRequest) (map[string]any, error) {
				e, err := elements.Create(req.Category, req.Name)
				if err != nil {
					return nil, err
				}
				return elementRecord(e), nil
			}),
			"rename": hostfuncs.NewTypedHandler(func(_ context.Context, req renameRequest) (map[string]any, error) {
				e, err := elements.Rename(req.ID, req.Name)
				if err != nil {
					return nil, err
				}
				return elementRecord(e), nil
			}),
			"delete": hostfuncs.NewTypedHandler(func(_ context.Context, req idRequest) (any, error) {
				return nil, elements.Delete(req.ID)
			}),
		}),
		hostfuncs.NewBundle("geometry", map[string]hostfuncs.Handler{
			"location": hostfuncs.NewTypedHandler(func(_ context.Context, req idRequest) (r3.Vector, error) {
				return geometry.Location(req.ID)
			}),
			"bounding_box": hostfuncs.NewTypedHandler(func(_ context.Context, req idRequest) (entities.Value, error) {
				box, err := geometry.BoundingBox(req.ID)
				if err != nil {
					return entities.NoneValue(), err
				}
				return convert.BoundingBoxValue(box), nil
			}),
			"distance": hostfuncs.NewTypedHandler(func(_ context.Context, req distanceRequest) (float64, error) {
				return geometry.Distance(req.A, req.B)
			}),
			"move": hostfuncs.NewTypedHandler(func(_ context.Context, req moveRequest) (map[string]any, error) {
				e, err := geometry.Move(req.ID, req.Delta)
				if err != nil {
					return nil, err
				}
				return elementRecord(e), nil
			}),
			"set_points": hostfuncs.NewTypedHandler(func(_ context.Context, req setPointsRequest) (map[string]any, error) {
				e, err := geometry.SetPoints(req.ID, req.Points)
				if err != nil {
					return nil, err
				}
				return elementRecord(e), nil
			}),
		}),
		hostfuncs.NewBundle("parameter", map[string]hostfuncs.Handler{
			"get": hostfuncs.NewTypedHandler(func(_ context.Context, req parameterRequest) (entities.Value, error) {
				return parameters.Get(req.ID, req.Name)
			}),
			"list": hostfuncs.NewTypedHandler(func(_ context.Context, req idRequest) (map[string]entities.Value, error) {
				return parameters.List(req.ID)
			}),
			"set": hostfuncs.NewTypedHandler(func(_ context.Context, req setParameterRequest) (any, error) {
				return nil, parameters.Set(req.ID, req.Name, req.Value)
			}),
			"remove": hostfuncs.NewTypedHandler(func(_ context.Context, req parameterRequest) (any, error) {
				return nil, parameters.Remove(req.ID, req.Name)
			}),
		}),
	)
}
