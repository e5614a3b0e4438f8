package entities

import (
	"github.com/golang/geo/r3"
)

// ElementID identifies an element in the host model.
type ElementID int64

// HandleKindElement is the Handle.Kind used for host model elements.
const HandleKindElement = "element"

// Geometry is the placed geometry of an element as a list of points.
// The first point is the element's location.
type Geometry struct {
	Points []r3.Vector `json:"points,omitempty" yaml:"points,omitempty"`
}

// BoundingBox is an axis-aligned box.
type BoundingBox struct {
	Min r3.Vector `json:"min"`
	Max r3.Vector `json:"max"`
}

// Element is one object in the host model.
type Element struct {
	Parameters map[string]Value `json:"parameters,omitempty" yaml:"-"`
	Category   string           `json:"category" yaml:"category"`
	Name       string           `json:"name" yaml:"name"`
	Geometry   Geometry         `json:"geometry" yaml:"geometry"`
	ID         ElementID        `json:"id" yaml:"id"`
}

// Handle returns the opaque handle scripts use to refer to e.
func (e Element) Handle() Handle {
	return Handle{Kind: HandleKindElement, ID: int64(e.ID)}
}

// Clone returns a deep copy of e.
func (e Element) Clone() Element {
	c := e
	if e.Parameters != nil {
		c.Parameters = make(map[string]Value, len(e.Parameters))
		for k, v := range e.Parameters {
			c.Parameters[k] = v
		}
	}
	if e.Geometry.Points != nil {
		c.Geometry.Points = append([]r3.Vector(nil), e.Geometry.Points...)
	}
	return c
}

// ModelSnapshot is the persisted form of a host model.
type ModelSnapshot struct {
	Elements []Element `json:"elements" yaml:"elements"`
	NextID   ElementID `json:"next_id" yaml:"next_id"`
}
