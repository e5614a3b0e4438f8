package bridge

import (
	stdErrors "errors"
	"fmt"
	"math"

	"github.com/aj-geddes/revitpy-sub005/application/transaction"
	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/golang/geo/r3"
)

// ErrNoGeometry is returned for geometry queries on an element without points.
var ErrNoGeometry = stdErrors.New("element has no geometry")

// GeometryBridge reads and mutates element geometry.
type GeometryBridge struct {
	opCounter
	tx *transaction.Manager
}

// NewGeometryBridge creates a GeometryBridge over the transaction manager.
func NewGeometryBridge(tx *transaction.Manager) *GeometryBridge {
	return &GeometryBridge{opCounter: newOpCounter(), tx: tx}
}

func (b *GeometryBridge) points(id entities.ElementID) ([]r3.Vector, error) {
	e, err := b.tx.View().Element(id)
	if err != nil {
		return nil, err
	}
	if len(e.Geometry.Points) == 0 {
		return nil, fmt.Errorf("element %d: %w", id, ErrNoGeometry)
	}
	return e.Geometry.Points, nil
}

// Location returns the element's first point.
func (b *GeometryBridge) Location(id entities.ElementID) (r3.Vector, error) {
	pts, err := b.points(id)
	if err != nil {
		return r3.Vector{}, b.record(err)
	}
	b.record(nil)
	return pts[0], nil
}

// BoundingBox returns the axis-aligned box around every point of the element.
func (b *GeometryBridge) BoundingBox(id entities.ElementID) (entities.BoundingBox, error) {
	pts, err := b.points(id)
	if err != nil {
		return entities.BoundingBox{}, b.record(err)
	}
	b.record(nil)
	box := entities.BoundingBox{
		Min: r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		Max: r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
	for _, p := range pts {
		box.Min = r3.Vector{X: math.Min(box.Min.X, p.X), Y: math.Min(box.Min.Y, p.Y), Z: math.Min(box.Min.Z, p.Z)}
		box.Max = r3.Vector{X: math.Max(box.Max.X, p.X), Y: math.Max(box.Max.Y, p.Y), Z: math.Max(box.Max.Z, p.Z)}
	}
	return box, nil
}

// Distance returns the distance between the locations of two elements.
func (b *GeometryBridge) Distance(a, c entities.ElementID) (float64, error) {
	pa, err := b.points(a)
	if err != nil {
		return 0, b.record(err)
	}
	pc, err := b.points(c)
	if err != nil {
		return 0, b.record(err)
	}
	b.record(nil)
	return pa[0].Distance(pc[0]), nil
}

// Move translates every point of the element by delta in the active
// transaction.
func (b *GeometryBridge) Move(id entities.ElementID, delta r3.Vector) (entities.Element, error) {
	e, err := b.update("geometry.move", id, func(e *entities.Element) error {
		for i, p := range e.Geometry.Points {
			e.Geometry.Points[i] = p.Add(delta)
		}
		return nil
	})
	return e, b.record(err)
}

// SetPoints replaces the element's points in the active transaction.
func (b *GeometryBridge) SetPoints(id entities.ElementID, points []r3.Vector) (entities.Element, error) {
	e, err := b.update("geometry.set_points", id, func(e *entities.Element) error {
		for i, p := range points {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
				return fmt.Errorf("point %d is not a number", i)
			}
		}
		e.Geometry.Points = append([]r3.Vector(nil), points...)
		return nil
	})
	return e, b.record(err)
}

func (b *GeometryBridge) update(op string, id entities.ElementID, fn func(*entities.Element) error) (entities.Element, error) {
	editor, err := b.tx.Editor(op)
	if err != nil {
		return entities.Element{}, err
	}
	e, err := editor.Element(id)
	if err != nil {
		return entities.Element{}, err
	}
	if err := fn(&e); err != nil {
		return entities.Element{}, err
	}
	if err := editor.UpdateElement(e); err != nil {
		return entities.Element{}, err
	}
	return e, nil
}
