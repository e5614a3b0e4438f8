package bridge

import (
	"fmt"

	"github.com/aj-geddes/revitpy-sub005/application/transaction"
	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/bmatcuk/doublestar/v4"
)

// ElementBridge reads and mutates host model elements. Reads see the
// committed model; mutations need an active transaction.
type ElementBridge struct {
	opCounter
	tx *transaction.Manager
}

// NewElementBridge creates an ElementBridge over the transaction manager.
func NewElementBridge(tx *transaction.Manager) *ElementBridge {
	return &ElementBridge{opCounter: newOpCounter(), tx: tx}
}

// Get returns the element with the given id.
func (b *ElementBridge) Get(id entities.ElementID) (entities.Element, error) {
	e, err := b.tx.View().Element(id)
	return e, b.record(err)
}

// Find returns the elements of a category whose names match a glob pattern.
// An empty category or pattern matches everything.
func (b *ElementBridge) Find(category, pattern string) ([]entities.Element, error) {
	elements, err := b.find(category, pattern)
	return elements, b.record(err)
}

func (b *ElementBridge) find(category, pattern string) ([]entities.Element, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid name pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}
	elements, err := b.tx.View().Elements(category)
	if err != nil || pattern == "" {
		return elements, err
	}
	matched := elements[:0]
	for _, e := range elements {
		if ok, _ := doublestar.Match(pattern, e.Name); ok {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

// Create adds an element to the active transaction.
func (b *ElementBridge) Create(category, name string) (entities.Element, error) {
	e, err := b.create(category, name)
	return e, b.record(err)
}

func (b *ElementBridge) create(category, name string) (entities.Element, error) {
	if category == "" {
		return entities.Element{}, fmt.Errorf("element category is required")
	}
	editor, err := b.tx.Editor("element.create")
	if err != nil {
		return entities.Element{}, err
	}
	return editor.CreateElement(category, name)
}

// Rename changes an element's name in the active transaction.
func (b *ElementBridge) Rename(id entities.ElementID, name string) (entities.Element, error) {
	e, err := b.rename(id, name)
	return e, b.record(err)
}

func (b *ElementBridge) rename(id entities.ElementID, name string) (entities.Element, error) {
	editor, err := b.tx.Editor("element.rename")
	if err != nil {
		return entities.Element{}, err
	}
	e, err := editor.Element(id)
	if err != nil {
		return entities.Element{}, err
	}
	e.Name = name
	if err := editor.UpdateElement(e); err != nil {
		return entities.Element{}, err
	}
	return e, nil
}

// Delete removes an element in the active transaction.
func (b *ElementBridge) Delete(id entities.ElementID) error {
	editor, err := b.tx.Editor("element.delete")
	if err != nil {
		return b.record(err)
	}
	return b.record(editor.DeleteElement(id))
}
