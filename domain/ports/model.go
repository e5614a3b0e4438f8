package ports

import (
	"github.com/aj-geddes/revitpy-sub005/domain/entities"
)

// ModelView reads the host model.
type ModelView interface {
	// Element returns a copy of the element with the given id.
	Element(id entities.ElementID) (entities.Element, error)

	// Elements returns copies of all elements of a category, ordered by id.
	// An empty category matches every element.
	Elements(category string) ([]entities.Element, error)
}

// ModelEditor mutates the host model inside a change set.
type ModelEditor interface {
	ModelView

	// CreateElement adds a new element and returns it with its assigned id.
	CreateElement(category, name string) (entities.Element, error)

	// UpdateElement replaces an existing element.
	UpdateElement(e entities.Element) error

	// DeleteElement removes an element.
	DeleteElement(id entities.ElementID) error
}

// ChangeSet is a set of staged mutations that become visible atomically on
// Commit, or not at all.
type ChangeSet interface {
	ModelEditor

	// Commit applies every staged mutation. On error nothing is applied.
	Commit() error

	// Discard drops every staged mutation.
	Discard()
}

// HostModel is the host application's mutable object model.
type HostModel interface {
	ModelView

	// Begin opens a change set.
	Begin(label string) (ChangeSet, error)

	// Snapshot returns a deep copy of the committed state.
	Snapshot() entities.ModelSnapshot
}
