package memmodel

import (
	"sync"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/domain/errors"
	"github.com/aj-geddes/revitpy-sub005/domain/ports"
)

// changeSet stages mutations against a Model. Reads through the change set
// see its own staged mutations.
type changeSet struct {
	model  *Model
	staged map[entities.ElementID]*entities.Element
	label  string
	mu     sync.Mutex
	closed bool
}

var _ ports.ChangeSet = (*changeSet)(nil)

func (c *changeSet) lookup(id entities.ElementID) (entities.Element, bool) {
	if e, ok := c.staged[id]; ok {
		if e == nil {
			return entities.Element{}, false
		}
		return e.Clone(), true
	}
	e, err := c.model.Element(id)
	return e, err == nil
}

func (c *changeSet) Element(id entities.ElementID) (entities.Element, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return entities.Element{}, ErrChangeSetClosed
	}
	e, ok := c.lookup(id)
	if !ok {
		return entities.Element{}, &errors.ElementNotFoundError{ID: id}
	}
	return e, nil
}

func (c *changeSet) Elements(category string) ([]entities.Element, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrChangeSetClosed
	}

	committed, err := c.model.Elements("")
	if err != nil {
		return nil, err
	}
	merged := make(map[entities.ElementID]entities.Element, len(committed)+len(c.staged))
	for _, e := range committed {
		merged[e.ID] = e
	}
	for id, e := range c.staged {
		if e == nil {
			delete(merged, id)
			continue
		}
		merged[id] = *e
	}
	return filter(merged, category), nil
}

func (c *changeSet) CreateElement(category, name string) (entities.Element, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return entities.Element{}, ErrChangeSetClosed
	}
	e := entities.Element{
		ID:         c.model.allocateID(),
		Category:   category,
		Name:       name,
		Parameters: map[string]entities.Value{},
	}
	staged := e.Clone()
	c.staged[e.ID] = &staged
	return e, nil
}

func (c *changeSet) UpdateElement(e entities.Element) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChangeSetClosed
	}
	if _, ok := c.lookup(e.ID); !ok {
		return &errors.ElementNotFoundError{ID: e.ID}
	}
	staged := e.Clone()
	c.staged[e.ID] = &staged
	return nil
}

func (c *changeSet) DeleteElement(id entities.ElementID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChangeSetClosed
	}
	if _, ok := c.lookup(id); !ok {
		return &errors.ElementNotFoundError{ID: id}
	}
	c.staged[id] = nil
	return nil
}

// Commit applies the staged mutations. The change set is closed afterwards
// whether or not the commit succeeded.
func (c *changeSet) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChangeSetClosed
	}
	c.closed = true
	return c.model.apply(c.label, c.staged)
}

func (c *changeSet) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.staged = nil
}
