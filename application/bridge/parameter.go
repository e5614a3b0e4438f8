package bridge

import (
	"fmt"
	"sort"

	"github.com/aj-geddes/revitpy-sub005/application/convert"
	"github.com/aj-geddes/revitpy-sub005/application/transaction"
	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/domain/errors"
)

// ParameterBridge reads and writes named element parameters. Values cross
// through the TypeConverter.
type ParameterBridge struct {
	opCounter
	tx        *transaction.Manager
	converter *convert.TypeConverter
}

// NewParameterBridge creates a ParameterBridge.
func NewParameterBridge(tx *transaction.Manager, converter *convert.TypeConverter) *ParameterBridge {
	return &ParameterBridge{opCounter: newOpCounter(), tx: tx, converter: converter}
}

// Get returns one parameter. A missing parameter is *errors.NameNotFoundError.
func (b *ParameterBridge) Get(id entities.ElementID, name string) (entities.Value, error) {
	v, err := b.get(id, name)
	return v, b.record(err)
}

func (b *ParameterBridge) get(id entities.ElementID, name string) (entities.Value, error) {
	e, err := b.tx.View().Element(id)
	if err != nil {
		return entities.NoneValue(), err
	}
	v, ok := e.Parameters[name]
	if !ok {
		return entities.NoneValue(), &errors.NameNotFoundError{Name: fmt.Sprintf("element %d parameter %s", id, name)}
	}
	return v, nil
}

// GetAs returns one parameter decoded into T.
func GetAs[T any](b *ParameterBridge, id entities.ElementID, name string) (T, error) {
	v, err := b.Get(id, name)
	if err != nil {
		var zero T
		return zero, err
	}
	return convert.As[T](b.converter, v)
}

// List returns every parameter of the element.
func (b *ParameterBridge) List(id entities.ElementID) (map[string]entities.Value, error) {
	e, err := b.tx.View().Element(id)
	if err != nil {
		return nil, b.record(err)
	}
	b.record(nil)
	if e.Parameters == nil {
		return map[string]entities.Value{}, nil
	}
	return e.Parameters, nil
}

// Names returns the sorted parameter names of the element.
func (b *ParameterBridge) Names(id entities.ElementID) ([]string, error) {
	params, err := b.List(id)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Set converts value and stores it as a parameter in the active transaction.
func (b *ParameterBridge) Set(id entities.ElementID, name string, value any) error {
	return b.record(b.set(id, name, value))
}

func (b *ParameterBridge) set(id entities.ElementID, name string, value any) error {
	if name == "" {
		return fmt.Errorf("parameter name is required")
	}
	v, err := b.converter.ToValue(value)
	if err != nil {
		return err
	}
	editor, err := b.tx.Editor("parameter.set")
	if err != nil {
		return err
	}
	e, err := editor.Element(id)
	if err != nil {
		return err
	}
	if e.Parameters == nil {
		e.Parameters = map[string]entities.Value{}
	}
	e.Parameters[name] = v
	return editor.UpdateElement(e)
}

// Remove deletes a parameter in the active transaction. Removing a missing
// parameter is *errors.NameNotFoundError.
func (b *ParameterBridge) Remove(id entities.ElementID, name string) error {
	return b.record(b.remove(id, name))
}

func (b *ParameterBridge) remove(id entities.ElementID, name string) error {
	editor, err := b.tx.Editor("parameter.remove")
	if err != nil {
		return err
	}
	e, err := editor.Element(id)
	if err != nil {
		return err
	}
	if _, ok := e.Parameters[name]; !ok {
		return &errors.NameNotFoundError{Name: fmt.Sprintf("element %d parameter %s", id, name)}
	}
	delete(e.Parameters, name)
	return editor.UpdateElement(e)
}
