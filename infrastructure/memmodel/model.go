// Package memmodel is an in-memory host model. It stands in for the host
// application's object model behind ports.HostModel.
package memmodel

import (
	stdErrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/domain/errors"
	"github.com/aj-geddes/revitpy-sub005/domain/ports"
)

// ErrChangeSetClosed is returned by a change set used after Commit or
// Discard.
var ErrChangeSetClosed = stdErrors.New("change set is closed")

// CommitHook runs with the state a commit would produce, before it becomes
// visible. An error aborts the commit.
type CommitHook func(next entities.ModelSnapshot) error

type modelConfig struct {
	logger *slog.Logger
	hooks  []CommitHook
}

// Option configures a Model.
type Option func(*modelConfig)

// WithCommitHook adds a hook run on every commit.
func WithCommitHook(hook CommitHook) Option {
	return func(c *modelConfig) {
		c.hooks = append(c.hooks, hook)
	}
}

// WithStore persists every commit to store. A failed save aborts the
// commit.
func WithStore(store ports.ModelStore) Option {
	return WithCommitHook(store.Save)
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *modelConfig) {
		c.logger = logger
	}
}

// Model is a ports.HostModel kept in memory. The committed element map is
// never modified in place: a commit builds a new map and swaps it in.
type Model struct {
	logger   *slog.Logger
	elements map[entities.ElementID]entities.Element
	hooks    []CommitHook
	mu       sync.RWMutex
	nextID   entities.ElementID
}

var _ ports.HostModel = (*Model)(nil)

// New creates an empty model.
func New(opts ...Option) *Model {
	return FromSnapshot(entities.ModelSnapshot{}, opts...)
}

// FromSnapshot creates a model holding the elements of snapshot.
func FromSnapshot(snapshot entities.ModelSnapshot, opts ...Option) *Model {
	cfg := modelConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	elements := make(map[entities.ElementID]entities.Element, len(snapshot.Elements))
	next := snapshot.NextID
	for _, e := range snapshot.Elements {
		elements[e.ID] = e.Clone()
		if e.ID >= next {
			next = e.ID + 1
		}
	}
	if next < 1 {
		next = 1
	}
	return &Model{
		logger:   logger,
		elements: elements,
		hooks:    cfg.hooks,
		nextID:   next,
	}
}

// Load creates a model from the snapshot in store and persists every later
// commit back to it.
func Load(store ports.ModelStore, opts ...Option) (*Model, error) {
	snapshot, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	return FromSnapshot(snapshot, append(opts, WithStore(store))...), nil
}

// Element implements ports.ModelView.
func (m *Model) Element(id entities.ElementID) (entities.Element, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.elements[id]
	if !ok {
		return entities.Element{}, &errors.ElementNotFoundError{ID: id}
	}
	return e.Clone(), nil
}

// Elements implements ports.ModelView.
func (m *Model) Elements(category string) ([]entities.Element, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filter(m.elements, category), nil
}

func filter(elements map[entities.ElementID]entities.Element, category string) []entities.Element {
	ids := slices.Sorted(maps.Keys(elements))
	out := make([]entities.Element, 0, len(ids))
	for _, id := range ids {
		e := elements[id]
		if category == "" || e.Category == category {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Snapshot implements ports.HostModel.
func (m *Model) Snapshot() entities.ModelSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return entities.ModelSnapshot{
		Elements: filter(m.elements, ""),
		NextID:   m.nextID,
	}
}

// Begin implements ports.HostModel.
func (m *Model) Begin(label string) (ports.ChangeSet, error) {
	return &changeSet{
		model:  m,
		label:  label,
		staged: map[entities.ElementID]*entities.Element{},
	}, nil
}

// allocateID reserves a new element id. Ids of rolled back elements are
// not reused.
func (m *Model) allocateID() entities.ElementID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	return id
}

// apply commits staged changes. A nil staged entry deletes the element.
func (m *Model) apply(label string, staged map[entities.ElementID]*entities.Element) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := maps.Clone(m.elements)
	if next == nil {
		next = map[entities.ElementID]entities.Element{}
	}
	for id, e := range staged {
		if e == nil {
			delete(next, id)
			continue
		}
		next[id] = e.Clone()
	}

	if len(m.hooks) > 0 {
		snapshot := entities.ModelSnapshot{Elements: filter(next, ""), NextID: m.nextID}
		for _, hook := range m.hooks {
			if err := hook(snapshot); err != nil {
				return fmt.Errorf("commit hook rejected %q: %w", label, err)
			}
		}
	}

	m.elements = next
	m.logger.Debug("model changes committed", "label", label, "changes", len(staged))
	return nil
}
