package hostfuncs

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// HandlerRegistry is an immutable collection of named host functions.
// Once created via NewRegistry, handlers cannot be added or removed, so
// lookups need no locking and one registry may serve every interpreter.
type HandlerRegistry struct {
	handlers map[string]Handler
	groups   map[string][]string
	names    []string // sorted for consistent iteration
}

type registryBuilder struct {
	handlers   map[string]Handler
	middleware []Middleware
	errors     []error
}

// NewRegistry creates an immutable HandlerRegistry with the given options.
// Returns an error if any handler name is malformed or registered twice.
//
// Example usage:
//
//	registry, err := NewRegistry(
//	    WithMiddleware(PanicRecoveryMiddleware(), LoggingMiddleware(logger)),
//	    WithBundle(bridge.HostBundle()),
//	    WithHandler("custom.echo", echo),
//	)
func NewRegistry(opts ...RegistryOption) (*HandlerRegistry, error) {
	b := &registryBuilder{
		handlers: make(map[string]Handler),
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	names := make([]string, 0, len(b.handlers))
	groups := make(map[string][]string)
	for name := range b.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		group, fn, _ := strings.Cut(name, ".")
		groups[group] = append(groups[group], fn)
	}

	// Apply middleware in reverse order so the first middleware wraps outermost.
	wrapped := make(map[string]Handler, len(b.handlers))
	for name, handler := range b.handlers {
		h := handler
		for i := len(b.middleware) - 1; i >= 0; i-- {
			h = b.middleware[i](h)
		}
		wrapped[name] = h
	}

	return &HandlerRegistry{
		handlers: wrapped,
		groups:   groups,
		names:    names,
	}, nil
}

// Invoke dispatches a host function call by its qualified name.
func (r *HandlerRegistry) Invoke(ctx context.Context, name string, call Call) (any, error) {
	handler, ok := r.handlers[name]
	if !ok {
		return nil, NotFoundError(name)
	}
	return handler(HostContextFrom(ctx, name), call)
}

// Has returns true if a handler with the given name is registered.
func (r *HandlerRegistry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names returns a sorted list of all registered qualified names.
func (r *HandlerRegistry) Names() []string {
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

// Groups returns the sorted module names that have at least one function.
func (r *HandlerRegistry) Groups() []string {
	result := make([]string, 0, len(r.groups))
	for g := range r.groups {
		result = append(result, g)
	}
	sort.Strings(result)
	return result
}

// Functions returns the sorted unqualified function names of a group.
func (r *HandlerRegistry) Functions(group string) []string {
	fns := r.groups[group]
	result := make([]string, len(fns))
	copy(result, fns)
	return result
}

func (b *registryBuilder) addHandler(name string, handler Handler) error {
	group, fn, ok := strings.Cut(name, ".")
	if !ok || group == "" || fn == "" || strings.Contains(fn, ".") {
		return fmt.Errorf("handler name %q must have the form group.function", name)
	}
	if handler == nil {
		return fmt.Errorf("handler %q is nil", name)
	}
	if _, exists := b.handlers[name]; exists {
		return fmt.Errorf("duplicate handler name: %q", name)
	}
	b.handlers[name] = handler
	return nil
}

// WithRawHandler registers an untyped Handler under a qualified name.
// Use WithHandler for typed registration with argument decoding.
func WithRawHandler(name string, handler Handler) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.addHandler(name, handler); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithMiddleware adds middleware to the registry.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
