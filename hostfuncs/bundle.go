package hostfuncs

// HostFuncBundle is a pre-configured set of related host functions.
// Bundles allow registering multiple handlers at once.
type HostFuncBundle interface {
	// Handlers returns a map of qualified names to handlers.
	Handlers() map[string]Handler
}

type staticBundle struct {
	handlers map[string]Handler
}

func (b *staticBundle) Handlers() map[string]Handler {
	return b.handlers
}

// NewBundle creates a bundle whose handlers are all placed in one group.
// Keys of handlers are unqualified function names.
func NewBundle(group string, handlers map[string]Handler) HostFuncBundle {
	qualified := make(map[string]Handler, len(handlers))
	for name, h := range handlers {
		qualified[group+"."+name] = h
	}
	return &staticBundle{handlers: qualified}
}

type compositeBundle struct {
	bundles []HostFuncBundle
}

func (b *compositeBundle) Handlers() map[string]Handler {
	result := make(map[string]Handler)
	for _, bundle := range b.bundles {
		for name, handler := range bundle.Handlers() {
			result[name] = handler
		}
	}
	return result
}

// Combine merges several bundles into one. Later bundles win on name clashes.
func Combine(bundles ...HostFuncBundle) HostFuncBundle {
	return &compositeBundle{bundles: bundles}
}

// WithBundle registers all handlers from a bundle.
func WithBundle(bundle HostFuncBundle) RegistryOption {
	return func(b *registryBuilder) {
		for name, handler := range bundle.Handlers() {
			if err := b.addHandler(name, handler); err != nil {
				b.errors = append(b.errors, err)
			}
		}
	}
}

// WithHandler registers a typed host function with argument decoding.
//
// Example usage:
//
//	WithHandler("custom.echo", func(ctx context.Context, req EchoRequest) (string, error) {
//	    return req.Text, nil
//	})
func WithHandler[Req any, Resp any](name string, fn HostFunc[Req, Resp]) RegistryOption {
	return WithRawHandler(name, NewTypedHandler(fn))
}
