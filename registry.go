package rpcgate

import (
	"context"
	"sort"
	"sync"
)

// ListMethodsName is the introspection method registered by Build unless the
// caller supplies their own handler for it.
const ListMethodsName = "system.listMethods"

// Registry maps exact method names to their handlers. It accepts
// registrations until Freeze and is read-only afterwards.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	frozen   bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string][]Handler)}
}

// Register adds h under name. A name may carry several handlers; each one is
// invoked for every call to it.
func (r *Registry) Register(name string, h Handler) error {
	if err := validateMethodName(name); err != nil {
		return err
	}
	if h == nil {
		return ErrNilHandler
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrRegistryFrozen
	}
	r.handlers[name] = append(r.handlers[name], h)
	return nil
}

// Has reports whether at least one handler is registered for name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[name]) > 0
}

// Handlers returns a copy of the handlers registered for name.
func (r *Registry) Handlers(name string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hs := r.handlers[name]
	if len(hs) == 0 {
		return nil
	}
	return append([]Handler(nil), hs...)
}

// Names returns every registered method name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name, hs := range r.handlers {
		if len(hs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Freeze rejects further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// listMethodsHandler answers system.listMethods with the registry's names.
type listMethodsHandler struct {
	registry *Registry
}

func (h listMethodsHandler) Invoke(context.Context, []any) (any, error) {
	return h.registry.Names(), nil
}
