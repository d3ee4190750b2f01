package connector

import (
	"fmt"
	"sort"
	"sync"
)

// Factory opens a connector instance from entry options.
type Factory func(opts Options) (Connector, error)

type registration struct {
	caps    Capabilities
	factory Factory
}

// Registry maps connector kinds to their declared capabilities and factories.
// It implements CapabilityProvider.
type Registry struct {
	mu    sync.RWMutex
	kinds map[Kind]registration
}

// Ensure Registry implements CapabilityProvider
var _ CapabilityProvider = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[Kind]registration)}
}

// Register declares a kind. Registering a kind twice replaces it.
func (r *Registry) Register(kind Kind, caps Capabilities, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind] = registration{caps: caps, factory: factory}
}

// Supports implements CapabilityProvider. Unknown kinds support nothing.
func (r *Registry) Supports(kind Kind, family Family) bool {
	caps, _ := r.Capabilities(kind)
	return caps.Supports(family)
}

// Capabilities returns the declared capability set for a kind.
func (r *Registry) Capabilities(kind Kind) (Capabilities, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.kinds[kind]
	return reg.caps, ok
}

// ListsTables reports whether instances of the kind implement TableLister.
// Unknown kinds list nothing.
func (r *Registry) ListsTables(kind Kind) bool {
	caps, _ := r.Capabilities(kind)
	return caps.ListsTables()
}

// Known reports whether the kind is registered.
func (r *Registry) Known(kind Kind) bool {
	_, ok := r.Capabilities(kind)
	return ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Kind, 0, len(r.kinds))
	for k := range r.kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Open creates a connector instance and checks that it provides a write
// interface for every family its kind declares, and TableLister when the
// kind declares TableListing.
func (r *Registry) Open(kind Kind, opts Options) (Connector, error) {
	r.mu.RLock()
	reg, ok := r.kinds[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownKindError{Kind: kind}
	}

	conn, err := reg.factory(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connector: %w", kind, err)
	}

	for _, f := range reg.caps.Families() {
		if !implements(conn, f) {
			conn.Close()
			return nil, fmt.Errorf("%s connector declares %s but does not implement it", kind, f.Label())
		}
	}

	if reg.caps.ListsTables() {
		if _, ok := conn.(TableLister); !ok {
			conn.Close()
			return nil, fmt.Errorf("%s connector declares table listing but does not implement it", kind)
		}
	}

	return conn, nil
}

// Default is the process-wide registry connector packages register into from init().
var Default = NewRegistry()

// Register declares a kind in the Default registry.
func Register(kind Kind, caps Capabilities, factory Factory) {
	Default.Register(kind, caps, factory)
}
