package connectors

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a connector bound to the given target string. The target
// is the part of a reference after "@<kind>/" and may be empty for
// discovery-only use.
type Factory func(target string) (Connector, error)

// Registry maps connector kinds to factories and binds target references
// to connector instances.
type Registry struct {
	// mu protects the factory map.
	mu sync.RWMutex

	factories map[string]Factory
}

// NewRegistry creates an empty connector registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register registers a connector factory under a kind.
func (r *Registry) Register(kind string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("connector kind %q already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

// Kinds returns the registered connector kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Open parses a "@<kind>/<target>" reference and builds the matching
// connector bound to the target part.
func (r *Registry) Open(ref string) (Connector, error) {
	kind, target, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, NewValidationError("open target", fmt.Errorf("unknown connector kind %q", kind))
	}

	return factory(target)
}

// ParseRef splits a "@<kind>/<target>" reference into its kind and target
// parts. The target part may be empty; the split happens at the first
// slash only.
func ParseRef(ref string) (kind, target string, err error) {
	if !strings.HasPrefix(ref, "@") {
		return "", "", NewValidationError("parse target", fmt.Errorf("target reference %q does not start with '@'", ref))
	}

	rest := ref[1:]
	kind, target, _ = strings.Cut(rest, "/")
	if kind == "" {
		return "", "", NewValidationError("parse target", fmt.Errorf("target reference %q has no connector kind", ref))
	}
	return kind, target, nil
}
