// Package registry maps case-insensitive scheme names to descriptors.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry resolves scheme strings to descriptors of type D.
// Scheme keys are unique ignoring case.
type Registry[D any] struct {
	kind    string
	mu      sync.RWMutex
	entries map[string]D
}

// New creates an empty registry; kind names the namespace in error messages.
func New[D any](kind string) *Registry[D] {
	return &Registry[D]{
		kind:    kind,
		entries: make(map[string]D),
	}
}

// Register binds every scheme to the descriptor.
// Params: descriptor and one or more schemes.
// Returns: error when no scheme is given, a scheme is blank, or any scheme collides; nothing is registered on error.
func (r *Registry[D]) Register(descriptor D, schemes ...string) error {
	if len(schemes) == 0 {
		return fmt.Errorf("%s descriptor has no schemes", r.kind)
	}

	keys := make([]string, 0, len(schemes))
	seen := make(map[string]struct{}, len(schemes))
	for _, scheme := range schemes {
		key := normalize(scheme)
		if key == "" {
			return errors.New(r.kind + " scheme must not be empty")
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%s scheme %q listed twice", r.kind, key)
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range keys {
		if _, exists := r.entries[key]; exists {
			return fmt.Errorf("%s scheme %q already registered", r.kind, key)
		}
	}
	for _, key := range keys {
		r.entries[key] = descriptor
	}
	return nil
}

// Resolve looks up a scheme ignoring case.
func (r *Registry[D]) Resolve(scheme string) (D, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descriptor, ok := r.entries[normalize(scheme)]
	return descriptor, ok
}

// Schemes returns every registered scheme in sorted order.
func (r *Registry[D]) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for key := range r.entries {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered schemes.
func (r *Registry[D]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func normalize(scheme string) string {
	return strings.ToLower(strings.TrimSpace(scheme))
}
