package accessor

import (
	"fmt"
	"sort"
	"sync"
)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]BackendFactory)
)

// BackendFactory creates an Accessor from backend-specific configuration.
type BackendFactory func(config map[string]string) (Accessor, error)

// Register registers a backend factory under the given scheme name. It
// is typically called from init() in a backend package, analogous to
// database/sql driver registration.
//
// Register panics if factory is nil or a backend is already registered
// under scheme.
func Register(scheme string, factory BackendFactory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	if factory == nil {
		panic("accessor: Register factory is nil")
	}
	if _, dup := backends[scheme]; dup {
		panic("accessor: Register called twice for scheme " + scheme)
	}
	backends[scheme] = factory
}

// Open opens a backend by scheme name with the given configuration.
// Returns ErrUnknownBackend if no backend is registered under scheme.
func Open(scheme string, config map[string]string) (Accessor, error) {
	backendsMu.RLock()
	factory, ok := backends[scheme]
	backendsMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, scheme)
	}
	return factory(config)
}

// Backends returns a sorted list of registered scheme names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
