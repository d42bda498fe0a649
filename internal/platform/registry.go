package platform

import (
	"fmt"
	"sort"
	"strings"

	"gauntlet/internal/params"
	"gauntlet/internal/run"
)

// Registry maps platform names to controller factories. Names are matched
// case-insensitively; the registry is assembled once at startup from the
// built-in factories, never extended at runtime.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry from the given factories.
func NewRegistry(factories map[string]Factory) *Registry {
	r := &Registry{factories: make(map[string]Factory, len(factories))}
	for name, factory := range factories {
		r.factories[strings.ToLower(name)] = factory
	}
	return r
}

// Lookup resolves a platform name to a controller. Unknown names fail
// closed with a ConfigurationError listing what is available; no
// controller code runs for a name that was never registered.
func (r *Registry) Lookup(name string, store *run.Store) (Controller, error) {
	factory, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, params.NewConfigurationError(params.KeyPlatform, "resolver",
			fmt.Sprintf("unknown platform %q, available: %s", name, strings.Join(r.Names(), ", ")))
	}
	return factory(store), nil
}

// Names returns all registered platform names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
