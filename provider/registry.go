// Package provider keeps the web capability implementations the engine can
// switch between.
package provider

import (
	"sort"
	"sync"

	"github.com/warriorguo/hyperbuild/types"
)

// DefaultKey is used when no provider key is configured.
const DefaultKey = "fetch"

var (
	_ types.ProviderRegistry = &Registry{}

	// Default is the process-wide registry. Engines built without an explicit
	// registry read from it.
	Default = NewRegistry()
)

type Registry struct {
	mu sync.RWMutex

	providers map[string]types.Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]types.Provider)}
}

// Register associates impl with key, replacing any earlier registration.
func (r *Registry) Register(key string, impl types.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[key] = impl
}

func (r *Registry) Active(key string) (types.Provider, error) {
	if key == "" {
		key = DefaultKey
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	impl, exists := r.providers[key]
	if !exists || impl == nil {
		return nil, types.NewConfigurationErrorf("no provider registered for key: %s", key)
	}
	return impl, nil
}

func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.providers))
	for key := range r.providers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func Register(key string, impl types.Provider) {
	Default.Register(key, impl)
}

func Active(key string) (types.Provider, error) {
	return Default.Active(key)
}
