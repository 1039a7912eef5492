package integrations

import (
	"fmt"
	"sync"
)

// RegistryInterface holds the geocoding providers known to the process and which one
// answers lookups.
type RegistryInterface interface {
	// Register adds a provider under its Name. Names are unique.
	Register(provider GeocodingProvider) error

	// Get returns the provider registered under name.
	Get(name string) (GeocodingProvider, error)

	// SetActive picks the provider used for lookups. It must already be registered.
	SetActive(name string) error

	// GetActive returns the provider used for lookups, or ErrNotConfigured when none
	// was picked.
	GetActive() (GeocodingProvider, error)
}

// Registry is the map-backed RegistryInterface. Safe for concurrent use.
type Registry struct {
	providers map[string]GeocodingProvider
	active    string
	mu        sync.RWMutex
}

// NewRegistry returns an empty registry with no active provider.
func NewRegistry() RegistryInterface {
	return &Registry{
		providers: make(map[string]GeocodingProvider),
	}
}

func (r *Registry) Register(provider GeocodingProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %q is already registered", name)
	}

	r.providers[name] = provider
	return nil
}

func (r *Registry) Get(name string) (GeocodingProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("provider %q is not registered", name)
	}
	return provider, nil
}

func (r *Registry) SetActive(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; !exists {
		return fmt.Errorf("cannot activate provider %q: not registered", name)
	}

	r.active = name
	return nil
}

func (r *Registry) GetActive() (GeocodingProvider, error) {
	// Read the name under the lock, then resolve it through Get.
	r.mu.RLock()
	activeName := r.active
	r.mu.RUnlock()

	// Geocoding callers treat this as an unknown location, not a failure.
	if activeName == "" {
		return nil, ErrNotConfigured
	}
	return r.Get(activeName)
}
