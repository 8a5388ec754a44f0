package vfskit

import (
	"fmt"
	"slices"
	"sync"
)

// ProviderFactory is a function that creates a FileProvider from a config
type ProviderFactory func(cfg *Config) (FileProvider, error)

var (
	providerFactories = make(map[string]ProviderFactory)
	factoryMutex      sync.RWMutex
)

// RegisterProvider registers a provider factory for a scheme. Driver
// packages call it from init.
func RegisterProvider(scheme string, factory ProviderFactory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	providerFactories[scheme] = factory
}

// RegisteredSchemes returns the schemes with a registered factory, sorted.
func RegisteredSchemes() []string {
	factoryMutex.RLock()
	defer factoryMutex.RUnlock()
	schemes := make([]string, 0, len(providerFactories))
	for s := range providerFactories {
		schemes = append(schemes, s)
	}
	slices.Sort(schemes)
	return schemes
}

// CreateProvider creates the provider for scheme from config
func CreateProvider(scheme string, cfg *Config) (FileProvider, error) {
	factoryMutex.RLock()
	factory, exists := providerFactories[scheme]
	factoryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("provider %s not registered", scheme)
	}

	return factory(cfg)
}
