package oidc

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the configured identity providers by name.
//
//	reg, err := oidc.NewRegistry(map[string]oidc.ProviderConfig{
//	    "google": {ClientID: "...", ClientSecret: "...", RedirectURI: "..."},
//	})
//	cfg, ok := reg.Get("google")
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ProviderConfig
}

// NewRegistry registers every provider in configs, keyed by map key.
func NewRegistry(configs map[string]ProviderConfig) (*Registry, error) {
	r := &Registry{providers: make(map[string]ProviderConfig, len(configs))}
	for name, cfg := range configs {
		cfg.Name = name
		if err := r.Register(cfg); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register applies defaults, validates and stores cfg under cfg.Name.
func (r *Registry) Register(cfg ProviderConfig) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("oidc: %w", err)
	}
	cfg.Scopes = append([]string(nil), cfg.Scopes...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[cfg.Name] = cfg
	return nil
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (ProviderConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.providers[name]
	return cfg, ok
}

// Names returns all registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
