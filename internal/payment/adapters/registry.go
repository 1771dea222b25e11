package adapters

import (
	"strings"

	"github.com/tanviralimon/orcus-portal/internal/payment/domain"
)

// Registry holds the configured gateway adapters keyed by canonical name.
type Registry struct {
	adapters map[string]domain.Adapter
}

// NewRegistry builds a registry from adapter instances.
func NewRegistry(adapters ...domain.Adapter) *Registry {
	registry := &Registry{adapters: map[string]domain.Adapter{}}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		gateway := strings.ToLower(strings.TrimSpace(adapter.Gateway()))
		if gateway == "" {
			continue
		}
		registry.adapters[gateway] = adapter
	}
	return registry
}

// Adapter returns the adapter for a gateway, if one is registered.
func (r *Registry) Adapter(gateway string) (domain.Adapter, bool) {
	if r == nil {
		return nil, false
	}
	gateway = strings.ToLower(strings.TrimSpace(gateway))
	adapter, ok := r.adapters[gateway]
	return adapter, ok
}
