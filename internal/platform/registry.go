package platform

import (
	"fmt"
	"sort"

	"storesync/internal/domain/credential"
)

// Registry maps platform identifiers to adapter factories. It is populated
// once at wiring time; adding a platform means one Register call.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Resolve returns an adapter bound to the given credentials.
func (r *Registry) Resolve(creds *credential.Credentials) (Adapter, error) {
	factory, ok := r.factories[creds.Platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", credential.ErrUnsupportedPlatform, creds.Platform)
	}
	return factory(creds), nil
}

// Platforms lists registered platform names, sorted.
func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
