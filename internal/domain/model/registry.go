package model

import (
	"context"
	"fmt"
	"sort"

	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

// Registry resolves backends by model name. It is built once at startup and
// immutable afterwards, so reads need no locking.
type Registry struct {
	backends map[string]Backend
	names    []string
}

// NewRegistry indexes the given backends by name. Duplicate or empty names
// are construction errors.
func NewRegistry(backends ...Backend) (*Registry, error) {
	indexed := make(map[string]Backend, len(backends))
	names := make([]string, 0, len(backends))

	for _, backend := range backends {
		name := backend.Name()
		if name == "" {
			return nil, fmt.Errorf("backend with empty name")
		}
		if _, exists := indexed[name]; exists {
			return nil, fmt.Errorf("duplicate backend name %q", name)
		}
		indexed[name] = backend
		names = append(names, name)
	}
	sort.Strings(names)

	return &Registry{backends: indexed, names: names}, nil
}

// Resolve returns the backend registered under name, or a NotFound error.
func (r *Registry) Resolve(ctx context.Context, name string) (Backend, error) {
	backend, ok := r.backends[name]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			fmt.Sprintf("unknown model %q", name), nil)
	}
	return backend, nil
}

// Names returns the registered model names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len reports the number of registered backends.
func (r *Registry) Len() int {
	return len(r.backends)
}
