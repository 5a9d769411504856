package authz

import (
	"fmt"
	"sort"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
)

// Registry is the immutable set of named policies. It is built once and shared
// across requests without locking.
type Registry struct {
	policies map[string]Policy
}

// NewRegistry registers the builtins and then policies. Duplicate or empty
// names are configuration errors.
func NewRegistry(policies ...Policy) (*Registry, error) {
	r := &Registry{policies: make(map[string]Policy)}
	for _, p := range append(Builtins(), policies...) {
		if p == nil {
			continue
		}
		name := p.Name()
		if name == "" {
			return nil, fmt.Errorf("%w: policy name is required", auth.ErrConfiguration)
		}
		if _, dup := r.policies[name]; dup {
			return nil, fmt.Errorf("%w: policy %q registered twice", auth.ErrConfiguration, name)
		}
		r.policies[name] = p
	}
	return r, nil
}

// Lookup returns the policy registered under name.
func (r *Registry) Lookup(name string) (Policy, bool) {
	p, ok := r.policies[name]
	return p, ok
}

// Names returns the registered policy names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
