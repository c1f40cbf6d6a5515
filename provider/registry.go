package provider

import (
	"sync"

	"github.com/chittyos/chittyrouter/entity"
	"github.com/chittyos/chittyrouter/errors"
)

// Registry maps provider identity to implementation. The router holds only
// identities and resolves implementations through here, never concrete types.
// Registration order is preserved: it is the deterministic tie-break when
// scores are equal.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
}

func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{
		providers: make(map[string]Provider),
	}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p == nil || p.ID() == "" {
		return errors.Wrapf(errors.ErrInvalidParams, "provider must have a non-empty id")
	}
	if _, exists := r.providers[p.ID()]; exists {
		return errors.Errorf("provider %q already registered", p.ID())
	}

	r.providers[p.ID()] = p
	r.order = append(r.order, p.ID())
	return nil
}

func (r *Registry) Get(id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "provider %q is not registered", id)
	}
	return p, nil
}

// CapableOf returns the IDs of providers able to serve the given complexity
// tier, in registration order.
func (r *Registry) CapableOf(complexity entity.Complexity) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for _, id := range r.order {
		if r.providers[id].Capability().Covers(complexity) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}
