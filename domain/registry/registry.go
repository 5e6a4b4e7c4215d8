// Package registry implements the Tenant Registry: a read-mostly,
// copy-on-write map from TenantID to that tenant's runtime handles
// (its graph, cache, and configuration), grounded on
// internal/app/application.go's composed-service-handle construction —
// generalized here from "one process, N fixed domain services" to
// "one process, N dynamically created/removed tenants" (spec.md §5,
// §9 Open Question "copy-on-write vs. sharded mutex map").
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/nftbarter/discovery-engine/domain/graph"
	"github.com/nftbarter/discovery-engine/domain/identity"
	"github.com/nftbarter/discovery-engine/engine/cyclecache"
	svcerrors "github.com/nftbarter/discovery-engine/infrastructure/errors"
)

// Handle is one tenant's full runtime state: its persistent graph, its
// cycle cache, and its current configuration/credentials.
type Handle struct {
	Tenant identity.Tenant
	Graph  *graph.Graph
	Cache  *cyclecache.Cache
}

// CacheFactory constructs a fresh cycle cache for a newly registered
// tenant, injected so Registry doesn't need to import cache sizing
// policy directly.
type CacheFactory func() (*cyclecache.Cache, error)

// Registry holds every tenant's Handle. Readers (Get) never block on a
// writer: mutation builds an entirely new map and swaps it in with one
// atomic store, the same copy-on-write discipline
// internal/app/application.go uses for its (far more static) set of
// composed services.
type Registry struct {
	writeMu sync.Mutex
	tenants atomic.Value // map[identity.TenantID]*Handle

	newCache CacheFactory
}

func New(newCache CacheFactory) *Registry {
	r := &Registry{newCache: newCache}
	r.tenants.Store(make(map[identity.TenantID]*Handle))
	return r
}

func (r *Registry) snapshot() map[identity.TenantID]*Handle {
	return r.tenants.Load().(map[identity.TenantID]*Handle)
}

// Get returns the handle for tenant, if registered.
func (r *Registry) Get(id identity.TenantID) (*Handle, bool) {
	h, ok := r.snapshot()[id]
	return h, ok
}

// List returns every registered tenant id, in no particular order.
func (r *Registry) List() []identity.TenantID {
	m := r.snapshot()
	ids := make([]identity.TenantID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return ids
}

// Create registers a brand-new tenant. Returns AlreadyExists if the id
// is taken.
func (r *Registry) Create(tenant identity.Tenant) (*Handle, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	current := r.snapshot()
	if _, exists := current[tenant.ID]; exists {
		return nil, svcerrors.AlreadyExists("tenant", string(tenant.ID))
	}

	cache, err := r.newCache()
	if err != nil {
		return nil, svcerrors.Internal(err)
	}

	handle := &Handle{
		Tenant: tenant,
		Graph:  graph.New(tenant.ID, tenant.Config),
		Cache:  cache,
	}

	next := make(map[identity.TenantID]*Handle, len(current)+1)
	for id, h := range current {
		next[id] = h
	}
	next[tenant.ID] = handle
	r.tenants.Store(next)

	return handle, nil
}

// UpdateConfig replaces a tenant's configuration in place (the Graph and
// Cache instances are kept; only their config-dependent knobs change).
func (r *Registry) UpdateConfig(id identity.TenantID, cfg identity.TenantConfig) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	current := r.snapshot()
	existing, ok := current[id]
	if !ok {
		return svcerrors.NotFound("tenant", string(id))
	}

	updated := *existing
	updated.Tenant.Config = cfg
	updated.Graph.SetConfig(cfg)

	next := make(map[identity.TenantID]*Handle, len(current))
	for tid, h := range current {
		next[tid] = h
	}
	next[id] = &updated
	r.tenants.Store(next)

	return nil
}

// Delete removes a tenant entirely. Returns NotFound if unregistered.
func (r *Registry) Delete(id identity.TenantID) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	current := r.snapshot()
	if _, ok := current[id]; !ok {
		return svcerrors.NotFound("tenant", string(id))
	}

	next := make(map[identity.TenantID]*Handle, len(current)-1)
	for tid, h := range current {
		if tid != id {
			next[tid] = h
		}
	}
	r.tenants.Store(next)

	return nil
}
