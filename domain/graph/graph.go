// Package graph implements the per-tenant persistent trade graph: wallets,
// assets, wants, the derived wants-edges, and their inverted indices
// (spec.md §3/§4.1). All mutation happens under one per-tenant write lock
// so edges and indices are always updated together in one critical
// section.
package graph

import (
	"sync"

	"github.com/nftbarter/discovery-engine/domain/asset"
	"github.com/nftbarter/discovery-engine/domain/identity"
)

// DirtySet is the set of wallets whose incident edges changed as a result
// of a mutation — the scope handed to incremental cycle re-discovery.
type DirtySet map[identity.WalletID]struct{}

func newDirtySet() DirtySet { return make(DirtySet) }

func (d DirtySet) add(w identity.WalletID) { d[w] = struct{}{} }

// Merge folds other into d and returns d.
func (d DirtySet) Merge(other DirtySet) DirtySet {
	for w := range other {
		d[w] = struct{}{}
	}
	return d
}

type walletState struct {
	id    identity.WalletID
	owned map[identity.AssetID]struct{}
	wants map[identity.AssetID]struct{}

	// collectionWants maps a wanted collection to the predicate expression
	// (if any) that an asset in the collection must also satisfy; the
	// empty string means "any asset in the collection matches".
	collectionWants map[identity.CollectionID]string
}

func newWalletState(id identity.WalletID) *walletState {
	return &walletState{
		id:              id,
		owned:           make(map[identity.AssetID]struct{}),
		wants:           make(map[identity.AssetID]struct{}),
		collectionWants: make(map[identity.CollectionID]string),
	}
}

// Graph is one tenant's in-memory trade graph. Nodes are wallets; a
// directed edge u -> v exists iff some asset a has owner(a) = v and u
// wants a (spec.md §3 Graph). The zero value is not usable; use New.
type Graph struct {
	mu sync.RWMutex

	tenant identity.TenantID
	config identity.TenantConfig

	wallets map[identity.WalletID]*walletState
	assets  map[identity.AssetID]*asset.Asset

	// adjacency[u][v] = set of witnessing assets for the edge u -> v.
	adjacency map[identity.WalletID]map[identity.WalletID]map[identity.AssetID]struct{}

	// wanters[assetID] = set of wallets that directly want assetID.
	wanters map[identity.AssetID]map[identity.WalletID]struct{}

	// collectionAssets[collectionID] = set of assets tagged with that collection.
	collectionAssets map[identity.CollectionID]map[identity.AssetID]struct{}
}

// New creates an empty graph for a tenant with the given algorithm config.
func New(tenant identity.TenantID, config identity.TenantConfig) *Graph {
	return &Graph{
		tenant:           tenant,
		config:           config,
		wallets:          make(map[identity.WalletID]*walletState),
		assets:           make(map[identity.AssetID]*asset.Asset),
		adjacency:        make(map[identity.WalletID]map[identity.WalletID]map[identity.AssetID]struct{}),
		wanters:          make(map[identity.AssetID]map[identity.WalletID]struct{}),
		collectionAssets: make(map[identity.CollectionID]map[identity.AssetID]struct{}),
	}
}

// SetConfig replaces the algorithm configuration used for per-wallet cap
// enforcement. Callers must not hold any lock on the graph.
func (g *Graph) SetConfig(config identity.TenantConfig) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.config = config
}

func (g *Graph) walletOrNew(id identity.WalletID) *walletState {
	w, ok := g.wallets[id]
	if !ok {
		w = newWalletState(id)
		g.wallets[id] = w
	}
	return w
}

func (g *Graph) addEdge(u, v identity.WalletID, witness identity.AssetID, dirty DirtySet) {
	if u == v {
		return
	}
	byTarget, ok := g.adjacency[u]
	if !ok {
		byTarget = make(map[identity.WalletID]map[identity.AssetID]struct{})
		g.adjacency[u] = byTarget
	}
	witnesses, ok := byTarget[v]
	if !ok {
		witnesses = make(map[identity.AssetID]struct{})
		byTarget[v] = witnesses
	}
	_, existed := witnesses[witness]
	witnesses[witness] = struct{}{}
	if !existed {
		dirty.add(u)
		dirty.add(v)
	}
}

func (g *Graph) removeEdgeWitness(u, v identity.WalletID, witness identity.AssetID, dirty DirtySet) {
	byTarget, ok := g.adjacency[u]
	if !ok {
		return
	}
	witnesses, ok := byTarget[v]
	if !ok {
		return
	}
	if _, existed := witnesses[witness]; !existed {
		return
	}
	delete(witnesses, witness)
	dirty.add(u)
	dirty.add(v)
	if len(witnesses) == 0 {
		delete(byTarget, v)
	}
	if len(byTarget) == 0 {
		delete(g.adjacency, u)
	}
}

// recomputeWantEdges rebuilds every edge witnessed by assetID, based on
// the asset's current owner and the set of wallets that currently want
// it. Called whenever an asset's ownership changes or an asset's want
// set changes.
func (g *Graph) recomputeWantEdges(assetID identity.AssetID, dirty DirtySet) {
	a, ok := g.assets[assetID]
	if !ok {
		return
	}
	owner := a.Owner

	// Drop stale witness entries: any edge u -> * witnessed by assetID
	// where u no longer wants assetID, or where the edge no longer
	// targets the current owner.
	for u, byTarget := range g.adjacency {
		for v, witnesses := range byTarget {
			if _, present := witnesses[assetID]; !present {
				continue
			}
			wanterSet := g.wanters[assetID]
			_, stillWants := wanterSet[u]
			if v != owner || !stillWants {
				g.removeEdgeWitness(u, v, assetID, dirty)
			}
		}
	}

	for u := range g.wanters[assetID] {
		if u == owner {
			continue
		}
		g.addEdge(u, owner, assetID, dirty)
	}
}
