package graph

import (
	"sort"

	"github.com/nftbarter/discovery-engine/domain/asset"
	"github.com/nftbarter/discovery-engine/domain/identity"
)

// Edge is a value-type copy of one directed wants-edge and its witnesses.
type Edge struct {
	From      identity.WalletID
	To        identity.WalletID
	Witnesses []identity.AssetID
}

// CollectionWant is a value-type copy of one wallet's collection want,
// including the optional predicate expression narrowing which assets in
// the collection actually satisfy it.
type CollectionWant struct {
	CollectionID  identity.CollectionID
	PredicateExpr string
}

// WalletView is a value-type copy of one wallet's owned/wanted sets.
type WalletView struct {
	ID              identity.WalletID
	Owned           []identity.AssetID
	Wants           []identity.AssetID
	CollectionWants []CollectionWant
}

// View is an immutable, value-typed snapshot of a Graph at one instant.
// Cycle enumeration and queries read from a View so they never block on
// the Graph's write lock (spec.md §5).
type View struct {
	Tenant  identity.TenantID
	Config  identity.TenantConfig
	Wallets map[identity.WalletID]WalletView
	Assets  map[identity.AssetID]asset.Asset
	Edges   []Edge

	// CollectionAssets maps a collection to the assets tagged with it, for
	// the Cycle Engine's collection-want predicate expansion.
	CollectionAssets map[identity.CollectionID][]identity.AssetID
}

// EdgesFrom returns every edge originating at wallet, sorted by target for
// deterministic enumeration order.
func (v *View) EdgesFrom(wallet identity.WalletID) []Edge {
	var out []Edge
	for _, e := range v.Edges {
		if e.From == wallet {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].To < out[j].To })
	return out
}

// Snapshot produces an immutable value-typed view for readers (spec.md
// §4.1). It takes the read lock, deep-copies into value types, and
// returns immediately.
func (g *Graph) Snapshot() *View {
	g.mu.RLock()
	defer g.mu.RUnlock()

	view := &View{
		Tenant:           g.tenant,
		Config:           g.config,
		Wallets:          make(map[identity.WalletID]WalletView, len(g.wallets)),
		Assets:           make(map[identity.AssetID]asset.Asset, len(g.assets)),
		CollectionAssets: make(map[identity.CollectionID][]identity.AssetID, len(g.collectionAssets)),
	}

	for id, w := range g.wallets {
		wv := WalletView{ID: id}
		for a := range w.owned {
			wv.Owned = append(wv.Owned, a)
		}
		for a := range w.wants {
			wv.Wants = append(wv.Wants, a)
		}
		for c, expr := range w.collectionWants {
			wv.CollectionWants = append(wv.CollectionWants, CollectionWant{CollectionID: c, PredicateExpr: expr})
		}
		sort.Slice(wv.Owned, func(i, j int) bool { return wv.Owned[i] < wv.Owned[j] })
		sort.Slice(wv.Wants, func(i, j int) bool { return wv.Wants[i] < wv.Wants[j] })
		sort.Slice(wv.CollectionWants, func(i, j int) bool {
			return wv.CollectionWants[i].CollectionID < wv.CollectionWants[j].CollectionID
		})
		view.Wallets[id] = wv
	}

	for id, a := range g.assets {
		view.Assets[id] = *a
	}

	for u, byTarget := range g.adjacency {
		for v, witnesses := range byTarget {
			edge := Edge{From: u, To: v}
			for w := range witnesses {
				edge.Witnesses = append(edge.Witnesses, w)
			}
			sort.Slice(edge.Witnesses, func(i, j int) bool { return edge.Witnesses[i] < edge.Witnesses[j] })
			view.Edges = append(view.Edges, edge)
		}
	}
	sort.Slice(view.Edges, func(i, j int) bool {
		if view.Edges[i].From != view.Edges[j].From {
			return view.Edges[i].From < view.Edges[j].From
		}
		return view.Edges[i].To < view.Edges[j].To
	})

	for c, set := range g.collectionAssets {
		assets := make([]identity.AssetID, 0, len(set))
		for a := range set {
			assets = append(assets, a)
		}
		sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })
		view.CollectionAssets[c] = assets
	}

	return view
}

// WalletIDs returns every wallet id currently present, sorted — the
// canonical enumeration order spec.md §4.2 requires.
func (v *View) WalletIDs() []identity.WalletID {
	ids := make([]identity.WalletID, 0, len(v.Wallets))
	for id := range v.Wallets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
