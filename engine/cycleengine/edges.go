package cycleengine

import (
	"sort"

	"github.com/nftbarter/discovery-engine/domain/collection"
	"github.com/nftbarter/discovery-engine/domain/graph"
	"github.com/nftbarter/discovery-engine/domain/identity"
)

// edgeIndex is a sorted adjacency list covering both concrete wants-edges
// (already materialized on graph.View) and collection-want edges, which
// are expanded lazily here rather than stored on the graph (spec.md §3
// "collection want"): wallet u gets an edge to every distinct owner of an
// asset tagged with a collection u wants, witnessed by that asset.
type edgeIndex map[identity.WalletID][]graph.Edge

func buildEdgeIndex(view *graph.View) edgeIndex {
	merged := make(map[identity.WalletID]map[identity.WalletID]map[identity.AssetID]struct{})

	addWitness := func(u, v identity.WalletID, w identity.AssetID) {
		if u == v {
			return
		}
		byTarget, ok := merged[u]
		if !ok {
			byTarget = make(map[identity.WalletID]map[identity.AssetID]struct{})
			merged[u] = byTarget
		}
		witnesses, ok := byTarget[v]
		if !ok {
			witnesses = make(map[identity.AssetID]struct{})
			byTarget[v] = witnesses
		}
		witnesses[w] = struct{}{}
	}

	for _, e := range view.Edges {
		for _, w := range e.Witnesses {
			addWitness(e.From, e.To, w)
		}
	}

	for u, wv := range view.Wallets {
		for _, want := range wv.CollectionWants {
			predicate := collectionPredicate(want.PredicateExpr)
			for _, assetID := range view.CollectionAssets[want.CollectionID] {
				a, ok := view.Assets[assetID]
				if !ok || a.Owner == "" || a.Owner == u {
					continue
				}
				if !predicate.Matches(a.Metadata) {
					continue
				}
				addWitness(u, a.Owner, assetID)
			}
		}
	}

	idx := make(edgeIndex, len(merged))
	for u, byTarget := range merged {
		var edges []graph.Edge
		for v, witnesses := range byTarget {
			edge := graph.Edge{From: u, To: v}
			for w := range witnesses {
				edge.Witnesses = append(edge.Witnesses, w)
			}
			sort.Slice(edge.Witnesses, func(i, j int) bool { return edge.Witnesses[i] < edge.Witnesses[j] })
			edges = append(edges, edge)
		}
		sort.Slice(edges, func(i, j int) bool { return edges[i].To < edges[j].To })
		idx[u] = edges
	}
	return idx
}

func (idx edgeIndex) edgesFrom(v identity.WalletID) []graph.Edge {
	return idx[v]
}

// collectionPredicate resolves a wallet's stored predicate expression into
// the filter used to gate which assets in the collection satisfy the
// want: a blank expression matches every asset in the collection, a
// non-blank one is evaluated as JSONPath against the asset's metadata.
func collectionPredicate(expr string) collection.Predicate {
	if expr == "" {
		return collection.AnyPredicate{}
	}
	return collection.JSONPathPredicate{Expression: expr}
}
