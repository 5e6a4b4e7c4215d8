package graph

import "github.com/nftbarter/discovery-engine/domain/identity"

// RemoveAsset deletes an asset entirely: it is removed from its owner's
// owned-set, from every wallet's want-set, and every edge it witnessed is
// recomputed or dropped.
func (g *Graph) RemoveAsset(assetID identity.AssetID) (DirtySet, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	dirty := newDirtySet()
	a, ok := g.assets[assetID]
	if !ok {
		return dirty, nil
	}

	if owner, ok := g.wallets[a.Owner]; ok {
		delete(owner.owned, assetID)
	}
	for wanterID := range g.wanters[assetID] {
		if w, ok := g.wallets[wanterID]; ok {
			delete(w.wants, assetID)
		}
		dirty.add(wanterID)
	}
	delete(g.wanters, assetID)

	if a.Metadata.Collection != nil {
		if set, ok := g.collectionAssets[*a.Metadata.Collection]; ok {
			delete(set, assetID)
		}
	}

	for u, byTarget := range g.adjacency {
		for v, witnesses := range byTarget {
			if _, present := witnesses[assetID]; present {
				g.removeEdgeWitness(u, v, assetID, dirty)
			}
		}
	}

	delete(g.assets, assetID)
	return dirty, nil
}

// RemoveWallet deletes a wallet, all assets it owns, and every want it
// holds, recomputing all affected edges.
func (g *Graph) RemoveWallet(walletID identity.WalletID) (DirtySet, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	dirty := newDirtySet()
	wallet, ok := g.wallets[walletID]
	if !ok {
		return dirty, nil
	}

	ownedAssets := make([]identity.AssetID, 0, len(wallet.owned))
	for assetID := range wallet.owned {
		ownedAssets = append(ownedAssets, assetID)
	}
	// RemoveAsset takes its own write lock; release ours for the duration
	// so the two don't deadlock, then reacquire before continuing (the
	// top-level defer still balances against this reacquire).
	g.mu.Unlock()
	for _, assetID := range ownedAssets {
		sub, _ := g.RemoveAsset(assetID)
		dirty.Merge(sub)
	}
	g.mu.Lock()

	for assetID := range wallet.wants {
		if set, ok := g.wanters[assetID]; ok {
			delete(set, walletID)
		}
		g.recomputeWantEdges(assetID, dirty)
	}

	delete(g.adjacency, walletID)
	for _, byTarget := range g.adjacency {
		delete(byTarget, walletID)
	}

	delete(g.wallets, walletID)
	dirty.add(walletID)
	return dirty, nil
}
