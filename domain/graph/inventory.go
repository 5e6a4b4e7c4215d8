package graph

import (
	"github.com/nftbarter/discovery-engine/domain/asset"
	"github.com/nftbarter/discovery-engine/domain/identity"
	svcerrors "github.com/nftbarter/discovery-engine/infrastructure/errors"
)

// InventoryItem is one asset upserted by SubmitInventory.
type InventoryItem struct {
	ID        identity.AssetID
	Metadata  asset.Metadata
	Valuation *asset.Valuation
}

// SubmitInventory upserts assets owned by walletID. For each asset: if
// previously owned by another wallet in this tenant, ownership is
// transferred atomically (removed from the old wallet's owned-set, added
// to the new one). Returns the set of wallets whose edges changed
// (spec.md §4.1).
func (g *Graph) SubmitInventory(walletID identity.WalletID, items []InventoryItem) (DirtySet, error) {
	if walletID == "" {
		return nil, svcerrors.InvalidInput("walletId must not be empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	dirty := newDirtySet()
	wallet := g.walletOrNew(walletID)

	for _, item := range items {
		if item.ID == "" {
			return nil, svcerrors.InvalidInput("nfts[].id must not be empty")
		}

		existing, existed := g.assets[item.ID]
		priorOwner := identity.WalletID("")
		if existed {
			priorOwner = existing.Owner
		}

		if !existed && len(wallet.owned) >= g.config.MaxAssetsPerWallet && g.config.MaxAssetsPerWallet > 0 {
			return nil, svcerrors.LimitExceeded("TOO_MANY_ASSETS", g.config.MaxAssetsPerWallet)
		}

		a := &asset.Asset{
			ID:        item.ID,
			Metadata:  item.Metadata,
			Owner:     walletID,
			Valuation: item.Valuation,
		}
		g.assets[item.ID] = a

		if existed && priorOwner != walletID {
			if prior, ok := g.wallets[priorOwner]; ok {
				delete(prior.owned, item.ID)
			}
		}
		wallet.owned[item.ID] = struct{}{}

		if a.Metadata.Collection != nil {
			set, ok := g.collectionAssets[*a.Metadata.Collection]
			if !ok {
				set = make(map[identity.AssetID]struct{})
				g.collectionAssets[*a.Metadata.Collection] = set
			}
			set[item.ID] = struct{}{}
		}

		// Invariant (ii): wants(w) disjoint from owns(w) — silently prune
		// a self-want created by this ownership change.
		if _, wanted := wallet.wants[item.ID]; wanted {
			delete(wallet.wants, item.ID)
			if set, ok := g.wanters[item.ID]; ok {
				delete(set, walletID)
			}
		}

		g.recomputeWantEdges(item.ID, dirty)
	}

	return dirty, nil
}
