package graph

import (
	"github.com/nftbarter/discovery-engine/domain/identity"
	svcerrors "github.com/nftbarter/discovery-engine/infrastructure/errors"
)

// WantItem is one desired asset or collection submitted by SubmitWants.
// Exactly one of AssetID/CollectionID must be set. PredicateExpr is only
// meaningful alongside CollectionID: a non-empty value is a JSONPath
// expression (domain/collection.JSONPathPredicate) an asset's metadata
// must also satisfy beyond plain collection membership.
type WantItem struct {
	AssetID       *identity.AssetID
	CollectionID  *identity.CollectionID
	PredicateExpr string
}

// SubmitWants adds wants for walletID. Entries for assets the wallet
// currently owns are silently skipped (counted in Skipped). For each
// newly wanted asset, an edge walletID -> owner(asset) is added if an
// owner exists (spec.md §4.1).
func (g *Graph) SubmitWants(walletID identity.WalletID, items []WantItem) (dirty DirtySet, skipped int, err error) {
	if walletID == "" {
		return nil, 0, svcerrors.InvalidInput("walletId must not be empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	dirty = newDirtySet()
	wallet := g.walletOrNew(walletID)

	totalWants := len(wallet.wants) + len(wallet.collectionWants)

	for _, item := range items {
		switch {
		case item.AssetID != nil:
			assetID := *item.AssetID
			if a, owned := g.assets[assetID]; owned && a.Owner == walletID {
				skipped++
				continue
			}
			if _, already := wallet.wants[assetID]; already {
				continue
			}
			if g.config.MaxWantsPerWallet > 0 && totalWants >= g.config.MaxWantsPerWallet {
				return nil, 0, svcerrors.LimitExceeded("TOO_MANY_WANTS", g.config.MaxWantsPerWallet)
			}
			wallet.wants[assetID] = struct{}{}
			totalWants++

			set, ok := g.wanters[assetID]
			if !ok {
				set = make(map[identity.WalletID]struct{})
				g.wanters[assetID] = set
			}
			set[walletID] = struct{}{}

			g.recomputeWantEdges(assetID, dirty)

		case item.CollectionID != nil:
			collectionID := *item.CollectionID
			if _, already := wallet.collectionWants[collectionID]; already {
				continue
			}
			if g.config.MaxWantsPerWallet > 0 && totalWants >= g.config.MaxWantsPerWallet {
				return nil, 0, svcerrors.LimitExceeded("TOO_MANY_WANTS", g.config.MaxWantsPerWallet)
			}
			wallet.collectionWants[collectionID] = item.PredicateExpr
			totalWants++
			dirty.add(walletID)

		default:
			return nil, 0, svcerrors.InvalidInput("wantedNFTs[] must set exactly one of assetId or collectionId")
		}
	}

	return dirty, skipped, nil
}

// RemoveWant removes a previously submitted want and recomputes affected
// edges (spec.md §4.1 "inverse; recompute affected edges").
func (g *Graph) RemoveWant(walletID identity.WalletID, item WantItem) (DirtySet, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	dirty := newDirtySet()
	wallet, ok := g.wallets[walletID]
	if !ok {
		return dirty, nil
	}

	switch {
	case item.AssetID != nil:
		assetID := *item.AssetID
		if _, wanted := wallet.wants[assetID]; !wanted {
			return dirty, nil
		}
		delete(wallet.wants, assetID)
		if set, ok := g.wanters[assetID]; ok {
			delete(set, walletID)
		}
		g.recomputeWantEdges(assetID, dirty)

	case item.CollectionID != nil:
		collectionID := *item.CollectionID
		if _, wanted := wallet.collectionWants[collectionID]; !wanted {
			return dirty, nil
		}
		delete(wallet.collectionWants, collectionID)
		dirty.add(walletID)
	}

	return dirty, nil
}
