// Package asset holds the asset, metadata, valuation, and want types that
// make up a tenant's graph nodes and edges (spec.md §3).
package asset

import "github.com/nftbarter/discovery-engine/domain/identity"

// Metadata is a closed record describing an asset. Unknown JSON fields are
// rejected at the HTTP boundary (json.Decoder.DisallowUnknownFields),
// grounded on applications/httpapi/handler.go's decodeJSON helper.
type Metadata struct {
	Name       string                  `json:"name"`
	Symbol     string                  `json:"symbol"`
	Image      *string                 `json:"image,omitempty"`
	Collection *identity.CollectionID  `json:"collection,omitempty"`
}

// Valuation is an optional amount+currency estimate attached to an asset.
type Valuation struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Asset is an indivisible, uniquely identified tradable item (spec.md
// GLOSSARY). Every Asset has exactly one owner at any time; ownership
// transfer is atomic under the tenant's write lock.
type Asset struct {
	ID        identity.AssetID
	Metadata  Metadata
	Owner     identity.WalletID
	Valuation *Valuation
}

// Want is the pair (wallet, wanted-asset-or-collection). Exactly one of
// AssetID/CollectionID is set (spec.md §3 Want).
type Want struct {
	Wallet       identity.WalletID
	AssetID      *identity.AssetID
	CollectionID *identity.CollectionID
}

// IsCollectionWant reports whether this Want targets a collection rather
// than a specific asset.
func (w Want) IsCollectionWant() bool {
	return w.CollectionID != nil
}
