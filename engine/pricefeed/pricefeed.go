// Package pricefeed supplies the two market-data inputs the scorer needs
// that the trade graph itself can't derive: a collection's floor price
// and its recent sale volume. Both are optional signals — a tenant that
// never configures a feed gets the scorer's neutral defaults.
package pricefeed

import (
	"context"

	"github.com/nftbarter/discovery-engine/domain/identity"
)

// Quote is one collection's market snapshot.
type Quote struct {
	FloorPrice  float64
	VolumeProxy float64 // relative 24h volume, already normalized to [0,1]
}

// FloorPriceSource supplies market quotes for collections, used by
// engine/scorer's market metric group.
type FloorPriceSource interface {
	Quote(ctx context.Context, collection identity.CollectionID) (Quote, bool)
}

// NeutralSource always reports "no data", so callers fall back to the
// scorer's neutral 0.5 defaults. This is the default source until a
// tenant configures a real feed.
type NeutralSource struct{}

func (NeutralSource) Quote(ctx context.Context, collection identity.CollectionID) (Quote, bool) {
	return Quote{}, false
}
