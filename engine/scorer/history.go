package scorer

import "github.com/nftbarter/discovery-engine/domain/identity"

// HistorySource supplies the historical-signals group's three metrics.
// Like pricefeed.FloorPriceSource, absence of data is expected and
// scored with a neutral default rather than treated as an error
// (spec.md §4.3 "Determinism").
type HistorySource interface {
	EdgeSuccessRate(from, to identity.WalletID) (float64, bool)
	ParticipantHistory(wallet identity.WalletID) (float64, bool)
	RecencyBonus(wallets []identity.WalletID) (float64, bool)
}

// NeutralHistory reports no data for every wallet/edge, the default
// until a tenant's dispatcher wires in a real trade-history store.
type NeutralHistory struct{}

func (NeutralHistory) EdgeSuccessRate(identity.WalletID, identity.WalletID) (float64, bool) {
	return 0, false
}

func (NeutralHistory) ParticipantHistory(identity.WalletID) (float64, bool) {
	return 0, false
}

func (NeutralHistory) RecencyBonus([]identity.WalletID) (float64, bool) {
	return 0, false
}
