package httpapi

import (
	"time"

	"github.com/nftbarter/discovery-engine/domain/asset"
	"github.com/nftbarter/discovery-engine/domain/cycle"
	"github.com/nftbarter/discovery-engine/domain/identity"
)

// errorEnvelope is the error response shape of spec.md §6:
// {error:{code, message, details?, timestamp, requestId?}}.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"requestId,omitempty"`
}

// createTenantRequest is the body of POST /admin/tenants.
type createTenantRequest struct {
	Name         string                 `json:"name"`
	ContactEmail string                 `json:"contactEmail"`
	Settings     *identity.TenantConfig `json:"settings,omitempty"`
	WebhookURL   string                 `json:"webhookUrl,omitempty"`
}

type createTenantResponse struct {
	Tenant identity.Tenant `json:"tenant"`
	APIKey string          `json:"apiKey"`
}

// nftOwnership lets an inventory item reassign ownership to a wallet
// other than the submitting one (spec.md §8 "ownership transfer
// invalidation" scenario: the submitter resubmits an asset with a new
// ownerId rather than resubmitting as that owner directly).
type nftOwnership struct {
	OwnerID identity.WalletID `json:"ownerId"`
}

type nftItem struct {
	ID        string           `json:"id"`
	Metadata  asset.Metadata   `json:"metadata"`
	Ownership *nftOwnership    `json:"ownership,omitempty"`
	Valuation *asset.Valuation `json:"valuation,omitempty"`
}

type submitInventoryRequest struct {
	WalletID string    `json:"walletId"`
	NFTs     []nftItem `json:"nfts"`
}

type submitInventoryResponse struct {
	Success            bool                `json:"success"`
	NewLoopsDiscovered int                 `json:"newLoopsDiscovered"`
	ChangedWallets     []identity.WalletID `json:"changedWallets"`
}

// collectionWantItem is a collection want with an optional JSONPath
// predicate (domain/collection.JSONPathPredicate) narrowing which assets
// in the collection actually satisfy it, e.g. `"$.name"` to require a
// non-empty name.
type collectionWantItem struct {
	CollectionID string `json:"collectionId"`
	Predicate    string `json:"predicate,omitempty"`
}

type submitWantsRequest struct {
	WalletID          string                `json:"walletId"`
	WantedNFTs        []string              `json:"wantedNFTs"`
	WantedCollections []string              `json:"wantedCollections,omitempty"`
	CollectionWants   []collectionWantItem  `json:"collectionWants,omitempty"`
}

type submitWantsResponse struct {
	Success            bool `json:"success"`
	NewLoopsDiscovered int  `json:"newLoopsDiscovered"`
	Skipped            int  `json:"skipped"`
}

type discoverTradesRequest struct {
	WalletID string   `json:"walletId"`
	Limit    int      `json:"limit,omitempty"`
	MinScore *float64 `json:"minScore,omitempty"`
}

type discoverTradesResponse struct {
	Trades []cycleView `json:"trades"`
}

type stepView struct {
	From identity.WalletID  `json:"from"`
	To   identity.WalletID  `json:"to"`
	NFTs []identity.AssetID `json:"nfts"`
}

type cycleView struct {
	ID                cycle.CanonicalID `json:"id"`
	Steps             []stepView        `json:"steps"`
	TotalParticipants int               `json:"totalParticipants"`
	Efficiency        float64           `json:"efficiency"`
	QualityScore      float64           `json:"qualityScore"`
}

func toCycleView(c cycle.Cycle) cycleView {
	steps := make([]stepView, len(c.Steps))
	for i, s := range c.Steps {
		steps[i] = stepView{From: s.From, To: s.To, NFTs: s.Assets}
	}
	return cycleView{
		ID:                c.ID,
		Steps:             steps,
		TotalParticipants: c.Len(),
		Efficiency:        c.Score.Efficiency,
		QualityScore:      c.Score.QualityScore,
	}
}

type healthResponse struct {
	Status         string `json:"status"`
	Uptime         string `json:"uptime"`
	GoroutineCount int    `json:"goroutineCount"`
	MemoryRSSBytes uint64 `json:"memoryRssBytes,omitempty"`
}

type statusResponse struct {
	Tenants []tenantUsage `json:"tenants"`
}

type tenantUsage struct {
	TenantID     identity.TenantID `json:"tenantId"`
	CachedCycles int               `json:"cachedCycles"`
}
