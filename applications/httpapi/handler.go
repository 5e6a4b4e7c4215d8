package httpapi

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/nftbarter/discovery-engine/domain/graph"
	"github.com/nftbarter/discovery-engine/domain/identity"
	"github.com/nftbarter/discovery-engine/domain/registry"
	"github.com/nftbarter/discovery-engine/engine/dispatcher"
	svcerrors "github.com/nftbarter/discovery-engine/infrastructure/errors"
	"github.com/nftbarter/discovery-engine/infrastructure/logging"
	"github.com/nftbarter/discovery-engine/infrastructure/metrics"
	"github.com/nftbarter/discovery-engine/infrastructure/quota"
)

// Deps bundles everything a Handler needs to serve requests. Built once
// at startup by cmd/discoveryserver and passed to NewRouter.
type Deps struct {
	Registry    *registry.Registry
	Dispatcher  *dispatcher.Dispatcher
	Quota       quota.Limiter
	Log         *logging.Logger
	Metrics     *metrics.Metrics
	AdminAPIKey string
	StartedAt   time.Time
	Feed        *CycleFeed

	// DefaultTenantConfig seeds a newly created tenant's algorithm
	// settings when the caller doesn't supply its own (configured
	// server-wide via pkg/config.AlgorithmConfig).
	DefaultTenantConfig identity.TenantConfig
}

// Handler holds the HTTP entry points for the discovery engine, each a
// thin adapter translating spec.md §6's JSON contracts onto the domain
// layer (registry, dispatcher, quota).
type Handler struct {
	deps Deps
}

func NewHandler(deps Deps) *Handler {
	if deps.StartedAt.IsZero() {
		deps.StartedAt = time.Now()
	}
	if deps.DefaultTenantConfig == (identity.TenantConfig{}) {
		deps.DefaultTenantConfig = identity.DefaultTenantConfig()
	}
	return &Handler{deps: deps}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, requestIDFromContext(r.Context()), err)
}

// handleCreateTenant implements POST /admin/tenants: body
// {name, contactEmail, settings?}, returns {tenant, apiKey} with the
// plaintext key returned exactly once (spec.md §6).
func (h *Handler) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Name == "" {
		h.fail(w, r, svcerrors.MissingParameter("name"))
		return
	}

	cfg := h.deps.DefaultTenantConfig
	if req.Settings != nil {
		cfg = *req.Settings
	}

	key, err := identity.GenerateAPIKey()
	if err != nil {
		h.fail(w, r, svcerrors.Internal(err))
		return
	}
	// The webhook signing secret is independent of the API key: rotating
	// one must never invalidate the other.
	webhookSecret, err := identity.GenerateAPIKey()
	if err != nil {
		h.fail(w, r, svcerrors.Internal(err))
		return
	}

	now := time.Now().UTC()
	tenant := identity.Tenant{
		ID:            identity.TenantID(uuid.New().String()),
		Name:          req.Name,
		ContactEmail:  req.ContactEmail,
		Config:        cfg,
		APIKeyHash:    key.Hash,
		APIKeySalt:    key.Salt,
		WebhookURL:    req.WebhookURL,
		WebhookSecret: webhookSecret.Plaintext,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := h.deps.Registry.Create(tenant); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createTenantResponse{Tenant: tenant, APIKey: key.Plaintext})
}

// handleSubmitInventory implements POST /inventory/submit.
func (h *Handler) handleSubmitInventory(w http.ResponseWriter, r *http.Request) {
	handle, ok := tenantFromContext(r.Context())
	if !ok {
		h.fail(w, r, svcerrors.Unauthorized("missing tenant context"))
		return
	}
	if err := h.checkQuota(r, handle.Tenant, quota.AssetSubmissions); err != nil {
		h.fail(w, r, err)
		return
	}

	var req submitInventoryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.WalletID == "" {
		h.fail(w, r, svcerrors.MissingParameter("walletId"))
		return
	}

	groups := make(map[identity.WalletID][]graph.InventoryItem)
	for _, nft := range req.NFTs {
		if nft.ID == "" {
			h.fail(w, r, svcerrors.InvalidInput("nfts[].id must not be empty"))
			return
		}
		owner := identity.WalletID(req.WalletID)
		if nft.Ownership != nil && nft.Ownership.OwnerID != "" {
			owner = nft.Ownership.OwnerID
		}
		groups[owner] = append(groups[owner], graph.InventoryItem{
			ID:        identity.AssetID(nft.ID),
			Metadata:  nft.Metadata,
			Valuation: nft.Valuation,
		})
	}
	if len(groups) == 0 {
		groups[identity.WalletID(req.WalletID)] = nil
	}

	resp := submitInventoryResponse{Success: true}
	for owner, items := range groups {
		newLoops, changed, err := h.deps.Dispatcher.SubmitInventory(r.Context(), handle.Tenant.ID, owner, items)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		resp.NewLoopsDiscovered += newLoops
		resp.ChangedWallets = append(resp.ChangedWallets, changed...)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleSubmitWants implements POST /wants/submit.
func (h *Handler) handleSubmitWants(w http.ResponseWriter, r *http.Request) {
	handle, ok := tenantFromContext(r.Context())
	if !ok {
		h.fail(w, r, svcerrors.Unauthorized("missing tenant context"))
		return
	}
	if err := h.checkQuota(r, handle.Tenant, quota.AssetSubmissions); err != nil {
		h.fail(w, r, err)
		return
	}

	var req submitWantsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.WalletID == "" {
		h.fail(w, r, svcerrors.MissingParameter("walletId"))
		return
	}

	items := make([]graph.WantItem, 0, len(req.WantedNFTs)+len(req.WantedCollections)+len(req.CollectionWants))
	for _, raw := range req.WantedNFTs {
		assetID := identity.AssetID(raw)
		items = append(items, graph.WantItem{AssetID: &assetID})
	}
	for _, raw := range req.WantedCollections {
		collectionID := identity.CollectionID(raw)
		items = append(items, graph.WantItem{CollectionID: &collectionID})
	}
	for _, cw := range req.CollectionWants {
		collectionID := identity.CollectionID(cw.CollectionID)
		items = append(items, graph.WantItem{CollectionID: &collectionID, PredicateExpr: cw.Predicate})
	}

	newLoops, skipped, err := h.deps.Dispatcher.SubmitWants(r.Context(), handle.Tenant.ID, identity.WalletID(req.WalletID), items)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, submitWantsResponse{Success: true, NewLoopsDiscovered: newLoops, Skipped: skipped})
}

// handleDiscoverTrades implements POST /discovery/trades.
func (h *Handler) handleDiscoverTrades(w http.ResponseWriter, r *http.Request) {
	handle, ok := tenantFromContext(r.Context())
	if !ok {
		h.fail(w, r, svcerrors.Unauthorized("missing tenant context"))
		return
	}
	if err := h.checkQuota(r, handle.Tenant, quota.DiscoveryRequests); err != nil {
		h.fail(w, r, err)
		return
	}

	var req discoverTradesRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.WalletID == "" {
		h.fail(w, r, svcerrors.MissingParameter("walletId"))
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = handle.Tenant.Config.MaxCyclesPerRequest
	}
	minScore := 0.0
	if req.MinScore != nil {
		minScore = *req.MinScore
	}

	cycles := handle.Cache.QueryByWallet(identity.WalletID(req.WalletID), limit, minScore)
	trades := make([]cycleView, len(cycles))
	for i, c := range cycles {
		trades[i] = toCycleView(c)
	}

	writeJSON(w, http.StatusOK, discoverTradesResponse{Trades: trades})
}

// handleHealth implements GET /health: liveness plus process resource
// figures, grounded on infrastructure/middleware/health.go's liveness
// handler shape but reporting through shirou/gopsutil rather than
// raw runtime stats alone.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:         "healthy",
		Uptime:         time.Since(h.deps.StartedAt).String(),
		GoroutineCount: runtime.NumGoroutine(),
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
			resp.MemoryRSSBytes = mem.RSS
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleStatus implements GET /status: per-tenant cache usage summary,
// admin-only since it enumerates every tenant id in the process.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ids := h.deps.Registry.List()
	resp := statusResponse{Tenants: make([]tenantUsage, 0, len(ids))}
	for _, id := range ids {
		handle, ok := h.deps.Registry.Get(id)
		if !ok {
			continue
		}
		resp.Tenants = append(resp.Tenants, tenantUsage{TenantID: id, CachedCycles: handle.Cache.Len()})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) checkQuota(r *http.Request, tenant identity.Tenant, dimension quota.Dimension) error {
	if h.deps.Quota == nil {
		return nil
	}
	return quota.Check(r.Context(), h.deps.Quota, tenant, dimension)
}
