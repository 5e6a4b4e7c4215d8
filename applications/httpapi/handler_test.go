package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nftbarter/discovery-engine/domain/identity"
	"github.com/nftbarter/discovery-engine/domain/registry"
	"github.com/nftbarter/discovery-engine/engine/cyclecache"
	"github.com/nftbarter/discovery-engine/engine/dispatcher"
	"github.com/nftbarter/discovery-engine/engine/pricefeed"
	"github.com/nftbarter/discovery-engine/engine/scorer"
	"github.com/nftbarter/discovery-engine/infrastructure/quota"
)

const testAdminKey = "admin-secret-for-tests"

type testServer struct {
	router http.Handler
	reg    *registry.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	reg := registry.New(func() (*cyclecache.Cache, error) {
		return cyclecache.New(cyclecache.DefaultConfig())
	})
	disp := dispatcher.New(dispatcher.DefaultConfig(), reg, pricefeed.NeutralSource{}, scorer.NeutralHistory{}, nil, nil, nil)
	h := NewHandler(Deps{
		Registry:    reg,
		Dispatcher:  disp,
		Quota:       quota.NewMemoryLimiter(),
		AdminAPIKey: testAdminKey,
	})
	return &testServer{router: NewRouter(h), reg: reg}
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createTenant(t *testing.T, name string) (identity.TenantID, string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/admin/tenants", testAdminKey, createTenantRequest{Name: name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create tenant: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp createTenantResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create tenant response: %v", err)
	}
	return resp.Tenant.ID, resp.APIKey
}

func TestHandleCreateTenant_RejectsWithoutAdminKey(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/admin/tenants", "wrong-key", createTenantRequest{Name: "acme"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleCreateTenant_RejectsMissingName(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/admin/tenants", testAdminKey, createTenantRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleCreateTenant_IssuesIndependentAPIKeyAndWebhookSecret(t *testing.T) {
	s := newTestServer(t)
	id, apiKey := s.createTenant(t, "acme")

	handle, ok := s.reg.Get(id)
	if !ok {
		t.Fatalf("tenant not registered")
	}
	if apiKey == handle.Tenant.WebhookSecret {
		t.Fatalf("api key and webhook secret must be independent credentials")
	}
	if !identity.VerifyAPIKey(&handle.Tenant, apiKey) {
		t.Fatalf("issued api key does not verify against stored hash")
	}
}

func TestSubmitInventoryAndWants_DiscoversTwoPartyCycle(t *testing.T) {
	s := newTestServer(t)
	_, apiKey := s.createTenant(t, "acme")

	rec := s.do(t, http.MethodPost, "/api/v1/inventory/submit", apiKey, submitInventoryRequest{
		WalletID: "A",
		NFTs:     []nftItem{{ID: "nft-1"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit inventory A: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, "/api/v1/inventory/submit", apiKey, submitInventoryRequest{
		WalletID: "B",
		NFTs:     []nftItem{{ID: "nft-2"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit inventory B: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/v1/wants/submit", apiKey, submitWantsRequest{
		WalletID:   "A",
		WantedNFTs: []string{"nft-2"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit wants A: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/v1/wants/submit", apiKey, submitWantsRequest{
		WalletID:   "B",
		WantedNFTs: []string{"nft-1"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit wants B: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var wantsResp submitWantsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &wantsResp); err != nil {
		t.Fatalf("decode wants response: %v", err)
	}
	if wantsResp.NewLoopsDiscovered != 1 {
		t.Fatalf("expected 1 newly discovered loop, got %d", wantsResp.NewLoopsDiscovered)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/discovery/trades", apiKey, discoverTradesRequest{WalletID: "A"})
	if rec.Code != http.StatusOK {
		t.Fatalf("discover trades: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var tradesResp discoverTradesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tradesResp); err != nil {
		t.Fatalf("decode trades response: %v", err)
	}
	if len(tradesResp.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(tradesResp.Trades))
	}
	if tradesResp.Trades[0].TotalParticipants != 2 {
		t.Fatalf("expected a 2-party cycle, got %d participants", tradesResp.Trades[0].TotalParticipants)
	}
	if tradesResp.Trades[0].Efficiency < 0.9 {
		t.Fatalf("expected efficiency >= 0.9 for an unvalued 2-party cycle, got %v", tradesResp.Trades[0].Efficiency)
	}
}

func TestSubmitInventory_OwnershipOverrideRoutesToDifferentOwner(t *testing.T) {
	s := newTestServer(t)
	_, apiKey := s.createTenant(t, "acme")

	rec := s.do(t, http.MethodPost, "/api/v1/inventory/submit", apiKey, submitInventoryRequest{
		WalletID: "A",
		NFTs: []nftItem{
			{ID: "nft-1"},
			{ID: "nft-2", Ownership: &nftOwnership{OwnerID: "C"}},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	handle, _ := s.reg.Get(func() identity.TenantID {
		ids := s.reg.List()
		return ids[0]
	}())
	view := handle.Graph.Snapshot()
	found := false
	for _, w := range view.WalletIDs() {
		if w == identity.WalletID("C") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected wallet C to hold the reassigned asset")
	}
}

func TestHandleDiscoverTrades_RequiresTenantAuth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/discovery/trades", "not-a-real-key", discoverTradesRequest{WalletID: "A"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleSubmitInventory_RejectsCrossTenantKeyReuse(t *testing.T) {
	s := newTestServer(t)
	_, keyOne := s.createTenant(t, "acme")
	_, keyTwo := s.createTenant(t, "beta")

	if keyOne == keyTwo {
		t.Fatalf("two tenants must never share an api key")
	}

	rec := s.do(t, http.MethodPost, "/api/v1/inventory/submit", keyOne, submitInventoryRequest{WalletID: "A", NFTs: []nftItem{{ID: "nft-1"}}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// keyTwo's tenant has its own isolated graph; discovery for the same
	// wallet id under a different tenant must see nothing acme submitted.
	rec = s.do(t, http.MethodPost, "/api/v1/discovery/trades", keyTwo, discoverTradesRequest{WalletID: "A"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp discoverTradesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Trades) != 0 {
		t.Fatalf("expected tenant isolation, got %d trades leaked across tenants", len(resp.Trades))
	}
}

func TestHandleDiscoverTrades_RateLimitReturns429WithRetryAfter(t *testing.T) {
	s := newTestServer(t)
	settings := identity.DefaultTenantConfig()
	settings.RateLimits.DiscoveryPerMinute = 1
	rec := s.do(t, http.MethodPost, "/api/v1/admin/tenants", testAdminKey, createTenantRequest{Name: "acme", Settings: &settings})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create tenant: expected 201, got %d", rec.Code)
	}
	var created createTenantResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/discovery/trades", created.APIKey, discoverTradesRequest{WalletID: "A"})
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/discovery/trades", created.APIKey, discoverTradesRequest{WalletID: "A"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on 429 response")
	}
}

func TestHandleHealth_UnauthenticatedAndHealthy(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" {
		t.Fatalf("expected healthy status, got %q", resp.Status)
	}
}

func TestHandleStatus_RequiresAdminKey(t *testing.T) {
	s := newTestServer(t)
	_, apiKey := s.createTenant(t, "acme")

	rec := s.do(t, http.MethodGet, "/api/v1/status", apiKey, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("tenant key must not authorize /status, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/status", testAdminKey, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/tenants", bytes.NewReader([]byte(`{"name":"acme","bogusField":true}`)))
	req.Header.Set("Authorization", "Bearer "+testAdminKey)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d: %s", rec.Code, rec.Body.String())
	}
}
