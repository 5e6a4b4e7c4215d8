package registry

import (
	"errors"
	"testing"

	"github.com/nftbarter/discovery-engine/domain/identity"
	"github.com/nftbarter/discovery-engine/engine/cyclecache"
	svcerrors "github.com/nftbarter/discovery-engine/infrastructure/errors"
)

func newTestCache() (*cyclecache.Cache, error) {
	return cyclecache.New(cyclecache.DefaultConfig())
}

func TestCreate_RegistersTenant(t *testing.T) {
	r := New(newTestCache)

	tenant := identity.Tenant{ID: "t1", Config: identity.DefaultTenantConfig()}
	handle, err := r.Create(tenant)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if handle.Graph == nil || handle.Cache == nil {
		t.Fatal("expected graph and cache to be populated")
	}

	got, ok := r.Get("t1")
	if !ok || got != handle {
		t.Fatal("expected Get to return the same handle just created")
	}
}

func TestCreate_RejectsDuplicateTenant(t *testing.T) {
	r := New(newTestCache)
	tenant := identity.Tenant{ID: "t1", Config: identity.DefaultTenantConfig()}

	if _, err := r.Create(tenant); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := r.Create(tenant)
	var svcErr *svcerrors.ServiceError
	if !errors.As(err, &svcErr) || svcErr.Code != svcerrors.CodeAlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestUpdateConfig_UnknownTenantReturnsNotFound(t *testing.T) {
	r := New(newTestCache)

	err := r.UpdateConfig("missing", identity.DefaultTenantConfig())
	var svcErr *svcerrors.ServiceError
	if !errors.As(err, &svcErr) || svcErr.Code != svcerrors.CodeNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestUpdateConfig_AppliesNewConfigWithoutReplacingHandles(t *testing.T) {
	r := New(newTestCache)
	tenant := identity.Tenant{ID: "t1", Config: identity.DefaultTenantConfig()}
	original, err := r.Create(tenant)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newCfg := identity.DefaultTenantConfig()
	newCfg.MaxCycleLength = 4
	if err := r.UpdateConfig("t1", newCfg); err != nil {
		t.Fatalf("update config: %v", err)
	}

	updated, _ := r.Get("t1")
	if updated.Tenant.Config.MaxCycleLength != 4 {
		t.Errorf("expected updated MaxCycleLength 4, got %d", updated.Tenant.Config.MaxCycleLength)
	}
	if updated.Graph != original.Graph || updated.Cache != original.Cache {
		t.Error("expected graph and cache instances to be preserved across config update")
	}
}

func TestDelete_RemovesTenant(t *testing.T) {
	r := New(newTestCache)
	tenant := identity.Tenant{ID: "t1", Config: identity.DefaultTenantConfig()}
	if _, err := r.Create(tenant); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := r.Delete("t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := r.Get("t1"); ok {
		t.Error("expected tenant to be gone after delete")
	}
}

func TestDelete_UnknownTenantReturnsNotFound(t *testing.T) {
	r := New(newTestCache)
	err := r.Delete("missing")
	var svcErr *svcerrors.ServiceError
	if !errors.As(err, &svcErr) || svcErr.Code != svcerrors.CodeNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestList_ReturnsAllRegisteredTenants(t *testing.T) {
	r := New(newTestCache)
	r.Create(identity.Tenant{ID: "t1", Config: identity.DefaultTenantConfig()})
	r.Create(identity.Tenant{ID: "t2", Config: identity.DefaultTenantConfig()})

	ids := r.List()
	if len(ids) != 2 {
		t.Fatalf("expected 2 tenants, got %d", len(ids))
	}
}

// TestGet_SnapshotIsStableAcrossConcurrentWrites exercises the
// copy-on-write discipline: a snapshot obtained before a write must not
// observe tenants registered afterward.
func TestGet_SnapshotIsStableAcrossConcurrentWrites(t *testing.T) {
	r := New(newTestCache)
	r.Create(identity.Tenant{ID: "t1", Config: identity.DefaultTenantConfig()})

	before := r.snapshot()
	r.Create(identity.Tenant{ID: "t2", Config: identity.DefaultTenantConfig()})

	if _, ok := before["t2"]; ok {
		t.Error("expected pre-write snapshot to be unaffected by later Create")
	}
	if _, ok := r.Get("t2"); !ok {
		t.Error("expected new snapshot to see t2")
	}
}
