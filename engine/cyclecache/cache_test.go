package cyclecache

import (
	"testing"
	"time"

	"github.com/nftbarter/discovery-engine/domain/cycle"
	"github.com/nftbarter/discovery-engine/domain/identity"
)

func admittedCycle(id cycle.CanonicalID, wallets []identity.WalletID, asset identity.AssetID, quality float64) cycle.Cycle {
	steps := make([]cycle.Step, len(wallets))
	for i, w := range wallets {
		steps[i] = cycle.Step{From: w, To: wallets[(i+1)%len(wallets)], Assets: []identity.AssetID{asset}}
	}
	return cycle.Cycle{
		ID:        id,
		Tenant:    "t1",
		Steps:     steps,
		State:     cycle.Admitted,
		Score:     cycle.Score{QualityScore: quality},
		FirstSeen: time.Now(),
	}
}

func TestUpsert_IsIdempotent(t *testing.T) {
	c, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	cy := admittedCycle("c1", []identity.WalletID{"A", "B"}, "X", 0.8)
	c.Upsert(cy)
	c.Upsert(cy)

	if c.Len() != 1 {
		t.Fatalf("expected 1 entry after repeated upsert, got %d", c.Len())
	}
}

func TestQueryByWallet_OrdersByQualityThenEfficiency(t *testing.T) {
	c, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	low := admittedCycle("c-low", []identity.WalletID{"A", "B"}, "X", 0.4)
	high := admittedCycle("c-high", []identity.WalletID{"A", "C"}, "Y", 0.9)
	c.Upsert(low)
	c.Upsert(high)

	results := c.QueryByWallet("A", 10, 0)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "c-high" {
		t.Errorf("expected c-high first, got %s", results[0].ID)
	}
}

func TestQueryByWallet_FiltersMinScoreAndState(t *testing.T) {
	c, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	cy := admittedCycle("c1", []identity.WalletID{"A", "B"}, "X", 0.3)
	c.Upsert(cy)

	if got := c.QueryByWallet("A", 10, 0.5); len(got) != 0 {
		t.Errorf("expected 0 results below minScore, got %d", len(got))
	}

	candidate := admittedCycle("c2", []identity.WalletID{"A", "C"}, "Y", 0.9)
	candidate.State = cycle.Candidate
	c.Upsert(candidate)

	results := c.QueryByWallet("A", 10, 0)
	for _, r := range results {
		if r.ID == "c2" {
			t.Error("expected non-Admitted cycle to be excluded from QueryByWallet")
		}
	}
}

func TestInvalidateAsset_RetiresMatchingEntries(t *testing.T) {
	c, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	cy := admittedCycle("c1", []identity.WalletID{"A", "B"}, "X", 0.8)
	c.Upsert(cy)

	retired := c.InvalidateAsset("X")
	if len(retired) != 1 {
		t.Fatalf("expected 1 retired cycle, got %d", len(retired))
	}

	got, ok := c.Get("c1")
	if !ok || got.State != cycle.Retired {
		t.Fatalf("expected cycle c1 to be retired, got state %v", got.State)
	}
}

func TestInvalidateWallet_RetiresMatchingEntries(t *testing.T) {
	c, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	c.Upsert(admittedCycle("c1", []identity.WalletID{"A", "B"}, "X", 0.8))

	retired := c.InvalidateWallet("B")
	if len(retired) != 1 {
		t.Fatalf("expected 1 retired cycle, got %d", len(retired))
	}
}

func TestEviction_PrefersRetiredEntries(t *testing.T) {
	c, err := New(Config{MaxEntries: 2})
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	c.Upsert(admittedCycle("c1", []identity.WalletID{"A", "B"}, "X", 0.5))
	c.Upsert(admittedCycle("c2", []identity.WalletID{"C", "D"}, "Y", 0.5))
	c.InvalidateAsset("X") // retires c1

	c.Upsert(admittedCycle("c3", []identity.WalletID{"E", "F"}, "Z", 0.5))

	if c.Len() != 2 {
		t.Fatalf("expected cache to stay at cap 2, got %d", c.Len())
	}
	if _, ok := c.Get("c1"); ok {
		t.Error("expected retired entry c1 to be evicted first")
	}
	if _, ok := c.Get("c3"); !ok {
		t.Error("expected newly inserted c3 to be present")
	}
}

func TestRemove_DeletesEntry(t *testing.T) {
	c, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	c.Upsert(admittedCycle("c1", []identity.WalletID{"A", "B"}, "X", 0.5))
	c.Remove("c1")

	if _, ok := c.Get("c1"); ok {
		t.Error("expected entry to be removed")
	}
	if len(c.byWallet["A"]) != 0 {
		t.Error("expected wallet index to be cleared after Remove via eviction callback")
	}
}
