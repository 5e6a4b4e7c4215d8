// Package snapshot implements the optional periodic persistence of
// tenant state to disk (spec.md §6 "Persisted state layout"): one
// directory per tenant holding tenant.json, wallets.json, assets.json,
// wants.json, and cache.json. Every write is whole-file
// (write-to-temp-then-rename) so a crash mid-write never leaves a
// partially-written file in place for a later load to pick up; loads
// additionally reject a directory missing any of the five files rather
// than reconstructing from a partial set. Grounded in spirit on the
// teacher's migration-validation discipline (system/platform/migrations
// validates a schema version before applying it) even though no SQL is
// involved here — the common idea is "never apply/load state you can't
// fully validate."
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nftbarter/discovery-engine/domain/asset"
	"github.com/nftbarter/discovery-engine/domain/cycle"
	"github.com/nftbarter/discovery-engine/domain/graph"
	"github.com/nftbarter/discovery-engine/domain/identity"
)

const (
	tenantFile  = "tenant.json"
	walletsFile = "wallets.json"
	assetsFile  = "assets.json"
	wantsFile   = "wants.json"
	cacheFile   = "cache.json"
)

// WalletRecord is one wallet's ownership set, independent of its wants
// (those are recorded separately in wants.json).
type WalletRecord struct {
	ID    identity.WalletID  `json:"id"`
	Owned []identity.AssetID `json:"owned"`
}

// WantRecord is one (wallet, wanted asset-or-collection) pair.
type WantRecord struct {
	Wallet        identity.WalletID      `json:"wallet"`
	AssetID       *identity.AssetID      `json:"assetId,omitempty"`
	CollectionID  *identity.CollectionID `json:"collectionId,omitempty"`
	PredicateExpr string                 `json:"predicateExpr,omitempty"`
}

// Snapshot is one tenant's full persisted state.
type Snapshot struct {
	Tenant  identity.Tenant
	Wallets []WalletRecord
	Assets  []asset.Asset
	Wants   []WantRecord
	Cache   []cycle.Cycle
}

// Write persists tenant, a graph view, and the tenant's cached cycles to
// dir/<tenant.ID>/, producing the five files in full before any of them
// is considered "the" current snapshot: each file is written to a
// sibling temp path and renamed into place only after a successful
// fsync-free write, so a reader never observes a half-written file
// (rename is atomic within one filesystem).
func Write(dir string, tenant identity.Tenant, view *graph.View, cycles []cycle.Cycle) error {
	tenantDir := filepath.Join(dir, string(tenant.ID))
	if err := os.MkdirAll(tenantDir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	wallets := make([]WalletRecord, 0, len(view.Wallets))
	wants := make([]WantRecord, 0)
	for _, w := range view.Wallets {
		wallets = append(wallets, WalletRecord{ID: w.ID, Owned: w.Owned})
		for _, a := range w.Wants {
			assetID := a
			wants = append(wants, WantRecord{Wallet: w.ID, AssetID: &assetID})
		}
		for _, c := range w.CollectionWants {
			collectionID := c.CollectionID
			wants = append(wants, WantRecord{Wallet: w.ID, CollectionID: &collectionID, PredicateExpr: c.PredicateExpr})
		}
	}

	assets := make([]asset.Asset, 0, len(view.Assets))
	for _, a := range view.Assets {
		assets = append(assets, a)
	}

	if err := writeJSONAtomic(filepath.Join(tenantDir, tenantFile), tenant); err != nil {
		return err
	}
	if err := writeJSONAtomic(filepath.Join(tenantDir, walletsFile), wallets); err != nil {
		return err
	}
	if err := writeJSONAtomic(filepath.Join(tenantDir, assetsFile), assets); err != nil {
		return err
	}
	if err := writeJSONAtomic(filepath.Join(tenantDir, wantsFile), wants); err != nil {
		return err
	}
	if err := writeJSONAtomic(filepath.Join(tenantDir, cacheFile), cycles); err != nil {
		return err
	}

	return nil
}

func writeJSONAtomic(path string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Load reads a tenant snapshot back from dir/<tenantID>/. Any missing or
// unparseable file fails the whole load — a partial snapshot is treated
// as no snapshot at all rather than silently reconstructing incomplete
// state (spec.md §6 "partial states are ignored at load").
func Load(dir string, tenantID identity.TenantID) (*Snapshot, error) {
	tenantDir := filepath.Join(dir, string(tenantID))

	var snap Snapshot
	if err := readJSON(filepath.Join(tenantDir, tenantFile), &snap.Tenant); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(tenantDir, walletsFile), &snap.Wallets); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(tenantDir, assetsFile), &snap.Assets); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(tenantDir, wantsFile), &snap.Wants); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(tenantDir, cacheFile), &snap.Cache); err != nil {
		return nil, err
	}

	return &snap, nil
}

func readJSON(path string, v interface{}) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
