// Package cyclecache holds one tenant's discovered cycles, indexed by
// canonical id with secondary indices for participant and witness
// lookups, and self-invalidates as the underlying graph changes
// (spec.md §4.4). Eviction is LRU over a configured entry cap, generalized
// from the teacher's TTL+version in-memory cache
// (infrastructure/cache/cache.go) onto hashicorp/golang-lru/v2 for actual
// bounded-memory LRU behavior instead of a cleanup-ticker sweep.
package cyclecache

import (
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nftbarter/discovery-engine/domain/cycle"
	"github.com/nftbarter/discovery-engine/domain/identity"
)

// Config tunes cache capacity.
type Config struct {
	MaxEntries int
}

func DefaultConfig() Config {
	return Config{MaxEntries: 10000}
}

// Cache is one tenant's cycle cache. The zero value is not usable; use
// New.
type Cache struct {
	mu sync.RWMutex

	maxEntries int
	entries    *lru.Cache[cycle.CanonicalID, *cycle.Cycle]

	byWallet map[identity.WalletID]map[cycle.CanonicalID]struct{}
	byAsset  map[identity.AssetID]map[cycle.CanonicalID]struct{}
}

func New(cfg Config) (*Cache, error) {
	if cfg.MaxEntries <= 0 {
		cfg = DefaultConfig()
	}

	c := &Cache{
		maxEntries: cfg.MaxEntries,
		byWallet:   make(map[identity.WalletID]map[cycle.CanonicalID]struct{}),
		byAsset:    make(map[identity.AssetID]map[cycle.CanonicalID]struct{}),
	}

	entries, err := lru.NewWithEvict(cfg.MaxEntries, func(id cycle.CanonicalID, evicted *cycle.Cycle) {
		c.dropFromIndices(id, evicted)
	})
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

func (c *Cache) dropFromIndices(id cycle.CanonicalID, evicted *cycle.Cycle) {
	if evicted == nil {
		return
	}
	for _, w := range evicted.Wallets() {
		if set, ok := c.byWallet[w]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(c.byWallet, w)
			}
		}
	}
	for _, step := range evicted.Steps {
		for _, a := range step.Assets {
			if set, ok := c.byAsset[a]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(c.byAsset, a)
				}
			}
		}
	}
}

// Upsert inserts or updates a cycle, idempotent on canonical id. If the
// cache is at capacity and holds any Retired entry, that entry is
// evicted first in preference to the LRU's own recency-based choice
// (spec.md §4.4 "Retired entries are evicted first").
func (c *Cache) Upsert(cy cycle.Cycle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries.Get(cy.ID); ok {
		cy.FirstSeen = existing.FirstSeen
		stored := cy
		c.entries.Add(cy.ID, &stored)
		c.indexEntry(&stored)
		return
	}

	c.evictOneRetiredIfFull()

	stored := cy
	c.entries.Add(cy.ID, &stored)
	c.indexEntry(&stored)
}

func (c *Cache) evictOneRetiredIfFull() {
	if c.entries.Len() < c.maxEntries {
		return
	}
	for _, id := range c.entries.Keys() {
		v, ok := c.entries.Peek(id)
		if ok && v.State == cycle.Retired {
			c.entries.Remove(id)
			return
		}
	}
}

func (c *Cache) indexEntry(cy *cycle.Cycle) {
	for _, w := range cy.Wallets() {
		set, ok := c.byWallet[w]
		if !ok {
			set = make(map[cycle.CanonicalID]struct{})
			c.byWallet[w] = set
		}
		set[cy.ID] = struct{}{}
	}
	for _, step := range cy.Steps {
		for _, a := range step.Assets {
			set, ok := c.byAsset[a]
			if !ok {
				set = make(map[cycle.CanonicalID]struct{})
				c.byAsset[a] = set
			}
			set[cy.ID] = struct{}{}
		}
	}
}

// InvalidateAsset retires every cached cycle witnessed by assetID — the
// mutation that touched this asset may have broken the ownership/want
// predicate one of these cycles depends on (spec.md §3's cache
// self-invalidation invariant). Verification of whether the predicate
// still holds happens one layer up, against a fresh graph snapshot;
// this call only marks candidates for re-verification or removal.
func (c *Cache) InvalidateAsset(assetID identity.AssetID) []cycle.CanonicalID {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.byAsset[assetID]
	return c.retireAll(ids)
}

// InvalidateWallet retires every cached cycle whose wallet sequence
// includes walletID.
func (c *Cache) InvalidateWallet(walletID identity.WalletID) []cycle.CanonicalID {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.byWallet[walletID]
	return c.retireAll(ids)
}

func (c *Cache) retireAll(ids map[cycle.CanonicalID]struct{}) []cycle.CanonicalID {
	var retired []cycle.CanonicalID
	for id := range ids {
		cy, ok := c.entries.Get(id)
		if !ok || cy.State == cycle.Retired {
			continue
		}
		updated := *cy
		updated.State = cycle.Retired
		c.entries.Add(id, &updated)
		retired = append(retired, id)
	}
	sort.Slice(retired, func(i, j int) bool { return retired[i] < retired[j] })
	return retired
}

// Remove deletes a cycle outright (used once a retired entry has been
// confirmed to no longer satisfy the Cycle invariants).
func (c *Cache) Remove(id cycle.CanonicalID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(id)
}

// Get returns one cached cycle by canonical id.
func (c *Cache) Get(id cycle.CanonicalID) (cycle.Cycle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cy, ok := c.entries.Get(id)
	if !ok {
		return cycle.Cycle{}, false
	}
	return *cy, true
}

// QueryByWallet returns up to limit Admitted cycles involving wallet,
// scoring at least minScore, ordered by QualityScore desc with
// Efficiency as tiebreak (spec.md §4.4).
func (c *Cache) QueryByWallet(wallet identity.WalletID, limit int, minScore float64) []cycle.Cycle {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := c.byWallet[wallet]
	out := make([]cycle.Cycle, 0, len(ids))
	for id := range ids {
		cy, ok := c.entries.Peek(id)
		if !ok || cy.State != cycle.Admitted {
			continue
		}
		if cy.Score.QualityScore < minScore {
			continue
		}
		out = append(out, *cy)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score.QualityScore != out[j].Score.QualityScore {
			return out[i].Score.QualityScore > out[j].Score.QualityScore
		}
		if out[i].Score.Efficiency != out[j].Score.Efficiency {
			return out[i].Score.Efficiency > out[j].Score.Efficiency
		}
		return out[i].ID < out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// All returns every Admitted cycle currently cached, for the periodic
// snapshot sweep (infrastructure/snapshot) which persists a tenant's
// full cache rather than one wallet's view of it.
func (c *Cache) All() []cycle.Cycle {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]cycle.Cycle, 0, c.entries.Len())
	for _, id := range c.entries.Keys() {
		cy, ok := c.entries.Peek(id)
		if !ok || cy.State != cycle.Admitted {
			continue
		}
		out = append(out, *cy)
	}
	return out
}

// Len returns the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries.Len()
}
