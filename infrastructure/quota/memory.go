package quota

import (
	"context"
	"sync"
	"time"

	"github.com/nftbarter/discovery-engine/domain/identity"
)

type memoryKey struct {
	tenant    identity.TenantID
	dimension Dimension
}

// MemoryLimiter is an in-process sliding-window limiter, used when no
// Redis endpoint is configured. Each key holds its recent event
// timestamps; Allow prunes everything outside the window before
// deciding.
type MemoryLimiter struct {
	mu   sync.Mutex
	hits map[memoryKey][]time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{hits: make(map[memoryKey][]time.Time)}
}

func (m *MemoryLimiter) Allow(ctx context.Context, tenant identity.TenantID, dimension Dimension, limit int) (bool, time.Duration, error) {
	now := time.Now()
	window := dimension.window()
	cutoff := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey{tenant: tenant, dimension: dimension}
	events := m.hits[key]

	pruned := events[:0]
	for _, t := range events {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}

	if len(pruned) >= limit {
		retryAfter := pruned[0].Add(window).Sub(now)
		m.hits[key] = pruned
		return false, retryAfter, nil
	}

	pruned = append(pruned, now)
	m.hits[key] = pruned
	return true, 0, nil
}
