// Package quota implements spec.md §4.7's three-dimension sliding-window
// rate limiting: discovery requests/min, asset submissions/day, webhook
// calls/min, evaluated per tenant. The primary implementation is
// Redis-backed (sorted-set sliding window, grounded on the teacher's
// already-declared but previously unused go-redis/v8 dependency); an
// in-memory implementation satisfies the same Limiter interface as a
// fallback when no Redis endpoint is configured, matching the shape of
// infrastructure/ratelimit.RateLimiter's process-local token bucket but
// generalized to a true sliding window with a queryable retry-after.
package quota

import (
	"context"
	"time"

	"github.com/nftbarter/discovery-engine/domain/identity"
)

// Dimension identifies one of the three rate-limited activities.
type Dimension string

const (
	DiscoveryRequests Dimension = "discovery_requests"
	AssetSubmissions  Dimension = "asset_submissions"
	WebhookCalls      Dimension = "webhook_calls"
)

func (d Dimension) window() time.Duration {
	if d == AssetSubmissions {
		return 24 * time.Hour
	}
	return time.Minute
}

// Limiter evaluates one sliding-window check and records the attempt in
// the same call. retryAfter is only meaningful when allowed is false.
type Limiter interface {
	Allow(ctx context.Context, tenant identity.TenantID, dimension Dimension, limit int) (allowed bool, retryAfter time.Duration, err error)
}

// limitFor reads the configured cap for dimension out of a tenant's
// RateLimitConfig (spec.md §3 Tenant "rate-limit config").
func limitFor(cfg identity.RateLimitConfig, dimension Dimension) int {
	switch dimension {
	case DiscoveryRequests:
		return cfg.DiscoveryPerMinute
	case AssetSubmissions:
		return cfg.AssetSubmissionsPerDay
	case WebhookCalls:
		return cfg.WebhookCallsPerMinute
	default:
		return 0
	}
}

// Check evaluates a tenant's configured limit for dimension against
// limiter, returning nil when under quota or a RateLimited ServiceError
// (spec.md §6 "RateLimited -> 429 with retryAfter") otherwise.
func Check(ctx context.Context, limiter Limiter, tenant identity.Tenant, dimension Dimension) error {
	limit := limitFor(tenant.Config.RateLimits, dimension)
	if limit <= 0 {
		return nil
	}

	allowed, retryAfter, err := limiter.Allow(ctx, tenant.ID, dimension, limit)
	if err != nil {
		return err
	}
	if !allowed {
		seconds := int(retryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		return errRateLimited(seconds)
	}
	return nil
}
