package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nftbarter/discovery-engine/domain/identity"
)

// RedisLimiter implements the sliding window over a Redis sorted set per
// (tenant, dimension): members are unique per-event tokens, scores are
// event timestamps in nanoseconds. Each Allow call prunes everything
// older than the window, records the new event and reads the resulting
// cardinality in one MULTI transaction, then withdraws the event again
// when that cardinality exceeds limit, so concurrent callers are never
// admitted beyond the limit the way a separate check-then-record call
// pair would allow.
type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (r *RedisLimiter) Allow(ctx context.Context, tenant identity.TenantID, dimension Dimension, limit int) (bool, time.Duration, error) {
	now := time.Now()
	window := dimension.window()
	cutoff := now.Add(-window)
	key := fmt.Sprintf("quota:%s:%s", tenant, dimension)

	member := fmt.Sprintf("%d", now.UnixNano())
	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", cutoff.UnixNano()))
	pipe.ZAdd(ctx, key, &redis.Z{Score: float64(now.UnixNano()), Member: member})
	card := pipe.ZCard(ctx, key)
	oldest := pipe.ZRangeWithScores(ctx, key, 0, 0)
	pipe.Expire(ctx, key, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	count, err := card.Result()
	if err != nil {
		return false, 0, err
	}

	if int(count) > limit {
		r.client.ZRem(ctx, key, member)
		retryAfter := window
		if scores, err := oldest.Result(); err == nil && len(scores) > 0 {
			oldestAt := time.Unix(0, int64(scores[0].Score))
			retryAfter = oldestAt.Add(window).Sub(now)
		}
		return false, retryAfter, nil
	}

	return true, 0, nil
}
