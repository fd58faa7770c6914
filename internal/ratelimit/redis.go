package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// allowScript evicts, counts and conditionally records in one server-side
// step, so two racing requests for the same key cannot both pass a
// last-slot check. Returns 1 when the attempt was admitted.
var allowScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, ARGV[1])
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[2]) then
	return 0
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// Redis is a sliding-window limiter backed by a Redis sorted set per key,
// so limits survive restarts and are shared across server replicas. Members
// are scored by their nanosecond timestamp; eviction trims everything older
// than the window before counting.
type Redis struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedis creates a Redis-backed limiter. The prefix namespaces keys so
// independent limiters (per-key, per-IP) can share one Redis database.
func NewRedis(client *redis.Client, prefix string, limit int, window time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (r *Redis) redisKey(key string) string {
	return fmt.Sprintf("ratelimit:%s:%s", r.prefix, key)
}

// Allow implements Limiter. Errors from Redis are returned to the caller;
// the validation handler treats them as "allow" so a Redis outage degrades
// to unlimited rather than rejecting legitimate clients.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	now := r.now()
	cutoff := now.Add(-r.window).UnixNano()

	// Members carry a random suffix so same-instant attempts each count.
	admitted, err := allowScript.Run(ctx, r.client,
		[]string{r.redisKey(key)},
		cutoff,
		r.limit,
		now.UnixNano(),
		fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()),
		r.window.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return admitted == 1, nil
}
