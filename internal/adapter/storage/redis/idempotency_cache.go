package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyCache implements ports.IdempotencyCache using Redis.
// It maps an idempotency key to the completed payment ID. Losing these
// keys is safe: the unique constraint on payments backs the cache up.
type IdempotencyCache struct {
	client *goredis.Client
	prefix string
}

// NewIdempotencyCache creates a new Redis-backed idempotency cache.
func NewIdempotencyCache(client *goredis.Client) *IdempotencyCache {
	return &IdempotencyCache{
		client: client,
		prefix: "idempotency:",
	}
}

// Get retrieves the payment ID stored for an idempotency key.
// Returns "" with nil error if the key does not exist.
func (c *IdempotencyCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if err == goredis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("redis idempotency get: %w", err)
	}
	return val, nil
}

// Set stores the payment ID for an idempotency key with TTL.
func (c *IdempotencyCache) Set(ctx context.Context, key string, paymentID string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, paymentID, ttl).Err(); err != nil {
		return fmt.Errorf("redis idempotency set: %w", err)
	}
	return nil
}
