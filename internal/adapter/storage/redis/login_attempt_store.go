package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// LoginAttemptStore implements ports.LoginAttemptStore using Redis.
// The counter is keyed by email so all instances see the same attempt
// count; the durable lockout lives on the user row.
type LoginAttemptStore struct {
	client *goredis.Client
	prefix string
}

// NewLoginAttemptStore creates a new Redis-backed login attempt counter.
func NewLoginAttemptStore(client *goredis.Client) *LoginAttemptStore {
	return &LoginAttemptStore{
		client: client,
		prefix: "login_attempts:",
	}
}

// Increment bumps the counter and refreshes the rolling window.
func (s *LoginAttemptStore) Increment(ctx context.Context, email string, window time.Duration) (int64, error) {
	key := s.prefix + email

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis login attempt incr: %w", err)
	}

	// Refresh the window on every failure so the counter outlives bursts.
	if err := s.client.Expire(ctx, key, window).Err(); err != nil {
		return 0, fmt.Errorf("redis login attempt expire: %w", err)
	}
	return count, nil
}

// Count returns the current attempt count, 0 if absent.
func (s *LoginAttemptStore) Count(ctx context.Context, email string) (int64, error) {
	count, err := s.client.Get(ctx, s.prefix+email).Int64()
	if err != nil {
		if err == goredis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("redis login attempt get: %w", err)
	}
	return count, nil
}

// Clear removes the counter after a successful login.
func (s *LoginAttemptStore) Clear(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, s.prefix+email).Err(); err != nil {
		return fmt.Errorf("redis login attempt del: %w", err)
	}
	return nil
}
