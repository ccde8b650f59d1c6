package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// VerificationStore implements ports.VerificationStore using Redis.
// Holds email verification tokens; delivery happens out of band.
type VerificationStore struct {
	client *goredis.Client
	prefix string
}

// NewVerificationStore creates a new Redis-backed verification store.
func NewVerificationStore(client *goredis.Client) *VerificationStore {
	return &VerificationStore{
		client: client,
		prefix: "verify:",
	}
}

// Save stores the verification token with TTL.
func (s *VerificationStore) Save(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+userID.String(), token, ttl).Err(); err != nil {
		return fmt.Errorf("redis verification set: %w", err)
	}
	return nil
}

// Get returns the verification token, "" if absent or expired.
func (s *VerificationStore) Get(ctx context.Context, userID uuid.UUID) (string, error) {
	val, err := s.client.Get(ctx, s.prefix+userID.String()).Result()
	if err != nil {
		if err == goredis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("redis verification get: %w", err)
	}
	return val, nil
}
