package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// MFASetupStore implements ports.MFASetupStore using Redis.
// The enrollment secret waits here until verified; expiry forces the user
// to restart enrollment rather than leaving half-enrolled secrets around.
type MFASetupStore struct {
	client *goredis.Client
	prefix string
}

// NewMFASetupStore creates a new Redis-backed MFA setup store.
func NewMFASetupStore(client *goredis.Client) *MFASetupStore {
	return &MFASetupStore{
		client: client,
		prefix: "mfa_setup:",
	}
}

// Save stores the pending enrollment secret with TTL.
func (s *MFASetupStore) Save(ctx context.Context, userID uuid.UUID, secret string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+userID.String(), secret, ttl).Err(); err != nil {
		return fmt.Errorf("redis mfa setup set: %w", err)
	}
	return nil
}

// Get returns the pending secret, "" if absent or expired.
func (s *MFASetupStore) Get(ctx context.Context, userID uuid.UUID) (string, error) {
	val, err := s.client.Get(ctx, s.prefix+userID.String()).Result()
	if err != nil {
		if err == goredis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("redis mfa setup get: %w", err)
	}
	return val, nil
}

// Delete removes the pending secret once verified.
func (s *MFASetupStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.client.Del(ctx, s.prefix+userID.String()).Err(); err != nil {
		return fmt.Errorf("redis mfa setup del: %w", err)
	}
	return nil
}
