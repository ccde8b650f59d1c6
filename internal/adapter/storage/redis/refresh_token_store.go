package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// RefreshTokenStore implements ports.RefreshTokenStore using Redis.
// One key per (user, device) holds the Argon2 fingerprint of the only
// refresh token the pair may present. Overwriting the key is rotation;
// deleting it is logout.
type RefreshTokenStore struct {
	client *goredis.Client
	prefix string
}

// NewRefreshTokenStore creates a new Redis-backed refresh token store.
func NewRefreshTokenStore(client *goredis.Client) *RefreshTokenStore {
	return &RefreshTokenStore{
		client: client,
		prefix: "refresh:",
	}
}

func (s *RefreshTokenStore) key(userID uuid.UUID, deviceID string) string {
	return fmt.Sprintf("%s%s:%s", s.prefix, userID, deviceID)
}

// Save stores the fingerprint, replacing any previous one for the device.
func (s *RefreshTokenStore) Save(ctx context.Context, userID uuid.UUID, deviceID, fingerprint string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(userID, deviceID), fingerprint, ttl).Err(); err != nil {
		return fmt.Errorf("redis refresh token set: %w", err)
	}
	return nil
}

// Get returns the stored fingerprint, "" if absent.
func (s *RefreshTokenStore) Get(ctx context.Context, userID uuid.UUID, deviceID string) (string, error) {
	val, err := s.client.Get(ctx, s.key(userID, deviceID)).Result()
	if err != nil {
		if err == goredis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("redis refresh token get: %w", err)
	}
	return val, nil
}

// Delete removes the fingerprint for one device.
func (s *RefreshTokenStore) Delete(ctx context.Context, userID uuid.UUID, deviceID string) error {
	if err := s.client.Del(ctx, s.key(userID, deviceID)).Err(); err != nil {
		return fmt.Errorf("redis refresh token del: %w", err)
	}
	return nil
}

// DeleteAll removes every device fingerprint for the user via SCAN, so a
// global logout does not depend on knowing which devices exist.
func (s *RefreshTokenStore) DeleteAll(ctx context.Context, userID uuid.UUID) (int, error) {
	pattern := fmt.Sprintf("%s%s:*", s.prefix, userID)

	var deleted int
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("redis refresh token del all: %w", err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("redis refresh token scan: %w", err)
	}
	return deleted, nil
}
