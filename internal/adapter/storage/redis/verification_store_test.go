package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationStore_SaveGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewVerificationStore(client)
	ctx := context.Background()

	userID := uuid.New()

	val, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, val)

	require.NoError(t, store.Save(ctx, userID, "verify-token-123", 24*time.Hour))

	val, err = store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "verify-token-123", val)
}

func TestVerificationStore_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewVerificationStore(client)
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, store.Save(ctx, userID, "verify-token-123", time.Hour))

	s.FastForward(2 * time.Hour)

	val, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, val, "verification token expires")
}
