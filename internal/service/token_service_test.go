package service

import (
	"testing"
	"time"

	"spay-platform/config"
	"spay-platform/internal/core/domain"
	"spay-platform/internal/core/ports"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		TempSecret:    "temp-secret-for-tests",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 7 * 24 * time.Hour,
		TempExpiry:    5 * time.Minute,
		Issuer:        "spay-platform",
	}
}

func testTokenUser() *domain.User {
	return &domain.User{
		ID:         uuid.New(),
		Email:      "alice@example.com",
		TokenEpoch: 3,
		Status:     domain.UserStatusActive,
	}
}

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTTokenService(testJWTConfig())
	user := testTokenUser()
	deviceID := svc.DeviceID("Mozilla/5.0|192.168.1.10")

	triple, err := svc.Generate(user, deviceID)
	require.NoError(t, err)
	require.NotEmpty(t, triple.AccessToken)
	require.NotEmpty(t, triple.RefreshToken)
	require.NotEmpty(t, triple.TempToken)
	assert.True(t, triple.AccessExpiry.After(time.Now()))
	assert.True(t, triple.RefreshExpiry.After(triple.AccessExpiry))

	for _, tc := range []struct {
		class ports.TokenClass
		token string
	}{
		{ports.TokenClassAccess, triple.AccessToken},
		{ports.TokenClassRefresh, triple.RefreshToken},
		{ports.TokenClassTemp, triple.TempToken},
	} {
		claims, err := svc.Validate(tc.token, tc.class)
		require.NoError(t, err, "class %s", tc.class)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, user.Email, claims.Email)
		assert.Equal(t, deviceID, claims.DeviceID)
		assert.Equal(t, int64(3), claims.TokenEpoch)
	}
}

func TestJWTTokenService_ClassIsolation(t *testing.T) {
	svc := NewJWTTokenService(testJWTConfig())
	triple, err := svc.Generate(testTokenUser(), "device-a")
	require.NoError(t, err)

	// A token minted for one class must not validate as another.
	_, err = svc.Validate(triple.AccessToken, ports.TokenClassRefresh)
	assert.Error(t, err)

	_, err = svc.Validate(triple.TempToken, ports.TokenClassAccess)
	assert.Error(t, err)

	_, err = svc.Validate(triple.RefreshToken, ports.TokenClassTemp)
	assert.Error(t, err)
}

func TestJWTTokenService_RejectsGarbage(t *testing.T) {
	svc := NewJWTTokenService(testJWTConfig())

	_, err := svc.Validate("not.a.jwt", ports.TokenClassAccess)
	assert.Error(t, err)

	_, err = svc.Validate("", ports.TokenClassAccess)
	assert.Error(t, err)
}

func TestJWTTokenService_RejectsWrongSecret(t *testing.T) {
	svc := NewJWTTokenService(testJWTConfig())
	triple, err := svc.Generate(testTokenUser(), "device-a")
	require.NoError(t, err)

	other := testJWTConfig()
	other.AccessSecret = "a completely different secret"
	otherSvc := NewJWTTokenService(other)

	_, err = otherSvc.Validate(triple.AccessToken, ports.TokenClassAccess)
	assert.Error(t, err)
}

func TestJWTTokenService_DeviceID(t *testing.T) {
	svc := NewJWTTokenService(testJWTConfig())

	first := svc.DeviceID("Mozilla/5.0|10.0.0.1")
	second := svc.DeviceID("Mozilla/5.0|10.0.0.1")
	third := svc.DeviceID("Mozilla/5.0|10.0.0.2")

	assert.Equal(t, first, second, "same signature maps to the same device")
	assert.NotEqual(t, first, third)
	assert.Len(t, first, 16)
}
