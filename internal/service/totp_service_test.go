package service

import (
	"encoding/base32"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RFC 6238 appendix B vectors use the ASCII secret "12345678901234567890"
// with SHA1. The published vectors are 8 digits; the low 6 match ours.
func TestTOTPService_RFCVectors(t *testing.T) {
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).
		EncodeToString([]byte("12345678901234567890"))
	svc := NewTOTPService("spay-platform")

	tests := []struct {
		at   int64
		code string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1234567890, "005924"},
		{2000000000, "279037"},
	}

	for _, tt := range tests {
		assert.True(t, svc.Verify(secret, tt.code, time.Unix(tt.at, 0)), "at %d", tt.at)
	}
}

func TestTOTPService_GenerateAndVerify(t *testing.T) {
	svc := NewTOTPService("spay-platform")

	secret, err := svc.GenerateSecret()
	require.NoError(t, err)
	require.NotEmpty(t, secret)

	now := time.Now()
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	require.NoError(t, err)

	code := hotpCode(raw, now.Unix()/totpPeriod)
	assert.True(t, svc.Verify(secret, code, now))
	assert.False(t, svc.Verify(secret, "000000", now), "wrong code rejected")
}

func TestTOTPService_ClockSkew(t *testing.T) {
	svc := NewTOTPService("spay-platform")
	secret, err := svc.GenerateSecret()
	require.NoError(t, err)

	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	require.NoError(t, err)

	at := time.Unix(1_700_000_000, 0)
	previous := hotpCode(raw, at.Unix()/totpPeriod-1)
	next := hotpCode(raw, at.Unix()/totpPeriod+1)
	twoBehind := hotpCode(raw, at.Unix()/totpPeriod-2)

	assert.True(t, svc.Verify(secret, previous, at), "one step behind accepted")
	assert.True(t, svc.Verify(secret, next, at), "one step ahead accepted")
	assert.False(t, svc.Verify(secret, twoBehind, at), "two steps behind rejected")
}

func TestTOTPService_RejectsMalformedInput(t *testing.T) {
	svc := NewTOTPService("spay-platform")
	secret, err := svc.GenerateSecret()
	require.NoError(t, err)

	now := time.Now()
	assert.False(t, svc.Verify(secret, "", now))
	assert.False(t, svc.Verify(secret, "12345", now))
	assert.False(t, svc.Verify(secret, "1234567", now))
	assert.False(t, svc.Verify(secret, "12345a", now))
	assert.False(t, svc.Verify("not-base32!!", "123456", now))
}

func TestTOTPService_ProvisionURI(t *testing.T) {
	svc := NewTOTPService("spay-platform")

	uri := svc.ProvisionURI("JBSWY3DPEHPK3PXP", "alice@example.com")

	assert.Contains(t, uri, "otpauth://totp/")
	assert.Contains(t, uri, "secret=JBSWY3DPEHPK3PXP")
	assert.Contains(t, uri, "issuer=spay-platform")
	assert.Contains(t, uri, "digits=6")
	assert.Contains(t, uri, "period=30")
}
