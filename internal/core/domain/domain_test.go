package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestUser_IsLocked(t *testing.T) {
	now := time.Now()

	u := &User{}
	assert.False(t, u.IsLocked(now), "no lock timestamp means unlocked")

	past := now.Add(-time.Minute)
	u.LockedUntil = &past
	assert.False(t, u.IsLocked(now), "expired lock means unlocked")

	future := now.Add(15 * time.Minute)
	u.LockedUntil = &future
	assert.True(t, u.IsLocked(now))
}

func TestUser_IsActive(t *testing.T) {
	assert.True(t, (&User{Status: UserStatusActive}).IsActive())
	assert.False(t, (&User{Status: UserStatusSuspended}).IsActive())
}

func TestWallet_CanCover(t *testing.T) {
	w := &Wallet{Balance: decimal.RequireFromString("50.00")}

	assert.True(t, w.CanCover(decimal.RequireFromString("50.00")))
	assert.True(t, w.CanCover(decimal.RequireFromString("49.99")))
	assert.False(t, w.CanCover(decimal.RequireFromString("50.01")))
}

func TestPayment_IsTerminal(t *testing.T) {
	cases := []struct {
		status   PaymentStatus
		terminal bool
	}{
		{PaymentStatusPending, false},
		{PaymentStatusCompleted, true},
		{PaymentStatusFailed, true},
	}
	for _, tc := range cases {
		p := &Payment{Status: tc.status}
		assert.Equal(t, tc.terminal, p.IsTerminal(), "status %s", tc.status)
	}
}

func TestNewPaymentReference(t *testing.T) {
	ref := NewPaymentReference()
	assert.True(t, strings.HasPrefix(ref, "PAY-"))
	assert.NotEqual(t, ref, NewPaymentReference(), "references must be unique")
}
