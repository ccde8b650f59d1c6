package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus represents the lifecycle state of a user account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// User is an account holder. Login-failure state lives both here (durable
// lockout) and in the coordinator (shared attempt counter); the token epoch
// is compared against token claims to revoke every session at once.
type User struct {
	ID                  uuid.UUID  `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	FirstName           string     `json:"first_name"`
	LastName            string     `json:"last_name"`
	MFAEnabled          bool       `json:"mfa_enabled"`
	MFASecretEnc        *string    `json:"-"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	TokenEpoch          int64      `json:"-"`
	Status              UserStatus `json:"status"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP         *string    `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// IsActive returns true if the account may authenticate.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// IsLocked returns true if a lockout is in effect at the given instant.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}
