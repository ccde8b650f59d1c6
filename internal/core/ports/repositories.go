package ports

import (
	"context"
	"errors"
	"time"

	"spay-platform/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrDuplicateKey is returned by repositories when an insert violates a
// unique constraint (duplicate email, payment idempotency key).
var ErrDuplicateKey = errors.New("duplicate key")

// UserRepository defines persistence operations for users.
// Login-state mutations are single-statement atomic writes so concurrent
// failed logins cannot lose updates.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// RecordFailedLogin atomically increments the persisted failure counter,
	// applying lockFor once the counter reaches threshold, and returns the
	// new counter value.
	RecordFailedLogin(ctx context.Context, id uuid.UUID, threshold int, lockFor time.Duration) (int, error)
	// ResetLoginState clears the failure counter and any lockout.
	ResetLoginState(ctx context.Context, id uuid.UUID) error
	RecordLogin(ctx context.Context, id uuid.UUID, ip string, at time.Time) error
	// IncrementTokenEpoch bumps the epoch, invalidating all issued tokens,
	// and returns the new value.
	IncrementTokenEpoch(ctx context.Context, id uuid.UUID) (int64, error)
	EnableMFA(ctx context.Context, id uuid.UUID, secretEnc string) error
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside transaction blocks; the ForUpdate
// variant takes the pessimistic row lock that serializes debits.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error)
	GetByUserIDTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error)
	// UpdateBalance writes the new balance and bumps the version. The write
	// is guarded by the expected version and fails if another transaction
	// slipped in between read and write.
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal, expectedVersion int64) error
}

// PaymentRepository defines persistence operations for payments.
type PaymentRepository interface {
	// Create inserts a payment. A duplicate idempotency key surfaces as
	// ErrDuplicateKey so the caller can resolve the race as a lookup.
	Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PaymentStatus) error
	// ListByUser returns payments where the user is sender or receiver,
	// newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Payment, error)
}

// DBTransactor provides database transaction management for money movement.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// HealthChecker reports connectivity of an external dependency.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}
