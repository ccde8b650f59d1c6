package ports

import (
	"context"
	"time"

	"spay-platform/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// HashService handles password hashing (Argon2id). The same hash is used as
// the one-way fingerprint for stored refresh tokens.
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// CryptoService handles AES-256-GCM encryption of sensitive columns
// (the persisted TOTP secret).
type CryptoService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TokenClass identifies which of the three signing secrets a token uses.
type TokenClass string

const (
	TokenClassAccess  TokenClass = "access"
	TokenClassRefresh TokenClass = "refresh"
	TokenClassTemp    TokenClass = "temp"
)

// TokenClaims holds the parsed payload shared by all token classes.
type TokenClaims struct {
	UserID     uuid.UUID
	Email      string
	DeviceID   string
	TokenEpoch int64
}

// TokenTriple is the result of a token issuance.
type TokenTriple struct {
	AccessToken   string
	RefreshToken  string
	TempToken     string
	AccessExpiry  time.Time
	RefreshExpiry time.Time
}

// TokenService mints and validates the three token classes. Each class is
// signed with a distinct secret so a stolen token cannot be replayed in a
// different flow.
type TokenService interface {
	Generate(user *domain.User, deviceID string) (*TokenTriple, error)
	Validate(tokenString string, class TokenClass) (*TokenClaims, error)
	// DeviceID derives a stable device identifier from a client-supplied
	// device signature (typically the user-agent string).
	DeviceID(deviceSignature string) string
}

// TOTPService implements RFC 6238 time-based one-time codes.
type TOTPService interface {
	GenerateSecret() (string, error)
	ProvisionURI(secret, account string) string
	Verify(secret, code string, at time.Time) bool
}

// --- Coordinator stores (Redis-resident, disposable) ---

// LoginAttemptStore is the shared per-email attempt counter with a rolling
// expiry window.
type LoginAttemptStore interface {
	Increment(ctx context.Context, email string, window time.Duration) (int64, error)
	Count(ctx context.Context, email string) (int64, error)
	Clear(ctx context.Context, email string) error
}

// RefreshTokenStore holds the one-way fingerprint of the single active
// refresh token per (user, device). It is the sole server-side
// refresh-validity oracle.
type RefreshTokenStore interface {
	Save(ctx context.Context, userID uuid.UUID, deviceID, fingerprint string, ttl time.Duration) error
	// Get returns "" with nil error when no fingerprint is stored.
	Get(ctx context.Context, userID uuid.UUID, deviceID string) (string, error)
	Delete(ctx context.Context, userID uuid.UUID, deviceID string) error
	// DeleteAll enumerates and removes every device fingerprint for the user.
	DeleteAll(ctx context.Context, userID uuid.UUID) (int, error)
}

// MFASetupStore holds the transient enrollment secret until it is verified.
type MFASetupStore interface {
	Save(ctx context.Context, userID uuid.UUID, secret string, ttl time.Duration) error
	Get(ctx context.Context, userID uuid.UUID) (string, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

// VerificationStore holds email verification tokens; delivery is external.
type VerificationStore interface {
	Save(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error
	Get(ctx context.Context, userID uuid.UUID) (string, error)
}

// IdempotencyCache is the Redis fast path mapping an idempotency key to a
// completed payment ID. It is an optimization: the unique constraint on
// payments is the durable guarantee.
type IdempotencyCache interface {
	// Get returns "" with nil error on a cache miss.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, paymentID string, ttl time.Duration) error
}

// --- Service ports (business logic) ---

// RegisterRequest holds validated input for user registration.
type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegisterResponse holds the registration result.
type RegisterResponse struct {
	UserID uuid.UUID
}

// LoginRequest holds validated input for login.
type LoginRequest struct {
	Email           string
	Password        string
	ClientIP        string
	DeviceSignature string
}

// LoginResult is the outcome of a credential check. When MFA is required
// only the temporary token is populated.
type LoginResult struct {
	RequiresMFA  bool
	TempToken    string
	AccessToken  string
	RefreshToken string
	AccessExpiry time.Time
	User         *domain.User
}

// MFAEnrollment is returned by EnrollMFA; the secret lives transiently in
// the coordinator until verified.
type MFAEnrollment struct {
	Secret       string
	ProvisionURI string
}

// AuthService defines the session trust core.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	// CompleteMFALogin exchanges a temporary token plus a valid TOTP code
	// for a full token triple.
	CompleteMFALogin(ctx context.Context, tempToken, code, deviceSignature string) (*LoginResult, error)
	// Refresh rotates the token triple; the presented refresh token becomes
	// unusable the moment a new one is issued.
	Refresh(ctx context.Context, refreshToken, deviceSignature string) (*TokenTriple, error)
	Logout(ctx context.Context, userID uuid.UUID, deviceSignature string) error
	LogoutAll(ctx context.Context, userID uuid.UUID) error
	EnrollMFA(ctx context.Context, userID uuid.UUID) (*MFAEnrollment, error)
	// VerifyMFA checks a code against the transient enrollment secret
	// (setup=true) or the persisted secret. A successful setup verification
	// persists the secret and enables MFA.
	VerifyMFA(ctx context.Context, userID uuid.UUID, code string, setup bool) error
	// ValidateAccessToken performs full access-token validation: signature,
	// expiry, active user, epoch match. All failures collapse to Unauthorized.
	ValidateAccessToken(ctx context.Context, tokenString string) (*domain.User, error)
}

// WalletService is the wallet ledger: balance reads plus credit/debit
// primitives that compose inside a caller-supplied transaction scope.
type WalletService interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	// Credit and Debit mutate the given wallet snapshot inside tx. Debit
	// fails with InsufficientFunds if the result would go negative.
	Credit(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet, amount decimal.Decimal) error
	Debit(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet, amount decimal.Decimal) error
	// Topup adds funds to the user's wallet in its own transaction.
	Topup(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error)
}

// SendMoneyRequest holds validated input for a transfer.
type SendMoneyRequest struct {
	FromUserID     uuid.UUID
	ToUserID       uuid.UUID
	Amount         decimal.Decimal
	Currency       string
	Description    *string
	IdempotencyKey string
}

// PaymentService is the transfer engine.
type PaymentService interface {
	SendMoney(ctx context.Context, req SendMoneyRequest) (*domain.Payment, error)
	GetHistory(ctx context.Context, userID uuid.UUID) ([]domain.Payment, error)
}
