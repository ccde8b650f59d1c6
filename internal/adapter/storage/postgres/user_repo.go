package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spay-platform/internal/core/domain"
	"spay-platform/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = `id, email, password_hash, first_name, last_name, mfa_enabled, mfa_secret_enc,
	failed_login_attempts, locked_until, token_epoch, status, last_login_at, last_login_ip, created_at, updated_at`

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	pool Pool
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.MFAEnabled, &u.MFASecretEnc, &u.FailedLoginAttempts, &u.LockedUntil,
		&u.TokenEpoch, &u.Status, &u.LastLoginAt, &u.LastLoginIP,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user. A duplicate email surfaces as ports.ErrDuplicateKey.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (id, email, password_hash, first_name, last_name, mfa_enabled, status, token_epoch, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName,
		u.MFAEnabled, u.Status, u.TokenEpoch, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ports.ErrDuplicateKey
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID fetches a user by its UUID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetByEmail fetches a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// RecordFailedLogin increments the failure counter and applies the lockout
// in one statement, so concurrent failures cannot lose increments.
func (r *UserRepo) RecordFailedLogin(ctx context.Context, id uuid.UUID, threshold int, lockFor time.Duration) (int, error) {
	query := `UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE WHEN failed_login_attempts + 1 >= $2 THEN NOW() + $3 ELSE locked_until END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING failed_login_attempts`

	var attempts int
	if err := r.pool.QueryRow(ctx, query, id, threshold, lockFor).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("record failed login: %w", err)
	}
	return attempts, nil
}

// ResetLoginState clears the failure counter and any lockout.
func (r *UserRepo) ResetLoginState(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET failed_login_attempts = 0, locked_until = NULL, updated_at = NOW() WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("reset login state: %w", err)
	}
	return nil
}

// RecordLogin stamps the last successful login.
func (r *UserRepo) RecordLogin(ctx context.Context, id uuid.UUID, ip string, at time.Time) error {
	query := `UPDATE users SET last_login_at = $2, last_login_ip = $3, updated_at = NOW() WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id, at, ip); err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

// IncrementTokenEpoch bumps the epoch and returns the new value. Every
// token minted before the bump fails epoch validation afterwards.
func (r *UserRepo) IncrementTokenEpoch(ctx context.Context, id uuid.UUID) (int64, error) {
	query := `UPDATE users SET token_epoch = token_epoch + 1, updated_at = NOW() WHERE id = $1 RETURNING token_epoch`

	var epoch int64
	if err := r.pool.QueryRow(ctx, query, id).Scan(&epoch); err != nil {
		return 0, fmt.Errorf("increment token epoch: %w", err)
	}
	return epoch, nil
}

// EnableMFA persists the encrypted TOTP secret and flips the flag.
func (r *UserRepo) EnableMFA(ctx context.Context, id uuid.UUID, secretEnc string) error {
	query := `UPDATE users SET mfa_enabled = TRUE, mfa_secret_enc = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, secretEnc)
	if err != nil {
		return fmt.Errorf("enable mfa: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}
