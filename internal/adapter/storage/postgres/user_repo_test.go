package postgres

import (
	"context"
	"testing"
	"time"

	"spay-platform/internal/core/domain"
	"spay-platform/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUser() *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.User{
		ID:           uuid.New(),
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$salt$hash",
		FirstName:    "Alice",
		LastName:     "Nguyen",
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func userColumnList() []string {
	return []string{"id", "email", "password_hash", "first_name", "last_name", "mfa_enabled", "mfa_secret_enc",
		"failed_login_attempts", "locked_until", "token_epoch", "status", "last_login_at", "last_login_ip", "created_at", "updated_at"}
}

func userRow(u *domain.User) *pgxmock.Rows {
	return pgxmock.NewRows(userColumnList()).AddRow(
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName,
		u.MFAEnabled, u.MFASecretEnc, u.FailedLoginAttempts, u.LockedUntil,
		u.TokenEpoch, u.Status, u.LastLoginAt, u.LastLoginIP,
		u.CreatedAt, u.UpdatedAt,
	)
}

func TestUserRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)
	u := newTestUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName,
			u.MFAEnabled, u.Status, u.TokenEpoch, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), u)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Create_DuplicateEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)
	u := newTestUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName,
			u.MFAEnabled, u.Status, u.TokenEpoch, u.CreatedAt, u.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err = repo.Create(context.Background(), u)
	assert.ErrorIs(t, err, ports.ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)
	u := newTestUser()

	mock.ExpectQuery("SELECT .+ FROM users WHERE email").
		WithArgs(u.Email).
		WillReturnRows(userRow(u))

	result, err := repo.GetByEmail(context.Background(), u.Email)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, u.ID, result.ID)
	assert.Equal(t, u.Email, result.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmail_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(userColumnList()))

	result, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)
	u := newTestUser()

	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs(u.ID).
		WillReturnRows(userRow(u))

	result, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, u.Email, result.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_RecordFailedLogin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("UPDATE users").
		WithArgs(id, 5, 15*time.Minute).
		WillReturnRows(pgxmock.NewRows([]string{"failed_login_attempts"}).AddRow(3))

	attempts, err := repo.RecordFailedLogin(context.Background(), id, 5, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_ResetLoginState(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE users SET failed_login_attempts").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.ResetLoginState(context.Background(), id)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_IncrementTokenEpoch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("UPDATE users SET token_epoch").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"token_epoch"}).AddRow(int64(4)))

	epoch, err := repo.IncrementTokenEpoch(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(4), epoch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_EnableMFA(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE users SET mfa_enabled").
		WithArgs(id, "encrypted-secret").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.EnableMFA(context.Background(), id, "encrypted-secret")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_EnableMFA_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)

	mock.ExpectExec("UPDATE users SET mfa_enabled").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.EnableMFA(context.Background(), uuid.New(), "x")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
