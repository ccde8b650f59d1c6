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
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment() *domain.Payment {
	now := time.Now().UTC().Truncate(time.Microsecond)
	desc := "dinner split"
	return &domain.Payment{
		ID:             uuid.New(),
		Reference:      domain.NewPaymentReference(),
		FromUserID:     uuid.New(),
		ToUserID:       uuid.New(),
		Amount:         decimal.RequireFromString("25.00"),
		Currency:       "USD",
		Status:         domain.PaymentStatusPending,
		IdempotencyKey: uuid.New().String(),
		Description:    &desc,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func paymentColumnList() []string {
	return []string{"id", "reference", "from_user_id", "to_user_id", "amount", "currency", "status", "idempotency_key", "description", "created_at", "updated_at"}
}

func paymentRow(p *domain.Payment) *pgxmock.Rows {
	return pgxmock.NewRows(paymentColumnList()).AddRow(
		p.ID, p.Reference, p.FromUserID, p.ToUserID, p.Amount,
		p.Currency, p.Status, p.IdempotencyKey, p.Description,
		p.CreatedAt, p.UpdatedAt,
	)
}

func TestPaymentRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").
		WithArgs(p.ID, p.Reference, p.FromUserID, p.ToUserID, p.Amount,
			p.Currency, p.Status, p.IdempotencyKey, p.Description,
			p.CreatedAt, p.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_Create_DuplicateIdempotencyKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").
		WithArgs(p.ID, p.Reference, p.FromUserID, p.ToUserID, p.Amount,
			p.Currency, p.Status, p.IdempotencyKey, p.Description,
			p.CreatedAt, p.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "payments_idempotency_key_key"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, p)
	assert.ErrorIs(t, err, ports.ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_GetByIdempotencyKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment()

	mock.ExpectQuery("SELECT .+ FROM payments WHERE idempotency_key").
		WithArgs(p.IdempotencyKey).
		WillReturnRows(paymentRow(p))

	result, err := repo.GetByIdempotencyKey(context.Background(), p.IdempotencyKey)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, p.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_GetByIdempotencyKey_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM payments WHERE idempotency_key").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(paymentColumnList()))

	result, err := repo.GetByIdempotencyKey(context.Background(), "missing-key")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(domain.PaymentStatusCompleted, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateStatus(context.Background(), tx, id, domain.PaymentStatusCompleted)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p1 := newTestPayment()
	p2 := newTestPayment()
	p2.FromUserID = p1.FromUserID

	rows := pgxmock.NewRows(paymentColumnList()).
		AddRow(p2.ID, p2.Reference, p2.FromUserID, p2.ToUserID, p2.Amount,
			p2.Currency, p2.Status, p2.IdempotencyKey, p2.Description, p2.CreatedAt, p2.UpdatedAt).
		AddRow(p1.ID, p1.Reference, p1.FromUserID, p1.ToUserID, p1.Amount,
			p1.Currency, p1.Status, p1.IdempotencyKey, p1.Description, p1.CreatedAt, p1.UpdatedAt)

	mock.ExpectQuery("SELECT .+ FROM payments").
		WithArgs(p1.FromUserID).
		WillReturnRows(rows)

	result, err := repo.ListByUser(context.Background(), p1.FromUserID)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, p2.ID, result[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
