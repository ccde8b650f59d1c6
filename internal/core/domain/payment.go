package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Payment is the durable record of a wallet-to-wallet transfer. The
// idempotency key carries a unique constraint: it is the correctness anchor
// that survives a flushed cache. A payment is immutable once terminal.
type Payment struct {
	ID             uuid.UUID       `json:"id"`
	Reference      string          `json:"reference"`
	FromUserID     uuid.UUID       `json:"from_user_id"`
	ToUserID       uuid.UUID       `json:"to_user_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Status         PaymentStatus   `json:"status"`
	IdempotencyKey string          `json:"-"`
	Description    *string         `json:"description,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsTerminal returns true if the payment is in a final state.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusFailed
}

// NewPaymentReference generates a human-readable unique payment reference.
func NewPaymentReference() string {
	return "PAY-" + uuid.New().String()
}
