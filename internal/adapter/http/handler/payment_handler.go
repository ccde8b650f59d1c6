package handler

import (
	"spay-platform/internal/adapter/http/dto"
	"spay-platform/internal/adapter/http/middleware"
	"spay-platform/internal/core/domain"
	"spay-platform/internal/core/ports"
	"spay-platform/pkg/apperror"
	"spay-platform/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HeaderIdempotencyKey names the mandatory transfer idempotency header.
const HeaderIdempotencyKey = "Idempotency-Key"

// PaymentHandler handles transfer endpoints.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// SendMoney handles POST /api/v1/payments.
func (h *PaymentHandler) SendMoney(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	idempotencyKey := c.GetHeader(HeaderIdempotencyKey)
	if idempotencyKey == "" {
		response.Error(c, apperror.ErrMissingIdempotencyKey())
		return
	}
	if !dto.ValidIdempotencyKey(idempotencyKey) {
		response.Error(c, apperror.Validation("Idempotency-Key must be 1-100 characters of [a-zA-Z0-9._-]"))
		return
	}

	var req dto.SendMoneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	toUserID, err := uuid.Parse(req.ToUserID)
	if err != nil {
		response.Error(c, apperror.Validation("to_user_id must be a UUID"))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	payment, err := h.paymentSvc.SendMoney(c.Request.Context(), ports.SendMoneyRequest{
		FromUserID:     userID.(uuid.UUID),
		ToUserID:       toUserID,
		Amount:         amount,
		Currency:       req.Currency,
		Description:    req.Description,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toPaymentResponse(payment))
}

// GetHistory handles GET /api/v1/payments/history.
func (h *PaymentHandler) GetHistory(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	payments, err := h.paymentSvc.GetHistory(c.Request.Context(), userID.(uuid.UUID))
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.PaymentResponse, 0, len(payments))
	for i := range payments {
		items = append(items, toPaymentResponse(&payments[i]))
	}

	response.OK(c, dto.PaymentListResponse{Items: items, Total: len(items)})
}

// toPaymentResponse converts domain.Payment to DTO.
func toPaymentResponse(p *domain.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:          p.ID.String(),
		Reference:   p.Reference,
		FromUserID:  p.FromUserID.String(),
		ToUserID:    p.ToUserID.String(),
		Amount:      p.Amount.String(),
		Currency:    p.Currency,
		Status:      string(p.Status),
		Description: p.Description,
		CreatedAt:   p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
