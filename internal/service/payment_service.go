package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spay-platform/config"
	"spay-platform/internal/core/domain"
	"spay-platform/internal/core/ports"
	"spay-platform/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PaymentServiceImpl implements ports.PaymentService: the transfer engine
// with dual-layer idempotency and pessimistic sender locking.
type PaymentServiceImpl struct {
	paymentRepo ports.PaymentRepository
	walletRepo  ports.WalletRepository
	walletSvc   ports.WalletService
	idempCache  ports.IdempotencyCache
	transactor  ports.DBTransactor
	cfg         config.PaymentConfig
	log         zerolog.Logger
}

// NewPaymentService creates a new PaymentServiceImpl.
func NewPaymentService(
	paymentRepo ports.PaymentRepository,
	walletRepo ports.WalletRepository,
	walletSvc ports.WalletService,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	cfg config.PaymentConfig,
	log zerolog.Logger,
) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		paymentRepo: paymentRepo,
		walletRepo:  walletRepo,
		walletSvc:   walletSvc,
		idempCache:  idempCache,
		transactor:  transactor,
		cfg:         cfg,
		log:         log,
	}
}

// SendMoney moves funds between two users. Replays of the same idempotency
// key return the original payment; only the sender wallet is row-locked, so
// two transfers into the same wallet never contend on the receiver.
func (s *PaymentServiceImpl) SendMoney(ctx context.Context, req ports.SendMoneyRequest) (*domain.Payment, error) {
	if req.IdempotencyKey == "" {
		return nil, apperror.ErrMissingIdempotencyKey()
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.FromUserID == req.ToUserID {
		return nil, apperror.Validation("cannot send money to yourself")
	}

	// Layer 1: Redis fast path. Errors fall through to the durable check.
	cachedID, err := s.idempCache.Get(ctx, req.IdempotencyKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", req.IdempotencyKey).Msg("redis idempotency check failed, falling through to DB")
	}
	if cachedID != "" {
		return s.resolveReplay(ctx, req, cachedID)
	}

	// Layer 2: durable check against the unique constraint's table.
	existing, err := s.paymentRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if existing != nil {
		return s.verifyReplayMatch(req, existing)
	}

	payment, err := s.executeTransfer(ctx, req)
	if err != nil {
		return nil, err
	}

	// Post-commit: publish the cache pointer (best-effort).
	if err := s.idempCache.Set(ctx, req.IdempotencyKey, payment.ID.String(), s.cfg.IdempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", req.IdempotencyKey).Msg("failed to cache idempotency pointer")
	}

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("reference", payment.Reference).
		Str("from", req.FromUserID.String()).
		Str("to", req.ToUserID.String()).
		Str("amount", req.Amount.String()).
		Msg("transfer completed")

	return payment, nil
}

// executeTransfer runs the money movement in one transaction under a lock
// timeout. A deadline hit maps to LockTimeout: nothing was applied and the
// client may retry with the same key.
func (s *PaymentServiceImpl) executeTransfer(ctx context.Context, req ports.SendMoneyRequest) (*domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LockTimeout)
	defer cancel()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock the sender wallet. Receivers are read without a lock: credits
	// cannot overdraw, and skipping the second lock avoids deadlock cycles
	// between opposing transfers.
	sender, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, req.FromUserID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperror.ErrLockTimeout(err)
		}
		return nil, apperror.InternalError(fmt.Errorf("lock sender wallet: %w", err))
	}
	if sender == nil {
		return nil, apperror.ErrNotFound("sender wallet")
	}
	if req.Currency != "" && req.Currency != sender.Currency {
		return nil, apperror.Validation("currency does not match wallet")
	}
	if !sender.CanCover(req.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	receiver, err := s.walletRepo.GetByUserIDTx(ctx, dbTx, req.ToUserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get receiver wallet: %w", err))
	}
	if receiver == nil {
		return nil, apperror.ErrNotFound("receiver wallet")
	}

	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:             uuid.New(),
		Reference:      domain.NewPaymentReference(),
		FromUserID:     req.FromUserID,
		ToUserID:       req.ToUserID,
		Amount:         req.Amount,
		Currency:       sender.Currency,
		Status:         domain.PaymentStatusPending,
		IdempotencyKey: req.IdempotencyKey,
		Description:    req.Description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.paymentRepo.Create(ctx, dbTx, payment); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) {
			// Lost the insert race. The winner's payment is the answer.
			return s.resolveRace(ctx, req)
		}
		return nil, apperror.InternalError(fmt.Errorf("create payment: %w", err))
	}

	if err := s.walletSvc.Debit(ctx, dbTx, sender, req.Amount); err != nil {
		return nil, err
	}
	if err := s.walletSvc.Credit(ctx, dbTx, receiver, req.Amount); err != nil {
		return nil, err
	}

	if err := s.paymentRepo.UpdateStatus(ctx, dbTx, payment.ID, domain.PaymentStatusCompleted); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("complete payment: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperror.ErrLockTimeout(err)
		}
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	payment.Status = domain.PaymentStatusCompleted
	return payment, nil
}

// resolveRace re-reads the winning payment after losing the unique
// constraint race. The rolled-back loser returns the winner's record, so
// both concurrent callers see the same payment.
func (s *PaymentServiceImpl) resolveRace(ctx context.Context, req ports.SendMoneyRequest) (*domain.Payment, error) {
	winner, err := s.paymentRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("read racing payment: %w", err))
	}
	if winner == nil {
		// The winner rolled back between our insert failing and this read.
		return nil, apperror.ErrConflict("concurrent request with the same idempotency key failed, retry")
	}
	return s.verifyReplayMatch(req, winner)
}

// resolveReplay follows a cache pointer back to the durable record.
func (s *PaymentServiceImpl) resolveReplay(ctx context.Context, req ports.SendMoneyRequest, cachedID string) (*domain.Payment, error) {
	paymentID, err := uuid.Parse(cachedID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("corrupt idempotency pointer: %w", err))
	}
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load cached payment: %w", err))
	}
	if payment == nil {
		return nil, apperror.ErrConflict("idempotency key references an unknown payment")
	}
	return s.verifyReplayMatch(req, payment)
}

// verifyReplayMatch returns the original payment only when the replay
// carries the same parameters; a reused key with different parameters is a
// client bug, not a retry.
func (s *PaymentServiceImpl) verifyReplayMatch(req ports.SendMoneyRequest, payment *domain.Payment) (*domain.Payment, error) {
	if payment.FromUserID != req.FromUserID ||
		payment.ToUserID != req.ToUserID ||
		!payment.Amount.Equal(req.Amount) {
		return nil, apperror.ErrConflict("idempotency key reused with different parameters")
	}
	return payment, nil
}

// GetHistory returns the user's payments, sent and received, newest first.
func (s *PaymentServiceImpl) GetHistory(ctx context.Context, userID uuid.UUID) ([]domain.Payment, error) {
	payments, err := s.paymentRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list payments: %w", err))
	}
	return payments, nil
}
