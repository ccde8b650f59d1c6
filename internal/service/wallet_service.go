package service

import (
	"context"
	"fmt"
	"time"

	"spay-platform/internal/core/domain"
	"spay-platform/internal/core/ports"
	"spay-platform/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WalletServiceImpl implements ports.WalletService. Credit and Debit are
// the only paths that mutate a balance; both run inside a caller-supplied
// transaction so a transfer moves money atomically or not at all.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(walletRepo ports.WalletRepository, transactor ports.DBTransactor, log zerolog.Logger) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		transactor: transactor,
		log:        log,
	}
}

// GetByUser returns the user's wallet.
func (s *WalletServiceImpl) GetByUser(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return wallet, nil
}

// Credit adds amount to the wallet inside tx and advances the snapshot.
func (s *WalletServiceImpl) Credit(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return apperror.ErrInvalidAmount()
	}

	newBalance := wallet.Balance.Add(amount)
	if err := s.walletRepo.UpdateBalance(ctx, tx, wallet.ID, newBalance, wallet.Version); err != nil {
		return apperror.InternalError(fmt.Errorf("credit wallet: %w", err))
	}
	wallet.Balance = newBalance
	wallet.Version++
	return nil
}

// Debit subtracts amount from the wallet inside tx. The row lock taken by
// the caller serializes concurrent debits; the balance check here can then
// never act on a stale value.
func (s *WalletServiceImpl) Debit(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return apperror.ErrInvalidAmount()
	}
	if !wallet.CanCover(amount) {
		return apperror.ErrInsufficientFunds()
	}

	newBalance := wallet.Balance.Sub(amount)
	if err := s.walletRepo.UpdateBalance(ctx, tx, wallet.ID, newBalance, wallet.Version); err != nil {
		return apperror.InternalError(fmt.Errorf("debit wallet: %w", err))
	}
	wallet.Balance = newBalance
	wallet.Version++
	return nil
}

// Topup adds funds to the user's wallet in its own transaction.
func (s *WalletServiceImpl) Topup(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	if err := s.Credit(ctx, dbTx, wallet, amount); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Str("amount", amount.String()).
		Msg("wallet topup applied")

	wallet.UpdatedAt = time.Now().UTC()
	return wallet, nil
}
