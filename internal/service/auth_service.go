package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
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

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	userRepo     ports.UserRepository
	walletRepo   ports.WalletRepository
	hashSvc      ports.HashService
	cryptoSvc    ports.CryptoService
	tokenSvc     ports.TokenService
	totpSvc      ports.TOTPService
	attemptStore ports.LoginAttemptStore
	refreshStore ports.RefreshTokenStore
	mfaStore     ports.MFASetupStore
	verifyStore  ports.VerificationStore
	authCfg      config.AuthConfig
	jwtCfg       config.JWTConfig
	log          zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	userRepo ports.UserRepository,
	walletRepo ports.WalletRepository,
	hashSvc ports.HashService,
	cryptoSvc ports.CryptoService,
	tokenSvc ports.TokenService,
	totpSvc ports.TOTPService,
	attemptStore ports.LoginAttemptStore,
	refreshStore ports.RefreshTokenStore,
	mfaStore ports.MFASetupStore,
	verifyStore ports.VerificationStore,
	authCfg config.AuthConfig,
	jwtCfg config.JWTConfig,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo:     userRepo,
		walletRepo:   walletRepo,
		hashSvc:      hashSvc,
		cryptoSvc:    cryptoSvc,
		tokenSvc:     tokenSvc,
		totpSvc:      totpSvc,
		attemptStore: attemptStore,
		refreshStore: refreshStore,
		mfaStore:     mfaStore,
		verifyStore:  verifyStore,
		authCfg:      authCfg,
		jwtCfg:       jwtCfg,
		log:          log,
	}
}

// Register creates a new user account with a zero-balance wallet and queues
// an email verification token.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*ports.RegisterResponse, error) {
	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrEmailExists()
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration for the same email.
		if errors.Is(err, ports.ErrDuplicateKey) {
			return nil, apperror.ErrEmailExists()
		}
		return nil, apperror.InternalError(fmt.Errorf("create user: %w", err))
	}

	wallet := &domain.Wallet{
		ID:           uuid.New(),
		UserID:       user.ID,
		WalletNumber: "WAL-" + uuid.New().String()[:13],
		Balance:      decimal.Zero,
		Currency:     "USD",
		Version:      1,
		Status:       domain.WalletStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	// Verification token is stored for pickup by the mail pipeline;
	// delivery is out of band.
	verifyToken, err := generateRandomHex(32)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate verification token: %w", err))
	}
	if err := s.verifyStore.Save(ctx, user.ID, verifyToken, s.authCfg.VerificationTTL); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to store verification token")
	}

	s.log.Info().Str("user_id", user.ID.String()).Msg("user registered")

	return &ports.RegisterResponse{UserID: user.ID}, nil
}

// Login validates credentials, applying the shared attempt counter and the
// durable lockout. Unknown email, bad password and suspended account all
// collapse to InvalidCredentials.
func (s *AuthServiceImpl) Login(ctx context.Context, req ports.LoginRequest) (*ports.LoginResult, error) {
	// Shared counter gate runs before any user lookup: once the email has
	// burned its attempt budget in the window, every caller gets RateLimited
	// until the window rolls, whoever they are.
	count, err := s.attemptStore.Count(ctx, req.Email)
	if err != nil {
		s.log.Warn().Err(err).Msg("attempt counter read failed")
	} else if count >= int64(s.authCfg.MaxLoginAttempts) {
		return nil, apperror.ErrRateLimitExceeded()
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		// Count attempts against unknown emails too, so probing cannot
		// distinguish a wrong password from a wrong email by behavior.
		if _, err := s.attemptStore.Increment(ctx, req.Email, s.authCfg.AttemptWindow); err != nil {
			s.log.Warn().Err(err).Msg("attempt counter increment failed")
		}
		return nil, apperror.ErrInvalidCredentials()
	}

	if user.IsLocked(time.Now()) {
		return nil, apperror.ErrAccountLocked()
	}
	if !user.IsActive() {
		return nil, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return nil, s.recordFailure(ctx, user, req.Email)
	}

	// Success: clear both failure trackers and stamp the login.
	if err := s.attemptStore.Clear(ctx, req.Email); err != nil {
		s.log.Warn().Err(err).Msg("attempt counter clear failed")
	}
	if err := s.userRepo.ResetLoginState(ctx, user.ID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("reset login state: %w", err))
	}
	if err := s.userRepo.RecordLogin(ctx, user.ID, req.ClientIP, time.Now().UTC()); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to record login")
	}

	if user.MFAEnabled {
		// Password alone is not a session. The temp token only unlocks
		// the MFA completion endpoint.
		deviceID := s.tokenSvc.DeviceID(req.DeviceSignature)
		triple, err := s.tokenSvc.Generate(user, deviceID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("generate temp token: %w", err))
		}
		return &ports.LoginResult{RequiresMFA: true, TempToken: triple.TempToken, User: user}, nil
	}

	return s.issueSession(ctx, user, req.DeviceSignature)
}

// recordFailure bumps both failure trackers. The threshold attempt applies
// the durable lock but still answers InvalidCredentials; AccountLocked only
// surfaces on attempts made while an existing lock holds.
func (s *AuthServiceImpl) recordFailure(ctx context.Context, user *domain.User, email string) error {
	if _, err := s.attemptStore.Increment(ctx, email, s.authCfg.AttemptWindow); err != nil {
		s.log.Warn().Err(err).Msg("attempt counter increment failed")
	}

	attempts, err := s.userRepo.RecordFailedLogin(ctx, user.ID, s.authCfg.MaxLoginAttempts, s.authCfg.LockoutDuration)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("record failed login: %w", err))
	}

	if attempts >= s.authCfg.MaxLoginAttempts {
		s.log.Warn().
			Str("user_id", user.ID.String()).
			Int("attempts", attempts).
			Msg("account locked after repeated failures")
	}
	return apperror.ErrInvalidCredentials()
}

// issueSession mints the token triple and stores the refresh fingerprint.
func (s *AuthServiceImpl) issueSession(ctx context.Context, user *domain.User, deviceSignature string) (*ports.LoginResult, error) {
	deviceID := s.tokenSvc.DeviceID(deviceSignature)

	triple, err := s.tokenSvc.Generate(user, deviceID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate tokens: %w", err))
	}

	// Only the one-way fingerprint is stored; a Redis dump cannot yield
	// usable refresh tokens.
	fingerprint, err := s.hashSvc.Hash(triple.RefreshToken)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fingerprint refresh token: %w", err))
	}
	if err := s.refreshStore.Save(ctx, user.ID, deviceID, fingerprint, s.jwtCfg.RefreshExpiry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("store refresh fingerprint: %w", err))
	}

	return &ports.LoginResult{
		AccessToken:  triple.AccessToken,
		RefreshToken: triple.RefreshToken,
		AccessExpiry: triple.AccessExpiry,
		User:         user,
	}, nil
}

// CompleteMFALogin exchanges a temporary token plus a valid TOTP code for a
// full session.
func (s *AuthServiceImpl) CompleteMFALogin(ctx context.Context, tempToken, code, deviceSignature string) (*ports.LoginResult, error) {
	claims, err := s.tokenSvc.Validate(tempToken, ports.TokenClassTemp)
	if err != nil {
		return nil, apperror.ErrUnauthorized()
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil || !user.IsActive() || !user.MFAEnabled || user.MFASecretEnc == nil {
		return nil, apperror.ErrUnauthorized()
	}

	secret, err := s.cryptoSvc.Decrypt(*user.MFASecretEnc)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("decrypt mfa secret: %w", err))
	}
	if !s.totpSvc.Verify(secret, code, time.Now()) {
		return nil, apperror.ErrInvalidMFACode()
	}

	return s.issueSession(ctx, user, deviceSignature)
}

// Refresh rotates the token triple. The presented refresh token must match
// the stored fingerprint for its device; a mismatch means the token was
// already rotated or stolen, so the device session is revoked outright.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken, deviceSignature string) (*ports.TokenTriple, error) {
	claims, err := s.tokenSvc.Validate(refreshToken, ports.TokenClassRefresh)
	if err != nil {
		return nil, apperror.ErrUnauthorized()
	}

	deviceID := s.tokenSvc.DeviceID(deviceSignature)
	if deviceID != claims.DeviceID {
		return nil, apperror.ErrUnauthorized()
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil || !user.IsActive() || user.TokenEpoch != claims.TokenEpoch {
		return nil, apperror.ErrUnauthorized()
	}

	stored, err := s.refreshStore.Get(ctx, user.ID, deviceID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load refresh fingerprint: %w", err))
	}
	if stored == "" {
		return nil, apperror.ErrUnauthorized()
	}

	match, err := s.hashSvc.Verify(refreshToken, stored)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify refresh fingerprint: %w", err))
	}
	if !match {
		// Reuse of a rotated token. Kill the device session.
		if delErr := s.refreshStore.Delete(ctx, user.ID, deviceID); delErr != nil {
			s.log.Warn().Err(delErr).Str("user_id", user.ID.String()).Msg("failed to revoke device session")
		}
		s.log.Warn().
			Str("user_id", user.ID.String()).
			Str("device_id", deviceID).
			Msg("refresh token reuse detected, device session revoked")
		return nil, apperror.ErrUnauthorized()
	}

	triple, err := s.tokenSvc.Generate(user, deviceID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate tokens: %w", err))
	}

	fingerprint, err := s.hashSvc.Hash(triple.RefreshToken)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fingerprint refresh token: %w", err))
	}
	if err := s.refreshStore.Save(ctx, user.ID, deviceID, fingerprint, s.jwtCfg.RefreshExpiry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("store refresh fingerprint: %w", err))
	}

	return triple, nil
}

// Logout revokes the refresh fingerprint for one device.
func (s *AuthServiceImpl) Logout(ctx context.Context, userID uuid.UUID, deviceSignature string) error {
	deviceID := s.tokenSvc.DeviceID(deviceSignature)
	if err := s.refreshStore.Delete(ctx, userID, deviceID); err != nil {
		return apperror.InternalError(fmt.Errorf("delete refresh fingerprint: %w", err))
	}
	return nil
}

// LogoutAll bumps the token epoch and clears every device fingerprint, so
// even unexpired access tokens fail validation afterwards.
func (s *AuthServiceImpl) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.userRepo.IncrementTokenEpoch(ctx, userID); err != nil {
		return apperror.InternalError(fmt.Errorf("increment token epoch: %w", err))
	}
	deleted, err := s.refreshStore.DeleteAll(ctx, userID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("delete refresh fingerprints: %w", err))
	}
	s.log.Info().Str("user_id", userID.String()).Int("devices", deleted).Msg("all sessions revoked")
	return nil
}

// EnrollMFA generates a fresh TOTP secret and parks it in the setup store.
// Nothing is persisted until the user proves possession via VerifyMFA.
func (s *AuthServiceImpl) EnrollMFA(ctx context.Context, userID uuid.UUID) (*ports.MFAEnrollment, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrNotFound("user")
	}
	if user.MFAEnabled {
		return nil, apperror.Validation("MFA is already enabled")
	}

	secret, err := s.totpSvc.GenerateSecret()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate totp secret: %w", err))
	}
	if err := s.mfaStore.Save(ctx, userID, secret, s.authCfg.MFASetupTTL); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("store pending secret: %w", err))
	}

	return &ports.MFAEnrollment{
		Secret:       secret,
		ProvisionURI: s.totpSvc.ProvisionURI(secret, user.Email),
	}, nil
}

// VerifyMFA checks a TOTP code. During setup it verifies against the
// pending secret and persists it encrypted on success; afterwards it
// verifies against the enabled secret.
func (s *AuthServiceImpl) VerifyMFA(ctx context.Context, userID uuid.UUID, code string, setup bool) error {
	if setup {
		secret, err := s.mfaStore.Get(ctx, userID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("load pending secret: %w", err))
		}
		if secret == "" {
			return apperror.ErrMFASetupExpired()
		}
		if !s.totpSvc.Verify(secret, code, time.Now()) {
			return apperror.ErrInvalidMFACode()
		}

		secretEnc, err := s.cryptoSvc.Encrypt(secret)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("encrypt mfa secret: %w", err))
		}
		if err := s.userRepo.EnableMFA(ctx, userID, secretEnc); err != nil {
			return apperror.InternalError(fmt.Errorf("enable mfa: %w", err))
		}
		if err := s.mfaStore.Delete(ctx, userID); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to clear pending mfa secret")
		}
		s.log.Info().Str("user_id", userID.String()).Msg("mfa enabled")
		return nil
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil || !user.MFAEnabled || user.MFASecretEnc == nil {
		return apperror.ErrInvalidMFACode()
	}

	secret, err := s.cryptoSvc.Decrypt(*user.MFASecretEnc)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("decrypt mfa secret: %w", err))
	}
	if !s.totpSvc.Verify(secret, code, time.Now()) {
		return apperror.ErrInvalidMFACode()
	}
	return nil
}

// ValidateAccessToken performs full access validation: signature, expiry,
// active user, epoch match. Every failure collapses to Unauthorized.
func (s *AuthServiceImpl) ValidateAccessToken(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := s.tokenSvc.Validate(tokenString, ports.TokenClassAccess)
	if err != nil {
		return nil, apperror.ErrUnauthorized()
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil || !user.IsActive() || user.TokenEpoch != claims.TokenEpoch {
		return nil, apperror.ErrUnauthorized()
	}
	return user, nil
}

// generateRandomHex generates a random hex string of n bytes.
func generateRandomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
