package service

import (
	"context"
	"testing"
	"time"

	"spay-platform/config"
	"spay-platform/internal/core/domain"
	"spay-platform/internal/core/ports"
	"spay-platform/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authTestDeps struct {
	userRepo     *mocks.MockUserRepository
	walletRepo   *mocks.MockWalletRepository
	hashSvc      *mocks.MockHashService
	cryptoSvc    *mocks.MockCryptoService
	tokenSvc     *mocks.MockTokenService
	totpSvc      *mocks.MockTOTPService
	attemptStore *mocks.MockLoginAttemptStore
	refreshStore *mocks.MockRefreshTokenStore
	mfaStore     *mocks.MockMFASetupStore
	verifyStore  *mocks.MockVerificationStore
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		MaxLoginAttempts: 5,
		LockoutDuration:  15 * time.Minute,
		AttemptWindow:    15 * time.Minute,
		MFASetupTTL:      5 * time.Minute,
		VerificationTTL:  24 * time.Hour,
	}
}

func setupAuthService(t *testing.T) (*AuthServiceImpl, authTestDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)

	deps := authTestDeps{
		userRepo:     mocks.NewMockUserRepository(ctrl),
		walletRepo:   mocks.NewMockWalletRepository(ctrl),
		hashSvc:      mocks.NewMockHashService(ctrl),
		cryptoSvc:    mocks.NewMockCryptoService(ctrl),
		tokenSvc:     mocks.NewMockTokenService(ctrl),
		totpSvc:      mocks.NewMockTOTPService(ctrl),
		attemptStore: mocks.NewMockLoginAttemptStore(ctrl),
		refreshStore: mocks.NewMockRefreshTokenStore(ctrl),
		mfaStore:     mocks.NewMockMFASetupStore(ctrl),
		verifyStore:  mocks.NewMockVerificationStore(ctrl),
	}
	svc := NewAuthService(
		deps.userRepo, deps.walletRepo, deps.hashSvc, deps.cryptoSvc,
		deps.tokenSvc, deps.totpSvc, deps.attemptStore, deps.refreshStore,
		deps.mfaStore, deps.verifyStore,
		testAuthConfig(), testJWTConfig(), zerolog.Nop(),
	)
	return svc, deps
}

func activeUser() *domain.User {
	return &domain.User{
		ID:           uuid.New(),
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$...",
		FirstName:    "Alice",
		LastName:     "Nguyen",
		TokenEpoch:   1,
		Status:       domain.UserStatusActive,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func testTriple() *ports.TokenTriple {
	return &ports.TokenTriple{
		AccessToken:   "access.jwt",
		RefreshToken:  "refresh.jwt",
		TempToken:     "temp.jwt",
		AccessExpiry:  time.Now().Add(15 * time.Minute),
		RefreshExpiry: time.Now().Add(7 * 24 * time.Hour),
	}
}

func TestAuthService_Register(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	req := ports.RegisterRequest{
		Email:     "bob@example.com",
		Password:  "str0ng-passphrase",
		FirstName: "Bob",
		LastName:  "Tran",
	}

	deps.userRepo.EXPECT().GetByEmail(ctx, req.Email).Return(nil, nil)
	deps.hashSvc.EXPECT().Hash(req.Password).Return("$argon2id$hash", nil)
	deps.userRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, u *domain.User) error {
			assert.Equal(t, req.Email, u.Email)
			assert.Equal(t, "$argon2id$hash", u.PasswordHash)
			assert.Equal(t, domain.UserStatusActive, u.Status)
			return nil
		})
	deps.walletRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, w *domain.Wallet) error {
			assert.True(t, w.Balance.IsZero(), "wallets start empty")
			assert.Equal(t, "USD", w.Currency)
			assert.Equal(t, int64(1), w.Version)
			return nil
		})
	deps.verifyStore.EXPECT().Save(ctx, gomock.Any(), gomock.Any(), 24*time.Hour).Return(nil)

	resp, err := svc.Register(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, resp.UserID)
}

func TestAuthService_Register_EmailExists(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()

	deps.userRepo.EXPECT().GetByEmail(ctx, "taken@example.com").Return(activeUser(), nil)

	_, err := svc.Register(ctx, ports.RegisterRequest{Email: "taken@example.com", Password: "pw"})
	requireAppErrorCode(t, err, "AUTH_002")
}

func TestAuthService_Register_LosesCreateRace(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()

	deps.userRepo.EXPECT().GetByEmail(ctx, "race@example.com").Return(nil, nil)
	deps.hashSvc.EXPECT().Hash(gomock.Any()).Return("$argon2id$hash", nil)
	deps.userRepo.EXPECT().Create(ctx, gomock.Any()).Return(ports.ErrDuplicateKey)

	_, err := svc.Register(ctx, ports.RegisterRequest{Email: "race@example.com", Password: "pw"})
	requireAppErrorCode(t, err, "AUTH_002")
}

func TestAuthService_Login(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()
	req := ports.LoginRequest{
		Email:           user.Email,
		Password:        "correct",
		ClientIP:        "203.0.113.7",
		DeviceSignature: "Mozilla/5.0|203.0.113.7",
	}

	deps.attemptStore.EXPECT().Count(ctx, user.Email).Return(int64(0), nil)
	deps.userRepo.EXPECT().GetByEmail(ctx, user.Email).Return(user, nil)
	deps.hashSvc.EXPECT().Verify("correct", user.PasswordHash).Return(true, nil)
	deps.attemptStore.EXPECT().Clear(ctx, user.Email).Return(nil)
	deps.userRepo.EXPECT().ResetLoginState(ctx, user.ID).Return(nil)
	deps.userRepo.EXPECT().RecordLogin(ctx, user.ID, req.ClientIP, gomock.Any()).Return(nil)
	deps.tokenSvc.EXPECT().DeviceID(req.DeviceSignature).Return("dev123456789abcd")
	deps.tokenSvc.EXPECT().Generate(user, "dev123456789abcd").Return(testTriple(), nil)
	deps.hashSvc.EXPECT().Hash("refresh.jwt").Return("fingerprint", nil)
	deps.refreshStore.EXPECT().
		Save(ctx, user.ID, "dev123456789abcd", "fingerprint", 7*24*time.Hour).
		Return(nil)

	result, err := svc.Login(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.RequiresMFA)
	assert.Equal(t, "access.jwt", result.AccessToken)
	assert.Equal(t, "refresh.jwt", result.RefreshToken)
	assert.Empty(t, result.TempToken)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()

	deps.attemptStore.EXPECT().Count(ctx, "ghost@example.com").Return(int64(0), nil)
	deps.userRepo.EXPECT().GetByEmail(ctx, "ghost@example.com").Return(nil, nil)
	// Unknown emails still feed the counter so probing looks identical.
	deps.attemptStore.EXPECT().
		Increment(ctx, "ghost@example.com", 15*time.Minute).
		Return(int64(1), nil)

	_, err := svc.Login(ctx, ports.LoginRequest{Email: "ghost@example.com", Password: "pw"})
	requireAppErrorCode(t, err, "AUTH_001")
}

func TestAuthService_Login_BadPassword(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()

	deps.attemptStore.EXPECT().Count(ctx, user.Email).Return(int64(1), nil)
	deps.userRepo.EXPECT().GetByEmail(ctx, user.Email).Return(user, nil)
	deps.hashSvc.EXPECT().Verify("wrong", user.PasswordHash).Return(false, nil)
	deps.attemptStore.EXPECT().Increment(ctx, user.Email, 15*time.Minute).Return(int64(2), nil)
	deps.userRepo.EXPECT().
		RecordFailedLogin(ctx, user.ID, 5, 15*time.Minute).
		Return(2, nil)

	_, err := svc.Login(ctx, ports.LoginRequest{Email: user.Email, Password: "wrong"})
	requireAppErrorCode(t, err, "AUTH_001")
}

func TestAuthService_Login_LockoutAtThreshold(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()

	deps.attemptStore.EXPECT().Count(ctx, user.Email).Return(int64(4), nil)
	deps.userRepo.EXPECT().GetByEmail(ctx, user.Email).Return(user, nil)
	deps.hashSvc.EXPECT().Verify("wrong", user.PasswordHash).Return(false, nil)
	deps.attemptStore.EXPECT().Increment(ctx, user.Email, 15*time.Minute).Return(int64(5), nil)
	deps.userRepo.EXPECT().
		RecordFailedLogin(ctx, user.ID, 5, 15*time.Minute).
		Return(5, nil)

	// The threshold attempt applies the lock but does not announce it;
	// the answer is indistinguishable from any other bad password.
	_, err := svc.Login(ctx, ports.LoginRequest{Email: user.Email, Password: "wrong"})
	requireAppErrorCode(t, err, "AUTH_001")
}

func TestAuthService_Login_SharedCounterExhausted(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()

	// Counter at the limit: refused before any user lookup or password
	// check, even with correct credentials.
	deps.attemptStore.EXPECT().Count(ctx, user.Email).Return(int64(5), nil)

	_, err := svc.Login(ctx, ports.LoginRequest{Email: user.Email, Password: "correct"})
	requireAppErrorCode(t, err, "RATE_001")
}

func TestAuthService_Login_LockedAccount(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()
	until := time.Now().Add(10 * time.Minute)
	user.LockedUntil = &until

	deps.attemptStore.EXPECT().Count(ctx, user.Email).Return(int64(0), nil)
	deps.userRepo.EXPECT().GetByEmail(ctx, user.Email).Return(user, nil)

	// No password check happens while the lock holds.
	_, err := svc.Login(ctx, ports.LoginRequest{Email: user.Email, Password: "correct"})
	requireAppErrorCode(t, err, "AUTH_004")
}

func TestAuthService_Login_ExpiredLockAdmits(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()
	until := time.Now().Add(-time.Minute)
	user.LockedUntil = &until

	deps.attemptStore.EXPECT().Count(ctx, user.Email).Return(int64(0), nil)
	deps.userRepo.EXPECT().GetByEmail(ctx, user.Email).Return(user, nil)
	deps.hashSvc.EXPECT().Verify("correct", user.PasswordHash).Return(true, nil)
	deps.attemptStore.EXPECT().Clear(ctx, user.Email).Return(nil)
	deps.userRepo.EXPECT().ResetLoginState(ctx, user.ID).Return(nil)
	deps.userRepo.EXPECT().RecordLogin(ctx, user.ID, gomock.Any(), gomock.Any()).Return(nil)
	deps.tokenSvc.EXPECT().DeviceID(gomock.Any()).Return("dev")
	deps.tokenSvc.EXPECT().Generate(user, "dev").Return(testTriple(), nil)
	deps.hashSvc.EXPECT().Hash("refresh.jwt").Return("fp", nil)
	deps.refreshStore.EXPECT().Save(ctx, user.ID, "dev", "fp", gomock.Any()).Return(nil)

	_, err := svc.Login(ctx, ports.LoginRequest{Email: user.Email, Password: "correct"})
	require.NoError(t, err)
}

func TestAuthService_Login_SuspendedAccount(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()
	user.Status = domain.UserStatusSuspended

	deps.attemptStore.EXPECT().Count(ctx, user.Email).Return(int64(0), nil)
	deps.userRepo.EXPECT().GetByEmail(ctx, user.Email).Return(user, nil)

	_, err := svc.Login(ctx, ports.LoginRequest{Email: user.Email, Password: "correct"})
	requireAppErrorCode(t, err, "AUTH_001")
}

func TestAuthService_Login_MFARequired(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()
	user.MFAEnabled = true

	deps.attemptStore.EXPECT().Count(ctx, user.Email).Return(int64(0), nil)
	deps.userRepo.EXPECT().GetByEmail(ctx, user.Email).Return(user, nil)
	deps.hashSvc.EXPECT().Verify("correct", user.PasswordHash).Return(true, nil)
	deps.attemptStore.EXPECT().Clear(ctx, user.Email).Return(nil)
	deps.userRepo.EXPECT().ResetLoginState(ctx, user.ID).Return(nil)
	deps.userRepo.EXPECT().RecordLogin(ctx, user.ID, gomock.Any(), gomock.Any()).Return(nil)
	deps.tokenSvc.EXPECT().DeviceID(gomock.Any()).Return("dev")
	deps.tokenSvc.EXPECT().Generate(user, "dev").Return(testTriple(), nil)

	result, err := svc.Login(ctx, ports.LoginRequest{Email: user.Email, Password: "correct"})
	require.NoError(t, err)
	assert.True(t, result.RequiresMFA)
	assert.Equal(t, "temp.jwt", result.TempToken)
	assert.Empty(t, result.AccessToken, "no session before the second factor")
	assert.Empty(t, result.RefreshToken)
}

func TestAuthService_CompleteMFALogin(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()
	user.MFAEnabled = true
	enc := "encrypted-secret"
	user.MFASecretEnc = &enc

	deps.tokenSvc.EXPECT().Validate("temp.jwt", ports.TokenClassTemp).
		Return(&ports.TokenClaims{UserID: user.ID, TokenEpoch: 1}, nil)
	deps.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)
	deps.cryptoSvc.EXPECT().Decrypt(enc).Return("JBSWY3DPEHPK3PXP", nil)
	deps.totpSvc.EXPECT().Verify("JBSWY3DPEHPK3PXP", "123456", gomock.Any()).Return(true)
	deps.tokenSvc.EXPECT().DeviceID("sig").Return("dev")
	deps.tokenSvc.EXPECT().Generate(user, "dev").Return(testTriple(), nil)
	deps.hashSvc.EXPECT().Hash("refresh.jwt").Return("fp", nil)
	deps.refreshStore.EXPECT().Save(ctx, user.ID, "dev", "fp", gomock.Any()).Return(nil)

	result, err := svc.CompleteMFALogin(ctx, "temp.jwt", "123456", "sig")
	require.NoError(t, err)
	assert.Equal(t, "access.jwt", result.AccessToken)
}

func TestAuthService_CompleteMFALogin_WrongCode(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()
	user.MFAEnabled = true
	enc := "encrypted-secret"
	user.MFASecretEnc = &enc

	deps.tokenSvc.EXPECT().Validate("temp.jwt", ports.TokenClassTemp).
		Return(&ports.TokenClaims{UserID: user.ID}, nil)
	deps.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)
	deps.cryptoSvc.EXPECT().Decrypt(enc).Return("JBSWY3DPEHPK3PXP", nil)
	deps.totpSvc.EXPECT().Verify("JBSWY3DPEHPK3PXP", "000000", gomock.Any()).Return(false)

	_, err := svc.CompleteMFALogin(ctx, "temp.jwt", "000000", "sig")
	requireAppErrorCode(t, err, "AUTH_006")
}

func TestAuthService_CompleteMFALogin_AccessTokenRejected(t *testing.T) {
	svc, deps := setupAuthService(t)

	// An access token is not a temp token; the class secret differs.
	deps.tokenSvc.EXPECT().Validate("access.jwt", ports.TokenClassTemp).
		Return(nil, assert.AnError)

	_, err := svc.CompleteMFALogin(context.Background(), "access.jwt", "123456", "sig")
	requireAppErrorCode(t, err, "AUTH_003")
}

func TestAuthService_Refresh(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()

	deps.tokenSvc.EXPECT().Validate("refresh.jwt", ports.TokenClassRefresh).
		Return(&ports.TokenClaims{UserID: user.ID, DeviceID: "dev", TokenEpoch: 1}, nil)
	deps.tokenSvc.EXPECT().DeviceID("sig").Return("dev")
	deps.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)
	deps.refreshStore.EXPECT().Get(ctx, user.ID, "dev").Return("stored-fp", nil)
	deps.hashSvc.EXPECT().Verify("refresh.jwt", "stored-fp").Return(true, nil)

	rotated := testTriple()
	rotated.RefreshToken = "refresh2.jwt"
	deps.tokenSvc.EXPECT().Generate(user, "dev").Return(rotated, nil)
	deps.hashSvc.EXPECT().Hash("refresh2.jwt").Return("fp2", nil)
	deps.refreshStore.EXPECT().Save(ctx, user.ID, "dev", "fp2", gomock.Any()).Return(nil)

	triple, err := svc.Refresh(ctx, "refresh.jwt", "sig")
	require.NoError(t, err)
	assert.Equal(t, "refresh2.jwt", triple.RefreshToken, "rotation issues a new refresh token")
}

func TestAuthService_Refresh_ReuseRevokesSession(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()

	deps.tokenSvc.EXPECT().Validate("old-refresh.jwt", ports.TokenClassRefresh).
		Return(&ports.TokenClaims{UserID: user.ID, DeviceID: "dev", TokenEpoch: 1}, nil)
	deps.tokenSvc.EXPECT().DeviceID("sig").Return("dev")
	deps.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)
	deps.refreshStore.EXPECT().Get(ctx, user.ID, "dev").Return("current-fp", nil)
	// The presented token was already rotated out; its fingerprint no
	// longer matches, so the whole device session is revoked.
	deps.hashSvc.EXPECT().Verify("old-refresh.jwt", "current-fp").Return(false, nil)
	deps.refreshStore.EXPECT().Delete(ctx, user.ID, "dev").Return(nil)

	_, err := svc.Refresh(ctx, "old-refresh.jwt", "sig")
	requireAppErrorCode(t, err, "AUTH_003")
}

func TestAuthService_Refresh_EpochMismatch(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()
	user.TokenEpoch = 2 // bumped by a logout-all after this token was minted

	deps.tokenSvc.EXPECT().Validate("refresh.jwt", ports.TokenClassRefresh).
		Return(&ports.TokenClaims{UserID: user.ID, DeviceID: "dev", TokenEpoch: 1}, nil)
	deps.tokenSvc.EXPECT().DeviceID("sig").Return("dev")
	deps.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)

	_, err := svc.Refresh(ctx, "refresh.jwt", "sig")
	requireAppErrorCode(t, err, "AUTH_003")
}

func TestAuthService_Refresh_DeviceMismatch(t *testing.T) {
	svc, deps := setupAuthService(t)
	user := activeUser()

	deps.tokenSvc.EXPECT().Validate("refresh.jwt", ports.TokenClassRefresh).
		Return(&ports.TokenClaims{UserID: user.ID, DeviceID: "dev-a", TokenEpoch: 1}, nil)
	deps.tokenSvc.EXPECT().DeviceID("other-sig").Return("dev-b")

	_, err := svc.Refresh(context.Background(), "refresh.jwt", "other-sig")
	requireAppErrorCode(t, err, "AUTH_003")
}

func TestAuthService_Refresh_NoStoredFingerprint(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()

	deps.tokenSvc.EXPECT().Validate("refresh.jwt", ports.TokenClassRefresh).
		Return(&ports.TokenClaims{UserID: user.ID, DeviceID: "dev", TokenEpoch: 1}, nil)
	deps.tokenSvc.EXPECT().DeviceID("sig").Return("dev")
	deps.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)
	deps.refreshStore.EXPECT().Get(ctx, user.ID, "dev").Return("", nil)

	_, err := svc.Refresh(ctx, "refresh.jwt", "sig")
	requireAppErrorCode(t, err, "AUTH_003")
}

func TestAuthService_Logout(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	userID := uuid.New()

	deps.tokenSvc.EXPECT().DeviceID("sig").Return("dev")
	deps.refreshStore.EXPECT().Delete(ctx, userID, "dev").Return(nil)

	require.NoError(t, svc.Logout(ctx, userID, "sig"))
}

func TestAuthService_LogoutAll(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	userID := uuid.New()

	deps.userRepo.EXPECT().IncrementTokenEpoch(ctx, userID).Return(int64(2), nil)
	deps.refreshStore.EXPECT().DeleteAll(ctx, userID).Return(3, nil)

	require.NoError(t, svc.LogoutAll(ctx, userID))
}

func TestAuthService_EnrollMFA(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()

	deps.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)
	deps.totpSvc.EXPECT().GenerateSecret().Return("JBSWY3DPEHPK3PXP", nil)
	deps.mfaStore.EXPECT().Save(ctx, user.ID, "JBSWY3DPEHPK3PXP", 5*time.Minute).Return(nil)
	deps.totpSvc.EXPECT().ProvisionURI("JBSWY3DPEHPK3PXP", user.Email).
		Return("otpauth://totp/spay-platform:alice@example.com?...")

	enrollment, err := svc.EnrollMFA(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", enrollment.Secret)
	assert.Contains(t, enrollment.ProvisionURI, "otpauth://totp/")
}

func TestAuthService_EnrollMFA_AlreadyEnabled(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()
	user.MFAEnabled = true

	deps.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)

	_, err := svc.EnrollMFA(ctx, user.ID)
	requireAppErrorCode(t, err, "PAY_002")
}

func TestAuthService_VerifyMFA_Setup(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	userID := uuid.New()

	deps.mfaStore.EXPECT().Get(ctx, userID).Return("JBSWY3DPEHPK3PXP", nil)
	deps.totpSvc.EXPECT().Verify("JBSWY3DPEHPK3PXP", "123456", gomock.Any()).Return(true)
	deps.cryptoSvc.EXPECT().Encrypt("JBSWY3DPEHPK3PXP").Return("encrypted", nil)
	deps.userRepo.EXPECT().EnableMFA(ctx, userID, "encrypted").Return(nil)
	deps.mfaStore.EXPECT().Delete(ctx, userID).Return(nil)

	require.NoError(t, svc.VerifyMFA(ctx, userID, "123456", true))
}

func TestAuthService_VerifyMFA_SetupExpired(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	userID := uuid.New()

	deps.mfaStore.EXPECT().Get(ctx, userID).Return("", nil)

	err := svc.VerifyMFA(ctx, userID, "123456", true)
	requireAppErrorCode(t, err, "AUTH_005")
}

func TestAuthService_VerifyMFA_SetupWrongCode(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	userID := uuid.New()

	deps.mfaStore.EXPECT().Get(ctx, userID).Return("JBSWY3DPEHPK3PXP", nil)
	deps.totpSvc.EXPECT().Verify("JBSWY3DPEHPK3PXP", "000000", gomock.Any()).Return(false)

	err := svc.VerifyMFA(ctx, userID, "000000", true)
	requireAppErrorCode(t, err, "AUTH_006")
}

func TestAuthService_VerifyMFA_Enabled(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()
	user.MFAEnabled = true
	enc := "encrypted"
	user.MFASecretEnc = &enc

	deps.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)
	deps.cryptoSvc.EXPECT().Decrypt(enc).Return("JBSWY3DPEHPK3PXP", nil)
	deps.totpSvc.EXPECT().Verify("JBSWY3DPEHPK3PXP", "123456", gomock.Any()).Return(true)

	require.NoError(t, svc.VerifyMFA(ctx, user.ID, "123456", false))
}

func TestAuthService_ValidateAccessToken(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()

	deps.tokenSvc.EXPECT().Validate("access.jwt", ports.TokenClassAccess).
		Return(&ports.TokenClaims{UserID: user.ID, TokenEpoch: 1}, nil)
	deps.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)

	got, err := svc.ValidateAccessToken(ctx, "access.jwt")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestAuthService_ValidateAccessToken_StaleEpoch(t *testing.T) {
	svc, deps := setupAuthService(t)
	ctx := context.Background()
	user := activeUser()
	user.TokenEpoch = 5

	deps.tokenSvc.EXPECT().Validate("access.jwt", ports.TokenClassAccess).
		Return(&ports.TokenClaims{UserID: user.ID, TokenEpoch: 4}, nil)
	deps.userRepo.EXPECT().GetByID(ctx, user.ID).Return(user, nil)

	_, err := svc.ValidateAccessToken(ctx, "access.jwt")
	requireAppErrorCode(t, err, "AUTH_003")
}
