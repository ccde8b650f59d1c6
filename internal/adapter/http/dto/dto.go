package dto

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
	FirstName string `json:"first_name" binding:"required,min=1,max=50"`
	LastName  string `json:"last_name" binding:"required,min=1,max=50"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	UserID string `json:"user_id"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response body for login. When MFA is required only
// requires_mfa and temp_token are populated.
type LoginResponse struct {
	RequiresMFA  bool   `json:"requires_mfa"`
	TempToken    string `json:"temp_token,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"` // Unix timestamp
}

// MFALoginRequest completes a login that required a second factor.
type MFALoginRequest struct {
	TempToken string `json:"temp_token" binding:"required"`
	Code      string `json:"code" binding:"required,totp_code"`
}

// RefreshRequest is the request body for token rotation.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshResponse carries the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // Unix timestamp
}

// MFAEnrollResponse is the response for MFA enrollment.
type MFAEnrollResponse struct {
	Secret       string `json:"secret"`
	ProvisionURI string `json:"provision_uri"`
}

// MFAVerifyRequest is the request body for MFA code verification.
type MFAVerifyRequest struct {
	Code string `json:"code" binding:"required,totp_code"`
}

// SendMoneyRequest is the request body for a transfer. The idempotency key
// travels in the Idempotency-Key header, not the body.
type SendMoneyRequest struct {
	ToUserID    string  `json:"to_user_id" binding:"required,uuid"`
	Amount      string  `json:"amount" binding:"required,max=32"`
	Currency    string  `json:"currency" binding:"omitempty,len=3"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=255"`
}

// TopupRequest is the request body for wallet topup.
type TopupRequest struct {
	Amount string `json:"amount" binding:"required,max=32"`
}

// PaymentResponse is the response body for a payment.
type PaymentResponse struct {
	ID          string  `json:"id"`
	Reference   string  `json:"reference"`
	FromUserID  string  `json:"from_user_id"`
	ToUserID    string  `json:"to_user_id"`
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	Status      string  `json:"status"`
	Description *string `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// PaymentListResponse wraps a payment history.
type PaymentListResponse struct {
	Items []PaymentResponse `json:"items"`
	Total int               `json:"total"`
}

// WalletResponse is the response body for a wallet read.
type WalletResponse struct {
	WalletNumber string `json:"wallet_number"`
	Balance      string `json:"balance"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}
