package handler

import (
	"net/http"

	"spay-platform/internal/adapter/http/dto"
	"spay-platform/internal/adapter/http/middleware"
	"spay-platform/internal/core/ports"
	"spay-platform/pkg/apperror"
	"spay-platform/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthHandler handles authentication and session endpoints.
type AuthHandler struct {
	authSvc ports.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc ports.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.authSvc.Register(c.Request.Context(), ports.RegisterRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.RegisterResponse{UserID: result.UserID.String()})
}

// Login handles POST /api/v1/auth/login. Accounts with MFA enabled get a
// temporary token instead of a session; the session is issued by MFALogin.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.authSvc.Login(c.Request.Context(), ports.LoginRequest{
		Email:           req.Email,
		Password:        req.Password,
		ClientIP:        c.ClientIP(),
		DeviceSignature: middleware.DeviceSignature(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.RequiresMFA {
		response.OK(c, dto.LoginResponse{RequiresMFA: true, TempToken: result.TempToken})
		return
	}

	response.OK(c, dto.LoginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    result.AccessExpiry.Unix(),
	})
}

// MFALogin handles POST /api/v1/auth/mfa/login.
func (h *AuthHandler) MFALogin(c *gin.Context) {
	var req dto.MFALoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.authSvc.CompleteMFALogin(c.Request.Context(), req.TempToken, req.Code, middleware.DeviceSignature(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LoginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    result.AccessExpiry.Unix(),
	})
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	triple, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken, middleware.DeviceSignature(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.RefreshResponse{
		AccessToken:  triple.AccessToken,
		RefreshToken: triple.RefreshToken,
		ExpiresAt:    triple.AccessExpiry.Unix(),
	})
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), userID.(uuid.UUID), middleware.DeviceSignature(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"message": "logged out"})
}

// LogoutAll handles POST /api/v1/auth/logout-all.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	if err := h.authSvc.LogoutAll(c.Request.Context(), userID.(uuid.UUID)); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"message": "all sessions revoked"})
}

// EnrollMFA handles POST /api/v1/auth/mfa/enroll.
func (h *AuthHandler) EnrollMFA(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	enrollment, err := h.authSvc.EnrollMFA(c.Request.Context(), userID.(uuid.UUID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.MFAEnrollResponse{
		Secret:       enrollment.Secret,
		ProvisionURI: enrollment.ProvisionURI,
	})
}

// VerifyMFA handles POST /api/v1/auth/mfa/verify. It confirms possession of
// the pending enrollment secret and switches MFA on.
func (h *AuthHandler) VerifyMFA(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	var req dto.MFAVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.authSvc.VerifyMFA(c.Request.Context(), userID.(uuid.UUID), req.Code, true); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"message": "MFA enabled"})
}

// HealthCheck handles GET /health. It is deep: every dependency is pinged.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
