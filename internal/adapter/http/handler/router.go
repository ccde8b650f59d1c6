package handler

import (
	"spay-platform/internal/adapter/http/middleware"
	redisStore "spay-platform/internal/adapter/storage/redis"
	"spay-platform/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	WalletSvc      ports.WalletService
	PaymentSvc     ports.PaymentService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep: verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
		auth.POST("/mfa/login", rl("auth_mfa"), authHandler.MFALogin)
		auth.POST("/refresh", rl("auth_refresh"), authHandler.Refresh)
	}

	// --- Bearer-authenticated routes ---
	bearerAuth := middleware.BearerAuth(deps.AuthSvc, deps.Logger)

	session := v1.Group("/auth", bearerAuth)
	{
		session.POST("/logout", authHandler.Logout)
		session.POST("/logout-all", authHandler.LogoutAll)
		session.POST("/mfa/enroll", rl("auth_mfa"), authHandler.EnrollMFA)
		session.POST("/mfa/verify", rl("auth_mfa"), authHandler.VerifyMFA)
	}

	paymentHandler := NewPaymentHandler(deps.PaymentSvc)
	payments := v1.Group("/payments", bearerAuth)
	{
		payments.POST("", rl("payments"), paymentHandler.SendMoney)
		payments.GET("/history", rl("payments"), paymentHandler.GetHistory)
	}

	walletHandler := NewWalletHandler(deps.WalletSvc)
	wallets := v1.Group("/wallets", bearerAuth)
	{
		wallets.GET("/me", rl("wallets"), walletHandler.GetWallet)
		wallets.POST("/topup", rl("wallets"), walletHandler.Topup)
	}

	return r
}
