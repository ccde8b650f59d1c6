package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spay-platform/config"
	httpHandler "spay-platform/internal/adapter/http/handler"
	pgStorage "spay-platform/internal/adapter/storage/postgres"
	redisStorage "spay-platform/internal/adapter/storage/redis"
	"spay-platform/internal/core/ports"
	"spay-platform/internal/service"
	"spay-platform/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting SPay Platform")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	userRepo := pgStorage.NewUserRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	paymentRepo := pgStorage.NewPaymentRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	attemptStore := redisStorage.NewLoginAttemptStore(rdb)
	refreshStore := redisStorage.NewRefreshTokenStore(rdb)
	mfaStore := redisStorage.NewMFASetupStore(rdb)
	verifyStore := redisStorage.NewVerificationStore(rdb)
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	cryptoSvc, err := service.NewAESCryptoService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize crypto service")
	}
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT)
	totpSvc := service.NewTOTPService(cfg.JWT.Issuer)

	// Initialize business services
	authSvc := service.NewAuthService(
		userRepo,
		walletRepo,
		hashSvc,
		cryptoSvc,
		tokenSvc,
		totpSvc,
		attemptStore,
		refreshStore,
		mfaStore,
		verifyStore,
		cfg.Auth,
		cfg.JWT,
		log,
	)
	walletSvc := service.NewWalletService(walletRepo, transactor, log)
	paymentSvc := service.NewPaymentService(
		paymentRepo,
		walletRepo,
		walletSvc,
		idempotencyCache,
		transactor,
		cfg.Payment,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		WalletSvc:      walletSvc,
		PaymentSvc:     paymentSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
