package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/promokit/promo-redeem/internal/auth"
	"github.com/promokit/promo-redeem/internal/cache"
	"github.com/promokit/promo-redeem/internal/captcha"
	"github.com/promokit/promo-redeem/internal/clock"
	"github.com/promokit/promo-redeem/internal/config"
	"github.com/promokit/promo-redeem/internal/handler"
	"github.com/promokit/promo-redeem/internal/mailer"
	"github.com/promokit/promo-redeem/internal/repository"
	"github.com/promokit/promo-redeem/internal/service"
	"github.com/promokit/promo-redeem/internal/validator"
	"github.com/promokit/promo-redeem/pkg/database"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Initialize Fiber with production-ready configuration. The body limit
	// accommodates large CSV uploads.
	app := fiber.New(fiber.Config{
		AppName:      "Promo Redeem Service",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    20 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Shared infrastructure
	validate := validator.New()
	clk := clock.New()
	jobCache := cache.NewMemoryJobCache()
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())

	var verifier captcha.Verifier
	if cfg.Captcha.Disabled {
		log.Warn().Msg("captcha verification is disabled")
		verifier = captcha.AlwaysPass{}
	} else {
		verifier = captcha.NewHTTPVerifier(cfg.Captcha.Secret, cfg.Captcha.VerifyURL)
	}

	var mail mailer.Mailer
	if cfg.SMTP.Host == "" {
		log.Warn().Msg("no smtp host configured, login codes will be logged")
		mail = mailer.LogMailer{}
	} else {
		mail = mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass, cfg.SMTP.From)
	}

	// Repositories
	codeRepo := repository.NewCodeRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	bruteForceRepo := repository.NewBruteForceRepository(pool)
	jobRepo := repository.NewImportJobRepository(pool)

	// Services
	guard := service.NewGuardService(bruteForceRepo, clk, cfg.Redeem.MaxAttempts, cfg.Redeem.BlockDuration())
	redeemService := service.NewRedeemService(codeRepo, settingsRepo, guard, clk)
	importService := service.NewImportService(jobRepo, codeRepo, jobCache, clk, cfg.Import.ChunkSize, cfg.Import.ChunkDelay())
	settingsService := service.NewSettingsService(settingsRepo)
	codesService := service.NewCodesService(codeRepo)
	authService := service.NewAuthService(mail, tokens, clk, cfg.Auth.AdminEmail)

	// Handlers
	redeemHandler := handler.NewRedeemHandler(redeemService, verifier, validate)
	settingsHandler := handler.NewSettingsHandler(settingsService)
	importHandler := handler.NewImportHandler(importService, validate)
	codesHandler := handler.NewCodesHandler(codesService)
	authHandler := handler.NewAuthHandler(authService, validate)
	healthHandler := handler.NewHealthHandler(pool)

	// Public routes
	app.Get("/health", healthHandler.Check)
	app.Post("/api/redeem", redeemHandler.Redeem)
	app.Get("/api/settings", settingsHandler.Get)
	app.Post("/api/admin/login/request", authHandler.RequestCode)
	app.Post("/api/admin/login/verify", authHandler.VerifyCode)

	// Authenticated admin routes
	admin := app.Group("/api/admin", handler.RequireAdmin(tokens))
	admin.Post("/settings", settingsHandler.Update)
	admin.Post("/codes/import", importHandler.Upload)
	admin.Get("/codes/import/:jobID", importHandler.Status)
	admin.Get("/codes", codesHandler.List)
	admin.Get("/codes/export", codesHandler.Export)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close database pool AFTER server shutdown (even if shutdown timed out)
	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("database connections closed")
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
