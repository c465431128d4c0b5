package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/luckynumbers/api/internal/auth"
	"github.com/luckynumbers/api/internal/background"
	"github.com/luckynumbers/api/internal/config"
	"github.com/luckynumbers/api/internal/database"
	"github.com/luckynumbers/api/internal/handlers"
	middlewareCustom "github.com/luckynumbers/api/internal/middleware"
	"github.com/luckynumbers/api/internal/models"
	"github.com/luckynumbers/api/internal/realtime"
	"github.com/luckynumbers/api/internal/repositories"
	"github.com/luckynumbers/api/internal/routes"
	"github.com/luckynumbers/api/internal/services"
	pkgauth "github.com/luckynumbers/api/pkg/auth"
	pkglogger "github.com/luckynumbers/api/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	adminRepo := repositories.NewAdminRepository(db)
	resultRepo := repositories.NewResultRepository(db)

	// Auth building blocks
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	totpManager := auth.NewTOTPManager(cfg.Auth.TOTPIssuer)
	auditLogger := pkglogger.NewAuditLogger(logger)
	clock := services.SystemClock()

	// Abuse protection: failed-attempt tracking plus per-class rate windows
	tracker := services.NewAbuseTracker(services.AbuseConfig{
		MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
		BlockDuration:     cfg.Auth.BlockDuration,
	}, clock, logger)

	limiter := services.NewRateLimitService(services.RateLimitConfig{
		Login:  services.WindowConfig{Window: cfg.Auth.LoginWindow, Max: cfg.Auth.LoginMax},
		Admin:  services.WindowConfig{Window: cfg.Auth.AdminWindow, Max: cfg.Auth.AdminMax},
		Public: services.WindowConfig{Window: cfg.Auth.PublicWindow, Max: cfg.Auth.PublicMax},
	}, clock, logger)

	cleanupManager := background.NewCleanupManager(logger, cfg.Auth.SweepInterval, tracker, limiter)

	// AWS SES email sender
	emailSender, err := services.NewAWSSESEmailSender(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
	if err != nil {
		logger.Error("failed to initialize email sender", slog.Any("error", err))
		os.Exit(1)
	}

	// Realtime result updates
	hub := realtime.NewHub(logger)

	// Initialize services
	authService := services.NewAuthService(
		adminRepo,
		tokenManager,
		totpManager,
		tracker,
		emailSender,
		clock,
		logger,
		auditLogger,
		cfg.Auth.ResetTokenExpiry,
		cfg.Email.ResetURLBase,
	)
	resultService := services.NewResultService(resultRepo, hub, clock, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	resultHandler := handlers.NewResultHandler(resultService)

	// Bootstrap the admin account if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdmin(ctx, adminRepo, &cfg.Auth, logger); err != nil {
		logger.Error("failed to ensure admin account", slog.Any("error", err))
	}
	cancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.GlobalFloodGuard(300))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, resultHandler, tokenManager, limiter, tracker, auditLogger, hub)

	// Health check with database
	router.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","database":"up","total_conns":%d}`, db.Stats().TotalConns())
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start abuse-protection sweep task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdmin creates the admin account if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdmin(ctx context.Context, adminRepo *repositories.AdminRepository, authCfg *config.AuthConfig, logger *slog.Logger) error {
	if authCfg.AdminEmail == "" || authCfg.AdminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin account creation")
		return nil
	}

	// Check if the account already exists
	_, err := adminRepo.GetByEmail(ctx, authCfg.AdminEmail)
	if err == nil {
		logger.Info("admin account already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(authCfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.Admin{
		Email:        authCfg.AdminEmail,
		PasswordHash: hashedPassword,
		Name:         "Admin",
		Role:         "admin",
	}

	if _, err := adminRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	logger.Info("admin account created successfully")
	return nil
}
