package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/nornex-as/portal/internal/auth"
	"github.com/nornex-as/portal/internal/background"
	"github.com/nornex-as/portal/internal/config"
	"github.com/nornex-as/portal/internal/database"
	"github.com/nornex-as/portal/internal/handlers"
	"github.com/nornex-as/portal/internal/middleware"
	"github.com/nornex-as/portal/internal/repositories"
	"github.com/nornex-as/portal/internal/routes"
	"github.com/nornex-as/portal/internal/services"
	pkghttp "github.com/nornex-as/portal/pkg/http"
	pkglogger "github.com/nornex-as/portal/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer redisClient.Close()

	// Repositories
	customerRepo := repositories.NewCustomerRepository(db)
	addressRepo := repositories.NewAddressRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	revokeRepo := repositories.NewTokenRevocationRepository(db)
	sessionRepo := repositories.NewSessionRepository(redisClient, cfg.Auth.SessionTTL)

	cleanupManager := background.NewCleanupManager(revokeRepo, notificationRepo, logger, cfg.Auth.CleanupInterval)

	// Token manager with composite per-customer signing
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)
	tokenManager.SetCustomerRepo(customerRepo)

	totpManager, err := auth.NewTOTPManager(cfg.Auth.TOTPEncryptionKey, cfg.Auth.TOTPIssuer)
	if err != nil {
		logger.Error("failed to initialize TOTP manager", slog.Any("error", err))
		os.Exit(1)
	}

	auditLogger := pkglogger.NewAuditLogger(logger)

	emailService, err := services.NewAWSSESEmailService(
		cfg.Email.AWSRegion,
		cfg.Email.FromAddress,
		cfg.Email.PortalURL,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	// Services
	notificationService := services.NewNotificationService(notificationRepo, logger)
	authService := services.NewAuthService(customerRepo, sessionRepo, revokeRepo, tokenManager, totpManager, notificationService, logger, auditLogger, cfg.Server.Env)
	accountService := services.NewAccountService(customerRepo, addressRepo, logger)
	sessionService := services.NewSessionService(sessionRepo, logger)
	passwordService := services.NewPasswordService(
		customerRepo,
		sessionRepo,
		emailService,
		redisClient,
		services.PINConfig{
			Length:      cfg.Auth.PINLength,
			TTL:         cfg.Auth.PINExpiry,
			MaxAttempts: cfg.Auth.PINMaxAttempts,
		},
		notificationService,
		logger,
		auditLogger,
	)
	authService.SetPINCanceler(passwordService)
	mfaService := services.NewMFAService(customerRepo, totpManager, logger, auditLogger)
	companyLookup := services.NewCompanyLookupService(cfg.Server.CompanyRegistryURL, logger)

	// Handlers
	// Loopback and RFC 1918 ranges cover the usual reverse-proxy setups
	ipConfig := &pkghttp.IPConfig{
		TrustedProxies: []string{"127.0.0.1/32", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
	}
	h := routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService, ipConfig),
		Account:      handlers.NewAccountHandler(accountService),
		Address:      handlers.NewAddressHandler(accountService),
		Notification: handlers.NewNotificationHandler(notificationService),
		Session:      handlers.NewSessionHandler(sessionService),
		Password:     handlers.NewPasswordHandler(passwordService),
		MFA:          handlers.NewMFAHandler(mfaService),
		Company:      handlers.NewCompanyHandler(companyLookup),
	}

	corsConfig := middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middleware.CORS(corsConfig))
	router.Use(middleware.SecureLogger(logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, h, tokenManager, revokeRepo)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")

		if err := db.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","redis":"down"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

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
