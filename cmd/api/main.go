package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/rollcall-app/rollcall/internal/background"
	"github.com/rollcall-app/rollcall/internal/config"
	"github.com/rollcall-app/rollcall/internal/database"
	"github.com/rollcall-app/rollcall/internal/flow"
	"github.com/rollcall-app/rollcall/internal/handlers"
	"github.com/rollcall-app/rollcall/internal/identity"
	middlewareCustom "github.com/rollcall-app/rollcall/internal/middleware"
	"github.com/rollcall-app/rollcall/internal/routes"
	"github.com/rollcall-app/rollcall/internal/session"
	"github.com/rollcall-app/rollcall/internal/store"
	pkglogger "github.com/rollcall-app/rollcall/pkg/logger"
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

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("identity_mode", cfg.Identity.Mode),
		slog.String("store_mode", cfg.Store.Mode))

	// Identity provider
	provider, err := buildProvider(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize identity provider", slog.Any("error", err))
		os.Exit(1)
	}

	// Record store
	recordStore, db, err := buildStore(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize record store", slog.Any("error", err))
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	// Session layer: one flow controller per browser session
	tokenManager := session.NewTokenManager(cfg.Session.JWTSecret, cfg.Session.TTL)
	cookieConfig := session.CookieConfig{Secure: cfg.Server.Env == "production"}

	factory := func(initial *identity.Session) *flow.Controller {
		return flow.NewController(provider, recordStore, flow.AckClipboard{}, flow.Config{
			AdminEmails:    cfg.Flow.AdminEmails,
			CopyClearDelay: cfg.Flow.CopyClearDelay,
			InitialSession: initial,
		}, logger)
	}
	sessionManager := session.NewManager(tokenManager, cookieConfig, factory, cfg.Session.TTL, logger)

	// Background sweeper for idle sessions
	sweepManager := background.NewSweepManager(sessionManager, logger, cfg.Session.SweepInterval)

	// Handlers
	auditLogger := pkglogger.NewAuditLogger(logger)
	flowHandler := handlers.NewFlowHandler(sessionManager, auditLogger)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, flowHandler)

	// Health check
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.HealthCheck(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go sweepManager.Start(sweepCtx)

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

	sweepCancel()
	sweepManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// buildProvider selects the identity provider backend.
func buildProvider(cfg *config.Config, logger *slog.Logger) (identity.Provider, error) {
	switch cfg.Identity.Mode {
	case config.IdentityModeHosted:
		return identity.NewHostedProvider(cfg.Identity.BaseURL, cfg.Identity.APIKey), nil

	case config.IdentityModeLocal:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Identity.RedisAddr,
			Password: cfg.Identity.RedisPassword,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		sender, err := identity.NewSESEmailSender(cfg.Identity.SESRegion, cfg.Identity.FromAddress, logger)
		if err != nil {
			return nil, err
		}

		return identity.NewLocalProvider(redisClient, sender, identity.LocalProviderConfig{
			JWTSecret:   cfg.Session.JWTSecret,
			SessionTTL:  cfg.Identity.SessionTTL,
			CodeTTL:     cfg.Identity.CodeTTL,
			MaxAttempts: cfg.Identity.MaxAttempts,
		}, logger), nil

	default:
		return nil, fmt.Errorf("unknown identity mode %q", cfg.Identity.Mode)
	}
}

// buildStore selects the record store backend. The returned DB is
// non-nil only in postgres mode.
func buildStore(cfg *config.Config, logger *slog.Logger) (store.RecordStore, *database.DB, error) {
	switch cfg.Store.Mode {
	case config.StoreModePostgREST:
		return store.NewPostgRESTStore(cfg.Store.BaseURL, cfg.Store.APIKey, cfg.Store.Table), nil, nil

	case config.StoreModePostgres:
		db, err := database.NewConnection(&cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.RunMigrations {
			if err := database.RunMigrations(db); err != nil {
				db.Close()
				return nil, nil, err
			}
			logger.Info("database migrations applied")
		}
		return store.NewPostgresStore(db, cfg.Store.Table), db, nil

	default:
		return nil, nil, fmt.Errorf("unknown store mode %q", cfg.Store.Mode)
	}
}
