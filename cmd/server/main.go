package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/forgo/goodjobs/internal/config"
	"github.com/forgo/goodjobs/internal/database"
	"github.com/forgo/goodjobs/internal/handler"
	"github.com/forgo/goodjobs/internal/jobs"
	"github.com/forgo/goodjobs/internal/metrics"
	"github.com/forgo/goodjobs/internal/middleware"
	"github.com/forgo/goodjobs/internal/migrations"
	"github.com/forgo/goodjobs/internal/repository"
	"github.com/forgo/goodjobs/internal/service"
	"github.com/forgo/goodjobs/pkg/jwt"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	envFile := pflag.String("env-file", "", "dotenv file to load before reading the environment (default .env if present)")
	configFile := pflag.String("config", "", "YAML config file (overrides $CONFIG_FILE)")
	migrateOnly := pflag.Bool("migrate", false, "apply the schema and exit")
	pflag.Parse()

	// Load configuration
	cfg, err := config.Load(config.LoadOptions{EnvFile: *envFile, ConfigFile: *configFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database connection
	db := database.NewSQL(database.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Name:            cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})

	ctx := context.Background()
	if err := db.Connect(ctx); err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	slog.Info("connected to database",
		slog.String("driver", cfg.Database.Driver),
		slog.String("database", cfg.Database.Name),
	)

	if cfg.Database.AutoMigrate || *migrateOnly {
		if err := migrations.Apply(ctx, db.DB(), db.Dialect()); err != nil {
			slog.Error("failed to apply schema", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("schema applied")
	}
	if *migrateOnly {
		return
	}

	// Initialize JWT service
	secret := cfg.JWT.Secret
	if secret == "" {
		secret = "goodjobs-development-secret"
		slog.Warn("JWT_SECRET not set, using the development secret")
	}
	jwtService, err := jwt.NewService(jwt.Config{
		Secret: secret,
		Issuer: cfg.JWT.Issuer,
	})
	if err != nil {
		slog.Error("failed to initialize JWT service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	passwords, err := service.NewPasswords(cfg.Auth.PasswordHasher, cfg.Auth.BcryptCost)
	if err != nil {
		slog.Error("failed to initialize password hasher", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	goodJobRepo := repository.NewGoodJobRepository(db)

	// Initialize services
	tokenService := service.NewTokenService(service.TokenServiceConfig{JWTService: jwtService})
	authService := service.NewAuthService(service.AuthServiceConfig{
		UserRepo:     userRepo,
		GoodJobRepo:  goodJobRepo,
		TokenService: tokenService,
		Passwords:    passwords,
	})
	eventHub := service.NewEventHub(0)
	defer eventHub.Close()
	ledgerService := service.NewLedgerService(service.LedgerServiceConfig{
		GoodJobRepo: goodJobRepo,
		UserRepo:    userRepo,
		Recorder:    metrics.Ledger{},
		Notifier:    eventHub,
	})
	userService := service.NewUserService(service.UserServiceConfig{
		UserRepo:  userRepo,
		Passwords: passwords,
	})

	// Background ledger audit
	if cfg.Audit.Enabled {
		auditor, err := jobs.NewLedgerAuditor(jobs.LedgerAuditorConfig{
			Auditor:  goodJobRepo,
			Reporter: metrics.Audit{},
			Schedule: cfg.Audit.Schedule,
		})
		if err != nil {
			slog.Error("failed to initialize ledger auditor", slog.String("error", err.Error()))
			os.Exit(1)
		}
		auditor.Start()
		defer auditor.Stop()
	}

	router := handler.NewRouter(handler.Handlers{
		Health:   handler.NewHealthHandler(db, version),
		Auth:     handler.NewAuthHandler(authService, tokenService),
		Users:    handler.NewUserHandler(userService, authService, ledgerService),
		GoodJobs: handler.NewGoodJobHandler(ledgerService),
		Events:   handler.NewEventsHandler(eventHub),
	})

	idempotencyStore := middleware.NewIdempotencyStore(middleware.IdempotencyConfig{
		TTL: cfg.Server.IdempotencyTTL,
	})
	defer idempotencyStore.Stop()

	// Apply global middleware
	chain := []middleware.Middleware{
		middleware.RequestID,
		middleware.Logger,
		middleware.Recovery,
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.Compress,
		middleware.OptionalAuth(tokenService),
	}
	if cfg.Server.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
			Rate:   cfg.Server.RateLimit.Rate,
			Window: cfg.Server.RateLimit.Window,
			Burst:  cfg.Server.RateLimit.Burst,
		})
		defer rateLimiter.Stop()
		chain = append(chain, middleware.RateLimit(rateLimiter))
	}
	chain = append(chain, middleware.Idempotency(idempotencyStore))
	wrapped := middleware.Chain(router, chain...)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	// Open event streams would otherwise hold Shutdown until its timeout
	server.RegisterOnShutdown(eventHub.Close)

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
			slog.String("version", version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		slog.Error("server error", slog.String("error", err.Error()))
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	slog.Info("server exited")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
