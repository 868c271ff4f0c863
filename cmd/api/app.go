package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BradenHooton/tenantauth/internal/auth"
	"github.com/BradenHooton/tenantauth/internal/config"
	"github.com/BradenHooton/tenantauth/internal/database"
	"github.com/BradenHooton/tenantauth/internal/repositories"
	"github.com/BradenHooton/tenantauth/internal/services"
	"github.com/BradenHooton/tenantauth/internal/tenant"
	pkgauth "github.com/BradenHooton/tenantauth/pkg/auth"
	pkglogger "github.com/BradenHooton/tenantauth/pkg/logger"
)

// app holds the wiring shared by the serve and seed commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	backend  repositories.Backend
	registry *tenant.Registry[repositories.UserRepository]
	resolver *tenant.Resolver
	tokens   *auth.TokenManager
	audit    *pkglogger.AuditLogger
	users    *services.UserService
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func openBackend(cfg *config.Config, logger *slog.Logger) (repositories.Backend, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := database.NewConnection(&cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		return repositories.NewPostgresBackend(db), nil
	case config.DriverMongo:
		db, err := database.NewMongoConnection(&cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		return repositories.NewMongoBackend(db), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Database.Driver)
	}
}

func newNotifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) services.PasswordResetNotifier {
	if cfg.Email.FromAddress == "" {
		logger.Info("EMAIL_FROM_ADDRESS not set, password reset emails are logged only")
		return services.NewLogEmailService(logger)
	}

	ses, err := services.NewAWSSESEmailService(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, cfg.Email.PasswordResetURLBase, logger)
	if err != nil {
		logger.Error("failed to initialize email service, falling back to logging", slog.Any("error", err))
		return services.NewLogEmailService(logger)
	}
	return ses
}

// bootstrap loads configuration, connects the store and builds the user service.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("store_driver", cfg.Database.Driver))

	backend, err := openBackend(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to store: %w", err)
	}

	registry := tenant.NewRegistry[repositories.UserRepository](backend.Open(""), backend.Open)
	resolver := tenant.NewResolver(cfg.Tenancy.Tenants())
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry, cfg.Auth.ResetTokenExpiry)
	audit := pkglogger.NewAuditLogger(logger)

	users := services.NewUserService(
		registry,
		pkgauth.NewPasswordHasher(cfg.Auth.BcryptCost),
		tokens,
		newNotifier(ctx, cfg, logger),
		cfg.Auth.ResetTokenExpiry,
		logger,
		audit,
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		backend:  backend,
		registry: registry,
		resolver: resolver,
		tokens:   tokens,
		audit:    audit,
		users:    users,
	}, nil
}

func (a *app) close() {
	a.users.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.backend.Close(ctx); err != nil {
		a.logger.Error("failed to close store", slog.Any("error", err))
	}
}
