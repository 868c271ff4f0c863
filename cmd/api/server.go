package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/tenantauth/internal/auth"
	"github.com/BradenHooton/tenantauth/internal/handlers"
	"github.com/BradenHooton/tenantauth/internal/routes"
	"github.com/BradenHooton/tenantauth/internal/seed"
	"github.com/BradenHooton/tenantauth/internal/services"
)

func runServer(ctx context.Context) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.cfg
	logger := a.logger

	// Provision storage and the default user for every tenant before serving
	tenants := seed.Tenants(a.resolver.Known())
	provisionCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	if err := seed.ProvisionTenants(provisionCtx, a.backend, tenants, logger); err != nil {
		cancel()
		return err
	}
	seed.DefaultUsers(provisionCtx, a.users, tenants, cfg.Seed.DefaultUserEmail, cfg.Seed.DefaultUserPassword, logger)
	cancel()

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandMs,
	})
	authorizer := services.NewHTTPAuthorizationClient(cfg.Auth.AuthorizeURL, cfg.Auth.AuthorizeTimeout)
	authService := services.NewAuthService(a.users, a.tokens, authorizer, timingDelay, logger, a.audit)

	if cfg.Auth.AdminSyncToken == "" {
		logger.Warn("ADMIN_SYNC_TOKEN not set, internal migration endpoints will reject every request")
	}

	handler := routes.NewRouter(routes.Config{
		Env:                cfg.Server.Env,
		APIPrefix:          cfg.Server.APIPrefix,
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		AdminToken:         cfg.Auth.AdminSyncToken,
	}, routes.Dependencies{
		Logger:          logger,
		Resolver:        a.resolver,
		Registry:        a.registry,
		TokenManager:    a.tokens,
		AuthHandler:     handlers.NewAuthHandler(authService),
		UserHandler:     handlers.NewUserHandler(a.users),
		InternalHandler: handlers.NewInternalHandler(a.users),
		HealthHandler:   handlers.NewHealthHandler(a.backend, logger),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.String("addr", server.Addr),
			slog.Any("tenants", a.resolver.Known()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		return err
	}

	logger.Info("server stopped gracefully")
	return nil
}
