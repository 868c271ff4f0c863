package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/tenantauth/internal/seed"
	"github.com/BradenHooton/tenantauth/internal/tenant"
)

func runSeed(ctx context.Context, tenantID string) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if err := a.backend.Provision(ctx, tenantID); err != nil {
		return err
	}

	created, err := seed.InsertFixtures(ctx, a.users, tenantID, a.logger)
	if err != nil {
		return err
	}

	a.logger.Info("seed complete",
		slog.String("tenant", tenant.Label(tenantID)),
		slog.Int("created", created))
	return nil
}
