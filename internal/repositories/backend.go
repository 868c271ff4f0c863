package repositories

import (
	"context"

	"github.com/BradenHooton/tenantauth/internal/database"
)

// Backend binds a storage driver to per-tenant user repositories.
type Backend interface {
	// Open derives the repository for a tenant over the shared connection.
	// The default tenant is "".
	Open(tenantID string) UserRepository
	// Provision creates indexes or schema for a tenant. Safe to repeat.
	Provision(ctx context.Context, tenantID string) error
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// MongoBackend maps each tenant onto a database of the same name.
type MongoBackend struct {
	db *database.MongoDB
}

func NewMongoBackend(db *database.MongoDB) *MongoBackend {
	return &MongoBackend{db: db}
}

func (b *MongoBackend) Open(tenantID string) UserRepository {
	return NewMongoUserRepository(b.db.Database(tenantID))
}

func (b *MongoBackend) Provision(ctx context.Context, tenantID string) error {
	return b.db.EnsureUserIndexes(ctx, tenantID)
}

func (b *MongoBackend) HealthCheck(ctx context.Context) error {
	return b.db.HealthCheck(ctx)
}

func (b *MongoBackend) Close(ctx context.Context) error {
	return b.db.Close(ctx)
}

// PostgresBackend maps each tenant onto a schema of the same name.
type PostgresBackend struct {
	db *database.DB
}

func NewPostgresBackend(db *database.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Open(tenantID string) UserRepository {
	return NewPostgresUserRepository(b.db, database.SchemaFor(tenantID))
}

func (b *PostgresBackend) Provision(ctx context.Context, tenantID string) error {
	return b.db.EnsureSchema(ctx, database.SchemaFor(tenantID))
}

func (b *PostgresBackend) HealthCheck(ctx context.Context) error {
	return b.db.HealthCheck(ctx)
}

func (b *PostgresBackend) Close(_ context.Context) error {
	b.db.Close()
	return nil
}
