package database

import (
	"context"
	"embed"
	"fmt"
	"io"
	"log"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/tenantauth/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

// DefaultSchema holds the users table of the default tenant.
const DefaultSchema = "public"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// goose keeps its dialect and filesystem in package globals
var gooseMu sync.Mutex

type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewConnection(cfg *config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logger.Info("database connection established",
		slog.String("driver", config.DriverPostgres),
		slog.Int("max_conns", int(cfg.MaxConns)),
		slog.Int("min_conns", int(cfg.MinConns)),
	)

	return &DB{Pool: pool, logger: logger}, nil
}

// NewFromPool wraps an existing pool, used by tests that manage their own container.
func NewFromPool(pool *pgxpool.Pool, logger *slog.Logger) *DB {
	return &DB{Pool: pool, logger: logger}
}

func (db *DB) Close() {
	db.logger.Info("closing database connection pool")
	db.Pool.Close()
}

// HealthCheck pings the pool and logs its occupancy.
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		db.logger.WarnContext(ctx, "database ping failed", poolAttr(db.Stats()), slog.Any("error", err))
		return fmt.Errorf("database health check failed: %w", err)
	}
	db.logger.DebugContext(ctx, "database ping ok", poolAttr(db.Stats()))
	return nil
}

// Stats returns a snapshot of the pool counters.
func (db *DB) Stats() *pgxpool.Stat {
	return db.Pool.Stat()
}

func poolAttr(stat *pgxpool.Stat) slog.Attr {
	return slog.Group("pool",
		slog.Int("total", int(stat.TotalConns())),
		slog.Int("idle", int(stat.IdleConns())),
		slog.Int("acquired", int(stat.AcquiredConns())),
		slog.Int("max", int(stat.MaxConns())),
	)
}

// SchemaFor maps a tenant id onto its schema. The default tenant ("") lives in public.
func SchemaFor(tenantID string) string {
	if tenantID == "" {
		return DefaultSchema
	}
	return tenantID
}

// QualifiedTable returns schema.table with both parts quoted.
func QualifiedTable(schema, table string) string {
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table)
}

// EnsureSchema creates the tenant schema if missing and applies pending migrations inside it.
func (db *DB) EnsureSchema(ctx context.Context, schema string) error {
	if _, err := db.Pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pq.QuoteIdentifier(schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", schema, err)
	}

	// goose needs database/sql; pin search_path so the version table and users land in the schema
	connConfig := *db.Pool.Config().ConnConfig
	params := make(map[string]string, len(connConfig.RuntimeParams)+1)
	for k, v := range connConfig.RuntimeParams {
		params[k] = v
	}
	params["search_path"] = schema
	connConfig.RuntimeParams = params

	sqlDB := stdlib.OpenDB(connConfig)
	defer sqlDB.Close()

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(log.New(io.Discard, "", 0))
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("migration failed for schema %s: %w", schema, err)
	}

	db.logger.Debug("schema provisioned", slog.String("schema", schema))
	return nil
}
