package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/tenantauth/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// UsersCollection is the collection holding users in every tenant database.
const UsersCollection = "users"

// MongoDB owns the single client shared by every tenant database.
type MongoDB struct {
	Client      *mongo.Client
	defaultName string
	logger      *slog.Logger
}

func NewMongoConnection(cfg *config.DatabaseConfig, logger *slog.Logger) (*MongoDB, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(uint64(cfg.MaxConns)).
		SetMinPoolSize(uint64(cfg.MinConns)).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetConnectTimeout(cfg.ConnectTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to create mongo client: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logger.Info("database connection established",
		slog.String("driver", config.DriverMongo),
		slog.String("default_database", cfg.Name),
		slog.Int("max_conns", int(cfg.MaxConns)),
	)

	return &MongoDB{Client: client, defaultName: cfg.Name, logger: logger}, nil
}

// NewMongoFromClient wraps an existing client, used by tests that manage their own container.
func NewMongoFromClient(client *mongo.Client, defaultName string, logger *slog.Logger) *MongoDB {
	return &MongoDB{Client: client, defaultName: defaultName, logger: logger}
}

// Database returns the handle for a tenant database over the shared client.
// The default tenant ("") maps onto the configured default database.
func (m *MongoDB) Database(tenantID string) *mongo.Database {
	if tenantID == "" {
		return m.Client.Database(m.defaultName)
	}
	return m.Client.Database(tenantID)
}

// EnsureUserIndexes creates the unique email index in the tenant database.
func (m *MongoDB) EnsureUserIndexes(ctx context.Context, tenantID string) error {
	coll := m.Database(tenantID).Collection(UsersCollection)

	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("created_at_desc"),
		},
	}

	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create user indexes in %s: %w", coll.Database().Name(), err)
	}

	m.logger.Debug("indexes provisioned", slog.String("database", coll.Database().Name()))
	return nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	m.logger.Info("closing database client")
	return m.Client.Disconnect(ctx)
}

func (m *MongoDB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := m.Client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
