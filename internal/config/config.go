package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/tenantauth/internal/tenant"
	"github.com/joho/godotenv"
)

// Store drivers
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Tenancy  TenancyConfig
	Email    EmailConfig
	Seed     SeedConfig
}

type DatabaseConfig struct {
	Driver            string
	MongoURI          string
	Name              string // default database (Mongo) for the fallback tenant
	PostgresURL       string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
}

type ServerConfig struct {
	Port               string
	Env                string
	LogLevel           string
	APIPrefix          string
	AllowedOrigins     []string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	RateLimitPerMinute int
}

type AuthConfig struct {
	JWTSecret         string
	AccessTokenExpiry time.Duration
	ResetTokenExpiry  time.Duration
	BcryptCost        int
	AdminSyncToken    string
	AuthorizeURL      string
	AuthorizeTimeout  time.Duration
	TimingDelayBaseMs int
	TimingDelayRandMs int
}

type TenancyConfig struct {
	RawTenants string
}

// Tenants returns the parsed allow-list.
func (t TenancyConfig) Tenants() []string {
	return tenant.ParseKnownTenants(t.RawTenants)
}

type EmailConfig struct {
	AWSRegion            string
	FromAddress          string
	PasswordResetURLBase string
}

type SeedConfig struct {
	DefaultUserEmail    string
	DefaultUserPassword string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:            strings.ToLower(getEnv("STORE_DRIVER", DriverMongo)),
			MongoURI:          getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Name:              getEnv("MONGODB_DB", "tenant_api"),
			PostgresURL:       getEnv("DATABASE_URL", ""),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			ConnectTimeout:    getEnvAsDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
		},
		Server: ServerConfig{
			Port:               getEnv("PORT", "4000"),
			Env:                env,
			LogLevel:           getEnv("LOG_LEVEL", "info"),
			APIPrefix:          normalizePrefix(getEnv("API_PREFIX", "")),
			AllowedOrigins:     parseList(getEnv("ALLOWED_ORIGINS", "")),
			ReadTimeout:        getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:       getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:        getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 10),
		},
		Auth: AuthConfig{
			JWTSecret:         jwtSecret,
			AccessTokenExpiry: getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 1*time.Hour),
			ResetTokenExpiry:  getEnvAsDuration("RESET_TOKEN_EXPIRY", 30*time.Minute),
			BcryptCost:        getEnvAsInt("BCRYPT_SALT_ROUNDS", 10),
			AdminSyncToken:    getEnv("ADMIN_SYNC_TOKEN", ""),
			AuthorizeURL:      getEnv("AUTHORIZE_URL", "http://localhost:9000/api/authorize"),
			AuthorizeTimeout:  getEnvAsDuration("AUTHORIZE_TIMEOUT", 10*time.Second),
			TimingDelayBaseMs: getEnvAsInt("TIMING_DELAY_BASE_MS", 250),
			TimingDelayRandMs: getEnvAsInt("TIMING_DELAY_RANDOM_MS", 100),
		},
		Tenancy: TenancyConfig{
			RawTenants: getEnv("TENANTS", ""),
		},
		Email: EmailConfig{
			AWSRegion:            getEnv("AWS_REGION", "us-east-1"),
			FromAddress:          getEnv("EMAIL_FROM_ADDRESS", ""),
			PasswordResetURLBase: getEnv("PASSWORD_RESET_URL_BASE", "http://localhost:3000"),
		},
		Seed: SeedConfig{
			DefaultUserEmail:    getEnv("DEFAULT_USER_EMAIL", "test@paybook.com"),
			DefaultUserPassword: getEnv("DEFAULT_USER_PASSWORD", "Secretsystem1@"),
		},
	}

	switch cfg.Database.Driver {
	case DriverMongo:
	case DriverPostgres:
		if cfg.Database.PostgresURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", DriverPostgres)
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.Database.Driver)
	}

	if err := validateTenants(cfg.Tenancy.Tenants(), cfg.Database); err != nil {
		return nil, err
	}

	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return nil, fmt.Errorf("BCRYPT_SALT_ROUNDS must be between 4 and 31 (got %d)", cfg.Auth.BcryptCost)
	}

	// Validate JWT secret strength
	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateTenants rejects tenant names that map onto the default tenant's
// partition: the public schema for postgres, MONGODB_DB for mongo.
func validateTenants(tenants []string, db DatabaseConfig) error {
	reserved := "public"
	if db.Driver == DriverMongo {
		reserved = strings.ToLower(db.Name)
	}
	for _, t := range tenants {
		if t == reserved {
			return fmt.Errorf("TENANTS cannot contain %q: it is the default tenant's %s", t, partitionKind(db.Driver))
		}
	}
	return nil
}

func partitionKind(driver string) string {
	if driver == DriverMongo {
		return "database"
	}
	return "schema"
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example", "default-secret-key",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseList(raw string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// normalizePrefix turns "api", "/api/" and "/api" into "/api"; "" and "/" mean no prefix.
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}
