package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/tenantauth/internal/database"
	"github.com/BradenHooton/tenantauth/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, migration_status, provider_name, provider_user_id,
	migration_date, enabled, deleted_at, created_at, updated_at`

// PostgresUserRepository stores users in the users table of one tenant schema.
type PostgresUserRepository struct {
	pool  *pgxpool.Pool
	table string
}

func NewPostgresUserRepository(db *database.DB, schema string) *PostgresUserRepository {
	return &PostgresUserRepository{pool: db.Pool, table: database.QualifiedTable(schema, "users")}
}

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner, withHash bool) (*models.User, error) {
	var user models.User
	var passwordHash *string
	var status, provider string

	err := scanner.Scan(
		&user.ID, &user.Email, &passwordHash, &status, &provider, &user.ProviderUserID,
		&user.MigrationDate, &user.Enabled, &user.DeletedAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	user.MigrationStatus = models.MigrationStatus(status)
	user.ProviderName = models.ProviderName(provider)
	if withHash && passwordHash != nil {
		user.PasswordHash = *passwordHash
	}

	return &user, nil
}

// scanUserRows iterates through rows and scans each into User models
func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *PostgresUserRepository) Insert(ctx context.Context, user *models.User) error {
	query := `INSERT INTO ` + r.table + ` (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	var passwordHash *string
	if user.PasswordHash != "" {
		passwordHash = &user.PasswordHash
	}

	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Email, passwordHash, string(user.MigrationStatus), string(user.ProviderName),
		user.ProviderUserID, user.MigrationDate, user.Enabled, user.DeletedAt, user.CreatedAt, user.UpdatedAt,
	)
	return database.MapPostgresError(err)
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string, withHash bool) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM ` + r.table + `
		WHERE LOWER(email) = $1 AND deleted_at IS NULL`

	return scanUserRow(r.pool.QueryRow(ctx, query, models.NormalizeEmail(email)), withHash)
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id string, withHash bool) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM ` + r.table + `
		WHERE id = $1 AND deleted_at IS NULL`

	return scanUserRow(r.pool.QueryRow(ctx, query, id), withHash)
}

func (r *PostgresUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	query := `SELECT COUNT(*) FROM ` + r.table + ` WHERE deleted_at IS NULL`
	if err := r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (r *PostgresUserRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM ` + r.table + `
		WHERE deleted_at IS NULL ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE ` + r.table + ` SET password_hash = $1, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL`

	result, err := r.pool.Exec(ctx, query, passwordHash, time.Now().UTC(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *PostgresUserRepository) UpdateMigration(ctx context.Context, user *models.User) (*models.User, error) {
	query := `UPDATE ` + r.table + `
		SET migration_status = $1, provider_name = $2, provider_user_id = $3, migration_date = $4, updated_at = $5
		WHERE id = $6 AND deleted_at IS NULL
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		string(user.MigrationStatus), string(user.ProviderName), user.ProviderUserID,
		user.MigrationDate, time.Now().UTC(), user.ID,
	), false)
}
