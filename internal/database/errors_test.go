package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/BradenHooton/tenantauth/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestMapPostgresError(t *testing.T) {
	other := errors.New("boom")

	assert.NoError(t, MapPostgresError(nil))
	assert.ErrorIs(t, MapPostgresError(pgx.ErrNoRows), models.ErrNotFound)
	assert.ErrorIs(t, MapPostgresError(fmt.Errorf("wrapped: %w", pgx.ErrNoRows)), models.ErrNotFound)
	assert.ErrorIs(t, MapPostgresError(&pgconn.PgError{Code: "23505"}), models.ErrConflict)
	assert.ErrorIs(t, MapPostgresError(&pgconn.PgError{Code: "23514"}), models.ErrBadRequest)
	assert.Equal(t, other, MapPostgresError(other))
}

func TestMapMongoError(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}

	assert.NoError(t, MapMongoError(nil))
	assert.ErrorIs(t, MapMongoError(mongo.ErrNoDocuments), models.ErrNotFound)
	assert.ErrorIs(t, MapMongoError(dup), models.ErrConflict)
	other := errors.New("boom")
	assert.Equal(t, other, MapMongoError(other))
}

func TestSchemaFor(t *testing.T) {
	assert.Equal(t, DefaultSchema, SchemaFor(""))
	assert.Equal(t, "acme", SchemaFor("acme"))
}

func TestQualifiedTable(t *testing.T) {
	assert.Equal(t, `"acme"."users"`, QualifiedTable("acme", "users"))
	assert.Equal(t, `"my-tenant"."users"`, QualifiedTable("my-tenant", "users"))
}
