package database

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck_LogsPoolStatsOnFailure(t *testing.T) {
	// pgxpool connects lazily, so nothing is dialled until Ping
	pool, err := pgxpool.New(context.Background(), "postgres://postgres@127.0.0.1:1/tenantauth?connect_timeout=1")
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	var buf bytes.Buffer
	db := NewFromPool(pool, slog.New(slog.NewJSONHandler(&buf, nil)))

	assert.Error(t, db.HealthCheck(context.Background()))
	assert.Contains(t, buf.String(), `"msg":"database ping failed"`)
	assert.Contains(t, buf.String(), `"pool":{"total":0`)

	assert.Equal(t, int32(0), db.Stats().AcquiredConns())
}
