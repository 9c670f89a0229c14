package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bilawal506/online-mart/config"
	"github.com/bilawal506/online-mart/internal/infrastructure/database"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Connect(ctx, config.DatabaseConfig{
		Driver: database.DriverSQLite,
		DBName: filepath.Join(t.TempDir(), "mart.db"),
	})
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.EnsureSchema(ctx, db))

	return db
}
