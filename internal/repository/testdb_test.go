package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/ArashRezazadeh/DataAnnotations/internal/db/bunx"
	"github.com/ArashRezazadeh/DataAnnotations/internal/migrations"
)

// setupTestDB returns a migrated in-memory SQLite database.
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()
	db, err := bunx.NewDB(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = migrations.Apply(ctx, db)
	require.NoError(t, err)
	return db
}
