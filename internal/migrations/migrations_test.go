package migrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/ArashRezazadeh/DataAnnotations/internal/db/bunx"
)

func TestApply_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := bunx.NewDB(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	group, err := Apply(ctx, db)
	require.NoError(t, err)
	assert.False(t, group.IsZero())

	for _, table := range []string{"users", "user_roles", "sessions", "revoked_jti"} {
		var n int
		err := db.NewRaw("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(ctx, &n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "table %s", table)
	}

	group, err = Apply(ctx, db)
	require.NoError(t, err)
	assert.True(t, group.IsZero(), "second run applies nothing")
}

func TestIsSQLite(t *testing.T) {
	db, err := bunx.NewDB(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()
	assert.True(t, IsSQLite(db))
	assert.False(t, IsPostgreSQL(db))
}

func TestRollback_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := bunx.NewDB(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = Apply(ctx, db)
	require.NoError(t, err)

	migrator := migrate.NewMigrator(db, Migrations)
	group, err := migrator.Rollback(ctx)
	require.NoError(t, err)
	assert.False(t, group.IsZero())

	var n int
	err = db.NewRaw("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'sessions', 'revoked_jti')").Scan(ctx, &n)
	require.NoError(t, err)
	assert.Zero(t, n)
}
