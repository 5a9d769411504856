package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/ArashRezazadeh/DataAnnotations/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20251013140500, down_20251013140500)
}

// up_20251013140500 creates users, user_roles and sessions
func up_20251013140500(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating users table...")
	_, err := db.NewCreateTable().
		Model((*models.User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating user_roles table...")
	_, err = db.NewCreateTable().
		Model((*models.UserRole)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create user_roles table: %w", err)
	}
	_, err = db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_user_roles_user_role ON user_roles(user_id, role)`)
	if err != nil {
		return fmt.Errorf("failed to create user_roles index: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating sessions table...")
	_, err = db.NewCreateTable().
		Model((*models.Session)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	// The janitor deletes by expiry.
	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`)
	if err != nil {
		return fmt.Errorf("failed to create sessions expires_at index: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20251013140500 drops the tables in reverse dependency order
func down_20251013140500(ctx context.Context, db *bun.DB) error {
	err := dropTables(ctx, db,
		(*models.Session)(nil),
		(*models.UserRole)(nil),
		(*models.User)(nil),
	)
	if err != nil {
		return err
	}
	fmt.Println(" [down] dropped users, user_roles, sessions")
	return nil
}
