package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/ArashRezazadeh/DataAnnotations/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20251018000000, down_20251018000000)
}

// up_20251018000000 creates the bearer token denylist
func up_20251018000000(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating revoked_jti table...")

	_, err := db.NewCreateTable().
		Model((*models.RevokedJTI)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create revoked_jti table: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_revoked_jti_exp ON revoked_jti(exp)`)
	if err != nil {
		return fmt.Errorf("failed to create revoked_jti exp index: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20251018000000 drops revoked_jti
func down_20251018000000(ctx context.Context, db *bun.DB) error {
	if err := dropTables(ctx, db, (*models.RevokedJTI)(nil)); err != nil {
		return err
	}
	fmt.Println(" [down] dropped revoked_jti")
	return nil
}
