package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/ArashRezazadeh/DataAnnotations/internal/db/models"
)

// BunRevokedJTIRepository implements RevokedJTIRepository using Bun ORM
type BunRevokedJTIRepository struct {
	db *bun.DB
}

// NewBunRevokedJTIRepository creates a new Bun-based revoked JTI repository
func NewBunRevokedJTIRepository(db *bun.DB) *BunRevokedJTIRepository {
	return &BunRevokedJTIRepository{db: db}
}

// Revoke adds a JTI to the denylist. Revoking twice is not an error.
func (r *BunRevokedJTIRepository) Revoke(ctx context.Context, jti, subject string, exp time.Time) error {
	row := &models.RevokedJTI{
		JTI:       jti,
		Subject:   subject,
		Exp:       exp.UTC(),
		RevokedAt: time.Now().UTC(),
	}
	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (jti) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create revoked jti: %w", err)
	}
	return nil
}

// IsRevoked checks if a JTI exists in the revocation table
func (r *BunRevokedJTIRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.RevokedJTI)(nil)).
		Where("jti = ?", jti).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check revoked jti: %w", err)
	}
	return exists, nil
}

// DeleteExpired removes entries whose token has expired; the signer rejects
// those tokens on its own.
func (r *BunRevokedJTIRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*models.RevokedJTI)(nil)).
		Where("exp <= ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete expired revoked jtis: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
