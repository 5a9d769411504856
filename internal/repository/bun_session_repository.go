package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/claims"
	"github.com/ArashRezazadeh/DataAnnotations/internal/db/models"
	"github.com/ArashRezazadeh/DataAnnotations/internal/session"
)

// BunSessionRepository implements session.Backend on the sessions table.
type BunSessionRepository struct {
	db *bun.DB
}

// NewBunSessionRepository creates a new Bun-based session store
func NewBunSessionRepository(db *bun.DB) *BunSessionRepository {
	return &BunSessionRepository{db: db}
}

// Create inserts the record in a single statement.
func (r *BunSessionRepository) Create(ctx context.Context, rec *session.Record) error {
	payload, err := rec.Claims.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode claims: %w", err)
	}
	row := &models.Session{
		ID:           rec.ID,
		TokenHash:    rec.Key,
		Subject:      rec.Claims.Subject(),
		Claims:       string(payload),
		CreatedAt:    rec.CreatedAt.UTC(),
		ExpiresAt:    rec.ExpiresAt.UTC(),
		MaxExpiresAt: rec.MaxExpiresAt.UTC(),
	}
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Touch reads and slides the record inside a transaction. The expiry update
// is conditional on the stored value being older than the candidate, so
// concurrent touches on PostgreSQL cannot move it backwards even under
// read committed isolation.
func (r *BunSessionRepository) Touch(ctx context.Context, key string, now time.Time, window time.Duration) (*session.Record, error) {
	var out *session.Record
	var rejection error

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(models.Session)
		err := tx.NewSelect().
			Model(row).
			Where("token_hash = ?", key).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				rejection = auth.ErrSessionNotFound
				return nil
			}
			return fmt.Errorf("get session: %w", err)
		}

		rec, err := recordOf(row)
		if err != nil {
			return err
		}
		stored := rec.ExpiresAt
		if !session.Slide(rec, now, window) {
			rejection = auth.ErrSessionExpired
			_, err := tx.NewDelete().
				Model((*models.Session)(nil)).
				Where("id = ?", row.ID).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("delete expired session: %w", err)
			}
			return nil
		}
		if rec.ExpiresAt.After(stored) {
			_, err := tx.NewUpdate().
				Model((*models.Session)(nil)).
				Set("expires_at = ?", rec.ExpiresAt.UTC()).
				Where("id = ?", row.ID).
				Where("expires_at < ?", rec.ExpiresAt.UTC()).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("slide session: %w", err)
			}
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		return nil, rejection
	}
	return out, nil
}

// Delete removes the session; a missing row is not an error.
func (r *BunSessionRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.NewDelete().
		Model((*models.Session)(nil)).
		Where("token_hash = ?", key).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions with expires_at <= now.
func (r *BunSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*models.Session)(nil)).
		Where("expires_at <= ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func recordOf(row *models.Session) (*session.Record, error) {
	var cs claims.ClaimSet
	if err := cs.UnmarshalJSON([]byte(row.Claims)); err != nil {
		return nil, fmt.Errorf("decode session claims: %w", err)
	}
	return &session.Record{
		ID:           row.ID,
		Key:          row.TokenHash,
		Claims:       cs,
		CreatedAt:    row.CreatedAt,
		ExpiresAt:    row.ExpiresAt,
		MaxExpiresAt: row.MaxExpiresAt,
	}, nil
}
