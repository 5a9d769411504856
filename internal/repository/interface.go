package repository

import (
	"context"
	"time"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/db/models"
	"github.com/ArashRezazadeh/DataAnnotations/internal/session"
)

// UserRepository is the local identity store: credential verification and
// account lifecycle keyed by username.
type UserRepository interface {
	Verify(ctx context.Context, username, password string) (auth.Identity, error)
	CreateUser(ctx context.Context, u auth.NewUser) (auth.Identity, error)
	DeleteUser(ctx context.Context, username string) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// RevokedJTIRepository persists the bearer token denylist.
type RevokedJTIRepository interface {
	Revoke(ctx context.Context, jti, subject string, exp time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

var (
	_ UserRepository       = (*BunUserRepository)(nil)
	_ RevokedJTIRepository = (*BunRevokedJTIRepository)(nil)
	_ session.Backend      = (*BunSessionRepository)(nil)
)
