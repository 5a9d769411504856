package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/db/bunx"
	"github.com/ArashRezazadeh/DataAnnotations/internal/db/models"
)

// DefaultBcryptCost is used for new password hashes.
const DefaultBcryptCost = 12

// BunUserRepository implements UserRepository using Bun ORM
type BunUserRepository struct {
	db        *bun.DB
	cost      int
	dummyHash []byte
}

// UserRepositoryOption configures a BunUserRepository.
type UserRepositoryOption func(*BunUserRepository)

// WithBcryptCost overrides the hashing cost (tests use bcrypt.MinCost).
func WithBcryptCost(cost int) UserRepositoryOption {
	return func(r *BunUserRepository) { r.cost = cost }
}

// NewBunUserRepository creates a new Bun-based user repository
func NewBunUserRepository(db *bun.DB, opts ...UserRepositoryOption) (*BunUserRepository, error) {
	r := &BunUserRepository{db: db, cost: DefaultBcryptCost}
	for _, opt := range opts {
		opt(r)
	}
	// Compared against when the username is unknown so both failure paths
	// spend the same bcrypt time.
	hash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), r.cost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	r.dummyHash = hash
	return r, nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Verify checks a username/password pair. Unknown users, deleted users and
// wrong passwords all return auth.ErrInvalidCredentials.
func (r *BunUserRepository) Verify(ctx context.Context, username, password string) (auth.Identity, error) {
	user, err := r.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(r.dummyHash, []byte(password))
			return auth.Identity{}, auth.ErrInvalidCredentials
		}
		return auth.Identity{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return auth.Identity{}, auth.ErrInvalidCredentials
	}

	now := time.Now()
	_, err = r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("last_login_at = ?", now).
		Where("id = ?", user.ID).
		Exec(ctx)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("update last login: %w", err)
	}
	return identityOf(user), nil
}

// CreateUser hashes the password and stores the user with its roles in one
// transaction.
func (r *BunUserRepository) CreateUser(ctx context.Context, u auth.NewUser) (auth.Identity, error) {
	username := normalizeUsername(u.Username)
	if username == "" || u.Password == "" {
		return auth.Identity{}, fmt.Errorf("%w: username and password are required", auth.ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), r.cost)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("%w: %v", auth.ErrInvalidInput, err)
	}
	displayName := strings.TrimSpace(u.DisplayName)
	if displayName == "" {
		displayName = username
	}

	now := time.Now()
	user := &models.User{
		ID:           bunx.NewID(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	seen := map[string]bool{}
	for _, role := range u.Roles {
		role = strings.TrimSpace(role)
		if role == "" || seen[role] {
			continue
		}
		seen[role] = true
		user.Roles = append(user.Roles, &models.UserRole{
			ID:         bunx.NewID(),
			UserID:     user.ID,
			Role:       role,
			AssignedAt: now,
		})
	}

	err = r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("username = ?", username).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: %s", auth.ErrUserExists, username)
		}
		if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		if len(user.Roles) > 0 {
			if _, err := tx.NewInsert().Model(&user.Roles).Exec(ctx); err != nil {
				return fmt.Errorf("assign roles: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return auth.Identity{}, err
	}
	return identityOf(user), nil
}

// DeleteUser removes the user; roles cascade. Returns auth.ErrUserNotFound when
// no such user exists.
func (r *BunUserRepository) DeleteUser(ctx context.Context, username string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user := new(models.User)
		err := tx.NewSelect().
			Model(user).
			Where("username = ?", normalizeUsername(username)).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", auth.ErrUserNotFound, username)
			}
			return fmt.Errorf("get user: %w", err)
		}
		// Explicit delete so SQLite without foreign_keys still cleans up.
		if _, err := tx.NewDelete().Model((*models.UserRole)(nil)).Where("user_id = ?", user.ID).Exec(ctx); err != nil {
			return fmt.Errorf("delete user roles: %w", err)
		}
		if _, err := tx.NewDelete().Model(user).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}

// GetByUsername loads a user with roles.
func (r *BunUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Relation("Roles").
		Where("u.username = ?", normalizeUsername(username)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", auth.ErrUserNotFound, username)
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return user, nil
}

func identityOf(u *models.User) auth.Identity {
	return auth.Identity{
		UserID:      u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Roles:       u.RoleNames(),
	}
}
