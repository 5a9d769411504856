package models

import (
	"slices"
	"time"

	"github.com/uptrace/bun"
)

// User is a locally registered account. Username is the login name (the
// registration email) and doubles as the display name unless one is given.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string     `bun:"id,pk"`
	Username     string     `bun:"username,notnull,unique"`
	DisplayName  string     `bun:"display_name,notnull"`
	PasswordHash string     `bun:"password_hash,notnull"` // bcrypt
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	LastLoginAt  *time.Time `bun:"last_login_at"`

	Roles []*UserRole `bun:"rel:has-many,join:id=user_id"`
}

// RoleNames returns the role names loaded on the user, sorted.
func (u *User) RoleNames() []string {
	if u == nil {
		return nil
	}
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Role)
	}
	slices.Sort(names)
	return names
}

// UserRole grants a role name to a user.
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	ID         string    `bun:"id,pk"`
	UserID     string    `bun:"user_id,notnull"` // FK to users(id)
	Role       string    `bun:"role,notnull"`
	AssignedAt time.Time `bun:"assigned_at,notnull,default:current_timestamp"`
}

// Session is a server-held cookie session. The raw reference is never stored;
// TokenHash is its SHA256 hex digest.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:sess"`

	ID           string    `bun:"id,pk"` // ULID
	TokenHash    string    `bun:"token_hash,notnull,unique"`
	Subject      string    `bun:"subject,notnull"`
	Claims       string    `bun:"claims,notnull,type:text"` // ordered claim array, JSON
	CreatedAt    time.Time `bun:"created_at,notnull"`
	ExpiresAt    time.Time `bun:"expires_at,notnull"`
	MaxExpiresAt time.Time `bun:"max_expires_at,notnull"`
}

// RevokedJTI tracks revoked bearer tokens by their jti claim until they expire.
type RevokedJTI struct {
	bun.BaseModel `bun:"table:revoked_jti,alias:rjti"`

	JTI       string    `bun:"jti,pk"`
	Subject   string    `bun:"subject,notnull"`
	Exp       time.Time `bun:"exp,notnull"` // token expiry, for cleanup
	RevokedAt time.Time `bun:"revoked_at,notnull,default:current_timestamp"`
}
