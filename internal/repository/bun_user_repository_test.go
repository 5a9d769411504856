package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
)

func newTestUserRepo(t *testing.T) *BunUserRepository {
	t.Helper()
	repo, err := NewBunUserRepository(setupTestDB(t), WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	return repo
}

func TestBunUserRepository_CreateAndVerify(t *testing.T) {
	ctx := context.Background()
	repo := newTestUserRepo(t)

	created, err := repo.CreateUser(ctx, auth.NewUser{
		Username: "Lena@Example.com",
		Password: "Passw0rd!",
		Roles:    []string{"Reader", "Admin", "Admin", ""},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.UserID)
	assert.Equal(t, "lena@example.com", created.Username)
	assert.Equal(t, "lena@example.com", created.DisplayName)
	assert.ElementsMatch(t, []string{"Admin", "Reader"}, created.Roles)

	t.Run("correct password", func(t *testing.T) {
		id, err := repo.Verify(ctx, "lena@example.com", "Passw0rd!")
		require.NoError(t, err)
		assert.Equal(t, created.UserID, id.UserID)
		assert.Equal(t, []string{"Admin", "Reader"}, id.Roles)
	})

	t.Run("username is case-insensitive", func(t *testing.T) {
		_, err := repo.Verify(ctx, "LENA@example.com", "Passw0rd!")
		require.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := repo.Verify(ctx, "lena@example.com", "wrong")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown user looks the same", func(t *testing.T) {
		_, err := repo.Verify(ctx, "nobody@example.com", "Passw0rd!")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := repo.CreateUser(ctx, auth.NewUser{Username: "lena@example.com", Password: "0therPass!"})
		assert.ErrorIs(t, err, auth.ErrUserExists)
	})
}

func TestBunUserRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newTestUserRepo(t)

	_, err := repo.CreateUser(ctx, auth.NewUser{Username: "bob@example.com", Password: "Passw0rd!", Roles: []string{"Admin"}})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteUser(ctx, "bob@example.com"))

	_, err = repo.Verify(ctx, "bob@example.com", "Passw0rd!")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials, "a deleted user is just invalid")

	err = repo.DeleteUser(ctx, "bob@example.com")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	_, err = repo.GetByUsername(ctx, "bob@example.com")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestBunUserRepository_CreateRequiresPassword(t *testing.T) {
	repo := newTestUserRepo(t)
	_, err := repo.CreateUser(context.Background(), auth.NewUser{Username: "x@example.com"})
	assert.ErrorIs(t, err, auth.ErrInvalidInput)
}
