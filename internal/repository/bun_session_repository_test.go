package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/claims"
	"github.com/ArashRezazadeh/DataAnnotations/internal/session"
)

var sessionEpoch = time.Date(2099, 3, 1, 12, 0, 0, 0, time.UTC)

func newSessionRecord(t *testing.T, key string) *session.Record {
	t.Helper()
	cs, err := claims.Build("user-1", "Lena", []string{"Admin"})
	require.NoError(t, err)
	return &session.Record{
		ID:           "01J00000000000000000000000",
		Key:          key,
		Claims:       cs,
		CreatedAt:    sessionEpoch,
		ExpiresAt:    sessionEpoch.Add(time.Hour),
		MaxExpiresAt: sessionEpoch.Add(3 * time.Hour),
	}
}

func TestBunSessionRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewBunSessionRepository(setupTestDB(t))
	rec := newSessionRecord(t, "hash-1")
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.Touch(ctx, "hash-1", sessionEpoch.Add(30*time.Minute), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, rec.Claims.All(), got.Claims.All())
	assert.True(t, got.ExpiresAt.Equal(sessionEpoch.Add(90*time.Minute)), "expires_at=%s", got.ExpiresAt)

	// An older observation does not shorten the stored expiry.
	got, err = repo.Touch(ctx, "hash-1", sessionEpoch.Add(10*time.Minute), time.Hour)
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.Equal(sessionEpoch.Add(90*time.Minute)))

	require.NoError(t, repo.Delete(ctx, "hash-1"))
	require.NoError(t, repo.Delete(ctx, "hash-1"))
	_, err = repo.Touch(ctx, "hash-1", sessionEpoch, time.Hour)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestBunSessionRepository_Expiry(t *testing.T) {
	ctx := context.Background()
	repo := NewBunSessionRepository(setupTestDB(t))
	require.NoError(t, repo.Create(ctx, newSessionRecord(t, "hash-1")))

	_, err := repo.Touch(ctx, "hash-1", sessionEpoch.Add(time.Hour), time.Hour)
	assert.ErrorIs(t, err, auth.ErrSessionExpired)
	_, err = repo.Touch(ctx, "hash-1", sessionEpoch.Add(time.Hour), time.Hour)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestBunSessionRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewBunSessionRepository(setupTestDB(t))
	short := newSessionRecord(t, "short")
	short.ExpiresAt = sessionEpoch.Add(time.Minute)
	require.NoError(t, repo.Create(ctx, short))
	long := newSessionRecord(t, "long")
	long.ID = "01J00000000000000000000001"
	require.NoError(t, repo.Create(ctx, long))

	n, err := repo.DeleteExpired(ctx, sessionEpoch.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Touch(ctx, "long", sessionEpoch.Add(2*time.Minute), time.Hour)
	assert.NoError(t, err)
}

func TestBunSessionRepository_ConcurrentTouch(t *testing.T) {
	ctx := context.Background()
	repo := NewBunSessionRepository(setupTestDB(t))
	require.NoError(t, repo.Create(ctx, newSessionRecord(t, "hash-1")))

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(minute int) {
			defer wg.Done()
			_, err := repo.Touch(ctx, "hash-1", sessionEpoch.Add(time.Duration(minute)*time.Minute), time.Hour)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := repo.Touch(ctx, "hash-1", sessionEpoch, time.Hour)
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.Equal(sessionEpoch.Add(70*time.Minute)), "expires_at=%s", got.ExpiresAt)
}

func TestBunSessionRepository_WithManager(t *testing.T) {
	ctx := context.Background()
	m, err := session.NewManager(NewBunSessionRepository(setupTestDB(t)), session.Options{
		SlidingWindow: time.Hour,
		MaxLifetime:   2 * time.Hour,
	})
	require.NoError(t, err)

	cs, err := claims.Build("user-1", "Lena", nil)
	require.NoError(t, err)
	ticket, err := m.Open(ctx, cs, 0)
	require.NoError(t, err)

	got, err := m.Resolve(ctx, ticket.Reference, time.Now())
	require.NoError(t, err)
	assert.Equal(t, cs.All(), got.All())

	require.NoError(t, m.Close(ctx, ticket.Reference))
	_, err = m.Resolve(ctx, ticket.Reference, time.Now())
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}
