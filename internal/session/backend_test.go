package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/claims"
)

// Far enough ahead that Redis key TTLs derived from it are never in the past.
var epoch = time.Date(2099, 3, 1, 12, 0, 0, 0, time.UTC)

func testClaims(t *testing.T) claims.ClaimSet {
	t.Helper()
	cs, err := claims.Build("user-1", "Lena", []string{"Admin", "Reader"})
	require.NoError(t, err)
	return cs
}

func newRecord(t *testing.T, key string, created time.Time, window, maxLife time.Duration) *Record {
	t.Helper()
	return &Record{
		ID:           "01HZZZZZZZZZZZZZZZZZZZZZZZ",
		Key:          key,
		Claims:       testClaims(t),
		CreatedAt:    created,
		ExpiresAt:    created.Add(window),
		MaxExpiresAt: created.Add(maxLife),
	}
}

// runBackendSuite checks the Backend contract shared by every store.
func runBackendSuite(t *testing.T, newBackend func(t *testing.T) Backend) {
	ctx := context.Background()
	window := time.Hour
	maxLife := 3 * time.Hour

	t.Run("touch missing key", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Touch(ctx, "missing", epoch, window)
		assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	})

	t.Run("create then touch slides expiry", func(t *testing.T) {
		b := newBackend(t)
		rec := newRecord(t, "k1", epoch, window, maxLife)
		require.NoError(t, b.Create(ctx, rec))

		got, err := b.Touch(ctx, "k1", epoch.Add(30*time.Minute), window)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, rec.Claims.All(), got.Claims.All())
		assert.True(t, got.ExpiresAt.Equal(epoch.Add(90*time.Minute)), "expires_at=%s", got.ExpiresAt)
	})

	t.Run("slide is capped at max lifetime", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Create(ctx, newRecord(t, "k1", epoch, window, maxLife)))

		at := epoch
		for i := 0; i < 6; i++ {
			at = at.Add(50 * time.Minute)
			if !at.Before(epoch.Add(maxLife)) {
				break
			}
			got, err := b.Touch(ctx, "k1", at, window)
			require.NoError(t, err)
			assert.False(t, got.ExpiresAt.After(epoch.Add(maxLife)))
		}
		_, err := b.Touch(ctx, "k1", epoch.Add(maxLife), window)
		assert.ErrorIs(t, err, auth.ErrSessionExpired)
	})

	t.Run("expired record is deleted", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Create(ctx, newRecord(t, "k1", epoch, window, maxLife)))

		_, err := b.Touch(ctx, "k1", epoch.Add(window), window)
		assert.ErrorIs(t, err, auth.ErrSessionExpired)

		_, err = b.Touch(ctx, "k1", epoch.Add(window), window)
		assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	})

	t.Run("older touch never shortens expiry", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Create(ctx, newRecord(t, "k1", epoch, window, maxLife)))

		late, err := b.Touch(ctx, "k1", epoch.Add(40*time.Minute), window)
		require.NoError(t, err)
		early, err := b.Touch(ctx, "k1", epoch.Add(10*time.Minute), window)
		require.NoError(t, err)
		assert.True(t, early.ExpiresAt.Equal(late.ExpiresAt))
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Create(ctx, newRecord(t, "k1", epoch, window, maxLife)))
		require.NoError(t, b.Delete(ctx, "k1"))
		require.NoError(t, b.Delete(ctx, "k1"))
		require.NoError(t, b.Delete(ctx, "never-existed"))

		_, err := b.Touch(ctx, "k1", epoch, window)
		assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	})

	t.Run("concurrent touches keep the latest expiry", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Create(ctx, newRecord(t, "k1", epoch, window, maxLife)))

		var wg sync.WaitGroup
		for i := 1; i <= 20; i++ {
			wg.Add(1)
			go func(minute int) {
				defer wg.Done()
				_, err := b.Touch(ctx, "k1", epoch.Add(time.Duration(minute)*time.Minute), window)
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		got, err := b.Touch(ctx, "k1", epoch, window)
		require.NoError(t, err)
		assert.True(t, got.ExpiresAt.Equal(epoch.Add(20*time.Minute+window)), "expires_at=%s", got.ExpiresAt)
	})
}

func TestSlide(t *testing.T) {
	rec := &Record{ExpiresAt: epoch.Add(time.Hour), MaxExpiresAt: epoch.Add(90 * time.Minute)}

	require.True(t, Slide(rec, epoch.Add(10*time.Minute), time.Hour))
	assert.Equal(t, epoch.Add(70*time.Minute), rec.ExpiresAt)

	require.True(t, Slide(rec, epoch.Add(60*time.Minute), time.Hour))
	assert.Equal(t, epoch.Add(90*time.Minute), rec.ExpiresAt, "capped at max lifetime")

	assert.False(t, Slide(rec, epoch.Add(90*time.Minute), time.Hour))
}
