package session

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// Set AUTHD_TEST_REDIS_ADDR to run against a live server. Database 15 is
// flushed before each case.
func TestRedisBackend(t *testing.T) {
	addr := os.Getenv("AUTHD_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("AUTHD_TEST_REDIS_ADDR not set")
	}
	runBackendSuite(t, func(t *testing.T) Backend {
		b, err := NewRedisBackend(addr, "", 15)
		require.NoError(t, err)
		ctx := context.Background()
		require.NoError(t, b.Ping(ctx))
		require.NoError(t, b.client.FlushDB(ctx).Err())
		t.Cleanup(func() { b.Close() })
		return b
	})
}
