package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/claims"
)

const redisKeyPrefix = "session:"

// touchScript resolves and slides a session hash in one atomic step.
// Times are unix milliseconds. Replies: {0} missing, {1} expired (deleted),
// {2, expires_at, claims, id, created_at, max_expires_at} live.
var touchScript = redis.NewScript(`
local exp = redis.call("HGET", KEYS[1], "expires_at")
if not exp then
  return {0}
end
exp = tonumber(exp)
local now = tonumber(ARGV[1])
if now >= exp then
  redis.call("DEL", KEYS[1])
  return {1}
end
local maxexp = tonumber(redis.call("HGET", KEYS[1], "max_expires_at"))
local candidate = now + tonumber(ARGV[2])
if candidate > maxexp then
  candidate = maxexp
end
if candidate > exp then
  exp = candidate
  redis.call("HSET", KEYS[1], "expires_at", exp)
end
return {2, exp, redis.call("HGET", KEYS[1], "claims"), redis.call("HGET", KEYS[1], "id"),
  tonumber(redis.call("HGET", KEYS[1], "created_at")), maxexp}
`)

// RedisBackend stores each record as a hash. Keys carry a TTL at the
// record's maximum lifetime, so Redis evicts sessions that can no longer be
// renewed.
type RedisBackend struct {
	client redis.UniversalClient
}

// NewRedisBackend connects to addr.
func NewRedisBackend(addr, password string, db int) (*RedisBackend, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisBackend{client: client}, nil
}

// NewRedisBackendWithClient wraps an existing client.
func NewRedisBackendWithClient(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client}
}

// Ping checks connectivity.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close releases the client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func (b *RedisBackend) Create(ctx context.Context, rec *Record) error {
	payload, err := rec.Claims.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode claims: %w", err)
	}
	key := redisKeyPrefix + rec.Key
	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"id", rec.ID,
			"claims", string(payload),
			"created_at", rec.CreatedAt.UnixMilli(),
			"expires_at", rec.ExpiresAt.UnixMilli(),
			"max_expires_at", rec.MaxExpiresAt.UnixMilli(),
		)
		pipe.PExpireAt(ctx, key, rec.MaxExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis create session: %w", err)
	}
	return nil
}

func (b *RedisBackend) Touch(ctx context.Context, key string, now time.Time, window time.Duration) (*Record, error) {
	res, err := touchScript.Run(ctx, b.client, []string{redisKeyPrefix + key}, now.UnixMilli(), window.Milliseconds()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis touch session: %w", err)
	}
	values, ok := res.([]any)
	if !ok || len(values) == 0 {
		return nil, errors.New("unexpected redis session response")
	}
	status, _ := values[0].(int64)
	switch status {
	case 0:
		return nil, auth.ErrSessionNotFound
	case 1:
		return nil, auth.ErrSessionExpired
	}
	if len(values) < 6 {
		return nil, errors.New("short redis session response")
	}
	return decodeRedisRecord(key, values)
}

func decodeRedisRecord(key string, values []any) (*Record, error) {
	expMs, err := redisInt(values[1])
	if err != nil {
		return nil, err
	}
	rawClaims, _ := values[2].(string)
	id, _ := values[3].(string)
	createdMs, err := redisInt(values[4])
	if err != nil {
		return nil, err
	}
	maxMs, err := redisInt(values[5])
	if err != nil {
		return nil, err
	}
	var cs claims.ClaimSet
	if err := cs.UnmarshalJSON([]byte(rawClaims)); err != nil {
		return nil, fmt.Errorf("decode session claims: %w", err)
	}
	return &Record{
		ID:           id,
		Key:          key,
		Claims:       cs,
		CreatedAt:    time.UnixMilli(createdMs),
		ExpiresAt:    time.UnixMilli(expMs),
		MaxExpiresAt: time.UnixMilli(maxMs),
	}, nil
}

func redisInt(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected redis integer %T", v)
	}
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: renewals that can no longer happen are evicted by
// key TTL, and records past their sliding expiry are removed on next touch.
func (b *RedisBackend) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
