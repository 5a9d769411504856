// Package session implements server-side sessions referenced by an opaque
// cookie value.
//
// The Manager owns the lifecycle rules: unguessable references, an initial
// sliding window, forward-only renewal capped at a maximum lifetime, and
// idempotent close. Backends own storage and must apply Touch atomically per
// record, so two concurrent resolves of the same reference can never move
// the stored expiry backwards.
package session

import (
	"context"
	"time"

	"github.com/ArashRezazadeh/DataAnnotations/internal/claims"
)

// Record is the server-held state behind a session reference.
type Record struct {
	// ID is a log-safe identifier (ULID). It is not the reference.
	ID string `json:"id"`

	// Key is the SHA256 hash of the reference; the raw reference is never
	// stored.
	Key string `json:"key"`

	Claims claims.ClaimSet `json:"claims"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	// MaxExpiresAt caps every renewal: CreatedAt + max lifetime.
	MaxExpiresAt time.Time `json:"max_expires_at"`
}

// Backend stores session records.
type Backend interface {
	// Create stores rec. The write is atomic: a record is either fully
	// visible or absent.
	Create(ctx context.Context, rec *Record) error

	// Touch resolves the record under key and slides it as of now. It returns
	// auth.ErrSessionNotFound when absent; when now >= ExpiresAt it deletes
	// the record and returns auth.ErrSessionExpired.
	Touch(ctx context.Context, key string, now time.Time, window time.Duration) (*Record, error)

	// Delete removes the record under key. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// DeleteExpired removes every record with ExpiresAt <= now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Slide applies one renewal to rec in place and reports whether it was still
// live. The new expiry is min(now+window, MaxExpiresAt), and it is only ever
// moved forward so a late-arriving older resolve cannot shorten it.
//
// Backends call this inside their per-record critical section.
func Slide(rec *Record, now time.Time, window time.Duration) bool {
	if !now.Before(rec.ExpiresAt) {
		return false
	}
	candidate := now.Add(window)
	if candidate.After(rec.MaxExpiresAt) {
		candidate = rec.MaxExpiresAt
	}
	if candidate.After(rec.ExpiresAt) {
		rec.ExpiresAt = candidate
	}
	return true
}

func (r *Record) clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
