package iam

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RevocationList remembers revoked token ids until the token expires.
type RevocationList interface {
	Revoke(ctx context.Context, jti, subject string, exp time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// DefaultRevocationCacheSize bounds the in-memory list.
const DefaultRevocationCacheSize = 10000

// MemoryRevocationList is a bounded in-process RevocationList. When full the
// least recently revoked ids are forgotten first, so its guarantee is
// best-effort; use the SQL list when revocation must survive restarts.
type MemoryRevocationList struct {
	mu    sync.Mutex
	cache *lru.Cache[string, time.Time]
	now   func() time.Time
}

func NewMemoryRevocationList(size int) (*MemoryRevocationList, error) {
	if size <= 0 {
		size = DefaultRevocationCacheSize
	}
	cache, err := lru.New[string, time.Time](size)
	if err != nil {
		return nil, fmt.Errorf("create revocation cache: %w", err)
	}
	return &MemoryRevocationList{cache: cache, now: time.Now}, nil
}

func (l *MemoryRevocationList) Revoke(_ context.Context, jti, _ string, exp time.Time) error {
	if !l.now().Before(exp) {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Add(jti, exp)
	return nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	exp, ok := l.cache.Peek(jti)
	if !ok {
		return false, nil
	}
	if !l.now().Before(exp) {
		l.cache.Remove(jti)
		return false, nil
	}
	return true, nil
}

// Len returns the number of remembered ids.
func (l *MemoryRevocationList) Len() int {
	return l.cache.Len()
}
