package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
)

type memoryEntry struct {
	mu      sync.Mutex
	rec     *Record
	removed bool
}

// MemoryBackend keeps records in process memory. The map lock is only held
// to find or insert entries; renewals lock the individual entry, so
// different references never contend.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]*memoryEntry)}
}

func (b *MemoryBackend) Create(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.entries[rec.Key]; exists {
		return fmt.Errorf("session key collision")
	}
	b.entries[rec.Key] = &memoryEntry{rec: rec.clone()}
	return nil
}

func (b *MemoryBackend) Touch(ctx context.Context, key string, now time.Time, window time.Duration) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	entry, ok := b.entries[key]
	b.mu.RUnlock()
	if !ok {
		return nil, auth.ErrSessionNotFound
	}

	entry.mu.Lock()
	if entry.removed {
		entry.mu.Unlock()
		return nil, auth.ErrSessionNotFound
	}
	if !Slide(entry.rec, now, window) {
		entry.removed = true
		entry.mu.Unlock()
		b.remove(key, entry)
		return nil, auth.ErrSessionExpired
	}
	out := entry.rec.clone()
	entry.mu.Unlock()
	return out, nil
}

func (b *MemoryBackend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	entry, ok := b.entries[key]
	if ok {
		delete(b.entries, key)
	}
	b.mu.Unlock()
	if ok {
		entry.mu.Lock()
		entry.removed = true
		entry.mu.Unlock()
	}
	return nil
}

func (b *MemoryBackend) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int64
	for key, entry := range b.entries {
		entry.mu.Lock()
		if !now.Before(entry.rec.ExpiresAt) {
			entry.removed = true
			delete(b.entries, key)
			n++
		}
		entry.mu.Unlock()
	}
	return n, nil
}

// Len returns the number of stored records.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// remove deletes key only if it still maps to entry.
func (b *MemoryBackend) remove(key string, entry *memoryEntry) {
	b.mu.Lock()
	if b.entries[key] == entry {
		delete(b.entries, key)
	}
	b.mu.Unlock()
}
