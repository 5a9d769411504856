package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
)

var sessionsBucket = []byte("sessions")

// BoltBackend stores records in a bbolt file. bbolt serialises write
// transactions, which makes every Touch atomic.
type BoltBackend struct {
	db *bolt.DB
}

// OpenBoltBackend opens (or creates) the database at path.
func OpenBoltBackend(path string) (*BoltBackend, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session db %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sessions bucket: %w", err)
	}
	return &BoltBackend{db: db}, nil
}

// Close closes the underlying database.
func (b *BoltBackend) Close() error {
	return b.db.Close()
}

func (b *BoltBackend) Create(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(sessionsBucket)
		if bucket.Get([]byte(rec.Key)) != nil {
			return fmt.Errorf("session key collision")
		}
		return bucket.Put([]byte(rec.Key), data)
	})
}

func (b *BoltBackend) Touch(ctx context.Context, key string, now time.Time, window time.Duration) (*Record, error) {
	var out *Record
	var rejection error
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(sessionsBucket)
		data := bucket.Get([]byte(key))
		if data == nil {
			rejection = auth.ErrSessionNotFound
			return nil
		}
		rec := &Record{}
		if err := json.Unmarshal(data, rec); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if !Slide(rec, now, window) {
			rejection = auth.ErrSessionExpired
			return bucket.Delete([]byte(key))
		}
		updated, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		out = rec
		return bucket.Put([]byte(key), updated)
	})
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		return nil, rejection
	}
	return out, nil
}

func (b *BoltBackend) Delete(ctx context.Context, key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete([]byte(key))
	})
}

func (b *BoltBackend) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(sessionsBucket)
		var expired [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				// Undecodable records can never resolve; drop them too.
				expired = append(expired, append([]byte(nil), k...))
				return nil
			}
			if !now.Before(rec.ExpiresAt) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := bucket.Delete(k); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}
