package bunx

import "github.com/google/uuid"

// NewID returns a time-ordered UUIDv7 string for primary keys. IDs are
// generated in Go so the schema needs no gen_random_uuid() and works the same
// on SQLite and PostgreSQL.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
