package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/btcsuite/btcutil/base58"
)

// ReferenceLength is the number of random bytes behind an opaque session
// reference.
const ReferenceLength = 32

// GenerateReference returns a fresh opaque reference and its storage hash.
// The reference is base58 so it survives cookies and headers unescaped; only
// the hash is ever persisted.
func GenerateReference() (string, string, error) {
	buf := make([]byte, ReferenceLength)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate reference: %w", err)
	}
	ref := base58.Encode(buf)
	return ref, HashToken(ref), nil
}

// HashToken returns the SHA256 hex digest used as the lookup key for a
// presented reference.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// BearerToken extracts the credential from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(h http.Header) (string, bool) {
	value := strings.TrimSpace(h.Get("Authorization"))
	if len(value) < len("Bearer ") || !strings.EqualFold(value[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(value[len("Bearer "):])
	if token == "" {
		return "", false
	}
	return token, true
}
