package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
)

// MinKeyLength is the minimum signing key size in bytes (256 bits for HS256).
const MinKeyLength = 32

// CheckKey rejects empty or weak signing keys.
func CheckKey(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: signing key is empty", auth.ErrConfiguration)
	}
	if len(key) < MinKeyLength {
		return fmt.Errorf("%w: signing key is %d bytes, need at least %d", auth.ErrConfiguration, len(key), MinKeyLength)
	}
	return nil
}

// LoadKeyFile reads a signing key from path. Surrounding whitespace is
// trimmed; the remaining bytes are used verbatim as the HMAC key.
func LoadKeyFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read signing key file %s: %v", auth.ErrConfiguration, path, err)
	}
	key := []byte(strings.TrimSpace(string(raw)))
	if err := CheckKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// GenerateKey returns size random bytes encoded as standard base64, suitable
// for writing to a key file.
func GenerateKey(size int) (string, error) {
	if size < MinKeyLength {
		size = MinKeyLength
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate signing key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
