package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// KeyPrefix marks API keys issued by this service. The prefix makes leaked
// keys identifiable in scanning tools without revealing anything about the
// key material.
const KeyPrefix = "pk_"

// keyBytes is the raw entropy per key: 32 bytes = 256 bits.
const keyBytes = 32

// Generator produces API keys from an injected randomness source so tests can
// seed it deterministically.
type Generator struct {
	rand io.Reader
}

// NewGenerator creates a Generator. A nil reader falls back to crypto/rand.
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{rand: r}
}

// GenerateAPIKey returns a new plaintext API key: the fixed prefix followed
// by 256 bits of entropy in unpadded URL-safe base64. Uniqueness rests on the
// entropy, not on a lookup.
func (g *Generator) GenerateAPIKey() (string, error) {
	raw := make([]byte, keyBytes)
	if _, err := io.ReadFull(g.rand, raw); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return KeyPrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// RandomSuffix returns n bytes of entropy hex-encoded, used for pseudonymous
// usernames and audit references.
func (g *Generator) RandomSuffix(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := io.ReadFull(g.rand, raw); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// HashSecret returns the SHA-256 digest of plaintext, hex-encoded. The digest
// is deterministic: it is the only stored form of a secret and the lookup key
// for credential verification.
func HashSecret(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// VerifySecret compares plaintext against a stored digest in constant time.
func VerifySecret(plaintext, digest string) bool {
	computed := HashSecret(plaintext)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

// HasKeyPrefix reports whether a presented credential looks like an API key
// issued by this service.
func HasKeyPrefix(key string) bool {
	return strings.HasPrefix(key, KeyPrefix)
}
