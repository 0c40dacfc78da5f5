package secrets

import (
	"encoding/base64"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	g := NewGenerator(nil)

	key, err := g.GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, KeyPrefix))
	assert.True(t, HasKeyPrefix(key))

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(key, KeyPrefix))
	require.NoError(t, err)
	assert.Equal(t, 32, len(raw))
}

func TestGenerateAPIKeyDeterministicWithSeededSource(t *testing.T) {
	a := NewGenerator(rand.New(rand.NewSource(7)))
	b := NewGenerator(rand.New(rand.NewSource(7)))

	keyA, err := a.GenerateAPIKey()
	require.NoError(t, err)
	keyB, err := b.GenerateAPIKey()
	require.NoError(t, err)

	assert.Equal(t, keyA, keyB)

	next, err := a.GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, keyA, next)
}

func TestRandomSuffix(t *testing.T) {
	g := NewGenerator(nil)

	suffix, err := g.RandomSuffix(8)
	require.NoError(t, err)
	assert.Len(t, suffix, 16)
	assert.Equal(t, strings.ToLower(suffix), suffix)
}

func TestHashSecret(t *testing.T) {
	digest := HashSecret("pk_example")

	// Deterministic, hex-encoded SHA-256.
	assert.Equal(t, HashSecret("pk_example"), digest)
	assert.Len(t, digest, 64)
	assert.NotEqual(t, digest, HashSecret("pk_other"))
}

func TestVerifySecret(t *testing.T) {
	digest := HashSecret("pk_example")

	assert.True(t, VerifySecret("pk_example", digest))
	assert.False(t, VerifySecret("pk_other", digest))
	assert.False(t, VerifySecret("pk_example", "not-a-digest"))
}
