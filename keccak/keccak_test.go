package keccak

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestKnownVectors will test that the Hasher produces the expected Keccak-256 digests for a set of known inputs.
func TestKnownVectors(t *testing.T) {
	// Define inputs alongside their known legacy Keccak-256 digests.
	sequential := make([]byte, 100)
	for i := range sequential {
		sequential[i] = byte(i)
	}
	vectors := []struct {
		name   string
		input  []byte
		digest string
	}{
		{"empty", []byte{}, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
		{"single byte", []byte{0x01}, "5fe7f977e71dba2ea1a68e21057beebb9be2ac30c6410aa38d4f3fbe41dcffd2"},
		{"abc", []byte("abc"), "4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45"},
		{"pangram", []byte("The quick brown fox jumps over the lazy dog"), "4d741b6f1eb29cb2a9b9911c82f56fa8d73b04959d3d9d222895df6c0b28aa15"},
		{"sequential 100 bytes", sequential, "816afb32e7661842252bc955167ea1e36fde4ac8cfe932978b9dcdb04aee8ca4"},
		{"32 zero bytes", make([]byte, 32), "290decd9548b62a8d60345a988386fc84ba6bc95484008f6362f93160ef3e563"},
	}

	// Hash each vector with a shared Hasher and verify the digest.
	hasher := NewHasher()
	out := make([]byte, DigestLength)
	for _, vector := range vectors {
		expected, err := hex.DecodeString(vector.digest)
		assert.NoError(t, err)

		hasher.Sum(out, vector.input)
		assert.Equal(t, expected, out, "digest mismatch for vector %q", vector.name)

		// The one-shot helper must agree with the reusable Hasher.
		oneShot := Sum256(vector.input)
		assert.Equal(t, expected, oneShot[:], "one-shot digest mismatch for vector %q", vector.name)
	}
}

// TestHasherReuse will test that reusing a Hasher across inputs does not leak state between calls.
func TestHasherReuse(t *testing.T) {
	hasher := NewHasher()
	first := make([]byte, DigestLength)
	second := make([]byte, DigestLength)

	// Hash something unrelated first, then hash the target input twice.
	hasher.Sum(first, []byte("some unrelated input"))
	hasher.Sum(first, []byte("abc"))
	hasher.Sum(second, []byte("abc"))
	assert.Equal(t, first, second)

	// The digest of "abc" must match the known vector no matter the hashing history.
	assert.Equal(t, "4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45", hex.EncodeToString(second))
}
