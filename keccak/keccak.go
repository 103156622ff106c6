// Package keccak provides the reference Keccak-256 implementation that candidate digests are checked against. It uses
// the legacy (pre-NIST padding) variant of the hash, which is the one Ethereum uses for all hashing on-chain.
package keccak

import (
	"hash"

	"golang.org/x/crypto/sha3"
)

// DigestLength describes the byte length of a Keccak-256 digest.
const DigestLength = 32

// keccakState wraps sha3.state. In addition to the usual hash methods, it also supports the Read method to squeeze
// variable length output from the sponge without finalizing a copy of the state.
type keccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

// Hasher describes a reusable Keccak-256 hashing state. It is not safe for concurrent use, so each worker should hold
// its own. The underlying sponge state is allocated once and reset between inputs, and the caller owns the output
// buffer, so hashing performs no per-call allocations.
type Hasher struct {
	// state describes the underlying legacy Keccak-256 sponge state.
	state keccakState
}

// NewHasher creates a new reusable Keccak-256 Hasher.
func NewHasher() *Hasher {
	return &Hasher{state: sha3.NewLegacyKeccak256().(keccakState)}
}

// Sum writes the Keccak-256 digest of data into out, which must be DigestLength bytes long. Identical input always
// produces an identical digest, regardless of what was hashed before.
func (h *Hasher) Sum(out []byte, data []byte) {
	h.state.Reset()
	h.state.Write(data)
	h.state.Read(out)
}

// Sum256 is a one-shot convenience that returns the Keccak-256 digest of data.
func Sum256(data []byte) [DigestLength]byte {
	var digest [DigestLength]byte
	NewHasher().Sum(digest[:], data)
	return digest
}
