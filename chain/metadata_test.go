package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSolcBytecode constructs a bytecode blob ending in the CBOR metadata tail solc appends to compiled contracts,
// carrying the provided ipfs hash and compiler version tuple.
func buildSolcBytecode(code []byte, ipfsHash []byte, versionTuple []byte) []byte {
	// CBOR map with two entries: {"ipfs": h'<34 bytes>', "solc": h'<3 bytes>'}
	tail := []byte{0xa2}
	tail = append(tail, 0x64)
	tail = append(tail, []byte("ipfs")...)
	tail = append(tail, 0x58, 0x22)
	tail = append(tail, ipfsHash...)
	tail = append(tail, 0x64)
	tail = append(tail, []byte("solc")...)
	tail = append(tail, 0x43)
	tail = append(tail, versionTuple...)

	// Solc suffixes the metadata with its two byte big-endian length
	blob := append(append([]byte{}, code...), tail...)
	return append(blob, 0x00, byte(len(tail)))
}

// TestExtractContractMetadata will test that CBOR metadata appended to a bytecode blob is discovered and decoded.
func TestExtractContractMetadata(t *testing.T) {
	// Build a blob with an ipfs hash (sha2-256 multihash framing) and a solc 0.8.25 version tuple.
	ipfsHash := append([]byte{0x12, 0x20}, make([]byte, 32)...)
	for i := 2; i < len(ipfsHash); i++ {
		ipfsHash[i] = byte(i)
	}
	bytecode := buildSolcBytecode([]byte{0x60, 0x00, 0x60, 0x00, 0xfd}, ipfsHash, []byte{0x00, 0x08, 0x19})

	// The metadata should be extracted with its hash, version, and key set intact.
	metadata := ExtractContractMetadata(bytecode)
	require.NotNil(t, metadata)
	assert.Equal(t, ipfsHash, metadata.ExtractBytecodeHash())
	version, err := metadata.CompilerVersion()
	assert.NoError(t, err)
	assert.Equal(t, "0.8.25", version.String())
	assert.Equal(t, []string{"ipfs", "solc"}, metadata.Keys())
}

// TestExtractContractMetadataAbsent will test that bytecode with no metadata tail yields no metadata.
func TestExtractContractMetadataAbsent(t *testing.T) {
	// A plain runtime program with no CBOR tail, like the hand-assembled default candidates.
	assert.Nil(t, ExtractContractMetadata([]byte{0x60, 0x20, 0x60, 0x00, 0xf3}))
	assert.Nil(t, ExtractContractMetadata(nil))
}

// TestCompilerVersionMissing will test that metadata without a well-formed solc version reports an error.
func TestCompilerVersionMissing(t *testing.T) {
	// No solc key at all
	_, err := ContractMetadata{"ipfs": []byte{0x12}}.CompilerVersion()
	assert.Error(t, err)

	// A solc key with the wrong shape
	_, err = ContractMetadata{"solc": "0.8.25"}.CompilerVersion()
	assert.Error(t, err)
	_, err = ContractMetadata{"solc": []byte{0x00, 0x08}}.CompilerVersion()
	assert.Error(t, err)
}
