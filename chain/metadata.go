package chain

import (
	"bytes"
	"fmt"

	"github.com/Masterminds/semver"
	"github.com/fxamacker/cbor"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ContractMetadata is a CBOR-encoded structure describing contract information which is embedded within smart
// contract bytecode by the Solidity compiler (unless explicitly directed not to). Candidate blobs handed to the
// fuzzer are opaque, but when one was produced by solc this trailing metadata identifies its provenance.
// Reference: https://docs.soliditylang.org/en/v0.8.16/metadata.html
type ContractMetadata map[string]any

// metadataHashPrefixes defines patterns to use in search for CBOR-encoded contract metadata appended to the end of
// bytecode.
var metadataHashPrefixes = [][]byte{
	{0xa1, 0x65, 98, 122, 122, 114, 48, 0x58, 0x20},  // a1 65 "bzzr0" 0x58 0x20 (solc <= 0.5.8)
	{0xa2, 0x65, 98, 122, 122, 114, 48, 0x58, 0x20},  // a2 65 "bzzr0" 0x58 0x20 (solc >= 0.5.9)
	{0xa2, 0x65, 98, 122, 122, 114, 49, 0x58, 0x20},  // a2 65 "bzzr1" 0x58 0x20 (solc >= 0.5.11)
	{0xa2, 0x64, 0x69, 0x70, 0x66, 0x73, 0x58, 0x22}, // a2 64 "ipfs" 0x58 0x22 (solc >= 0.6.0)
}

// byteCodeHashMetadataKeys defines the keys in the CBOR-encoded ContractMetadata which contain bytecode hashes.
var byteCodeHashMetadataKeys = [...]string{
	"bzzr0",
	"bzzr1",
	"ipfs",
}

// ExtractContractMetadata extracts contract metadata from the provided bytecode and returns it. If contract metadata
// could not be extracted, nil is returned.
func ExtractContractMetadata(bytecode []byte) *ContractMetadata {
	// Try matching each metadata hash prefix in the blob. Metadata is appended to the end of the bytecode.
	for _, metadataHashPrefix := range metadataHashPrefixes {
		metadataOffset := bytes.LastIndex(bytecode, metadataHashPrefix)
		if metadataOffset == -1 {
			continue
		}

		// Solc suffixes the CBOR blob with a two byte length, so try decoding the exact blob first and fall back to
		// the full tail for bytecode that carries no suffix.
		tail := bytecode[metadataOffset:]
		var metadata ContractMetadata
		if len(tail) > 2 {
			if err := cbor.Unmarshal(tail[:len(tail)-2], &metadata); err == nil {
				return &metadata
			}
		}
		if err := cbor.Unmarshal(tail, &metadata); err == nil {
			return &metadata
		}
	}
	return nil
}

// ExtractBytecodeHash extracts the bytecode hash from given contract metadata and returns the bytes representing the
// hash. If it could not be detected or extracted, nil is returned.
func (m ContractMetadata) ExtractBytecodeHash() []byte {
	// Try every known metadata key to see if we can resolve the bytecode hash
	for _, possibleMetadataKey := range byteCodeHashMetadataKeys {
		if bytecodeHashData, keyExists := m[possibleMetadataKey]; keyExists {
			// Try to cast it to a byte array and return it if we succeeded.
			if bytecodeHash, ok := bytecodeHashData.([]byte); ok {
				return bytecodeHash
			}
		}
	}
	return nil
}

// CompilerVersion returns the solc release recorded in the metadata. The version is encoded as a three byte
// major/minor/patch tuple under the "solc" key (solc >= 0.5.9). Returns an error if the metadata carries no
// well-formed version.
func (m ContractMetadata) CompilerVersion() (*semver.Version, error) {
	versionData, keyExists := m["solc"]
	if !keyExists {
		return nil, fmt.Errorf("contract metadata carries no compiler version")
	}
	versionBytes, ok := versionData.([]byte)
	if !ok || len(versionBytes) != 3 {
		return nil, fmt.Errorf("contract metadata carries a malformed compiler version")
	}

	// Parse our semver string and return it
	return semver.NewVersion(fmt.Sprintf("%d.%d.%d", versionBytes[0], versionBytes[1], versionBytes[2]))
}

// Keys returns the sorted list of keys present in the metadata. This is useful for reporting what a candidate blob
// ships alongside its code.
func (m ContractMetadata) Keys() []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
