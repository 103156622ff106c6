package fuzzing

import (
	"encoding/hex"
	"testing"

	"github.com/crytic/spongediff/chain"
	"github.com/crytic/spongediff/fuzzing/config"
	"github.com/crytic/spongediff/keccak"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCandidate deploys the provided runtime bytecode into a fresh execution environment and wraps it
// in the candidate call protocol, failing the test if setup does not succeed.
func newTestCandidate(t *testing.T, code []byte) (*Candidate, *chain.ExecutionEnv) {
	env, err := chain.NewExecutionEnv(
		common.HexToAddress("0xdead00000000000000000000000000000000beef"),
		code,
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
	)
	require.NoError(t, err)
	candidate, err := NewCandidate(env)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, candidate.Close())
	})
	return candidate, env
}

// defaultSpongeBytecode decodes the built-in stateful sponge candidate's runtime bytecode.
func defaultSpongeBytecode(t *testing.T) []byte {
	bytecode, err := hex.DecodeString(config.DefaultCandidateBytecode)
	require.NoError(t, err)
	return bytecode
}

// revertWithReasonBytecode assembles a contract which reverts every call with an ABI-encoded
// Error("fail") payload.
func revertWithReasonBytecode() []byte {
	// Build the revert payload: the Error(string) selector, the string head, its length, and its data.
	payload := []byte{0x08, 0xc3, 0x79, 0xa0}
	payload = append(payload, common.LeftPadBytes([]byte{0x20}, 32)...)
	payload = append(payload, common.LeftPadBytes([]byte{0x04}, 32)...)
	payload = append(payload, common.RightPadBytes([]byte("fail"), 32)...)

	// PUSH32 the payload into memory word by word, then revert with it.
	var code []byte
	for offset := 0; offset < len(payload); offset += 32 {
		code = append(code, 0x7f)
		code = append(code, common.RightPadBytes(payload[offset:min(offset+32, len(payload))], 32)...)
		code = append(code, 0x60, byte(offset), 0x52)
	}
	return append(code, 0x60, byte(len(payload)), 0x60, 0x00, 0xfd)
}

// TestCandidateAgreesWithReference will test that the built-in sponge candidate produces the same digest
// as the reference hasher across inputs of assorted lengths and alignments.
func TestCandidateAgreesWithReference(t *testing.T) {
	candidate, _ := newTestCandidate(t, defaultSpongeBytecode(t))

	// Build a set of inputs covering the empty input, sub-word inputs, word-aligned inputs, and inputs
	// spanning several words.
	sequential := make([]byte, 100)
	for i := range sequential {
		sequential[i] = byte(i)
	}
	inputs := [][]byte{
		{},
		{0x01},
		[]byte("abc"),
		[]byte("The quick brown fox jumps over the lazy dog"),
		make([]byte, 32),
		sequential,
	}

	for _, input := range inputs {
		require.NoError(t, candidate.Absorb(input))
		candidateDigest, err := candidate.Squeeze()
		require.NoError(t, err)
		assert.Equal(t, keccak.Sum256(input), candidateDigest, "digests disagreed for input 0x%x", input)
	}

	// Anchor one digest against a fixed vector rather than the reference hasher.
	require.NoError(t, candidate.Absorb([]byte("abc")))
	candidateDigest, err := candidate.Squeeze()
	require.NoError(t, err)
	assert.Equal(t, "4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45", hex.EncodeToString(candidateDigest[:]))
}

// TestCandidateResetsAfterSqueeze will test that squeezing clears the candidate's pending input, so
// digests never mix current and historical input even though storage persists across iterations.
func TestCandidateResetsAfterSqueeze(t *testing.T) {
	candidate, env := newTestCandidate(t, defaultSpongeBytecode(t))

	// Absorb a long input first, so its words linger in storage afterwards.
	long := make([]byte, 100)
	for i := range long {
		long[i] = 0xA5
	}
	require.NoError(t, candidate.Absorb(long))
	longDigest, err := candidate.Squeeze()
	require.NoError(t, err)
	assert.Equal(t, keccak.Sum256(long), longDigest)

	// The pending input length must be cleared by the squeeze.
	assert.Equal(t, common.Hash{}, env.StorageAt(common.Hash{}))

	// A shorter input absorbed next must hash cleanly despite the longer input's stale storage words.
	short := []byte("abc")
	require.NoError(t, candidate.Absorb(short))
	shortDigest, err := candidate.Squeeze()
	require.NoError(t, err)
	assert.Equal(t, keccak.Sum256(short), shortDigest)

	// Repeating an input must reproduce its digest exactly.
	require.NoError(t, candidate.Absorb(short))
	repeatDigest, err := candidate.Squeeze()
	require.NoError(t, err)
	assert.Equal(t, shortDigest, repeatDigest)
}

// TestCandidateRevertFault will test that a reverting candidate surfaces an ExecutionFaultError carrying
// the decoded revert reason.
func TestCandidateRevertFault(t *testing.T) {
	candidate, _ := newTestCandidate(t, revertWithReasonBytecode())

	// The absorb call should fault with the revert reason decoded.
	err := candidate.Absorb([]byte{0x01})
	var faultErr *ExecutionFaultError
	require.ErrorAs(t, err, &faultErr)
	assert.Equal(t, "absorb", faultErr.Method)
	assert.ErrorIs(t, faultErr.VMError, vm.ErrExecutionReverted)
	assert.Equal(t, "fail", faultErr.RevertReason)

	// The squeeze call should fault the same way.
	_, err = candidate.Squeeze()
	require.ErrorAs(t, err, &faultErr)
	assert.Equal(t, "squeeze", faultErr.Method)
	assert.Equal(t, "fail", faultErr.RevertReason)
}

// TestCandidateDecodeFault will test that squeeze return data which does not decode to a digest surfaces
// an ExecutionFaultError.
func TestCandidateDecodeFault(t *testing.T) {
	// Deploy a contract which echoes its calldata, so squeeze returns four selector bytes instead of a
	// 32 byte digest.
	candidate, _ := newTestCandidate(t, []byte{0x36, 0x60, 0x00, 0x60, 0x00, 0x37, 0x36, 0x60, 0x00, 0xf3})

	// The absorb call succeeds, as its return data is ignored.
	require.NoError(t, candidate.Absorb([]byte{0x01}))

	// The squeeze call should report a fault for the malformed return data.
	_, err := candidate.Squeeze()
	var faultErr *ExecutionFaultError
	require.ErrorAs(t, err, &faultErr)
	assert.Equal(t, "squeeze", faultErr.Method)
	assert.Equal(t, []byte{0x85, 0x7c, 0x20, 0x1f}, faultErr.ReturnData)
}

// TestCandidateCorruptedDigest will test that a candidate returning a well-formed but wrong digest
// produces no fault, as detecting the disagreement is the fuzzer's job.
func TestCandidateCorruptedDigest(t *testing.T) {
	// Deploy a contract which returns 32 zero bytes for every call.
	candidate, _ := newTestCandidate(t, []byte{0x60, 0x20, 0x60, 0x00, 0xf3})

	require.NoError(t, candidate.Absorb([]byte("abc")))
	candidateDigest, err := candidate.Squeeze()
	require.NoError(t, err)
	assert.Equal(t, [32]byte{}, candidateDigest)
	assert.NotEqual(t, keccak.Sum256([]byte("abc")), candidateDigest)
}
