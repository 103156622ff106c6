package fuzzing

import "fmt"

// MismatchError describes a digest disagreement between the reference hasher and a candidate contract,
// discovered by a worker during a fuzzing campaign. It captures everything needed to reproduce the
// divergence outside the fuzzer.
type MismatchError struct {
	// WorkerIndex describes the index of the worker which discovered the mismatch.
	WorkerIndex int

	// Iteration describes the zero-based iteration of that worker at which the mismatch occurred.
	Iteration uint64

	// Input describes the exact input whose digests disagreed.
	Input []byte

	// Reference describes the digest produced by the reference hasher.
	Reference [32]byte

	// Candidate describes the digest produced by the candidate contract.
	Candidate [32]byte
}

// Error obtains a message describing the mismatch, including the reproducing input and both digests.
func (e *MismatchError) Error() string {
	return fmt.Sprintf(
		"digest mismatch in worker %d at iteration %d\ninput: 0x%x\nreference: 0x%x\ncandidate: 0x%x",
		e.WorkerIndex, e.Iteration, e.Input, e.Reference, e.Candidate,
	)
}
