package fuzzing

import (
	"bytes"
	"context"
	"math/rand"

	"github.com/crytic/spongediff/keccak"
	"github.com/crytic/spongediff/utils"
)

// FuzzerWorker describes a single worker thread carrying out a share of a differential fuzzing campaign.
// Each iteration it generates a random input, hashes it with the reference hasher, drives the candidate
// contract's absorb/squeeze protocol with the same input, and compares the two digests.
type FuzzerWorker struct {
	// workerIndex describes the index of the worker spun up by the fuzzer.
	workerIndex int

	// fuzzer describes the Fuzzer instance which this worker belongs to.
	fuzzer *Fuzzer

	// candidate describes the candidate contract this worker tests, deployed in an execution environment
	// exclusive to this worker for the lifetime of the campaign.
	candidate *Candidate

	// randomProvider provides random data for input generation. It is forked from the fuzzer's master
	// random provider, so a worker's input sequence is fully determined by its fork seed.
	randomProvider *rand.Rand

	// iterations describes the number of inputs this worker will test.
	iterations uint64

	// hasher computes reference digests, reused across iterations.
	hasher *keccak.Hasher

	// inputBuffer backs the current iteration's input and is overwritten by the next one, so anything
	// escaping an iteration must copy it.
	inputBuffer []byte
}

// newFuzzerWorker creates a new FuzzerWorker, assigning it the provided worker index and associating it to
// the Fuzzer instance supplied.
// Returns the new FuzzerWorker.
func newFuzzerWorker(fuzzer *Fuzzer, workerIndex int, candidate *Candidate, randomProvider *rand.Rand, iterations uint64) *FuzzerWorker {
	return &FuzzerWorker{
		workerIndex:    workerIndex,
		fuzzer:         fuzzer,
		candidate:      candidate,
		randomProvider: randomProvider,
		iterations:     iterations,
		hasher:         keccak.NewHasher(),
		inputBuffer:    make([]byte, fuzzer.config.Fuzzing.MaxInputSize),
	}
}

// WorkerIndex returns the index of this FuzzerWorker in relation to its parent Fuzzer.
func (fw *FuzzerWorker) WorkerIndex() int {
	return fw.workerIndex
}

// Candidate returns the candidate contract this worker tests.
func (fw *FuzzerWorker) Candidate() *Candidate {
	return fw.candidate
}

// workerMetrics returns the fuzzerWorkerMetrics for this specific worker.
func (fw *FuzzerWorker) workerMetrics() *fuzzerWorkerMetrics {
	return &fw.fuzzer.metrics.workerMetrics[fw.workerIndex]
}

// generateNextInput fills the worker's input buffer with this iteration's random input. The input length
// is drawn uniformly from [0, maxInputSize), so the upper bound is exclusive and the empty input remains
// reachable.
// Returns the input as a slice of the worker's reusable buffer.
func (fw *FuzzerWorker) generateNextInput() []byte {
	length := fw.randomProvider.Intn(fw.fuzzer.config.Fuzzing.MaxInputSize)
	input := fw.inputBuffer[:length]
	fw.randomProvider.Read(input)
	return input
}

// run executes the worker's share of the fuzzing campaign, testing one input per iteration until its share
// is exhausted. It exits early with a nil error if ctx is cancelled, as cancellation indicates a halt
// requested by the fuzzer rather than a finding.
// Returns a MismatchError if reference and candidate digests disagreed on an input, an
// ExecutionFaultError if the candidate could not execute an input, or nil if every tested input agreed.
func (fw *FuzzerWorker) run(ctx context.Context) error {
	// Count our startup now that the worker is executing.
	fw.workerMetrics().workerStartupCount.Add(1)

	var referenceDigest [keccak.DigestLength]byte
	for i := uint64(0); i < fw.iterations; i++ {
		// If our context signalled to close the operation, exit our testing loop accordingly.
		if utils.CheckContextDone(ctx) {
			return nil
		}

		// Generate this iteration's input and compute the reference digest for it.
		input := fw.generateNextInput()
		fw.hasher.Sum(referenceDigest[:], input)

		// Drive the candidate through one absorb/squeeze cycle with the same input.
		if err := fw.candidate.Absorb(input); err != nil {
			return err
		}
		fw.workerMetrics().callsExecuted.Add(1)
		candidateDigest, err := fw.candidate.Squeeze()
		if err != nil {
			return err
		}
		fw.workerMetrics().callsExecuted.Add(1)

		// Compare the two digests. On disagreement we capture a copy of the input, as the buffer backing
		// it is reused.
		if !bytes.Equal(referenceDigest[:], candidateDigest[:]) {
			return &MismatchError{
				WorkerIndex: fw.workerIndex,
				Iteration:   i,
				Input:       bytes.Clone(input),
				Reference:   referenceDigest,
				Candidate:   candidateDigest,
			}
		}
		fw.workerMetrics().inputsTested.Add(1)
	}

	// Every input in our share agreed with the reference.
	return nil
}
