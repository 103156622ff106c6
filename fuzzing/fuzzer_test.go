package fuzzing

import (
	"bytes"
	"encoding/hex"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crytic/spongediff/fuzzing/config"
	"github.com/crytic/spongediff/keccak"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// corruptedCandidateBytecode is a contract which returns 32 zero bytes for every call, so its digest is
// well-formed but never agrees with the reference hasher.
var corruptedCandidateBytecode = []byte{0x60, 0x20, 0x60, 0x00, 0xf3}

// testFuzzerConfig obtains a default project configuration shrunk to sizes suitable for tests.
func testFuzzerConfig(t *testing.T) config.ProjectConfig {
	projectConfig, err := config.GetDefaultProjectConfig()
	require.NoError(t, err)
	projectConfig.Fuzzing.Workers = 2
	projectConfig.Fuzzing.Iterations = 50
	projectConfig.Fuzzing.MaxInputSize = 50
	projectConfig.Fuzzing.EnableTUI = false
	return *projectConfig
}

// TestFuzzerAgreement will test that a campaign against the built-in sponge candidate completes with
// every digest agreeing with the reference hasher.
func TestFuzzerAgreement(t *testing.T) {
	projectConfig := testFuzzerConfig(t)
	fuzzer, err := NewFuzzer(projectConfig)
	require.NoError(t, err)

	require.NoError(t, fuzzer.Start())
	assert.Equal(t, projectConfig.Fuzzing.Iterations, fuzzer.Metrics().InputsTested())
	assert.Equal(t, projectConfig.Fuzzing.Iterations*2, fuzzer.Metrics().CallsExecuted())
	assert.Equal(t, uint64(projectConfig.Fuzzing.Workers), fuzzer.Metrics().WorkerStartupCount())
}

// TestFuzzerIterationPartition will test that the iteration total is divided evenly between workers, with
// any remainder dropped rather than redistributed.
func TestFuzzerIterationPartition(t *testing.T) {
	// Create the list of test cases mapping iteration totals to expected per-worker shares.
	testCases := []struct {
		workers           int
		iterations        uint64
		expectedPerWorker uint64
	}{
		{4, 100, 25},
		{3, 10, 3},
		{4, 3, 0},
	}

	for _, tc := range testCases {
		projectConfig := testFuzzerConfig(t)
		projectConfig.Fuzzing.Workers = tc.workers
		projectConfig.Fuzzing.Iterations = tc.iterations

		fuzzer, err := NewFuzzer(projectConfig)
		require.NoError(t, err)
		require.NoError(t, fuzzer.Start())

		// Every worker should have tested exactly its share.
		for i := 0; i < tc.workers; i++ {
			assert.Equal(t, tc.expectedPerWorker, fuzzer.metrics.workerMetrics[i].inputsTested.Load())
		}
		assert.Equal(t, tc.expectedPerWorker*uint64(tc.workers), fuzzer.Metrics().InputsTested())
	}
}

// TestFuzzerReportsMismatch will test that a campaign against a corrupted candidate fails fast with a
// MismatchError carrying a reproducible input.
func TestFuzzerReportsMismatch(t *testing.T) {
	projectConfig := testFuzzerConfig(t)
	projectConfig.Candidate.Bytecode = hex.EncodeToString(corruptedCandidateBytecode)

	fuzzer, err := NewFuzzer(projectConfig)
	require.NoError(t, err)

	// The corrupted candidate disagrees on every input, so each worker fails on its first iteration.
	err = fuzzer.Start()
	var mismatchErr *MismatchError
	require.ErrorAs(t, err, &mismatchErr)
	assert.Equal(t, uint64(0), mismatchErr.Iteration)
	assert.Less(t, mismatchErr.WorkerIndex, projectConfig.Fuzzing.Workers)

	// The captured input must reproduce the reported reference digest, and the candidate digest must be
	// the corrupted contract's constant zero output.
	assert.Equal(t, keccak.Sum256(mismatchErr.Input), mismatchErr.Reference)
	assert.Equal(t, [32]byte{}, mismatchErr.Candidate)
	assert.NotEqual(t, mismatchErr.Reference, mismatchErr.Candidate)
}

// TestFuzzerReportsExecutionFault will test that a campaign against a reverting candidate fails fast with
// an ExecutionFaultError.
func TestFuzzerReportsExecutionFault(t *testing.T) {
	projectConfig := testFuzzerConfig(t)
	projectConfig.Candidate.Bytecode = hex.EncodeToString(revertWithReasonBytecode())

	fuzzer, err := NewFuzzer(projectConfig)
	require.NoError(t, err)

	err = fuzzer.Start()
	var faultErr *ExecutionFaultError
	require.ErrorAs(t, err, &faultErr)
	assert.Equal(t, "absorb", faultErr.Method)
	assert.Equal(t, "fail", faultErr.RevertReason)
}

// TestFuzzerEmptyInputBound will test a campaign with an input size bound of one, under which only the
// empty input can be generated.
func TestFuzzerEmptyInputBound(t *testing.T) {
	projectConfig := testFuzzerConfig(t)
	projectConfig.Fuzzing.Iterations = 20
	projectConfig.Fuzzing.MaxInputSize = 1

	fuzzer, err := NewFuzzer(projectConfig)
	require.NoError(t, err)
	require.NoError(t, fuzzer.Start())
	assert.Equal(t, uint64(20), fuzzer.Metrics().InputsTested())
}

// TestFuzzerEvents will test that the fuzzer publishes its lifecycle events with the expected
// cardinalities over a clean campaign.
func TestFuzzerEvents(t *testing.T) {
	projectConfig := testFuzzerConfig(t)
	fuzzer, err := NewFuzzer(projectConfig)
	require.NoError(t, err)

	// Track event counts. Worker events fire from worker goroutines, so counters must be atomic.
	var startingCount, stoppingCount, createdCount, destroyedCount atomic.Uint64
	fuzzer.Events.FuzzerStarting.Subscribe(func(event FuzzerStartingEvent) error {
		startingCount.Add(1)
		return nil
	})
	fuzzer.Events.FuzzerStopping.Subscribe(func(event FuzzerStoppingEvent) error {
		stoppingCount.Add(1)
		return nil
	})
	fuzzer.Events.WorkerCreated.Subscribe(func(event FuzzerWorkerCreatedEvent) error {
		createdCount.Add(1)
		return nil
	})
	fuzzer.Events.WorkerDestroyed.Subscribe(func(event FuzzerWorkerDestroyedEvent) error {
		destroyedCount.Add(1)
		return nil
	})

	require.NoError(t, fuzzer.Start())
	assert.Equal(t, uint64(1), startingCount.Load())
	assert.Equal(t, uint64(1), stoppingCount.Load())
	assert.Equal(t, uint64(projectConfig.Fuzzing.Workers), createdCount.Load())
	assert.Equal(t, uint64(projectConfig.Fuzzing.Workers), destroyedCount.Load())
}

// TestFuzzerTerminate will test that terminating a running campaign halts its workers without reporting
// an error.
func TestFuzzerTerminate(t *testing.T) {
	// Configure far more iterations than can complete, so only termination can end the campaign.
	projectConfig := testFuzzerConfig(t)
	projectConfig.Fuzzing.Iterations = 1 << 40

	fuzzer, err := NewFuzzer(projectConfig)
	require.NoError(t, err)

	// Run the campaign in the background and terminate it once its workers have started.
	resultCh := make(chan error, 1)
	go func() {
		resultCh <- fuzzer.Start()
	}()
	for fuzzer.Metrics().WorkerStartupCount() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	fuzzer.Terminate()

	select {
	case err = <-resultCh:
		assert.NoError(t, err)
	case <-time.After(30 * time.Second):
		t.Fatal("campaign did not halt after termination")
	}
}

// TestNewFuzzerValidatesConfig will test that fuzzer creation rejects invalid project configurations.
func TestNewFuzzerValidatesConfig(t *testing.T) {
	projectConfig := testFuzzerConfig(t)
	projectConfig.Fuzzing.Workers = 0
	fuzzer, err := NewFuzzer(projectConfig)
	assert.Error(t, err)
	assert.Nil(t, fuzzer)

	projectConfig = testFuzzerConfig(t)
	projectConfig.Candidate.Bytecode = ""
	fuzzer, err = NewFuzzer(projectConfig)
	assert.Error(t, err)
	assert.Nil(t, fuzzer)
}

// TestWorkerInputDeterminism will test that a worker's input sequence is fully determined by its random
// provider's seed.
func TestWorkerInputDeterminism(t *testing.T) {
	projectConfig := testFuzzerConfig(t)
	fuzzer, err := NewFuzzer(projectConfig)
	require.NoError(t, err)

	// Build workers around identically and differently seeded providers. The candidate is never called
	// during input generation, so none is attached.
	first := newFuzzerWorker(fuzzer, 0, nil, rand.New(rand.NewSource(42)), 0)
	second := newFuzzerWorker(fuzzer, 1, nil, rand.New(rand.NewSource(42)), 0)
	third := newFuzzerWorker(fuzzer, 2, nil, rand.New(rand.NewSource(43)), 0)

	identical := true
	for i := 0; i < 64; i++ {
		a := bytes.Clone(first.generateNextInput())
		b := bytes.Clone(second.generateNextInput())
		c := bytes.Clone(third.generateNextInput())
		assert.Equal(t, a, b)
		if !bytes.Equal(a, c) {
			identical = false
		}
	}
	assert.False(t, identical, "differently seeded workers generated identical input sequences")
}
