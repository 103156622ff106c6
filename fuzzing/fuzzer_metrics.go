package fuzzing

import "sync/atomic"

// FuzzerMetrics represents a struct tracking metrics for a Fuzzer run.
type FuzzerMetrics struct {
	// workerMetrics describes the metrics for each individual worker, corresponding to the indexes in
	// Fuzzer.workers. Workers update their own slot, so counters use atomics to stay readable while the
	// campaign runs.
	workerMetrics []fuzzerWorkerMetrics
}

// newFuzzerMetrics obtains a new FuzzerMetrics struct for a given number of workers specified by workerCount.
// Returns the new FuzzerMetrics object.
func newFuzzerMetrics(workerCount int) *FuzzerMetrics {
	// Create a new metrics struct and return it with as many slots as required.
	metrics := FuzzerMetrics{
		workerMetrics: make([]fuzzerWorkerMetrics, workerCount),
	}
	return &metrics
}

// InputsTested returns the amount of inputs whose candidate digests were compared against the reference
// hasher across all workers.
func (m *FuzzerMetrics) InputsTested() uint64 {
	inputsTested := uint64(0)
	for i := 0; i < len(m.workerMetrics); i++ {
		inputsTested += m.workerMetrics[i].inputsTested.Load()
	}
	return inputsTested
}

// CallsExecuted returns the amount of candidate contract calls executed across all workers. Each tested
// input costs two calls, one absorb and one squeeze.
func (m *FuzzerMetrics) CallsExecuted() uint64 {
	callsExecuted := uint64(0)
	for i := 0; i < len(m.workerMetrics); i++ {
		callsExecuted += m.workerMetrics[i].callsExecuted.Load()
	}
	return callsExecuted
}

// WorkerStartupCount describes the amount of workers which began executing their share of the campaign.
func (m *FuzzerMetrics) WorkerStartupCount() uint64 {
	workerStartupCount := uint64(0)
	for i := 0; i < len(m.workerMetrics); i++ {
		workerStartupCount += m.workerMetrics[i].workerStartupCount.Load()
	}
	return workerStartupCount
}

// WorkerCount returns the amount of worker slots tracked by this metrics object.
func (m *FuzzerMetrics) WorkerCount() int {
	return len(m.workerMetrics)
}

// WorkerInputsTested returns the amount of inputs tested by the worker occupying the provided index.
func (m *FuzzerMetrics) WorkerInputsTested(workerIndex int) uint64 {
	return m.workerMetrics[workerIndex].inputsTested.Load()
}

// WorkerCallsExecuted returns the amount of candidate contract calls executed by the worker occupying the
// provided index.
func (m *FuzzerMetrics) WorkerCallsExecuted(workerIndex int) uint64 {
	return m.workerMetrics[workerIndex].callsExecuted.Load()
}

// WorkerStarted indicates whether the worker occupying the provided index began executing its share.
func (m *FuzzerMetrics) WorkerStarted(workerIndex int) bool {
	return m.workerMetrics[workerIndex].workerStartupCount.Load() > 0
}

// fuzzerWorkerMetrics represents metrics for a single FuzzerWorker instance.
type fuzzerWorkerMetrics struct {
	// inputsTested describes the amount of inputs whose digests were compared against the reference hasher.
	inputsTested atomic.Uint64

	// callsExecuted describes the amount of candidate contract calls the worker executed.
	callsExecuted atomic.Uint64

	// workerStartupCount describes whether the worker began executing, in aggregate acting as a count of
	// started workers.
	workerStartupCount atomic.Uint64
}
