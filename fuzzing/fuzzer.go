package fuzzing

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/crytic/spongediff/chain"
	"github.com/crytic/spongediff/fuzzing/config"
	"github.com/crytic/spongediff/logging"
	"github.com/crytic/spongediff/logging/colors"
	"github.com/crytic/spongediff/utils"
	"github.com/crytic/spongediff/utils/randomutils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Fuzzer represents a differential fuzzing provider, checking a candidate sponge contract's digests
// against the reference Keccak-256 hasher over randomly generated inputs.
type Fuzzer struct {
	// ctx describes the context for the fuzzing run, used to cancel running operations.
	ctx context.Context
	// ctxCancelFunc describes a function which can be used to cancel the fuzzing operations ctx tracks.
	ctxCancelFunc context.CancelFunc

	// config describes the project configuration which the fuzzing is targeting.
	config config.ProjectConfig
	// deployAddress describes the account address the candidate bytecode is deployed at in each worker's
	// execution environment.
	deployAddress common.Address
	// senderAddress describes the account address used to send calls to the candidate.
	senderAddress common.Address
	// candidateBytecode describes the resolved runtime bytecode of the candidate contract.
	candidateBytecode []byte

	// runID uniquely identifies this campaign in log output.
	runID string
	// startTime describes the time the fuzzing campaign was started.
	startTime time.Time
	// logger describes the Fuzzer's log object, a sub-logger of the global logger.
	logger *logging.Logger

	// randomProvider describes the master source of randomness, forked once per worker so each worker's
	// input sequence is reproducible from its own seed.
	randomProvider *rand.Rand
	// randomProviderLock is a lock to offer thread safety to the random number generator.
	randomProviderLock sync.Mutex

	// workers represents the work threads created by this Fuzzer when Start invokes a fuzz operation.
	workers []*FuzzerWorker
	// metrics represents the metrics for the fuzzing campaign.
	metrics *FuzzerMetrics

	// Events describes the event system for the Fuzzer.
	Events FuzzerEvents
}

// NewFuzzer returns an instance of a new Fuzzer provided a project configuration, or an error if one is
// encountered while initializing it.
func NewFuzzer(config config.ProjectConfig) (*Fuzzer, error) {
	// Validate our provided config
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	// Parse the candidate addresses from our config.
	deployAddress, err := utils.HexStringToAddress(config.Candidate.DeployAddress)
	if err != nil {
		return nil, err
	}
	senderAddress, err := utils.HexStringToAddress(config.Candidate.SenderAddress)
	if err != nil {
		return nil, err
	}

	// Resolve the candidate bytecode deployed into every worker's execution environment.
	candidateBytecode, err := config.Candidate.ResolveBytecode()
	if err != nil {
		return nil, err
	}

	// Create and return our fuzzing instance.
	fuzzer := &Fuzzer{
		config:            config,
		deployAddress:     *deployAddress,
		senderAddress:     *senderAddress,
		candidateBytecode: candidateBytecode,
		runID:             uuid.New().String(),
		logger:            logging.GlobalLogger.NewSubLogger("module", "fuzzer"),
		randomProvider:    rand.New(rand.NewSource(time.Now().UnixNano())),
		metrics:           newFuzzerMetrics(config.Fuzzing.Workers),
	}

	// Report the campaign identity, alongside any provenance the candidate blob carries.
	fuzzer.logger.Info("Created the fuzzer with run id: ", colors.Bold, fuzzer.runID, colors.Reset)
	if metadata := chain.ExtractContractMetadata(candidateBytecode); metadata != nil {
		if version, versionErr := metadata.CompilerVersion(); versionErr == nil {
			fuzzer.logger.Info("Candidate bytecode carries solc ", colors.Bold, version.String(), colors.Reset, " metadata")
		} else {
			fuzzer.logger.Info("Candidate bytecode carries metadata keys: ", colors.Bold, strings.Join(metadata.Keys(), ", "), colors.Reset)
		}
	}
	return fuzzer, nil
}

// Config exposes the underlying project configuration provided to the Fuzzer.
func (f *Fuzzer) Config() config.ProjectConfig {
	return f.config
}

// Metrics exposes the fuzzing campaign's metrics.
func (f *Fuzzer) Metrics() *FuzzerMetrics {
	return f.metrics
}

// RunID exposes the campaign's unique run identifier.
func (f *Fuzzer) RunID() string {
	return f.runID
}

// StartTime exposes the time the fuzzing campaign was started, or the zero time if it has not started.
func (f *Fuzzer) StartTime() time.Time {
	return f.startTime
}

// CandidateBytecode exposes the resolved runtime bytecode of the candidate contract under test.
func (f *Fuzzer) CandidateBytecode() []byte {
	return f.candidateBytecode
}

// createWorker creates the FuzzerWorker for the given index, deploying the candidate bytecode into a fresh
// execution environment exclusive to it and forking the master random provider to seed its input
// generation.
// Returns the new FuzzerWorker, or an error if one occurred.
func (f *Fuzzer) createWorker(workerIndex int, iterations uint64) (*FuzzerWorker, error) {
	// Create the worker's execution environment with our candidate deployed in its genesis state.
	env, err := chain.NewExecutionEnv(f.deployAddress, f.candidateBytecode, f.senderAddress)
	if err != nil {
		return nil, err
	}

	// Wrap the environment in the candidate call protocol.
	candidate, err := NewCandidate(env)
	if err != nil {
		_ = env.Close()
		return nil, err
	}

	// Fork our master random provider for the worker, locking around the draw it performs.
	f.randomProviderLock.Lock()
	workerRandomProvider := randomutils.ForkRandomProvider(f.randomProvider)
	f.randomProviderLock.Unlock()

	return newFuzzerWorker(f, workerIndex, candidate, workerRandomProvider, iterations), nil
}

// Start begins a fuzzing operation on the provided project configuration. This operation will not return
// until the campaign completed, a worker reported a fatal result, or the fuzzing operation was cancelled
// through Terminate or a configured timeout. When a worker reports a mismatch or fault, remaining workers
// are left to finish their shares on their own; the first fatal result is returned without waiting on them.
// Returns nil if every tested input agreed with the reference, or the first fatal error otherwise.
func (f *Fuzzer) Start() error {
	// Create our running context (allows us to cancel across threads)
	f.ctx, f.ctxCancelFunc = context.WithCancel(context.Background())

	// If we set a timeout, create the timeout context now, as we're about to begin fuzzing.
	if f.config.Fuzzing.Timeout > 0 {
		f.logger.Info("Running with a timeout of ", colors.Bold, f.config.Fuzzing.Timeout, colors.Reset, " seconds")
		f.ctx, f.ctxCancelFunc = context.WithTimeout(f.ctx, time.Duration(f.config.Fuzzing.Timeout)*time.Second)
	}

	// Partition the iteration total between workers. Integer division drops any remainder, so up to
	// workers-1 iterations may go untested.
	workerCount := f.config.Fuzzing.Workers
	iterationsPerWorker := f.config.Fuzzing.Iterations / uint64(workerCount)
	if remainder := f.config.Fuzzing.Iterations % uint64(workerCount); remainder != 0 {
		f.logger.Warn(
			"Iteration count ", colors.Bold, f.config.Fuzzing.Iterations, colors.Reset,
			" does not divide evenly across ", colors.Bold, workerCount, colors.Reset,
			" workers, dropping ", colors.Bold, remainder, colors.Reset, " iterations",
		)
	}

	// Record our start time and log the campaign parameters.
	f.startTime = time.Now()
	f.logger.Info("Starting the fuzzing campaign", logging.StructuredLogInfo{
		"runId":               f.runID,
		"workers":             workerCount,
		"iterationsPerWorker": iterationsPerWorker,
		"maxInputSize":        f.config.Fuzzing.MaxInputSize,
	})

	// Create a worker for each slot. Environments are created once here and live for the whole campaign.
	f.logger.Info("Creating ", colors.Bold, workerCount, colors.Reset, " workers...")
	f.workers = make([]*FuzzerWorker, workerCount)
	for i := 0; i < workerCount; i++ {
		worker, err := f.createWorker(i, iterationsPerWorker)
		if err == nil {
			err = f.Events.WorkerCreated.Publish(FuzzerWorkerCreatedEvent{Worker: worker})
		}
		if err != nil {
			// Release the environments of any workers we already created.
			if worker != nil {
				_ = worker.candidate.Close()
			}
			for _, created := range f.workers[:i] {
				_ = created.candidate.Close()
			}
			return err
		}
		f.workers[i] = worker
	}

	// Start our metrics print loop, stopping it once the campaign returns. Workers left running past a
	// fatal result keep their own contexts, so the loop gets its own stop signal.
	metricsDone := make(chan struct{})
	defer close(metricsDone)
	if !f.config.Fuzzing.EnableTUI {
		go f.runMetricsPrintLoop(metricsDone)
	}

	// Publish a fuzzer starting event.
	err := f.Events.FuzzerStarting.Publish(FuzzerStartingEvent{Fuzzer: f})
	if err != nil {
		return err
	}

	// Launch every worker. Each reports its result exactly once on a channel buffered to worker capacity,
	// so late finishers never block after the campaign has returned.
	results := make(chan error, workerCount)
	for _, worker := range f.workers {
		go func(worker *FuzzerWorker) {
			workerErr := worker.run(f.ctx)

			// Release the worker's execution environment, as no more calls will be made on it.
			_ = worker.candidate.Close()

			// Publish an event indicating we destroyed a worker.
			publishErr := f.Events.WorkerDestroyed.Publish(FuzzerWorkerDestroyedEvent{Worker: worker})
			if workerErr == nil && publishErr != nil {
				workerErr = publishErr
			}

			results <- workerErr
		}(worker)
	}

	// Wait on worker results, surfacing the first fatal one immediately. A campaign only succeeds if every
	// worker reported a nil result.
	for i := 0; i < workerCount; i++ {
		if workerErr := <-results; workerErr != nil {
			err = workerErr
			break
		}
	}

	// Remember whether the run context was cancelled before we release it below, as cancellation through
	// Terminate or a timeout ends the campaign early without an error.
	cancelled := utils.CheckContextDone(f.ctx)

	// On a clean exit every worker has already returned, so cancel our context to release any timers.
	if err == nil && f.ctxCancelFunc != nil {
		f.ctxCancelFunc()
	}

	// Publish a fuzzer stopping event.
	fuzzerStoppingErr := f.Events.FuzzerStopping.Publish(FuzzerStoppingEvent{Fuzzer: f, err: err})
	if err == nil && fuzzerStoppingErr != nil {
		err = fuzzerStoppingErr
	}

	// Log our campaign result.
	if err == nil {
		if cancelled {
			f.logger.Info(
				"Fuzzing campaign cancelled, the candidate agreed with the reference on ",
				colors.Bold, f.metrics.InputsTested(), colors.Reset, " inputs tested before the halt",
			)
		} else {
			f.logger.Info(
				"Fuzzing campaign completed, the candidate agreed with the reference on ",
				colors.Bold, f.metrics.InputsTested(), colors.Reset, " inputs",
			)
		}
	}
	return err
}

// Terminate stops a running operation invoked by the Start method. Workers exit at their next iteration
// boundary, and the campaign reports success for the inputs tested up to that point. This method may
// return before complete operation teardown occurs.
func (f *Fuzzer) Terminate() {
	// Call the cancel function on our running context to stop all working goroutines
	if f.ctxCancelFunc != nil {
		f.ctxCancelFunc()
	}
}

// runMetricsPrintLoop prints metrics to the console in a loop until the campaign returns or ctx signals a
// stopped operation.
func (f *Fuzzer) runMetricsPrintLoop(done <-chan struct{}) {
	// Resolve our print interval.
	interval := time.Duration(f.config.Fuzzing.MetricsInterval) * time.Second
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Define cached variables for our metrics to calculate deltas.
	var lastInputsTested uint64
	lastPrintedTime := f.startTime
	for {
		select {
		case <-done:
			return
		case <-f.ctx.Done():
			return
		case <-ticker.C:
		}

		// Obtain our metrics
		inputsTested := f.metrics.InputsTested()
		callsExecuted := f.metrics.CallsExecuted()

		// Calculate time elapsed since the last update
		secondsSinceLastUpdate := time.Since(lastPrintedTime).Seconds()

		// Print a metrics update
		f.logger.Info(
			"fuzz: elapsed: ", colors.Bold, time.Since(f.startTime).Round(time.Second), colors.Reset,
			", inputs: ", colors.Bold, inputsTested, colors.Reset,
			" (", colors.Bold, uint64(float64(inputsTested-lastInputsTested)/secondsSinceLastUpdate), colors.Reset, "/sec)",
			", calls: ", colors.Bold, callsExecuted, colors.Reset,
			", workers: ", colors.Bold, f.metrics.WorkerStartupCount(), colors.Reset,
		)

		// Update our delta tracking metrics
		lastPrintedTime = time.Now()
		lastInputsTested = inputsTested
	}
}
