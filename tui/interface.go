package tui

import (
	"time"

	"github.com/crytic/spongediff/fuzzing"
	"github.com/crytic/spongediff/fuzzing/config"
)

// FuzzerDataProvider defines the interface for accessing fuzzer data
// This allows the TUI to work with the fuzzer without circular dependencies
type FuzzerDataProvider interface {
	// Terminate signals the fuzzer to stop the campaign early
	Terminate()

	// Config returns the project configuration the campaign was started with
	Config() config.ProjectConfig

	// Metrics returns fuzzer metrics
	Metrics() *fuzzing.FuzzerMetrics

	// RunID returns the unique identifier for this campaign
	RunID() string

	// StartTime returns the time at which the campaign was started
	StartTime() time.Time

	// CandidateBytecode returns the runtime bytecode deployed for the candidate contract
	CandidateBytecode() []byte
}
