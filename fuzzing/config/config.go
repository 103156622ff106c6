package config

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"strings"

	"github.com/crytic/spongediff/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type ProjectConfig struct {
	// Fuzzing describes the configuration used in differential fuzzing campaigns.
	Fuzzing FuzzingConfig `json:"fuzzing"`

	// Candidate describes the contract whose digests are checked against the reference hasher.
	Candidate CandidateConfig `json:"candidate"`

	// Logging describes the configuration used for logging.
	Logging LoggingConfig `json:"logging"`
}

// FuzzingConfig describes the configuration options used by the fuzzing.Fuzzer.
type FuzzingConfig struct {
	// Workers describes the amount of threads to use in fuzzing campaigns.
	Workers int `json:"workers"`

	// Iterations describes the total number of inputs to test across all workers. The total is divided evenly
	// between workers; a remainder is dropped.
	Iterations uint64 `json:"iterations"`

	// MaxInputSize describes the exclusive upper bound on the byte length of generated inputs.
	MaxInputSize int `json:"maxInputSize"`

	// Timeout describes a time in seconds for which the fuzzing operation should run. Providing negative or zero
	// value will result in no timeout.
	Timeout int `json:"timeout"`

	// EnableTUI describes whether the terminal interface is shown while the campaign runs.
	EnableTUI bool `json:"enableTUI"`

	// MetricsInterval describes the time in seconds between metrics log lines when the terminal interface is
	// disabled. A non-positive value uses the default interval.
	MetricsInterval int `json:"metricsInterval"`
}

// CandidateConfig describes the candidate contract deployed into each worker's execution environment.
type CandidateConfig struct {
	// DeployAddress describes the account address at which the candidate bytecode is deployed.
	DeployAddress string `json:"deployAddress"`

	// SenderAddress describes the account address used to send calls to the candidate.
	SenderAddress string `json:"senderAddress"`

	// Bytecode describes the hex-encoded runtime bytecode of the candidate contract.
	Bytecode string `json:"bytecode"`

	// BytecodeFile describes a path to a file holding hex-encoded runtime bytecode. When set, it takes
	// precedence over Bytecode.
	BytecodeFile string `json:"bytecodeFile"`
}

// LoggingConfig describes the configuration options used for logging
type LoggingConfig struct {
	// Level describes whether logs of certain severity levels (eg info, warning, etc.) will be emitted or discarded.
	// Increasing level values represent more severe logs
	Level zerolog.Level `json:"level"`

	// LogDirectory describes the directory where structured log files will be outputted. If the string is empty, then
	// no log files are kept
	LogDirectory string `json:"logDirectory"`

	// NoColor indicates whether log output should be displayed without colors.
	NoColor bool `json:"noColor"`
}

// ReadProjectConfigFromFile reads a JSON-serialized ProjectConfig from a provided file path.
// Returns the ProjectConfig if it succeeds, or an error if one occurs.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	// Read our project configuration file data
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Parse the file contents over a default configuration, so omitted keys keep their default values.
	projectConfig, err := GetDefaultProjectConfig()
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(b, projectConfig)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return projectConfig, nil
}

// WriteToFile writes the ProjectConfig to a provided file path in a JSON-serialized format.
// Returns an error if one occurs.
func (p *ProjectConfig) WriteToFile(path string) error {
	// Serialize the configuration
	b, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}

	// Save it to the provided output path and return the result
	err = os.WriteFile(path, b, 0644)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// ResolveBytecode obtains the candidate's runtime bytecode, reading BytecodeFile if one was provided and
// decoding the hex string otherwise.
// Returns the decoded bytecode, or an error if one occurs.
func (c *CandidateConfig) ResolveBytecode() ([]byte, error) {
	// Resolve the hex string, preferring file contents over the inline value.
	bytecodeHex := c.Bytecode
	if c.BytecodeFile != "" {
		b, err := os.ReadFile(c.BytecodeFile)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		bytecodeHex = string(b)
	}

	// Decode it, tolerating surrounding whitespace and a 0x prefix.
	bytecodeHex = strings.TrimPrefix(strings.TrimSpace(bytecodeHex), "0x")
	bytecode, err := hex.DecodeString(bytecodeHex)
	if err != nil {
		return nil, errors.Errorf("malformed candidate bytecode: %v", err)
	}
	return bytecode, nil
}

// Validate validates that the ProjectConfig meets certain requirements.
// Returns an error if one occurs.
func (p *ProjectConfig) Validate() error {
	// Verify the worker count is a positive number.
	if p.Fuzzing.Workers <= 0 {
		return errors.Errorf("fuzzer worker count must be a positive number")
	}

	// Verify the input size bound is a positive number. A bound of one permits only the empty input.
	if p.Fuzzing.MaxInputSize <= 0 {
		return errors.Errorf("max input size must be a positive number")
	}

	// Verify that the deployment address is a well-formed address
	deployAddress, err := utils.HexStringToAddress(p.Candidate.DeployAddress)
	if err != nil {
		return errors.Errorf("malformed candidate deploy address")
	}

	// Verify that the sender is a well-formed address
	senderAddress, err := utils.HexStringToAddress(p.Candidate.SenderAddress)
	if err != nil {
		return errors.Errorf("malformed candidate sender address")
	}

	// The sender account must not collide with the deployed contract account.
	if *deployAddress == *senderAddress {
		return errors.Errorf("candidate deploy and sender addresses must differ")
	}

	// Verify the candidate bytecode resolves to a non-empty byte string.
	bytecode, err := p.Candidate.ResolveBytecode()
	if err != nil {
		return err
	}
	if len(bytecode) == 0 {
		return errors.Errorf("candidate bytecode must not be empty")
	}

	return nil
}
