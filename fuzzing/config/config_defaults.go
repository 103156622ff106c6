package config

import "github.com/rs/zerolog"

// DefaultCandidateBytecode is the hex-encoded runtime bytecode of the stateful sponge contract fuzzed when
// no candidate is configured. The contract exposes absorb(bytes), which records the pending input in
// contract storage, and squeeze(), which hashes the pending input with the KECCAK256 opcode, clears it, and
// returns the digest.
const DefaultCandidateBytecode = "60003560e01c8063ee15150414601f578063857c201f14604d5760006000fd5b6024358060005580604460003760005b8181101560475780518160051c60010155602001602f565b60006000f35b60005460005b81811015606b578060051c6001015481526020016053565b50600020600060005560005260206000f3"

// GetDefaultProjectConfig obtains a default configuration for a project, targeting the built-in stateful
// sponge candidate.
func GetDefaultProjectConfig() (*ProjectConfig, error) {
	// Create a project configuration
	projectConfig := &ProjectConfig{
		Fuzzing: FuzzingConfig{
			Workers:         4,
			Iterations:      100000,
			MaxInputSize:    100,
			Timeout:         0,
			EnableTUI:       true,
			MetricsInterval: 3,
		},
		Candidate: CandidateConfig{
			DeployAddress: "0xdead00000000000000000000000000000000beef",
			SenderAddress: "0x1111111111111111111111111111111111111111",
			Bytecode:      DefaultCandidateBytecode,
		},
		Logging: LoggingConfig{
			Level:        zerolog.InfoLevel,
			LogDirectory: "",
			NoColor:      false,
		},
	}

	// Return the project configuration
	return projectConfig, nil
}
