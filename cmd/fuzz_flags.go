package cmd

import (
	"fmt"

	"github.com/crytic/spongediff/fuzzing/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// addFuzzFlags adds the various flags for the fuzz command
func addFuzzFlags() error {
	// Get the default project config and throw an error if we cant
	defaultConfig, err := config.GetDefaultProjectConfig()
	if err != nil {
		return err
	}

	// Prevent alphabetical sorting of usage message
	fuzzCmd.Flags().SortFlags = false

	// Config file
	fuzzCmd.Flags().String("config", "", "path to config file")

	// Number of workers
	fuzzCmd.Flags().Int("workers", 0,
		fmt.Sprintf("number of fuzzer workers (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.Workers))

	// Total iteration count
	fuzzCmd.Flags().Uint64("iterations", 0,
		fmt.Sprintf("number of inputs to test across all workers (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.Iterations))

	// Input size bound
	fuzzCmd.Flags().Int("max-input-size", 0,
		fmt.Sprintf("exclusive upper bound on the byte length of generated inputs (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.MaxInputSize))

	// Timeout
	fuzzCmd.Flags().Int("timeout", 0,
		fmt.Sprintf("number of seconds to run the fuzzer campaign for (unless a config file is provided, default is %d). 0 means that timeout is not enforced", defaultConfig.Fuzzing.Timeout))

	// Candidate deployment address
	fuzzCmd.Flags().String("deploy-address", "",
		"account address the candidate bytecode is deployed at")

	// Sender address
	fuzzCmd.Flags().String("sender-address", "",
		"account address used to send calls to the candidate")

	// Inline candidate bytecode
	fuzzCmd.Flags().String("bytecode", "",
		"hex-encoded runtime bytecode of the candidate contract")

	// Candidate bytecode file
	fuzzCmd.Flags().String("bytecode-file", "",
		"path to a file holding the hex-encoded runtime bytecode of the candidate contract (takes precedence over --bytecode)")

	// TUI disablement
	fuzzCmd.Flags().Bool("no-tui", false,
		"disable the terminal interface and stream log output instead")

	// Log level
	fuzzCmd.Flags().String("log-level", "",
		fmt.Sprintf("log level for the run (unless a config file is provided, default is %q)", defaultConfig.Logging.Level.String()))
	return nil
}

// updateProjectConfigWithFuzzFlags will update the given projectConfig with any CLI arguments that were provided to the fuzz command
func updateProjectConfigWithFuzzFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update number of workers
	if cmd.Flags().Changed("workers") {
		projectConfig.Fuzzing.Workers, err = cmd.Flags().GetInt("workers")
		if err != nil {
			return err
		}
	}

	// Update iteration count
	if cmd.Flags().Changed("iterations") {
		projectConfig.Fuzzing.Iterations, err = cmd.Flags().GetUint64("iterations")
		if err != nil {
			return err
		}
	}

	// Update input size bound
	if cmd.Flags().Changed("max-input-size") {
		projectConfig.Fuzzing.MaxInputSize, err = cmd.Flags().GetInt("max-input-size")
		if err != nil {
			return err
		}
	}

	// Update timeout
	if cmd.Flags().Changed("timeout") {
		projectConfig.Fuzzing.Timeout, err = cmd.Flags().GetInt("timeout")
		if err != nil {
			return err
		}
	}

	// Update candidate deployment address
	if cmd.Flags().Changed("deploy-address") {
		projectConfig.Candidate.DeployAddress, err = cmd.Flags().GetString("deploy-address")
		if err != nil {
			return err
		}
	}

	// Update sender address
	if cmd.Flags().Changed("sender-address") {
		projectConfig.Candidate.SenderAddress, err = cmd.Flags().GetString("sender-address")
		if err != nil {
			return err
		}
	}

	// Update inline candidate bytecode
	if cmd.Flags().Changed("bytecode") {
		projectConfig.Candidate.Bytecode, err = cmd.Flags().GetString("bytecode")
		if err != nil {
			return err
		}
	}

	// Update candidate bytecode file
	if cmd.Flags().Changed("bytecode-file") {
		projectConfig.Candidate.BytecodeFile, err = cmd.Flags().GetString("bytecode-file")
		if err != nil {
			return err
		}
	}

	// Update TUI enablement
	if cmd.Flags().Changed("no-tui") {
		noTUI, err := cmd.Flags().GetBool("no-tui")
		if err != nil {
			return err
		}
		projectConfig.Fuzzing.EnableTUI = !noTUI
	}

	// Update the log level
	if cmd.Flags().Changed("log-level") {
		levelString, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}
		projectConfig.Logging.Level, err = zerolog.ParseLevel(levelString)
		if err != nil {
			return err
		}
	}
	return nil
}
