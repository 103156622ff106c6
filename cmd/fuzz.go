package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/crytic/spongediff/cmd/exitcodes"
	"github.com/crytic/spongediff/fuzzing"
	"github.com/crytic/spongediff/fuzzing/config"
	"github.com/crytic/spongediff/logging"
	"github.com/crytic/spongediff/logging/colors"
	"github.com/crytic/spongediff/tui"
	"github.com/crytic/spongediff/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// fuzzCmd represents the command provider for fuzzing
var fuzzCmd = &cobra.Command{
	Use:               "fuzz",
	Short:             "Starts a differential fuzzing campaign",
	Long:              `Starts a differential fuzzing campaign`,
	Args:              cmdValidateFuzzArgs,
	ValidArgsFunction: cmdValidFuzzArgs,
	RunE:              cmdRunFuzz,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the fuzz command
	err := addFuzzFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the fuzz command", err)
	}

	// Add the fuzz command and its associated flags to the root command
	rootCmd.AddCommand(fuzzCmd)
}

// cmdValidFuzzArgs will return which flags and sub-commands are valid for dynamic completion for the fuzz command
func cmdValidFuzzArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Gather a list of flags that are available to be used in the current command but have not been used yet
	var unusedFlags []string

	// Examine all the flags, and add any flags that have not been set in the current command line
	// to a list of unused flags
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			// When adding a flag to a command, include the "--" prefix to indicate that it is a flag
			// and not a positional argument. Additionally, when the user presses the TAB key twice after typing
			// a flag name, the "--" prefix will appear again, indicating that more flags are available and that
			// none of the arguments are positional.
			unusedFlags = append(unusedFlags, "--"+flag.Name)
		}
	})
	// Provide a list of flags that can be used in the current command (but have not been used yet)
	// for autocompletion suggestions
	return unusedFlags, cobra.ShellCompDirectiveNoFileComp
}

// cmdValidateFuzzArgs makes sure that there are no positional arguments provided to the fuzz command
func cmdValidateFuzzArgs(cmd *cobra.Command, args []string) error {
	// Make sure we have no positional args
	if err := cobra.NoArgs(cmd, args); err != nil {
		err = fmt.Errorf("fuzz does not accept any positional arguments, only flags and their associated values")
		cmdLogger.Error("Failed to validate args to the fuzz command", err)
		return err
	}
	return nil
}

// cmdRunFuzz executes the CLI fuzz command and navigates through the following possibilities:
// #1: We will search for either a custom config file (via --config) or the default (spongediff.json).
// If we find it, read it. If we can't read it, throw an error.
// #2: If a custom file was provided (--config was used), and we can't find the file, throw an error.
// #3: If spongediff.json can't be found, use the default project configuration.
func cmdRunFuzz(cmd *cobra.Command, args []string) error {
	var projectConfig *config.ProjectConfig

	// Check to see if --config flag was used and store the value of --config flag
	configFlagUsed := cmd.Flags().Changed("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return err
	}

	// If --config was not used, look for `spongediff.json` in the current work directory
	if !configFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			cmdLogger.Error("Failed to run the fuzz command", err)
			return err
		}
		configPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	// Check to see if the file exists at configPath
	_, existenceError := os.Stat(configPath)

	// Possibility #1: File was found
	if existenceError == nil {
		// Try to read the configuration file and throw an error if something goes wrong
		cmdLogger.Info("Reading the configuration file at: ", colors.Bold, configPath, colors.Reset)
		projectConfig, err = config.ReadProjectConfigFromFile(configPath)
		if err != nil {
			cmdLogger.Error("Failed to run the fuzz command", err)
			return err
		}
	}

	// Possibility #2: If the --config flag was used, and we couldn't find the file, we'll throw an error
	if configFlagUsed && existenceError != nil {
		cmdLogger.Error("Failed to run the fuzz command", existenceError)
		return existenceError
	}

	// Possibility #3: --config flag was not used and spongediff.json was not found, so use the default project config
	if !configFlagUsed && existenceError != nil {
		cmdLogger.Warn(fmt.Sprintf("Unable to find the config file at %v, will use the default project configuration "+
			"targeting the built-in sponge candidate instead", configPath))

		projectConfig, err = config.GetDefaultProjectConfig()
		if err != nil {
			cmdLogger.Error("Failed to run the fuzz command", err)
			return err
		}
	}

	// Update the project configuration given whatever flags were set using the CLI
	err = updateProjectConfigWithFuzzFlags(cmd, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return err
	}

	// Change our working directory to the parent directory of the project configuration file. Paths in the
	// configuration, such as the candidate bytecode file, may be relative to wherever the configuration is
	// supplied from.
	err = os.Chdir(filepath.Dir(configPath))
	if err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return err
	}

	// Honor the color preference before any writer is attached.
	if projectConfig.Logging.NoColor {
		colors.DisableColor()
	}

	// Create the global logger for the run. In TUI mode log lines go to a buffer the TUI replays on demand;
	// otherwise they stream straight to stdout.
	var logBuffer *tui.LogBufferWriter
	logging.GlobalLogger = logging.NewLogger(projectConfig.Logging.Level)
	if projectConfig.Fuzzing.EnableTUI {
		logBuffer = tui.NewLogBufferWriter(5000) // 5000 entry capacity

		// Use colors in the log buffer unless NoColor is set (same as stdout behavior)
		logging.GlobalLogger.AddWriter(logBuffer, logging.UNSTRUCTURED, !projectConfig.Logging.NoColor)
	} else {
		logging.GlobalLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, !projectConfig.Logging.NoColor)
	}

	// If the log directory is a non-empty string, create a file for structured logging
	if projectConfig.Logging.LogDirectory != "" {
		// Filename will be the "log-current_unix_timestamp.log"
		filename := "log-" + strconv.FormatInt(time.Now().Unix(), 10) + ".log"

		// Create the file
		file, err := utils.CreateFile(projectConfig.Logging.LogDirectory, filename)
		if err != nil {
			cmdLogger.Error("Failed to create log file", err)
			return err
		}

		// Add the file to the global logger
		logging.GlobalLogger.AddWriter(file, logging.STRUCTURED, false)
	}

	// Create our fuzzer
	fuzzer, fuzzErr := fuzzing.NewFuzzer(*projectConfig)
	if fuzzErr != nil {
		// If fuzzer creation failed and TUI was enabled, dump the buffered logs so the user can see what
		// went wrong before the dashboard ever came up.
		if logBuffer != nil {
			logging.GlobalLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, !projectConfig.Logging.NoColor)
			for _, entry := range logBuffer.GetAllEntries() {
				fmt.Print(entry.Message)
			}
		}
		cmdLogger.Error("Failed to create the fuzzer", fuzzErr)
		return exitcodes.NewErrorWithExitCode(fuzzErr, exitcodes.ExitCodeHandledError)
	}

	// Stop our fuzzing on keyboard interrupts and termination requests
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fuzzer.Terminate()
	}()

	// Branch: TUI vs Non-TUI mode
	if projectConfig.Fuzzing.EnableTUI {
		// Start the fuzzer in the background, delivering its result over a channel the TUI watches.
		errChan := make(chan error, 1)
		go func() {
			errChan <- fuzzer.Start()
		}()

		// Run the TUI in the foreground - it blocks until the user presses 'q'. When it returns, the
		// terminal has been restored to normal mode.
		fuzzErr = tui.Run(fuzzer, logBuffer, errChan)

		// Now that the TUI has fully exited, re-enable stdout logging
		logging.GlobalLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, !projectConfig.Logging.NoColor)
	} else {
		// Non-TUI mode: start fuzzing normally
		fuzzErr = fuzzer.Start()
	}

	if fuzzErr != nil {
		// A digest mismatch or candidate execution fault is a campaign finding rather than a fuzzer
		// failure, so report it here and map it to its own exit code.
		var mismatchErr *fuzzing.MismatchError
		var faultErr *fuzzing.ExecutionFaultError
		if errors.As(fuzzErr, &mismatchErr) || errors.As(fuzzErr, &faultErr) {
			cmdLogger.Error("Fuzzing campaign found a disagreement between the candidate and the reference", fuzzErr)
			return exitcodes.NewErrorWithExitCode(nil, exitcodes.ExitCodeMismatchFound)
		}
		return exitcodes.NewErrorWithExitCode(fuzzErr, exitcodes.ExitCodeFuzzerError)
	}

	return fuzzErr
}
