package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/crytic/spongediff/fuzzing/config"
	"github.com/crytic/spongediff/logging/colors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// initCmd represents the command provider for init
var initCmd = &cobra.Command{
	Use:               "init",
	Short:             "Initializes a project configuration",
	Long:              `Initializes a project configuration`,
	Args:              cmdValidateInitArgs,
	ValidArgsFunction: cmdValidInitArgs,
	RunE:              cmdRunInit,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add flags to init command
	err := addInitFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the init command", err)
	}

	// Add the init command and its associated flags to the root command
	rootCmd.AddCommand(initCmd)
}

// cmdValidInitArgs will return which flags and sub-commands are valid for dynamic completion for the init command
func cmdValidInitArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
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

// cmdValidateInitArgs makes sure that there are no positional arguments provided to the init command
func cmdValidateInitArgs(cmd *cobra.Command, args []string) error {
	// Make sure we have no positional args
	if err := cobra.NoArgs(cmd, args); err != nil {
		err = fmt.Errorf("init does not accept any positional arguments, only flags and their associated values")
		cmdLogger.Error("Failed to validate args to the init command", err)
		return err
	}
	return nil
}

// cmdRunInit executes the init CLI command, writing a default project configuration to disk
func cmdRunInit(cmd *cobra.Command, args []string) error {
	// Check to see if --out flag was used and store the value of --out flag
	outputFlagUsed := cmd.Flags().Changed("out")
	outputPath, err := cmd.Flags().GetString("out")
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}
	// If we weren't provided an output path (flag was not used), we use our working directory
	if !outputFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			cmdLogger.Error("Failed to run the init command", err)
			return err
		}
		outputPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	// The written configuration is the default one, targeting the built-in sponge candidate
	projectConfig, err := config.GetDefaultProjectConfig()
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}

	if _, err = os.Stat(outputPath); err == nil {
		// Prompt user for overwrite confirmation
		fmt.Print("The file already exists. Overwrite? (y/n): ")
		var response string
		if _, err := fmt.Scan(&response); err != nil {
			cmdLogger.Error("Failed to scan input", err)
			return err
		}

		if response != "y" && response != "Y" {
			fmt.Println("Operation canceled.")
			return nil
		}

	}

	// Write our project configuration
	err = projectConfig.WriteToFile(outputPath)
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}

	// Print a success message
	if absoluteOutputPath, err := filepath.Abs(outputPath); err == nil {
		outputPath = absoluteOutputPath
	}
	cmdLogger.Info("Project configuration successfully output to: ", colors.Bold, outputPath, colors.Reset)
	return nil
}
