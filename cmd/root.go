package cmd

import (
	"os"

	"github.com/crytic/spongediff/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootCmd represents the root CLI command object which all other commands stem from.
var rootCmd = &cobra.Command{
	Use:   "spongediff",
	Short: "A differential fuzzing harness for contract-hosted Keccak-256 sponges",
	Long:  "spongediff is a differential fuzzing harness that checks a contract-hosted Keccak-256 sponge against a reference hasher",
}

// cmdLogger is the logger that will be used for the cmd package
var cmdLogger = logging.NewLogger(zerolog.InfoLevel)

// Execute provides an exportable function to invoke the CLI.
// Returns an error if one was encountered.
func Execute() error {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Add stdout as an unstructured, colorized output stream for the command logger
	cmdLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, true)

	return rootCmd.Execute()
}
