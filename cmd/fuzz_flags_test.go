package cmd

import (
	"testing"

	"github.com/crytic/spongediff/fuzzing/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFuzzFlagOverlay will test that CLI flags overlay only the project configuration fields they change,
// leaving every other field at its configured value.
func TestFuzzFlagOverlay(t *testing.T) {
	projectConfig, err := config.GetDefaultProjectConfig()
	require.NoError(t, err)
	defaultIterations := projectConfig.Fuzzing.Iterations
	defaultSender := projectConfig.Candidate.SenderAddress

	// Parse a command line overriding a subset of the flags.
	err = fuzzCmd.ParseFlags([]string{
		"--workers", "9",
		"--max-input-size", "64",
		"--deploy-address", "0x2222222222222222222222222222222222222222",
		"--no-tui",
		"--log-level", "debug",
	})
	require.NoError(t, err)
	require.NoError(t, updateProjectConfigWithFuzzFlags(fuzzCmd, projectConfig))

	// Changed flags must overlay their fields.
	assert.Equal(t, 9, projectConfig.Fuzzing.Workers)
	assert.Equal(t, 64, projectConfig.Fuzzing.MaxInputSize)
	assert.Equal(t, "0x2222222222222222222222222222222222222222", projectConfig.Candidate.DeployAddress)
	assert.False(t, projectConfig.Fuzzing.EnableTUI)
	assert.Equal(t, zerolog.DebugLevel, projectConfig.Logging.Level)

	// Unchanged flags must leave their fields alone.
	assert.Equal(t, defaultIterations, projectConfig.Fuzzing.Iterations)
	assert.Equal(t, defaultSender, projectConfig.Candidate.SenderAddress)
}
