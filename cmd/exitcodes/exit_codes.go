package exitcodes

const (
	// ================================
	// Platform-universal exit codes
	// ================================

	// ExitCodeSuccess indicates no errors or failures had occurred.
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates some type of general error occurred.
	ExitCodeGeneralError = 1

	// ExitCodeHandledError indicates an error occurred but was already reported to the user, so the top-level handler
	// should exit non-zero without printing it again.
	ExitCodeHandledError = 3

	// ================================
	// Application-specific exit codes
	// ================================
	// Note: Despite not being standardized, exit codes 2-5 are often used for common use cases, so we avoid them.

	// ExitCodeFuzzerError indicates that there was an error during the execution of the fuzzer. Note that an error with
	// error code ExitCodeGeneralError and ExitCodeFuzzerError are mutually exclusive errors
	ExitCodeFuzzerError = 6

	// ExitCodeMismatchFound indicates the campaign found a digest mismatch or an execution fault in the candidate.
	ExitCodeMismatchFound = 7
)
