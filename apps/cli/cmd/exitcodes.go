package cmd

// Exit codes for the hookspec CLI
const (
	// ExitSuccess indicates every case passed or was skipped
	ExitSuccess = 0

	// ExitTestFailure indicates one or more validations failed
	ExitTestFailure = 1

	// ExitParseError indicates a suite file or template that does not parse
	ExitParseError = 2

	// ExitConfigError indicates a configuration or environment error
	ExitConfigError = 3

	// ExitEngineError indicates an errored step or an aborted suite
	ExitEngineError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
