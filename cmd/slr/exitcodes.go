package main

// Exit codes for every slr command.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (no workspace, missing config, no review selected)
	ExitDataError   = 3 // Data error (malformed input, validation failure)
	ExitNotFound    = 4 // Referenced review, study, question or protocol does not exist
)
