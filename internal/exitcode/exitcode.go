// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, bad flag values).
	UserError = 1

	// HostError indicates the Bitrix24 client could not be acquired
	// (SDK not found, SDK failed to load, headless run).
	HostError = 2

	// BackendError indicates a REST call failed.
	BackendError = 3
)
