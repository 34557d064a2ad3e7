package exitcodes

import (
	"errors"
	"fmt"
	"os"
)

// Standard exit codes for appupdate
const (
	// Success indicates successful command completion, including the
	// deliberate exit after a successful install handoff
	Success = 0

	// GeneralError indicates a general/unknown error
	GeneralError = 1

	// InvalidArgs indicates invalid command-line arguments or flags
	InvalidArgs = 2

	// ConfigError indicates a missing or invalid configuration value
	// (e.g., no repository configured, unparsable constraint)
	ConfigError = 3

	// NetworkError indicates the release registry could not be queried
	// (e.g., unreachable, timeout, non-2xx status, malformed body)
	NetworkError = 4

	// InstallError indicates the installer launcher could not be started
	InstallError = 5

	// DownloadError indicates the installer artifact transfer failed
	// or the release has no installable asset
	DownloadError = 6

	// UpdateAvailable is returned by `check --exit-code` when a newer
	// release exists, so scripts can branch on it
	UpdateAvailable = 10
)

// Exit terminates the program with the given code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError prints error message to stderr and exits with the given code
func ExitWithError(code int, msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
}

// CodeForError returns the appropriate exit code for an error.
// Finds an ErrorWithCode anywhere in the chain, otherwise returns GeneralError.
func CodeForError(err error) int {
	if err == nil {
		return Success
	}

	var ec *ErrorWithCode
	if errors.As(err, &ec) {
		return ec.Code
	}

	return GeneralError
}
