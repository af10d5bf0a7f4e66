package cli

import (
	"errors"
	"fmt"
)

// Exit codes for CLI commands.
const (
	ExitSuccess = 0
	ExitError   = 1
	// ExitUsage indicates invalid arguments or flags.
	ExitUsage = 2
	// ExitNotFound indicates a missing message, root or config.
	ExitNotFound = 3
	// ExitTimeout indicates watch ran out of time.
	ExitTimeout = 4
	// ExitThread indicates the mailbox could not be threaded under the
	// configured policy (for example a strict orphan).
	ExitThread = 5
)

// ExitCodeError wraps an error with a specific exit code.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// GetExitCode extracts the exit code from err, looking through wrapping.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitError
}

// WithExitCode wraps err with code; nil stays nil.
func WithExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &ExitCodeError{Code: code, Err: err}
}

func UsageError(format string, args ...any) error {
	return WithExitCode(ExitUsage, fmt.Errorf(format, args...))
}

func NotFoundError(format string, args ...any) error {
	return WithExitCode(ExitNotFound, fmt.Errorf(format, args...))
}

func TimeoutError(format string, args ...any) error {
	return WithExitCode(ExitTimeout, fmt.Errorf(format, args...))
}
