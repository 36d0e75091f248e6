package output

import (
	"errors"
	"fmt"
)

// Exit codes following sysexits.h convention
const (
	ExitOK           = 0   // Success
	ExitGeneral      = 1   // General error
	ExitUsage        = 2   // Invalid usage / bad arguments
	ExitAuth         = 3   // Authentication failure
	ExitNotFound     = 4   // Resource not found
	ExitConflict     = 5   // Conflict (resource already exists)
	ExitForbidden    = 6   // Permission denied
	ExitValidation   = 7   // Input or response failed validation
	ExitTimeout      = 8   // Request timeout
	ExitAPIError     = 9   // API error (non-specific)
	ExitConfigError  = 10  // Configuration error
	ExitNetworkError = 11  // Network connectivity error
	ExitRateLimit    = 75  // Rate limited (EX_TEMPFAIL from sysexits.h)
	ExitCanceled     = 130 // Interrupted (128 + SIGINT)
)

// CLIError represents a structured error with exit code and optional hint
type CLIError struct {
	ExitCode int
	Message  string
	Hint     string
	cause    error
}

// Error implements the error interface
func (e *CLIError) Error() string {
	return e.Message
}

// Unwrap returns the error the CLIError was built from, if any.
func (e *CLIError) Unwrap() error {
	return e.cause
}

// NewCLIError creates a new CLIError
func NewCLIError(code int, msg string) *CLIError {
	return &CLIError{
		ExitCode: code,
		Message:  msg,
	}
}

// Wrap creates a CLIError whose message is prefixed onto err.
func Wrap(code int, err error, format string, args ...any) *CLIError {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return &CLIError{ExitCode: code, Message: msg, cause: err}
}

// WithHint adds a user-facing hint to the error
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// ExitCode returns the exit status for err: the CLIError code when err wraps
// one, ExitGeneral otherwise.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.ExitCode
	}
	return ExitGeneral
}

// ReportError prints err (and its hint, if any) via the formatter.
// The os.Exit call belongs in main.go.
func ReportError(formatter Formatter, err error) {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		formatter.PrintError(cliErr)
		if cliErr.Hint != "" {
			formatter.PrintHint(cliErr.Hint)
		}
		return
	}

	formatter.PrintError(err)
}
