// Package errors defines the sentinel errors and exit-code mapping shared by
// the index and search binaries.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrCorpusEmpty   = errors.New("no corpus files found")
	ErrIndexNotFound = errors.New("index artifact not found")
	ErrQueryParse    = errors.New("query parse error")
	ErrTermNotFound  = errors.New("term not found")
	ErrInternal      = errors.New("internal error")
)

// Exit codes shared by both binaries: 0 success, 1 completed with per-file
// errors, 2 argument or fatal I/O error.
const (
	ExitOK         = 0
	ExitFileErrors = 1
	ExitFatal      = 2
)

// AppError attaches a message and process exit code to a sentinel error.
type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New wraps a sentinel error with an exit code and message.
func New(sentinel error, exitCode int, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCode,
	}
}

// Newf wraps a sentinel error with an exit code and a formatted message.
func Newf(sentinel error, exitCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCode,
	}
}

// ExitCode returns the process exit code for err. AppErrors carry their own
// code; anything else fatal maps to ExitFatal.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}
	return ExitFatal
}
