// Package errors provides structured error types and error handling utilities.
package errors

import (
	"errors"
	"fmt"
)

// Wrap creates a new error by wrapping an existing error with additional context.
// This uses fmt.Errorf with %w verb for proper error chain support.
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", msg, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Error kinds. Every kind is fatal for the command; they exist so callers
// can tell the failure classes apart and so usage errors can print help.
var (
	ErrUsage         = errors.New("usage error")
	ErrArchive       = errors.New("archive error")
	ErrCapacity      = errors.New("capacity error")
	ErrResource      = errors.New("resource error")
	ErrConfiguration = errors.New("configuration error")
)

// kindError attaches a kind to a message while keeping an optional cause
// reachable through errors.Is/As.
type kindError struct {
	kind  error
	msg   string
	cause error
}

func (e *kindError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *kindError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

func withKind(kind error, message string, cause error) error {
	return &kindError{kind: kind, msg: message, cause: cause}
}

func Usage(message string) error {
	return withKind(ErrUsage, message, nil)
}

func Archive(message string) error {
	return withKind(ErrArchive, message, nil)
}

func ArchiveWithCause(message string, cause error) error {
	return withKind(ErrArchive, message, cause)
}

func Capacity(message string) error {
	return withKind(ErrCapacity, message, nil)
}

func ResourceWithCause(message string, cause error) error {
	return withKind(ErrResource, message, cause)
}

func Configuration(message string) error {
	return withKind(ErrConfiguration, message, nil)
}

func ConfigurationWithCause(message string, cause error) error {
	return withKind(ErrConfiguration, message, cause)
}

// ExitCode maps an error to the process exit status.
// Success is 0; every failure class exits with 2.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 2
}
