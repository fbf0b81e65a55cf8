// Package clierr defines structured error types for CLI commands.
// Errors carry a machine-readable code, a human-readable message,
// and optional details for script consumption.
package clierr

import (
	"fmt"
	"strconv"
)

// Error code constants — uppercase, underscore-separated, stable across minor versions.
const (
	LockHeld      = "LOCK_HELD"
	LockTimeout   = "LOCK_TIMEOUT"
	LockNotFound  = "LOCK_NOT_FOUND"
	InvalidHandle = "INVALID_HANDLE"
	InvalidInput  = "INVALID_INPUT"
	FileNotFound  = "FILE_NOT_FOUND"
	ConfigInvalid = "CONFIG_INVALID"
	ConfigExists  = "CONFIG_EXISTS"
	CommandFailed = "COMMAND_FAILED"
	InternalError = "INTERNAL_ERROR"
)

// Exit codes: 1 for ordinary failures, 2 for internal errors, 3 when a
// lock could not be obtained (mirroring the flock(1) conflict convention
// so scripts can tell contention apart from real errors).
const (
	exitFailure  = 1
	exitInternal = 2
	exitConflict = 3
)

// Error represents a structured CLI error with a machine-readable code.
type Error struct {
	Code    string
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// New creates an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails returns the error with the given details map attached.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// ExitCode maps the error code to a process exit code.
func (e *Error) ExitCode() int {
	switch e.Code {
	case InternalError:
		return exitInternal
	case LockHeld, LockTimeout:
		return exitConflict
	}
	return exitFailure
}

// SilentError signals an exit code without additional output. Used to
// propagate a child process's exit code from `lockrun run`.
type SilentError struct {
	Code int
}

// Error implements the error interface.
func (e *SilentError) Error() string { return "exit " + strconv.Itoa(e.Code) }
