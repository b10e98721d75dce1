// Package util provides small helpers shared by the rehash packages: exit
// codes, strict JSON object decoding and secret wiping.
package util

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes reported by the rehash binary
const (
	ExitOK            = 0
	ExitError         = 1
	ExitInvalidInput  = 2
	ExitWrongPassword = 3
	ExitIntegrityErr  = 4
	ExitVaultLocked   = 5
)

// CodedError attaches a process exit code to an error.
type CodedError struct {
	Code int
	Err  error
}

func (e *CodedError) Error() string { return e.Err.Error() }

func (e *CodedError) Unwrap() error { return e.Err }

// WithExitCode wraps err so HandleError exits with code.
func WithExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Err: err}
}

// ExitCode returns the exit code carried by err, ExitError if it has none
// and ExitOK for nil.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ExitError
}

// ExitWithCode exits the program with the specified code and message
func ExitWithCode(code int, format string, args ...interface{}) {
	if format != "" {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
	os.Exit(code)
}

// HandleError prints err and exits with its exit code
func HandleError(err error, context string) {
	if err == nil {
		return
	}

	code := ExitCode(err)
	switch {
	case code == ExitIntegrityErr:
		ExitWithCode(code, "Error: %v\nThe vault document could not be read; keep a copy before editing it.", err)
	case context != "":
		ExitWithCode(code, "Error: %s - %v", context, err)
	default:
		ExitWithCode(code, "Error: %v", err)
	}
}

// WrapError wraps an error with additional context
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}
