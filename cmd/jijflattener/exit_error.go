// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
)

// Exit codes returned by the jijflattener binary.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// usageLine is printed for every argument count error.
const usageLine = "<input> [output] [work directory]"

// ErrUsage is the sentinel wrapped by UsageError.
var ErrUsage = errors.New("usage error")

type (
	// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
	ExitError struct {
		Code int
		Err  error
	}

	// UsageError reports a wrong number of positional arguments. No work is
	// done when it is returned.
	UsageError struct {
		Got int
	}
)

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	return fmt.Sprintf("expected 1 to 3 arguments, got %d\nusage: jijflattener %s", e.Got, usageLine)
}

// Unwrap returns ErrUsage for errors.Is() compatibility.
func (e *UsageError) Unwrap() error { return ErrUsage }

// exitCode maps an error returned by the root command to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, ErrUsage) {
		return ExitUsage
	}
	return ExitFailure
}
