package main

import (
	"context"
	"errors"

	"github.com/manideepv28/delopment-netlify/internal/core/resume"
	"github.com/manideepv28/delopment-netlify/internal/shell/orchestrator"
	"github.com/manideepv28/delopment-netlify/internal/shell/source"
	"github.com/manideepv28/delopment-netlify/internal/shell/store"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess       = 0
	ExitConfigError   = 1
	ExitInputError    = 2
	ExitStoreError    = 3
	ExitUnknownResume = 4
	ExitNoPlatform    = 5
	ExitInterrupted   = 130
)

var (
	// ErrInvalidConfig is returned when the merged configuration fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoPlatformAvailable is returned when every requested platform failed preflight.
	ErrNoPlatformAvailable = errors.New("no platform available")
)

// CommandError attaches an exit code to a failed command.
type CommandError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *CommandError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}

	var writeErr *orchestrator.StoreWriteError
	switch {
	case errors.Is(err, resume.ErrUnknownResumeTarget):
		return ExitUnknownResume
	case errors.Is(err, ErrNoPlatformAvailable):
		return ExitNoPlatform
	case errors.Is(err, source.ErrInputUnreadable):
		return ExitInputError
	case errors.As(err, &writeErr), store.IsFatal(err):
		return ExitStoreError
	}
	// flag parsing, ErrInvalidConfig and unknown platforms
	return ExitConfigError
}
