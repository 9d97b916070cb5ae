// Package source turns repository URLs into deployable site packages:
// it reads the input list, downloads repository archives, picks the publish
// directory and zips it.
package source

import (
	"errors"
	"fmt"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrInputUnreadable is returned when the repository list cannot be read.
	ErrInputUnreadable = errors.New("repository list unreadable")

	// ErrUnsupportedSource is returned for repositories that cannot be fetched.
	ErrUnsupportedSource = errors.New("unsupported repository host")

	// ErrFetchFailed is returned when a repository archive cannot be downloaded or extracted.
	ErrFetchFailed = errors.New("repository fetch failed")

	// ErrArchiveTooLarge is returned when a repository archive exceeds the download cap.
	ErrArchiveTooLarge = errors.New("archive too large")

	// ErrUnsafeArchive is returned for archive entries that escape the target directory.
	ErrUnsafeArchive = errors.New("unsafe archive entry")
)

// SourceError wraps a source failure with the operation and repository.
type SourceError struct {
	Op   string
	Repo string
	Err  error
}

func (e *SourceError) Error() string {
	if e.Repo == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Repo, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
