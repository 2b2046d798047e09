// SPDX-License-Identifier: MPL-2.0

package flatten

import (
	"errors"
	"fmt"
)

var (
	// ErrManifest is the sentinel error wrapped by ManifestError.
	ErrManifest = errors.New("manifest error")
	// ErrVersionParse is the sentinel error wrapped by VersionParseError.
	ErrVersionParse = errors.New("version parse error")
	// ErrArchiveIO is the sentinel error wrapped by ArchiveIOError.
	ErrArchiveIO = errors.New("archive I/O error")
	// ErrUnresolved is returned by Registry.Resolve for an identifier that
	// was never registered.
	ErrUnresolved = errors.New("mod identifier not registered")
)

type (
	// ManifestError reports a missing or malformed manifest, or a missing
	// required manifest field.
	ManifestError struct {
		Archive string
		Err     error
	}

	// VersionParseError reports a version string that could not be parsed.
	VersionParseError struct {
		Archive string
		ModID   string
		Err     error
	}

	// ArchiveIOError reports a failure to open, read, write or copy an
	// archive or one of its entries.
	ArchiveIOError struct {
		Archive string
		Op      string
		Err     error
	}
)

// Error implements the error interface.
func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest of %s: %v", e.Archive, e.Err)
}

// Unwrap returns the sentinel and the cause for errors.Is/As chains.
func (e *ManifestError) Unwrap() []error { return []error{ErrManifest, e.Err} }

// Error implements the error interface.
func (e *VersionParseError) Error() string {
	return fmt.Sprintf("version of %s in %s: %v", e.ModID, e.Archive, e.Err)
}

// Unwrap returns the sentinel and the cause for errors.Is/As chains.
func (e *VersionParseError) Unwrap() []error { return []error{ErrVersionParse, e.Err} }

// Error implements the error interface.
func (e *ArchiveIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Archive, e.Err)
}

// Unwrap returns the sentinel and the cause for errors.Is/As chains.
func (e *ArchiveIOError) Unwrap() []error { return []error{ErrArchiveIO, e.Err} }
