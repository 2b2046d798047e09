// SPDX-License-Identifier: MPL-2.0

// Package version parses and orders mod version strings.
//
// A version is either semantic (major[.minor[.patch]] with optional
// pre-release and build metadata) or opaque. Semantic versions are ordered by
// semantic-versioning precedence and always rank above opaque ones. Two opaque
// versions have no meaningful order; they are compared lexically so that
// resolution is deterministic across runs.
//
// "Semantic" means accepted by golang.org/x/mod/semver once a "v" is
// prepended. That is looser than strict major.minor.patch in one direction
// and stricter than the Fabric loader in another: the shorthands "4" and
// "1.16" are semantic and order as "4.0.0" and "1.16.0", while versions with
// more than three numeric components, such as "1.2.3.4", are opaque.
package version

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrUnparseable is the sentinel error wrapped by ParseError.
var ErrUnparseable = errors.New("unparseable version")

type (
	// Value is a parsed mod version.
	Value struct {
		raw       string
		canonical string // "v"+raw when semantic, empty otherwise
	}

	// ParseError is returned when a raw version string cannot be
	// interpreted as a version at all.
	ParseError struct {
		Raw string
	}
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable version %q", e.Raw)
}

// Unwrap returns ErrUnparseable so callers can use errors.Is for programmatic detection.
func (e *ParseError) Unwrap() error { return ErrUnparseable }

// Parse interprets raw as a version. Empty and whitespace-only strings are
// rejected; every other string yields either a semantic or an opaque value.
func Parse(raw string) (Value, error) {
	if strings.TrimSpace(raw) == "" {
		return Value{}, &ParseError{Raw: raw}
	}

	v := Value{raw: raw}
	// The loader does not accept a "v" prefix, so "v1.0.0" stays opaque.
	if !strings.HasPrefix(raw, "v") && semver.IsValid("v"+raw) {
		v.canonical = "v" + raw
	}
	return v, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(raw string) Value {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the raw version string.
func (v Value) String() string { return v.raw }

// IsSemantic reports whether v is a recognized semantic version.
func (v Value) IsSemantic() bool { return v.canonical != "" }

// IsZero reports whether v is the zero Value (never produced by Parse).
func (v Value) IsZero() bool { return v.raw == "" }

// Compare returns -1, 0 or +1 depending on whether a ranks below, equal to or
// above b.
//
// Rules, in priority order:
//  1. if exactly one side is semantic, it ranks higher;
//  2. if both are semantic, semantic-versioning precedence applies
//     (build metadata is ignored);
//  3. otherwise the raw strings are compared lexically.
func Compare(a, b Value) int {
	switch {
	case a.IsSemantic() && b.IsSemantic():
		return semver.Compare(a.canonical, b.canonical)
	case a.IsSemantic():
		return 1
	case b.IsSemantic():
		return -1
	default:
		return strings.Compare(a.raw, b.raw)
	}
}

// Ambiguous reports whether the ordering between a and b falls back to the
// lexical tie-break, i.e. neither side is a semantic version. Such results
// may differ from what the mod loader would pick.
func Ambiguous(a, b Value) bool {
	return !a.IsSemantic() && !b.IsSemantic()
}
