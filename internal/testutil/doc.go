// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by tests: fail-fast filesystem
// wrappers and a builder for mod archives (jars) with nested jars, written to
// any afero.Fs.
package testutil
