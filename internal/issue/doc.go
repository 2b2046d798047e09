// SPDX-License-Identifier: MPL-2.0

// Package issue holds the user-facing side of failures: ActionableError,
// which carries an operation, a resource and suggestions, and a catalog of
// Markdown help entries rendered with glamour under the error line.
package issue
