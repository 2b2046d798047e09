// SPDX-License-Identifier: MPL-2.0

// Package platform holds file name rules that differ between operating systems.
package platform

import (
	"runtime"
	"strings"
)

// windowsReservedNames are device names Windows refuses to create as files,
// whatever extension follows them.
var windowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// IsWindowsReservedName reports whether a single path component is a
// Windows device name. Only the part before the first dot counts, and case
// and trailing spaces are ignored, so "aux.jar" and "Con .txt" match.
func IsWindowsReservedName(name string) bool {
	stem, _, _ := strings.Cut(name, ".")
	return windowsReservedNames[strings.ToUpper(strings.TrimRight(stem, " "))]
}

// IsReservedName reports whether name cannot be created as a file on the
// running operating system.
func IsReservedName(name string) bool {
	return runtime.GOOS == "windows" && IsWindowsReservedName(name)
}
