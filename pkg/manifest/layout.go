// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	// DefaultPath is the manifest entry inside a mod archive.
	DefaultPath = "fabric.mod.json"
	// DefaultJarsField is the manifest field listing embedded archives.
	DefaultJarsField = "jars"
	// DefaultJarsDir is the archive directory holding embedded archives.
	DefaultJarsDir = "META-INF/jars/"
)

// ErrInvalidLayout is the sentinel error wrapped by InvalidLayoutError.
var ErrInvalidLayout = errors.New("invalid manifest layout")

type (
	// Layout names where a mod archive keeps its manifest and its embedded
	// archives.
	Layout struct {
		// Path is the manifest entry name (e.g. "fabric.mod.json").
		Path string
		// JarsField is the top-level manifest field listing embedded archives
		// as objects with a "file" member.
		JarsField string
		// JarsDir is the entry prefix under which embedded archives live.
		JarsDir string
	}

	// InvalidLayoutError is returned when a Layout has empty or unsafe members.
	InvalidLayoutError struct {
		Field  string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidLayoutError) Error() string {
	return fmt.Sprintf("invalid manifest layout: %s %s", e.Field, e.Reason)
}

// Unwrap returns ErrInvalidLayout so callers can use errors.Is for programmatic detection.
func (e *InvalidLayoutError) Unwrap() error { return ErrInvalidLayout }

// DefaultLayout returns the layout used by the Fabric mod loader.
func DefaultLayout() Layout {
	return Layout{
		Path:      DefaultPath,
		JarsField: DefaultJarsField,
		JarsDir:   DefaultJarsDir,
	}
}

// Normalize fills empty members with defaults, cleans entry names and makes
// JarsDir end with a slash. It returns an error for names that are absolute
// or escape the archive root.
func (l Layout) Normalize() (Layout, error) {
	def := DefaultLayout()
	if strings.TrimSpace(l.Path) == "" {
		l.Path = def.Path
	}
	if strings.TrimSpace(l.JarsField) == "" {
		l.JarsField = def.JarsField
	}
	if strings.TrimSpace(l.JarsDir) == "" {
		l.JarsDir = def.JarsDir
	}

	p, err := cleanEntry("manifest path", l.Path)
	if err != nil {
		return Layout{}, err
	}
	l.Path = p

	dir, err := cleanEntry("jars dir", l.JarsDir)
	if err != nil {
		return Layout{}, err
	}
	l.JarsDir = dir + "/"

	return l, nil
}

// InJarsDir reports whether the entry name lies under JarsDir.
func (l Layout) InJarsDir(name string) bool {
	return strings.HasPrefix(name, l.JarsDir)
}

func cleanEntry(field, name string) (string, error) {
	name = strings.TrimSuffix(strings.ReplaceAll(name, "\\", "/"), "/")
	cleaned := path.Clean(name)
	if path.IsAbs(cleaned) || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", &InvalidLayoutError{Field: field, Reason: fmt.Sprintf("%q is not a relative entry name", name)}
	}
	return cleaned, nil
}
