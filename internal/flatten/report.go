// SPDX-License-Identifier: MPL-2.0

package flatten

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

const (
	// FormatJSON encodes a report as indented JSON.
	FormatJSON Format = "json"
	// FormatYAML encodes a report as YAML.
	FormatYAML Format = "yaml"
	// FormatTOML encodes a report as TOML.
	FormatTOML Format = "toml"

	// SourceExplicit marks a winner that was a top-level archive.
	SourceExplicit = "explicit"
	// SourceEmbedded marks a winner that was extracted from another archive.
	SourceEmbedded = "embedded"
)

// ErrUnknownFormat is returned for report formats other than json, yaml and toml.
var ErrUnknownFormat = errors.New("unknown report format")

type (
	// Format names a report encoding.
	Format string

	// Report describes the outcome of one flatten run.
	Report struct {
		RunID     string    `json:"run_id" yaml:"run_id" toml:"run_id"`
		StartedAt time.Time `json:"started_at" yaml:"started_at" toml:"started_at"`
		Duration  string    `json:"duration" yaml:"duration" toml:"duration"`
		Input     string    `json:"input" yaml:"input" toml:"input"`
		Output    string    `json:"output" yaml:"output" toml:"output"`
		WorkDir   string    `json:"work_dir" yaml:"work_dir" toml:"work_dir"`
		DryRun    bool      `json:"dry_run" yaml:"dry_run" toml:"dry_run"`
		// Archives counts every processed archive, embedded ones included.
		Archives int         `json:"archives" yaml:"archives" toml:"archives"`
		Mods     []ModReport `json:"mods" yaml:"mods" toml:"mods"`
	}

	// ModReport describes the winning archive for one mod identifier.
	ModReport struct {
		ID       string `json:"id" yaml:"id" toml:"id"`
		Version  string `json:"version" yaml:"version" toml:"version"`
		Semantic bool   `json:"semantic" yaml:"semantic" toml:"semantic"`
		Source   string `json:"source" yaml:"source" toml:"source"`
		Origin   string `json:"origin" yaml:"origin" toml:"origin"`
		File     string `json:"file" yaml:"file" toml:"file"`
		// Candidates counts every archive observed with this identifier.
		Candidates int    `json:"candidates" yaml:"candidates" toml:"candidates"`
		BLAKE3     string `json:"blake3" yaml:"blake3" toml:"blake3"`
	}
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatTOML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, path)
	}
	return ParseFormat(ext)
}

// Encode writes the report to w in the given format.
func (r *Report) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(r)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteFile encodes the report into path, choosing the format from its
// extension.
func (r *Report) WriteFile(fsys afero.Fs, path string) (err error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := r.Encode(f, format); err != nil {
		return fmt.Errorf("encode report %s: %w", path, err)
	}
	return nil
}

func newModReport(c Candidate, file string, candidates int, digest string) ModReport {
	source := SourceExplicit
	if c.Archive.Embedded {
		source = SourceEmbedded
	}
	return ModReport{
		ID:         c.ID,
		Version:    c.Version.String(),
		Semantic:   c.Version.IsSemantic(),
		Source:     source,
		Origin:     c.Archive.OriginString(),
		File:       file,
		Candidates: candidates,
		BLAKE3:     digest,
	}
}

func digestFile(fsys afero.Fs, path string) (_ string, err error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
