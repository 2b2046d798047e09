// SPDX-License-Identifier: MPL-2.0

// Package flatten turns a directory of mod archives that embed other mod
// archives (jar-in-jar) into a flat directory holding exactly one archive per
// mod identifier.
//
// Every top-level archive is copied into a work directory and processed
// recursively: embedded archives are extracted next to their parent, all
// candidates are registered with a Registry, and each copy is stripped of its
// embedded payload. Top-level archives always win over embedded ones; among
// embedded candidates the highest version wins. The winners are then copied
// to the output directory.
package flatten

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/nuclearfarts/jijflattener/pkg/archive"
	"github.com/nuclearfarts/jijflattener/pkg/manifest"
)

const (
	// DefaultOutputName is the output directory created inside the input
	// directory when no output directory is given.
	DefaultOutputName = "flattened"
	// DefaultWorkName is the work directory created inside the output
	// directory when no work directory is given.
	DefaultWorkName = ".flattenerwork"

	tracerName = "github.com/nuclearfarts/jijflattener/internal/flatten"
)

var (
	// ErrNoInput is returned by New when Options.InputDir is empty.
	ErrNoInput = errors.New("input directory is required")
	// ErrInvalidPattern is returned by New for malformed include or exclude
	// patterns.
	ErrInvalidPattern = errors.New("invalid file pattern")
	// ErrNotDirectory is wrapped when the input path is not a directory.
	ErrNotDirectory = errors.New("not a directory")
)

type (
	// Options configures a Flattener.
	Options struct {
		// InputDir holds the top-level mod archives. It is never modified.
		InputDir string
		// OutputDir receives one archive per mod. Defaults to
		// InputDir/flattened.
		OutputDir string
		// WorkDir holds copies and extracted archives while a run is in
		// progress. Defaults to OutputDir/.flattenerwork.
		WorkDir string

		// Fs is the filesystem all paths refer to. Defaults to the OS
		// filesystem.
		Fs afero.Fs
		// Logger receives progress and diagnostics. Nil discards them.
		Logger *log.Logger
		// Tracer records a span per run and per processed archive. Nil
		// disables tracing.
		Tracer trace.Tracer

		// Layout names the manifest entry, the embedded list field and the
		// embedded directory. Zero members use the Fabric defaults.
		Layout manifest.Layout

		// Include keeps only top-level files whose names match one of these
		// doublestar patterns. Empty keeps every file.
		Include []string
		// Exclude drops top-level files whose names match one of these
		// doublestar patterns.
		Exclude []string

		// DryRun processes archives but writes nothing to OutputDir.
		DryRun bool
		// CleanWork removes WorkDir after a successful run.
		CleanWork bool
	}

	// Flattener runs flatten passes over one input directory.
	Flattener struct {
		opts Options
	}
)

// DefaultOutputDir returns the output directory used for input when none is
// configured.
func DefaultOutputDir(input string) string {
	return filepath.Join(input, DefaultOutputName)
}

// DefaultWorkDir returns the work directory used for output when none is
// configured.
func DefaultWorkDir(output string) string {
	return filepath.Join(output, DefaultWorkName)
}

// New validates opts, fills in defaults and returns a Flattener.
func New(opts Options) (*Flattener, error) {
	if strings.TrimSpace(opts.InputDir) == "" {
		return nil, ErrNoInput
	}
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir(opts.InputDir)
	}
	if opts.WorkDir == "" {
		opts.WorkDir = DefaultWorkDir(opts.OutputDir)
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	opts.Logger = orDiscard(opts.Logger)
	opts.Tracer = orNoopTracer(opts.Tracer)

	layout, err := opts.Layout.Normalize()
	if err != nil {
		return nil, err
	}
	opts.Layout = layout

	for _, pattern := range slices.Concat(opts.Include, opts.Exclude) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
		}
	}

	return &Flattener{opts: opts}, nil
}

// Options returns the effective options, defaults included.
func (f *Flattener) Options() Options { return f.opts }

// Run performs one flatten pass. Each run starts from an empty Registry. The
// first error aborts the run.
func (f *Flattener) Run(ctx context.Context) (_ *Report, err error) {
	o := f.opts

	ctx, span := o.Tracer.Start(ctx, "flatten.run", trace.WithAttributes(
		attribute.String("flatten.input", o.InputDir),
		attribute.String("flatten.output", o.OutputDir),
		attribute.Bool("flatten.dry_run", o.DryRun),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Input:     o.InputDir,
		Output:    o.OutputDir,
		WorkDir:   o.WorkDir,
		DryRun:    o.DryRun,
	}
	o.Logger.Debug("starting flatten run", "run", report.RunID, "input", o.InputDir, "output", o.OutputDir, "work", o.WorkDir)

	// The default work directory lives inside the input, so check it before
	// MkdirAll can create it.
	info, err := o.Fs.Stat(o.InputDir)
	if err != nil {
		return nil, &ArchiveIOError{Archive: o.InputDir, Op: "stat", Err: err}
	}
	if !info.IsDir() {
		return nil, &ArchiveIOError{Archive: o.InputDir, Op: "stat", Err: ErrNotDirectory}
	}

	// A dry run must leave the output directory alone, including a work
	// directory nested inside it.
	if o.DryRun && within(o.OutputDir, o.WorkDir) {
		tmp, err := afero.TempDir(o.Fs, "", DefaultWorkName+"-")
		if err != nil {
			return nil, &ArchiveIOError{Archive: o.WorkDir, Op: "create work directory", Err: err}
		}
		defer func() {
			if rmErr := o.Fs.RemoveAll(tmp); rmErr != nil {
				o.Logger.Warn("could not remove temporary work directory", "path", tmp, "err", rmErr)
			}
		}()
		o.Logger.Debug("dry run: using a temporary work directory", "work", tmp)
		o.WorkDir = tmp
		report.WorkDir = tmp
	}

	if err := o.Fs.MkdirAll(o.WorkDir, 0o755); err != nil {
		return nil, &ArchiveIOError{Archive: o.WorkDir, Op: "create work directory", Err: err}
	}
	if !o.DryRun {
		if err := o.Fs.MkdirAll(o.OutputDir, 0o755); err != nil {
			return nil, &ArchiveIOError{Archive: o.OutputDir, Op: "create output directory", Err: err}
		}
	}

	registry := NewRegistry(o.Logger)
	processor := NewProcessor(o.Fs, o.WorkDir, o.Layout, registry, o.Logger, o.Tracer)

	entries, err := afero.ReadDir(o.Fs, o.InputDir)
	if err != nil {
		return nil, &ArchiveIOError{Archive: o.InputDir, Op: "list", Err: err}
	}
	for _, entry := range entries {
		if entry.IsDir() || !f.selected(entry.Name()) {
			continue
		}
		if err := processor.Process(ctx, filepath.Join(o.InputDir, entry.Name())); err != nil {
			return nil, err
		}
	}
	report.Archives = processor.Processed()

	if err := f.materialize(registry, report); err != nil {
		return nil, err
	}

	if o.CleanWork {
		if err := o.Fs.RemoveAll(o.WorkDir); err != nil {
			return nil, &ArchiveIOError{Archive: o.WorkDir, Op: "remove work directory", Err: err}
		}
	}

	report.Duration = time.Since(report.StartedAt).Round(time.Millisecond).String()
	span.SetAttributes(attribute.Int("flatten.archives", report.Archives), attribute.Int("flatten.mods", len(report.Mods)))
	return report, nil
}

// materialize copies every winner to the output directory, in sorted
// identifier order, and records it in the report. Winners whose archives
// share a file name are given distinct names so no mod is lost.
func (f *Flattener) materialize(registry *Registry, report *Report) error {
	o := f.opts
	owners := make(map[string]string)

	for _, id := range registry.Seen() {
		c, err := registry.Resolve(id)
		if err != nil {
			return err
		}

		base := filepath.Base(c.Archive.Path)
		name := outputName(base, id, owners)
		if name != base {
			o.Logger.Warn("output file name collision; renaming",
				"file", base, "owner", owners[base], "mod", id, "renamed", name)
		}
		owners[name] = id

		digest, err := digestFile(o.Fs, c.Archive.Path)
		if err != nil {
			return &ArchiveIOError{Archive: c.Archive.OriginString(), Op: "hash", Err: err}
		}

		if !o.DryRun {
			if err := archive.CopyFile(o.Fs, c.Archive.Path, filepath.Join(o.OutputDir, name)); err != nil {
				return &ArchiveIOError{Archive: c.Archive.OriginString(), Op: "materialize", Err: err}
			}
		}

		report.Mods = append(report.Mods, newModReport(c, name, registry.Observations(id), digest))
	}
	return nil
}

// outputName returns base when it is free, else <stem>-<id><ext>, with a
// numeric suffix if that is taken too.
func outputName(base, id string, taken map[string]string) string {
	if _, ok := taken[base]; !ok {
		return base
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext) + "-" + id
	name := stem + ext
	for n := 2; ; n++ {
		if _, ok := taken[name]; !ok {
			return name
		}
		name = stem + "-" + strconv.Itoa(n) + ext
	}
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (f *Flattener) selected(name string) bool {
	if len(f.opts.Include) > 0 && !matchAny(f.opts.Include, name) {
		return false
	}
	return !matchAny(f.opts.Exclude, name)
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func orDiscard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(io.Discard)
	}
	return logger
}

func orNoopTracer(tracer trace.Tracer) trace.Tracer {
	if tracer == nil {
		return noop.NewTracerProvider().Tracer(tracerName)
	}
	return tracer
}
