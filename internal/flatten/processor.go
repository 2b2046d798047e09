// SPDX-License-Identifier: MPL-2.0

package flatten

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nuclearfarts/jijflattener/pkg/archive"
	"github.com/nuclearfarts/jijflattener/pkg/manifest"
	"github.com/nuclearfarts/jijflattener/pkg/version"
)

// extractSuffix is appended to an archive's work path to form the directory
// its embedded archives are extracted into.
const extractSuffix = ".jij"

// Processor registers one archive tree with a Registry: the archive itself,
// then every archive embedded in it, depth first. Once its subtree is done,
// each processed copy is stripped of its embedded archives and of the
// manifest's embedded list.
type Processor struct {
	fs       afero.Fs
	workDir  string
	layout   manifest.Layout
	registry *Registry
	logger   *log.Logger
	tracer   trace.Tracer

	processed int
}

// NewProcessor returns a Processor writing into workDir. The layout must
// already be normalized.
func NewProcessor(fsys afero.Fs, workDir string, layout manifest.Layout, registry *Registry, logger *log.Logger, tracer trace.Tracer) *Processor {
	return &Processor{
		fs:       fsys,
		workDir:  workDir,
		layout:   layout,
		registry: registry,
		logger:   orDiscard(logger),
		tracer:   orNoopTracer(tracer),
	}
}

// Processed returns the number of archives processed so far, embedded ones
// included.
func (p *Processor) Processed() int { return p.processed }

// Process copies the top-level archive at location into the work directory
// and processes the copy. The file at location is never modified.
func (p *Processor) Process(ctx context.Context, location string) error {
	name := filepath.Base(location)
	dest := filepath.Join(p.workDir, name)

	if err := archive.CopyFile(p.fs, location, dest); err != nil {
		return &ArchiveIOError{Archive: location, Op: "copy", Err: err}
	}

	return p.process(ctx, Handle{Path: dest, Origin: []string{name}})
}

func (p *Processor) process(ctx context.Context, h Handle) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, span := p.tracer.Start(ctx, "flatten.process", trace.WithAttributes(
		attribute.String("archive.origin", h.OriginString()),
		attribute.Bool("archive.embedded", h.Embedded),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	p.logger.Info("processing archive", "jar", h.OriginString())
	p.processed++

	r, err := archive.Open(p.fs, h.Path)
	if err != nil {
		return &ArchiveIOError{Archive: h.OriginString(), Op: "open", Err: err}
	}
	readerClosed := false
	defer func() {
		if !readerClosed {
			_ = r.Close()
		}
	}()

	m, err := p.readManifest(r, h)
	if err != nil {
		return err
	}

	v, err := version.Parse(m.Version)
	if err != nil {
		return &VersionParseError{Archive: h.OriginString(), ModID: m.ID, Err: err}
	}
	span.SetAttributes(attribute.String("mod.id", m.ID), attribute.String("mod.version", v.String()))

	c := Candidate{ID: m.ID, Version: v, Archive: h}
	if h.Embedded {
		if !p.registry.RegisterEmbedded(c) {
			p.logger.Debug("embedded candidate not selected", "id", c.ID, "version", v, "jar", h.OriginString())
		}
	} else {
		p.registry.RegisterExplicit(c)
	}

	payloads, err := p.payloads(r, m, h)
	if err != nil {
		return err
	}

	children := make([]Handle, 0, len(payloads))
	for _, entry := range payloads {
		dest, err := archive.EntryPath(h.Path+extractSuffix, entry)
		if err != nil {
			return &ArchiveIOError{Archive: h.OriginString(), Op: "extract", Err: err}
		}
		if err := r.Extract(entry, p.fs, dest); err != nil {
			return &ArchiveIOError{Archive: h.OriginString(), Op: "extract", Err: err}
		}
		children = append(children, Handle{
			Path:     dest,
			Embedded: true,
			Origin:   append(slices.Clone(h.Origin), entry),
		})
	}

	readerClosed = true
	if err := r.Close(); err != nil {
		return &ArchiveIOError{Archive: h.OriginString(), Op: "close", Err: err}
	}

	for _, child := range children {
		if err := p.process(ctx, child); err != nil {
			return err
		}
	}

	return p.strip(h, m, payloads)
}

func (p *Processor) readManifest(r *archive.Reader, h Handle) (*manifest.Manifest, error) {
	data, err := r.ReadFile(p.layout.Path)
	if err != nil {
		if errors.Is(err, archive.ErrEntryNotFound) {
			return nil, &ManifestError{Archive: h.OriginString(), Err: fmt.Errorf("no %s entry: %w", p.layout.Path, err)}
		}
		return nil, &ArchiveIOError{Archive: h.OriginString(), Op: "read", Err: err}
	}

	m, err := manifest.Parse(data, p.layout.JarsField)
	if err != nil {
		return nil, &ManifestError{Archive: h.OriginString(), Err: err}
	}
	return m, nil
}

// payloads returns every file under the embedded directory in archive order,
// followed by the manifest-listed entries not already included.
func (p *Processor) payloads(r *archive.Reader, m *manifest.Manifest, h Handle) ([]string, error) {
	entries := r.Files(p.layout.JarsDir)
	for _, name := range m.Jars {
		if slices.Contains(entries, name) {
			continue
		}
		if !r.Has(name) {
			return nil, &ManifestError{
				Archive: h.OriginString(),
				Err:     fmt.Errorf("%s lists %q: %w", p.layout.JarsField, name, archive.ErrEntryNotFound),
			}
		}
		entries = append(entries, name)
	}
	return entries, nil
}

// strip rewrites the archive without its embedded archives and without the
// manifest's embedded list. An archive with neither is left untouched.
func (p *Processor) strip(h Handle, m *manifest.Manifest, payloads []string) error {
	listed := m.StripJars()
	if !listed && len(payloads) == 0 {
		return nil
	}

	remove := make(map[string]bool, len(payloads))
	for _, name := range payloads {
		remove[name] = true
	}
	edit := archive.Edit{
		Remove: func(name string) bool {
			return remove[name] || (strings.HasSuffix(name, "/") && p.layout.InJarsDir(name))
		},
	}

	if listed {
		data, err := m.Marshal()
		if err != nil {
			return &ManifestError{Archive: h.OriginString(), Err: err}
		}
		edit.Replace = map[string][]byte{p.layout.Path: data}
	}

	if err := archive.Rewrite(p.fs, h.Path, edit); err != nil {
		return &ArchiveIOError{Archive: h.OriginString(), Op: "rewrite", Err: err}
	}
	p.logger.Debug("stripped embedded archives", "jar", h.OriginString(), "count", len(payloads))
	return nil
}
