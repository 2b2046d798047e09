// SPDX-License-Identifier: MPL-2.0

// Package archive provides the zip operations the flattener needs: listing
// entries under a prefix, reading and extracting entries, and rewriting an
// archive in place with entries removed or replaced.
//
// All file access goes through an afero.Fs so callers can run against the
// real filesystem or an in-memory one.
package archive

import (
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"

	"github.com/nuclearfarts/jijflattener/internal/platform"
)

var (
	// ErrEntryNotFound is returned when a named entry does not exist.
	ErrEntryNotFound = errors.New("archive entry not found")
	// ErrUnsafeEntry is returned for entry names that would escape the
	// extraction root or name a reserved device.
	ErrUnsafeEntry = errors.New("unsafe archive entry name")
)

type (
	// Reader is an archive opened for reading.
	Reader struct {
		path  string
		file  afero.File
		zr    *zip.Reader
		index map[string]*zip.File
	}

	// Edit describes an in-place rewrite.
	Edit struct {
		// Remove reports whether an entry should be dropped.
		Remove func(name string) bool
		// Replace maps entry names to new contents. Names not present in the
		// archive are appended.
		Replace map[string][]byte
	}
)

// Open opens the archive at name for reading.
func Open(fsys afero.Fs, name string) (*Reader, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat archive %s: %w", name, err)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read archive %s: %w", name, err)
	}

	index := make(map[string]*zip.File, len(zr.File))
	for _, zf := range zr.File {
		index[zf.Name] = zf
	}

	return &Reader{path: name, file: f, zr: zr, index: index}, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Path returns the location the archive was opened from.
func (r *Reader) Path() string { return r.path }

// Has reports whether the archive contains a file entry with the given name.
func (r *Reader) Has(name string) bool {
	zf, ok := r.index[name]
	return ok && !zf.FileInfo().IsDir()
}

// Files returns the names of all non-directory entries starting with prefix,
// in archive order. An empty prefix lists every file.
func (r *Reader) Files(prefix string) []string {
	var names []string
	for _, zf := range r.zr.File {
		if zf.FileInfo().IsDir() || !strings.HasPrefix(zf.Name, prefix) {
			continue
		}
		names = append(names, zf.Name)
	}
	return names
}

// ReadFile returns the contents of an entry.
func (r *Reader) ReadFile(name string) (data []byte, err error) {
	zf, ok := r.index[name]
	if !ok || zf.FileInfo().IsDir() {
		return nil, fmt.Errorf("%s in %s: %w", name, r.path, ErrEntryNotFound)
	}

	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s in %s: %w", name, r.path, err)
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	data, err = io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry %s in %s: %w", name, r.path, err)
	}
	return data, nil
}

// Extract copies an entry to dest on fsys, creating parent directories and
// overwriting any existing file.
func (r *Reader) Extract(name string, fsys afero.Fs, dest string) (err error) {
	zf, ok := r.index[name]
	if !ok || zf.FileInfo().IsDir() {
		return fmt.Errorf("%s in %s: %w", name, r.path, ErrEntryNotFound)
	}

	if err := fsys.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", dest, err)
	}

	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("open entry %s in %s: %w", name, r.path, err)
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	out, err := fsys.OpenFile(dest, writeFlags, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	//nolint:gosec // G110: archives come from the user's own mod directory
	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("extract %s from %s: %w", name, r.path, err)
	}
	return nil
}

// EntryPath joins an entry name onto root, rejecting names that are absolute,
// climb out of root, or cannot be created on this operating system.
func EntryPath(root, entry string) (string, error) {
	cleaned := path.Clean(strings.ReplaceAll(entry, "\\", "/"))
	if path.IsAbs(cleaned) || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") ||
		filepath.VolumeName(filepath.FromSlash(cleaned)) != "" {
		return "", fmt.Errorf("%q: %w", entry, ErrUnsafeEntry)
	}
	for part := range strings.SplitSeq(cleaned, "/") {
		if platform.IsReservedName(part) {
			return "", fmt.Errorf("%q: reserved file name %q: %w", entry, part, ErrUnsafeEntry)
		}
	}
	return filepath.Join(root, filepath.FromSlash(cleaned)), nil
}

// Rewrite applies edit to the archive at name. The new archive is written
// next to the original and renamed over it, so a failed rewrite leaves the
// original untouched.
func Rewrite(fsys afero.Fs, name string, edit Edit) (err error) {
	r, err := Open(fsys, name)
	if err != nil {
		return err
	}
	readerClosed := false
	defer func() {
		if !readerClosed {
			_ = r.Close()
		}
	}()

	tmp, err := afero.TempFile(fsys, filepath.Dir(name), "."+filepath.Base(name)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary archive for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = fsys.Remove(tmpName) // best-effort cleanup
		}
	}()

	if err := writeEdited(tmp, r.zr, edit); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("rewrite archive %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temporary archive for %s: %w", name, err)
	}

	// The source must be closed before it can be replaced on Windows.
	readerClosed = true
	if err := r.Close(); err != nil {
		return fmt.Errorf("close archive %s: %w", name, err)
	}

	if err := fsys.Rename(tmpName, name); err != nil {
		return fmt.Errorf("replace archive %s: %w", name, err)
	}
	return nil
}

func writeEdited(w io.Writer, src *zip.Reader, edit Edit) error {
	zw := zip.NewWriter(w)
	if err := zw.SetComment(src.Comment); err != nil {
		return err
	}

	replaced := make(map[string]bool, len(edit.Replace))
	for _, zf := range src.File {
		if edit.Remove != nil && edit.Remove(zf.Name) {
			continue
		}

		data, ok := edit.Replace[zf.Name]
		if !ok {
			if err := zw.Copy(zf); err != nil {
				return fmt.Errorf("copy entry %s: %w", zf.Name, err)
			}
			continue
		}

		hdr := zf.FileHeader
		hdr.Method = zip.Deflate
		hdr.CRC32 = 0
		hdr.CompressedSize = 0
		hdr.UncompressedSize = 0
		hdr.CompressedSize64 = 0
		hdr.UncompressedSize64 = 0
		hdr.Extra = nil
		if err := writeEntry(zw, &hdr, data); err != nil {
			return err
		}
		replaced[zf.Name] = true
	}

	// Deterministic order for appended entries.
	var added []string
	for name := range edit.Replace {
		if !replaced[name] {
			added = append(added, name)
		}
	}
	slices.Sort(added)
	for _, name := range added {
		if err := writeEntry(zw, &zip.FileHeader{Name: name, Method: zip.Deflate}, edit.Replace[name]); err != nil {
			return err
		}
	}

	return zw.Close()
}

func writeEntry(zw *zip.Writer, hdr *zip.FileHeader, data []byte) error {
	ew, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", hdr.Name, err)
	}
	if _, err := ew.Write(data); err != nil {
		return fmt.Errorf("write entry %s: %w", hdr.Name, err)
	}
	return nil
}
