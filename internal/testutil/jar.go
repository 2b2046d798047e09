// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"maps"
	"path"
	"slices"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
)

// ManifestName is the manifest entry written by the jar builder.
const ManifestName = "fabric.mod.json"

type (
	// Jar describes a mod archive.
	Jar struct {
		ID      string
		Version string
		// Extra holds additional manifest fields.
		Extra map[string]any
		// Nested jars are stored as entries and, unless Unlisted is set,
		// listed in the manifest's "jars" field.
		Nested []Nested
		// Files holds plain entries (name -> contents).
		Files map[string]string
		// RawManifest replaces the generated manifest when non-empty.
		RawManifest string
		// NoManifest omits the manifest entry entirely.
		NoManifest bool
	}

	// Nested is a jar stored inside another jar.
	Nested struct {
		// Entry is the entry name, e.g. "META-INF/jars/b.jar".
		Entry string
		Jar   Jar
		// Unlisted leaves the entry out of the manifest's "jars" field.
		Unlisted bool
	}
)

// JarBytes encodes j as a zip archive.
func JarBytes(t testing.TB, j Jar) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if !j.NoManifest {
		writeZipEntry(t, zw, ManifestName, manifestBytes(t, j))
	}

	for _, name := range slices.Sorted(maps.Keys(j.Files)) {
		writeZipEntry(t, zw, name, []byte(j.Files[name]))
	}

	dirs := make(map[string]bool)
	for _, n := range j.Nested {
		dir := path.Dir(n.Entry) + "/"
		if dir != "./" && !dirs[dir] {
			dirs[dir] = true
			if _, err := zw.Create(dir); err != nil {
				t.Fatalf("failed to create directory entry %s: %v", dir, err)
			}
		}
		writeZipEntry(t, zw, n.Entry, JarBytes(t, n.Jar))
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish jar: %v", err)
	}
	return buf.Bytes()
}

// WriteJar writes j to path on fsys.
func WriteJar(t testing.TB, fsys afero.Fs, path string, j Jar) {
	t.Helper()
	MustWriteFile(t, fsys, path, JarBytes(t, j))
}

// JarEntries lists every entry name (directories included) of the jar at path.
func JarEntries(t testing.TB, fsys afero.Fs, path string) []string {
	t.Helper()

	zr := openZip(t, fsys, path)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

// JarManifest decodes the manifest of the jar at path.
func JarManifest(t testing.TB, fsys afero.Fs, path string) map[string]any {
	t.Helper()

	raw := JarEntry(t, fsys, path, ManifestName)
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("manifest of %s is not JSON: %v", path, err)
	}
	return m
}

// JarEntry returns the contents of one entry of the jar at path.
func JarEntry(t testing.TB, fsys afero.Fs, path, name string) []byte {
	t.Helper()

	zr := openZip(t, fsys, path)
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open %s in %s: %v", name, path, err)
		}
		defer MustClose(t, rc)
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("failed to read %s in %s: %v", name, path, err)
		}
		return data
	}
	t.Fatalf("entry %s not found in %s", name, path)
	return nil
}

func openZip(t testing.TB, fsys afero.Fs, path string) *zip.Reader {
	t.Helper()

	data := MustReadFile(t, fsys, path)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("%s is not a zip archive: %v", path, err)
	}
	return zr
}

func manifestBytes(t testing.TB, j Jar) []byte {
	t.Helper()

	if j.RawManifest != "" {
		return []byte(j.RawManifest)
	}

	m := make(map[string]any, len(j.Extra)+3)
	maps.Copy(m, j.Extra)
	m["id"] = j.ID
	m["version"] = j.Version

	var listed []map[string]string
	for _, n := range j.Nested {
		if !n.Unlisted {
			listed = append(listed, map[string]string{"file": n.Entry})
		}
	}
	if len(listed) > 0 {
		m["jars"] = listed
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to encode manifest: %v", err)
	}
	return data
}

func writeZipEntry(t testing.TB, zw *zip.Writer, name string, data []byte) {
	t.Helper()

	w, err := zw.Create(name)
	if err != nil {
		t.Fatalf("failed to create entry %s: %v", name, err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("failed to write entry %s: %v", name, err)
	}
}
