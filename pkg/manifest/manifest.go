// SPDX-License-Identifier: MPL-2.0

// Package manifest reads and rewrites mod manifests (fabric.mod.json).
//
// A manifest is a JSON object with at least an "id" and a "version" string.
// It may list embedded archives in a field such as "jars". Parsing keeps the
// top-level fields in their original order so that stripping the embedded
// list rewrites nothing else.
package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/nuclearfarts/jijflattener/pkg/cueutil"
)

//go:embed manifest_schema.cue
var manifestSchema []byte

// ErrInvalidManifest is the sentinel error wrapped by InvalidManifestError.
var ErrInvalidManifest = errors.New("invalid manifest")

type (
	// Manifest is a parsed mod manifest.
	Manifest struct {
		// ID is the mod identifier.
		ID string
		// Version is the raw version string.
		Version string
		// Jars lists the entry names referenced by the embedded list field,
		// in manifest order.
		Jars []string

		jarsField string
		fields    []field
	}

	// InvalidManifestError is returned when a manifest cannot be decoded or
	// does not satisfy the manifest schema.
	InvalidManifestError struct {
		Reason string
		Cause  error
	}

	field struct {
		key   string
		value json.RawMessage
	}

	// requiredFields is decoded from the schema-validated manifest.
	requiredFields struct {
		ID      string `json:"id"`
		Version string `json:"version"`
	}

	jarRef struct {
		File string `json:"file"`
	}
)

// Error implements the error interface.
func (e *InvalidManifestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid manifest: %s: %v", e.Reason, e.Cause)
	}
	return "invalid manifest: " + e.Reason
}

// Unwrap returns ErrInvalidManifest so callers can use errors.Is for programmatic detection.
func (e *InvalidManifestError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrInvalidManifest, e.Cause}
	}
	return []error{ErrInvalidManifest}
}

// Parse decodes a manifest. Comments and trailing commas are tolerated.
// jarsField names the embedded list field; an empty value uses
// DefaultJarsField.
func Parse(data []byte, jarsField string) (*Manifest, error) {
	if jarsField == "" {
		jarsField = DefaultJarsField
	}

	normalized := jsonc.ToJSON(data)

	fields, err := decodeObject(normalized)
	if err != nil {
		return nil, err
	}

	req, err := cueutil.Decode[requiredFields](manifestSchema, normalized, "#Manifest",
		cueutil.WithFilename(DefaultPath))
	if err != nil {
		return nil, &InvalidManifestError{Reason: "schema validation failed", Cause: err}
	}

	m := &Manifest{
		ID:        req.ID,
		Version:   req.Version,
		jarsField: jarsField,
		fields:    fields,
	}

	if raw, ok := m.Field(jarsField); ok {
		var refs []jarRef
		if err := json.Unmarshal(raw, &refs); err != nil {
			return nil, &InvalidManifestError{Reason: fmt.Sprintf("field %q must be a list of {\"file\": string}", jarsField), Cause: err}
		}
		for i, ref := range refs {
			if strings.TrimSpace(ref.File) == "" {
				return nil, &InvalidManifestError{Reason: fmt.Sprintf("%s[%d].file is empty", jarsField, i)}
			}
			m.Jars = append(m.Jars, ref.File)
		}
	}

	return m, nil
}

// decodeObject reads a single top-level JSON object, keeping field order.
// A repeated key keeps its first position and its last value.
func decodeObject(data []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, &InvalidManifestError{Reason: "not valid JSON", Cause: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &InvalidManifestError{Reason: "top-level value is not an object"}
	}

	var fields []field
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &InvalidManifestError{Reason: "not valid JSON", Cause: err}
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, &InvalidManifestError{Reason: fmt.Sprintf("field %q is not valid JSON", key), Cause: err}
		}

		if i, dup := index[key]; dup {
			fields[i].value = raw
			continue
		}
		index[key] = len(fields)
		fields = append(fields, field{key: key, value: raw})
	}

	if _, err := dec.Token(); err != nil {
		return nil, &InvalidManifestError{Reason: "not valid JSON", Cause: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &InvalidManifestError{Reason: "trailing data after top-level object"}
	}

	return fields, nil
}

// Field returns the raw JSON value of a top-level field.
func (m *Manifest) Field(key string) (json.RawMessage, bool) {
	for _, f := range m.fields {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

// Keys returns the top-level field names in document order.
func (m *Manifest) Keys() []string {
	keys := make([]string, len(m.fields))
	for i, f := range m.fields {
		keys[i] = f.key
	}
	return keys
}

// HasJars reports whether the manifest still carries its embedded list field.
func (m *Manifest) HasJars() bool {
	_, ok := m.Field(m.jarsField)
	return ok
}

// StripJars removes the embedded list field. It reports whether anything was
// removed; calling it on a stripped manifest is a no-op.
func (m *Manifest) StripJars() bool {
	for i, f := range m.fields {
		if f.key == m.jarsField {
			m.fields = append(m.fields[:i], m.fields[i+1:]...)
			m.Jars = nil
			return true
		}
	}
	return false
}

// Marshal encodes the manifest as compact JSON with fields in document order.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, f.key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := json.Compact(&buf, f.value); err != nil {
			return nil, fmt.Errorf("encode field %q: %w", f.key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(key); err != nil {
		return fmt.Errorf("encode key %q: %w", key, err)
	}
	// Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
