// SPDX-License-Identifier: MPL-2.0

package tracing

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewProvider_Disabled(t *testing.T) {
	t.Parallel()

	p, err := NewProvider(Config{})
	if err != nil {
		t.Fatalf("NewProvider() unexpected error: %v", err)
	}
	if p.Enabled() {
		t.Error("Enabled() = true for a disabled config")
	}

	_, span := p.Tracer().Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("no-op tracer produced a valid span context")
	}
	span.End()

	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() unexpected error: %v", err)
	}
}

func TestNewProvider_RequiresFilePath(t *testing.T) {
	t.Parallel()

	if _, err := NewProvider(Config{Enabled: true}); !errors.Is(err, ErrNoFilePath) {
		t.Errorf("NewProvider() error = %v, want ErrNoFilePath", err)
	}
}

func TestNewProvider_WritesSpans(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "traces", "run.jsonl")
	p, err := NewProvider(Config{Enabled: true, FilePath: path, ServiceName: "test-service"})
	if err != nil {
		t.Fatalf("NewProvider() unexpected error: %v", err)
	}
	if !p.Enabled() {
		t.Fatal("Enabled() = false for an enabled config")
	}

	_, span := p.Tracer().Start(context.Background(), "flatten.run")
	if !span.SpanContext().IsValid() {
		t.Error("span context should be valid")
	}
	span.End()

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() unexpected error: %v", err)
	}
	if !bytes.Contains(data, []byte(`"flatten.run"`)) {
		t.Errorf("trace file does not contain the span:\n%s", data)
	}
	if !bytes.Contains(data, []byte("test-service")) {
		t.Errorf("trace file does not carry the service name:\n%s", data)
	}
}
