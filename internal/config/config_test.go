// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/nuclearfarts/jijflattener/internal/issue"
	"github.com/nuclearfarts/jijflattener/pkg/manifest"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.cue")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func load(t *testing.T, opts LoadOptions) (*Config, string, error) {
	t.Helper()

	if opts.ConfigDirPath == "" && opts.ConfigFilePath == "" {
		opts.ConfigDirPath = t.TempDir()
	}
	return loadWithOptions(context.Background(), opts)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.LogLevel != LogLevelInfo {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if diff := cmp.Diff(manifest.DefaultLayout(), cfg.Manifest.Layout()); diff != "" {
		t.Errorf("manifest layout mismatch (-want +got):\n%s", diff)
	}
	if cfg.Work.Clean || cfg.Trace.Enabled || cfg.Report.Path != "" {
		t.Errorf("unexpected non-zero defaults: %+v", cfg)
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("DefaultConfig() is invalid: %v", errs)
	}
}

func TestConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux")
	}

	t.Setenv("XDG_CONFIG_HOME", "/tmp/test-xdg-config")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() unexpected error: %v", err)
	}
	if want := filepath.Join("/tmp/test-xdg-config", AppName); dir != want {
		t.Errorf("ConfigDir() = %q, want %q", dir, want)
	}
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	t.Parallel()

	cfg, path, err := load(t, LoadOptions{})
	if err != nil {
		t.Fatalf("load() unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want none", path)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `
log_level: "debug"
manifest: jars_dir: "META-INF/nested"
input: exclude: ["*.disabled"]
work: clean: true
`
	if err := os.WriteFile(filepath.Join(dir, "config.cue"), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, path, err := load(t, LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("load() unexpected error: %v", err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("resolved path = %q", path)
	}

	want := DefaultConfig()
	want.LogLevel = LogLevelDebug
	want.Manifest.JarsDir = "META-INF/nested"
	want.Input.Exclude = []string{"*.disabled"}
	want.Work.Clean = true
	if diff := cmp.Diff(want, cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `trace: {enabled: true, file_path: "/tmp/traces.jsonl"}
report: path: "report.yaml"
`)
	cfg, resolved, err := load(t, LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("load() unexpected error: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}
	if !cfg.Trace.Enabled || cfg.Trace.FilePath != "/tmp/traces.jsonl" || cfg.Report.Path != "report.yaml" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("JIJFLATTENER_LOG_LEVEL", "warn")
	t.Setenv("JIJFLATTENER_MANIFEST_JARS_FIELD", "nested")

	cfg, _, err := load(t, LoadOptions{ConfigFilePath: writeConfig(t, `log_level: "debug"`)})
	if err != nil {
		t.Fatalf("load() unexpected error: %v", err)
	}
	if cfg.LogLevel != LogLevelWarn {
		t.Errorf("LogLevel = %q, want warn from the environment", cfg.LogLevel)
	}
	if cfg.Manifest.JarsField != "nested" {
		t.Errorf("JarsField = %q, want nested from the environment", cfg.Manifest.JarsField)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unknown field", content: `colour: "red"`, want: "colour"},
		{name: "bad log level", content: `log_level: "loud"`, want: "log_level"},
		{name: "wrong type", content: `work: clean: "yes"`, want: "clean"},
		{name: "syntax error", content: `log_level: "debug`, want: "config.cue"},
		{name: "unsafe jars dir", content: `manifest: jars_dir: "../outside"`, want: "jars dir"},
		{name: "bad pattern", content: `input: include: ["[a-"]`, want: "input.include"},
		{name: "trace without file", content: `trace: enabled: true`, want: "trace.file_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := load(t, LoadOptions{ConfigFilePath: writeConfig(t, tt.content)})
			if err == nil {
				t.Fatal("load() expected an error")
			}

			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error should be *issue.ActionableError, got %T: %v", err, err)
			}
			if !strings.Contains(ae.Format(true), tt.want) {
				t.Errorf("error %q does not mention %q", ae.Format(true), tt.want)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, _, err := load(t, LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "absent.cue")})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("load() error = %v, want config file not found", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.LogLevel = LogLevelDebug
	cfg.Input.Include = []string{"*.jar"}
	cfg.Input.Exclude = []string{"*-dev.jar", "old/**"}
	cfg.Report.Path = "out/report.toml"

	loaded, _, err := load(t, LoadOptions{ConfigFilePath: writeConfig(t, GenerateCUE(cfg))})
	if err != nil {
		t.Fatalf("load() of generated CUE unexpected error: %v\n%s", err, GenerateCUE(cfg))
	}
	if diff := cmp.Diff(cfg, loaded, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.cue")

	created, resolved, err := CreateDefaultConfig(path)
	if err != nil || !created || resolved != path {
		t.Fatalf("CreateDefaultConfig() = (%v, %q, %v), want (true, %q, nil)", created, resolved, err, path)
	}

	if err := os.WriteFile(path, []byte(`log_level: "error"`), 0o644); err != nil {
		t.Fatalf("failed to overwrite config: %v", err)
	}
	created, _, err = CreateDefaultConfig(path)
	if err != nil || created {
		t.Fatalf("CreateDefaultConfig() on an existing file = (%v, %v), want (false, nil)", created, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() unexpected error: %v", err)
	}
	if string(data) != `log_level: "error"` {
		t.Error("CreateDefaultConfig() overwrote an existing file")
	}
}

func TestLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level LogLevel
		valid bool
		want  log.Level
	}{
		{level: LogLevelDebug, valid: true, want: log.DebugLevel},
		{level: LogLevelInfo, valid: true, want: log.InfoLevel},
		{level: LogLevelWarn, valid: true, want: log.WarnLevel},
		{level: LogLevelError, valid: true, want: log.ErrorLevel},
		{level: "verbose", valid: false, want: log.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			t.Parallel()

			valid, errs := tt.level.IsValid()
			if valid != tt.valid {
				t.Errorf("IsValid() = %v, want %v", valid, tt.valid)
			}
			if !valid && !errors.Is(errs[0], ErrInvalidLogLevel) {
				t.Errorf("IsValid() error = %v, want ErrInvalidLogLevel", errs[0])
			}
			if got := tt.level.Level(); got != tt.want {
				t.Errorf("Level() = %v, want %v", got, tt.want)
			}
		})
	}
}

//nolint:paralleltest // mutates the package-level config directory override
func TestConfigDirOverride_DefaultPaths(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	got, err := ConfigDir()
	if err != nil || got != dir {
		t.Fatalf("ConfigDir() = (%q, %v), want (%q, nil)", got, err, dir)
	}

	created, path, err := CreateDefaultConfig("")
	if err != nil || !created {
		t.Fatalf("CreateDefaultConfig(\"\") = (%v, %q, %v)", created, path, err)
	}
	if want := filepath.Join(dir, "config.cue"); path != want {
		t.Errorf("CreateDefaultConfig(\"\") wrote %q, want %q", path, want)
	}

	resolved, err := ResolvePath(LoadOptions{})
	if err != nil || resolved != path {
		t.Errorf("ResolvePath() = (%q, %v), want (%q, nil)", resolved, err, path)
	}

	Reset()
	if got, _ := ConfigDir(); got == dir {
		t.Error("Reset() did not clear the override")
	}
}
