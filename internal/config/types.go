// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/nuclearfarts/jijflattener/pkg/manifest"
)

const (
	// LogLevelDebug logs pre-emptions, strips and everything below.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs every processed archive.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs only version ambiguities and output collisions.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs only failures.
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidPattern is returned for malformed input include/exclude patterns.
	ErrInvalidPattern = errors.New("invalid input pattern")
	// ErrInvalidTraceConfig is returned when tracing is enabled without a file.
	ErrInvalidTraceConfig = errors.New("invalid trace config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level written to stderr.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// LogLevel sets the minimum log level
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// Manifest names where archives keep their manifest and embedded archives
		Manifest ManifestConfig `json:"manifest" mapstructure:"manifest"`
		// Input filters top-level files
		Input InputConfig `json:"input" mapstructure:"input"`
		// Work configures the work directory
		Work WorkConfig `json:"work" mapstructure:"work"`
		// Report configures the run report
		Report ReportConfig `json:"report" mapstructure:"report"`
		// Trace configures span export
		Trace TraceConfig `json:"trace" mapstructure:"trace"`
	}

	// ManifestConfig mirrors manifest.Layout.
	ManifestConfig struct {
		Path      string `json:"path" mapstructure:"path"`
		JarsField string `json:"jars_field" mapstructure:"jars_field"`
		JarsDir   string `json:"jars_dir" mapstructure:"jars_dir"`
	}

	// InputConfig holds doublestar patterns matched against top-level file names.
	InputConfig struct {
		Include []string `json:"include" mapstructure:"include"`
		Exclude []string `json:"exclude" mapstructure:"exclude"`
	}

	// WorkConfig configures the work directory.
	WorkConfig struct {
		// Clean removes the work directory after a successful run
		Clean bool `json:"clean" mapstructure:"clean"`
	}

	// ReportConfig configures the run report.
	ReportConfig struct {
		// Path receives the report; the extension picks json, yaml or toml
		Path string `json:"path" mapstructure:"path"`
	}

	// TraceConfig configures span export.
	TraceConfig struct {
		Enabled  bool   `json:"enabled" mapstructure:"enabled"`
		FilePath string `json:"file_path" mapstructure:"file_path"`
	}
)

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Level converts the LogLevel for charmbracelet/log. Unknown values map to info.
func (l LogLevel) Level() log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(string(l)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Layout returns the manifest layout described by the config.
func (c ManifestConfig) Layout() manifest.Layout {
	return manifest.Layout{Path: c.Path, JarsField: c.JarsField, JarsDir: c.JarsDir}
}

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if _, err := c.Manifest.Layout().Normalize(); err != nil {
		errs = append(errs, err)
	}
	for _, p := range c.Input.Include {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("input.include %q: %w", p, ErrInvalidPattern))
		}
	}
	for _, p := range c.Input.Exclude {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("input.exclude %q: %w", p, ErrInvalidPattern))
		}
	}
	if c.Trace.Enabled && strings.TrimSpace(c.Trace.FilePath) == "" {
		errs = append(errs, fmt.Errorf("trace.file_path is required when trace.enabled is true: %w", ErrInvalidTraceConfig))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %d field error(s): %s", len(e.FieldErrors), strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and the field errors for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel: LogLevelInfo,
		Manifest: ManifestConfig{
			Path:      manifest.DefaultPath,
			JarsField: manifest.DefaultJarsField,
			JarsDir:   manifest.DefaultJarsDir,
		},
		Input: InputConfig{
			Include: []string{},
			Exclude: []string{},
		},
		Work:   WorkConfig{Clean: false},
		Report: ReportConfig{Path: ""},
		Trace:  TraceConfig{Enabled: false, FilePath: ""},
	}
}
