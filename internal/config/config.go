// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/nuclearfarts/jijflattener/internal/issue"
	"github.com/nuclearfarts/jijflattener/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "jijflattener"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment variable overrides.
	EnvPrefix = "JIJFLATTENER"
)

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns the jijflattener configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	// Allow tests to override the config directory
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// DefaultConfigPath returns the config file inside ConfigDir.
func DefaultConfigPath() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions performs option-driven config loading. It returns the
// config and the path of the file it came from ("" when only defaults and
// environment overrides apply).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := resolveConfigPath(opts)
	if err != nil {
		return nil, "", err
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Use 'jijflattener config show' to see the effective configuration").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Checks CUE cannot express: pattern syntax and layout path safety.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check include/exclude patterns for unbalanced brackets or braces").
			WithSuggestion("Manifest paths must be relative and must not contain '..'").
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("manifest.path", defaults.Manifest.Path)
	v.SetDefault("manifest.jars_field", defaults.Manifest.JarsField)
	v.SetDefault("manifest.jars_dir", defaults.Manifest.JarsDir)
	v.SetDefault("input.include", defaults.Input.Include)
	v.SetDefault("input.exclude", defaults.Input.Exclude)
	v.SetDefault("work.clean", defaults.Work.Clean)
	v.SetDefault("report.path", defaults.Report.Path)
	v.SetDefault("trace.enabled", defaults.Trace.Enabled)
	v.SetDefault("trace.file_path", defaults.Trace.FilePath)
}

// resolveConfigPath picks the config file: the explicit path (which must
// exist), else config.cue in the config directory, else ./config.cue. It
// returns "" when no file is found.
func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				WithSuggestion("Use 'jijflattener config init' to write a default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}

	candidates := []string{
		filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
		ConfigFileName + "." + ConfigFileExt,
	}
	for _, p := range candidates {
		if fileExists(p) {
			return p, nil
		}
	}
	return "", nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper. Fields are optional, so validation does
// not require concrete values.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := cueutil.Decode[map[string]any](configSchema, data, "#Config",
		cueutil.WithFilename(path), cueutil.WithConcrete(false))
	if err != nil {
		return err
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(*configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default config file to path, or to
// DefaultConfigPath when path is empty. An existing file is left alone and
// reported through the created result.
func CreateDefaultConfig(path string) (created bool, resolved string, err error) {
	if path == "" {
		if path, err = DefaultConfigPath(); err != nil {
			return false, "", err
		}
	}

	if _, err := os.Stat(path); err == nil {
		return false, path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, path, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return false, path, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, path, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// jijflattener configuration file\n")
	sb.WriteString("// Every key may be overridden by a " + EnvPrefix + "_* environment variable.\n\n")

	sb.WriteString(fmt.Sprintf("log_level: %q\n", cfg.LogLevel))

	sb.WriteString("\nmanifest: {\n")
	sb.WriteString(fmt.Sprintf("\tpath:       %q\n", cfg.Manifest.Path))
	sb.WriteString(fmt.Sprintf("\tjars_field: %q\n", cfg.Manifest.JarsField))
	sb.WriteString(fmt.Sprintf("\tjars_dir:   %q\n", cfg.Manifest.JarsDir))
	sb.WriteString("}\n")

	sb.WriteString("\ninput: {\n")
	sb.WriteString("\tinclude: " + cueList(cfg.Input.Include) + "\n")
	sb.WriteString("\texclude: " + cueList(cfg.Input.Exclude) + "\n")
	sb.WriteString("}\n")

	sb.WriteString("\nwork: {\n")
	sb.WriteString(fmt.Sprintf("\tclean: %v\n", cfg.Work.Clean))
	sb.WriteString("}\n")

	sb.WriteString("\nreport: {\n")
	sb.WriteString(fmt.Sprintf("\tpath: %q\n", cfg.Report.Path))
	sb.WriteString("}\n")

	sb.WriteString("\ntrace: {\n")
	sb.WriteString(fmt.Sprintf("\tenabled:   %v\n", cfg.Trace.Enabled))
	sb.WriteString(fmt.Sprintf("\tfile_path: %q\n", cfg.Trace.FilePath))
	sb.WriteString("}\n")

	return sb.String()
}

func cueList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
