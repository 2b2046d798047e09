// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nuclearfarts/jijflattener/internal/config"
)

// newConfigCommand creates the `jijflattener config` command tree.
func newConfigCommand(flags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage jijflattener configuration",
		Long: `Manage jijflattener configuration.

Configuration is stored in:
  - Linux: ~/.config/jijflattener/config.cue
  - macOS: ~/Library/Application Support/jijflattener/config.cue
  - Windows: %APPDATA%\jijflattener\config.cue

Every key may be overridden by a ` + config.EnvPrefix + `_* environment variable,
e.g. ` + config.EnvPrefix + `_LOG_LEVEL=debug or ` + config.EnvPrefix + `_MANIFEST_JARS_DIR=META-INF/jars/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := config.LoadOptions{ConfigFilePath: flags.configPath}
			cfg, err := config.NewProvider().Load(cmd.Context(), opts)
			if err != nil {
				return fail(cmd, err, flags.verbose)
			}
			path, err := config.ResolvePath(opts)
			if err != nil {
				return fail(cmd, err, flags.verbose)
			}
			showConfig(cmd.OutOrStdout(), cfg, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, path, err := config.CreateDefaultConfig(flags.configPath)
			if err != nil {
				return fail(cmd, fmt.Errorf("failed to create config: %w", err), flags.verbose)
			}
			out := cmd.OutOrStdout()
			if !created {
				fmt.Fprintf(out, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
				return nil
			}
			fmt.Fprintf(out, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return fail(cmd, err, flags.verbose)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	return cfgCmd
}

func showConfig(w io.Writer, cfg *config.Config, path string) {
	source := path
	if source == "" {
		source = "defaults"
	}
	fmt.Fprintf(w, "// source: %s\n", source)
	fmt.Fprint(w, config.GenerateCUE(cfg))
}
