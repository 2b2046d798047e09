// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the jijflattener command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the flags of the root command. Flags that are
// explicitly set override the configuration file.
type rootFlagValues struct {
	configPath string
	logLevel   string
	verbose    bool
	dryRun     bool
	watch      bool
	cleanWork  bool
	include    []string
	exclude    []string
	reportPath string
	tracePath  string
}

// newRootCommand builds the command tree.
func newRootCommand() *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "jijflattener " + usageLine,
		Short: "Flatten jar-in-jar mods into one archive per mod",
		Long: TitleStyle.Render("jijflattener") + SubtitleStyle.Render(" - flatten jar-in-jar mods") + `

Mods may embed other mods (jar-in-jar). jijflattener extracts every embedded
archive, strips it from its parent, and writes exactly one archive per mod
identifier to the output directory. Archives in the input directory always
win; among embedded copies the highest version wins.

The input directory is never modified.

` + SubtitleStyle.Render("Arguments:") + `
  input            directory holding the mod archives
  output           defaults to <input>/flattened
  work directory   defaults to <output>/.flattenerwork

` + SubtitleStyle.Render("Examples:") + `
  jijflattener mods                     Flatten into mods/flattened
  jijflattener mods out                 Flatten into out
  jijflattener --dry-run mods           Show what would be written
  jijflattener --report run.yaml mods   Also write a YAML report
  jijflattener config init              Create a default config file`,
		Args:         validateArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlatten(cmd, flags, args)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default is <config dir>/jijflattener/config.cue)")
	pf.StringVar(&flags.logLevel, "log-level", "", "minimum log level: debug, info, warn or error")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging and full error chains")

	f := rootCmd.Flags()
	f.BoolVar(&flags.dryRun, "dry-run", false, "process archives without writing the output directory")
	f.BoolVarP(&flags.watch, "watch", "w", false, "re-run whenever the input directory changes")
	f.BoolVar(&flags.cleanWork, "clean-work", false, "remove the work directory after a successful run")
	f.StringSliceVar(&flags.include, "include", nil, "only process input files matching these patterns")
	f.StringSliceVar(&flags.exclude, "exclude", nil, "skip input files matching these patterns")
	f.StringVar(&flags.reportPath, "report", "", "write a run report; .json, .yaml or .toml picks the format")
	f.StringVar(&flags.tracePath, "trace", "", "write OpenTelemetry spans to this file")

	rootCmd.AddCommand(newConfigCommand(flags))

	return rootCmd
}

// validateArgs accepts one to three positional arguments.
func validateArgs(_ *cobra.Command, args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return &UsageError{Got: len(args)}
	}
	return nil
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command and exits with its exit code.
// This is called by main.main().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		newRootCommand(),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(exitCode(err))
	}
}
