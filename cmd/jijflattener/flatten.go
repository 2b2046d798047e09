// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nuclearfarts/jijflattener/internal/config"
	"github.com/nuclearfarts/jijflattener/internal/flatten"
	"github.com/nuclearfarts/jijflattener/internal/issue"
	"github.com/nuclearfarts/jijflattener/internal/tracing"
	"github.com/nuclearfarts/jijflattener/internal/watch"
)

// runner performs one flatten pass and reports it.
type runner struct {
	flattener  *flatten.Flattener
	fs         afero.Fs
	reportPath string
	stdout     io.Writer
	logger     *log.Logger
}

func runFlatten(cmd *cobra.Command, flags *rootFlagValues, args []string) (err error) {
	ctx := cmd.Context()
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, err := loadConfig(ctx, cmd, flags)
	if err != nil {
		return fail(cmd, err, flags.verbose)
	}
	logger := newLogger(stderr, cfg.LogLevel)

	if cfg.Report.Path != "" {
		if _, err := flatten.FormatFromPath(cfg.Report.Path); err != nil {
			return fail(cmd, fmt.Errorf("report %s: %w", cfg.Report.Path, err), flags.verbose)
		}
	}

	tp, err := tracing.NewProvider(tracing.Config{
		Enabled:  cfg.Trace.Enabled,
		FilePath: cfg.Trace.FilePath,
	})
	if err != nil {
		return fail(cmd, err, flags.verbose)
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.Warn("failed to flush traces", "err", shutdownErr)
		}
	}()

	fsys := afero.NewOsFs()
	f, err := flatten.New(flatten.Options{
		InputDir:  args[0],
		OutputDir: argAt(args, 1),
		WorkDir:   argAt(args, 2),
		Fs:        fsys,
		Logger:    logger,
		Tracer:    tp.Tracer(),
		Layout:    cfg.Manifest.Layout(),
		Include:   cfg.Input.Include,
		Exclude:   cfg.Input.Exclude,
		DryRun:    flags.dryRun,
		CleanWork: cfg.Work.Clean,
	})
	if err != nil {
		return fail(cmd, err, flags.verbose)
	}

	r := &runner{
		flattener:  f,
		fs:         fsys,
		reportPath: cfg.Report.Path,
		stdout:     stdout,
		logger:     logger,
	}

	if flags.watch {
		if err := watchInput(ctx, r, cfg); err != nil {
			return fail(cmd, err, flags.verbose)
		}
		return nil
	}

	if err := r.run(ctx); err != nil {
		return fail(cmd, err, flags.verbose)
	}
	return nil
}

func (r *runner) run(ctx context.Context) error {
	report, err := r.flattener.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprint(r.stdout, renderSummary(report))

	if r.reportPath != "" {
		if err := report.WriteFile(r.fs, r.reportPath); err != nil {
			return issue.NewErrorContext().
				WithOperation("write report").
				WithResource(r.reportPath).
				WithSuggestion("Check that the report directory is writable").
				Wrap(err).
				BuildError()
		}
		r.logger.Info("wrote report", "path", r.reportPath)
	}
	return nil
}

// watchInput runs once, then again after every change to the input
// directory until ctx is canceled. Failed runs are logged, not fatal.
func watchInput(ctx context.Context, r *runner, cfg *config.Config) error {
	input := r.flattener.Options().InputDir

	if err := r.run(ctx); err != nil {
		r.logger.Error("initial run failed", "err", err)
	}

	w, err := watch.New(watch.Config{
		Dir:     input,
		Include: cfg.Input.Include,
		Ignore:  cfg.Input.Exclude,
		Logger:  r.logger,
		OnChange: func(ctx context.Context, _ []string) error {
			return r.run(ctx)
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(r.stdout, "\n%s Watching %s for changes (Ctrl+C to stop)...\n\n", CmdStyle.Render("→"), input)
	return w.Run(ctx)
}

// loadConfig loads the configuration file and applies explicitly set flags
// on top of it.
func loadConfig(ctx context.Context, cmd *cobra.Command, flags *rootFlagValues) (*config.Config, error) {
	cfg, err := config.NewProvider().Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.LogLevel = config.LogLevel(flags.logLevel)
	}
	if flags.verbose {
		cfg.LogLevel = config.LogLevelDebug
	}
	if changed("include") {
		cfg.Input.Include = slices.Clone(flags.include)
	}
	if changed("exclude") {
		cfg.Input.Exclude = slices.Clone(flags.exclude)
	}
	if changed("clean-work") {
		cfg.Work.Clean = flags.cleanWork
	}
	if changed("report") {
		cfg.Report.Path = flags.reportPath
	}
	if changed("trace") {
		cfg.Trace.Enabled = flags.tracePath != ""
		cfg.Trace.FilePath = flags.tracePath
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Check the --log-level, --include and --exclude flags").
			Wrap(errs[0]).
			BuildError()
	}
	return cfg, nil
}

func newLogger(w io.Writer, level config.LogLevel) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix: config.AppName,
		Level:  level.Level(),
	})
}

// fail renders err with its issue catalog entry and returns an ExitError so
// cobra does not print it a second time.
func fail(cmd *cobra.Command, err error, verbose bool) error {
	issueID, styled := classifyError(err, verbose)
	renderServiceError(cmd.ErrOrStderr(), newServiceError(err, issueID, styled))
	cmd.SilenceErrors = true
	return &ExitError{Code: ExitFailure, Err: err}
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
