package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/odvcencio/osfcheck/internal/config"
	"github.com/odvcencio/osfcheck/internal/ignore"
	"github.com/odvcencio/osfcheck/internal/lang"
	"github.com/odvcencio/osfcheck/internal/logging"
	"github.com/odvcencio/osfcheck/internal/osf"
	"github.com/odvcencio/osfcheck/internal/report"
	"github.com/odvcencio/osfcheck/internal/resultcache"
	"github.com/odvcencio/osfcheck/internal/stats"
	"github.com/odvcencio/osfcheck/internal/walk"
	"github.com/odvcencio/osfcheck/internal/watch"
	"github.com/odvcencio/osfcheck/pkg/model"
	"github.com/odvcencio/osfcheck/pkg/rundiff"
)

// exitCodeError carries a process exit code. A nil err means the failure was
// already reported and main should exit without printing.
type exitCodeError struct {
	code int
	err  error
}

func (e exitCodeError) Error() string {
	if e.err == nil {
		return "command failed"
	}
	return e.err.Error()
}

func (e exitCodeError) Unwrap() error {
	return e.err
}

func (e exitCodeError) ExitCode() int {
	if e.code <= 0 {
		return 1
	}
	return e.code
}

type rootOptions struct {
	configPath string
	extension  string
	skipDirs   []string
	sort       bool
	jsonOutput bool
	showStats  bool
	topFiles   int
	watch      bool
	debounce   time.Duration
	logLevel   string
	logFormat  string
}

// session holds everything one validation pass needs.
type session struct {
	root    string
	cfg     config.Config
	matcher *ignore.Matcher
	parser  lang.Parser
	logger  *zap.Logger
	opts    rootOptions
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:     "osfcheck [path]",
		Short:   "Validate every OSF file under a directory",
		Version: version,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) == 1 {
				target = args[0]
			}

			s, err := newSession(cmd, target, opts, stdout, stderr)
			if err != nil {
				return err
			}
			defer func() { _ = s.logger.Sync() }()

			if opts.watch {
				return s.runWatch(cmd.Context())
			}

			summary, err := s.validate(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if code := summary.ExitCode(); code != 0 {
				return exitCodeError{code: code}
			}
			return nil
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default <path>/"+config.FileName+" when present)")
	cmd.Flags().StringVar(&opts.extension, "ext", walk.DefaultExtension, "file extension to validate")
	cmd.Flags().StringArrayVar(&opts.skipDirs, "skip-dir", nil, "directory name never descended into (repeatable, replaces defaults)")
	cmd.Flags().BoolVar(&opts.sort, "sort", false, "sort discovered paths before validating")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "emit JSON output")
	cmd.Flags().BoolVar(&opts.showStats, "stats", false, "print block-kind statistics after the summary")
	cmd.Flags().IntVar(&opts.topFiles, "top", 10, "files listed in statistics")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "revalidate whenever files change")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", watch.DefaultDebounce, "watch debounce interval")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "diagnostic log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "", "diagnostic log format (console|json)")
	return cmd
}

func newSession(cmd *cobra.Command, target string, opts rootOptions, stdout, stderr io.Writer) (*session, error) {
	if opts.topFiles <= 0 {
		return nil, fmt.Errorf("top must be > 0")
	}

	cfg, source, err := config.Resolve(opts.configPath, target)
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(cmd, &cfg, opts)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)
	if source != "" {
		logger.Info("loaded config", zap.String("path", source))
	}

	matcher, err := ignore.LoadOptional(cfg.IgnorePath(target))
	if err != nil {
		return nil, fmt.Errorf("load ignore file: %w", err)
	}
	if matcher != nil {
		logger.Info("loaded ignore file", zap.String("path", cfg.IgnorePath(target)))
	}

	parser := osf.NewParser()
	logger.Debug("using parser", zap.String("format", parser.Format()), zap.String("extension", cfg.Extension))

	return &session{
		root:    target,
		cfg:     cfg,
		matcher: matcher,
		parser:  parser,
		logger:  logger,
		opts:    opts,
		stdout:  stdout,
		stderr:  stderr,
	}, nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config, opts rootOptions) {
	flags := cmd.Flags()
	if flags.Changed("ext") {
		cfg.Extension = opts.extension
	}
	if flags.Changed("skip-dir") {
		cfg.SkipDirs = opts.skipDirs
	}
	if flags.Changed("sort") {
		cfg.Sort = opts.sort
	}
	if flags.Changed("debounce") {
		cfg.Watch.Debounce = opts.debounce
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
}

// validate runs one discovery and validation pass. A walk failure is fatal.
func (s *session) validate(ctx context.Context, cache *resultcache.Cache) (model.Summary, error) {
	paths, err := walk.Find(s.root, walk.Options{
		Extension: s.cfg.Extension,
		SkipDirs:  s.cfg.SkipDirs,
		Ignore:    s.matcher,
		Sort:      s.cfg.Sort,
	})
	if err != nil {
		return model.Summary{}, err
	}
	s.logger.Debug("discovered files", zap.Int("count", len(paths)))

	var printer *report.Printer
	if !s.opts.jsonOutput {
		printer = report.NewPrinter(s.stdout, s.stderr)
	}
	summary, err := report.Run(ctx, s.root, paths, s.parser, printer, report.Options{Cache: cache})
	if err != nil {
		return model.Summary{}, err
	}

	if s.opts.jsonOutput {
		if s.opts.showStats {
			return summary, report.WriteJSON(s.stdout, struct {
				Summary model.Summary `json:"summary"`
				Stats   stats.Report  `json:"stats"`
			}{
				Summary: summary,
				Stats:   stats.Build(summary, stats.Options{TopFiles: s.opts.topFiles}),
			})
		}
		return summary, report.WriteJSON(s.stdout, summary)
	}
	if s.opts.showStats {
		printStats(s.stdout, stats.Build(summary, stats.Options{TopFiles: s.opts.topFiles}))
	}
	return summary, nil
}

// runWatch validates once, then again after every settled change, until ctx is
// done. The exit status reflects the last completed pass.
func (s *session) runWatch(ctx context.Context) error {
	cache, err := resultcache.New(resultcache.DefaultSize)
	if err != nil {
		return err
	}

	last, err := s.validate(ctx, cache)
	if err != nil {
		return err
	}

	err = watch.Run(ctx, s.root, watch.Options{
		Debounce: s.cfg.Watch.Debounce,
		SkipDirs: s.cfg.SkipDirs,
		Ignore:   s.matcher,
		Logger:   s.logger,
	}, func(changed []string) {
		s.logger.Info("revalidating", zap.Strings("changed", changed))
		summary, runErr := s.validate(ctx, cache)
		if runErr != nil {
			if ctx.Err() == nil {
				s.logger.Error("validation failed", zap.Error(runErr))
			}
			return
		}
		hits, misses := cache.Stats()
		s.logger.Debug("result cache", zap.Int("hits", hits), zap.Int("misses", misses), zap.Int("entries", cache.Len()))
		if !s.opts.jsonOutput {
			printChanges(s.stdout, rundiff.Compare(last, summary))
		}
		last = summary
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.root, err)
	}

	if code := last.ExitCode(); code != 0 {
		return exitCodeError{code: code}
	}
	return nil
}

func printStats(w io.Writer, r stats.Report) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "stats: files=%d parsed=%d failed=%d blocks=%d\n", r.FileCount, r.ParsedCount, r.FailedCount, r.BlockCount)
	if len(r.KindCounts) > 0 {
		fmt.Fprintln(w, "kinds:")
		for _, kind := range r.KindCounts {
			fmt.Fprintf(w, "  %s=%d\n", kind.Kind, kind.Count)
		}
	}
	if len(r.TopFiles) > 0 {
		fmt.Fprintln(w, "top files:")
		for _, file := range r.TopFiles {
			fmt.Fprintf(w, "  %s blocks=%d\n", file.Path, file.Blocks)
		}
	}
}

func printChanges(w io.Writer, diff rundiff.Report) {
	fmt.Fprintln(w)
	if diff.Empty() {
		fmt.Fprintln(w, "changes: none")
		return
	}
	fmt.Fprintf(
		w,
		"changes: added=%d removed=%d broken=%d fixed=%d changed=%d\n",
		diff.Stats.AddedFiles,
		diff.Stats.RemovedFiles,
		diff.Stats.BrokenFiles,
		diff.Stats.FixedFiles,
		diff.Stats.ChangedFiles,
	)
	for _, result := range diff.Added {
		fmt.Fprintf(w, "  + %s\n", result.Path)
	}
	for _, result := range diff.Removed {
		fmt.Fprintf(w, "  - %s\n", result.Path)
	}
	for _, change := range diff.Broken {
		fmt.Fprintf(w, "  ✗ %s: %s\n", change.Path, change.After.Error)
	}
	for _, change := range diff.Fixed {
		fmt.Fprintf(w, "  ✓ %s\n", change.Path)
	}
	for _, change := range diff.Changed {
		if change.After.Success {
			fmt.Fprintf(w, "  ~ %s blocks=%d->%d\n", change.Path, change.Before.BlockCount, change.After.BlockCount)
			continue
		}
		fmt.Fprintf(w, "  ~ %s: %s\n", change.Path, change.After.Error)
	}
}
