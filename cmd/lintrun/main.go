// Command lintrun runs analyzer plugins over Go source files.
//
// Usage:
//
//	lintrun [flags] <target>
//
// The target is a go.work workspace, a go.mod module, a single .go file or a
// directory. Examples:
//
//	# Run one plugin over the current directory
//	lintrun -a logmsg.so .
//
//	# Several plugins, SARIF output, four files at a time
//	lintrun -a logmsg.so -a extra.so -f sarif -j 4 ./go.work
//
// Plugins can also be listed in .lintrun.yaml. The exit status is 0 when the
// run produced neither diagnostics nor errors, 1 otherwise.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Wladim1r/lintrun/internal/config"
	"github.com/Wladim1r/lintrun/internal/loader"
	"github.com/Wladim1r/lintrun/internal/parse"
	"github.com/Wladim1r/lintrun/internal/report"
	"github.com/Wladim1r/lintrun/internal/result"
	"github.com/Wladim1r/lintrun/internal/runner"
	"github.com/Wladim1r/lintrun/internal/target"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const infoURI = "https://github.com/Wladim1r/lintrun"

// errFindings signals a completed run that reported something.
var errFindings = errors.New("findings reported")

type options struct {
	analyzers  []string
	format     string
	verbose    bool
	quiet      bool
	configPath string
	jobs       int
	parallel   bool
	timeout    time.Duration
	exclude    []string
	color      string
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit status.
func execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	// A second interrupt kills the process.
	context.AfterFunc(ctx, stop)

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if !errors.Is(err, errFindings) {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return 1
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "lintrun [flags] <target>",
		Short: "Run analyzer plugins over Go source files",
		Long: `lintrun loads analyzer plugins built with -buildmode=plugin and runs every
analyzer they export against the Go files of a target: a go.work workspace,
a go.mod module, a single .go file or a directory.`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd, &opts, args[0], stdout, stderr)
		},
	}
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringArrayVarP(&opts.analyzers, "analyzer", "a", nil, "analyzer plugin (.so) to load; repeatable")
	f.StringVarP(&opts.format, "format", "f", "text", "output format (text|sarif)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "show categories, locations and debug logs")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "log errors only")
	f.StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "path to a YAML or TOML config file")
	f.IntVarP(&opts.jobs, "jobs", "j", 0, "number of files analyzed in parallel")
	f.BoolVarP(&opts.parallel, "parallel", "p", false, "analyze files in parallel using every available CPU")
	f.DurationVar(&opts.timeout, "timeout", 0, "time limit for one analyzer on one file, e.g. 30s")
	f.StringArrayVar(&opts.exclude, "exclude", nil, "glob of files to skip; repeatable")
	f.StringVar(&opts.color, "color", "auto", "colorize text output (auto|on|off)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(newVersionCmd(stdout))
	return cmd
}

func runLint(cmd *cobra.Command, opts *options, path string, stdout, stderr io.Writer) error {
	cmd.SilenceUsage = true

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, opts, cfg); err != nil {
		return misuse(cmd, stderr, err)
	}
	if len(cfg.Plugins) == 0 {
		return misuse(cmd, stderr, errors.New("no analyzer plugins given; use --analyzer or list plugins in the config file"))
	}

	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return misuse(cmd, stderr, err)
	}
	colored, err := colorEnabled(opts.color)
	if err != nil {
		return misuse(cmd, stderr, err)
	}

	logger := newLogger(stderr, opts.verbose, opts.quiet)
	defer func() { _ = logger.Sync() }()

	ld := &loader.Loader{
		Enabled: cfg.IsAnalyzerEnabled,
		Logger:  logger.Named("loader"),
	}
	modules, loadErrs := ld.Load(cfg.Plugins)

	r := &runner.Runner{
		Builder:  &parse.Builder{Logger: logger.Named("parse")},
		Resolver: &target.Resolver{Exclude: cfg.Exclude, Logger: logger.Named("target")},
		Logger:   logger.Named("runner"),
		Jobs:     cfg.Jobs,
		Timeout:  cfg.Timeout,
	}

	res := result.Merge(
		&result.Result{Errors: loadErrs},
		r.RunTarget(cmd.Context(), modules, path),
	)

	logger.Debug("run finished",
		zap.Int("modules", len(modules)),
		zap.Int("messages", len(res.Messages)),
		zap.Int("errors", len(res.Errors)),
	)

	err = report.Write(stdout, res, report.Options{
		Format:  format,
		Verbose: opts.verbose,
		Color:   colored,
		Tool:    report.Tool{Name: "lintrun", Version: version, InfoURI: infoURI},
	})
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if report.ExitCode(res) != 0 {
		return errFindings
	}
	return nil
}

// applyFlags lays explicitly set flags over the loaded config.
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) error {
	f := cmd.Flags()

	cfg.Plugins = append(cfg.Plugins, opts.analyzers...)
	cfg.Exclude = append(cfg.Exclude, opts.exclude...)
	if f.Changed("format") {
		cfg.Format = opts.format
	}
	if f.Changed("jobs") {
		cfg.Jobs = opts.jobs
	} else if opts.parallel {
		cfg.Jobs = runner.DefaultJobs()
	}
	if f.Changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	return cfg.Validate()
}

// misuse prints usage and returns err.
func misuse(cmd *cobra.Command, w io.Writer, err error) error {
	fmt.Fprint(w, cmd.UsageString())
	return err
}

func colorEnabled(mode string) (bool, error) {
	switch strings.ToLower(mode) {
	case "auto":
		return !color.NoColor, nil
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	}
	return false, fmt.Errorf("invalid --color value %q (want auto, on or off)", mode)
}

func newLogger(w io.Writer, verbose, quiet bool) *zap.Logger {
	level := zapcore.WarnLevel
	switch {
	case verbose:
		level = zapcore.DebugLevel
	case quiet:
		level = zapcore.ErrorLevel
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(w),
		level,
	)
	return zap.New(core)
}
