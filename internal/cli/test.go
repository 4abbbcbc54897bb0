package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/config"
	"github.com/roach88/attest/internal/engine"
	"github.com/roach88/attest/internal/harness"
	"github.com/roach88/attest/internal/report"
	"github.com/roach88/attest/internal/script"
	"github.com/roach88/attest/internal/store"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	ConfigPath  string
	OnFatal     string
	Timeout     time.Duration
	MaxParallel int
	MaxSteps    uint64
	Include     []string
	Exclude     []string
	Record      string
	NoColor     bool

	// Engine overrides the script engine (for testing).
	// If nil, the Starlark engine is used.
	Engine script.Engine

	// StoreOptions are applied when opening the --record database (for testing).
	StoreOptions []store.Option
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test [dir]",
		Short: "Run every test script under a directory",
		Long: `Run every test script under a directory, tests/ by default.

Settings are read from attest.yaml, attest.yml or attest.cue in the current
directory (or the file given with --config). Flags override the file.

Exit codes:
  0 - All test files passed
  1 - One or more test files failed
  2 - Command error (bad config, missing directory, harness error, etc.)

Examples:
  attest test
  attest test ./scripts --include "*.star"
  attest test --on-fatal isolate --timeout 30s
  attest test --record runs.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file (default: attest.yaml, attest.yml or attest.cue)")
	cmd.Flags().StringVar(&opts.OnFatal, "on-fatal", string(harness.FatalAbort),
		fmt.Sprintf("what a harness error does to the run (%s)", joinPolicies()))
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "per-file execution limit (0 means none)")
	cmd.Flags().IntVar(&opts.MaxParallel, "max-parallel", 0, "maximum files executing at once (0 means unbounded)")
	cmd.Flags().Uint64Var(&opts.MaxSteps, "max-steps", 0, "interpreter steps allowed per file (0 means unlimited)")
	cmd.Flags().StringSliceVar(&opts.Include, "include", nil, "only run files whose names match these globs")
	cmd.Flags().StringSliceVar(&opts.Exclude, "exclude", nil, "skip files and directories whose names match these globs")
	cmd.Flags().StringVar(&opts.Record, "record", "", "append the run to this SQLite database")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "disable coloured output")

	return cmd
}

func joinPolicies() string {
	names := make([]string, len(harness.ValidFatalPolicies))
	for i, p := range harness.ValidFatalPolicies {
		names[i] = string(p)
	}
	return strings.Join(names, "|")
}

func runTests(opts *TestOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := resolveConfig(opts, args, cmd.Flags().Changed)
	if err != nil {
		return commandError(formatter, ErrCodeConfig, err.Error())
	}
	if cfg.Source != "" {
		formatter.VerboseLog("using config %s", cfg.Source)
	}

	info, err := os.Stat(cfg.Root)
	if err != nil || !info.IsDir() {
		return commandError(formatter, ErrCodeNotFound, fmt.Sprintf("test directory not found: %s", cfg.Root))
	}

	walkOpts := cfg.WalkerOptions()
	walkOpts.Logger = newLogger(formatter.GetErrWriter(), opts.Verbose)

	eng := opts.Engine
	if eng == nil {
		eng = engine.New(cfg.EngineOptions()...)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := harness.NewWalker(eng, walkOpts).Walk(ctx, cfg.Root)
	if err != nil {
		return commandError(formatter, ErrCodeHarness, err.Error())
	}

	rep, err := report.Build(results)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, err.Error())
	}

	var runID string
	if cfg.Record != "" {
		run, err := recordRun(ctx, cfg, rep, opts.StoreOptions)
		if err != nil {
			return commandError(formatter, ErrCodeStore, err.Error())
		}
		runID = run.ID
		formatter.VerboseLog("recorded run %s in %s", run.ID, cfg.Record)
	}

	if opts.Format == "json" {
		if err := formatter.Report(rep.OK(), rep, runID); err != nil {
			return err
		}
	} else {
		tr := report.NewTextReporter(formatter.Writer,
			report.WithColor(colorFor(formatter.Writer, opts.NoColor)))
		if err := tr.Report(rep); err != nil {
			return err
		}
		if runID != "" {
			fmt.Fprintf(formatter.Writer, "recorded run %s\n", runID)
		}
	}

	if !rep.OK() {
		return newReportedExit(ExitFailure,
			fmt.Sprintf("%d of %d test files failed", rep.Summary.Failed, rep.Summary.Total))
	}
	return nil
}

// resolveConfig layers the config file and then explicitly set flags over
// the defaults. changed reports whether a flag was set on the command line.
func resolveConfig(opts *TestOptions, args []string, changed func(string) bool) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadDefault(".")
	}
	if err != nil {
		return config.Config{}, err
	}

	if len(args) == 1 {
		cfg.Root = args[0]
	}
	if changed("on-fatal") {
		cfg.OnFatal = harness.FatalPolicy(opts.OnFatal)
	}
	if changed("timeout") {
		cfg.Timeout = opts.Timeout
	}
	if changed("max-parallel") {
		cfg.MaxParallel = opts.MaxParallel
	}
	if changed("max-steps") {
		cfg.MaxSteps = opts.MaxSteps
	}
	if changed("include") {
		cfg.Include = opts.Include
	}
	if changed("exclude") {
		cfg.Exclude = opts.Exclude
	}
	if changed("record") {
		cfg.Record = opts.Record
	}
	return cfg, cfg.Validate()
}

func recordRun(ctx context.Context, cfg config.Config, rep *report.RunReport, storeOpts []store.Option) (store.Run, error) {
	st, err := store.Open(cfg.Record, storeOpts...)
	if err != nil {
		return store.Run{}, err
	}
	defer st.Close()
	return st.RecordRun(ctx, cfg.Root, rep)
}
