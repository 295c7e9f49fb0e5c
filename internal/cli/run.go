package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/procharness/internal/config"
	"github.com/roach88/procharness/internal/harness"
	"github.com/roach88/procharness/internal/registry"
	"github.com/roach88/procharness/internal/report"
	"github.com/roach88/procharness/internal/store"
	"github.com/roach88/procharness/internal/supervisor"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	SelectionOptions

	Parallel  int
	Timeout   time.Duration
	InProcess bool
	Database  string
	Color     string
}

// newSupervisor builds the supervisor for a worker invocation. Tests replace
// it to re-execute the test binary.
var newSupervisor = func(args []string) *supervisor.Supervisor {
	return &supervisor.Supervisor{Args: args}
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the registered test cases",
		Long: `Run every selected test case and print a report.

By default cases run in a supervised worker process: if a case aborts the
process, the report still lists every case that finished, marks the aborting
case, and omits the cases that never ran. --in-process runs cases in this
process instead; an abort then ends procharness itself.

Exit status is 0 when every case passed, 1 when any case did not pass or the
run was aborted, and 2 on command errors.

Example:
  procharness run
  procharness run --profile nightly.yaml --parallel 4
  procharness run --filter 'calls_*' --in-process --format json
  procharness run --db ./runs.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, opts)
		},
	}

	opts.SelectionOptions.addFlags(cmd.Flags())
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 0, "number of cases run at once (overrides the profile)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "fail any case running longer than this (overrides the profile)")
	cmd.Flags().BoolVar(&opts.InProcess, "in-process", false, "run cases in this process instead of a supervised worker")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().StringVar(&opts.Color, "color", "auto", "color text output (auto|always|never)")

	return cmd
}

// resolveProfile merges the profile file with the command line. Flags set
// explicitly win over profile values.
func resolveProfile(cmd *cobra.Command, opts *RunOptions) (config.Profile, error) {
	p, err := opts.loadProfile()
	if err != nil {
		return config.Profile{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("parallel") {
		p.Parallel = opts.Parallel
	}
	if flags.Changed("timeout") {
		p.Timeout = opts.Timeout.String()
	}
	if opts.InProcess {
		isolate := false
		p.Isolate = &isolate
	}
	if flags.Changed("db") {
		p.DB = opts.Database
	}
	if !flags.Changed("format") && p.Format != "" {
		opts.Format = p.Format
	}

	if err := p.Validate(); err != nil {
		return config.Profile{}, WrapExitError(ExitCommandError, "invalid profile", err)
	}
	return p, nil
}

func runTests(cmd *cobra.Command, opts *RunOptions) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	out := formatter(opts.RootOptions, cmd)

	p, err := resolveProfile(cmd, opts)
	if err != nil {
		return reportError(out, ErrCodeProfile, err)
	}
	out.Format = opts.Format
	format, err := report.ParseFormat(opts.Format)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid format", err)
	}
	color, err := report.ParseColorMode(opts.Color)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid color", err)
	}
	timeout, err := p.TimeoutDuration()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid timeout", err)
	}

	reg, err := buildSuite(p)
	if err != nil {
		return reportError(out, ErrCodeRegistry, err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startedAt := time.Now()
	mode := store.ModeSupervised
	logger.Debug("run starting",
		"profile", p.Name,
		"cases", reg.Len(),
		"parallel", p.Parallel,
		"isolate", p.Isolated(),
	)

	var rep *harness.Report
	if p.Isolated() {
		sup := newSupervisor(workerArgs(opts.RootOptions, p, timeout))
		sup.Output = cmd.ErrOrStderr()
		sup.Logger = logger
		res, err := sup.Run(ctx)
		if err != nil {
			return reportError(out, ErrCodeWorker, WrapExitError(ExitCommandError, "failed to run worker", err))
		}
		if res.Fingerprint != "" && res.Fingerprint != reg.Fingerprint() {
			logger.Warn("worker suite differs from local suite", "worker", res.Fingerprint, "local", reg.Fingerprint())
		}
		rep = res.Report
	} else {
		mode = store.ModeInProcess
		rep = runInProcess(ctx, reg, p, timeout, logger)
	}

	if err := report.NewRenderer(format, color, cmd.OutOrStdout()).Render(rep); err != nil {
		return WrapExitError(ExitCommandError, "failed to render report", err)
	}

	if p.DB != "" {
		rec := store.RunRecord{
			StartedAt:   startedAt,
			Mode:        mode,
			Profile:     p.Name,
			Fingerprint: reg.Fingerprint(),
		}
		id, err := recordRun(ctx, p.DB, rec, rep, logger)
		if err != nil {
			return reportError(out, ErrCodeStore, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Run recorded: %s\n", id)
	}

	if status := report.ExitStatus(rep); status != ExitSuccess {
		if rep.Aborted {
			return NewExitError(ExitFailure, fmt.Sprintf("run aborted: %s", rep.AbortReason))
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d case(s) did not pass", rep.Total()-rep.Passed, rep.Total()))
	}
	return nil
}

func runInProcess(ctx context.Context, reg *registry.Registry, p config.Profile, timeout time.Duration, logger *slog.Logger) *harness.Report {
	d := &harness.Driver{
		Engine:   harness.NewEngine(harness.WithTimeout(timeout), harness.WithLogger(logger)),
		Parallel: p.Parallel,
		Logger:   logger,
	}
	return d.Run(ctx, reg.Snapshot())
}

func recordRun(ctx context.Context, path string, rec store.RunRecord, rep *harness.Report, logger *slog.Logger) (string, error) {
	st, err := store.Open(path)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	rec.ID = st.NewRunID()
	// A cancelled run is still recorded.
	stored, err := st.WriteRun(context.WithoutCancel(ctx), rec, rep)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to record run", err)
	}
	logger.Debug("run recorded", "run_id", stored.ID, "db", path)
	return stored.ID, nil
}

// workerArgs renders the resolved profile as worker command-line flags.
func workerArgs(root *RootOptions, p config.Profile, timeout time.Duration) []string {
	args := []string{"worker"}
	if root.Verbose {
		args = append(args, "--verbose")
	}
	for _, g := range p.Include {
		args = append(args, "--filter", g)
	}
	for _, g := range p.Exclude {
		args = append(args, "--exclude", g)
	}
	for _, tag := range p.ExcludeTags {
		args = append(args, "--exclude-tag", tag)
	}
	if p.Parallel > 0 {
		args = append(args, "--parallel", strconv.Itoa(p.Parallel))
	}
	if timeout > 0 {
		args = append(args, "--timeout", timeout.String())
	}
	return args
}

// commandContext returns cmd's context, or Background when none was set.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// reportError echoes err as a structured error document when the output is
// json or yaml. Text output leaves the message to Main.
func reportError(out *OutputFormatter, code string, err error) error {
	if out.Format == "json" || out.Format == "yaml" {
		_ = out.Error(code, err.Error(), nil)
	}
	return err
}
