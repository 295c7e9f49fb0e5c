package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/procharness/internal/config"
	"github.com/roach88/procharness/internal/harness"
	"github.com/roach88/procharness/internal/supervisor"
)

// WorkerOptions holds flags for the worker command. The supervisor passes the
// fully resolved selection, so the worker starts from an empty profile.
type WorkerOptions struct {
	*RootOptions

	Filter      []string
	Exclude     []string
	ExcludeTags []string
	Parallel    int
	Timeout     time.Duration
}

// NewWorkerCommand creates the hidden worker command. The supervisor starts
// it with the frame pipe on descriptor 3; it is not meant to be run by hand.
func NewWorkerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WorkerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:    "worker",
		Short:  "Run cases and stream outcomes to a supervisor",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Filter, "filter", nil, "run only cases matching these globs")
	cmd.Flags().StringSliceVar(&opts.Exclude, "exclude", nil, "skip cases matching these globs")
	cmd.Flags().StringSliceVar(&opts.ExcludeTags, "exclude-tag", nil, "skip cases carrying these tags")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 0, "number of cases run at once")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "fail any case running longer than this")

	return cmd
}

func runWorker(cmd *cobra.Command, opts *WorkerOptions) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr()).With("component", "worker")

	p := config.Profile{
		Name:        "worker",
		Include:     opts.Filter,
		Exclude:     opts.Exclude,
		ExcludeTags: opts.ExcludeTags,
		Parallel:    opts.Parallel,
	}
	reg, err := buildSuite(p)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	frames := supervisor.FrameFile()
	defer frames.Close()

	d := &harness.Driver{
		Engine:   harness.NewEngine(harness.WithTimeout(opts.Timeout), harness.WithLogger(logger)),
		Parallel: opts.Parallel,
		Logger:   logger,
	}
	if _, err := supervisor.Serve(ctx, frames, d, reg.Snapshot(), reg.Fingerprint()); err != nil {
		return WrapExitError(ExitCommandError, "failed to stream outcomes", err)
	}
	return nil
}
