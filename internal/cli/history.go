package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/procharness/internal/report"
	"github.com/roach88/procharness/internal/store"
)

// HistoryOptions holds flags for the history commands.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// HistoryResult is the payload of history.
type HistoryResult struct {
	Runs []store.RunRecord `json:"runs" yaml:"runs"`
}

// Text renders the runs as a table, newest first.
func (r HistoryResult) Text() string {
	if len(r.Runs) == 0 {
		return "No runs recorded.\n"
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tMODE\tPASSED\tTOTAL\tSTATUS")
	for _, run := range r.Runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			run.ID, run.StartedAt.Local().Format(time.DateTime), run.Mode, run.Passed, run.Total, runStatus(run))
	}
	tw.Flush()
	return b.String()
}

// ShowResult is the payload of history show.
type ShowResult struct {
	Run    store.RunRecord `json:"run" yaml:"run"`
	Result report.Document `json:"result" yaml:"result"`
}

// Text renders the run header followed by the stored report.
func (r ShowResult) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s, %s)\n", r.Run.ID, r.Run.Mode, r.Run.StartedAt.Local().Format(time.DateTime))
	if r.Run.Profile != "" {
		fmt.Fprintf(&b, "Profile: %s\n", r.Run.Profile)
	}
	fmt.Fprintf(&b, "Suite: %s\n\n", r.Run.Fingerprint)
	_ = report.Render(&b, r.Result.Report)
	return b.String()
}

func runStatus(run store.RunRecord) string {
	switch {
	case run.Aborted:
		return "aborted"
	case run.ExitStatus != 0:
		return "failed"
	default:
		return "ok"
	}
}

// NewHistoryCommand creates the history command and its show subcommand.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List runs recorded with run --db, newest first.

Example:
  procharness history --db ./runs.db
  procharness history --db ./runs.db --limit 5
  procharness history show <run-id> --db ./runs.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHistory(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "SQLite database written by run --db (required)")
	_ = cmd.MarkPersistentFlagRequired("db")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 for all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the report of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showRun(cmd, opts, args[0])
		},
	})

	return cmd
}

// openHistory opens an existing history database.
func openHistory(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
		}
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func listHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	out := formatter(opts.RootOptions, cmd)
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid limit %d: must not be negative", opts.Limit))
	}

	st, err := openHistory(opts.Database)
	if err != nil {
		return reportError(out, ErrCodeStore, err)
	}
	defer st.Close()

	runs, err := st.ListRuns(commandContext(cmd), opts.Limit)
	if err != nil {
		return reportError(out, ErrCodeStore, WrapExitError(ExitCommandError, "failed to list runs", err))
	}
	return out.Success(HistoryResult{Runs: runs})
}

func showRun(cmd *cobra.Command, opts *HistoryOptions, id string) error {
	out := formatter(opts.RootOptions, cmd)

	st, err := openHistory(opts.Database)
	if err != nil {
		return reportError(out, ErrCodeStore, err)
	}
	defer st.Close()

	rec, rep, err := st.ReadRun(commandContext(cmd), id)
	if errors.Is(err, store.ErrRunNotFound) {
		return reportError(out, ErrCodeNotFound, NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", id)))
	}
	if err != nil {
		return reportError(out, ErrCodeStore, WrapExitError(ExitCommandError, "failed to read run", err))
	}
	return out.Success(ShowResult{Run: rec, Result: report.NewDocument(rep)})
}
