package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/roach88/procharness/internal/harness"
	"github.com/roach88/procharness/internal/wire"
)

// Supervisor runs a worker child process and rebuilds its report from the
// frame stream. It is the only place a fatal abort is observed precisely:
// when the child dies, cases it started but never finished are recorded as
// ProcessAborted and cases it never started are absent.
type Supervisor struct {
	// Path is the worker executable. Empty means os.Executable().
	Path string
	// Args are passed to the worker, e.g. {"worker", "--filter", "calls_*"}.
	Args []string
	// Env replaces the child environment when non-nil.
	Env []string

	// Output receives the child's stdout and stderr. Nil discards them.
	Output io.Writer

	Logger *slog.Logger

	now func() time.Time
}

// Result is the parent-side view of a supervised run.
type Result struct {
	Report      *harness.Report
	Fingerprint string
	// ExitStatus describes how the worker ended, e.g. "exit status 134".
	ExitStatus string
	// Complete is set when the worker sent done and exited zero.
	Complete bool
}

// Run starts the worker, reads its frames until the stream closes and waits
// for it to exit. An error is returned only when the worker cannot be
// started; every way the worker can die is reported in the Result.
func (s *Supervisor) Run(ctx context.Context) (*Result, error) {
	path := s.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate worker executable: %w", err)
		}
		path = exe
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create frame pipe: %w", err)
	}
	defer pr.Close()

	cmd := exec.CommandContext(ctx, path, s.Args...)
	cmd.ExtraFiles = []*os.File{pw}
	if s.Env != nil {
		cmd.Env = s.Env
	}
	out := s.Output
	if out == nil {
		out = io.Discard
	}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, fmt.Errorf("start worker: %w", err)
	}
	// The child holds its own copy; closing ours lets the stream hit EOF
	// when the child exits.
	pw.Close()
	s.logger().Debug("worker started", "pid", cmd.Process.Pid, "path", path)

	st := newStreamState(s.clock())
	readErr := st.consume(wire.NewDecoder(pr), s.logger())
	waitErr := cmd.Wait()

	status := exitStatus(cmd, waitErr)
	s.logger().Debug("worker exited", "status", status, "done", st.done)

	res := &Result{
		Fingerprint: st.fingerprint,
		ExitStatus:  status,
		Complete:    st.done && waitErr == nil && readErr == nil,
	}

	switch {
	case ctx.Err() != nil:
		st.builder.Truncate(harness.ReasonCancelled)
	case !res.Complete:
		reason := "process exited: " + status
		if readErr != nil && waitErr == nil {
			reason = "worker stream broken: " + readErr.Error()
		}
		st.abortInFlight(reason)
		st.builder.Truncate(reason)
	}

	res.Report = st.builder.Finish()
	if res.Report.Aborted {
		s.logger().Warn("run aborted", "during", res.Report.AbortedDuring, "reason", res.Report.AbortReason)
	}
	return res, nil
}

func (s *Supervisor) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

func (s *Supervisor) clock() func() time.Time {
	if s.now == nil {
		return time.Now
	}
	return s.now
}

// exitStatus renders how the child ended.
func exitStatus(cmd *exec.Cmd, waitErr error) string {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.String()
	}
	if waitErr != nil {
		return waitErr.Error()
	}
	return "unknown"
}

// streamState accumulates frames into a report.
type streamState struct {
	now         func() time.Time
	builder     *harness.ReportBuilder
	planned     []string
	fingerprint string
	started     map[string]time.Time
	pending     map[string]*strings.Builder
	done        bool
}

func newStreamState(now func() time.Time) *streamState {
	return &streamState{
		now:     now,
		builder: harness.Begin(),
		started: make(map[string]time.Time),
		pending: make(map[string]*strings.Builder),
	}
}

// consume reads frames until EOF or a fatal frame error, which it returns.
func (st *streamState) consume(dec *wire.Decoder, logger *slog.Logger) error {
	for {
		f, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if wire.IsFatalFrameError(err) {
				return err
			}
			logger.Warn("skipping frame", "error", err)
			continue
		}
		if err := st.apply(f); err != nil {
			logger.Warn("rejected frame", "type", f.Type, "case", f.Name, "error", err)
		}
	}
}

func (st *streamState) apply(f wire.Frame) error {
	switch f.Type {
	case wire.TypePlan:
		st.planned = f.Names
		st.fingerprint = f.Fingerprint
		st.builder = harness.Begin(f.Names...)
	case wire.TypeStart:
		st.started[f.Name] = st.now()
	case wire.TypeMessageChunk:
		b, ok := st.pending[f.Name]
		if !ok {
			b = &strings.Builder{}
			st.pending[f.Name] = b
		}
		b.WriteString(f.Message)
	case wire.TypeOutcome:
		msg := f.Message
		if b, ok := st.pending[f.Name]; ok {
			b.WriteString(f.Message)
			msg = b.String()
			delete(st.pending, f.Name)
		}
		kind, err := harness.ParseOutcomeKind(f.Kind)
		if err != nil {
			return err
		}
		delete(st.started, f.Name)
		return st.builder.Record(f.Name, harness.Outcome{Kind: kind, Message: msg}, durationOf(f))
	case wire.TypeDone:
		st.done = true
	}
	return nil
}

// abortInFlight records every started but unfinished case as aborted, in
// plan order.
func (st *streamState) abortInFlight(reason string) {
	for _, name := range st.planned {
		startedAt, ok := st.started[name]
		if !ok || st.builder.Recorded(name) {
			continue
		}
		_ = st.builder.Record(name, harness.Aborted(reason), st.now().Sub(startedAt))
	}
}
