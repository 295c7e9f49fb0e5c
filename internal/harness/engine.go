package harness

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/procharness/internal/check"
	"github.com/roach88/procharness/internal/fault"
	"github.com/roach88/procharness/internal/registry"
)

// Engine runs one test case at a time inside a fault boundary and is the
// only producer of Outcomes.
type Engine struct {
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTimeout fails any case that runs longer than d. Zero (the default)
// imposes no bound.
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.timeout = d }
}

// WithClock overrides the time source used for entry durations.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine. Logs are discarded unless WithLogger is given.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes tc and classifies its termination.
//
// On a fatal abort the returned entry carries a ProcessAborted outcome and
// the error satisfies IsAbortError; the caller must not run further cases.
// On cancellation the entry is empty and the error satisfies IsInterruptError.
func (e *Engine) Run(ctx context.Context, tc registry.TestCase) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, newInterruptError(tc.Name, err.Error())
	}

	opts := []fault.Option{fault.WithClock(e.now)}
	if e.timeout > 0 {
		opts = append(opts, fault.WithTimeout(e.timeout))
	}

	e.logger.Debug("case started", "case", tc.Name, "expect_panic", tc.ExpectAbnormalTermination)
	term := fault.Run(ctx, tc.Procedure, opts...)

	if term.Kind == fault.Interrupted {
		e.logger.Warn("case interrupted", "case", tc.Name)
		return Entry{}, newInterruptError(tc.Name, term.Message)
	}

	entry := Entry{Name: tc.Name, Outcome: Classify(tc, term), Duration: term.Duration}
	e.logger.Debug("case finished",
		"case", tc.Name,
		"outcome", entry.Outcome.Kind.String(),
		"duration", entry.Duration,
	)
	if term.Kind == fault.Panicked && entry.Outcome.Kind == AbnormallyTerminated {
		e.logger.Debug("panic stack", "case", tc.Name, "stack", string(term.Stack))
	}

	if entry.Outcome.Kind == ProcessAborted {
		e.logger.Warn("run aborted", "case", tc.Name, "message", term.Message)
		return entry, newAbortError(tc.Name, term.Message)
	}
	return entry, nil
}

// Classify maps an observed termination onto an Outcome for tc.
//
// A check failure on a case that does not expect abnormal termination is
// Failed; any other panic is AbnormallyTerminated. When abnormal termination
// is expected, any panic or Goexit passes.
func Classify(tc registry.TestCase, term fault.Termination) Outcome {
	expect := tc.ExpectAbnormalTermination

	switch term.Kind {
	case fault.Returned:
		if expect {
			return Fail(MsgMissingAbnormalTermination)
		}
		return Pass()

	case fault.Panicked:
		if expect {
			return Pass()
		}
		if check.IsFailure(term.Value) {
			return Fail(term.Message)
		}
		return Terminated(term.Message)

	case fault.Exited:
		if expect {
			return Pass()
		}
		return Terminated(MsgGoexit)

	case fault.Aborted:
		return Aborted(term.Message)

	case fault.TimedOut:
		return Fail(term.Message)

	default:
		return Terminated(term.Message)
	}
}
