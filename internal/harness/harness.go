package harness

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/procharness/internal/registry"
)

// ReasonCancelled is the abort reason of a run stopped by its context.
const ReasonCancelled = "cancelled"

// Observer is notified as cases start and finish. Calls may arrive from
// several goroutines when Parallel > 1.
type Observer interface {
	CaseStarted(tc registry.TestCase)
	CaseFinished(tc registry.TestCase, entry Entry)
}

// Driver executes a snapshot of test cases and aggregates a Report.
type Driver struct {
	Engine *Engine

	// Parallel is the number of cases run at once. Values below 2 run
	// sequentially in registration order.
	Parallel int

	Observer Observer
	Logger   *slog.Logger
}

// Run executes cases and returns the finished report.
//
// Each case runs in its own fault boundary. A fatal abort (observable here
// only through a containing aborter) or a cancelled ctx stops dispatch: cases
// already finished stay in the report, cases never started are absent.
func (d *Driver) Run(ctx context.Context, cases []registry.TestCase) *Report {
	names := make([]string, len(cases))
	for i, tc := range cases {
		names[i] = tc.Name
	}
	b := Begin(names...)
	eng := d.Engine
	if eng == nil {
		eng = NewEngine()
	}

	if d.Parallel > 1 {
		d.runParallel(ctx, eng, cases, b)
	} else {
		d.runSequential(ctx, eng, cases, b)
	}

	r := b.Finish()
	d.logger().Info("run finished",
		"passed", r.Passed,
		"failed", r.Failed,
		"panicked", r.AbnormallyTerminated,
		"total", r.Total(),
		"aborted", r.Aborted,
	)
	return r
}

func (d *Driver) runSequential(ctx context.Context, eng *Engine, cases []registry.TestCase, b *ReportBuilder) {
	for _, tc := range cases {
		if stop := d.runOne(ctx, eng, tc, b); stop {
			return
		}
	}
}

func (d *Driver) runParallel(ctx context.Context, eng *Engine, cases []registry.TestCase, b *ReportBuilder) {
	var (
		wg      sync.WaitGroup
		stopped atomic.Bool
		sem     = make(chan struct{}, d.Parallel)
	)

	for _, tc := range cases {
		sem <- struct{}{}
		if stopped.Load() {
			<-sem
			break
		}
		if ctx.Err() != nil {
			<-sem
			b.Truncate(ReasonCancelled)
			break
		}

		wg.Add(1)
		go func(tc registry.TestCase) {
			defer wg.Done()
			defer func() { <-sem }()
			if stop := d.runOne(ctx, eng, tc, b); stop {
				stopped.Store(true)
			}
		}(tc)
	}
	wg.Wait()
}

// runOne executes and records a single case. It reports whether the run must stop.
func (d *Driver) runOne(ctx context.Context, eng *Engine, tc registry.TestCase, b *ReportBuilder) bool {
	if d.Observer != nil {
		d.Observer.CaseStarted(tc)
	}

	entry, err := eng.Run(ctx, tc)
	if IsInterruptError(err) {
		b.Truncate(ReasonCancelled)
		return true
	}

	if recErr := b.Record(tc.Name, entry.Outcome, entry.Duration); recErr != nil {
		d.logger().Error("record outcome", "case", tc.Name, "error", recErr)
	}
	if d.Observer != nil {
		d.Observer.CaseFinished(tc, entry)
	}
	return IsAbortError(err)
}

func (d *Driver) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d.Logger
}
