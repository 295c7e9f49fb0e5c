package supervisor

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/roach88/procharness/internal/harness"
	"github.com/roach88/procharness/internal/registry"
	"github.com/roach88/procharness/internal/wire"
)

// FrameFD is the descriptor a worker writes frames to. The supervisor passes
// the write end of a pipe as the first of cmd.ExtraFiles.
const FrameFD = 3

// FrameFile opens the worker's frame descriptor.
func FrameFile() *os.File {
	return os.NewFile(FrameFD, "frames")
}

// Serve runs cases with d and streams plan, start, outcome and done frames to
// w. It returns the in-process report. A fatal abort under the default
// aborter ends the process inside Serve, after the start frame of the
// aborting case has been written.
func Serve(ctx context.Context, w io.Writer, d *harness.Driver, cases []registry.TestCase, fingerprint string) (*harness.Report, error) {
	enc := wire.NewEncoder(w)

	names := make([]string, len(cases))
	index := make(map[string]int, len(cases))
	for i, tc := range cases {
		names[i] = tc.Name
		index[tc.Name] = i
	}
	if err := enc.Encode(wire.Frame{Type: wire.TypePlan, Names: names, Fingerprint: fingerprint}); err != nil {
		return nil, err
	}

	obs := &frameObserver{enc: enc, index: index, next: d.Observer}
	driver := *d
	driver.Observer = obs
	r := driver.Run(ctx, cases)

	if err := obs.Err(); err != nil {
		return r, err
	}
	if err := enc.Encode(wire.Frame{Type: wire.TypeDone}); err != nil {
		return r, err
	}
	return r, nil
}

// frameObserver turns driver notifications into frames.
type frameObserver struct {
	enc   *wire.Encoder
	index map[string]int
	next  harness.Observer

	mu  sync.Mutex
	err error
}

func (o *frameObserver) CaseStarted(tc registry.TestCase) {
	o.record(o.enc.Encode(wire.Frame{Type: wire.TypeStart, Index: o.index[tc.Name], Name: tc.Name}))
	if o.next != nil {
		o.next.CaseStarted(tc)
	}
}

func (o *frameObserver) CaseFinished(tc registry.TestCase, e harness.Entry) {
	o.record(o.enc.Encode(wire.Frame{
		Type:       wire.TypeOutcome,
		Index:      o.index[tc.Name],
		Name:       tc.Name,
		Kind:       e.Outcome.Kind.String(),
		Message:    e.Outcome.Message,
		DurationNS: int64(e.Duration),
	}))
	if o.next != nil {
		o.next.CaseFinished(tc, e)
	}
}

func (o *frameObserver) record(err error) {
	if err == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err == nil {
		o.err = fmt.Errorf("stream frame: %w", err)
	}
}

// Err returns the first frame write error.
func (o *frameObserver) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// durationOf converts a frame duration.
func durationOf(f wire.Frame) time.Duration {
	return time.Duration(f.DurationNS)
}
