package fault

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
)

// AbortExitCode is the process status used by the default aborter (128 + SIGABRT).
const AbortExitCode = 134

// Aborter carries out a fatal abort.
type Aborter interface {
	Abort(msg string)
}

// AbortProbe is implemented by aborters that contain aborts instead of exiting,
// so the boundary can tell an abort apart from a plain runtime.Goexit.
type AbortProbe interface {
	Fired() (msg string, fired bool)
}

// ExitAborter writes a diagnostic and terminates the process.
type ExitAborter struct {
	Stderr io.Writer
	Code   int

	// Exit defaults to os.Exit.
	Exit func(code int)
}

// Abort implements Aborter. It does not return under the default Exit.
func (a ExitAborter) Abort(msg string) {
	w := a.Stderr
	if w == nil {
		w = os.Stderr
	}
	if msg == "" {
		fmt.Fprintln(w, "fatal: abort")
	} else {
		fmt.Fprintf(w, "fatal: abort: %s\n", msg)
	}
	code := a.Code
	if code == 0 {
		code = AbortExitCode
	}
	exit := a.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(code)
}

// Latch contains aborts in-process: it records the first message and lets
// Abort unwind the calling goroutine. It is meant for sequential runs, since
// a latch cannot tell which of several concurrent procedures fired it.
type Latch struct {
	mu    sync.Mutex
	msg   string
	fired bool
}

// Abort implements Aborter.
func (l *Latch) Abort(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fired {
		return
	}
	l.fired = true
	l.msg = msg
}

// Fired implements AbortProbe.
func (l *Latch) Fired() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.msg, l.fired
}

// Reset re-arms the latch.
func (l *Latch) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fired = false
	l.msg = ""
}

type aborterBox struct{ a Aborter }

var current atomic.Pointer[aborterBox]

func init() {
	current.Store(&aborterBox{a: ExitAborter{}})
}

// SetAborter installs a process-wide aborter and returns a function that
// restores the previous one.
func SetAborter(a Aborter) (restore func()) {
	prev := current.Swap(&aborterBox{a: a})
	return func() { current.Store(prev) }
}

// CurrentAborter returns the installed aborter.
func CurrentAborter() Aborter {
	return current.Load().a
}

// Abort is the fatal, never-returning termination available to procedures.
//
// It is not a panic: deferred recovers in the procedure do not intercept it.
// Under the default aborter the process exits with AbortExitCode. Under a
// containing aborter (Latch) the calling goroutine is unwound with runtime.Goexit.
func Abort(msg string) {
	CurrentAborter().Abort(msg)
	runtime.Goexit()
}

func abortFired() (string, bool) {
	probe, ok := CurrentAborter().(AbortProbe)
	if !ok {
		return "", false
	}
	return probe.Fired()
}
